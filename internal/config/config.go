// Package config holds the resolved run configuration for rtest.
//
// This is deliberately a flat, CLI-populated struct, not a reader of
// project manifests like pyproject.toml or setup.cfg — translating those
// into a Config is the CLI/config-loading layer's job, which spec.md
// scopes out of the core.
package config

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Patterns holds the glob-like patterns used to recognize test files,
// classes, and functions (C1).
type Patterns struct {
	Files     []string `yaml:"files"`
	Classes   []string `yaml:"classes"`
	Functions []string `yaml:"functions"`
}

// DefaultPatterns returns the patterns named in spec.md §4.1.
func DefaultPatterns() Patterns {
	return Patterns{
		Files:     []string{"test_*.py", "*_test.py"},
		Classes:   []string{"Test*"},
		Functions: []string{"test_*"},
	}
}

// DefaultMarkerProviders lists the identifiers recognized as decorator sources
// for parametrization, e.g. "rtest" in "rtest.mark.parametrize(...)".
// Decorator recognition is syntactic, never import-path based (spec.md §9).
var DefaultMarkerProviders = []string{"rtest", "pytest"}

// LoggingConfig controls the internal/logging category file logger.
type LoggingConfig struct {
	DebugMode  bool   `yaml:"debug_mode"`
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
}

// Config holds the resolved settings for one rtest run.
type Config struct {
	Patterns Patterns `yaml:"patterns"`

	// WorkerCount is the requested worker count: a non-negative integer,
	// or -1 to mean "auto" (number of logical CPUs). 0 means sequential.
	WorkerCount int `yaml:"worker_count"`
	// MaxWorkers caps WorkerCount's resolved value when > 0.
	MaxWorkers int `yaml:"max_workers"`
	// DistPolicy is one of load|loadfile|loadscope|worksteal|no.
	DistPolicy string `yaml:"dist_policy"`

	// WorkingDirectoryMarkers names files that mark a subproject root
	// for C10 (nearest-ancestor grouping).
	WorkingDirectoryMarkers []string `yaml:"working_directory_markers"`

	Timeout      string `yaml:"timeout,omitempty"`
	GracePeriod  string `yaml:"grace_period,omitempty"`
	EnvOverrides map[string]string `yaml:"env,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns sensible defaults matching spec.md's defaults.
func DefaultConfig() *Config {
	return &Config{
		Patterns:    DefaultPatterns(),
		WorkerCount: -1, // auto
		MaxWorkers:  0,  // unbounded
		DistPolicy:  "load",
		WorkingDirectoryMarkers: []string{
			"pyproject.toml", "setup.py", "setup.cfg", "tox.ini",
		},
		GracePeriod: "5s",
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads an optional YAML config file at path and overlays it onto
// DefaultConfig(). A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects invalid patterns and unknown policies at load time,
// per spec.md §4.1 ("Invalid patterns are rejected at configuration
// load time, not at match time.").
func (c *Config) Validate() error {
	for _, group := range [][]string{c.Patterns.Files, c.Patterns.Classes, c.Patterns.Functions} {
		for _, pat := range group {
			if pat == "" {
				return fmt.Errorf("empty pattern not allowed")
			}
			if _, err := glob.Compile(pat, '/'); err != nil {
				return fmt.Errorf("invalid pattern %q: %w", pat, err)
			}
		}
	}

	switch c.DistPolicy {
	case "load", "loadfile", "loadscope", "worksteal", "no":
	default:
		return fmt.Errorf("unknown distribution policy: %q", c.DistPolicy)
	}

	if c.WorkerCount < -1 {
		return fmt.Errorf("invalid worker count: %d", c.WorkerCount)
	}

	return nil
}
