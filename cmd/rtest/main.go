// Command rtest is the CLI entry point for the static-discovery Python
// test runner. It is a thin wrapper around the core packages
// (internal/discover, internal/subproject, internal/schedule,
// internal/workerpool, internal/runner, internal/aggregate): it parses
// flags into a config.Config, drives the pipeline, and maps the
// resulting session outcome onto a process exit code - none of that
// mapping logic lives in the core packages themselves.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rtest/internal/config"
	"rtest/internal/logging"
)

var (
	flagRoots           []string
	flagFilePatterns    []string
	flagClassPatterns   []string
	flagFunctionPatterns []string
	flagWorkers         string
	flagMaxWorkers      int
	flagDist            string
	flagEnv             []string
	flagStrategy        string
	flagPytestBinary    string
	flagPytestArgs      []string
	flagTimeout         time.Duration
	flagGracePeriod     time.Duration
	flagCollectOnly     bool
	flagWatch           bool
	flagReportJUnit     string
	flagReportJSON      string
	flagConfigFile      string
	flagVerbose         bool

	logger *zap.Logger

	// exitCode carries the session's mapped exit code out of RunE, since
	// cobra's own error path only distinguishes "ok" from "some error".
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "rtest",
	Short: "Static-discovery, distributed Python test runner",
	Long: `rtest discovers Python tests by parsing source files into ASTs -
it never imports the code under test. Discovered nodeids are grouped by
subproject, partitioned across workers by the selected distribution
policy, and dispatched to an external pytest process (or another
runner.Strategy) per batch.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if flagVerbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// File logging follows the config's logging section; a config that
		// fails to load here is reported later by buildConfig.
		logCfg := config.DefaultConfig().Logging
		if fileCfg, err := config.Load(flagConfigFile); err == nil {
			logCfg = fileCfg.Logging
		}
		ws, _ := os.Getwd()
		if err := logging.Initialize(ws, logCfg.DebugMode || flagVerbose, logCfg.Level, logCfg.JSONFormat); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runRtest,
}

func init() {
	def := config.DefaultPatterns()

	rootCmd.Flags().StringArrayVar(&flagRoots, "root", nil, "search root (repeatable, defaults to the current directory)")
	rootCmd.Flags().StringArrayVar(&flagFilePatterns, "file-pattern", def.Files, "test file glob pattern (repeatable)")
	rootCmd.Flags().StringArrayVar(&flagClassPatterns, "class-pattern", def.Classes, "test class glob pattern (repeatable)")
	rootCmd.Flags().StringArrayVar(&flagFunctionPatterns, "function-pattern", def.Functions, "test function glob pattern (repeatable)")
	rootCmd.Flags().StringVar(&flagWorkers, "workers", "auto", `worker count, or "auto" for one per logical CPU`)
	rootCmd.Flags().IntVar(&flagMaxWorkers, "max-workers", 0, "cap the resolved worker count (0 = unbounded)")
	rootCmd.Flags().StringVar(&flagDist, "dist", "load", "distribution policy: load|loadfile|loadscope|worksteal|no")
	rootCmd.Flags().StringArrayVar(&flagEnv, "env", nil, "environment override K=V (repeatable)")
	rootCmd.Flags().StringVar(&flagStrategy, "strategy", "pytest", "execution strategy: pytest|native")
	rootCmd.Flags().StringVar(&flagPytestBinary, "pytest-binary", "pytest", "executable used by the pytest strategy")
	rootCmd.Flags().StringArrayVar(&flagPytestArgs, "pytest-arg", []string{"-q", "--no-header"}, "extra argument passed to the pytest strategy before the nodeid selection (repeatable)")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "overall run timeout (0 = none)")
	rootCmd.Flags().DurationVar(&flagGracePeriod, "grace-period", 5*time.Second, "grace period between SIGTERM and SIGKILL on cancellation")
	rootCmd.Flags().BoolVar(&flagCollectOnly, "collect-only", false, "print the discovered nodeid listing and exit without running")
	rootCmd.Flags().BoolVar(&flagWatch, "watch", false, "re-discover on source changes instead of running once")
	rootCmd.Flags().StringVar(&flagReportJUnit, "report-junit", "", "write a JUnit-XML report to this path")
	rootCmd.Flags().StringVar(&flagReportJSON, "report-json", "", "write a JSON report to this path")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "optional YAML config file overlaid onto the defaults")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug-level logging")
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(4)
	}
	os.Exit(exitCode)
}
