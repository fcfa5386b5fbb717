// Package patterns implements the path matcher (C1): glob-like matching
// of test file names, class names, and function names against
// configurable patterns ("test_*.py", "*_test.py", "Test*", "test_*").
package patterns

import (
	"fmt"

	"github.com/gobwas/glob"

	"rtest/internal/config"
)

// Set is a compiled, case-sensitive set of file/class/function patterns.
// Patterns are compiled once at construction so invalid patterns are
// rejected at configuration load time, never at match time (spec.md §4.1).
type Set struct {
	files     []glob.Glob
	classes   []glob.Glob
	functions []glob.Glob
}

// Compile builds a Set from a config.Patterns. It rejects any pattern
// gobwas/glob cannot compile.
func Compile(p config.Patterns) (*Set, error) {
	s := &Set{}

	var err error
	if s.files, err = compileAll(p.Files); err != nil {
		return nil, fmt.Errorf("file patterns: %w", err)
	}
	if s.classes, err = compileAll(p.Classes); err != nil {
		return nil, fmt.Errorf("class patterns: %w", err)
	}
	if s.functions, err = compileAll(p.Functions); err != nil {
		return nil, fmt.Errorf("function patterns: %w", err)
	}

	return s, nil
}

func compileAll(pats []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(pats))
	for _, pat := range pats {
		// '/' is never meaningful in a file/class/function pattern here -
		// these match single path segments or identifiers, so '*' must
		// not cross a separator even though none of our inputs contain one.
		g, err := glob.Compile(pat, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// MatchFile reports whether basename matches any configured file pattern.
func (s *Set) MatchFile(basename string) bool { return matchAny(s.files, basename) }

// MatchClass reports whether name matches any configured class pattern.
func (s *Set) MatchClass(name string) bool { return matchAny(s.classes, name) }

// MatchFunction reports whether name matches any configured function pattern.
func (s *Set) MatchFunction(name string) bool { return matchAny(s.functions, name) }

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
