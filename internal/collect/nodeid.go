// Package collect implements the collection tree (C6): Session, Module,
// Class, and Function nodes, and canonical nodeid computation.
package collect

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Nodeid is the canonical string identifier for a test item, shaped
// <relative-path><sep>::<class-chain>::<function>[<paramid>].
// The path segment uses the host path separator (spec.md §3, a
// deliberate deviation from upstream pytest's always-forward-slash ids).
type Nodeid string

// BuildNodeid composes a nodeid from its parts. classChain may be empty.
// paramID, if non-empty, is wrapped in brackets.
func BuildNodeid(relPath string, classChain []string, function, paramID string) Nodeid {
	var b strings.Builder
	b.WriteString(filepath.FromSlash(relPath))
	b.WriteString("::")
	for _, c := range classChain {
		b.WriteString(c)
		b.WriteString("::")
	}
	b.WriteString(function)
	if paramID != "" {
		b.WriteString("[")
		b.WriteString(paramID)
		b.WriteString("]")
	}
	return Nodeid(b.String())
}

// Parsed is the decomposition of a Nodeid, used for round-trip validation.
type Parsed struct {
	Path       string
	ClassChain []string
	Function   string
	ParamID    string // empty if unparametrized
}

// Parse decomposes a nodeid back into its path, class chain, function
// name, and optional parametrization id. It is the inverse of
// BuildNodeid and is used by the testable-properties round-trip
// invariant in spec.md §8.
func Parse(id Nodeid) (Parsed, error) {
	s := string(id)
	sepIdx := strings.Index(s, "::")
	if sepIdx < 0 {
		return Parsed{}, fmt.Errorf("nodeid %q: missing path separator '::'", s)
	}

	path := s[:sepIdx]
	rest := s[sepIdx+2:]
	if rest == "" {
		return Parsed{}, fmt.Errorf("nodeid %q: missing symbol after path", s)
	}

	segments := strings.Split(rest, "::")
	last := segments[len(segments)-1]
	classChain := segments[:len(segments)-1]

	function := last
	paramID := ""
	if idx := strings.IndexByte(last, '['); idx >= 0 {
		if !strings.HasSuffix(last, "]") {
			return Parsed{}, fmt.Errorf("nodeid %q: unterminated parametrization suffix", s)
		}
		function = last[:idx]
		paramID = last[idx+1 : len(last)-1]
	}

	if function == "" {
		return Parsed{}, fmt.Errorf("nodeid %q: empty function name", s)
	}

	return Parsed{Path: path, ClassChain: classChain, Function: function, ParamID: paramID}, nil
}

// ModulePath returns the relative-path prefix of a nodeid, used by
// scheduler policies loadfile/loadscope to group by module.
func (p Parsed) ModulePath() string { return p.Path }

// ScopeKey returns the loadscope grouping key: module-path::class-chain
// (empty class chain = module scope), per spec.md §4.8.
func (p Parsed) ScopeKey() string {
	if len(p.ClassChain) == 0 {
		return p.Path
	}
	return p.Path + "::" + strings.Join(p.ClassChain, "::")
}
