// Package discover implements the discoverer (C5): it walks one or more
// roots, parses each matching Python file, runs the semantic analyzer
// over every candidate, and accumulates the flat nodeid stream and
// diagnostics C6 consumes.
//
// Discovery is deliberately single-threaded (spec.md §5), even though
// the teacher's analogous filesystem scanner walks concurrently with a
// worker pool - concurrent discovery would make the accumulated nodeid
// and CollectionError order nondeterministic across runs, which
// spec.md's idempotence property forbids.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"rtest/internal/collect"
	"rtest/internal/config"
	"rtest/internal/logging"
	"rtest/internal/patterns"
	"rtest/internal/pyast"
	"rtest/internal/semantic"
)

// Result is the outcome of one discovery run: the flat nodeid stream in
// source order, plus every accumulated diagnostic.
type Result struct {
	Nodeids []collect.Nodeid
	Errors  []collect.CollectionError
}

// Discoverer owns the parser and analyzer used across one discovery
// run. It is not safe for concurrent use.
type Discoverer struct {
	set      *patterns.Set
	parser   *pyast.Parser
	analyzer *semantic.Analyzer
}

// New builds a Discoverer from a resolved configuration.
func New(cfg *config.Config) (*Discoverer, error) {
	set, err := patterns.Compile(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}
	return &Discoverer{
		set:      set,
		parser:   pyast.New(),
		analyzer: semantic.NewAnalyzer(config.DefaultMarkerProviders),
	}, nil
}

// Close releases the Discoverer's parser and analyzer resources.
func (d *Discoverer) Close() {
	d.parser.Close()
	d.analyzer.Close()
}

// Discover walks roots (files or directories, relative to sessionRoot)
// and returns the accumulated nodeids and diagnostics. It never returns
// an error itself: per-root and per-file failures become
// CollectionErrors on the Result, per spec.md §4.5's failure-tolerance
// requirement. sessionRoot is used to compute each file's relative path.
func (d *Discoverer) Discover(sessionRoot string, roots []string) Result {
	var result Result

	for _, root := range roots {
		files, err := d.listFiles(root)
		if err != nil {
			logging.DiscoverWarn("root not found: %s: %v", root, err)
			result.Errors = append(result.Errors, collect.CollectionError{
				File:    root,
				Kind:    collect.ErrorRootNotFound,
				Message: err.Error(),
			})
			continue
		}

		for _, file := range files {
			rel, err := filepath.Rel(sessionRoot, file)
			if err != nil {
				rel = file
			}
			ids, errs := d.discoverFile(rel, file)
			result.Nodeids = append(result.Nodeids, ids...)
			result.Errors = append(result.Errors, errs...)
		}
	}

	logging.Discover("discovery complete: %d nodeids, %d diagnostics", len(result.Nodeids), len(result.Errors))
	return result
}

// listFiles resolves one root to its matching Python file list, in
// deterministic (lexicographic) walk order.
func (d *Discoverer) listFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if d.set.MatchFile(entry.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// discoverFile parses one file and runs the semantic analyzer over
// every candidate function it contains, in source order. A syntax error
// does not abort the file: the partial Module tree-sitter recovered
// still gets walked for candidates, with the syntax error itself
// recorded as a diagnostic alongside anything found.
func (d *Discoverer) discoverFile(relPath, absPath string) ([]collect.Nodeid, []collect.CollectionError) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, []collect.CollectionError{{File: relPath, Kind: collect.ErrorIO, Message: err.Error()}}
	}

	mod, err := d.parser.Parse(relPath, content)
	if err != nil {
		var syn *pyast.SyntaxError
		if !errors.As(err, &syn) {
			return nil, []collect.CollectionError{{File: relPath, Kind: collect.ErrorParse, Message: err.Error()}}
		}
		// tree-sitter's ERROR-node recovery still walks the rest of the
		// tree, so mod carries whatever candidates sit outside the broken
		// region. Record the syntax error as a diagnostic and keep going
		// instead of throwing that partial result away.
	}

	var ids []collect.Nodeid
	var diags []collect.CollectionError
	if err != nil {
		diags = append(diags, collect.CollectionError{File: relPath, Kind: collect.ErrorParse, Message: err.Error()})
	}

	for _, fn := range mod.Functions {
		if !d.isCandidate(mod, fn) {
			continue
		}

		outcome := d.analyzer.Analyze(mod, fn)
		if outcome.Err != nil {
			diags = append(diags, collect.CollectionError{
				File:     relPath,
				Kind:     collect.ErrorParse,
				Message:  outcome.Err.Error(),
				Location: &collect.Location{Line: fn.Line},
			})
			continue
		}

		for _, w := range outcome.Warnings {
			diags = append(diags, collect.CollectionError{
				File:     relPath,
				Kind:     collect.ErrorSemanticWarning,
				Message:  w,
				Location: &collect.Location{Line: fn.Line},
			})
		}

		if outcome.Spec == nil {
			ids = append(ids, collect.BuildNodeid(relPath, fn.ClassChain, fn.Name, ""))
			continue
		}

		for _, id := range outcome.Spec.IDs {
			ids = append(ids, collect.BuildNodeid(relPath, fn.ClassChain, fn.Name, id))
		}
	}

	return ids, diags
}

// isCandidate reports whether fn should be collected: a module-level
// function matching the function pattern, or a method whose entire
// enclosing class chain matches the class pattern and whose own name
// matches the function pattern.
func (d *Discoverer) isCandidate(mod *pyast.Module, fn pyast.FunctionCandidate) bool {
	if !d.set.MatchFunction(fn.Name) {
		return false
	}
	if len(fn.ClassChain) == 0 {
		return true
	}
	for _, className := range fn.ClassChain {
		if !d.set.MatchClass(className) {
			return false
		}
	}
	return true
}
