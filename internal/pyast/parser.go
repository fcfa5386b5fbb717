// Package pyast implements the parser adapter (C2) and AST visitor (C3):
// it turns Python source bytes into a tree-sitter parse tree and walks it
// into candidate classes and functions in source order.
package pyast

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"rtest/internal/logging"
)

// Parser wraps a tree-sitter Python grammar. It is not safe for
// concurrent use by multiple goroutines - discovery is sequential
// (spec.md §5), so one Parser per discoverer run is enough.
type Parser struct {
	sit *sitter.Parser
}

// New returns a Parser ready to parse Python source.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{sit: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() { p.sit.Close() }

// Parse parses one Python source file into a Module. It never panics:
// tree-sitter tolerates malformed input by emitting ERROR nodes rather
// than failing, and Parse turns a tree containing any ERROR node into
// a non-nil error so the caller can record a ParseError and move on
// (spec.md §3's "discovery never aborts on one file" requirement).
func (p *Parser) Parse(relPath string, content []byte) (*Module, error) {
	start := time.Now()
	logging.ParserDebug("parsing %s (%d bytes)", filepath.Base(relPath), len(content))

	tree, err := p.sit.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	mod := &Module{
		Path:        relPath,
		Assignments: make(map[string]string),
		EnumMembers: make(map[string]map[string]string),
	}

	v := &visitor{content: content, mod: mod}
	v.walkBlock(root, nil)

	if root.HasError() {
		logging.ParserWarn("%s: syntax error encountered during parse", relPath)
		return mod, &SyntaxError{Path: relPath}
	}

	logging.ParserDebug("parsed %s in %v: %d functions, %d classes",
		filepath.Base(relPath), time.Since(start), len(mod.Functions), len(mod.Classes))
	return mod, nil
}

// SyntaxError reports that tree-sitter produced at least one ERROR node
// while parsing Path. The partial Module returned alongside it may still
// contain usable candidates found outside the broken region.
type SyntaxError struct {
	Path string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error", e.Path)
}
