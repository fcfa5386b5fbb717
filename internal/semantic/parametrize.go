package semantic

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"rtest/internal/pyast"
)

// Analyzer is the semantic analyzer (C4). One Analyzer owns the
// tree-sitter parser used to re-fold raw decorator argument text; it is
// not safe for concurrent use, matching the sequential discovery phase
// (spec.md §5).
type Analyzer struct {
	markerProviders map[string]bool
	parser          *snippetParser
}

// NewAnalyzer returns an Analyzer that recognizes parametrize/cases
// decorators whose call target is "<provider>.mark.<parametrize|cases>"
// for one of the given marker providers (e.g. "rtest", "pytest").
func NewAnalyzer(markerProviders []string) *Analyzer {
	set := make(map[string]bool, len(markerProviders))
	for _, m := range markerProviders {
		set[m] = true
	}
	return &Analyzer{markerProviders: set, parser: newSnippetParser()}
}

// Close releases the Analyzer's tree-sitter parser.
func (a *Analyzer) Close() { a.parser.close() }

// Outcome is the per-function result of running the semantic analyzer.
type Outcome struct {
	// Spec is non-nil only when at least one parametrize decorator was
	// present and the whole stack resolved.
	Spec *ParametrizationSpec
	// Warnings holds SemanticWarning reasons, present when a
	// parametrize decorator stack existed but did not fully resolve.
	Warnings []string
	Skip     bool
	SkipReason string
	// Err is set for a hard per-function failure (e.g. wrong-length
	// ids): the caller must not collect this function at all.
	Err error
}

// Analyze resolves fn's decorator stack found in mod.
func (a *Analyzer) Analyze(mod *pyast.Module, fn pyast.FunctionCandidate) Outcome {
	var out Outcome
	var decs []resolvedDecorator

	for _, d := range fn.Decorators {
		if kind, ok := a.markDecorator(d.Name); ok {
			switch kind {
			case "parametrize", "cases":
				rd, err := a.resolveParametrizeDecorator(mod, d.ArgsText)
				if err != nil {
					if lenErr, isLen := err.(*IDsLengthError); isLen {
						out.Err = lenErr
						return out
					}
					out.Warnings = append(out.Warnings, err.Error())
					continue
				}
				decs = append(decs, rd)
			}
			continue
		}
		if isSkipDecorator(d.Name) {
			out.Skip = true
			out.SkipReason = extractSkipReason(a.parser, d.ArgsText)
		}
	}

	if len(out.Warnings) > 0 {
		// All-or-nothing: any unresolved decorator means none expand.
		return out
	}
	if len(decs) == 0 {
		return out
	}

	spec := cartesianCombine(decs)
	out.Spec = &spec
	return out
}

// markDecorator reports whether name is "<provider>.mark.<kind>" for a
// known provider, returning kind ("parametrize" or "cases").
func (a *Analyzer) markDecorator(name string) (string, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[1] != "mark" {
		return "", false
	}
	if !a.markerProviders[parts[0]] {
		return "", false
	}
	switch parts[2] {
	case "parametrize", "cases":
		return parts[2], true
	}
	return "", false
}

func isSkipDecorator(name string) bool {
	return name == "skip" || strings.HasSuffix(name, ".skip") ||
		name == "skipif" || strings.HasSuffix(name, ".skipif")
}

func extractSkipReason(p *snippetParser, argsText string) string {
	if argsText == "" {
		return ""
	}
	_, kwargs, content, closeFn, err := p.parseCallArgs(argsText)
	if err != nil {
		return ""
	}
	defer closeFn()
	reasonNode, ok := kwargs["reason"]
	if !ok {
		return ""
	}
	ctx := &foldCtx{parser: p}
	v, err := ctx.fold(content, reasonNode)
	if err != nil || v.Kind != KindString {
		return ""
	}
	return v.Raw
}

// resolvedDecorator is one fully-resolved parametrize decorator, ready
// to be folded into a Cartesian product with its siblings.
type resolvedDecorator struct {
	ArgNames []string
	Rows     [][]Value
	IDs      []string
}

func (a *Analyzer) resolveParametrizeDecorator(mod *pyast.Module, argsText string) (resolvedDecorator, error) {
	positional, kwargs, content, closeFn, err := a.parser.parseCallArgs(argsText)
	if err != nil {
		return resolvedDecorator{}, unresolvable("argvalues could not be parsed")
	}
	defer closeFn()

	if len(positional) < 2 {
		return resolvedDecorator{}, unresolvable("parametrize call is missing argnames or argvalues")
	}

	ctx := &foldCtx{mod: mod, parser: a.parser}

	argNames, err := parseArgNames(ctx, content, positional[0])
	if err != nil {
		return resolvedDecorator{}, err
	}

	valuesNode, valuesContent := positional[1], content
	if valuesNode.Type() == "identifier" {
		// Rule 2: a bare name resolves through its module-level assignment.
		if rhs, ok := mod.Assignments[textOf(content, valuesNode)]; ok {
			expr, exprContent, closeExpr, perr := a.parser.parseExpr(rhs)
			if perr == nil {
				defer closeExpr()
				valuesNode, valuesContent = expr, exprContent
			}
		}
	}
	if valuesNode.Type() != "list" && valuesNode.Type() != "tuple" && valuesNode.Type() != "set" {
		if _, ferr := ctx.fold(valuesContent, valuesNode); ferr != nil {
			return resolvedDecorator{}, unresolvable("argvalues %s", ferr.Error())
		}
		return resolvedDecorator{}, unresolvable("argvalues is not a literal sequence")
	}

	var rows [][]Value
	for i := 0; i < int(valuesNode.NamedChildCount()); i++ {
		el := valuesNode.NamedChild(i)
		row, err := parseValueRow(ctx, valuesContent, el, len(argNames))
		if err != nil {
			return resolvedDecorator{}, err
		}
		rows = append(rows, row)
	}

	ids := make([]string, len(rows))
	if idsNode, ok := kwargs["ids"]; ok {
		explicit, err := parseExplicitIDs(ctx, content, idsNode)
		if err != nil {
			return resolvedDecorator{}, err
		}
		if len(explicit) != len(rows) {
			return resolvedDecorator{}, &IDsLengthError{Got: len(explicit), Want: len(rows)}
		}
		ids = explicit
	} else {
		for i, row := range rows {
			parts := make([]string, len(row))
			for j, v := range row {
				parts[j] = displayID(v, i)
			}
			ids[i] = strings.Join(parts, "-")
		}
	}

	return resolvedDecorator{ArgNames: argNames, Rows: rows, IDs: ids}, nil
}

// parseArgNames resolves the first positional argument to parametrize:
// either a single comma-separated string ("x,y") or a list/tuple of
// string literals.
func parseArgNames(ctx *foldCtx, content []byte, n *sitter.Node) ([]string, error) {
	if n.Type() == "string" {
		raw := stripPyQuotes(textOf(content, n))
		var names []string
		for _, part := range strings.Split(raw, ",") {
			name := strings.TrimSpace(part)
			if name != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, unresolvable("argnames is empty")
		}
		return names, nil
	}

	if n.Type() == "list" || n.Type() == "tuple" {
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v, err := ctx.fold(content, n.NamedChild(i))
			if err != nil {
				return nil, err
			}
			if v.Kind != KindString {
				return nil, unresolvable("argnames element is not a string literal")
			}
			names = append(names, v.Raw)
		}
		return names, nil
	}

	return nil, unresolvable("argnames is not a string or list of strings")
}

// parseValueRow folds one argvalues element into a row of wantLen
// values: a bare value when there is exactly one arg name, otherwise a
// tuple/list of per-name values.
func parseValueRow(ctx *foldCtx, content []byte, n *sitter.Node, wantLen int) ([]Value, error) {
	if wantLen == 1 && n.Type() != "tuple" && n.Type() != "list" {
		v, err := ctx.fold(content, n)
		if err != nil {
			return nil, err
		}
		return []Value{v}, nil
	}

	if n.Type() != "tuple" && n.Type() != "list" {
		return nil, unresolvable("argvalues element is not a tuple matching argnames")
	}

	var row []Value
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v, err := ctx.fold(content, n.NamedChild(i))
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	if wantLen > 1 && len(row) != wantLen {
		return nil, unresolvable("argvalues element has %d values, want %d", len(row), wantLen)
	}
	return row, nil
}

// parseExplicitIDs resolves an `ids=[...]` keyword argument to a flat
// list of display strings.
func parseExplicitIDs(ctx *foldCtx, content []byte, n *sitter.Node) ([]string, error) {
	if n.Type() != "list" && n.Type() != "tuple" {
		return nil, unresolvable("ids is not a list of strings")
	}
	var ids []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v, err := ctx.fold(content, n.NamedChild(i))
		if err != nil {
			return nil, err
		}
		if v.Kind != KindString {
			return nil, unresolvable("ids element is not a string literal")
		}
		ids = append(ids, v.Raw)
	}
	return ids, nil
}

// cartesianCombine expands stacked parametrize decorators into one
// ParametrizationSpec, outer-first (decs[0] is the outermost decorator
// and varies slowest), per spec.md §4.4.
func cartesianCombine(decs []resolvedDecorator) ParametrizationSpec {
	var names []string
	for _, d := range decs {
		names = append(names, d.ArgNames...)
	}

	combos := [][]Value{{}}
	ids := []string{""}

	for _, d := range decs {
		newCombos := make([][]Value, 0, len(combos)*len(d.Rows))
		newIDs := make([]string, 0, len(ids)*len(d.Rows))

		for ci, combo := range combos {
			for ri, row := range d.Rows {
				nc := make([]Value, 0, len(combo)+len(row))
				nc = append(nc, combo...)
				nc = append(nc, row...)
				newCombos = append(newCombos, nc)

				id := d.IDs[ri]
				if ids[ci] != "" {
					id = ids[ci] + "-" + id
				}
				newIDs = append(newIDs, id)
			}
		}

		combos = newCombos
		ids = newIDs
	}

	return ParametrizationSpec{ArgNames: names, ArgValues: combos, IDs: ids}
}
