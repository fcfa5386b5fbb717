package semantic

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"rtest/internal/pyast"
)

// snippetParser re-parses raw Python source fragments captured by
// internal/pyast (decorator arguments, module/class-level assignment
// right-hand sides) so they can be folded into Values. pyast closes its
// own tree-sitter trees once Parse returns, so C4 owns its own parser
// and works purely from the raw text it was handed - the layering the
// C3/C4 split requires.
type snippetParser struct {
	sit *sitter.Parser
}

func newSnippetParser() *snippetParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &snippetParser{sit: p}
}

func (s *snippetParser) close() { s.sit.Close() }

// parseExpr parses a single expression fragment (e.g. "42", "[1, 2]",
// "Color.RED") by wrapping it in parens so tree-sitter treats it as one
// expression_statement, and returns that expression's node plus the
// backing content buffer. The returned tree must be closed by the
// caller via the returned close func.
func (s *snippetParser) parseExpr(text string) (*sitter.Node, []byte, func(), error) {
	content := []byte("(" + text + ")\n")
	tree, err := s.sit.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing expression %q: %w", text, err)
	}
	root := tree.RootNode()
	if root.NamedChildCount() == 0 {
		tree.Close()
		return nil, nil, nil, fmt.Errorf("empty expression")
	}
	stmt := root.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
		tree.Close()
		return nil, nil, nil, fmt.Errorf("malformed expression %q", text)
	}
	expr := stmt.NamedChild(0)
	if expr.Type() == "parenthesized_expression" && expr.NamedChildCount() > 0 {
		expr = expr.NamedChild(0)
	}
	return expr, content, tree.Close, nil
}

// parseCallArgs parses a decorator's raw argument text (everything
// between its outer parens) into positional argument nodes and keyword
// argument nodes, by wrapping it as a synthetic call.
func (s *snippetParser) parseCallArgs(argsText string) ([]*sitter.Node, map[string]*sitter.Node, []byte, func(), error) {
	content := []byte("__f(" + argsText + ")\n")
	tree, err := s.sit.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("parsing call args %q: %w", argsText, err)
	}
	root := tree.RootNode()
	if root.NamedChildCount() == 0 {
		tree.Close()
		return nil, nil, nil, nil, fmt.Errorf("empty call")
	}
	stmt := root.NamedChild(0)
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
		tree.Close()
		return nil, nil, nil, nil, fmt.Errorf("malformed call %q", argsText)
	}
	call := stmt.NamedChild(0)
	if call.Type() != "call" {
		tree.Close()
		return nil, nil, nil, nil, fmt.Errorf("expected call, got %s", call.Type())
	}
	argList := call.ChildByFieldName("arguments")
	if argList == nil {
		tree.Close()
		return nil, nil, nil, nil, fmt.Errorf("call has no arguments")
	}

	var positional []*sitter.Node
	kwargs := make(map[string]*sitter.Node)
	for i := 0; i < int(argList.NamedChildCount()); i++ {
		arg := argList.NamedChild(i)
		if arg.Type() == "keyword_argument" {
			nameNode := arg.ChildByFieldName("name")
			valNode := arg.ChildByFieldName("value")
			if nameNode != nil && valNode != nil {
				kwargs[textOf(content, nameNode)] = valNode
			}
			continue
		}
		positional = append(positional, arg)
	}
	return positional, kwargs, content, tree.Close, nil
}

func textOf(content []byte, n *sitter.Node) string {
	return string(content[n.StartByte():n.EndByte()])
}

// dottedNameOf reconstructs "a.b.c" from an identifier/attribute chain
// node, the same way internal/pyast does for decorator names.
func dottedNameOf(content []byte, n *sitter.Node) string {
	switch n.Type() {
	case "identifier":
		return textOf(content, n)
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return textOf(content, n)
		}
		return dottedNameOf(content, obj) + "." + textOf(content, attr)
	default:
		return textOf(content, n)
	}
}

// foldCtx carries the state needed to resolve names against the owning
// module while folding a single expression tree.
type foldCtx struct {
	mod    *pyast.Module
	parser *snippetParser
}

// fold resolves rules 1-4 of spec.md §4.4 against one expression node.
func (c *foldCtx) fold(content []byte, n *sitter.Node) (Value, error) {
	switch n.Type() {
	case "integer":
		return Value{Kind: KindInt, Raw: textOf(content, n)}, nil
	case "float":
		return Value{Kind: KindFloat, Raw: textOf(content, n)}, nil
	case "true":
		return Value{Kind: KindBool, Raw: "True"}, nil
	case "false":
		return Value{Kind: KindBool, Raw: "False"}, nil
	case "none":
		return Value{Kind: KindNone, Raw: "None"}, nil
	case "string":
		return Value{Kind: KindString, Raw: stripPyQuotes(textOf(content, n))}, nil

	case "unary_operator":
		if n.NamedChildCount() == 0 || n.ChildCount() == 0 {
			return Value{}, unresolvable("contains an unsupported unary expression")
		}
		operand := n.NamedChild(n.NamedChildCount() - 1)
		opToken := textOf(content, n.Child(0))
		v, err := c.fold(content, operand)
		if err != nil {
			return Value{}, err
		}
		if (v.Kind == KindInt || v.Kind == KindFloat) && opToken == "-" {
			v.Raw = "-" + v.Raw
			return v, nil
		}
		return Value{}, unresolvable("contains an unsupported unary expression")

	case "list", "tuple", "set":
		kind := KindList
		switch n.Type() {
		case "tuple":
			kind = KindTuple
		case "set":
			kind = KindSet
		}
		items := make([]Value, 0, n.NamedChildCount())
		for i := 0; i < int(n.NamedChildCount()); i++ {
			v, err := c.fold(content, n.NamedChild(i))
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{Kind: kind, Items: items}, nil

	case "identifier":
		name := textOf(content, n)
		rhs, ok := c.mod.Assignments[name]
		if !ok {
			return Value{}, unresolvable("references variable '%s'", name)
		}
		return c.foldSnippet(rhs)

	case "attribute":
		return c.foldAttributeChain(dottedNameOf(content, n))

	case "call":
		fn := n.ChildByFieldName("function")
		name := "<expr>"
		if fn != nil {
			name = dottedNameOf(content, fn)
		}
		return Value{}, unresolvable("contains function call '%s'", name)

	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		return Value{}, unresolvable("contains a comprehension")

	default:
		return Value{}, unresolvable("cannot statically resolve a %s expression", n.Type())
	}
}

// foldSnippet re-parses and folds a raw source fragment (used for
// module/class-level assignment right-hand sides captured as text).
func (c *foldCtx) foldSnippet(text string) (Value, error) {
	expr, content, closeFn, err := c.parser.parseExpr(text)
	if err != nil {
		return Value{}, unresolvable("cannot parse expression %q", text)
	}
	defer closeFn()
	return c.fold(content, expr)
}

// foldAttributeChain implements rule 3: A.B.C resolves by locating a
// top-level class A, then walking nested classes for each intermediate
// segment, and resolving the final segment as a class-body assignment -
// tagged as an enum member if the owning class inherits directly from
// Enum. An intermediate segment that names a class-body assignment
// rather than a nested class does not resolve.
func (c *foldCtx) foldAttributeChain(dotted string) (Value, error) {
	segments := strings.Split(dotted, ".")
	if len(segments) < 2 {
		return Value{}, unresolvable("references variable '%s'", dotted)
	}

	root := findTopLevelClass(c.mod, segments[0])
	if root == nil {
		return Value{}, unresolvable("references unknown class '%s'", segments[0])
	}

	chain := []string{segments[0]}
	for _, seg := range segments[1 : len(segments)-1] {
		nested := findNestedClass(c.mod, chain, seg)
		if nested == nil {
			return Value{}, unresolvable("references unknown attribute chain '%s'", dotted)
		}
		chain = append(chain, seg)
	}

	last := segments[len(segments)-1]
	members := c.mod.EnumMembers[pyast.ClassKey(chain)]
	rhs, ok := members[last]
	if !ok {
		return Value{}, unresolvable("references unknown attribute '%s' on '%s'", last, strings.Join(chain, "."))
	}

	payload, err := c.foldSnippet(rhs)
	if err != nil {
		return Value{}, err
	}

	owner := findNestedClass(c.mod, chain[:len(chain)-1], chain[len(chain)-1])
	if len(chain) == 1 {
		owner = root
	}
	if owner != nil && isDirectEnum(owner) {
		p := payload
		return Value{Kind: KindEnumMember, EnumClass: strings.Join(chain, "."), EnumMember: last, Payload: &p}, nil
	}
	return payload, nil
}

func findTopLevelClass(mod *pyast.Module, name string) *pyast.ClassCandidate {
	for i := range mod.Classes {
		c := &mod.Classes[i]
		if len(c.ClassChain) == 0 && c.Name == name {
			return c
		}
	}
	return nil
}

func findNestedClass(mod *pyast.Module, parentChain []string, name string) *pyast.ClassCandidate {
	for i := range mod.Classes {
		c := &mod.Classes[i]
		if c.Name != name || len(c.ClassChain) != len(parentChain) {
			continue
		}
		match := true
		for j, p := range parentChain {
			if c.ClassChain[j] != p {
				match = false
				break
			}
		}
		if match {
			return c
		}
	}
	return nil
}

func isDirectEnum(c *pyast.ClassCandidate) bool {
	for _, sc := range c.SuperClasses {
		if sc == "Enum" {
			return true
		}
	}
	return false
}

// stripPyQuotes removes a matching leading/trailing Python quote run
// (''' """ ' ") from a string literal's raw source text.
func stripPyQuotes(raw string) string {
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return raw[len(q) : len(raw)-len(q)]
		}
	}
	return raw
}

// displayID returns the compact id fragment for one value, per spec.md
// §4.4 ("42" -> "42", "hello" -> hello, True -> True, aggregates ->
// positional index).
func displayID(v Value, index int) string {
	switch v.Kind {
	case KindEnumMember:
		return v.EnumMember
	case KindList, KindTuple, KindSet:
		return fmt.Sprintf("%d", index)
	default:
		return v.Raw
	}
}
