package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// visitor walks a tree-sitter Python tree and populates a Module. It
// mirrors the teacher's PythonCodeParser.walkNode shape (class/function/
// decorated_definition/default-recurse), generalized to also track the
// enclosing class chain and to capture top-level and class-body simple
// assignments for the semantic analyzer.
type visitor struct {
	content []byte
	mod     *Module
}

// walkBlock visits every named child of a block-like node (module body
// or a class/function body), dispatching on node type.
func (v *visitor) walkBlock(node *sitter.Node, classChain []string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "class_definition":
			v.visitClass(child, nil, classChain)

		case "function_definition":
			v.visitFunction(child, nil, classChain)

		case "decorated_definition":
			v.visitDecorated(child, classChain)

		case "expression_statement":
			v.visitTopLevelAssignment(child, classChain)

		default:
			// Descend into other compound statements (if/try/with at
			// module scope, etc.) so nested defs are still found, but
			// without adding anything to classChain.
			v.walkBlock(child, classChain)
		}
	}
}

func (v *visitor) visitDecorated(node *sitter.Node, classChain []string) {
	var decorators []Decorator
	var inner *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "decorator":
			decorators = append(decorators, v.parseDecorator(child))
		case "function_definition", "class_definition":
			inner = child
		}
	}
	if inner == nil {
		return
	}
	switch inner.Type() {
	case "function_definition":
		v.visitFunction(inner, decorators, classChain)
	case "class_definition":
		v.visitClass(inner, decorators, classChain)
	}
}

func (v *visitor) parseDecorator(node *sitter.Node) Decorator {
	line := int(node.StartPoint().Row) + 1
	if node.NamedChildCount() == 0 {
		return Decorator{Line: line}
	}
	expr := node.NamedChild(0)

	if expr.Type() == "call" {
		fn := expr.ChildByFieldName("function")
		args := expr.ChildByFieldName("arguments")
		name := ""
		if fn != nil {
			name = v.dottedName(fn)
		}
		argsText := ""
		if args != nil {
			argsText = v.text(args)
			argsText = strings.TrimSuffix(strings.TrimPrefix(argsText, "("), ")")
		}
		return Decorator{Name: name, ArgsText: argsText, Line: line}
	}

	return Decorator{Name: v.dottedName(expr), Line: line}
}

// dottedName reconstructs "a.b.c" from an identifier or attribute chain.
func (v *visitor) dottedName(n *sitter.Node) string {
	switch n.Type() {
	case "identifier":
		return v.text(n)
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return v.text(n)
		}
		return v.dottedName(obj) + "." + v.text(attr)
	default:
		return v.text(n)
	}
}

func (v *visitor) visitClass(node *sitter.Node, decorators []Decorator, classChain []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := v.text(nameNode)
	line := int(node.StartPoint().Row) + 1

	var superclasses []string
	if argList := node.ChildByFieldName("superclasses"); argList != nil {
		for i := 0; i < int(argList.NamedChildCount()); i++ {
			superclasses = append(superclasses, v.dottedName(argList.NamedChild(i)))
		}
	}

	v.mod.Classes = append(v.mod.Classes, ClassCandidate{
		Name:         name,
		ClassChain:   append([]string(nil), classChain...),
		SuperClasses: superclasses,
		Decorators:   decorators,
		Line:         line,
	})

	childChain := append(append([]string(nil), classChain...), name)
	members := make(map[string]string)

	body := node.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			stmt := body.NamedChild(i)
			if stmt.Type() != "expression_statement" {
				continue
			}
			if name, value, ok := simpleAssignment(stmt, v.content); ok {
				members[name] = value
			}
		}
		v.walkBlock(body, childChain)
	}

	v.mod.EnumMembers[ClassKey(childChain)] = members
}

func (v *visitor) visitFunction(node *sitter.Node, decorators []Decorator, classChain []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := v.text(nameNode)
	line := int(node.StartPoint().Row) + 1
	isAsync := strings.HasPrefix(v.text(node), "async ")

	v.mod.Functions = append(v.mod.Functions, FunctionCandidate{
		Name:       name,
		ClassChain: append([]string(nil), classChain...),
		Decorators: decorators,
		Line:       line,
		IsAsync:    isAsync,
	})
	// Function bodies are not walked for nested defs: pytest does not
	// collect closures, and neither does this.
}

func (v *visitor) visitTopLevelAssignment(node *sitter.Node, classChain []string) {
	if len(classChain) != 0 {
		return // only module-level constants feed Assignments
	}
	if name, value, ok := simpleAssignment(node, v.content); ok {
		v.mod.Assignments[name] = value
	}
}

// simpleAssignment recognizes "NAME = <expr>" (not augmented, not
// tuple/subscript/attribute targets) and returns the target name and
// the raw RHS source text.
func simpleAssignment(exprStmt *sitter.Node, content []byte) (string, string, bool) {
	if exprStmt.NamedChildCount() == 0 {
		return "", "", false
	}
	assign := exprStmt.NamedChild(0)
	if assign.Type() != "assignment" {
		return "", "", false
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return "", "", false
	}
	return string(content[left.StartByte():left.EndByte()]), string(content[right.StartByte():right.EndByte()]), true
}

func (v *visitor) text(n *sitter.Node) string {
	return string(v.content[n.StartByte():n.EndByte()])
}
