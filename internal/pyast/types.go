package pyast

// Decorator is one decorator applied to a class or function, captured in
// source order. ArgsText is the raw source between the call's parens
// (empty for a bare decorator like "@property"); the semantic analyzer
// (C4) is responsible for parsing it, not this package.
type Decorator struct {
	Name     string // dotted name, e.g. "pytest.mark.parametrize" or "fixture"
	ArgsText string
	Line     int // 1-based
}

// FunctionCandidate is a def (or async def) found anywhere in a module,
// tagged with its enclosing class chain (empty for a module-level
// function). A method is a candidate whose ClassChain is non-empty.
type FunctionCandidate struct {
	Name       string
	ClassChain []string
	Decorators []Decorator
	Line       int
	IsAsync    bool
}

// ClassCandidate is a class definition found anywhere in a module,
// tagged with its enclosing class chain (empty for a top-level class).
type ClassCandidate struct {
	Name         string
	ClassChain   []string
	SuperClasses []string // dotted names from the superclass list, source order
	Decorators   []Decorator
	Line         int
}

// Module is the parsed result of one Python source file: flat lists of
// function and class candidates in source order, plus the raw data the
// semantic analyzer needs to resolve parametrize arguments - module
// level constant assignments and per-class simple member assignments
// (used to resolve Enum-style attribute chains like "Color.RED").
type Module struct {
	Path        string
	Functions   []FunctionCandidate
	Classes     []ClassCandidate
	Assignments map[string]string            // name -> raw RHS source text, module scope only
	EnumMembers map[string]map[string]string // class chain key -> member name -> raw RHS source text
}

// ClassKey joins a class chain into the key used in Module.EnumMembers.
func ClassKey(chain []string) string {
	out := chain[0]
	for _, c := range chain[1:] {
		out += "::" + c
	}
	return out
}
