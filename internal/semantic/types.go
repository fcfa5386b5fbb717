// Package semantic implements the semantic analyzer (C4): it resolves
// parametrize decorator arguments to concrete values when statically
// determinable, and expands stacked decorators into a Cartesian product
// of nodeid-ready parameter rows.
package semantic

import "fmt"

// ValueKind tags the shape of a resolved Python expression.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindString
	KindBool
	KindNone
	KindList
	KindTuple
	KindSet
	KindEnumMember
)

// Value is a statically resolved Python value. Raw carries the compact
// display form used for id generation (spec.md §4.4): unquoted text for
// scalars, unused for aggregates (their Items are used instead).
type Value struct {
	Kind       ValueKind
	Raw        string
	Items      []Value
	EnumClass  string
	EnumMember string
	Payload    *Value // the wrapped literal, for KindEnumMember
}

// ParametrizationSpec is the fully resolved, expanded result of a
// function's (possibly stacked) parametrize decorators.
type ParametrizationSpec struct {
	ArgNames  []string
	ArgValues [][]Value
	IDs       []string
}

// UnresolvableError reports why a decorator argument could not be
// statically resolved. It carries the precise reason text spec.md §4.4
// requires in the resulting SemanticWarning.
type UnresolvableError struct {
	Reason string
}

func (e *UnresolvableError) Error() string { return e.Reason }

func unresolvable(format string, args ...interface{}) error {
	return &UnresolvableError{Reason: fmt.Sprintf(format, args...)}
}

// IDsLengthError reports that an explicit `ids=` keyword's length did
// not match the number of expanded value rows. Per spec.md §8 this is a
// harder failure than an ordinary SemanticWarning: the function is not
// collected at all, though sibling functions in the module are
// unaffected.
type IDsLengthError struct {
	Got, Want int
}

func (e *IDsLengthError) Error() string {
	return fmt.Sprintf("ids has length %d, want %d", e.Got, e.Want)
}
