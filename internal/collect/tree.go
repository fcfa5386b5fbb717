package collect

import (
	"fmt"
	"sort"

	"rtest/internal/logging"
)

// Tree materializes a flat nodeid stream into Session -> Module[] ->
// (Class[] -> Function[]) | Function[], per spec.md §4.6. It also
// supports re-flattening to the canonical ordered listing and an
// optional nodeid -> node lookup index.
type Tree struct {
	Session *Session
	Modules []*CollectionNode

	index map[Nodeid]*CollectionNode
}

// Build materializes a Tree from an ordered flat nodeid list. Order is
// preserved: modules/classes/functions appear in first-seen order,
// matching the deterministic discovery order spec.md §5 requires.
func Build(session *Session, ids []Nodeid) (*Tree, error) {
	t := &Tree{Session: session, index: make(map[Nodeid]*CollectionNode, len(ids))}

	modulesByPath := make(map[string]*CollectionNode)
	classesByKey := make(map[string]*CollectionNode) // modulePath + "::" + chain

	for _, id := range ids {
		parsed, err := Parse(id)
		if err != nil {
			return nil, fmt.Errorf("materializing tree: %w", err)
		}

		module, ok := modulesByPath[parsed.Path]
		if !ok {
			module = &CollectionNode{
				Kind:    KindModule,
				Name:    parsed.Path,
				RelPath: parsed.Path,
				Session: session,
			}
			modulesByPath[parsed.Path] = module
			t.Modules = append(t.Modules, module)
		}

		parent := module
		prefix := parsed.Path
		for _, className := range parsed.ClassChain {
			prefix += "::" + className
			cls, ok := classesByKey[prefix]
			if !ok {
				cls = &CollectionNode{
					Kind:    KindClass,
					Name:    className,
					Parent:  parent,
					Session: session,
				}
				classesByKey[prefix] = cls
				parent.Children = append(parent.Children, cls)
			}
			parent = cls
		}

		fn := &CollectionNode{
			Kind:    KindFunction,
			Name:    parsed.Function,
			ParamID: parsed.ParamID,
			Parent:  parent,
			Session: session,
		}
		parent.Children = append(parent.Children, fn)

		got := fn.Nodeid()
		if got != id {
			return nil, fmt.Errorf("nodeid round-trip mismatch: built %q, want %q", got, id)
		}
		if _, dup := t.index[got]; dup {
			return nil, fmt.Errorf("duplicate nodeid: %q", got)
		}
		t.index[got] = fn
	}

	logging.CollectDebug("materialized tree: %d modules, %d nodeids", len(t.Modules), len(t.index))
	return t, nil
}

// Flatten re-serializes the tree into the canonical ordered nodeid
// listing (source order within each module, modules in first-seen
// order - spec.md §4.6's "canonical flat listing" consumer).
func (t *Tree) Flatten() []Nodeid {
	var out []Nodeid
	for _, module := range t.Modules {
		flattenNode(module, &out)
	}
	return out
}

func flattenNode(n *CollectionNode, out *[]Nodeid) {
	if n.Kind == KindFunction {
		*out = append(*out, n.Nodeid())
		return
	}
	for _, child := range n.Children {
		flattenNode(child, out)
	}
}

// Lookup resolves a nodeid to its Function node, spec.md §4.6's
// "structured query" consumer.
func (t *Tree) Lookup(id Nodeid) (*CollectionNode, bool) {
	n, ok := t.index[id]
	return n, ok
}

// SortedModulePaths returns the distinct module relative paths present
// in the tree, lexicographically sorted - useful for deterministic
// iteration in callers that don't care about discovery order.
func (t *Tree) SortedModulePaths() []string {
	paths := make([]string, 0, len(t.Modules))
	for _, m := range t.Modules {
		paths = append(paths, m.RelPath)
	}
	sort.Strings(paths)
	return paths
}
