// Package symbols implements the scoped symbol table used for macro and
// template names.
//
// Save is cheap: it pushes an empty layer that shares every existing
// binding. Writes always go to the top layer, so bindings made before a Save
// are never copied or modified by code running inside the saved scope, and
// Restore simply drops the top layer.
package symbols

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aledsdavies/quire/core/invariant"
)

// layer holds the bindings written in one scope.
type layer[V any] struct {
	bindings map[string]V
}

// Table maps names to values with save/restore scoping.
type Table[V any] struct {
	layers []layer[V]
}

// New creates a table with a single root scope.
func New[V any]() *Table[V] {
	return &Table[V]{layers: []layer[V]{{}}}
}

// Add binds name in the current scope, shadowing any outer binding.
func (t *Table[V]) Add(name string, value V) {
	top := &t.layers[len(t.layers)-1]
	if top.bindings == nil {
		top.bindings = make(map[string]V)
	}
	top.bindings[name] = value
}

// Find returns the innermost binding for name.
func (t *Table[V]) Find(name string) (V, bool) {
	for i := len(t.layers) - 1; i >= 0; i-- {
		if v, ok := t.layers[i].bindings[name]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Save opens a new scope.
func (t *Table[V]) Save() {
	t.layers = append(t.layers, layer[V]{})
}

// Restore discards every binding made since the matching Save.
func (t *Table[V]) Restore() {
	invariant.Precondition(len(t.layers) > 1, "symbol table restore without matching save")
	t.layers[len(t.layers)-1] = layer[V]{}
	t.layers = t.layers[:len(t.layers)-1]
}

// Depth returns the number of open saves.
func (t *Table[V]) Depth() int {
	return len(t.layers) - 1
}

// Names returns every visible name, sorted.
func (t *Table[V]) Names() []string {
	seen := make(map[string]struct{})
	for _, l := range t.layers {
		for name := range l.bindings {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot flattens the visible bindings into a new map.
func (t *Table[V]) Snapshot() map[string]V {
	out := make(map[string]V)
	for _, l := range t.layers {
		for name, v := range l.bindings {
			out[name] = v
		}
	}
	return out
}

// Suggest returns the visible name closest to name, or "" when nothing is
// similar enough.
func (t *Table[V]) Suggest(name string) string {
	names := t.Names()
	if len(names) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) == 0 {
		// No name contains the query as a subsequence; try the other way
		// round so "header2" still finds "header".
		for _, candidate := range names {
			if fuzzy.MatchFold(candidate, name) {
				return candidate
			}
		}
		return ""
	}
	sort.Stable(ranks)
	return ranks[0].Target
}
