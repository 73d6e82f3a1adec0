package exec

import (
	"slices"

	"github.com/gomlx/exceptions"
)

// Env is an ordered, push-only store of runtime values referenced by
// positional (de Bruijn) index: index 0 is the most recently pushed value.
//
// A child scope is formed by Push, never by mutation; the zero value is the
// empty environment. Each evaluation frame exclusively owns the
// environments it creates and drops them when it returns.
type Env struct {
	values []any
}

// Push returns a new scope one value longer, with v at index 0. The
// receiver is unchanged and remains valid.
func (e Env) Push(v any) Env {
	// Clip so sibling scopes never overwrite each other's extension.
	return Env{values: append(slices.Clip(e.values), v)}
}

// Lookup returns the value at the given index, 0 being the innermost
// binding. An out-of-range index means the tree referenced a binding that
// was never pushed: a malformed tree, not a runtime user error.
func (e Env) Lookup(index int) any {
	if index < 0 || index >= len(e.values) {
		exceptions.Panicf("environment lookup of index %d in a scope of %d values: malformed tree", index, len(e.values))
	}
	return e.values[len(e.values)-1-index]
}

// Len returns the number of values in scope.
func (e Env) Len() int { return len(e.values) }
