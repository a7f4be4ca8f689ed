package selectors

import "reflect"

// CacheObserver receives memoization cache outcomes. Implemented by the
// monitoring collector; all selectors tolerate a nil observer.
type CacheObserver interface {
	RecordSelectorHit(selector string)
	RecordSelectorMiss(selector string)
}

// memoCell caches the last output of a selector together with the
// dependency references it was computed from. A cell recomputes only
// when one of the declared dependencies changed identity, so a selector
// returns the exact same output value for reference-equal inputs.
//
// Cells are per selector instance and are not safe for concurrent use;
// derivation runs on the single render goroutine.
type memoCell[T any] struct {
	name     string
	observer CacheObserver
	deps     []any
	out      T
	valid    bool
}

func newMemoCell[T any](name string, observer CacheObserver) *memoCell[T] {
	return &memoCell[T]{name: name, observer: observer}
}

func (c *memoCell[T]) get(deps []any, compute func() T) T {
	if c.valid && sameDeps(c.deps, deps) {
		if c.observer != nil {
			c.observer.RecordSelectorHit(c.name)
		}
		return c.out
	}
	if c.observer != nil {
		c.observer.RecordSelectorMiss(c.name)
	}
	c.deps = deps
	c.out = compute()
	c.valid = true
	return c.out
}

func sameDeps(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !refEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// refEqual compares two dependency values by identity. Maps and slices
// compare by header pointer, everything else by ordinary equality.
// Dependencies must be pointers, maps, slices or comparable values.
func refEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != vb.Kind() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return a == b
	}
}
