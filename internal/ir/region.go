package ir

import "fmt"

// Region is a side table whose entries share one lifetime. After Release any
// access panics.
type Region[K comparable, V any] struct {
	name     string
	entries  map[K]V
	released bool
}

// NewRegion returns an empty region.
func NewRegion[K comparable, V any](name string) *Region[K, V] {
	return &Region[K, V]{name: name, entries: make(map[K]V)}
}

func (r *Region[K, V]) check() {
	if r.released {
		panic(fmt.Sprintf("ir: region %q used after release", r.name))
	}
}

// Put stores v under k.
func (r *Region[K, V]) Put(k K, v V) {
	r.check()
	r.entries[k] = v
}

// Get returns the entry for k.
func (r *Region[K, V]) Get(k K) (V, bool) {
	r.check()
	v, ok := r.entries[k]
	return v, ok
}

// Delete drops the entry for k.
func (r *Region[K, V]) Delete(k K) {
	r.check()
	delete(r.entries, k)
}

// Len returns the number of entries.
func (r *Region[K, V]) Len() int {
	r.check()
	return len(r.entries)
}

// Range calls fn for each entry until fn returns false. Order is unspecified.
func (r *Region[K, V]) Range(fn func(K, V) bool) {
	r.check()
	for k, v := range r.entries {
		if !fn(k, v) {
			return
		}
	}
}

// Release drops every entry. Further use panics.
func (r *Region[K, V]) Release() {
	r.check()
	r.entries = nil
	r.released = true
}

// Released reports whether Release was called.
func (r *Region[K, V]) Released() bool { return r.released }
