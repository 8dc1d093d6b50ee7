// Package scc computes strongly connected components of a directed graph
// over dense integer node ids and orders them topologically.
package scc

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Component is one strongly connected component.
type Component struct {
	ID      int
	Members []int // ascending node ids
	InSCC   []int // ids of components with an edge into this one, ascending
	OutSCC  []int // ids of components this one has an edge into, ascending

	selfLoop bool
}

// HasRecursion reports whether the component is a cycle: several members,
// or one member that calls itself.
func (c *Component) HasRecursion() bool {
	return len(c.Members) > 1 || c.selfLoop
}

// HasSelfRecursion reports whether the component is a single self-calling
// node.
func (c *Component) HasSelfRecursion() bool {
	return len(c.Members) == 1 && c.selfLoop
}

// HasInSCC reports whether any other component calls into this one.
func (c *Component) HasInSCC() bool { return len(c.InSCC) > 0 }

// RemoveInSCC drops a caller component, used when that caller is pruned.
func (c *Component) RemoveInSCC(id int) {
	c.InSCC = slices.DeleteFunc(c.InSCC, func(x int) bool { return x == id })
}

// RemoveOutSCC drops a callee component.
func (c *Component) RemoveOutSCC(id int) {
	c.OutSCC = slices.DeleteFunc(c.OutSCC, func(x int) bool { return x == id })
}

// Result holds the partition and its topological order.
type Result struct {
	Components []*Component // indexed by Component.ID
	CompOf     []int        // node -> component id
	TopVec     []*Component // callers before callees
	Batches    [][]int      // Kahn waves of component ids
}

// Of returns the component containing node v.
func (r *Result) Of(v int) *Component { return r.Components[r.CompOf[v]] }

// Build runs Tarjan's algorithm over nodes 0..n-1. Depth-first searches start
// from roots in the given order, then from every node still unvisited, so
// cycles unreachable from any root are still found. succs must return
// successors in insertion order; it may contain duplicates.
func Build(n int, roots []int, succs func(v int) []int) *Result {
	t := &tarjan{
		succs:   succs,
		index:   make([]int, n),
		low:     make([]int, n),
		onStack: make([]bool, n),
		compOf:  make([]int, n),
	}
	for _, r := range roots {
		if t.index[r] == 0 {
			t.visit(r)
		}
	}
	for v := range n {
		if t.index[v] == 0 {
			t.visit(v)
		}
	}
	res := &Result{Components: t.comps, CompOf: t.compOf}
	res.link(n, succs)
	res.order()
	return res
}

type tarjan struct {
	succs   func(int) []int
	index   []int // discovery order, 1-based; 0 means unvisited
	low     []int
	onStack []bool
	stack   []int
	next    int
	comps   []*Component
	compOf  []int
}

type dfsFrame struct {
	v     int
	succs []int
	i     int
}

func (t *tarjan) discover(v int) dfsFrame {
	t.next++
	t.index[v] = t.next
	t.low[v] = t.next
	t.stack = append(t.stack, v)
	t.onStack[v] = true
	return dfsFrame{v: v, succs: t.succs(v)}
}

func (t *tarjan) visit(root int) {
	call := []dfsFrame{t.discover(root)}
	for len(call) > 0 {
		top := &call[len(call)-1]
		if top.i < len(top.succs) {
			w := top.succs[top.i]
			top.i++
			switch {
			case t.index[w] == 0:
				call = append(call, t.discover(w))
			case t.onStack[w]:
				t.low[top.v] = min(t.low[top.v], t.index[w])
			}
			continue
		}
		v := top.v
		call = call[:len(call)-1]
		if len(call) > 0 {
			parent := call[len(call)-1].v
			t.low[parent] = min(t.low[parent], t.low[v])
		}
		if t.low[v] == t.index[v] {
			t.pop(v)
		}
	}
}

func (t *tarjan) pop(v int) {
	c := &Component{ID: len(t.comps)}
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		t.compOf[w] = c.ID
		c.Members = append(c.Members, w)
		if w == v {
			break
		}
	}
	slices.Sort(c.Members)
	t.comps = append(t.comps, c)
}

func (r *Result) link(n int, succs func(int) []int) {
	in := make([]map[int]struct{}, len(r.Components))
	out := make([]map[int]struct{}, len(r.Components))
	for v := range n {
		cv := r.CompOf[v]
		for _, w := range succs(v) {
			cw := r.CompOf[w]
			if cv == cw {
				if v == w {
					r.Components[cv].selfLoop = true
				}
				continue
			}
			if out[cv] == nil {
				out[cv] = make(map[int]struct{})
			}
			if in[cw] == nil {
				in[cw] = make(map[int]struct{})
			}
			out[cv][cw] = struct{}{}
			in[cw][cv] = struct{}{}
		}
	}
	for id, c := range r.Components {
		c.InSCC = sortedKeys(in[id])
		c.OutSCC = sortedKeys(out[id])
	}
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// order is Kahn's algorithm over the component graph, one wave at a time,
// each wave sorted by component id.
func (r *Result) order() {
	indeg := make([]int, len(r.Components))
	current := make([]int, 0)
	for id, c := range r.Components {
		indeg[id] = len(c.InSCC)
		if indeg[id] == 0 {
			current = append(current, id)
		}
	}
	r.TopVec = make([]*Component, 0, len(r.Components))
	for len(current) > 0 {
		batch := slices.Clone(current)
		r.Batches = append(r.Batches, batch)
		var next []int
		for _, id := range batch {
			c := r.Components[id]
			r.TopVec = append(r.TopVec, c)
			for _, to := range c.OutSCC {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
	if len(r.TopVec) != len(r.Components) {
		panic(fmt.Errorf("scc: component graph is cyclic (%d of %d ordered)", len(r.TopVec), len(r.Components)))
	}
}

// Index converts a dense node index to a typed id, panicking on overflow.
func Index[T ~uint32](v int) T {
	id, err := safecast.Conv[T](v)
	if err != nil {
		panic(fmt.Errorf("scc: node index overflow: %w", err))
	}
	return id
}
