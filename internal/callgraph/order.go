package callgraph

import (
	"cmp"
	"slices"

	"ipa/internal/ir"
	"ipa/internal/scc"
)

// SCC is a strongly connected component of the call graph.
type SCC struct {
	comp  *scc.Component
	nodes []NodeID
	g     *CallGraph
}

// ID returns the component id.
func (s *SCC) ID() int { return s.comp.ID }

// Nodes returns the live members in ascending order.
func (s *SCC) Nodes() []NodeID {
	return slices.DeleteFunc(slices.Clone(s.nodes), func(id NodeID) bool { return s.g.nodes[id].deleted })
}

// HasRecursion reports whether the members call each other or one calls itself.
func (s *SCC) HasRecursion() bool { return s.comp.HasRecursion() }

// HasSelfRecursion reports whether the component is one self-calling node.
func (s *SCC) HasSelfRecursion() bool { return s.comp.HasSelfRecursion() }

// HasInSCC reports whether another component calls into this one.
func (s *SCC) HasInSCC() bool { return s.comp.HasInSCC() }

// InSCC returns the caller component ids.
func (s *SCC) InSCC() []int { return s.comp.InSCC }

// OutSCC returns the callee component ids.
func (s *SCC) OutSCC() []int { return s.comp.OutSCC }

// BuildSCC partitions the live nodes into components. Searches start from the
// current roots and then sweep every remaining node.
func (g *CallGraph) BuildSCC() {
	live := g.Nodes()
	index := make(map[NodeID]int, len(live))
	g.compNode = g.compNode[:0]
	for i, n := range live {
		index[n.ID] = i
		g.compNode = append(g.compNode, n.ID)
	}
	roots := make([]int, 0, len(g.roots))
	for _, id := range g.roots {
		if i, ok := index[id]; ok {
			roots = append(roots, i)
		}
	}
	succs := func(v int) []int {
		var out []int
		for _, cs := range g.nodes[g.compNode[v]].callsites {
			for _, t := range cs.Targets {
				if i, ok := index[t]; ok {
					out = append(out, i)
				}
			}
		}
		return out
	}
	g.comps = scc.Build(len(live), roots, succs)

	for _, n := range g.nodes {
		n.scc = -1
	}
	for v, id := range g.compNode {
		g.nodes[id].scc = g.comps.CompOf[v]
	}
	g.sccs = make([]*SCC, len(g.comps.Components))
	for i, c := range g.comps.Components {
		s := &SCC{comp: c, g: g}
		for _, v := range c.Members {
			s.nodes = append(s.nodes, g.compNode[v])
		}
		g.sccs[i] = s
	}
}

// RecomputeSCC refreshes roots and components after the graph changed.
func (g *CallGraph) RecomputeSCC() {
	g.FindRootNodes()
	g.BuildSCC()
}

// SCCs returns every component by id, or nil before BuildSCC.
func (g *CallGraph) SCCs() []*SCC { return g.sccs }

// SCCOf returns the component of a function, or nil.
func (g *CallGraph) SCCOf(fn ir.FuncID) *SCC {
	n := g.NodeOf(fn)
	if n == nil || n.scc < 0 || n.scc >= len(g.sccs) {
		return nil
	}
	return g.sccs[n.scc]
}

// TopVec returns the components in topological order, callers first.
func (g *CallGraph) TopVec() []*SCC {
	if g.comps == nil {
		return nil
	}
	out := make([]*SCC, 0, len(g.comps.TopVec))
	for _, c := range g.comps.TopVec {
		out = append(out, g.sccs[c.ID])
	}
	return out
}

// compareNodes orders the members of one component: a node that calls the
// other without being called back goes after it, otherwise by id.
func compareNodes(a, b *CGNode) int {
	ab, ba := a.Calls(b.ID), b.Calls(a.ID)
	switch {
	case ab && !ba:
		return 1
	case ba && !ab:
		return -1
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}

// CompilationOrder returns the functions bottom-up: components in reverse
// topological order, and inside a component direct callees first.
func (g *CallGraph) CompilationOrder() []ir.FuncID {
	if g.comps == nil {
		g.RecomputeSCC()
	}
	top := g.TopVec()
	out := make([]ir.FuncID, 0, g.NumNodes())
	for i := len(top) - 1; i >= 0; i-- {
		var members []*CGNode
		for _, id := range top[i].Nodes() {
			members = append(members, g.nodes[id])
		}
		slices.SortStableFunc(members, compareNodes)
		for _, n := range members {
			out = append(out, n.Func.ID)
		}
	}
	return out
}

// SetCompilationFunclist stores the bottom-up order in the module.
func (g *CallGraph) SetCompilationFunclist() {
	g.Module.FuncList = g.CompilationOrder()
}
