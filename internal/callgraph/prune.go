package callgraph

import (
	"fmt"
	"slices"
)

// FindRootNodes recomputes the set of nodes without callers.
func (g *CallGraph) FindRootNodes() []NodeID {
	g.roots = g.roots[:0]
	for _, n := range g.Nodes() {
		if !n.HasCaller() {
			g.roots = append(g.roots, n.ID)
		}
	}
	return g.roots
}

// removable reports whether an uncalled node can be dropped: nothing takes its
// address and it is either file-static or an inline definition that is not
// extern.
func removable(n *CGNode) bool {
	if n.IsExternal() || n.deleted || n.HasCaller() || n.AddrTaken {
		return false
	}
	fn := n.Func
	return fn.IsStatic() || (fn.IsInline() && !fn.IsExtern())
}

func (g *CallGraph) sameSCC(a, b NodeID) bool {
	if g.comps == nil {
		return false
	}
	na, nb := g.nodes[a], g.nodes[b]
	return na.scc >= 0 && na.scc == nb.scc
}

// DelNode removes n and its function. Callees left without callers that are
// themselves removable are deleted recursively. n may only be called by
// itself or by members of its own component, which must be deleted as well.
func (g *CallGraph) DelNode(n *CGNode) {
	if n.deleted {
		return
	}
	if n.IsExternal() {
		panic(fmt.Errorf("callgraph: cannot delete the external node"))
	}
	for _, c := range n.Callers() {
		if c != n.ID && !g.sameSCC(c, n.ID) {
			panic(fmt.Errorf("callgraph: deleting %s still called by %s", n.Name(), g.nodes[c].Name()))
		}
	}
	n.deleted = true
	g.removed++

	for _, cs := range slices.Clone(n.callsites) {
		g.unlink(n, cs.Info.StmtID())
		for _, t := range cs.Targets {
			if tn := g.nodes[t]; removable(tn) {
				g.DelNode(tn)
			}
		}
	}
	for caller, stmts := range n.callers {
		cn := g.nodes[caller]
		for stmt := range stmts {
			if cs := cn.Callsite(stmt); cs != nil {
				cs.Targets = slices.DeleteFunc(cs.Targets, func(t NodeID) bool { return t == n.ID })
			}
		}
	}
	clear(n.callers)

	if d, ok := g.oracle.(methodDropper); ok {
		d.DropMethod(n.Func.ID)
	}
	g.Module.DeleteFunc(n.Func.ID)
	delete(g.byFunc, n.Func.ID)
	g.roots = slices.DeleteFunc(g.roots, func(id NodeID) bool { return id == n.ID })
	clear(g.dispatch)
	g.icall = nil
}

// RemoveFileStaticRootNodes deletes uncalled roots that cannot be referenced
// from outside the module and returns the number of nodes removed.
func (g *CallGraph) RemoveFileStaticRootNodes() int {
	before := g.removed
	for _, id := range slices.Clone(g.FindRootNodes()) {
		if n := g.nodes[id]; removable(n) {
			g.DelNode(n)
		}
	}
	g.FindRootNodes()
	return g.removed - before
}

// RemoveFileStaticSCC deletes components that no other component calls and
// whose members are all file-static and never address-taken. Components are
// visited callers first, so a chain of dead components goes in one pass.
func (g *CallGraph) RemoveFileStaticSCC() int {
	if g.comps == nil {
		g.BuildSCC()
	}
	before := g.removed
	for _, c := range g.comps.TopVec {
		if c.HasInSCC() {
			continue
		}
		var members []*CGNode
		for _, v := range c.Members {
			if n := g.nodes[g.compNode[v]]; !n.deleted {
				members = append(members, n)
			}
		}
		dead := true
		for _, n := range members {
			if !n.Func.IsStatic() || n.AddrTaken {
				dead = false
				break
			}
		}
		if !dead {
			continue
		}
		for _, n := range members {
			g.DelNode(n)
		}
		for _, out := range c.OutSCC {
			g.comps.Components[out].RemoveInSCC(c.ID)
		}
	}
	if removed := g.removed - before; removed > 0 {
		g.FindRootNodes()
		g.BuildSCC()
		return removed
	}
	return 0
}
