package callgraph

import (
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"ipa/internal/ir"
	"ipa/internal/scc"
)

// Oracle answers dispatch queries against the class hierarchy.
type Oracle interface {
	VirtualCandidates(class, selector string) ([]ir.FuncID, bool)
	InterfaceCandidates(iface, selector string) ([]ir.FuncID, bool)
	SuperTarget(class, selector string) (ir.FuncID, bool)
}

// methodDropper is implemented by oracles that cache method tables.
type methodDropper interface {
	DropMethod(fn ir.FuncID)
}

// BuildOptions control graph construction.
type BuildOptions struct {
	// ResolveIndirect matches unresolved indirect calls against every
	// address-taken function of a compatible type. When false those sites
	// target the external node.
	ResolveIndirect bool
	// PruneStatic removes uncalled file-static roots and dead static SCCs.
	PruneStatic bool
}

// DefaultBuildOptions enables indirect resolution and pruning.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{ResolveIndirect: true, PruneStatic: true}
}

type dispatchKey struct {
	kind     ir.CallKind
	class    string
	selector string
}

// candidateCache holds the resolved targets of one dispatch query.
type candidateCache struct {
	targets  []NodeID
	complete bool
}

type deferredCall struct {
	caller NodeID
	info   *CallInfo
}

// CallGraph is the module-wide call graph.
type CallGraph struct {
	Module *ir.Module

	oracle Oracle
	opts   BuildOptions

	nodes  []*CGNode // [0] is the external sentinel
	byFunc map[ir.FuncID]NodeID
	roots  []NodeID

	dispatch map[dispatchKey]*candidateCache
	icall    map[int][]NodeID // arity -> compatible address-taken functions
	deferred []deferredCall

	comps    *scc.Result
	compNode []NodeID // dense scc index -> node
	sccs     []*SCC

	reuse map[ir.StmtID]*CallInfo // infos kept across UpdateCallGraphNode

	nextCall uint32
	removed  int
}

func newGraph(m *ir.Module, oracle Oracle, opts BuildOptions) *CallGraph {
	g := &CallGraph{
		Module:   m,
		oracle:   oracle,
		opts:     opts,
		byFunc:   make(map[ir.FuncID]NodeID),
		dispatch: make(map[dispatchKey]*candidateCache),
	}
	g.nodes = append(g.nodes, newNode(ExternalNode, nil))
	return g
}

// Options returns the options the graph was built with.
func (g *CallGraph) Options() BuildOptions { return g.opts }

// External returns the sentinel node.
func (g *CallGraph) External() *CGNode { return g.nodes[ExternalNode] }

// Node returns the node with the given id, or nil when it was deleted.
func (g *CallGraph) Node(id NodeID) *CGNode {
	if int(id) >= len(g.nodes) {
		return nil
	}
	n := g.nodes[id]
	if n.deleted {
		return nil
	}
	return n
}

// NodeOf returns the node of a function, or nil.
func (g *CallGraph) NodeOf(fn ir.FuncID) *CGNode {
	id, ok := g.byFunc[fn]
	if !ok {
		return nil
	}
	return g.Node(id)
}

// Nodes returns every live function node in id order.
func (g *CallGraph) Nodes() []*CGNode {
	out := make([]*CGNode, 0, len(g.nodes))
	for _, n := range g.nodes[1:] {
		if !n.deleted {
			out = append(out, n)
		}
	}
	return out
}

// NumNodes counts live function nodes.
func (g *CallGraph) NumNodes() int { return len(g.byFunc) }

// Roots returns the nodes without callers found by the last FindRootNodes.
func (g *CallGraph) Roots() []NodeID { return g.roots }

// Removed counts the nodes deleted so far.
func (g *CallGraph) Removed() int { return g.removed }

func (g *CallGraph) nodeFor(fn *ir.Func) *CGNode {
	if id, ok := g.byFunc[fn.ID]; ok {
		return g.nodes[id]
	}
	id, err := safecast.Conv[NodeID](len(g.nodes))
	if err != nil {
		panic(fmt.Errorf("callgraph: node id overflow: %w", err))
	}
	n := newNode(id, fn)
	g.nodes = append(g.nodes, n)
	g.byFunc[fn.ID] = id
	return n
}

func (g *CallGraph) nodeForID(id ir.FuncID) *CGNode {
	fn := g.Module.Func(id)
	if fn == nil {
		panic(fmt.Errorf("callgraph: reference to unknown or deleted function %d", id))
	}
	return g.nodeFor(fn)
}

func (g *CallGraph) newCallInfo(kind ir.CallKind, caller NodeID, callee ir.FuncID, s *ir.Stmt, depth int) *CallInfo {
	g.nextCall++
	return &CallInfo{
		ID:           g.nextCall,
		Kind:         kind,
		Caller:       caller,
		Callee:       callee,
		Stmt:         s,
		LoopDepth:    depth,
		AllArgsLocal: allArgsLocal(s),
	}
}

// link adds a site to caller and the matching caller entries to each target.
func (g *CallGraph) link(caller *CGNode, ci *CallInfo, targets []NodeID) *Callsite {
	cs := caller.AddCallsite(ci, targets)
	for _, t := range cs.Targets {
		g.nodes[t].AddCaller(caller.ID, ci.StmtID())
	}
	return cs
}

// unlink removes a site from caller and from its targets' caller sets.
func (g *CallGraph) unlink(caller *CGNode, stmt ir.StmtID) *Callsite {
	cs := caller.RemoveCallsite(stmt)
	if cs == nil {
		return nil
	}
	for _, t := range cs.Targets {
		g.nodes[t].DelCaller(caller.ID, stmt)
	}
	return cs
}

// RemoveCallsite drops the site of stmt from caller and returns its info.
func (g *CallGraph) RemoveCallsite(caller NodeID, stmt ir.StmtID) *CallInfo {
	n := g.Node(caller)
	if n == nil {
		return nil
	}
	cs := g.unlink(n, stmt)
	if cs == nil {
		return nil
	}
	return cs.Info
}

// SetTargets replaces the targets of an existing call site.
func (g *CallGraph) SetTargets(caller NodeID, stmt ir.StmtID, targets []NodeID) {
	n := g.Node(caller)
	if n == nil {
		panic(fmt.Errorf("callgraph: SetTargets on deleted node %d", caller))
	}
	cs := g.unlink(n, stmt)
	if cs == nil {
		panic(fmt.Errorf("callgraph: %s has no call site for stmt %d", n.Name(), stmt))
	}
	g.link(n, cs.Info, targets)
}

// CallsiteTargets returns the targets of a call site, or nil.
func (g *CallGraph) CallsiteTargets(ci *CallInfo) []NodeID {
	n := g.Node(ci.Caller)
	if n == nil {
		return nil
	}
	if cs := n.Callsite(ci.StmtID()); cs != nil {
		return cs.Targets
	}
	return nil
}

// CalleeNode returns the single function target of a site, or nil.
func (g *CallGraph) CalleeNode(ci *CallInfo) *CGNode {
	ts := g.CallsiteTargets(ci)
	if len(ts) != 1 || ts[0] == ExternalNode {
		return nil
	}
	return g.Node(ts[0])
}

// Verify checks that every edge is recorded on both ends.
func (g *CallGraph) Verify() error {
	var errs []error
	for fnID, id := range g.byFunc {
		n := g.nodes[id]
		if n.deleted || n.Func == nil || n.Func.ID != fnID || n.Func.Deleted {
			errs = append(errs, fmt.Errorf("registry entry %d -> node %d is stale", fnID, id))
		}
	}
	for _, n := range g.nodes {
		if n.deleted {
			if _, ok := g.byFunc[n.Func.ID]; ok {
				errs = append(errs, fmt.Errorf("deleted node %s still registered", n.Name()))
			}
			continue
		}
		for _, cs := range n.callsites {
			stmt := cs.Info.StmtID()
			if cs.Info.Caller != n.ID {
				errs = append(errs, fmt.Errorf("%s: site %d names caller %d", n.Name(), stmt, cs.Info.Caller))
			}
			if n.Func != nil && ir.FindStmtByID(n.Func.Body, stmt) == nil {
				errs = append(errs, fmt.Errorf("%s: site %d is not in the body", n.Name(), stmt))
			}
			for _, t := range cs.Targets {
				tn := g.Node(t)
				if tn == nil {
					errs = append(errs, fmt.Errorf("%s: site %d targets deleted node %d", n.Name(), stmt, t))
					continue
				}
				if _, ok := tn.callers[n.ID][stmt]; !ok {
					errs = append(errs, fmt.Errorf("%s: site %d -> %s missing from caller set", n.Name(), stmt, tn.Name()))
				}
			}
		}
		for caller, stmts := range n.callers {
			cn := g.Node(caller)
			if cn == nil {
				errs = append(errs, fmt.Errorf("%s: caller %d is deleted", n.Name(), caller))
				continue
			}
			for stmt := range stmts {
				cs := cn.Callsite(stmt)
				if cs == nil || !slices.Contains(cs.Targets, n.ID) {
					errs = append(errs, fmt.Errorf("%s: caller %s stmt %d has no matching site", n.Name(), cn.Name(), stmt))
				}
			}
		}
		if g.comps != nil && !n.IsExternal() {
			if n.scc < 0 || n.scc >= len(g.comps.Components) {
				errs = append(errs, fmt.Errorf("%s: no component", n.Name()))
			}
		}
	}
	return errors.Join(errs...)
}
