package callgraph

import (
	"fmt"
	"maps"
	"slices"

	"ipa/internal/ir"
)

// NodeID indexes the node vector of a CallGraph.
type NodeID uint32

// ExternalNode is the sentinel standing for unknown or external callees.
const ExternalNode NodeID = 0

// Callsite is one call statement of a node with its resolved targets.
type Callsite struct {
	Info    *CallInfo
	Targets []NodeID // ascending, no duplicates
}

// CGNode is a function in the call graph.
type CGNode struct {
	ID   NodeID
	Func *ir.Func // nil for the external sentinel

	callsites []*Callsite
	callers   map[NodeID]map[ir.StmtID]struct{}

	AddrTaken bool
	NumRefs   int // function-address references seen so far
	StmtCount int

	InlinedTimes   int
	RecursionLevel int
	OriginBody     *ir.Block // body before the first self-recursive inline
	MustNotInline  bool

	scc     int // component id, -1 when unknown
	deleted bool
}

func newNode(id NodeID, fn *ir.Func) *CGNode {
	return &CGNode{
		ID:      id,
		Func:    fn,
		callers: make(map[NodeID]map[ir.StmtID]struct{}),
		scc:     -1,
	}
}

// Name returns the function name or "<external>".
func (n *CGNode) Name() string {
	if n.Func == nil {
		return "<external>"
	}
	return n.Func.Name
}

// IsExternal reports whether n is the external sentinel.
func (n *CGNode) IsExternal() bool { return n.ID == ExternalNode }

// Deleted reports whether the node was removed from the graph.
func (n *CGNode) Deleted() bool { return n.deleted }

// HasBody reports whether the function has a definition.
func (n *CGNode) HasBody() bool { return n.Func != nil && n.Func.Body != nil }

// Callsites returns the call sites in discovery order.
func (n *CGNode) Callsites() []*Callsite { return n.callsites }

// Callsite finds the site issued by the given statement.
func (n *CGNode) Callsite(stmt ir.StmtID) *Callsite {
	for _, cs := range n.callsites {
		if cs.Info.StmtID() == stmt {
			return cs
		}
	}
	return nil
}

// AddCallsite records a call site of n. The callee side of each edge is
// updated by the graph, not here.
func (n *CGNode) AddCallsite(ci *CallInfo, targets []NodeID) *Callsite {
	if n.Callsite(ci.StmtID()) != nil {
		panic(fmt.Errorf("callgraph: %s already has a call site for stmt %d", n.Name(), ci.StmtID()))
	}
	ts := slices.Clone(targets)
	slices.Sort(ts)
	cs := &Callsite{Info: ci, Targets: slices.Compact(ts)}
	n.callsites = append(n.callsites, cs)
	return cs
}

// RemoveCallsite drops the site of the given statement and returns it.
func (n *CGNode) RemoveCallsite(stmt ir.StmtID) *Callsite {
	for i, cs := range n.callsites {
		if cs.Info.StmtID() == stmt {
			n.callsites = slices.Delete(n.callsites, i, i+1)
			return cs
		}
	}
	return nil
}

// AddCaller records that caller calls n from stmt.
func (n *CGNode) AddCaller(caller NodeID, stmt ir.StmtID) {
	set, ok := n.callers[caller]
	if !ok {
		set = make(map[ir.StmtID]struct{})
		n.callers[caller] = set
	}
	set[stmt] = struct{}{}
}

// DelCaller forgets one call statement of caller.
func (n *CGNode) DelCaller(caller NodeID, stmt ir.StmtID) {
	set, ok := n.callers[caller]
	if !ok {
		return
	}
	delete(set, stmt)
	if len(set) == 0 {
		delete(n.callers, caller)
	}
}

// HasCaller reports whether any live site targets n.
func (n *CGNode) HasCaller() bool { return len(n.callers) > 0 }

// NumCallSites counts the statements that call n.
func (n *CGNode) NumCallSites() int {
	total := 0
	for _, set := range n.callers {
		total += len(set)
	}
	return total
}

// IsCalleeOf reports whether caller has a site targeting n.
func (n *CGNode) IsCalleeOf(caller NodeID) bool {
	_, ok := n.callers[caller]
	return ok
}

// Callers returns the calling nodes in ascending order.
func (n *CGNode) Callers() []NodeID {
	return slices.Sorted(maps.Keys(n.callers))
}

// CallerStmts returns the statements of caller that target n, ascending.
func (n *CGNode) CallerStmts(caller NodeID) []ir.StmtID {
	return slices.Sorted(maps.Keys(n.callers[caller]))
}

// Callees returns the distinct targets of n's call sites in ascending order.
func (n *CGNode) Callees() []NodeID {
	var out []NodeID
	for _, cs := range n.callsites {
		out = append(out, cs.Targets...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Calls reports whether some site of n targets callee.
func (n *CGNode) Calls(callee NodeID) bool {
	for _, cs := range n.callsites {
		if slices.Contains(cs.Targets, callee) {
			return true
		}
	}
	return false
}

// SCC returns the id of n's component, or -1 before components are built.
func (n *CGNode) SCC() int { return n.scc }
