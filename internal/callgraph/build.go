package callgraph

import (
	"context"
	"fmt"
	"slices"

	"ipa/internal/ir"
	"ipa/internal/trace"
)

// Build constructs the call graph of m in a single pass over every function
// body, resolves deferred indirect calls, prunes dead static functions when
// asked to, computes SCCs and writes the bottom-up order back to m.FuncList.
// Indirect calls through a known constant address are rewritten in place into
// direct calls.
func Build(ctx context.Context, m *ir.Module, oracle Oracle, opts BuildOptions) *CallGraph {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePass, "callgraph", trace.CurrentSpan(ctx).SpanID)

	g := newGraph(m, oracle, opts)
	funcs := m.LiveFuncs()
	for _, fn := range funcs {
		g.nodeFor(fn)
	}
	g.collectGlobalAddrs()
	for _, fn := range funcs {
		g.walkFunc(g.nodeFor(fn))
	}
	g.fixIndirectCalls()
	g.FindRootNodes()

	if opts.PruneStatic {
		n := g.RemoveFileStaticRootNodes()
		trace.Point(tr, trace.ScopeModule, "callgraph.prune_roots", span.ID(), fmt.Sprintf("removed=%d", n))
	}
	g.BuildSCC()
	if opts.PruneStatic {
		n := g.RemoveFileStaticSCC()
		trace.Point(tr, trace.ScopeModule, "callgraph.prune_scc", span.ID(), fmt.Sprintf("removed=%d", n))
	}
	g.SetCompilationFunclist()

	span.End(fmt.Sprintf("nodes=%d sccs=%d removed=%d", g.NumNodes(), len(g.SCCs()), g.removed))
	return g
}

// AddCallGraphNode adds a function created after the build and records its
// call sites. Components must be recomputed afterwards.
func (g *CallGraph) AddCallGraphNode(fn *ir.Func) *CGNode {
	n := g.nodeFor(fn)
	g.walkFunc(n)
	g.fixIndirectCalls()
	g.comps = nil
	g.sccs = nil
	return n
}

// UpdateCallGraphNode rebuilds the call sites of n from its current body.
// Sites whose statements survive keep their CallInfo.
func (g *CallGraph) UpdateCallGraphNode(n *CGNode) {
	if n.deleted || n.IsExternal() {
		panic(fmt.Errorf("callgraph: update of invalid node %s", n.Name()))
	}
	g.reuse = make(map[ir.StmtID]*CallInfo, len(n.callsites))
	for _, cs := range slices.Clone(n.callsites) {
		g.reuse[cs.Info.StmtID()] = cs.Info
		g.unlink(n, cs.Info.StmtID())
	}
	g.walkFunc(n)
	g.reuse = nil
	g.fixIndirectCalls()
}

// RegisterCalls records the call statements of a block newly spliced into
// caller and returns their infos.
func (g *CallGraph) RegisterCalls(caller NodeID, b *ir.Block, loopDepth int) []*CallInfo {
	n := g.Node(caller)
	if n == nil {
		panic(fmt.Errorf("callgraph: register calls on deleted node %d", caller))
	}
	known := make(map[ir.StmtID]bool, len(n.callsites))
	for _, cs := range n.callsites {
		known[cs.Info.StmtID()] = true
	}
	g.handleBlock(n, b, loopDepth)
	g.fixIndirectCalls()
	var out []*CallInfo
	for _, cs := range n.callsites {
		if !known[cs.Info.StmtID()] {
			out = append(out, cs.Info)
		}
	}
	return out
}

func (g *CallGraph) walkFunc(n *CGNode) {
	fn := n.Func
	n.StmtCount = 0
	for _, sym := range fn.Locals[1:] {
		if sym != nil && sym.Init != nil {
			g.takeConstAddrs(sym.Init)
		}
	}
	g.handleBlock(n, fn.Body, 0)
}

func (g *CallGraph) collectGlobalAddrs() {
	for _, sym := range g.Module.Globals[1:] {
		if sym != nil && sym.Init != nil {
			g.takeConstAddrs(sym.Init)
		}
	}
}

func (g *CallGraph) takeConstAddrs(c *ir.Const) {
	switch c.Kind {
	case ir.ConstFuncAddr:
		g.takeAddr(c.Func)
	case ir.ConstAgg:
		for i := range c.Elems {
			g.takeConstAddrs(&c.Elems[i])
		}
	}
}

func (g *CallGraph) takeAddr(id ir.FuncID) {
	n := g.nodeForID(id)
	if !n.AddrTaken {
		g.icall = nil
	}
	n.AddrTaken = true
	n.NumRefs++
}

func (g *CallGraph) handleBlock(n *CGNode, b *ir.Block, loopDepth int) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		switch s.Kind {
		case ir.StmtComment:
			continue
		case ir.StmtWhile, ir.StmtDoWhile, ir.StmtDoLoop:
			g.markAddrs(s)
			for _, child := range ir.ChildBlocks(s) {
				g.handleBlock(n, child, loopDepth+1)
			}
			continue
		case ir.StmtIf, ir.StmtTry, ir.StmtBlock:
			g.markAddrs(s)
			for _, child := range ir.ChildBlocks(s) {
				g.handleBlock(n, child, loopDepth)
			}
			continue
		}
		n.StmtCount++
		if s.Kind == ir.StmtCall {
			g.handleCall(n, s, loopDepth)
		}
		g.markAddrs(s)
	}
}

func (g *CallGraph) markAddrs(s *ir.Stmt) {
	ir.WalkStmtExprs(s, func(e *ir.Expr) {
		if e.Kind == ir.ExprFuncAddr {
			g.takeAddr(e.Func)
		}
	})
}

func (g *CallGraph) callInfo(kind ir.CallKind, caller NodeID, callee ir.FuncID, s *ir.Stmt, depth int) *CallInfo {
	if ci, ok := g.reuse[s.ID]; ok {
		ci.Kind = kind
		ci.Callee = callee
		ci.LoopDepth = depth
		ci.AllArgsLocal = allArgsLocal(s)
		return ci
	}
	return g.newCallInfo(kind, caller, callee, s, depth)
}

func (g *CallGraph) handleCall(n *CGNode, s *ir.Stmt, depth int) {
	d := s.Call()
	switch d.Kind {
	case ir.CallIntrinsic:
		return
	case ir.CallDirect:
		callee := g.nodeForID(d.Callee)
		g.link(n, g.callInfo(ir.CallDirect, n.ID, d.Callee, s, depth), []NodeID{callee.ID})
	case ir.CallSuper:
		target := d.Callee
		if !target.IsValid() && g.oracle != nil {
			if id, ok := g.oracle.SuperTarget(d.Class, d.Method); ok && g.Module.Func(id) != nil {
				target = id
				d.Callee = id
			}
		}
		var targets []NodeID
		if target.IsValid() {
			targets = []NodeID{g.nodeForID(target).ID}
		}
		g.link(n, g.callInfo(ir.CallSuper, n.ID, target, s, depth), targets)
	case ir.CallVirtual, ir.CallInterface:
		c := g.candidates(d.Kind, d.Class, d.Method)
		callee := ir.NoFuncID
		if len(c.targets) == 1 {
			callee = g.nodes[c.targets[0]].Func.ID
		}
		g.link(n, g.callInfo(d.Kind, n.ID, callee, s, depth), c.targets)
	case ir.CallIndirect:
		g.handleIndirect(n, s, depth)
	default:
		panic(fmt.Errorf("callgraph: %s: unknown call kind %d", n.Name(), d.Kind))
	}
}

// candidates resolves a virtual or interface selector once per graph. An
// incomplete hierarchy yields a valid but possibly empty set.
func (g *CallGraph) candidates(kind ir.CallKind, class, selector string) *candidateCache {
	key := dispatchKey{kind: kind, class: class, selector: selector}
	if c, ok := g.dispatch[key]; ok {
		return c
	}
	var ids []ir.FuncID
	complete := false
	if g.oracle != nil {
		if kind == ir.CallVirtual {
			ids, complete = g.oracle.VirtualCandidates(class, selector)
		} else {
			ids, complete = g.oracle.InterfaceCandidates(class, selector)
		}
	}
	c := &candidateCache{complete: complete}
	for _, id := range ids {
		if fn := g.Module.Func(id); fn != nil {
			c.targets = append(c.targets, g.nodeFor(fn).ID)
		}
	}
	slices.Sort(c.targets)
	c.targets = slices.Compact(c.targets)
	g.dispatch[key] = c
	return c
}

func (g *CallGraph) handleIndirect(n *CGNode, s *ir.Stmt, depth int) {
	d := s.Call()
	if id, ok := g.constFuncAddr(n.Func, d.Target); ok {
		d.Kind = ir.CallDirect
		d.Callee = id
		d.Target = nil
		g.link(n, g.callInfo(ir.CallDirect, n.ID, id, s, depth), []NodeID{g.nodeForID(id).ID})
		return
	}
	if d.Target.Kind == ir.ExprSelect {
		a, okA := g.constFuncAddr(n.Func, d.Target.Operand(1))
		b, okB := g.constFuncAddr(n.Func, d.Target.Operand(2))
		if okA && okB {
			targets := []NodeID{g.nodeForID(a).ID, g.nodeForID(b).ID}
			g.link(n, g.callInfo(ir.CallIndirect, n.ID, ir.NoFuncID, s, depth), targets)
			return
		}
	}
	ci := g.callInfo(ir.CallIndirect, n.ID, ir.NoFuncID, s, depth)
	if !g.opts.ResolveIndirect {
		g.link(n, ci, []NodeID{ExternalNode})
		return
	}
	g.link(n, ci, nil)
	g.deferred = append(g.deferred, deferredCall{caller: n.ID, info: ci})
}

// constFuncAddr folds an indirect call target to a function when it is a
// function address literal, a constant symbol initialised with one, or an
// element of a constant global array selected by literal indexes.
func (g *CallGraph) constFuncAddr(fn *ir.Func, e *ir.Expr) (ir.FuncID, bool) {
	var c *ir.Const
	switch e.Kind {
	case ir.ExprFuncAddr:
		return e.Func, g.Module.Func(e.Func) != nil
	case ir.ExprRead:
		sym := g.Module.Symbol(fn, e.Sym)
		if sym == nil || !sym.IsConst || sym.Init == nil {
			return ir.NoFuncID, false
		}
		c = sym.Init
	case ir.ExprIndex:
		sym := g.Module.Symbol(fn, e.Sym)
		if sym == nil || !sym.IsConst || sym.Init == nil {
			return ir.NoFuncID, false
		}
		idx := make([]int64, 0, e.NumOperands())
		for _, op := range e.Operands {
			if !op.IsConst() {
				return ir.NoFuncID, false
			}
			idx = append(idx, op.Value)
		}
		elem, ok := sym.Init.Elem(idx...)
		if !ok {
			return ir.NoFuncID, false
		}
		c = elem
	default:
		return ir.NoFuncID, false
	}
	if c.Kind != ir.ConstFuncAddr || g.Module.Func(c.Func) == nil {
		return ir.NoFuncID, false
	}
	return c.Func, true
}

// Compatible reports whether fn can be the target of an indirect call passing
// nargs arguments.
func Compatible(fn *ir.Func, nargs int) bool {
	if fn.Attrs.Has(ir.AttrVarargs) {
		return len(fn.Formals) <= nargs
	}
	return len(fn.Formals) == nargs
}

func (g *CallGraph) indirectTargets(nargs int) []NodeID {
	if ts, ok := g.icall[nargs]; ok {
		return ts
	}
	if g.icall == nil {
		g.icall = make(map[int][]NodeID)
	}
	var ts []NodeID
	for _, n := range g.Nodes() {
		if n.AddrTaken && Compatible(n.Func, nargs) {
			ts = append(ts, n.ID)
		}
	}
	g.icall[nargs] = ts
	return ts
}

// fixIndirectCalls points every deferred indirect site at the address-taken
// functions of a compatible type, or at the external node when none exist.
func (g *CallGraph) fixIndirectCalls() {
	pending := g.deferred
	g.deferred = nil
	for _, dc := range pending {
		n := g.Node(dc.caller)
		if n == nil || n.Callsite(dc.info.StmtID()) == nil {
			continue
		}
		targets := g.indirectTargets(len(dc.info.Stmt.Call().Args))
		if len(targets) == 0 {
			targets = []NodeID{ExternalNode}
		}
		g.SetTargets(dc.caller, dc.info.StmtID(), targets)
	}
}
