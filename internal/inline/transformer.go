package inline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"ipa/internal/callgraph"
	"ipa/internal/diag"
	"ipa/internal/ir"
	"ipa/internal/trace"
)

var (
	// ErrUnresolvedCallee is returned for a site without a single callee.
	ErrUnresolvedCallee = errors.New("inline: call site has no single callee")
	// ErrCallNotFound is returned when the call statement is no longer part
	// of the caller body.
	ErrCallNotFound = errors.New("inline: call statement not found in caller")
)

// Outcome describes one PerformInline.
type Outcome struct {
	// Spliced is false when the callee body was empty and the call was
	// dropped instead.
	Spliced bool
	// NewCalls are the call sites the spliced body added to the caller.
	NewCalls []*callgraph.CallInfo
	// NestedTry is set when a try region of the callee landed inside a try
	// region of the caller.
	NestedTry bool
}

// Transformer splices callee bodies into their call sites and keeps the
// call graph and the summaries in step.
type Transformer struct {
	m    *ir.Module
	cg   *callgraph.CallGraph
	sums *Summaries
	rep  diag.Reporter

	// Comments brackets each spliced body with begin/end comments.
	Comments bool
}

// NewTransformer returns a transformer over cg. sums may be nil, in which
// case no summary is merged.
func NewTransformer(cg *callgraph.CallGraph, sums *Summaries, rep diag.Reporter) *Transformer {
	return &Transformer{m: cg.Module, cg: cg, sums: sums, rep: rep, Comments: true}
}

// PerformInline replaces the call statement of ci with the body of its
// callee. An empty callee drops the call and reports Spliced=false.
func (t *Transformer) PerformInline(ctx context.Context, ci *callgraph.CallInfo) (Outcome, error) {
	callerNode := t.cg.Node(ci.Caller)
	calleeNode := t.cg.CalleeNode(ci)
	if callerNode == nil || calleeNode == nil || !calleeNode.HasBody() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnresolvedCallee, ci)
	}
	caller, callee := callerNode.Func, calleeNode.Func
	call := ci.Stmt.Call()
	if call == nil {
		return Outcome{}, fmt.Errorf("inline %s into %s: %w", callee.Name, caller.Name, ErrCallNotFound)
	}
	blk, idx, ok := ir.FindStmt(caller.Body, ci.Stmt)
	if !ok {
		return Outcome{}, fmt.Errorf("inline %s into %s: %w", callee.Name, caller.Name, ErrCallNotFound)
	}
	tr := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	if callee.IsEmpty() {
		t.dropCall(ci, callerNode, blk, idx, callee)
		trace.Point(tr, trace.ScopeNode, "inline.drop", parent, caller.Name+" -> "+callee.Name)
		return Outcome{}, nil
	}

	self := callerNode.ID == calleeNode.ID
	src := callee.Body
	if self {
		if calleeNode.OriginBody == nil {
			calleeNode.OriginBody = ir.CloneBlock(t.m, callee.Body)
		}
		src = calleeNode.OriginBody
		calleeNode.RecursionLevel++
	}
	body := ir.CloneBlock(t.m, src)
	ids := zipStmtIDs(src, body)

	r := newRenamer(caller, callee, calleeNode.InlinedTimes)
	assigns := t.bindArgs(r, caller, callee, call, src)
	r.rewriteBlock(body)
	assigns = append(assigns, t.reinitLocals(r, src)...)

	var retLabel ir.LabelID
	var labelStmt *ir.Stmt
	reused := false
	if idx+1 < len(blk.Stmts) {
		if ld, ok := blk.Stmts[idx+1].Data.(*ir.LabelData); ok {
			retLabel, reused = ld.Label, true
		}
	}
	if !reused && needsReturnLabel(src) {
		name := r.fresh(fmt.Sprintf("_%d_return_%d", callee.ID, r.times), func(n string) bool {
			_, ok := caller.LabelByName(n)
			return ok
		})
		retLabel = caller.NewLabel(name)
		labelStmt = t.m.NewStmt(ir.StmtLabel, &ir.LabelData{Label: retLabel})
	}
	t.rewriteReturns(body, call, retLabel)
	if n := len(body.Stmts); n > 0 {
		if g, ok := body.Stmts[n-1].Data.(*ir.GotoData); ok && g.Label == retLabel {
			body.Stmts = body.Stmts[:n-1]
		}
	}

	seq := make([]*ir.Stmt, 0, len(assigns)+len(body.Stmts)+3)
	if t.Comments {
		seq = append(seq, t.m.NewStmt(ir.StmtComment, &ir.CommentData{Text: "inline begin: " + callee.Name}))
	}
	seq = append(seq, assigns...)
	seq = append(seq, body.Stmts...)
	if labelStmt != nil {
		seq = append(seq, labelStmt)
	}
	if t.Comments {
		seq = append(seq, t.m.NewStmt(ir.StmtComment, &ir.CommentData{Text: "inline end: " + callee.Name}))
	}

	out := Outcome{Spliced: true}
	out.NestedTry = containsTry(src) && insideTry(caller.Body, ci.Stmt)
	blk.Stmts = slices.Replace(blk.Stmts, idx, idx+1, seq...)

	stmt := ci.StmtID()
	t.cg.RemoveCallsite(ci.Caller, stmt)
	callerNode.StmtCount--
	out.NewCalls = t.cg.RegisterCalls(ci.Caller, &ir.Block{Stmts: seq}, ci.LoopDepth)
	calleeNode.InlinedTimes++

	if t.sums != nil {
		if to := t.sums.Get(caller.ID); to != nil {
			if self {
				MergeSummary(to, nil, stmt, nil, true)
				diag.ReportInfo(t.rep, diag.InlineUntrustworthy, diag.Pos{File: t.m.Name},
					fmt.Sprintf("summary of %s no longer tracks its recursive inlines", caller.Name)).Emit()
			} else {
				MergeSummary(to, t.sums.Get(callee.ID), stmt, ids, false)
			}
		}
	}
	if out.NestedTry {
		trace.Point(tr, trace.ScopeNode, "inline.nested_try", parent, caller.Name+" -> "+callee.Name)
	}
	trace.Point(tr, trace.ScopeNode, "inline.splice", parent,
		fmt.Sprintf("%s -> %s stmts=%d calls=%d", caller.Name, callee.Name, len(seq), len(out.NewCalls)))
	return out, nil
}

// dropCall removes a call to an empty callee.
func (t *Transformer) dropCall(ci *callgraph.CallInfo, callerNode *callgraph.CGNode, blk *ir.Block, idx int, callee *ir.Func) {
	blk.Stmts = slices.Delete(blk.Stmts, idx, idx+1)
	stmt := ci.StmtID()
	t.cg.RemoveCallsite(ci.Caller, stmt)
	callerNode.StmtCount--
	ci.SetFailed(callgraph.FailedEmptyCallee)
	if t.sums != nil {
		if to := t.sums.Get(callerNode.Func.ID); to != nil {
			if e := to.Edges[stmt]; e != nil {
				to.AddCost(e.Pred, e.CallCost.Neg())
				to.Static = to.Static.Sub(e.CallCost)
			}
			delete(to.Edges, stmt)
			delete(to.Args, stmt)
		}
	}
	diag.ReportWarning(t.rep, diag.InlineEmptyCallee, diag.Pos{File: t.m.Name},
		fmt.Sprintf("call from %s to empty %s removed", callerNode.Name(), callee.Name)).Emit()
}

// bindArgs decides, per formal, between substituting the actual at every use
// and assigning it to a renamed local, and returns the assignments.
func (t *Transformer) bindArgs(r *renamer, caller, callee *ir.Func, call *ir.CallData, src *ir.Block) []*ir.Stmt {
	nargs, nformals := len(call.Args), len(callee.Formals)
	if nargs != nformals {
		diag.ReportWarning(t.rep, diag.InlineArgMismatch, diag.Pos{File: t.m.Name},
			fmt.Sprintf("%s passes %d arguments to %s, which has %d formals", caller.Name, nargs, callee.Name, nformals)).Emit()
	}
	stable := stableFormals(callee, src)
	var ro *readonlyLocals
	var out []*ir.Stmt
	for i := range min(nargs, nformals) {
		formal, actual := callee.Formals[i], call.Args[i]
		if _, ok := stable[formal]; ok {
			if actual.IsConst() {
				r.subst[formal] = actual
				continue
			}
			if actual.Kind == ir.ExprRead && !actual.Sym.Global {
				if ro == nil {
					ro = newReadonlyLocals(caller, call)
				}
				if ro.has(actual.Sym.ID) {
					r.subst[formal] = actual
					continue
				}
			}
		}
		out = append(out, t.m.NewStmt(ir.StmtAssign, &ir.AssignData{
			Dst:   ir.LocalRef(r.sym(formal)),
			Value: ir.CloneExpr(actual),
		}))
	}
	return out
}

// reinitLocals resets every renamed local the callee writes to the value a
// fresh call would give it: the scalar initialiser, or zero when it has none.
// Formals and constants are left alone.
func (t *Transformer) reinitLocals(r *renamer, src *ir.Block) []*ir.Stmt {
	written := make(map[ir.SymID]bool)
	ir.WalkBlock(src, func(s *ir.Stmt) bool {
		for _, ref := range writtenSyms(s) {
			if !ref.Global {
				written[ref.ID] = true
			}
		}
		return true
	})
	var out []*ir.Stmt
	for _, old := range slices.Sorted(maps.Keys(r.syms)) {
		sym := r.callee.Local(old)
		if sym == nil || sym.Storage == ir.StorageFormal || sym.IsConst || !written[old] {
			continue
		}
		var value *ir.Expr
		switch {
		case sym.Init == nil:
			value = ir.Int(0)
		case sym.Init.Kind == ir.ConstInt:
			value = ir.Int(sym.Init.Int)
		case sym.Init.Kind == ir.ConstFuncAddr:
			value = ir.FuncAddr(sym.Init.Func)
		default:
			// Aggregates are only written element-wise.
			continue
		}
		out = append(out, t.m.NewStmt(ir.StmtAssign, &ir.AssignData{
			Dst:   ir.LocalRef(r.syms[old]),
			Value: value,
		}))
	}
	return out
}

// rewriteReturns turns every return of b into an assignment of the call
// result followed by a jump to label.
func (t *Transformer) rewriteReturns(b *ir.Block, call *ir.CallData, label ir.LabelID) {
	if b == nil {
		return
	}
	out := make([]*ir.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		for _, child := range ir.ChildBlocks(s) {
			t.rewriteReturns(child, call, label)
		}
		rd, ok := s.Data.(*ir.ReturnData)
		if !ok {
			out = append(out, s)
			continue
		}
		if call.HasResult && rd.Value != nil {
			out = append(out, t.m.NewStmt(ir.StmtAssign, &ir.AssignData{Dst: call.Result, Value: rd.Value}))
		}
		out = append(out, t.m.NewStmt(ir.StmtGoto, &ir.GotoData{Label: label}))
	}
	b.Stmts = out
}

// needsReturnLabel reports whether some return of b is not its final
// top-level statement, so the splice needs a label to jump to.
func needsReturnLabel(b *ir.Block) bool {
	n := 0
	ir.WalkBlock(b, func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtReturn {
			n++
		}
		return true
	})
	last := len(b.Stmts) > 0 && b.Stmts[len(b.Stmts)-1].Kind == ir.StmtReturn
	return n > 1 || (n == 1 && !last)
}

// zipStmtIDs pairs the statements of a block with those of its clone.
func zipStmtIDs(src, clone *ir.Block) map[ir.StmtID]ir.StmtID {
	var a, b []ir.StmtID
	collect := func(dst *[]ir.StmtID) func(*ir.Stmt) bool {
		return func(s *ir.Stmt) bool {
			*dst = append(*dst, s.ID)
			return true
		}
	}
	ir.WalkBlock(src, collect(&a))
	ir.WalkBlock(clone, collect(&b))
	ids := make(map[ir.StmtID]ir.StmtID, len(a))
	for i := range min(len(a), len(b)) {
		ids[a[i]] = b[i]
	}
	return ids
}

func containsTry(b *ir.Block) bool {
	found := false
	ir.WalkBlock(b, func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtTry {
			found = true
		}
		return !found
	})
	return found
}

// insideTry reports whether target sits in the protected body of a try.
func insideTry(b *ir.Block, target *ir.Stmt) bool {
	if b == nil {
		return false
	}
	for _, s := range b.Stmts {
		if s == target {
			return false
		}
		if d, ok := s.Data.(*ir.TryData); ok {
			if _, _, found := ir.FindStmt(d.Body, target); found {
				return true
			}
			if insideTry(d.Handler, target) {
				return true
			}
			continue
		}
		for _, child := range ir.ChildBlocks(s) {
			if insideTry(child, target) {
				return true
			}
		}
	}
	return false
}

// readonlyLocals are the caller locals nothing in the caller can modify.
type readonlyLocals struct {
	fn      *ir.Func
	written map[ir.SymID]bool
}

func newReadonlyLocals(fn *ir.Func, call *ir.CallData) *readonlyLocals {
	ro := &readonlyLocals{fn: fn, written: make(map[ir.SymID]bool)}
	if call.HasResult && !call.Result.Global {
		ro.written[call.Result.ID] = true
	}
	ir.WalkBlock(fn.Body, func(s *ir.Stmt) bool {
		for _, ref := range writtenSyms(s) {
			if !ref.Global {
				ro.written[ref.ID] = true
			}
		}
		ir.WalkStmtExprs(s, func(e *ir.Expr) {
			if e.Kind == ir.ExprAddrOf && !e.Sym.Global {
				ro.written[e.Sym.ID] = true
			}
		})
		return true
	})
	return ro
}

func (ro *readonlyLocals) has(id ir.SymID) bool {
	sym := ro.fn.Local(id)
	if sym == nil {
		return false
	}
	if sym.IsConst {
		return true
	}
	return !sym.AddrTaken && !ro.written[id]
}

// renamer maps the callee namespace into fresh caller entries on first use.
type renamer struct {
	caller, callee *ir.Func
	times          int

	syms   map[ir.SymID]ir.SymID
	labels map[ir.LabelID]ir.LabelID
	pregs  map[ir.PregID]ir.PregID
	subst  map[ir.SymID]*ir.Expr
}

func newRenamer(caller, callee *ir.Func, times int) *renamer {
	return &renamer{
		caller: caller,
		callee: callee,
		times:  times,
		syms:   make(map[ir.SymID]ir.SymID),
		labels: make(map[ir.LabelID]ir.LabelID),
		pregs:  make(map[ir.PregID]ir.PregID),
		subst:  make(map[ir.SymID]*ir.Expr),
	}
}

// fresh returns base, or base with a numeric suffix when taken.
func (r *renamer) fresh(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		name := base + "_" + strconv.Itoa(i)
		if !taken(name) {
			return name
		}
	}
}

func (r *renamer) name(orig string) string {
	return fmt.Sprintf("_%d_%s_%d", r.callee.ID, orig, r.times)
}

func (r *renamer) sym(id ir.SymID) ir.SymID {
	if nid, ok := r.syms[id]; ok {
		return nid
	}
	src := r.callee.Local(id)
	if src == nil {
		panic(fmt.Errorf("inline: %s has no local %d", r.callee.Name, id))
	}
	name := r.fresh(r.name(src.Name), func(n string) bool {
		_, ok := r.caller.LocalByName(n)
		return ok
	})
	nid := r.caller.NewLocal(name, ir.StorageLocal)
	dst := r.caller.Local(nid)
	dst.IsConst = src.IsConst
	dst.Init = src.Init
	dst.AddrTaken = src.AddrTaken
	r.syms[id] = nid
	return nid
}

func (r *renamer) ref(ref ir.SymRef) ir.SymRef {
	if ref.Global || !ref.IsValid() {
		return ref
	}
	return ir.LocalRef(r.sym(ref.ID))
}

func (r *renamer) label(id ir.LabelID) ir.LabelID {
	if !id.IsValid() {
		return id
	}
	if nid, ok := r.labels[id]; ok {
		return nid
	}
	name := r.fresh(r.name(r.callee.Labels[id].Name), func(n string) bool {
		_, ok := r.caller.LabelByName(n)
		return ok
	})
	nid := r.caller.NewLabel(name)
	r.labels[id] = nid
	return nid
}

func (r *renamer) preg(id ir.PregID) ir.PregID {
	if !id.IsValid() {
		return id
	}
	if nid, ok := r.pregs[id]; ok {
		return nid
	}
	name := r.fresh(r.name(r.callee.Pregs[id].Name), func(n string) bool {
		_, ok := r.caller.PregByName(n)
		return ok
	})
	nid := r.caller.NewPreg(name)
	r.pregs[id] = nid
	return nid
}

func (r *renamer) expr(e *ir.Expr) *ir.Expr {
	switch e.Kind {
	case ir.ExprRead:
		if e.Sym.Global {
			return nil
		}
		if v, ok := r.subst[e.Sym.ID]; ok {
			return ir.CloneExpr(v)
		}
		e.Sym = r.ref(e.Sym)
	case ir.ExprAddrOf, ir.ExprIndex:
		e.Sym = r.ref(e.Sym)
	case ir.ExprRegRead:
		e.Reg = r.preg(e.Reg)
	}
	return nil
}

// rewriteBlock renames every reference in b, which must be a private clone.
func (r *renamer) rewriteBlock(b *ir.Block) {
	ir.WalkBlock(b, func(s *ir.Stmt) bool {
		for _, slot := range ir.StmtExprs(s) {
			*slot = ir.RewriteExpr(*slot, r.expr)
		}
		switch d := s.Data.(type) {
		case *ir.AssignData:
			d.Dst = r.ref(d.Dst)
		case *ir.RegAssignData:
			d.Reg = r.preg(d.Reg)
		case *ir.CallData:
			if d.HasResult {
				d.Result = r.ref(d.Result)
			}
		case *ir.DoLoopData:
			d.Var = r.ref(d.Var)
		case *ir.LabelData:
			d.Label = r.label(d.Label)
		case *ir.GotoData:
			d.Label = r.label(d.Label)
		case *ir.CondGotoData:
			d.Label = r.label(d.Label)
		case *ir.SwitchData:
			for i := range d.Cases {
				d.Cases[i].Label = r.label(d.Cases[i].Label)
			}
			d.Default = r.label(d.Default)
		}
		return true
	})
}
