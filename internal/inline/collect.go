package inline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ipa/internal/callgraph"
	"ipa/internal/ir"
	"ipa/internal/trace"
)

// BigSwitchCases is the case count from which a switch marks the function.
const BigSwitchCases = 8

type collector struct {
	m   *ir.Module
	fn  *ir.Func
	sum *Summary
	ca  *CostAnalyzer

	// stable maps formals that are never written and never address-taken to
	// their parameter index.
	stable map[ir.SymID]int
}

// Collect builds the summary of fn by propagating region predicates through
// its structured body. A label resets the predicate to true since any jump
// may reach it.
func Collect(m *ir.Module, fn *ir.Func) *Summary {
	c := &collector{
		m:      m,
		fn:     fn,
		sum:    NewSummary(fn.ID),
		ca:     NewCostAnalyzer(m, fn),
		stable: stableFormals(fn, fn.Body),
	}
	if fn.Body != nil {
		c.block(fn.Body, TruePredicate(), FreqBase, false)
	}
	return c.sum
}

// CollectAll summarises every live function with a body. Collection only
// reads the IR, so functions are processed in parallel.
func CollectAll(ctx context.Context, m *ir.Module, sums *Summaries) error {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePass, "inline.summary", trace.CurrentSpan(ctx).SpanID)

	funcs := m.LiveFuncs()
	out := make([]*Summary, len(funcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, fn := range funcs {
		if fn.Body == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = Collect(m, fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End("canceled")
		return fmt.Errorf("collect summaries: %w", err)
	}
	n := 0
	for _, s := range out {
		if s != nil {
			sums.Put(s)
			n++
		}
	}
	span.End(fmt.Sprintf("functions=%d", n))
	return nil
}

// stableFormals maps the formals of fn that body never writes and never
// takes the address of to their parameter index.
func stableFormals(fn *ir.Func, body *ir.Block) map[ir.SymID]int {
	out := make(map[ir.SymID]int, len(fn.Formals))
	for i, id := range fn.Formals {
		if sym := fn.Local(id); sym != nil && !sym.AddrTaken {
			out[id] = i
		}
	}
	ir.WalkBlock(body, func(s *ir.Stmt) bool {
		for _, ref := range writtenSyms(s) {
			if !ref.Global {
				delete(out, ref.ID)
			}
		}
		ir.WalkStmtExprs(s, func(e *ir.Expr) {
			if e.Kind == ir.ExprAddrOf && !e.Sym.Global {
				delete(out, e.Sym.ID)
			}
		})
		return true
	})
	return out
}

// writtenSyms lists the symbols a statement assigns.
func writtenSyms(s *ir.Stmt) []ir.SymRef {
	switch d := s.Data.(type) {
	case *ir.AssignData:
		return []ir.SymRef{d.Dst}
	case *ir.DoLoopData:
		return []ir.SymRef{d.Var}
	case *ir.CallData:
		if d.HasResult {
			return []ir.SymRef{d.Result}
		}
	}
	return nil
}

// lite converts e into a LiteExpr, or nil when it reads anything but
// constants and stable formals.
func (c *collector) lite(e *ir.Expr) *LiteExpr {
	switch e.Kind {
	case ir.ExprConst:
		return LiteConstExpr(e.Value)
	case ir.ExprRead:
		if e.Sym.Global {
			return nil
		}
		if idx, ok := c.stable[e.Sym.ID]; ok {
			return LiteParamExpr(idx)
		}
	case ir.ExprUnary:
		if x := c.lite(e.Operand(0)); x != nil {
			return &LiteExpr{Kind: LiteUnary, Op: e.Op, X: x}
		}
	case ir.ExprBinary:
		if e.Op == ir.OpLand || e.Op == ir.OpLor {
			return nil
		}
		x, y := c.lite(e.Operand(0)), c.lite(e.Operand(1))
		if x != nil && y != nil {
			return &LiteExpr{Kind: LiteBinary, Op: e.Op, X: x, Y: y}
		}
	}
	return nil
}

// predOf returns the predicate under which e is true, or false when negate
// is set. Anything that cannot be expressed over parameters is true.
func (c *collector) predOf(e *ir.Expr, negate bool) Predicate {
	switch {
	case e.Kind == ir.ExprBinary && (e.Op == ir.OpLand || e.Op == ir.OpLor):
		l, r := c.predOf(e.Operand(0), negate), c.predOf(e.Operand(1), negate)
		if (e.Op == ir.OpLand) != negate {
			return l.And(r)
		}
		return l.Or(r)
	case e.Kind == ir.ExprUnary && e.Op == ir.OpNot:
		return c.predOf(e.Operand(0), !negate)
	}
	var cond *Condition
	if e.Kind == ir.ExprCompare {
		l, r := c.lite(e.Operand(0)), c.lite(e.Operand(1))
		if l == nil || r == nil {
			return TruePredicate()
		}
		cond = canonicalCondition(e.Op, l, r)
	} else {
		x := c.lite(e)
		if x == nil {
			return TruePredicate()
		}
		cond = &Condition{Op: ir.OpEq, X: x, Y: LiteConstExpr(0), Reverse: true}
	}
	if negate {
		cond = cond.Negated()
	}
	return c.sum.AddCondition(cond)
}

func (c *collector) addCost(pred Predicate, cost InlineCost, freq int64) {
	if pred.IsFalse() {
		return
	}
	cost = cost.AtFreq(freq)
	c.sum.AddCost(pred, cost)
	c.sum.Static = c.sum.Static.Add(cost)
}

func loopFreq(freq int64) int64 { return min(freq*loopTripCount, FreqMax) }

func branchFreq(freq int64) int64 { return max(freq/2, 1) }

// block walks b entered under cur and returns the predicate under which
// control falls out of its end.
func (c *collector) block(b *ir.Block, cur Predicate, freq int64, unlikely bool) Predicate {
	if b == nil {
		return cur
	}
	for _, s := range b.Stmts {
		if s.Kind == ir.StmtLabel {
			cur = TruePredicate()
			continue
		}
		if cur.IsFalse() {
			continue
		}
		cost := c.ca.EstimateStmt(s)
		if s.Kind == ir.StmtReturn {
			c.addCost(cur.And(CondPredicate(CondNotInlined)), cost, freq)
		} else {
			c.addCost(cur, cost, freq)
		}

		switch d := s.Data.(type) {
		case *ir.CallData:
			c.call(s, d, cur, cost, freq, unlikely)
		case *ir.ReturnData, *ir.GotoData, *ir.ThrowData:
			cur = FalsePredicate()
		case *ir.IfData:
			pt, pf := c.predOf(d.Cond, false), c.predOf(d.Cond, true)
			thenCont := c.block(d.Then, cur.And(pt), branchFreq(freq), unlikely || hasThrow(d.Then))
			elseCont := cur.And(pf)
			if d.Else != nil {
				elseCont = c.block(d.Else, elseCont, branchFreq(freq), unlikely || hasThrow(d.Else))
			}
			cur = thenCont.Or(elseCont)
		case *ir.WhileData:
			pt, pf := c.predOf(d.Cond, false), c.predOf(d.Cond, true)
			if s.Kind == ir.StmtDoWhile {
				cont := c.block(d.Body, cur, loopFreq(freq), unlikely)
				cur = cont.And(pf)
			} else {
				c.block(d.Body, cur.And(pt), loopFreq(freq), unlikely)
				cur = cur.And(pf)
			}
		case *ir.DoLoopData:
			c.block(d.Body, cur, loopFreq(freq), unlikely)
		case *ir.SwitchData:
			if len(d.Cases) >= BigSwitchCases {
				c.sum.BigSwitch = true
			}
			if d.Default.IsValid() {
				cur = FalsePredicate()
			}
		case *ir.CondGotoData:
			cur = cur.And(c.predOf(d.Cond, !d.OnFalse))
		case *ir.TryData:
			body := c.block(d.Body, cur, freq, unlikely)
			handler := c.block(d.Handler, cur, branchFreq(freq), true)
			cur = body.Or(handler)
		case *ir.BlockData:
			cur = c.block(d.Block, cur, freq, unlikely)
		}
	}
	return cur
}

func (c *collector) call(s *ir.Stmt, d *ir.CallData, cur Predicate, cost InlineCost, freq int64, unlikely bool) {
	c.sum.Edges[s.ID] = &EdgeSummary{
		Pred:     cur,
		Freq:     freq,
		CallCost: cost,
		Unlikely: unlikely || freq*coldFreqFactor <= FreqBase,
	}
	self := d.Kind == ir.CallDirect && d.Callee == c.fn.ID
	if self {
		c.sum.Recursive = true
	} else if d.Kind == ir.CallDirect {
		if callee := c.m.Func(d.Callee); callee != nil && strings.Contains(callee.Name, "setjmp") {
			c.sum.Failed = callgraph.FailedSetjmp
		}
	}
	var args []*ArgInfo
	known := false
	for i, a := range d.Args {
		var info *ArgInfo
		switch {
		case a.IsConst():
			info = ConstArg(a.Value)
		case a.Kind == ir.ExprRead && !a.Sym.Global && !self:
			if idx, ok := c.stable[a.Sym.ID]; ok {
				info = FormalArg(idx)
			}
		}
		if info != nil {
			if args == nil {
				args = make([]*ArgInfo, len(d.Args))
			}
			args[i] = info
			known = true
		}
	}
	if known {
		c.sum.Args[s.ID] = args
	}
}

func hasThrow(b *ir.Block) bool {
	found := false
	ir.WalkBlock(b, func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtThrow {
			found = true
		}
		return !found
	})
	return found
}
