package inline

import (
	"ipa/internal/ir"
)

// Cost units. One machine instruction is CostOne.
const (
	CostFree   int64 = 10
	CostHalf   int64 = 50
	CostOne    int64 = 100
	CostDouble int64 = 200

	// CostInfinity prices constructs that must never be inlined across.
	CostInfinity int64 = 100000 * CostOne
)

// Execution frequencies are fixed point with FreqBase meaning "once per call".
const (
	FreqBase int64 = 10000
	FreqMax  int64 = 100 * FreqBase

	loopTripCount  = 10
	divCycles      = 20
	coldFreqFactor = 20 // a site is unlikely below FreqBase/coldFreqFactor
)

// InlineCost is a size and time estimate in cost units.
type InlineCost struct {
	Size   int64
	Cycles float64
}

// Insns converts the size to instructions.
func (c InlineCost) Insns() int64 { return c.Size / CostOne }

// Add returns the sum of both costs.
func (c InlineCost) Add(o InlineCost) InlineCost {
	return InlineCost{Size: c.Size + o.Size, Cycles: c.Cycles + o.Cycles}
}

// Sub returns c minus o.
func (c InlineCost) Sub(o InlineCost) InlineCost {
	return InlineCost{Size: c.Size - o.Size, Cycles: c.Cycles - o.Cycles}
}

// AtFreq weights the time part by freq/FreqBase. The size is unchanged.
func (c InlineCost) AtFreq(freq int64) InlineCost {
	return InlineCost{Size: c.Size, Cycles: c.Cycles * float64(freq) / float64(FreqBase)}
}

// Neg negates both parts.
func (c InlineCost) Neg() InlineCost { return InlineCost{Size: -c.Size, Cycles: -c.Cycles} }

func unitCost(units int64) InlineCost {
	return InlineCost{Size: units, Cycles: float64(units)}
}

// CostAnalyzer prices statements and expressions of one function.
type CostAnalyzer struct {
	m  *ir.Module
	fn *ir.Func
}

// NewCostAnalyzer returns an analyzer for fn.
func NewCostAnalyzer(m *ir.Module, fn *ir.Func) *CostAnalyzer {
	return &CostAnalyzer{m: m, fn: fn}
}

func (a *CostAnalyzer) isGlobal(ref ir.SymRef) bool {
	if ref.Global {
		return true
	}
	sym := a.fn.Local(ref.ID)
	return sym != nil && sym.IsGlobal()
}

// EstimateExpr prices an expression tree.
func (a *CostAnalyzer) EstimateExpr(e *ir.Expr) InlineCost {
	if e == nil {
		return InlineCost{}
	}
	var own InlineCost
	switch e.Kind {
	case ir.ExprConst:
		if e.Value != 0 {
			own = unitCost(CostFree)
		}
	case ir.ExprRead:
		if a.isGlobal(e.Sym) {
			own = unitCost(CostDouble + CostOne)
		} else {
			own = unitCost(CostFree)
		}
	case ir.ExprRegRead:
		own = unitCost(CostFree)
	case ir.ExprAddrOf:
		if a.isGlobal(e.Sym) {
			own = unitCost(CostDouble)
		} else {
			own = unitCost(CostOne)
		}
	case ir.ExprFuncAddr:
		own = unitCost(CostDouble)
	case ir.ExprUnary:
		if e.Op == ir.OpBnot {
			own = unitCost(CostOne)
		} else {
			own = unitCost(CostHalf)
		}
	case ir.ExprBinary:
		switch e.Op {
		case ir.OpMul:
			own = unitCost(CostOne)
		case ir.OpDiv:
			own = InlineCost{Size: CostOne, Cycles: float64(divCycles * CostOne)}
		case ir.OpRem:
			own = InlineCost{Size: CostDouble, Cycles: float64(divCycles * CostOne)}
		default:
			own = unitCost(CostHalf)
		}
	case ir.ExprCompare:
		// flag-setting subtract makes a test against zero free
		if !e.Operand(0).IsZero() && !e.Operand(1).IsZero() {
			own = unitCost(CostOne)
		}
	case ir.ExprIndex:
		if a.isGlobal(e.Sym) {
			own = unitCost(CostDouble)
		} else {
			own = unitCost(CostOne)
		}
	default:
		own = unitCost(CostOne)
	}
	for _, op := range e.Operands {
		own = own.Add(a.EstimateExpr(op))
	}
	return own
}

// EstimateStmt prices the statement itself without its nested blocks.
func (a *CostAnalyzer) EstimateStmt(s *ir.Stmt) InlineCost {
	var c InlineCost
	switch d := s.Data.(type) {
	case *ir.AssignData:
		if a.isGlobal(d.Dst) {
			c = unitCost(CostDouble + CostOne)
		} else {
			c = unitCost(CostFree)
		}
		c = c.Add(a.EstimateExpr(d.Value))
	case *ir.RegAssignData:
		c = unitCost(CostFree).Add(a.EstimateExpr(d.Value))
	case *ir.CallData:
		c = a.CallCost(d)
	case *ir.IfData:
		c = unitCost(CostOne).Add(a.EstimateExpr(d.Cond))
	case *ir.WhileData:
		c = unitCost(CostOne).Add(a.EstimateExpr(d.Cond))
	case *ir.DoLoopData:
		c = unitCost(CostOne).
			Add(a.EstimateExpr(d.Start)).
			Add(a.EstimateExpr(d.Cond)).
			Add(a.EstimateExpr(d.Incr))
	case *ir.SwitchData:
		c = unitCost(int64(len(d.Cases)+1) * CostOne).Add(a.EstimateExpr(d.Value))
	case *ir.CondGotoData:
		c = unitCost(CostOne).Add(a.EstimateExpr(d.Cond))
	case *ir.ReturnData:
		c = unitCost(CostOne).Add(a.EstimateExpr(d.Value))
	case *ir.TryData, *ir.ThrowData:
		c = unitCost(CostInfinity)
	case *ir.EvalData:
		c = a.EstimateExpr(d.Value)
	case *ir.LabelData, *ir.GotoData, *ir.CommentData, *ir.BlockData:
	default:
		c = unitCost(CostOne)
	}
	return c
}

// CallCost prices a call statement: one instruction, its arguments, and a
// move when the result is used.
func (a *CostAnalyzer) CallCost(d *ir.CallData) InlineCost {
	c := unitCost(CostOne)
	if d.Kind == ir.CallIndirect {
		c = c.Add(a.EstimateExpr(d.Target))
	}
	for _, arg := range d.Args {
		c = c.Add(a.EstimateExpr(arg))
	}
	if d.HasResult {
		c = c.Add(unitCost(CostOne))
		if a.isGlobal(d.Result) {
			c = c.Add(unitCost(CostDouble))
		}
	}
	return c
}

// EstimateBlock prices a whole block. Branches of a conditional count half
// their time and loop bodies count loopTripCount times.
func (a *CostAnalyzer) EstimateBlock(b *ir.Block) InlineCost {
	var total InlineCost
	if b == nil {
		return total
	}
	for _, s := range b.Stmts {
		total = total.Add(a.EstimateStmt(s))
		switch d := s.Data.(type) {
		case *ir.IfData:
			total = total.Add(a.EstimateBlock(d.Then).AtFreq(FreqBase / 2))
			total = total.Add(a.EstimateBlock(d.Else).AtFreq(FreqBase / 2))
		case *ir.WhileData:
			total = total.Add(a.EstimateBlock(d.Body).AtFreq(FreqBase * loopTripCount))
		case *ir.DoLoopData:
			total = total.Add(a.EstimateBlock(d.Body).AtFreq(FreqBase * loopTripCount))
		default:
			for _, child := range ir.ChildBlocks(s) {
				total = total.Add(a.EstimateBlock(child))
			}
		}
	}
	return total
}

// EstimateFunc prices the body of the analyzer's function.
func (a *CostAnalyzer) EstimateFunc() InlineCost { return a.EstimateBlock(a.fn.Body) }
