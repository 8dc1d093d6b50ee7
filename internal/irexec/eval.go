package irexec

import (
	"fmt"

	"ipa/internal/ir"
)

func (mc *Machine) expr(fr *frame, e *ir.Expr) (Value, error) {
	switch e.Kind {
	case ir.ExprConst:
		return Value{N: e.Value}, nil
	case ir.ExprRead:
		if e.Sym.Global {
			if g := mc.m.Global(e.Sym.ID); g != nil && g.Init != nil && g.Init.Kind == ir.ConstAgg {
				return Value{}, fmt.Errorf("irexec: aggregate %s read as a scalar", g.Name)
			}
		}
		return *mc.cell(fr, e.Sym), nil
	case ir.ExprRegRead:
		return fr.pregs[e.Reg], nil
	case ir.ExprAddrOf:
		return Value{Ptr: mc.cell(fr, e.Sym)}, nil
	case ir.ExprFuncAddr:
		return Value{Fn: e.Func}, nil
	case ir.ExprUnary:
		x, err := mc.expr(fr, e.Operands[0])
		if err != nil {
			return Value{}, err
		}
		if e.Op == ir.OpNot {
			return boolValue(!x.Truth()), nil
		}
		n, err := ir.EvalOp(e.Op, x.N, 0)
		return Value{N: n}, err
	case ir.ExprBinary, ir.ExprCompare:
		a, err := mc.expr(fr, e.Operands[0])
		if err != nil {
			return Value{}, err
		}
		b, err := mc.expr(fr, e.Operands[1])
		if err != nil {
			return Value{}, err
		}
		return binary(e.Op, a, b)
	case ir.ExprSelect:
		c, err := mc.expr(fr, e.Operands[0])
		if err != nil {
			return Value{}, err
		}
		if c.Truth() {
			return mc.expr(fr, e.Operands[1])
		}
		return mc.expr(fr, e.Operands[2])
	case ir.ExprIndex:
		g := mc.m.Global(e.Sym.ID)
		if g == nil || g.Init == nil {
			return Value{}, fmt.Errorf("irexec: index into a global without initialiser")
		}
		idx := make([]int64, len(e.Operands))
		for i, op := range e.Operands {
			v, err := mc.expr(fr, op)
			if err != nil {
				return Value{}, err
			}
			idx[i] = v.N
		}
		c, ok := g.Init.Elem(idx...)
		if !ok {
			return Value{}, fmt.Errorf("irexec: %s%v out of range", g.Name, idx)
		}
		return constValue(c)
	}
	return Value{}, fmt.Errorf("irexec: unsupported expression %s", e.Kind)
}

func boolValue(b bool) Value {
	if b {
		return Value{N: 1}
	}
	return Value{}
}

func binary(op ir.Op, a, b Value) (Value, error) {
	switch op {
	case ir.OpEq, ir.OpNe:
		if a.IsFunc() || b.IsFunc() || a.Ptr != nil || b.Ptr != nil {
			eq := a == b
			return boolValue(eq == (op == ir.OpEq)), nil
		}
	case ir.OpLand:
		return boolValue(a.Truth() && b.Truth()), nil
	case ir.OpLor:
		return boolValue(a.Truth() || b.Truth()), nil
	}
	n, err := ir.EvalOp(op, a.N, b.N)
	return Value{N: n}, err
}
