package inline

import (
	"fmt"

	"ipa/internal/ir"
)

// LiteKind enumerates the shapes of a LiteExpr.
type LiteKind uint8

const (
	LiteConst LiteKind = iota
	LiteParam
	LiteUnary
	LiteBinary
)

// LiteExpr is a side-effect-free expression over constants and formal
// parameters that are never written.
type LiteExpr struct {
	Kind  LiteKind
	Op    ir.Op
	Value int64 // LiteConst
	Param int   // LiteParam: formal index
	X, Y  *LiteExpr
}

// LiteConstExpr returns a constant.
func LiteConstExpr(v int64) *LiteExpr { return &LiteExpr{Kind: LiteConst, Value: v} }

// LiteParamExpr returns a reference to formal i.
func LiteParamExpr(i int) *LiteExpr { return &LiteExpr{Kind: LiteParam, Param: i} }

// Equal reports structural equality.
func (e *LiteExpr) Equal(o *LiteExpr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind || e.Op != o.Op {
		return false
	}
	switch e.Kind {
	case LiteConst:
		return e.Value == o.Value
	case LiteParam:
		return e.Param == o.Param
	case LiteUnary:
		return e.X.Equal(o.X)
	default:
		return e.X.Equal(o.X) && e.Y.Equal(o.Y)
	}
}

// Params returns a bitmask of the formal indices used.
func (e *LiteExpr) Params() uint64 {
	if e == nil {
		return 0
	}
	switch e.Kind {
	case LiteParam:
		if e.Param < 64 {
			return 1 << uint(e.Param)
		}
		return 0
	case LiteConst:
		return 0
	default:
		return e.X.Params() | e.Y.Params()
	}
}

// Eval folds e when every parameter it uses has a single known value.
func (e *LiteExpr) Eval(args []*ArgInfo) (int64, bool) {
	switch e.Kind {
	case LiteConst:
		return e.Value, true
	case LiteParam:
		if a := argAt(args, e.Param); a != nil && a.IsConst() {
			return a.Lo, true
		}
		return 0, false
	case LiteUnary:
		x, ok := e.X.Eval(args)
		if !ok {
			return 0, false
		}
		v, err := ir.EvalOp(e.Op, x, 0)
		return v, err == nil
	default:
		x, ok := e.X.Eval(args)
		if !ok {
			return 0, false
		}
		y, ok := e.Y.Eval(args)
		if !ok {
			return 0, false
		}
		v, err := ir.EvalOp(e.Op, x, y)
		return v, err == nil
	}
}

// remap rewrites parameter references through fn. It fails when fn does.
func (e *LiteExpr) remap(fn func(int) (*LiteExpr, bool)) (*LiteExpr, bool) {
	switch e.Kind {
	case LiteConst:
		return e, true
	case LiteParam:
		return fn(e.Param)
	case LiteUnary:
		x, ok := e.X.remap(fn)
		if !ok {
			return nil, false
		}
		return &LiteExpr{Kind: LiteUnary, Op: e.Op, X: x}, true
	default:
		x, ok := e.X.remap(fn)
		if !ok {
			return nil, false
		}
		y, ok := e.Y.remap(fn)
		if !ok {
			return nil, false
		}
		return &LiteExpr{Kind: LiteBinary, Op: e.Op, X: x, Y: y}, true
	}
}

func (e *LiteExpr) String() string {
	switch e.Kind {
	case LiteConst:
		return fmt.Sprint(e.Value)
	case LiteParam:
		return fmt.Sprintf("param%d", e.Param)
	case LiteUnary:
		return e.Op.String() + e.X.String()
	default:
		return "(" + e.X.String() + " " + e.Op.String() + " " + e.Y.String() + ")"
	}
}

// Condition is X Op Y with Op one of ==, <, <=. Reverse negates the test, so
// a != b shares its expression with a == b.
type Condition struct {
	Op      ir.Op
	X, Y    *LiteExpr
	Reverse bool
}

// Equal reports whether both conditions test the same thing.
func (c *Condition) Equal(o *Condition) bool {
	return c.Op == o.Op && c.Reverse == o.Reverse && c.X.Equal(o.X) && c.Y.Equal(o.Y)
}

// Params returns a bitmask of the formal indices used.
func (c *Condition) Params() uint64 { return c.X.Params() | c.Y.Params() }

// Negated returns the complementary condition.
func (c *Condition) Negated() *Condition {
	return &Condition{Op: c.Op, X: c.X, Y: c.Y, Reverse: !c.Reverse}
}

// Eval evaluates c against call-site argument information.
func (c *Condition) Eval(args []*ArgInfo) Tri {
	x, okx := c.X.Eval(args)
	y, oky := c.Y.Eval(args)
	var res Tri
	switch {
	case okx && oky:
		v, err := ir.EvalOp(c.Op, x, y)
		if err != nil {
			return TriUnknown
		}
		res = triOf(v != 0)
	case oky && c.X.Kind == LiteParam:
		res = c.evalRange(argAt(args, c.X.Param), y)
	default:
		return TriUnknown
	}
	if c.Reverse && res != TriUnknown {
		res = triOf(res == TriFalse)
	}
	return res
}

func (c *Condition) evalRange(a *ArgInfo, y int64) Tri {
	if a == nil || !a.HasRange {
		return TriUnknown
	}
	switch c.Op {
	case ir.OpEq:
		if y < a.Lo || y > a.Hi {
			return TriFalse
		}
	case ir.OpLt:
		if a.Hi < y {
			return TriTrue
		}
		if a.Lo >= y {
			return TriFalse
		}
	case ir.OpLe:
		if a.Hi <= y {
			return TriTrue
		}
		if a.Lo > y {
			return TriFalse
		}
	}
	return TriUnknown
}

func (c *Condition) String() string {
	op := c.Op
	if c.Reverse {
		op = op.Negate()
	}
	return c.X.String() + " " + op.String() + " " + c.Y.String()
}

// canonicalCondition builds a condition from a comparison. The side that
// uses parameters goes left; != > >= become reversed == <= <.
func canonicalCondition(op ir.Op, l, r *LiteExpr) *Condition {
	if l.Params() == 0 && r.Params() != 0 {
		l, r = r, l
		op = op.Mirror()
	}
	c := &Condition{Op: op, X: l, Y: r}
	switch op {
	case ir.OpNe:
		c.Op, c.Reverse = ir.OpEq, true
	case ir.OpGt:
		c.Op, c.Reverse = ir.OpLe, true
	case ir.OpGe:
		c.Op, c.Reverse = ir.OpLt, true
	}
	return c
}

// ArgInfo is what a call site knows about one actual argument: a value range
// (a single value for literals) or the caller formal passed through.
type ArgInfo struct {
	Lo, Hi    int64
	HasRange  bool
	FormalIdx int // caller formal passed unchanged, or -1
}

// ConstArg describes a literal argument.
func ConstArg(v int64) *ArgInfo {
	return &ArgInfo{Lo: v, Hi: v, HasRange: true, FormalIdx: -1}
}

// FormalArg describes a caller formal passed through unchanged.
func FormalArg(idx int) *ArgInfo { return &ArgInfo{FormalIdx: idx} }

// IsConst reports whether the argument has a single known value.
func (a *ArgInfo) IsConst() bool { return a.HasRange && a.Lo == a.Hi }

func (a *ArgInfo) String() string {
	switch {
	case a.IsConst():
		return fmt.Sprint(a.Lo)
	case a.HasRange:
		return fmt.Sprintf("[%d, %d]", a.Lo, a.Hi)
	case a.FormalIdx >= 0:
		return fmt.Sprintf("param%d", a.FormalIdx)
	default:
		return "?"
	}
}

func argAt(args []*ArgInfo, i int) *ArgInfo {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}
