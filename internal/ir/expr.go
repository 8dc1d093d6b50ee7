package ir

import (
	"errors"
	"fmt"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprConst is an integer literal.
	ExprConst ExprKind = iota
	// ExprRead loads a symbol.
	ExprRead
	// ExprRegRead loads a virtual register.
	ExprRegRead
	// ExprAddrOf takes the address of a symbol.
	ExprAddrOf
	// ExprFuncAddr is the address of a function.
	ExprFuncAddr
	// ExprUnary applies a unary operator.
	ExprUnary
	// ExprBinary applies an arithmetic or logical operator.
	ExprBinary
	// ExprCompare compares two operands and yields 0 or 1.
	ExprCompare
	// ExprSelect is c ? a : b.
	ExprSelect
	// ExprIndex reads an element of a constant global array.
	ExprIndex
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprConst:
		return "Const"
	case ExprRead:
		return "Read"
	case ExprRegRead:
		return "RegRead"
	case ExprAddrOf:
		return "AddrOf"
	case ExprFuncAddr:
		return "FuncAddr"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprCompare:
		return "Compare"
	case ExprSelect:
		return "Select"
	case ExprIndex:
		return "Index"
	default:
		return "Unknown"
	}
}

// Op is an operator of a unary, binary or compare expression.
type Op uint8

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLand
	OpLor
	OpNeg
	OpNot
	OpBnot
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var opText = [...]string{
	OpNone: "?",
	OpAdd:  "+",
	OpSub:  "-",
	OpMul:  "*",
	OpDiv:  "/",
	OpRem:  "%",
	OpAnd:  "&",
	OpOr:   "|",
	OpXor:  "^",
	OpShl:  "<<",
	OpShr:  ">>",
	OpLand: "&&",
	OpLor:  "||",
	OpNeg:  "-",
	OpNot:  "!",
	OpBnot: "~",
	OpEq:   "==",
	OpNe:   "!=",
	OpLt:   "<",
	OpLe:   "<=",
	OpGt:   ">",
	OpGe:   ">=",
}

func (op Op) String() string {
	if int(op) < len(opText) {
		return opText[op]
	}
	return "?"
}

// IsCompare reports whether op yields a boolean.
func (op Op) IsCompare() bool { return op >= OpEq && op <= OpGe }

// Mirror returns the operator with swapped operands: a < b == b > a.
func (op Op) Mirror() Op {
	switch op {
	case OpLt:
		return OpGt
	case OpLe:
		return OpGe
	case OpGt:
		return OpLt
	case OpGe:
		return OpLe
	default:
		return op
	}
}

// Negate returns the complementary comparison.
func (op Op) Negate() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		return op
	}
}

// Expr is an expression node. The fields used depend on Kind.
type Expr struct {
	Kind     ExprKind
	Op       Op
	Value    int64  // ExprConst
	Sym      SymRef // ExprRead, ExprAddrOf, ExprIndex
	Reg      PregID // ExprRegRead
	Func     FuncID // ExprFuncAddr
	Operands []*Expr
}

// Int returns an integer literal.
func Int(v int64) *Expr { return &Expr{Kind: ExprConst, Value: v} }

// Read returns a symbol load.
func Read(ref SymRef) *Expr { return &Expr{Kind: ExprRead, Sym: ref} }

// RegRead returns a register load.
func RegRead(reg PregID) *Expr { return &Expr{Kind: ExprRegRead, Reg: reg} }

// AddrOf returns the address of a symbol.
func AddrOf(ref SymRef) *Expr { return &Expr{Kind: ExprAddrOf, Sym: ref} }

// FuncAddr returns the address of a function.
func FuncAddr(id FuncID) *Expr { return &Expr{Kind: ExprFuncAddr, Func: id} }

// Unary returns op x.
func Unary(op Op, x *Expr) *Expr { return &Expr{Kind: ExprUnary, Op: op, Operands: []*Expr{x}} }

// Binary returns l op r.
func Binary(op Op, l, r *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Operands: []*Expr{l, r}}
}

// Compare returns l op r for a comparison operator.
func Compare(op Op, l, r *Expr) *Expr {
	return &Expr{Kind: ExprCompare, Op: op, Operands: []*Expr{l, r}}
}

// Select returns c ? a : b.
func Select(c, a, b *Expr) *Expr {
	return &Expr{Kind: ExprSelect, Operands: []*Expr{c, a, b}}
}

// Index returns base[idx...] over a constant global array.
func Index(base SymRef, idx ...*Expr) *Expr {
	return &Expr{Kind: ExprIndex, Sym: base, Operands: idx}
}

// NumOperands returns the number of operand subtrees.
func (e *Expr) NumOperands() int { return len(e.Operands) }

// Operand returns the i-th operand.
func (e *Expr) Operand(i int) *Expr { return e.Operands[i] }

// IsConst reports whether e is an integer literal.
func (e *Expr) IsConst() bool { return e != nil && e.Kind == ExprConst }

// IsZero reports whether e is the literal 0.
func (e *Expr) IsZero() bool { return e.IsConst() && e.Value == 0 }

// ErrDivByZero is returned when a division or remainder has a zero divisor.
var ErrDivByZero = errors.New("division by zero")

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// EvalOp folds op over integer operands. Unary operators use a only.
func EvalOp(op Op, a, b int64) (int64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpDiv:
		if b == 0 {
			return 0, ErrDivByZero
		}
		return a / b, nil
	case OpRem:
		if b == 0 {
			return 0, ErrDivByZero
		}
		return a % b, nil
	case OpAnd:
		return a & b, nil
	case OpOr:
		return a | b, nil
	case OpXor:
		return a ^ b, nil
	case OpShl:
		return a << uint64(b&63), nil
	case OpShr:
		return a >> uint64(b&63), nil
	case OpLand:
		return boolInt(a != 0 && b != 0), nil
	case OpLor:
		return boolInt(a != 0 || b != 0), nil
	case OpNeg:
		return -a, nil
	case OpNot:
		return boolInt(a == 0), nil
	case OpBnot:
		return ^a, nil
	case OpEq:
		return boolInt(a == b), nil
	case OpNe:
		return boolInt(a != b), nil
	case OpLt:
		return boolInt(a < b), nil
	case OpLe:
		return boolInt(a <= b), nil
	case OpGt:
		return boolInt(a > b), nil
	case OpGe:
		return boolInt(a >= b), nil
	default:
		return 0, fmt.Errorf("cannot evaluate operator %s", op)
	}
}
