package irexec

import (
	"fmt"

	"ipa/internal/ir"
)

// Value is a runtime value: an integer, a function address or the address of
// a variable.
type Value struct {
	N   int64
	Fn  ir.FuncID
	Ptr *Value
}

// IntValue wraps an integer.
func IntValue(n int64) Value { return Value{N: n} }

// IsFunc reports whether v holds a function address.
func (v Value) IsFunc() bool { return v.Fn.IsValid() }

// Truth is C truthiness: any non-zero integer or non-null address.
func (v Value) Truth() bool { return v.N != 0 || v.Fn.IsValid() || v.Ptr != nil }

func (v Value) String() string {
	switch {
	case v.Fn.IsValid():
		return fmt.Sprintf("&fn%d", v.Fn)
	case v.Ptr != nil:
		return fmt.Sprintf("&%p", v.Ptr)
	}
	return fmt.Sprintf("%d", v.N)
}

func constValue(c *ir.Const) (Value, error) {
	switch c.Kind {
	case ir.ConstInt:
		return Value{N: c.Int}, nil
	case ir.ConstFuncAddr:
		return Value{Fn: c.Func}, nil
	}
	return Value{}, fmt.Errorf("aggregate used as a scalar")
}
