// Package irexec interprets the IR directly. It is a reference executor for
// checking that transformations preserve observable behaviour, not a fast
// runtime.
package irexec

import (
	"context"
	"errors"
	"fmt"

	"ipa/internal/ir"
)

var (
	ErrStepLimit  = errors.New("irexec: step limit exceeded")
	ErrDepthLimit = errors.New("irexec: call depth limit exceeded")
	ErrNoBody     = errors.New("irexec: function has no body")
	ErrUncaught   = errors.New("irexec: uncaught throw")
)

// Thrown is the error carried by a throw until a try handler catches it.
type Thrown struct {
	Value Value
}

func (t *Thrown) Error() string { return fmt.Sprintf("thrown %s", t.Value) }

// Intrinsic implements an intrinsic or an extern function.
type Intrinsic func(args []Value) (Value, error)

// Options bound execution and supply host functions.
type Options struct {
	MaxSteps int
	MaxDepth int
	// Host resolves intrinsics and bodiless functions by name.
	Host map[string]Intrinsic
}

// DefaultOptions returns generous limits suitable for tests.
func DefaultOptions() Options {
	return Options{MaxSteps: 1_000_000, MaxDepth: 256}
}

// Machine holds global state across calls.
type Machine struct {
	m       *ir.Module
	opts    Options
	globals []*Value
	steps   int
	depth   int
}

// New prepares a machine with globals set to their initialisers.
func New(m *ir.Module, opts Options) (*Machine, error) {
	mc := &Machine{m: m, opts: opts, globals: make([]*Value, len(m.Globals))}
	for i := 1; i < len(m.Globals); i++ {
		g := m.Globals[i]
		v := &Value{}
		if g.Init != nil && g.Init.Kind != ir.ConstAgg {
			cv, err := constValue(g.Init)
			if err != nil {
				return nil, fmt.Errorf("global %s: %w", g.Name, err)
			}
			*v = cv
		}
		mc.globals[i] = v
	}
	return mc, nil
}

// Run executes the named function on a fresh machine with default options.
func Run(ctx context.Context, m *ir.Module, name string, args ...int64) (int64, error) {
	mc, err := New(m, DefaultOptions())
	if err != nil {
		return 0, err
	}
	v, err := mc.Call(ctx, name, args...)
	return v.N, err
}

// Call executes the named function.
func (mc *Machine) Call(ctx context.Context, name string, args ...int64) (Value, error) {
	f := mc.m.FuncByName(name)
	if f == nil {
		return Value{}, fmt.Errorf("irexec: unknown function %q", name)
	}
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = IntValue(a)
	}
	v, err := mc.call(ctx, f, vals)
	var th *Thrown
	if errors.As(err, &th) {
		return Value{}, fmt.Errorf("%w: %s", ErrUncaught, th.Value)
	}
	return v, err
}

// Global returns the current value of a scalar global.
func (mc *Machine) Global(name string) (Value, bool) {
	id, ok := mc.m.GlobalByName(name)
	if !ok {
		return Value{}, false
	}
	return *mc.globals[id], true
}

// Steps returns the number of statements executed so far.
func (mc *Machine) Steps() int { return mc.steps }

type frame struct {
	fn     *ir.Func
	locals []*Value
	pregs  []Value
}

type ctrlKind uint8

const (
	ctrlNext ctrlKind = iota
	ctrlReturn
	ctrlGoto
)

type ctrl struct {
	kind  ctrlKind
	label ir.LabelID
	value Value
}

func (mc *Machine) call(ctx context.Context, f *ir.Func, args []Value) (Value, error) {
	if f.Body == nil {
		if h, ok := mc.opts.Host[f.Name]; ok {
			return h(args)
		}
		return Value{}, fmt.Errorf("%w: %s", ErrNoBody, f.Name)
	}
	if mc.opts.MaxDepth > 0 && mc.depth >= mc.opts.MaxDepth {
		return Value{}, ErrDepthLimit
	}
	mc.depth++
	defer func() { mc.depth-- }()

	fr := &frame{fn: f, locals: make([]*Value, len(f.Locals)), pregs: make([]Value, len(f.Pregs))}
	for i := 1; i < len(f.Locals); i++ {
		v := &Value{}
		if s := f.Locals[i]; s != nil && s.Init != nil && s.Init.Kind != ir.ConstAgg {
			cv, err := constValue(s.Init)
			if err != nil {
				return Value{}, err
			}
			*v = cv
		}
		fr.locals[i] = v
	}
	for i, id := range f.Formals {
		if i < len(args) {
			*fr.locals[id] = args[i]
		}
	}
	c, err := mc.block(ctx, fr, f.Body)
	if err != nil {
		return Value{}, err
	}
	if c.kind == ctrlGoto {
		return Value{}, fmt.Errorf("irexec: %s: goto to unknown label %d", f.Name, c.label)
	}
	return c.value, nil
}

// block runs b. A goto whose label is a direct child of b resumes there;
// any other goto propagates to the enclosing block.
func (mc *Machine) block(ctx context.Context, fr *frame, b *ir.Block) (ctrl, error) {
	if b == nil {
		return ctrl{}, nil
	}
	for i := 0; i < len(b.Stmts); i++ {
		c, err := mc.stmt(ctx, fr, b.Stmts[i])
		if err != nil {
			return ctrl{}, err
		}
		switch c.kind {
		case ctrlReturn:
			return c, nil
		case ctrlGoto:
			idx := labelIndex(b, c.label)
			if idx < 0 {
				return c, nil
			}
			i = idx
		}
	}
	return ctrl{}, nil
}

func labelIndex(b *ir.Block, l ir.LabelID) int {
	for i, s := range b.Stmts {
		if d, ok := s.Data.(*ir.LabelData); ok && d.Label == l {
			return i
		}
	}
	return -1
}

func (mc *Machine) tick(ctx context.Context) error {
	mc.steps++
	if mc.opts.MaxSteps > 0 && mc.steps > mc.opts.MaxSteps {
		return ErrStepLimit
	}
	if mc.steps%1024 == 0 {
		return ctx.Err()
	}
	return nil
}

func (mc *Machine) stmt(ctx context.Context, fr *frame, s *ir.Stmt) (ctrl, error) {
	if err := mc.tick(ctx); err != nil {
		return ctrl{}, err
	}
	switch d := s.Data.(type) {
	case *ir.AssignData:
		v, err := mc.expr(fr, d.Value)
		if err != nil {
			return ctrl{}, err
		}
		*mc.cell(fr, d.Dst) = v
	case *ir.RegAssignData:
		v, err := mc.expr(fr, d.Value)
		if err != nil {
			return ctrl{}, err
		}
		fr.pregs[d.Reg] = v
	case *ir.CallData:
		return ctrl{}, mc.callStmt(ctx, fr, d)
	case *ir.IfData:
		cond, err := mc.expr(fr, d.Cond)
		if err != nil {
			return ctrl{}, err
		}
		if cond.Truth() {
			return mc.block(ctx, fr, d.Then)
		}
		return mc.block(ctx, fr, d.Else)
	case *ir.WhileData:
		return mc.loop(ctx, fr, s.Kind == ir.StmtDoWhile, d.Cond, d.Body, nil)
	case *ir.DoLoopData:
		start, err := mc.expr(fr, d.Start)
		if err != nil {
			return ctrl{}, err
		}
		v := mc.cell(fr, d.Var)
		*v = start
		return mc.loop(ctx, fr, false, d.Cond, d.Body, func() error {
			next, err := mc.expr(fr, d.Incr)
			*v = next
			return err
		})
	case *ir.SwitchData:
		v, err := mc.expr(fr, d.Value)
		if err != nil {
			return ctrl{}, err
		}
		for _, c := range d.Cases {
			if c.Value == v.N {
				return ctrl{kind: ctrlGoto, label: c.Label}, nil
			}
		}
		if d.Default.IsValid() {
			return ctrl{kind: ctrlGoto, label: d.Default}, nil
		}
	case *ir.LabelData, *ir.CommentData:
	case *ir.GotoData:
		return ctrl{kind: ctrlGoto, label: d.Label}, nil
	case *ir.CondGotoData:
		v, err := mc.expr(fr, d.Cond)
		if err != nil {
			return ctrl{}, err
		}
		if v.Truth() != d.OnFalse {
			return ctrl{kind: ctrlGoto, label: d.Label}, nil
		}
	case *ir.ReturnData:
		var v Value
		if d.Value != nil {
			var err error
			if v, err = mc.expr(fr, d.Value); err != nil {
				return ctrl{}, err
			}
		}
		return ctrl{kind: ctrlReturn, value: v}, nil
	case *ir.TryData:
		c, err := mc.block(ctx, fr, d.Body)
		var th *Thrown
		if errors.As(err, &th) {
			return mc.block(ctx, fr, d.Handler)
		}
		return c, err
	case *ir.ThrowData:
		v, err := mc.expr(fr, d.Value)
		if err != nil {
			return ctrl{}, err
		}
		return ctrl{}, &Thrown{Value: v}
	case *ir.EvalData:
		_, err := mc.expr(fr, d.Value)
		return ctrl{}, err
	case *ir.BlockData:
		return mc.block(ctx, fr, d.Block)
	default:
		return ctrl{}, fmt.Errorf("irexec: unsupported statement %s", s.Kind)
	}
	return ctrl{}, nil
}

func (mc *Machine) loop(ctx context.Context, fr *frame, postTest bool, cond *ir.Expr, body *ir.Block, step func() error) (ctrl, error) {
	first := true
	for {
		if !(postTest && first) {
			c, err := mc.expr(fr, cond)
			if err != nil {
				return ctrl{}, err
			}
			if !c.Truth() {
				return ctrl{}, nil
			}
		}
		first = false
		c, err := mc.block(ctx, fr, body)
		if err != nil || c.kind != ctrlNext {
			return c, err
		}
		if step != nil {
			if err := step(); err != nil {
				return ctrl{}, err
			}
		}
		if err := mc.tick(ctx); err != nil {
			return ctrl{}, err
		}
	}
}

func (mc *Machine) callStmt(ctx context.Context, fr *frame, d *ir.CallData) error {
	args := make([]Value, len(d.Args))
	for i, a := range d.Args {
		v, err := mc.expr(fr, a)
		if err != nil {
			return err
		}
		args[i] = v
	}
	var (
		res Value
		err error
	)
	switch d.Kind {
	case ir.CallIntrinsic:
		if h, ok := mc.opts.Host[d.Intrinsic]; ok {
			res, err = h(args)
		}
	case ir.CallIndirect:
		var target Value
		if target, err = mc.expr(fr, d.Target); err != nil {
			return err
		}
		f := mc.m.Func(target.Fn)
		if f == nil {
			return fmt.Errorf("irexec: %s: indirect call through %s", fr.fn.Name, target)
		}
		res, err = mc.call(ctx, f, args)
	default:
		f, rerr := mc.resolve(d)
		if rerr != nil {
			return fmt.Errorf("irexec: %s: %w", fr.fn.Name, rerr)
		}
		res, err = mc.call(ctx, f, args)
	}
	if err != nil {
		return err
	}
	if d.HasResult {
		*mc.cell(fr, d.Result) = res
	}
	return nil
}

// resolve picks the callee of a direct, virtual, interface or super call.
// Dispatch is static: the named class's own method, else the nearest
// inherited one. Interfaces dispatch to their only implementation.
func (mc *Machine) resolve(d *ir.CallData) (*ir.Func, error) {
	if d.Kind == ir.CallDirect || (d.Kind == ir.CallSuper && d.Callee.IsValid()) {
		if f := mc.m.Func(d.Callee); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("call to deleted function %d", d.Callee)
	}
	if d.Kind == ir.CallInterface {
		var found *ir.Func
		for _, c := range mc.m.Classes {
			if c.Interface {
				continue
			}
			for _, md := range c.Methods {
				if md.Selector == d.Method && implementsIface(mc.m, c, d.Class) && md.Func.IsValid() {
					if found != nil && found.ID != md.Func {
						return nil, fmt.Errorf("interface call %s.%s has several implementations", d.Class, d.Method)
					}
					found = mc.m.Func(md.Func)
				}
			}
		}
		if found == nil {
			return nil, fmt.Errorf("no implementation of %s.%s", d.Class, d.Method)
		}
		return found, nil
	}
	for c := mc.m.Class(d.Class); c != nil; c = mc.m.Class(c.Super) {
		for _, md := range c.Methods {
			if md.Selector == d.Method && md.Func.IsValid() {
				if f := mc.m.Func(md.Func); f != nil {
					return f, nil
				}
			}
		}
		if c.Super == "" {
			break
		}
	}
	return nil, fmt.Errorf("no method %s.%s", d.Class, d.Method)
}

func implementsIface(m *ir.Module, c *ir.ClassDecl, iface string) bool {
	for cur := c; cur != nil; cur = m.Class(cur.Super) {
		for _, name := range cur.Implements {
			if name == iface {
				return true
			}
		}
		if cur.Super == "" {
			return false
		}
	}
	return false
}

func (mc *Machine) cell(fr *frame, ref ir.SymRef) *Value {
	if ref.Global {
		return mc.globals[ref.ID]
	}
	return fr.locals[ref.ID]
}
