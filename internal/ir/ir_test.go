package ir_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ipa/internal/ir"
)

// buildAdd returns a module with add(a, b) { return a + b; } and main calling it.
func buildAdd(t *testing.T) (*ir.Module, *ir.Func, *ir.Func) {
	t.Helper()
	m := ir.NewModule("test")
	add := ir.NewFunc("add", 0)
	a := add.NewFormal("a")
	b := add.NewFormal("b")
	add.HasResult = true
	add.Body = &ir.Block{Stmts: []*ir.Stmt{
		m.NewStmt(ir.StmtReturn, &ir.ReturnData{
			Value: ir.Binary(ir.OpAdd, ir.Read(ir.LocalRef(a)), ir.Read(ir.LocalRef(b))),
		}),
	}}
	m.AddFunc(add)

	main := ir.NewFunc("main", 0)
	x := main.NewLocal("x", ir.StorageLocal)
	main.Body = &ir.Block{Stmts: []*ir.Stmt{
		m.NewStmt(ir.StmtCall, &ir.CallData{
			Kind:      ir.CallDirect,
			Callee:    add.ID,
			Args:      []*ir.Expr{ir.Int(1), ir.Int(2)},
			HasResult: true,
			Result:    ir.LocalRef(x),
		}),
		m.NewStmt(ir.StmtReturn, &ir.ReturnData{}),
	}}
	m.AddFunc(main)
	return m, add, main
}

func TestCloneGivesFreshIDs(t *testing.T) {
	m, add, _ := buildAdd(t)
	orig := add.Body.Stmts[0]
	cp := ir.CloneBlock(m, add.Body)
	if cp.Stmts[0] == orig {
		t.Fatal("clone aliases the original statement")
	}
	if cp.Stmts[0].ID == orig.ID {
		t.Fatalf("clone reused statement id %d", orig.ID)
	}
	ret := cp.Stmts[0].Data.(*ir.ReturnData)
	ret.Value.Operands[0] = ir.Int(7)
	if orig.Data.(*ir.ReturnData).Value.Operands[0].Kind != ir.ExprRead {
		t.Fatal("mutating the clone changed the original expression")
	}
}

func TestDeleteFuncTombstones(t *testing.T) {
	m, add, _ := buildAdd(t)
	m.DeleteFunc(add.ID)
	if m.Func(add.ID) != nil {
		t.Fatal("deleted function still resolvable by id")
	}
	if m.FuncByName("add") != nil {
		t.Fatal("deleted function still resolvable by name")
	}
	for _, id := range m.FuncList {
		if id == add.ID {
			t.Fatal("deleted function still in the function list")
		}
	}
	if err := ir.Verify(m); err == nil {
		t.Fatal("expected verify to report the call to the deleted function")
	}
}

func TestVerifyCleanModule(t *testing.T) {
	m, _, _ := buildAdd(t)
	if err := ir.Verify(m); err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
}

func TestVerifyDuplicateLabel(t *testing.T) {
	m := ir.NewModule("test")
	f := ir.NewFunc("f", 0)
	l := f.NewLabel("L")
	f.Body = &ir.Block{Stmts: []*ir.Stmt{
		m.NewStmt(ir.StmtLabel, &ir.LabelData{Label: l}),
		m.NewStmt(ir.StmtLabel, &ir.LabelData{Label: l}),
	}}
	m.AddFunc(f)
	err := ir.Verify(m)
	if err == nil || !strings.Contains(err.Error(), "defined 2 times") {
		t.Fatalf("expected duplicate label error, got %v", err)
	}
}

func TestPrintFunction(t *testing.T) {
	m, _, _ := buildAdd(t)
	var buf bytes.Buffer
	if err := ir.Fprint(&buf, m); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"func add(a, b) int {", "return (a + b);", "x = add(1, 2);", "var x;"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEvalOp(t *testing.T) {
	cases := []struct {
		op   ir.Op
		a, b int64
		want int64
	}{
		{ir.OpAdd, 2, 3, 5},
		{ir.OpSub, 2, 3, -1},
		{ir.OpLt, 2, 3, 1},
		{ir.OpGe, 2, 3, 0},
		{ir.OpLand, 1, 0, 0},
		{ir.OpNot, 0, 0, 1},
	}
	for _, tc := range cases {
		got, err := ir.EvalOp(tc.op, tc.a, tc.b)
		if err != nil {
			t.Fatalf("%s: %v", tc.op, err)
		}
		if got != tc.want {
			t.Errorf("%d %s %d = %d, want %d", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
	if _, err := ir.EvalOp(ir.OpDiv, 1, 0); !errors.Is(err, ir.ErrDivByZero) {
		t.Fatalf("expected ErrDivByZero, got %v", err)
	}
}

func TestConstElem(t *testing.T) {
	c := &ir.Const{Kind: ir.ConstAgg, Elems: []ir.Const{
		{Kind: ir.ConstInt, Int: 1},
		{Kind: ir.ConstAgg, Elems: []ir.Const{{Kind: ir.ConstFuncAddr, Func: 3}}},
	}}
	e, ok := c.Elem(1, 0)
	if !ok || e.Kind != ir.ConstFuncAddr || e.Func != 3 {
		t.Fatalf("Elem(1, 0) = %+v, %v", e, ok)
	}
	if _, ok := c.Elem(2); ok {
		t.Fatal("out of range index should fail")
	}
	if _, ok := c.Elem(0, 0); ok {
		t.Fatal("indexing a scalar should fail")
	}
}

func TestRegionPanicsAfterRelease(t *testing.T) {
	r := ir.NewRegion[ir.FuncID, int]("summary")
	r.Put(1, 10)
	if v, ok := r.Get(1); !ok || v != 10 {
		t.Fatalf("Get(1) = %d, %v", v, ok)
	}
	r.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on use after release")
		}
	}()
	r.Get(1)
}

func TestFindStmt(t *testing.T) {
	m, _, main := buildAdd(t)
	call := main.Body.Stmts[0]
	b, idx, ok := ir.FindStmt(main.Body, call)
	if !ok || b != main.Body || idx != 0 {
		t.Fatalf("FindStmt = %v, %d, %v", b, idx, ok)
	}
	if got := ir.FindStmtByID(main.Body, call.ID); got != call {
		t.Fatal("FindStmtByID did not return the call")
	}
	if n := ir.CountStmts(main.Body); n != 2 {
		t.Fatalf("CountStmts = %d, want 2", n)
	}
	_ = m
}
