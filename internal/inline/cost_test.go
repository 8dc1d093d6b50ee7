package inline_test

import (
	"testing"

	"ipa/internal/inline"
	"ipa/internal/ir"
)

func TestEstimateStmt(t *testing.T) {
	m := parse(t, `
global g = 0;
func f(x) {
  var y;
  y = x * 3;
  y = x / 3;
  g = y;
  return y;
}
`)
	f := fn(t, m, "f")
	ca := inline.NewCostAnalyzer(m, f)
	stmts := f.Body.Stmts

	mul := ca.EstimateStmt(stmts[0])
	if mul.Size != 130 || mul.Cycles != 130 {
		t.Errorf("y = x * 3 costs %+v, want size 130", mul)
	}
	div := ca.EstimateStmt(stmts[1])
	if div.Size != 130 {
		t.Errorf("y = x / 3 size = %d, want 130", div.Size)
	}
	if div.Cycles <= float64(div.Size)*10 {
		t.Errorf("division should be slow, got %+v", div)
	}
	store := ca.EstimateStmt(stmts[2])
	if store.Size != inline.CostDouble+inline.CostOne+inline.CostFree {
		t.Errorf("global store size = %d", store.Size)
	}
	if got := ca.EstimateStmt(stmts[3]).Insns(); got != 1 {
		t.Errorf("return insns = %d, want 1", got)
	}
}

func TestEstimateBlockWeightsLoops(t *testing.T) {
	m := parse(t, `
func f(x) {
  while (x > 0) { x = x - 1; }
  return x;
}
`)
	f := fn(t, m, "f")
	ca := inline.NewCostAnalyzer(m, f)
	loop := &ir.Block{Stmts: f.Body.Stmts[:1]}
	got := ca.EstimateBlock(loop)
	// test 110 (compare against zero is free), body 80 run ten times
	if got.Size != 190 {
		t.Errorf("loop size = %d, want 190", got.Size)
	}
	if got.Cycles != 910 {
		t.Errorf("loop cycles = %v, want 910", got.Cycles)
	}
	if whole := ca.EstimateFunc(); whole.Size != got.Size+110 {
		t.Errorf("function size = %d, want %d", whole.Size, got.Size+110)
	}
}

func TestTryIsPricedOut(t *testing.T) {
	m := parse(t, `
func f(x) {
  try { throw x; } catch { x = 0; }
  return x;
}
`)
	f := fn(t, m, "f")
	if got := inline.NewCostAnalyzer(m, f).EstimateFunc(); got.Size < inline.CostInfinity {
		t.Errorf("try/throw should be prohibitive, got size %d", got.Size)
	}
}

func TestCallCost(t *testing.T) {
	m := parse(t, `
global out = 0;
func g(a, b) { return a + b; }
func f(x) {
  var r;
  r = g(x, 2);
  out = g(x, 0);
  g(1, 1);
  return r;
}
`)
	f := fn(t, m, "f")
	ca := inline.NewCostAnalyzer(m, f)
	tests := []struct {
		stmt int
		want int64
	}{
		{0, 100 + 10 + 10 + 100},
		{1, 100 + 10 + 100 + 200},
		{2, 100 + 10 + 10},
	}
	for _, tt := range tests {
		d := f.Body.Stmts[tt.stmt].Call()
		if d == nil {
			t.Fatalf("stmt %d is not a call", tt.stmt)
		}
		if got := ca.CallCost(d).Size; got != tt.want {
			t.Errorf("stmt %d call cost = %d, want %d", tt.stmt, got, tt.want)
		}
	}
}

func TestInlineCostArithmetic(t *testing.T) {
	a := inline.InlineCost{Size: 250, Cycles: 400}
	b := inline.InlineCost{Size: 50, Cycles: 100}
	if got := a.Add(b); got.Size != 300 || got.Cycles != 500 {
		t.Errorf("Add = %+v", got)
	}
	if got := a.Sub(b).Neg(); got.Size != -200 || got.Cycles != -300 {
		t.Errorf("Sub/Neg = %+v", got)
	}
	if got := a.AtFreq(inline.FreqBase / 4); got.Size != 250 || got.Cycles != 100 {
		t.Errorf("AtFreq = %+v, size must not scale", got)
	}
	if a.Insns() != 2 {
		t.Errorf("Insns = %d, want 2", a.Insns())
	}
}
