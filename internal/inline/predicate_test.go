package inline_test

import (
	"testing"

	"ipa/internal/inline"
	"ipa/internal/ir"
)

func TestPredicateAlgebra(t *testing.T) {
	c2, c3 := inline.CondPredicate(2), inline.CondPredicate(3)

	if got := c2.And(c3).Or(c2); !got.Equal(c2) {
		t.Errorf("(c2 && c3) || c2 = %s, want c2", got)
	}
	if got := inline.TruePredicate().And(c3); !got.Equal(c3) {
		t.Errorf("true && c3 = %s", got)
	}
	if got := inline.FalsePredicate().Or(c2); !got.Equal(c2) {
		t.Errorf("false || c2 = %s", got)
	}
	if got := c2.And(inline.FalsePredicate()); !got.IsFalse() {
		t.Errorf("c2 && false = %s", got)
	}
	if got := c2.Or(inline.TruePredicate()); !got.IsTrue() {
		t.Errorf("c2 || true = %s", got)
	}
	if !inline.CondPredicate(0).IsFalse() {
		t.Errorf("condition 0 must be false")
	}
}

func TestPredicateEvaluate(t *testing.T) {
	p := inline.CondPredicate(2).And(inline.CondPredicate(3))
	tests := []struct {
		vals []inline.Tri
		want inline.Tri
	}{
		{[]inline.Tri{inline.TriFalse, inline.TriTrue, inline.TriTrue, inline.TriUnknown}, inline.TriUnknown},
		{[]inline.Tri{inline.TriFalse, inline.TriTrue, inline.TriTrue, inline.TriFalse}, inline.TriFalse},
		{[]inline.Tri{inline.TriFalse, inline.TriTrue, inline.TriTrue, inline.TriTrue}, inline.TriTrue},
		{[]inline.Tri{inline.TriFalse, inline.TriTrue, inline.TriTrue}, inline.TriUnknown},
	}
	for i, tt := range tests {
		if got := p.Evaluate(tt.vals); got != tt.want {
			t.Errorf("case %d: Evaluate = %s, want %s", i, got, tt.want)
		}
	}
	if got := inline.FalsePredicate().Evaluate(nil); got != inline.TriFalse {
		t.Errorf("false evaluates to %s", got)
	}
}

func TestPredicateRemap(t *testing.T) {
	var m [inline.MaxConditions]int
	m[2] = 5
	if got := inline.CondPredicate(2).Remap(&m); !got.Equal(inline.CondPredicate(5)) {
		t.Errorf("remap c2 = %s, want c5", got)
	}
	// unmapped slots point at the false condition
	if got := inline.CondPredicate(3).Remap(&m); !got.IsFalse() {
		t.Errorf("remap c3 = %s, want false", got)
	}
}

func TestPredicateCollapsesWhenTooWide(t *testing.T) {
	p := inline.FalsePredicate()
	for idx := 2; idx < 19; idx++ {
		p = p.Or(inline.CondPredicate(idx))
	}
	if !p.IsTrue() {
		t.Errorf("17 disjuncts should degrade to true, got %s", p)
	}
}

func TestConditionEval(t *testing.T) {
	lt := &inline.Condition{Op: ir.OpLt, X: inline.LiteParamExpr(0), Y: inline.LiteConstExpr(10)}
	small := &inline.ArgInfo{Lo: 0, Hi: 5, HasRange: true, FormalIdx: -1}
	tests := []struct {
		name string
		cond *inline.Condition
		arg  *inline.ArgInfo
		want inline.Tri
	}{
		{"range below", lt, small, inline.TriTrue},
		{"range below reversed", lt.Negated(), small, inline.TriFalse},
		{"const above", lt, inline.ConstArg(20), inline.TriFalse},
		{"passed through", lt, inline.FormalArg(1), inline.TriUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Eval([]*inline.ArgInfo{tt.arg}); got != tt.want {
				t.Errorf("Eval = %s, want %s", got, tt.want)
			}
		})
	}
	if got := lt.Eval(nil); got != inline.TriUnknown {
		t.Errorf("missing argument evaluates to %s", got)
	}
}
