package inline_test

import (
	"context"
	"strings"
	"testing"

	"ipa/internal/inline"
	"ipa/internal/ir"
)

const guardedSrc = `
func g(v) { return v + 1; }
func f(flag) {
  var t;
  t = 0;
  if (flag == 0) { return t; }
  t = g(5);
  t = g(t);
  return t;
}
`

func TestCollectGuardedCalls(t *testing.T) {
	m := parse(t, guardedSrc)
	sum := inline.Collect(m, fn(t, m, "f"))

	if sum.NumConditions() != 4 {
		t.Fatalf("conditions = %d, want 4", sum.NumConditions())
	}
	vals := sum.EvaluateConditions([]*inline.ArgInfo{inline.ConstArg(0)}, true)
	if vals[2] != inline.TriTrue || vals[3] != inline.TriFalse {
		t.Errorf("flag=0 evaluates to %v", vals)
	}
	if vals[inline.CondNotInlined] != inline.TriFalse {
		t.Errorf("not_inlined must be false when inlined")
	}

	known := sum.CondCost([]*inline.ArgInfo{inline.ConstArg(0)}, true)
	if known.Size != sum.Costs[0].Cost.Size {
		t.Errorf("flag=0 pays %d, want the unconditional %d", known.Size, sum.Costs[0].Cost.Size)
	}
	if unknown := sum.CondCost(nil, true); unknown.Size <= known.Size {
		t.Errorf("unknown flag pays %d, flag=0 pays %d", unknown.Size, known.Size)
	}
	if sum.Static.Size != 760 {
		t.Errorf("static size = %d, want 760", sum.Static.Size)
	}

	if len(sum.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(sum.Edges))
	}
	for id, e := range sum.Edges {
		if !e.Pred.Equal(inline.CondPredicate(3)) {
			t.Errorf("edge %d predicate = %s, want c3", id, e.Pred)
		}
		if e.Freq != inline.FreqBase {
			t.Errorf("edge %d freq = %d", id, e.Freq)
		}
	}
	if len(sum.Args) != 1 {
		t.Errorf("call sites with known args = %d, want 1", len(sum.Args))
	}
}

func TestCollectPrunesFalseGuard(t *testing.T) {
	m := parse(t, guardedSrc)
	sum := inline.Collect(m, fn(t, m, "f"))

	seven := []*inline.ArgInfo{inline.ConstArg(7)}
	vals := sum.EvaluateConditions(seven, false)
	if vals[2] != inline.TriFalse || vals[3] != inline.TriTrue {
		t.Errorf("flag=7 evaluates to %v", vals)
	}

	early := inline.CondPredicate(2).And(inline.CondPredicate(inline.CondNotInlined))
	var guarded inline.InlineCost
	found := false
	for _, item := range sum.Costs {
		if item.Pred.Equal(early) {
			guarded, found = item.Cost, true
		}
	}
	if !found || guarded.Size == 0 {
		t.Fatalf("no cost recorded under %s", early)
	}

	unknown := sum.CondCost(nil, false)
	got := sum.CondCost(seven, false)
	if got.Size != unknown.Size-guarded.Size {
		t.Errorf("flag=7 pays %d, want %d without the early return", got.Size, unknown.Size-guarded.Size)
	}
	if inl := sum.CondCost(seven, true); inl.Size != sum.CondCost(nil, true).Size {
		t.Errorf("inlined flag=7 pays %d, want %d", inl.Size, sum.CondCost(nil, true).Size)
	}
}

func TestAddConditionOverflowDegradesToTrue(t *testing.T) {
	sum := inline.NewSummary(1)
	cond := func(v int64) *inline.Condition {
		return &inline.Condition{Op: ir.OpEq, X: inline.LiteParamExpr(0), Y: inline.LiteConstExpr(v)}
	}
	free := inline.MaxConditions - sum.NumConditions()
	for i := range free {
		p := sum.AddCondition(cond(int64(i)))
		if p.IsTrue() || p.IsFalse() {
			t.Fatalf("condition %d = %s, want a slot", i, p)
		}
	}
	if sum.NumConditions() != inline.MaxConditions {
		t.Fatalf("conditions = %d, want %d", sum.NumConditions(), inline.MaxConditions)
	}
	if p := sum.AddCondition(cond(int64(free))); !p.Equal(inline.TruePredicate()) {
		t.Errorf("overflowing condition = %s, want true", p)
	}
	if sum.NumConditions() != inline.MaxConditions {
		t.Errorf("table grew past %d", inline.MaxConditions)
	}
	if p := sum.AddCondition(cond(0)); !p.Equal(inline.CondPredicate(2)) {
		t.Errorf("known condition = %s, want c2", p)
	}
}

func TestCollectMarksRecursion(t *testing.T) {
	m := parse(t, `
func fact(n) {
  var r;
  if (n <= 1) { return 1; }
  r = fact(n - 1);
  return n * r;
}
`)
	sum := inline.Collect(m, fn(t, m, "fact"))
	if !sum.Recursive {
		t.Errorf("fact should be marked recursive")
	}
}

func TestCollectLoopFrequency(t *testing.T) {
	m := parse(t, `
func g() { return 1; }
func f(n) {
  var i, s;
  s = 0;
  for (i = 0; i < n; i = i + 1) { s = g(); }
  return s;
}
`)
	sum := inline.Collect(m, fn(t, m, "f"))
	if len(sum.Edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(sum.Edges))
	}
	for _, e := range sum.Edges {
		if e.Freq != inline.FreqBase*10 {
			t.Errorf("loop call freq = %d, want %d", e.Freq, inline.FreqBase*10)
		}
		if e.Unlikely {
			t.Errorf("loop call should not be unlikely")
		}
	}
}

func TestCollectAllAndDump(t *testing.T) {
	m := parse(t, guardedSrc)
	sums := inline.NewSummaries()
	if err := inline.CollectAll(context.Background(), m, sums); err != nil {
		t.Fatalf("CollectAll: %v", err)
	}
	if sums.Len() != 2 {
		t.Fatalf("summaries = %d, want 2", sums.Len())
	}
	sum := sums.Get(fn(t, m, "f").ID)
	if sum == nil {
		t.Fatalf("no summary for f")
	}
	var b strings.Builder
	if err := sum.Dump(&b, "f"); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	out := b.String()
	for _, want := range []string{"summary f:", "c2:", "c3:", "args=(5)"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump lacks %q:\n%s", want, out)
		}
	}
}

func TestSummariesRelease(t *testing.T) {
	sums := inline.NewSummaries()
	sums.Put(inline.NewSummary(1))
	if sums.Get(1) == nil {
		t.Fatalf("summary not stored")
	}
	sums.Release()
	sums.Release()
	if !sums.Released() {
		t.Fatalf("Released() = false after Release")
	}
	defer func() {
		if recover() == nil {
			t.Errorf("Get after Release should panic")
		}
	}()
	sums.Get(1)
}

func TestCollectAllCanceled(t *testing.T) {
	m := parse(t, guardedSrc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := inline.CollectAll(ctx, m, inline.NewSummaries()); err == nil {
		t.Errorf("CollectAll on a canceled context should fail")
	}
}
