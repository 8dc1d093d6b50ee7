package inline_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"ipa/internal/callgraph"
	"ipa/internal/diag"
	"ipa/internal/inline"
	"ipa/internal/ir"
	"ipa/internal/testkit"
)

func splice(t *testing.T, g *callgraph.CallGraph, rep diag.Reporter, caller, callee string) inline.Outcome {
	t.Helper()
	tf := inline.NewTransformer(g, nil, rep)
	out, err := tf.PerformInline(context.Background(), site(t, g, caller, callee))
	if err != nil {
		t.Fatalf("PerformInline(%s -> %s): %v", caller, callee, err)
	}
	return out
}

func checkInvariants(t *testing.T, g *callgraph.CallGraph) {
	t.Helper()
	if err := testkit.CheckModule(g.Module); err != nil {
		t.Errorf("module: %v", err)
	}
	if err := testkit.CheckCallGraph(g); err != nil {
		t.Errorf("call graph: %v", err)
	}
}

func TestInlineSubstitutesConstantArgument(t *testing.T) {
	m, g := build(t, `
func callee(x) { return x + 1; }
func main() {
  var r;
  r = callee(5);
  return r;
}
`)
	out := splice(t, g, nil, "main", "callee")
	if !out.Spliced || len(out.NewCalls) != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	checkInvariants(t, g)
	if got := run(t, m, "main"); got != 6 {
		t.Errorf("main() = %d, want 6", got)
	}

	main, callee := fn(t, m, "main"), fn(t, m, "callee")
	if _, ok := main.LocalByName(fmt.Sprintf("_%d_x_0", callee.ID)); ok {
		t.Errorf("constant formal should be substituted, not copied")
	}
	if _, ok := main.LabelByName(fmt.Sprintf("_%d_return_0", callee.ID)); ok {
		t.Errorf("a single trailing return needs no label")
	}
	first := main.Body.Stmts[0]
	if c, ok := first.Data.(*ir.CommentData); !ok || c.Text != "inline begin: callee" {
		t.Errorf("first stmt = %v, want the begin comment", first.Kind)
	}
	if node(t, g, "callee").InlinedTimes != 1 {
		t.Errorf("InlinedTimes not bumped")
	}
	if len(node(t, g, "main").Callsites()) != 0 {
		t.Errorf("main still has call sites")
	}
}

func TestInlineCopiesWrittenFormal(t *testing.T) {
	m, g := build(t, `
func bump(x) {
  x = x + 1;
  return x;
}
func main(a) {
  var r;
  r = bump(a);
  return r + a;
}
`)
	splice(t, g, nil, "main", "bump")
	checkInvariants(t, g)
	if got := run(t, m, "main", 3); got != 7 {
		t.Errorf("main(3) = %d, want 7", got)
	}
	if _, ok := fn(t, m, "main").LocalByName(fmt.Sprintf("_%d_x_0", fn(t, m, "bump").ID)); !ok {
		t.Errorf("written formal should get a renamed local")
	}
}

func TestInlineEarlyReturn(t *testing.T) {
	m, g := build(t, `
func pick(x) {
  if (x > 0) { return 1; }
  return 2;
}
func main(n) {
  var r;
  r = pick(n);
  return r * 10;
}
`)
	splice(t, g, nil, "main", "pick")
	checkInvariants(t, g)
	if got := run(t, m, "main", 1); got != 10 {
		t.Errorf("main(1) = %d, want 10", got)
	}
	if got := run(t, m, "main", -1); got != 20 {
		t.Errorf("main(-1) = %d, want 20", got)
	}
	label := fmt.Sprintf("_%d_return_0", fn(t, m, "pick").ID)
	if _, ok := fn(t, m, "main").LabelByName(label); !ok {
		t.Errorf("label %s missing", label)
	}
}

func TestInlineReusesFollowingLabel(t *testing.T) {
	m, g := build(t, `
func pick(x) {
  if (x > 0) { return 1; }
  return 2;
}
func main(n) {
  var r;
  r = pick(n);
done:
  return r;
}
`)
	splice(t, g, nil, "main", "pick")
	checkInvariants(t, g)
	if _, ok := fn(t, m, "main").LabelByName(fmt.Sprintf("_%d_return_0", fn(t, m, "pick").ID)); ok {
		t.Errorf("a fresh return label was created next to an existing one")
	}
	if got := run(t, m, "main", 5); got != 1 {
		t.Errorf("main(5) = %d, want 1", got)
	}
}

func TestInlineRenamesPerCopy(t *testing.T) {
	m, g := build(t, `
func sq(x) {
  var y;
  y = x * x;
  return y;
}
func main(a) {
  var r, s;
  r = sq(a);
  s = sq(r);
  return s;
}
`)
	tf := inline.NewTransformer(g, nil, nil)
	for _, cs := range slices.Clone(node(t, g, "main").Callsites()) {
		if _, err := tf.PerformInline(context.Background(), cs.Info); err != nil {
			t.Fatalf("PerformInline: %v", err)
		}
	}
	checkInvariants(t, g)
	main, sq := fn(t, m, "main"), fn(t, m, "sq")
	for _, name := range []string{fmt.Sprintf("_%d_y_0", sq.ID), fmt.Sprintf("_%d_y_1", sq.ID)} {
		if _, ok := main.LocalByName(name); !ok {
			t.Errorf("local %s missing", name)
		}
	}
	if got := run(t, m, "main", 3); got != 81 {
		t.Errorf("main(3) = %d, want 81", got)
	}
}

func TestInlineEmptyCalleeDropsCall(t *testing.T) {
	m, g := build(t, `
static func nop() { }
func main() {
  nop();
  return 1;
}
`)
	ci := site(t, g, "main", "nop")
	bag := diag.NewBag(10)
	out := splice(t, g, diag.BagReporter{Bag: bag}, "main", "nop")
	if out.Spliced {
		t.Fatalf("empty callee was spliced")
	}
	if ci.Failed() != callgraph.FailedEmptyCallee {
		t.Errorf("failed = %s", ci.Failed())
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.InlineEmptyCallee {
		t.Errorf("diagnostics = %v", bag.Items())
	}
	checkInvariants(t, g)
	if got := run(t, m, "main"); got != 1 {
		t.Errorf("main() = %d, want 1", got)
	}
}

func TestInlineSelfRecursion(t *testing.T) {
	m, g := build(t, `
func fact(n) {
  var r;
  if (n <= 1) { return 1; }
  r = fact(n - 1);
  return n * r;
}
`)
	out := splice(t, g, nil, "fact", "fact")
	checkInvariants(t, g)
	if len(out.NewCalls) != 1 {
		t.Fatalf("new calls = %d, want 1", len(out.NewCalls))
	}
	n := node(t, g, "fact")
	if n.OriginBody == nil || n.RecursionLevel != 1 {
		t.Errorf("origin body %v, recursion level %d", n.OriginBody != nil, n.RecursionLevel)
	}
	if got := run(t, m, "fact", 5); got != 120 {
		t.Errorf("fact(5) = %d, want 120", got)
	}
}

func TestInlineNestedTry(t *testing.T) {
	m, g := build(t, `
func risky(x) {
  try { if (x > 0) { throw x; } } catch { return 7; }
  if (x == 0) { throw x; }
  return 0;
}
func main(a) {
  var r;
  r = 0;
  try { r = risky(a); } catch { r = 99; }
  return r;
}
`)
	// The inner handler catches positive arguments; zero escapes to main.
	cases := []struct{ arg, want int64 }{{1, 7}, {0, 99}, {-1, 0}}
	for _, tc := range cases {
		if got := run(t, m, "main", tc.arg); got != tc.want {
			t.Fatalf("before inlining main(%d) = %d, want %d", tc.arg, got, tc.want)
		}
	}
	out := splice(t, g, nil, "main", "risky")
	if !out.NestedTry {
		t.Errorf("nested try not reported")
	}
	checkInvariants(t, g)
	for _, tc := range cases {
		if got := run(t, m, "main", tc.arg); got != tc.want {
			t.Errorf("after inlining main(%d) = %d, want %d", tc.arg, got, tc.want)
		}
	}
}

func TestInlineResetsLocalsInLoop(t *testing.T) {
	m, g := build(t, `
func acc(x) {
  var s;
  s = s + x;
  return s;
}
func main() {
  var i;
  var r;
  var t;
  i = 0;
  t = 0;
  while (i < 3) {
    r = acc(5);
    t = t + r;
    i = i + 1;
  }
  return t;
}
`)
	if got := run(t, m, "main"); got != 15 {
		t.Fatalf("before inlining main() = %d, want 15", got)
	}
	splice(t, g, nil, "main", "acc")
	checkInvariants(t, g)
	if got := run(t, m, "main"); got != 15 {
		t.Errorf("after inlining main() = %d, want 15", got)
	}
	if _, ok := fn(t, m, "main").LocalByName(fmt.Sprintf("_%d_s_0", fn(t, m, "acc").ID)); !ok {
		t.Errorf("callee local should be renamed into main")
	}
}

func TestInlineCopiesAddressTakenFormal(t *testing.T) {
	m, g := build(t, `
func callee(x) {
  var p;
  p = &x;
  return x + 1;
}
func main() {
  var r;
  r = callee(5);
  return r;
}
`)
	splice(t, g, nil, "main", "callee")
	checkInvariants(t, g)
	if got := run(t, m, "main"); got != 6 {
		t.Errorf("main() = %d, want 6", got)
	}
	if _, ok := fn(t, m, "main").LocalByName(fmt.Sprintf("_%d_x_0", fn(t, m, "callee").ID)); !ok {
		t.Errorf("address-taken formal should get a renamed local")
	}
}

func TestInlineArgumentMismatch(t *testing.T) {
	m, g := build(t, `
func callee(x) { return x + 1; }
func main() {
  var r;
  r = callee(5, 9);
  return r;
}
`)
	bag := diag.NewBag(10)
	splice(t, g, diag.BagReporter{Bag: bag}, "main", "callee")
	if bag.Len() != 1 || bag.Items()[0].Code != diag.InlineArgMismatch {
		t.Errorf("diagnostics = %v", bag.Items())
	}
	if got := run(t, m, "main"); got != 6 {
		t.Errorf("main() = %d, want 6", got)
	}
}

func TestInlineTwiceFails(t *testing.T) {
	_, g := build(t, `
func callee(x) { return x + 1; }
func main() {
  var r;
  r = callee(5);
  return r;
}
`)
	ci := site(t, g, "main", "callee")
	tf := inline.NewTransformer(g, nil, nil)
	if _, err := tf.PerformInline(context.Background(), ci); err != nil {
		t.Fatalf("first PerformInline: %v", err)
	}
	if _, err := tf.PerformInline(context.Background(), ci); !errors.Is(err, inline.ErrCallNotFound) {
		t.Errorf("second PerformInline err = %v, want ErrCallNotFound", err)
	}
}

func TestInlineMergesSummary(t *testing.T) {
	m, g := build(t, guardedSrc+`
func main() {
  var r;
  r = f(0);
  return r;
}
`)
	sums := inline.NewSummaries()
	if err := inline.CollectAll(context.Background(), m, sums); err != nil {
		t.Fatalf("CollectAll: %v", err)
	}
	main := fn(t, m, "main")
	to := sums.Get(main.ID)
	before := to.Static.Size
	callee := sums.Get(fn(t, m, "f").ID)

	tf := inline.NewTransformer(g, sums, nil)
	out, err := tf.PerformInline(context.Background(), site(t, g, "main", "f"))
	if err != nil {
		t.Fatalf("PerformInline: %v", err)
	}
	if len(out.NewCalls) != 2 {
		t.Fatalf("new calls = %d, want 2", len(out.NewCalls))
	}
	// the call (200) goes, the flag=0 path of f (its unconditional 120) stays
	if want := before - 200 + callee.Costs[0].Cost.Size; to.Static.Size != want {
		t.Errorf("static size = %d, want %d", to.Static.Size, want)
	}
	if len(to.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(to.Edges))
	}
	for _, ci := range out.NewCalls {
		e := to.Edges[ci.StmtID()]
		if e == nil {
			t.Fatalf("no edge for new call %d", ci.StmtID())
		}
		if !e.Pred.IsFalse() {
			t.Errorf("call under flag != 0 should be dead for flag=0, pred %s", e.Pred)
		}
	}
	if len(to.Args) != 1 {
		t.Errorf("args = %d, want 1", len(to.Args))
	}
	if !to.Trustworthy {
		t.Errorf("plain merge should keep the summary trustworthy")
	}
	if got := run(t, m, "main"); got != 0 {
		t.Errorf("main() = %d, want 0", got)
	}
}
