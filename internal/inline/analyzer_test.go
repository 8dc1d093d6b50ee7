package inline_test

import (
	"testing"

	"ipa/internal/callgraph"
	"ipa/internal/inline"
)

func newAnalyzer(g *callgraph.CallGraph, lists inline.Lists) *inline.Analyzer {
	return inline.NewAnalyzer(g, inline.NewSummaries(), inline.DefaultOptions(), lists)
}

func TestCanInlineVerdicts(t *testing.T) {
	_, g := build(t, `
func plain(x) { return x + 1; }
noinline func pinned(x) { return x + 2; }
weak func soft(x) { return x + 3; }
func rec(n) {
  var r;
  if (n <= 0) { return 0; }
  r = rec(n - 1);
  return r;
}
func main(p) {
  var r;
  r = plain(p);
  r = pinned(r);
  r = soft(r);
  r = rec(r);
  return r;
}
`)
	noinline := inline.NewList()
	noinline.Add("plain", "other")
	an := newAnalyzer(g, inline.Lists{NoInline: noinline})

	tests := []struct {
		caller, callee string
		ok             bool
		want           callgraph.FailedCode
	}{
		{"main", "plain", true, callgraph.FailedNeedFurtherAnalysis},
		{"main", "pinned", false, callgraph.FailedNoInlineAttr},
		{"main", "soft", false, callgraph.FailedPreemptable},
		{"main", "rec", false, callgraph.FailedRecursive},
		{"rec", "rec", false, callgraph.FailedRecursive},
	}
	for _, tt := range tests {
		ci := site(t, g, tt.caller, tt.callee)
		if got := an.CanInline(ci, 0); got != tt.ok {
			t.Errorf("CanInline(%s -> %s) = %v, want %v", tt.caller, tt.callee, got, tt.ok)
		}
		if ci.Failed() != tt.want {
			t.Errorf("%s -> %s failed = %s, want %s", tt.caller, tt.callee, ci.Failed(), tt.want)
		}
	}
}

func TestCanInlineNoInlineList(t *testing.T) {
	tests := []struct {
		name    string
		callers []string
		want    callgraph.FailedCode
	}{
		{"everywhere", nil, callgraph.FailedNoInlineList},
		{"at main", []string{"main"}, callgraph.FailedNoInlineListCallsite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, g := build(t, `
func plain(x) { return x + 1; }
func main(p) {
  var r;
  r = plain(p);
  return r;
}
`)
			l := inline.NewList()
			l.Add("plain", tt.callers...)
			ci := site(t, g, "main", "plain")
			if newAnalyzer(g, inline.Lists{NoInline: l}).CanInline(ci, 0) {
				t.Fatalf("listed callee was accepted")
			}
			if ci.Failed() != tt.want {
				t.Errorf("failed = %s, want %s", ci.Failed(), tt.want)
			}
		})
	}
}

func TestCanInlineInlineListIsFinal(t *testing.T) {
	_, g := build(t, `
func plain(x) { return x + 1; }
func main(p) {
  var r;
  r = plain(p);
  return r;
}
`)
	l := inline.NewList()
	l.Add("plain")
	an := newAnalyzer(g, inline.Lists{Inline: l})
	ci := site(t, g, "main", "plain")
	if !an.CanInline(ci, 0) || !an.WantInline(ci, 0) {
		t.Fatalf("inline-listed site rejected")
	}
	if ci.Failed() != callgraph.FailedInlineList {
		t.Errorf("failed = %s", ci.Failed())
	}
	ci.ResetFailed()
	if ci.Failed() != callgraph.FailedInlineList {
		t.Errorf("final verdict was reset")
	}
}

const leafSrc = `
static func leaf(x) { return x * 3 + 1; }
func a(p) { var r; r = leaf(p); return r; }
func b(p) { var r; r = leaf(p); return r; }
func c(p) { var r; r = leaf(p); return r; }
`

func TestGrowthIfInlinedToAllCallers(t *testing.T) {
	_, g := build(t, leafSrc)
	an := newAnalyzer(g, inline.Lists{})
	leaf := node(t, g, "leaf")

	ok, growth := an.EstimateGrowthIfInlinedToAllCallers(leaf)
	// each site trades a 2 insn call for nothing and the static body dies
	if !ok || growth != -8 {
		t.Fatalf("growth = %v, %d; want true, -8", ok, growth)
	}
	sites, ok := an.ShouldBeInlinedToAllCallers(leaf)
	if !ok || len(sites) != 3 {
		t.Fatalf("ShouldBeInlinedToAllCallers = %d sites, %v", len(sites), ok)
	}
	if an.SizeWillGrow(leaf) {
		t.Errorf("SizeWillGrow should be false")
	}
	if !inline.CanBeRemovedIfNoDirectCalls(leaf) {
		t.Errorf("static leaf should be removable")
	}
	if an.CalleeCanBeRemovedIfInlined(site(t, g, "a", "leaf")) {
		t.Errorf("leaf has three sites, none of them is the last")
	}
}

func TestCalcBadness(t *testing.T) {
	_, g := build(t, leafSrc+`
func big(x) {
  var y;
  y = x * x * x * x;
  y = y * y * y * y;
  return y;
}
func d(p) { var r; r = big(p); return r; }
`)
	an := newAnalyzer(g, inline.Lists{})
	shrink := an.CalcBadness(site(t, g, "a", "leaf"))
	if shrink.Growth > 0 || shrink.Badness >= 0 {
		t.Errorf("shrinking site: %s", shrink)
	}
	grow := an.CalcBadness(site(t, g, "d", "big"))
	if grow.Growth <= 0 {
		t.Fatalf("growing site: %s", grow)
	}
	if grow.Badness <= shrink.Badness {
		t.Errorf("growing site %s should rank after shrinking site %s", grow, shrink)
	}
}

func TestWantInlineProfileTemperature(t *testing.T) {
	_, g := build(t, leafSrc)
	an := newAnalyzer(g, inline.Lists{})

	hot := site(t, g, "a", "leaf")
	hot.Temp = callgraph.TempHot
	if !an.WantInline(hot, 3) || hot.Failed() != callgraph.FailedProfileHotSite {
		t.Errorf("hot site: failed = %s", hot.Failed())
	}
	cold := site(t, g, "b", "leaf")
	cold.Temp = callgraph.TempCold
	if an.WantInline(cold, 0) || cold.Failed() != callgraph.FailedColdSite {
		t.Errorf("cold site: failed = %s", cold.Failed())
	}
	tiny := site(t, g, "c", "leaf")
	if !an.WantInline(tiny, 0) {
		t.Errorf("tiny callee into tiny caller rejected: %s", tiny.Failed())
	}
}

func TestCanInlineDepthLimit(t *testing.T) {
	_, g := build(t, leafSrc)
	an := newAnalyzer(g, inline.Lists{})
	ci := site(t, g, "a", "leaf")
	if an.CanInline(ci, inline.DefaultOptions().MaxDepth+1) {
		t.Fatalf("site beyond the depth limit accepted")
	}
	if ci.Failed() != callgraph.FailedDepthLimit {
		t.Errorf("failed = %s", ci.Failed())
	}
	ci.ResetFailed()
	if !an.CanInline(ci, 0) {
		t.Errorf("depth limit is not final: %s", ci.Failed())
	}
}
