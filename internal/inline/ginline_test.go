package inline_test

import (
	"context"
	"strings"
	"testing"

	"ipa/internal/callgraph"
	"ipa/internal/diag"
	"ipa/internal/inline"
)

const bigSrc = `
func big(x) {
  var y;
  y = x * x * x;
  y = y * y * y;
  return y + x;
}
func main(p) {
  var r;
  r = big(p);
  return r;
}
`

func TestInlinerIgnoresCapForSmallGrowth(t *testing.T) {
	m, g := build(t, bigSrc)
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{}, nil)
	defer in.Cleanup()

	rep, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.InitialSize != 9 || rep.MaxSize != 9 {
		t.Errorf("sizes = %d/%d, want 9/9", rep.InitialSize, rep.MaxSize)
	}
	if rep.NumInlined() != 1 || rep.Inlined[callgraph.FailedOK] != 1 {
		t.Fatalf("inlined = %v", rep.Inlined)
	}
	if rep.FinalSize != 11 || rep.PeakSize != 11 {
		t.Errorf("final/peak = %d/%d, want 11/11", rep.FinalSize, rep.PeakSize)
	}
	if m.FuncByName("big") == nil {
		t.Errorf("non-static callee must survive")
	}
	checkInvariants(t, g)
	if got := run(t, m, "main", 3); got != 19686 {
		t.Errorf("main(3) = %d, want 19686", got)
	}
}

func TestInlinerRespectsModuleGrowth(t *testing.T) {
	_, g := build(t, bigSrc)
	opts := inline.DefaultOptions()
	opts.ModuleGrowth = 0
	opts.EnableIgnoreGrowthLimit = false
	opts.InlineToAllCallers = false
	in := inline.NewInliner(g, opts, inline.Lists{}, nil)
	defer in.Cleanup()

	rep, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.NumInlined() != 0 {
		t.Errorf("inlined = %v", rep.Inlined)
	}
	if rep.Failed[callgraph.FailedModuleGrowth] != 1 {
		t.Errorf("failed = %v", rep.Failed)
	}
	if rep.FinalSize != rep.InitialSize {
		t.Errorf("size moved from %d to %d", rep.InitialSize, rep.FinalSize)
	}
	if len(node(t, g, "main").Callsites()) != 1 {
		t.Errorf("call site was removed")
	}
}

const leafOnceSrc = `
static func leaf(x) {
  var y;
  y = x * 3;
  return y + 1;
}
func main(p) {
  var r;
  r = leaf(p);
  return r;
}
`

func TestInlinerRemovesDeadStaticCallee(t *testing.T) {
	m, g := build(t, leafOnceSrc)
	events := make(chan inline.Event, 64)
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{}, nil)
	in.Events = events
	defer in.Cleanup()

	rep, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(events)
	if rep.NumInlined() != 1 || rep.Removed != 1 {
		t.Fatalf("inlined %d, removed %d", rep.NumInlined(), rep.Removed)
	}
	if m.FuncByName("leaf") != nil {
		t.Errorf("leaf survived")
	}
	if rep.FinalSize != 2 {
		t.Errorf("final size = %d, want 2", rep.FinalSize)
	}
	checkInvariants(t, g)
	if got := run(t, m, "main", 4); got != 13 {
		t.Errorf("main(4) = %d, want 13", got)
	}

	var kinds []inline.EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) < 3 || kinds[0] != inline.EventStart || kinds[len(kinds)-1] != inline.EventDone {
		t.Fatalf("events = %v", kinds)
	}
	found := false
	for _, k := range kinds {
		found = found || k == inline.EventInlined
	}
	if !found {
		t.Errorf("no inlined event in %v", kinds)
	}
}

func TestInlinerNoInlineList(t *testing.T) {
	m, g := build(t, leafOnceSrc)
	l := inline.NewList()
	l.Add("leaf")
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{NoInline: l}, nil)
	defer in.Cleanup()

	rep, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.NumInlined() != 0 || rep.Failed[callgraph.FailedNoInlineList] != 1 {
		t.Errorf("inlined %v, failed %v", rep.Inlined, rep.Failed)
	}
	if m.FuncByName("leaf") == nil {
		t.Errorf("listed callee was removed")
	}
}

func TestInlinerDropsEmptyCallee(t *testing.T) {
	m, g := build(t, `
static func nop() { }
func main() {
  nop();
  return 1;
}
`)
	bag := diag.NewBag(10)
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{}, diag.BagReporter{Bag: bag})
	defer in.Cleanup()

	rep, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Dropped != 1 || rep.Removed != 1 {
		t.Errorf("dropped %d, removed %d", rep.Dropped, rep.Removed)
	}
	if got := run(t, m, "main"); got != 1 {
		t.Errorf("main() = %d, want 1", got)
	}
}

func TestInlinerRunAfterCleanup(t *testing.T) {
	_, g := build(t, leafOnceSrc)
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{}, nil)
	in.Cleanup()
	if _, err := in.Run(context.Background()); err == nil {
		t.Fatalf("Run after Cleanup should fail")
	}
	if !in.Summaries().Released() {
		t.Errorf("summaries not released")
	}
}

func TestInlinerCanceled(t *testing.T) {
	_, g := build(t, bigSrc)
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{}, nil)
	defer in.Cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := in.Run(ctx); err == nil {
		t.Fatalf("Run on a canceled context should fail")
	}
}

func TestCanIgnoreGrowthLimit(t *testing.T) {
	_, g := build(t, bigSrc)
	opts := inline.DefaultOptions()
	in := inline.NewInliner(g, opts, inline.Lists{}, nil)
	defer in.Cleanup()
	ci := site(t, g, "main", "big")

	tests := []struct {
		name   string
		depth  int
		growth int64
		want   bool
	}{
		{"small", 0, opts.SmallFunc, true},
		{"too big", 0, opts.SmallFunc + 1, false},
		{"too deep", opts.MaxDepthIgnoreGrowthLimit + 1, 1, false},
	}
	for _, tt := range tests {
		if got := in.CanIgnoreGrowthLimit(ci, tt.depth, tt.growth); got != tt.want {
			t.Errorf("%s: CanIgnoreGrowthLimit = %v, want %v", tt.name, got, tt.want)
		}
	}
	ci.SetFailed(callgraph.FailedProfileHotSite)
	if !in.CanIgnoreGrowthLimit(ci, 9, 1000) {
		t.Errorf("hot site must ignore the cap")
	}
}

func TestReportWriteText(t *testing.T) {
	_, g := build(t, leafOnceSrc)
	in := inline.NewInliner(g, inline.DefaultOptions(), inline.Lists{}, nil)
	defer in.Cleanup()
	rep, err := in.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var b strings.Builder
	if err := rep.WriteText(&b); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := b.String()
	for _, want := range []string{"inlined 1 sites", "removed 1 functions", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}
