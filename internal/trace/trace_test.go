package trace_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"ipa/internal/trace"
)

func TestStreamTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelPhase, trace.FormatText)

	span := trace.Begin(tr, trace.ScopePass, "callgraph", 0)
	trace.Point(tr, trace.ScopeModule, "callgraph.node", span.ID(), "hidden")
	span.WithExtra("nodes", "3").End("done")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "→ callgraph") || !strings.Contains(out, "← callgraph (done) {nodes=3}") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("module event kept at phase level:\n%s", out)
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatNDJSON)
	trace.Pointf(tr, trace.ScopeNode, "inline.reject", 0, "%s -> %s", "main", "big")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	var ev map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("not json: %v: %s", err, buf.String())
	}
	if ev["kind"] != "point" || ev["scope"] != "node" || ev["detail"] != "main -> big" {
		t.Errorf("event = %v", ev)
	}
}

func TestRingWraps(t *testing.T) {
	ring := trace.NewRingTracer(3, trace.LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		trace.Point(ring, trace.ScopePass, name, 0, "")
	}
	evs := ring.Snapshot()
	if len(evs) != 3 {
		t.Fatalf("len = %d", len(evs))
	}
	for i, want := range []string{"c", "d", "e"} {
		if evs[i].Name != want {
			t.Errorf("event %d = %s, want %s", i, evs[i].Name, want)
		}
	}
	if evs[0].Seq >= evs[2].Seq {
		t.Errorf("sequence not increasing")
	}
}

func TestMultiAndContext(t *testing.T) {
	var buf bytes.Buffer
	cfg := trace.Config{Level: trace.LevelDetail, Mode: trace.ModeBoth, Output: &buf, Format: trace.FormatText}
	tr, err := trace.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx := trace.WithTracer(context.Background(), tr)
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "inline", 0)
	ctx = trace.WithSpan(ctx, span)
	if trace.CurrentSpan(ctx).SpanID != span.ID() {
		t.Errorf("span not propagated")
	}
	span.End("")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	multi, ok := tr.(*trace.MultiTracer)
	if !ok || multi.Ring() == nil || len(multi.Ring().Snapshot()) != 2 {
		t.Fatalf("ring did not receive both events")
	}
	if strings.Count(buf.String(), "inline") != 2 {
		t.Errorf("stream output:\n%s", buf.String())
	}
}

func TestParse(t *testing.T) {
	if l, err := trace.ParseLevel("DETAIL"); err != nil || l != trace.LevelDetail {
		t.Errorf("ParseLevel = %v, %v", l, err)
	}
	if _, err := trace.ParseLevel("loud"); err == nil {
		t.Errorf("expected error")
	}
	if m, err := trace.ParseMode("ring"); err != nil || m != trace.ModeRing {
		t.Errorf("ParseMode = %v, %v", m, err)
	}
	if f, err := trace.ParseFormat("ndjson"); err != nil || f != trace.FormatNDJSON {
		t.Errorf("ParseFormat = %v, %v", f, err)
	}
	if tr, err := trace.New(trace.Config{}); err != nil || tr.Enabled() {
		t.Errorf("off config should give a disabled tracer")
	}
}
