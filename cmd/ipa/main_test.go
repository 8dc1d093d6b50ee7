package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"ipa/internal/callgraph"
	"ipa/internal/inline"
	"ipa/internal/snapshot"
)

const sample = `
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

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.ir")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--color", "off", "--quiet"}, args...))
	defer sess.finish()
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("ipa %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestOrderCommand(t *testing.T) {
	got := execute(t, "order", writeSample(t))
	if got != "leaf\nmain\n" {
		t.Errorf("order = %q", got)
	}
}

func TestRunCommandAfterInlining(t *testing.T) {
	got := execute(t, "run", "--inline", "--func", "main", "--arg", "4", writeSample(t))
	if strings.TrimSpace(got) != "13" {
		t.Errorf("run = %q, want 13", got)
	}
}

func TestInlineCommandSnapshot(t *testing.T) {
	src := writeSample(t)
	snap := filepath.Join(filepath.Dir(src), "out.mp")
	execute(t, "inline", "--ui", "off", "--snapshot", snap, src)

	s, err := snapshot.Read(snap)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Inline == nil || s.Inline.Removed != 1 {
		t.Fatalf("report = %+v", s.Inline)
	}
	inlined := 0
	for _, n := range s.Inline.Inlined {
		inlined += n
	}
	if inlined != 1 {
		t.Errorf("inlined = %v", s.Inline.Inlined)
	}
	if len(s.Graph.Funcs) != 1 || s.Graph.Funcs[0].Name != "main" {
		t.Errorf("funcs = %+v", s.Graph.Funcs)
	}
}

func TestReadModes(t *testing.T) {
	if _, err := parseUIMode("sometimes"); err == nil {
		t.Errorf("bad ui mode accepted")
	}
	if m, err := parseUIMode(" ON "); err != nil || m != uiOn {
		t.Errorf("parseUIMode(ON) = %d, %v", m, err)
	}
	for _, tc := range []struct {
		ui    string
		quiet bool
		want  bool
	}{
		{"on", true, true},
		{"off", false, false},
		{"auto", false, false},
	} {
		cmd := &cobra.Command{}
		cmd.Flags().String("ui", "auto", "")
		cmd.SetOut(&bytes.Buffer{})
		if err := cmd.Flags().Set("ui", tc.ui); err != nil {
			t.Fatal(err)
		}
		got, err := liveView(cmd, tc.quiet)
		if err != nil || got != tc.want {
			t.Errorf("liveView(--ui=%s) = %v, %v, want %v", tc.ui, got, err, tc.want)
		}
	}
	if on, err := readColorMode("on"); err != nil || !on {
		t.Errorf("readColorMode(on) = %v, %v", on, err)
	}
	if _, err := readColorMode("rainbow"); err == nil {
		t.Errorf("bad color mode accepted")
	}
}

func TestParseInts(t *testing.T) {
	got, err := parseInts([]string{"3", "-7"})
	if err != nil || len(got) != 2 || got[0] != 3 || got[1] != -7 {
		t.Fatalf("parseInts = %v, %v", got, err)
	}
	if _, err := parseInts([]string{"x"}); err == nil {
		t.Errorf("non-integer accepted")
	}
}

func TestRenderReport(t *testing.T) {
	r := &inline.Report{
		Inlined:     map[callgraph.FailedCode]int{callgraph.FailedOK: 1200},
		Failed:      map[callgraph.FailedCode]int{callgraph.FailedRecursive: 3},
		InitialSize: 10000,
		FinalSize:   10500,
		MaxSize:     11000,
		PeakSize:    10600,
	}
	var b bytes.Buffer
	if err := renderReport(&b, r); err != nil {
		t.Fatalf("renderReport: %v", err)
	}
	out := b.String()
	for _, want := range []string{"1,200 sites", "10,000 -> 10,500", "recursive", "+5.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

func TestPad(t *testing.T) {
	if got := pad("ok", 5); got != "ok   " {
		t.Errorf("pad = %q", got)
	}
	if got := pad("need_further_analysis", 6); len([]rune(got)) != 6 {
		t.Errorf("pad truncation = %q", got)
	}
}
