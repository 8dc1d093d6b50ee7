package inline

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"ipa/internal/callgraph"
)

// Report summarises one Inliner.Run.
type Report struct {
	// Inlined counts spliced sites by the code that allowed them.
	Inlined map[callgraph.FailedCode]int
	// Failed counts the surviving call sites by their last verdict.
	Failed map[callgraph.FailedCode]int

	Dropped    int // calls to empty callees removed
	AllCallers int // sites spliced by the inline-to-all-callers pass
	Removed    int // functions deleted afterwards

	InitialSize int64
	MaxSize     int64
	PeakSize    int64
	FinalSize   int64
}

func newReport() *Report {
	return &Report{
		Inlined: make(map[callgraph.FailedCode]int),
		Failed:  make(map[callgraph.FailedCode]int),
	}
}

func (r *Report) addInlined(code callgraph.FailedCode) {
	if code == callgraph.FailedNeedFurtherAnalysis {
		code = callgraph.FailedOK
	}
	r.Inlined[code]++
}

func (r *Report) collectFailures(g *callgraph.CallGraph) {
	for _, n := range g.Nodes() {
		for _, cs := range n.Callsites() {
			r.Failed[cs.Info.Failed()]++
		}
	}
}

// NumInlined returns the number of spliced sites.
func (r *Report) NumInlined() int {
	n := 0
	for _, c := range r.Inlined {
		n += c
	}
	return n
}

// Growth is the size change in percent of the initial size.
func (r *Report) Growth() float64 {
	if r.InitialSize == 0 {
		return 0
	}
	return float64(r.FinalSize-r.InitialSize) * 100 / float64(r.InitialSize)
}

// Codes lists the codes that occur in either table, in declaration order.
func (r *Report) Codes() []callgraph.FailedCode {
	seen := make(map[callgraph.FailedCode]bool)
	for c := range r.Inlined {
		seen[c] = true
	}
	for c := range r.Failed {
		seen[c] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// WriteText writes a plain table of the report.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "inlined %d sites (%d into all callers), dropped %d empty calls, removed %d functions\n",
		r.NumInlined(), r.AllCallers, r.Dropped, r.Removed)
	fmt.Fprintf(&b, "size %d -> %d insns (max %d, peak %d, %+.1f%%)\n",
		r.InitialSize, r.FinalSize, r.MaxSize, r.PeakSize, r.Growth())
	for _, c := range r.Codes() {
		fmt.Fprintf(&b, "  %-28s %-10s inlined=%-5d left=%d\n", c, c.Class(), r.Inlined[c], r.Failed[c])
	}
	_, err := io.WriteString(w, b.String())
	return err
}
