package inline

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"ipa/internal/callgraph"
	"ipa/internal/diag"
	"ipa/internal/ir"
	"ipa/internal/trace"
)

// EventKind classifies progress events of the inliner.
type EventKind uint8

const (
	// EventStart carries the initial and maximum size.
	EventStart EventKind = iota
	// EventInlined reports one spliced call site.
	EventInlined
	// EventRejected reports a site dropped from the candidate set.
	EventRejected
	// EventDone closes the stream.
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventInlined:
		return "inlined"
	case EventRejected:
		return "rejected"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is a progress notification of Inliner.Run.
type Event struct {
	Kind   EventKind
	Caller string
	Callee string
	Depth  int
	Code   callgraph.FailedCode
	Size   int64 // module size after the event
	Max    int64
	Queued int
}

type candidate struct {
	ci    *callgraph.CallInfo
	depth int
	bad   BadnessInfo
}

func compareCandidates(a, b *candidate) int {
	if c := cmp.Compare(a.bad.Badness, b.bad.Badness); c != 0 {
		return c
	}
	return cmp.Compare(a.ci.ID, b.ci.ID)
}

// candidateSet keeps candidates ordered by (badness, call id).
type candidateSet struct {
	items  []*candidate
	byCall map[*callgraph.CallInfo]*candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byCall: make(map[*callgraph.CallInfo]*candidate)}
}

func (s *candidateSet) Len() int { return len(s.items) }

func (s *candidateSet) insert(c *candidate) {
	if old := s.byCall[c.ci]; old != nil {
		s.remove(old.ci)
	}
	i, _ := slices.BinarySearchFunc(s.items, c, compareCandidates)
	s.items = slices.Insert(s.items, i, c)
	s.byCall[c.ci] = c
}

func (s *candidateSet) remove(ci *callgraph.CallInfo) *candidate {
	c := s.byCall[ci]
	if c == nil {
		return nil
	}
	if i, found := slices.BinarySearchFunc(s.items, c, compareCandidates); found {
		s.items = slices.Delete(s.items, i, i+1)
	}
	delete(s.byCall, ci)
	return c
}

func (s *candidateSet) popMin() *candidate {
	if len(s.items) == 0 {
		return nil
	}
	c := s.items[0]
	s.items = slices.Delete(s.items, 0, 1)
	delete(s.byCall, c.ci)
	return c
}

// matching returns the queued candidates for which keep returns true.
func (s *candidateSet) matching(keep func(*candidate) bool) []*candidate {
	var out []*candidate
	for _, c := range s.items {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Inliner is the greedy driver: it repeatedly inlines the least bad call
// site until the candidate set is empty or the size cap stops it.
type Inliner struct {
	cg    *callgraph.CallGraph
	m     *ir.Module
	opts  Options
	lists Lists
	rep   diag.Reporter

	profile     *Profile
	profileFile string

	// Events receives progress notifications when set. Sends block until the
	// receiver is ready or the context ends.
	Events chan<- Event

	sums *Summaries
	an   *Analyzer
	tf   *Transformer

	cands  *candidateSet
	report *Report

	curSize int64
	maxSize int64
}

// NewInliner prepares an inliner over cg.
func NewInliner(cg *callgraph.CallGraph, opts Options, lists Lists, rep diag.Reporter) *Inliner {
	sums := NewSummaries()
	tf := NewTransformer(cg, sums, rep)
	tf.Comments = opts.Comments
	return &Inliner{
		cg:    cg,
		m:     cg.Module,
		opts:  opts,
		lists: lists,
		rep:   rep,
		sums:  sums,
		an:    NewAnalyzer(cg, sums, opts, lists),
		tf:    tf,
		cands: newCandidateSet(),
	}
}

// SetProfile attaches call-site counts read from file.
func (in *Inliner) SetProfile(p *Profile, file string) {
	in.profile, in.profileFile = p, file
}

// Analyzer returns the analyzer shared with the driver.
func (in *Inliner) Analyzer() *Analyzer { return in.an }

// Summaries returns the summary table of the current phase.
func (in *Inliner) Summaries() *Summaries { return in.sums }

// Cleanup releases the summaries. The inliner cannot run again afterwards.
func (in *Inliner) Cleanup() { in.sums.Release() }

// Run inlines call sites greedily and returns what it did.
func (in *Inliner) Run(ctx context.Context) (*Report, error) {
	if in.sums.Released() {
		return nil, fmt.Errorf("inline: run after cleanup")
	}
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePass, "inline", trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)

	if err := CollectAll(ctx, in.m, in.sums); err != nil {
		span.End("failed")
		return nil, err
	}
	if in.profile != nil {
		marked := in.profile.Apply(in.cg, in.profileFile, in.rep)
		trace.Pointf(tr, trace.ScopePass, "inline.profile", span.ID(), "sites=%d", marked)
	}

	in.report = newReport()
	for _, fn := range in.m.LiveFuncs() {
		if s := in.sums.Get(fn.ID); s != nil {
			in.report.InitialSize += s.StaticInsns()
		}
	}
	in.curSize = in.report.InitialSize
	in.maxSize = in.report.InitialSize * (100 + in.opts.ModuleGrowth) / 100
	in.report.MaxSize = in.maxSize
	in.report.PeakSize = in.curSize

	for _, n := range in.cg.Nodes() {
		for _, cs := range n.Callsites() {
			in.consider(cs.Info, 0)
		}
	}
	if err := in.emit(ctx, Event{Kind: EventStart, Size: in.curSize, Max: in.maxSize, Queued: in.cands.Len()}); err != nil {
		span.End("canceled")
		return nil, err
	}

	for in.cands.Len() > 0 {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			return nil, err
		}
		if err := in.step(ctx, in.cands.popMin()); err != nil {
			span.End("failed")
			return nil, err
		}
	}

	if in.opts.InlineToAllCallers {
		if err := in.TryInlineToAllCallers(ctx); err != nil {
			span.End("failed")
			return nil, err
		}
	}
	if in.opts.RemoveDead {
		in.report.Removed = in.cg.RemoveFileStaticRootNodes()
		in.cg.RecomputeSCC()
		in.report.Removed += in.cg.RemoveFileStaticSCC()
		in.cg.RecomputeSCC()
		in.cg.SetCompilationFunclist()
	}
	in.report.FinalSize = in.curSize
	in.report.collectFailures(in.cg)

	if err := in.emit(ctx, Event{Kind: EventDone, Size: in.curSize, Max: in.maxSize}); err != nil {
		span.End("canceled")
		return nil, err
	}
	span.End(fmt.Sprintf("inlined=%d size=%d->%d", in.report.NumInlined(), in.report.InitialSize, in.report.FinalSize))
	return in.report, nil
}

func (in *Inliner) emit(ctx context.Context, ev Event) error {
	if in.Events == nil {
		return nil
	}
	select {
	case in.Events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consider queues ci when it can be inlined at depth.
func (in *Inliner) consider(ci *callgraph.CallInfo, depth int) {
	if !in.an.CanInline(ci, depth) {
		return
	}
	in.cands.insert(&candidate{ci: ci, depth: depth, bad: in.an.CalcBadness(ci)})
}

func (in *Inliner) step(ctx context.Context, c *candidate) error {
	ci := c.ci
	callerNode := in.cg.Node(ci.Caller)
	calleeNode := in.cg.CalleeNode(ci)
	if callerNode == nil || calleeNode == nil || callerNode.Callsite(ci.StmtID()) == nil {
		return nil
	}
	if !in.an.CanInline(ci, c.depth) || !in.an.WantInline(ci, c.depth) {
		return in.reject(ctx, c, callerNode, calleeNode)
	}
	growth := c.bad.Growth
	if in.curSize+growth > in.maxSize && !in.CanIgnoreGrowthLimit(ci, c.depth, growth) {
		ci.SetFailed(callgraph.FailedModuleGrowth)
		return in.reject(ctx, c, callerNode, calleeNode)
	}
	return in.inline(ctx, c, callerNode, calleeNode, growth)
}

func (in *Inliner) inline(ctx context.Context, c *candidate, callerNode, calleeNode *callgraph.CGNode, growth int64) error {
	ci := c.ci
	removable := in.an.CalleeCanBeRemovedIfInlined(ci)
	var calleeStatic int64
	if s := in.sums.Get(calleeNode.Func.ID); s != nil {
		calleeStatic = s.StaticInsns()
	}
	callInsns := in.an.callCost(ci).Insns()
	if ci.Failed() == callgraph.FailedNeedFurtherAnalysis {
		ci.SetFailed(callgraph.FailedOK)
	}
	out, err := in.tf.PerformInline(ctx, ci)
	if err != nil {
		return fmt.Errorf("inline %s into %s: %w", calleeNode.Name(), callerNode.Name(), err)
	}
	if !out.Spliced {
		in.report.Dropped++
		in.curSize -= callInsns
		in.refresh(callerNode.ID)
		return nil
	}
	in.curSize += growth
	if removable && !calleeNode.HasCaller() {
		in.curSize -= calleeStatic
		in.forget(calleeNode.ID)
	}
	in.report.PeakSize = max(in.report.PeakSize, in.curSize)
	in.report.addInlined(ci.Failed())

	for _, nc := range out.NewCalls {
		in.consider(nc, c.depth+1)
	}
	in.refresh(callerNode.ID)

	trace.Pointf(trace.FromContext(ctx), trace.ScopeNode, "inline.site", trace.CurrentSpan(ctx).SpanID,
		"%s -> %s depth=%d growth=%d size=%d", callerNode.Name(), calleeNode.Name(), c.depth, growth, in.curSize)
	return in.emit(ctx, Event{
		Kind:   EventInlined,
		Caller: callerNode.Name(),
		Callee: calleeNode.Name(),
		Depth:  c.depth,
		Code:   ci.Failed(),
		Size:   in.curSize,
		Max:    in.maxSize,
		Queued: in.cands.Len(),
	})
}

func (in *Inliner) reject(ctx context.Context, c *candidate, callerNode, calleeNode *callgraph.CGNode) error {
	return in.emit(ctx, Event{
		Kind:   EventRejected,
		Caller: callerNode.Name(),
		Callee: calleeNode.Name(),
		Depth:  c.depth,
		Code:   c.ci.Failed(),
		Size:   in.curSize,
		Max:    in.maxSize,
		Queued: in.cands.Len(),
	})
}

// refresh reprices every queued site of the mutated function, and every
// site calling it, since both depend on its size.
func (in *Inliner) refresh(fn callgraph.NodeID) {
	stale := in.cands.matching(func(c *candidate) bool {
		if c.ci.Caller == fn {
			return true
		}
		n := in.cg.CalleeNode(c.ci)
		return n != nil && n.ID == fn
	})
	for _, c := range stale {
		in.cands.remove(c.ci)
		c.ci.ResetFailed()
		in.consider(c.ci, c.depth)
	}
}

// forget drops the queued sites of a function that is about to die.
func (in *Inliner) forget(fn callgraph.NodeID) {
	for _, c := range in.cands.matching(func(c *candidate) bool { return c.ci.Caller == fn }) {
		in.cands.remove(c.ci)
	}
}

// CanIgnoreGrowthLimit reports whether ci may be inlined past the module
// size cap.
func (in *Inliner) CanIgnoreGrowthLimit(ci *callgraph.CallInfo, depth int, growth int64) bool {
	switch ci.Failed() {
	case callgraph.FailedInlineList, callgraph.FailedInlineListCallsite,
		callgraph.FailedHardCoded, callgraph.FailedProfileHotSite:
		return true
	}
	if !in.opts.EnableIgnoreGrowthLimit || depth > in.opts.MaxDepthIgnoreGrowthLimit {
		return false
	}
	calleeNode := in.cg.CalleeNode(ci)
	caller := in.an.callerFunc(ci)
	if calleeNode == nil || caller == nil {
		return false
	}
	callee := calleeNode.Func
	relax := int64(1)
	switch {
	case in.an.CalleeCanBeRemovedIfInlined(ci):
		relax = in.opts.RelaxSmallFuncCanBeRemoved
	case declaredInline(callee):
		if in.an.FreqPercent(ci) >= 1 {
			relax = in.opts.RelaxSmallFuncDeclaredInline
		} else {
			relax = in.opts.Policy.DefaultRelaxInline
		}
	}
	threshold := in.opts.SmallFunc * relax
	if declaredInline(callee) && !caller.IsInline() {
		if size, ok := in.an.funcSize(caller); ok && size <= in.opts.SmallFunc {
			threshold += in.opts.SmallFunc
		}
	}
	return growth <= threshold
}

// TryInlineToAllCallers walks the functions bottom-up and inlines each one
// into all of its callers when that lets it be removed.
func (in *Inliner) TryInlineToAllCallers(ctx context.Context) error {
	in.cg.RecomputeSCC()
	top := in.cg.TopVec()
	for i := len(top) - 1; i >= 0; i-- {
		for _, id := range top[i].Nodes() {
			node := in.cg.Node(id)
			if node == nil || node.IsExternal() || !node.HasBody() {
				continue
			}
			sites, ok := in.an.ShouldBeInlinedToAllCallers(node)
			if !ok {
				continue
			}
			if err := in.inlineAll(ctx, node, sites); err != nil {
				return err
			}
		}
	}
	return nil
}

func (in *Inliner) inlineAll(ctx context.Context, node *callgraph.CGNode, sites []*callgraph.CallInfo) error {
	var static int64
	if s := in.sums.Get(node.Func.ID); s != nil {
		static = s.StaticInsns()
	}
	for _, ci := range sites {
		callerNode := in.cg.Node(ci.Caller)
		if callerNode == nil || callerNode.Callsite(ci.StmtID()) == nil {
			continue
		}
		bad := in.an.CalcBadness(ci)
		if ci.Failed() == callgraph.FailedNeedFurtherAnalysis {
			ci.SetFailed(callgraph.FailedOK)
		}
		out, err := in.tf.PerformInline(ctx, ci)
		if err != nil {
			return fmt.Errorf("inline %s into %s: %w", node.Name(), callerNode.Name(), err)
		}
		if !out.Spliced {
			in.report.Dropped++
			continue
		}
		in.curSize += bad.Growth
		in.report.AllCallers++
		in.report.addInlined(ci.Failed())
		for _, nc := range out.NewCalls {
			in.an.CanInline(nc, 1)
		}
		if err := in.emit(ctx, Event{
			Kind:   EventInlined,
			Caller: callerNode.Name(),
			Callee: node.Name(),
			Code:   ci.Failed(),
			Size:   in.curSize,
			Max:    in.maxSize,
		}); err != nil {
			return err
		}
	}
	if !node.HasCaller() && CanBeRemovedIfNoDirectCalls(node) {
		in.curSize -= static
	}
	in.report.PeakSize = max(in.report.PeakSize, in.curSize)
	return nil
}
