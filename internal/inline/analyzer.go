package inline

import (
	"fmt"
	"math"

	"ipa/internal/callgraph"
	"ipa/internal/ir"
)

const (
	minBadness      = -999999
	defaultCallInsn = 1
	unknownGrowth   = 10000
)

// BadnessInfo explains the priority of one call site.
type BadnessInfo struct {
	Badness       float64
	OrigBadness   float64
	Growth        int64
	Time          float64
	TimeSaved     float64
	FreqPercent   float64
	UninlinedTime float64
	InlinedTime   float64
	OverallGrowth int64
}

// Speedup is the share of the uninlined time that inlining saves.
func (b BadnessInfo) Speedup() float64 {
	if b.UninlinedTime <= 0 {
		return 0
	}
	return (b.UninlinedTime - b.InlinedTime) / b.UninlinedTime
}

func (b BadnessInfo) String() string {
	return fmt.Sprintf("badness=%.6g orig=%.6g growth=%d saved=%.1f freq=%.2f overall=%d",
		b.Badness, b.OrigBadness, b.Growth, b.TimeSaved, b.FreqPercent, b.OverallGrowth)
}

// Analyzer decides whether call sites can and should be inlined.
type Analyzer struct {
	m     *ir.Module
	cg    *callgraph.CallGraph
	sums  *Summaries
	opts  Options
	lists Lists
}

// NewAnalyzer returns an analyzer over the graph and its summaries.
func NewAnalyzer(cg *callgraph.CallGraph, sums *Summaries, opts Options, lists Lists) *Analyzer {
	return &Analyzer{m: cg.Module, cg: cg, sums: sums, opts: opts, lists: lists}
}

// Summary returns the summary of fn, collecting it on first use.
func (a *Analyzer) Summary(fn *ir.Func) *Summary {
	if fn == nil || fn.Body == nil {
		return nil
	}
	if s := a.sums.Get(fn.ID); s != nil {
		return s
	}
	s := Collect(a.m, fn)
	a.sums.Put(s)
	return s
}

func (a *Analyzer) funcSize(fn *ir.Func) (int64, bool) {
	s := a.Summary(fn)
	if s == nil {
		return 0, false
	}
	return s.StaticInsns(), true
}

func (a *Analyzer) callerFunc(ci *callgraph.CallInfo) *ir.Func {
	n := a.cg.Node(ci.Caller)
	if n == nil {
		return nil
	}
	return n.Func
}

func (a *Analyzer) edge(ci *callgraph.CallInfo) *EdgeSummary {
	s := a.Summary(a.callerFunc(ci))
	if s == nil {
		return nil
	}
	return s.Edges[ci.StmtID()]
}

// callCost is the cost of the call statement itself.
func (a *Analyzer) callCost(ci *callgraph.CallInfo) InlineCost {
	if e := a.edge(ci); e != nil {
		return e.CallCost
	}
	d := ci.Stmt.Call()
	if d == nil {
		return unitCost(defaultCallInsn * CostOne)
	}
	return NewCostAnalyzer(a.m, a.callerFunc(ci)).CallCost(d)
}

// FreqPercent is the execution frequency of a site relative to one call of
// its caller.
func (a *Analyzer) FreqPercent(ci *callgraph.CallInfo) float64 {
	freq := FreqBase
	if e := a.edge(ci); e != nil && e.Freq >= 0 {
		freq = e.Freq
	}
	return float64(freq) / float64(FreqBase)
}

func (a *Analyzer) isUnlikely(ci *callgraph.CallInfo) bool {
	if ci.Temp == callgraph.TempCold {
		return true
	}
	e := a.edge(ci)
	return e != nil && e.Unlikely
}

// localAccess reports whether nothing outside the module can call fn.
func localAccess(fn *ir.Func) bool {
	return fn.IsStatic() || (fn.IsInline() && !fn.IsExtern())
}

func declaredInline(fn *ir.Func) bool {
	return fn.IsInline() || fn.Attrs.Has(ir.AttrAlwaysInline)
}

// CanInline checks the legality of inlining ci at the given depth and
// caches the verdict on the site.
func (a *Analyzer) CanInline(ci *callgraph.CallInfo, depth int) bool {
	if code := ci.Failed(); code.IsFinal() {
		return code.Class() == callgraph.FinalOk
	}
	callee := a.cg.CalleeNode(ci)
	caller := a.cg.Node(ci.Caller)
	if callee == nil || caller == nil {
		ci.SetFailed(callgraph.FailedUnresolved)
		return false
	}
	code := a.canInline(caller, callee, ci, depth)
	ci.SetFailed(code)
	return code.Class() != callgraph.FinalFail && code != callgraph.FailedDepthLimit
}

func (a *Analyzer) canInline(caller, callee *callgraph.CGNode, ci *callgraph.CallInfo, depth int) callgraph.FailedCode {
	cf, fn := caller.Func, callee.Func
	self := caller.ID == callee.ID
	switch {
	case fn.Body == nil:
		return callgraph.FailedNoBody
	case fn.Attrs.Has(ir.AttrWeak):
		return callgraph.FailedPreemptable
	}
	if listed, site := a.lists.NoInline.Match(cf.Name, fn.Name); listed {
		if site {
			return callgraph.FailedNoInlineListCallsite
		}
		return callgraph.FailedNoInlineList
	}
	switch {
	case fn.Attrs.Has(ir.AttrNoInline):
		return callgraph.FailedNoInlineAttr
	case self && a.opts.MaxRecursionLevel <= 0:
		return callgraph.FailedRecursive
	case self && callee.RecursionLevel >= a.opts.MaxRecursionLevel:
		return callgraph.FailedRecursionLimit
	case fn.Attrs.Has(ir.AttrOutlined) || cf.Attrs.Has(ir.AttrOutlined):
		return callgraph.FailedOutlined
	case a.lists.HardCoded[fn.Name]:
		return callgraph.FailedHardCoded
	case fn.Attrs.Has(ir.AttrVarargs):
		return callgraph.FailedVarargs
	}
	if listed, site := a.lists.Inline.Match(cf.Name, fn.Name); listed {
		if site {
			return callgraph.FailedInlineListCallsite
		}
		return callgraph.FailedInlineList
	}
	switch {
	case fn.Attrs.Has(ir.AttrAlwaysInline) && !self:
		return callgraph.FailedAlwaysInline
	case callee.MustNotInline:
		return callgraph.FailedMarkUninlinable
	case !isSafeToInline(ci, fn):
		return callgraph.FailedUnresolved
	case fn.Attrs.Has(ir.AttrPreferInline):
		return callgraph.FailedPreferInlineOn
	case fn.Attrs.Has(ir.AttrNoPreferInline):
		return callgraph.FailedPreferInlineOff
	}
	if s := a.Summary(fn); s != nil {
		if s.Failed.IsFinal() {
			return s.Failed
		}
		if s.Recursive && !self {
			return callgraph.FailedRecursive
		}
	}
	if a.opts.MaxDepth > 0 && depth > a.opts.MaxDepth {
		return callgraph.FailedDepthLimit
	}
	return callgraph.FailedNeedFurtherAnalysis
}

// isSafeToInline accepts direct calls, resolved super calls, and dispatched
// calls whose only target cannot be overridden.
func isSafeToInline(ci *callgraph.CallInfo, callee *ir.Func) bool {
	switch ci.Kind {
	case ir.CallDirect, ir.CallSuper:
		return true
	case ir.CallVirtual, ir.CallInterface:
		return callee.Attrs.Has(ir.AttrFinal)
	default:
		return false
	}
}

// WantInline checks whether inlining ci is worth its size.
func (a *Analyzer) WantInline(ci *callgraph.CallInfo, depth int) bool {
	if code := ci.Failed(); code.IsFinal() {
		return code.Class() == callgraph.FinalOk
	}
	switch ci.Temp {
	case callgraph.TempHot:
		ci.SetFailed(callgraph.FailedProfileHotSite)
		return true
	case callgraph.TempCold:
		ci.SetFailed(callgraph.FailedColdSite)
		return false
	}
	calleeNode := a.cg.CalleeNode(ci)
	caller := a.callerFunc(ci)
	if calleeNode == nil || caller == nil {
		ci.SetFailed(callgraph.FailedUnresolved)
		return false
	}
	callee := calleeNode.Func
	declared := declaredInline(callee)
	calleeSize, _ := a.funcSize(callee)
	callerSize, _ := a.funcSize(caller)
	switch {
	case !declared && calleeSize >= a.opts.MaxNondeclaredInlineCallee:
		ci.SetFailed(callgraph.FailedNotDeclaredInlineTooBig)
		return false
	case declared && a.opts.MaxDeclaredInlineCallee > 0 && calleeSize >= a.opts.MaxDeclaredInlineCallee:
		ci.SetFailed(callgraph.FailedDeclaredInlineTooBig)
		return false
	case depth == 0 && !declared && calleeSize <= a.opts.Policy.TinyCallee && callerSize <= a.opts.Policy.TinyCaller:
		return true
	}
	if !a.opts.AllowNondeclaredInlineSizeGrow && !declared && a.SizeWillGrow(calleeNode) &&
		!a.IgnoreNonDeclaredInlineSizeGrow(ci, nil) {
		ci.SetFailed(callgraph.FailedNotDeclaredInlineGrow)
		return false
	}
	return true
}

// CalcBadness prices ci: the more negative, the better to inline.
func (a *Analyzer) CalcBadness(ci *callgraph.CallInfo) BadnessInfo {
	var b BadnessInfo
	calleeNode := a.cg.CalleeNode(ci)
	callerSum := a.Summary(a.callerFunc(ci))
	if calleeNode == nil || callerSum == nil {
		b.Badness, b.OrigBadness = math.Inf(1), math.Inf(1)
		return b
	}
	calleeSum := a.Summary(calleeNode.Func)
	if calleeSum == nil {
		b.Badness, b.OrigBadness = math.Inf(1), math.Inf(1)
		return b
	}
	cond := GetCondInlineCost(callerSum, calleeSum, ci.StmtID())
	call := a.callCost(ci)
	b.Growth = cond.Insns() - call.Insns()
	b.Time = cond.Cycles
	if b.Growth <= 0 {
		b.Badness, b.OrigBadness = minBadness, minBadness
		return b
	}
	combined := max(callerSum.StaticInsns()+b.Growth, 1)
	b.FreqPercent = a.FreqPercent(ci)
	b.UninlinedTime = callerSum.Static.Cycles + calleeSum.Static.Cycles*b.FreqPercent
	b.InlinedTime = callerSum.Static.Cycles + cond.Cycles*b.FreqPercent - call.Cycles*b.FreqPercent
	b.TimeSaved = max(b.UninlinedTime-b.InlinedTime, 0)
	scaled := a.scaleTimeSaved(b.TimeSaved)

	_, b.OverallGrowth = a.EstimateGrowthIfInlinedToAllCallers(calleeNode)
	factor := a.overallFactor(b.OverallGrowth)
	badness := -scaled / (float64(b.Growth) * float64(combined) * float64(factor))
	b.OrigBadness = badness

	p := a.opts.Policy
	if calleeNode.Func.IsInline() {
		badness = scaleDown(badness, p.DeclaredInlineFactor)
	}
	if ci.Temp == callgraph.TempHot {
		badness = scaleDown(badness, p.HotSiteFactor)
	}
	if a.CalleeCanBeRemovedIfInlined(ci) {
		badness = scaleDown(badness, p.RemovableFactor)
	}
	if a.isUnlikely(ci) {
		badness = scaleUp(badness, p.UnlikelyFactor)
	}
	b.Badness = badness
	return b
}

// scaleTimeSaved dampens savings above the boundary logarithmically.
func (a *Analyzer) scaleTimeSaved(t float64) float64 {
	boundary := a.opts.Policy.TimeSavedBoundary
	if boundary > 0 && t > boundary {
		return math.Log2(t) + boundary - math.Log2(boundary)
	}
	return t
}

func (a *Analyzer) overallFactor(growth int64) int64 {
	if growth <= 0 {
		return 1
	}
	small := a.opts.Policy.OverallSmallGrowth
	if growth < small {
		return growth * growth
	}
	return growth + small*small - small
}

// scaleDown makes badness more attractive by factor.
func scaleDown(badness, factor float64) float64 {
	if factor == 0 {
		return badness
	}
	if badness > 0 {
		return badness / factor
	}
	return badness * factor
}

// scaleUp makes badness less attractive by factor.
func scaleUp(badness, factor float64) float64 {
	if factor == 0 {
		return badness
	}
	if badness > 0 {
		return badness * factor
	}
	return badness / factor
}

// EstimateGrowthIfInlinedToAllCallers sums the growth of inlining the node
// at every caller, minus its own size when it would become dead. The first
// result is false when some caller cannot take the callee; the growth is
// then a positive penalty.
func (a *Analyzer) EstimateGrowthIfInlinedToAllCallers(node *callgraph.CGNode) (bool, int64) {
	ok, growth, _ := a.estimateAll(node, false)
	return ok, growth
}

func (a *Analyzer) estimateAll(node *callgraph.CGNode, collect bool) (bool, int64, []*callgraph.CallInfo) {
	sum := a.Summary(node.Func)
	if sum == nil {
		return false, unknownGrowth, nil
	}
	static := sum.StaticInsns()
	var growth int64
	var infos []*callgraph.CallInfo
	for _, id := range node.Callers() {
		cn := a.cg.Node(id)
		if cn == nil || cn.IsExternal() {
			return false, static, nil
		}
		if cn.ID == node.ID || cn.Func.Attrs.Has(ir.AttrOutlined) || a.wouldBeHuge(cn.Func, node.Func) {
			return false, static, nil
		}
		callerSum := a.Summary(cn.Func)
		for _, stmt := range node.CallerStmts(id) {
			cs := cn.Callsite(stmt)
			if cs == nil {
				continue
			}
			if !a.CanInline(cs.Info, 0) {
				return false, static, nil
			}
			if collect {
				infos = append(infos, cs.Info)
			}
			growth += GetCondInlineCost(callerSum, sum, stmt).Insns()
			callInsns := int64(defaultCallInsn)
			if e := callerSum.Edges[stmt]; e != nil {
				callInsns = e.CallCost.Insns()
			}
			growth -= callInsns
		}
	}
	if localAccess(node.Func) {
		growth -= static
	}
	return true, growth, infos
}

func (a *Analyzer) wouldBeHuge(caller, callee *ir.Func) bool {
	cs, ok1 := a.funcSize(caller)
	ce, ok2 := a.funcSize(callee)
	return ok1 && ok2 && a.opts.HugeFuncInsns > 0 && cs+ce > a.opts.HugeFuncInsns
}

// CanBeRemovedIfNoDirectCalls reports whether the node dies once its call
// sites are gone.
func CanBeRemovedIfNoDirectCalls(node *callgraph.CGNode) bool {
	return !node.AddrTaken && localAccess(node.Func)
}

// CalleeCanBeRemovedIfInlined reports whether ci is the last use of a callee
// that nothing outside the module can reach.
func (a *Analyzer) CalleeCanBeRemovedIfInlined(ci *callgraph.CallInfo) bool {
	n := a.cg.CalleeNode(ci)
	if n == nil {
		return false
	}
	return n.NumCallSites() == 1 && CanBeRemovedIfNoDirectCalls(n)
}

// ShouldBeInlinedToAllCallers reports whether inlining the node everywhere
// pays for itself, and returns the sites to inline.
func (a *Analyzer) ShouldBeInlinedToAllCallers(node *callgraph.CGNode) ([]*callgraph.CallInfo, bool) {
	if !node.HasCaller() || node.AddrTaken || node.Func.Body == nil {
		return nil, false
	}
	ok, growth, infos := a.estimateAll(node, true)
	if !ok {
		return nil, false
	}
	if growth <= 0 {
		return infos, true
	}
	if len(infos) == 0 {
		return nil, false
	}
	p := a.opts.Policy
	allHot := true
	for _, ci := range infos {
		if a.FreqPercent(ci) <= 1.0 {
			allHot = false
			break
		}
	}
	n := len(infos)
	fewSmall := growth <= p.AllCallersGrowth && n <= p.AllCallersSites
	fewSmallHot := growth <= p.AllCallersGrowth*int64(n) && allHot && node.Func.IsInline() && n <= p.AllCallersHotSites
	if (fewSmall || fewSmallHot) && CanBeRemovedIfNoDirectCalls(node) {
		return infos, true
	}
	return nil, false
}

// SizeWillGrow reports whether inlining the node everywhere is expected to
// grow the module.
func (a *Analyzer) SizeWillGrow(node *callgraph.CGNode) bool {
	if !CanBeRemovedIfNoDirectCalls(node) {
		return true
	}
	if len(node.Callers()) > a.opts.Policy.SizeGrowMaxCallers {
		return true
	}
	_, growth := a.EstimateGrowthIfInlinedToAllCallers(node)
	return growth > 0
}

func (a *Analyzer) obviouslyNotInline(caller, callee *ir.Func, freq float64) bool {
	if caller.IsInline() || caller == callee {
		return true
	}
	p := a.opts.Policy
	callerMax, calleeMax, nonStaticMax := p.ObviousCaller, p.ObviousCallee, p.ObviousNonStatic
	if freq > p.BigFreq {
		callerMax, calleeMax, nonStaticMax = p.BigFreqCaller, p.BigFreqCallee, p.BigFreqCallee
	}
	callerSize, ok := a.funcSize(caller)
	if !ok || callerSize > callerMax {
		return true
	}
	calleeSize, ok := a.funcSize(callee)
	if !ok || calleeSize > calleeMax {
		return true
	}
	if !callee.IsStatic() && calleeSize >= nonStaticMax {
		return true
	}
	s := a.Summary(callee)
	return s != nil && s.BigSwitch
}

// IgnoreNonDeclaredInlineSizeGrow scores a site whose callee is not declared
// inline; a low enough score lets it grow the module anyway. bad is
// recomputed when nil.
func (a *Analyzer) IgnoreNonDeclaredInlineSizeGrow(ci *callgraph.CallInfo, bad *BadnessInfo) bool {
	p := a.opts.Policy
	caller := a.callerFunc(ci)
	calleeNode := a.cg.CalleeNode(ci)
	if caller == nil || calleeNode == nil {
		return false
	}
	if size, ok := a.funcSize(caller); ok && size > p.NeverIgnoreCaller {
		return false
	}
	if ci.Temp == callgraph.TempHot {
		return true
	}
	freq := a.FreqPercent(ci)
	if a.obviouslyNotInline(caller, calleeNode.Func, freq) {
		return false
	}
	if bad == nil {
		b := a.CalcBadness(ci)
		bad = &b
	}
	score := 0
	switch {
	case freq < p.FreqLimit:
		score++
	case freq > p.FreqBonus:
		score--
	}
	if bad.Growth > p.GrowthLimit {
		score++
	}
	if bad.Badness > p.MaxAllowBadness {
		score++
	}
	if bad.Speedup() < p.BigSpeedup {
		score++
	}
	allowed := 1
	switch {
	case bad.Growth <= p.TinyGrowth:
		allowed += p.TinyGrowthBonus
	case bad.Growth <= p.SmallGrowth:
		allowed += p.SmallGrowthBonus
	}
	return score <= allowed
}
