package callgraph

import (
	"fmt"

	"ipa/internal/ir"
)

// FailedClass says whether an inline decision may still change.
type FailedClass uint8

const (
	// Mutable decisions are recomputed when the caller or callee changes.
	Mutable FailedClass = iota
	// FinalFail marks a site that will never be inlined.
	FinalFail
	// FinalOk marks a site that is inlined regardless of cost.
	FinalOk
)

func (c FailedClass) String() string {
	switch c {
	case Mutable:
		return "mutable"
	case FinalFail:
		return "final-fail"
	case FinalOk:
		return "final-ok"
	default:
		return "unknown"
	}
}

// FailedCode records why a call site was or was not inlined.
type FailedCode uint8

const (
	FailedNeedFurtherAnalysis FailedCode = iota
	FailedOK
	FailedNotDeclaredInlineGrow
	FailedNotDeclaredInlineTooBig
	FailedDeclaredInlineTooBig
	FailedModuleGrowth
	FailedDepthLimit
	FailedNoBody
	FailedEmptyCallee
	FailedNoInlineAttr
	FailedNoInlineList
	FailedNoInlineListCallsite
	FailedPreferInlineOff
	FailedMarkUninlinable
	FailedVarargs
	FailedSetjmp
	FailedRecursive
	FailedRecursionLimit
	FailedPreemptable
	FailedUnresolved
	FailedOutlined
	FailedColdSite
	FailedAlwaysInline
	FailedInlineList
	FailedInlineListCallsite
	FailedHardCoded
	FailedPreferInlineOn
	FailedProfileHotSite
	numFailedCodes
)

var failedTable = [numFailedCodes]struct {
	name   string
	class  FailedClass
	reason string
}{
	FailedNeedFurtherAnalysis:     {"need_further_analysis", Mutable, "not analysed yet"},
	FailedOK:                      {"ok", Mutable, "inlining is profitable"},
	FailedNotDeclaredInlineGrow:   {"not_declared_inline_grow", Mutable, "callee not declared inline and the module would grow"},
	FailedNotDeclaredInlineTooBig: {"not_declared_inline_too_big", Mutable, "callee not declared inline and too big"},
	FailedDeclaredInlineTooBig:    {"declared_inline_too_big", Mutable, "callee declared inline but too big"},
	FailedModuleGrowth:            {"module_growth", Mutable, "module growth limit reached"},
	FailedDepthLimit:              {"depth_limit", Mutable, "inline depth limit reached"},
	FailedNoBody:                  {"no_body", FinalFail, "callee has no body"},
	FailedEmptyCallee:             {"empty_callee", FinalFail, "callee body is empty"},
	FailedNoInlineAttr:            {"noinline_attr", FinalFail, "callee is marked noinline"},
	FailedNoInlineList:            {"noinline_list", FinalFail, "callee is in the noinline list"},
	FailedNoInlineListCallsite:    {"noinline_list_callsite", FinalFail, "call site is in the noinline list"},
	FailedPreferInlineOff:         {"prefer_inline_off", FinalFail, "callee prefers not to be inlined"},
	FailedMarkUninlinable:         {"mark_uninlinable", FinalFail, "callee was marked uninlinable"},
	FailedVarargs:                 {"varargs", FinalFail, "callee takes variable arguments"},
	FailedSetjmp:                  {"setjmp", FinalFail, "callee calls setjmp"},
	FailedRecursive:               {"recursive", FinalFail, "recursive call"},
	FailedRecursionLimit:          {"recursion_limit", FinalFail, "self-recursive inline limit reached"},
	FailedPreemptable:             {"preemptable", FinalFail, "callee may be preempted at link time"},
	FailedUnresolved:              {"unresolved", FinalFail, "call has no single resolved target"},
	FailedOutlined:                {"outlined", FinalFail, "caller or callee was produced by outlining"},
	FailedColdSite:                {"profile_cold_callsite", FinalFail, "call site is cold in the profile"},
	FailedAlwaysInline:            {"always_inline", FinalOk, "callee is marked always_inline"},
	FailedInlineList:              {"inline_list", FinalOk, "callee is in the inline list"},
	FailedInlineListCallsite:      {"inline_list_callsite", FinalOk, "call site is in the inline list"},
	FailedHardCoded:               {"hard_coded", FinalOk, "callee is always inlined"},
	FailedPreferInlineOn:          {"prefer_inline_on", FinalOk, "callee prefers to be inlined"},
	FailedProfileHotSite:          {"profile_hot_callsite", FinalOk, "call site is hot in the profile"},
}

// String returns the short name of the code.
func (c FailedCode) String() string {
	if c < numFailedCodes {
		return failedTable[c].name
	}
	return fmt.Sprintf("failed(%d)", uint8(c))
}

// Class returns the decision class of the code.
func (c FailedCode) Class() FailedClass {
	if c < numFailedCodes {
		return failedTable[c].class
	}
	return FinalFail
}

// Reason returns a human-readable explanation.
func (c FailedCode) Reason() string {
	if c < numFailedCodes {
		return failedTable[c].reason
	}
	return "unknown"
}

// IsFinal reports whether the decision will not be revisited.
func (c FailedCode) IsFinal() bool { return c.Class() != Mutable }

// AllFailedCodes lists every code in declaration order.
func AllFailedCodes() []FailedCode {
	out := make([]FailedCode, 0, numFailedCodes)
	for c := range numFailedCodes {
		out = append(out, c)
	}
	return out
}

// Temperature classifies a call site by profile count.
type Temperature uint8

const (
	TempUnknown Temperature = iota
	TempCold
	TempNormal
	TempHot
)

func (t Temperature) String() string {
	switch t {
	case TempCold:
		return "cold"
	case TempNormal:
		return "normal"
	case TempHot:
		return "hot"
	default:
		return "unknown"
	}
}

// CallInfo describes one call site.
type CallInfo struct {
	ID        uint32
	Kind      ir.CallKind
	Caller    NodeID
	Callee    ir.FuncID // NoFuncID when the site has no single target
	Stmt      *ir.Stmt
	LoopDepth int
	Temp      Temperature

	// AllArgsLocal is set when every argument is a literal or a caller
	// local read.
	AllArgsLocal bool

	failed FailedCode
}

// Failed returns the cached inline decision.
func (ci *CallInfo) Failed() FailedCode { return ci.failed }

// SetFailed caches an inline decision. A final decision is never replaced.
func (ci *CallInfo) SetFailed(code FailedCode) {
	if ci.failed.IsFinal() {
		return
	}
	ci.failed = code
}

// ResetFailed forgets a mutable decision.
func (ci *CallInfo) ResetFailed() {
	if !ci.failed.IsFinal() {
		ci.failed = FailedNeedFurtherAnalysis
	}
}

// StmtID returns the id of the call statement.
func (ci *CallInfo) StmtID() ir.StmtID {
	if ci.Stmt == nil {
		return ir.NoStmtID
	}
	return ci.Stmt.ID
}

func (ci *CallInfo) String() string {
	return fmt.Sprintf("call#%d %s stmt=%d depth=%d", ci.ID, ci.Kind, ci.StmtID(), ci.LoopDepth)
}

func allArgsLocal(s *ir.Stmt) bool {
	d := s.Call()
	if d == nil {
		return false
	}
	for _, a := range d.Args {
		switch {
		case a.IsConst():
		case a.Kind == ir.ExprRead && !a.Sym.Global:
		default:
			return false
		}
	}
	return true
}
