package inline

import (
	"ipa/internal/ir"
)

// MergeSummary folds the summary of a callee inlined at stmt into the
// caller's. ids maps statement ids of the callee body to their clones in the
// caller. Conditions are remapped into the caller's index space; a condition
// that cannot be expressed there, or that overflows the table, becomes true.
func MergeSummary(to, from *Summary, stmt ir.StmtID, ids map[ir.StmtID]ir.StmtID, recursive bool) {
	if recursive {
		to.Trustworthy = false
	}
	if from == nil {
		to.Trustworthy = false
		delete(to.Edges, stmt)
		delete(to.Args, stmt)
		return
	}
	if !from.Trustworthy {
		to.Trustworthy = false
	}
	to.BigSwitch = to.BigSwitch || from.BigSwitch

	callPred, callFreq := TruePredicate(), FreqBase
	var callCost InlineCost
	unlikely := false
	if e := to.Edges[stmt]; e != nil {
		callPred, callFreq, callCost, unlikely = e.Pred, e.Freq, e.CallCost, e.Unlikely
	}
	args := to.Args[stmt]
	vals := from.EvaluateConditions(args, true)
	condMap := remapConditions(to, from, vals, args)

	// The call statement itself is gone.
	to.AddCost(callPred, callCost.Neg())
	to.Static = to.Static.Sub(callCost)

	var unnecessary InlineCost
	for _, item := range from.Costs {
		cost := item.Cost.AtFreq(callFreq)
		switch item.Pred.Evaluate(vals) {
		case TriFalse:
			unnecessary = unnecessary.Add(cost)
			continue
		case TriTrue:
			to.AddCost(callPred, cost)
		default:
			to.AddCost(item.Pred.Remap(condMap).And(callPred), cost)
		}
	}
	to.Static = to.Static.Add(from.Static.AtFreq(callFreq).Sub(unnecessary))

	for id, e := range from.Edges {
		nid, ok := ids[id]
		if !ok {
			continue
		}
		to.Edges[nid] = &EdgeSummary{
			Pred:     e.Pred.Remap(condMap).And(callPred),
			Freq:     min(callFreq*e.Freq/FreqBase, FreqMax),
			CallCost: e.CallCost,
			Unlikely: e.Unlikely || unlikely,
		}
	}
	for id, inner := range from.Args {
		nid, ok := ids[id]
		if !ok {
			continue
		}
		to.Args[nid] = remapArgs(inner, args)
	}
	delete(to.Edges, stmt)
	delete(to.Args, stmt)
}

// remapConditions builds the callee-to-caller condition index map. Known
// conditions map to true or false; the others are rewritten over caller
// formals when every parameter they use is passed through.
func remapConditions(to, from *Summary, vals []Tri, args []*ArgInfo) *[MaxConditions]int {
	var m [MaxConditions]int
	for i := range m {
		m[i] = remapTrue
	}
	m[condFalse] = remapFalse
	m[CondNotInlined] = remapFalse

	param := func(p int) (*LiteExpr, bool) {
		a := argAt(args, p)
		switch {
		case a == nil:
			return nil, false
		case a.IsConst():
			return LiteConstExpr(a.Lo), true
		case !a.HasRange && a.FormalIdx >= 0:
			return LiteParamExpr(a.FormalIdx), true
		}
		return nil, false
	}
	for i := firstCondition; i < len(from.Conditions); i++ {
		switch vals[i] {
		case TriTrue:
			continue
		case TriFalse:
			m[i] = remapFalse
			continue
		}
		c := from.Conditions[i]
		x, okx := c.X.remap(param)
		y, oky := c.Y.remap(param)
		if !okx || !oky {
			continue
		}
		idx := to.conditionIndex(&Condition{Op: c.Op, X: x, Y: y, Reverse: c.Reverse})
		if idx < 0 {
			break
		}
		m[i] = idx
	}
	return &m
}

// remapArgs rewrites the argument info of a call inside the inlined body:
// a callee formal passed through becomes whatever the caller passed for it.
func remapArgs(inner, outer []*ArgInfo) []*ArgInfo {
	out := make([]*ArgInfo, len(inner))
	for i, a := range inner {
		switch {
		case a == nil:
		case !a.HasRange && a.FormalIdx >= 0:
			if o := argAt(outer, a.FormalIdx); o != nil {
				cp := *o
				out[i] = &cp
			}
		default:
			cp := *a
			out[i] = &cp
		}
	}
	return out
}
