package inline

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"ipa/internal/callgraph"
	"ipa/internal/ir"
)

// CostItem is cost paid only when Pred holds.
type CostItem struct {
	Pred Predicate
	Cost InlineCost
}

// EdgeSummary describes one call site of the summarised function.
type EdgeSummary struct {
	Pred     Predicate
	Freq     int64 // per call of the enclosing function, in FreqBase units
	CallCost InlineCost
	Unlikely bool
}

// Summary is the predicate-indexed cost of one function.
type Summary struct {
	Func ir.FuncID

	// Conditions is indexed by condition index; the reserved slots are nil.
	Conditions []*Condition
	// Costs[0] is the unconditional bucket.
	Costs []CostItem
	Edges map[ir.StmtID]*EdgeSummary
	Args  map[ir.StmtID][]*ArgInfo

	Static InlineCost

	Failed      callgraph.FailedCode
	Recursive   bool
	BigSwitch   bool
	Trustworthy bool
}

// NewSummary returns an empty summary for fn.
func NewSummary(fn ir.FuncID) *Summary {
	return &Summary{
		Func:        fn,
		Conditions:  make([]*Condition, firstCondition),
		Costs:       []CostItem{{Pred: TruePredicate()}},
		Edges:       make(map[ir.StmtID]*EdgeSummary),
		Args:        make(map[ir.StmtID][]*ArgInfo),
		Trustworthy: true,
	}
}

// StaticInsns returns the flat size in instructions.
func (s *Summary) StaticInsns() int64 { return s.Static.Insns() }

// NumConditions counts the condition slots in use, reserved ones included.
func (s *Summary) NumConditions() int { return len(s.Conditions) }

// conditionIndex returns the slot of c, allocating one if needed. It returns
// -1 when the table is full.
func (s *Summary) conditionIndex(c *Condition) int {
	for i := firstCondition; i < len(s.Conditions); i++ {
		if s.Conditions[i].Equal(c) {
			return i
		}
	}
	if len(s.Conditions) >= MaxConditions {
		return -1
	}
	s.Conditions = append(s.Conditions, c)
	return len(s.Conditions) - 1
}

// AddCondition returns the predicate "c holds". Conditions without
// parameters are folded; a full table degrades to true.
func (s *Summary) AddCondition(c *Condition) Predicate {
	if c.Params() == 0 {
		switch c.Eval(nil) {
		case TriTrue:
			return TruePredicate()
		case TriFalse:
			return FalsePredicate()
		}
	}
	idx := s.conditionIndex(c)
	if idx < 0 {
		return TruePredicate()
	}
	return CondPredicate(idx)
}

// AddCost accounts cost under pred.
func (s *Summary) AddCost(pred Predicate, cost InlineCost) {
	if pred.IsFalse() {
		return
	}
	if pred.IsTrue() {
		s.Costs[0].Cost = s.Costs[0].Cost.Add(cost)
		return
	}
	for i := 1; i < len(s.Costs); i++ {
		if s.Costs[i].Pred.Equal(pred) {
			s.Costs[i].Cost = s.Costs[i].Cost.Add(cost)
			return
		}
	}
	s.Costs = append(s.Costs, CostItem{Pred: pred, Cost: cost})
}

// EvaluateConditions gives the truth of every condition for a call passing
// args. inlined selects the value of CondNotInlined.
func (s *Summary) EvaluateConditions(args []*ArgInfo, inlined bool) []Tri {
	vals := make([]Tri, len(s.Conditions))
	vals[condFalse] = TriFalse
	vals[CondNotInlined] = triOf(!inlined)
	for i := firstCondition; i < len(s.Conditions); i++ {
		vals[i] = s.Conditions[i].Eval(args)
	}
	return vals
}

// CondCost sums every bucket that may be paid for a call passing args.
func (s *Summary) CondCost(args []*ArgInfo, inlined bool) InlineCost {
	vals := s.EvaluateConditions(args, inlined)
	var total InlineCost
	for _, item := range s.Costs {
		if item.Pred.Evaluate(vals) != TriFalse {
			total = total.Add(item.Cost)
		}
	}
	return total
}

// ParamMapping returns, for each formal of the callee at call site stmt, the
// caller formal passed through unchanged or -1.
func (s *Summary) ParamMapping(stmt ir.StmtID, nformals int) []int {
	out := make([]int, nformals)
	args := s.Args[stmt]
	for i := range out {
		out[i] = -1
		if a := argAt(args, i); a != nil && !a.HasRange {
			out[i] = a.FormalIdx
		}
	}
	return out
}

// GetCondInlineCost returns the cost of the callee body once inlined at stmt
// of the caller, given what the caller knows about the arguments.
func GetCondInlineCost(caller, callee *Summary, stmt ir.StmtID) InlineCost {
	var args []*ArgInfo
	if caller != nil {
		args = caller.Args[stmt]
	}
	return callee.CondCost(args, true)
}

// Dump writes a readable form of s.
func (s *Summary) Dump(w io.Writer, name string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "summary %s: static=%d insns cycles=%.0f", name, s.StaticInsns(), s.Static.Cycles)
	if !s.Trustworthy {
		b.WriteString(" untrustworthy")
	}
	if s.Recursive {
		b.WriteString(" recursive")
	}
	if s.BigSwitch {
		b.WriteString(" big_switch")
	}
	if s.Failed != callgraph.FailedNeedFurtherAnalysis {
		fmt.Fprintf(&b, " failed=%s", s.Failed)
	}
	b.WriteByte('\n')
	for i := firstCondition; i < len(s.Conditions); i++ {
		fmt.Fprintf(&b, "  c%d: %s\n", i, s.Conditions[i])
	}
	for _, item := range s.Costs {
		fmt.Fprintf(&b, "  cost %d (%.0f cycles) if %s\n", item.Cost.Size, item.Cost.Cycles, item.Pred)
	}
	for _, id := range slices.Sorted(maps.Keys(s.Edges)) {
		e := s.Edges[id]
		fmt.Fprintf(&b, "  edge stmt=%d freq=%d call=%d if %s", id, e.Freq, e.CallCost.Size, e.Pred)
		if e.Unlikely {
			b.WriteString(" unlikely")
		}
		if args := s.Args[id]; len(args) > 0 {
			parts := make([]string, len(args))
			for i, a := range args {
				if a == nil {
					parts[i] = "?"
				} else {
					parts[i] = a.String()
				}
			}
			fmt.Fprintf(&b, " args=(%s)", strings.Join(parts, ", "))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Summaries holds the summaries of one inlining phase. The region is
// released in one step when the phase ends.
type Summaries struct {
	region *ir.Region[ir.FuncID, *Summary]
}

// NewSummaries returns an empty table.
func NewSummaries() *Summaries {
	return &Summaries{region: ir.NewRegion[ir.FuncID, *Summary]("inline summaries")}
}

// Get returns the summary of fn, or nil.
func (t *Summaries) Get(fn ir.FuncID) *Summary {
	s, _ := t.region.Get(fn)
	return s
}

// Put stores s under its function.
func (t *Summaries) Put(s *Summary) { t.region.Put(s.Func, s) }

// Len returns the number of summaries.
func (t *Summaries) Len() int { return t.region.Len() }

// Release frees every summary. Later access panics.
func (t *Summaries) Release() {
	if !t.region.Released() {
		t.region.Release()
	}
}

// Released reports whether Release was called.
func (t *Summaries) Released() bool { return t.region.Released() }
