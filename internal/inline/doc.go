// Package inline implements the interprocedural inliner.
//
// The pieces, bottom-up:
//
//   - CostAnalyzer prices expressions and statements in size and cycles.
//   - Collect builds a Summary per function: a cost table keyed by
//     predicates over conditions on the formals, plus one EdgeSummary per
//     call site. A call passing known arguments only pays the buckets whose
//     predicate may still hold.
//   - Analyzer answers CanInline (legality, cached as a FailedCode on the
//     site), WantInline (profitability) and CalcBadness (priority).
//   - Transformer splices a callee body into one call site, renaming the
//     callee namespace into the caller and updating the call graph and the
//     caller summary.
//   - Inliner drives the whole thing: the least bad site first, under a
//     module size cap with a few escape valves.
//
// Summaries live in one region per inlining phase and are released together
// by Inliner.Cleanup.
package inline
