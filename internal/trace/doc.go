// Package trace is the structured log of the ipa pipeline.
//
// Every phase opens a span and closes it with a one-line detail; decisions
// worth keeping (a pruned function, a rejected call site) are point events
// under the span that made them. Tracers travel in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "inline", 0)
//	defer span.End("")
//
// Scopes from coarse to fine are driver (one CLI command), pass (call graph
// build, SCC, summaries, inlining), module (one function) and node (one call
// site). The level selects how deep events are kept: phase keeps driver and
// pass, detail adds module, debug keeps everything.
//
// A tracer streams events as text or NDJSON, keeps the last events in a ring
// for post-mortem dumps, or both.
package trace
