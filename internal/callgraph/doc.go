// Package callgraph builds the module-wide call graph over the structured IR.
//
// Every function gets a CGNode; every call statement becomes a CallInfo owned
// by its caller and recorded in the caller sets of all of its targets. Nodes
// live in one vector indexed by NodeID and deleted nodes stay as tombstones,
// so ids held by the inliner never dangle. Node 0 is the external sentinel
// that stands for callees outside the module.
//
// Build resolves what it can statically: direct calls, super calls, virtual
// and interface calls through the class hierarchy Oracle, and indirect calls
// through constant function addresses. The remaining indirect calls are
// matched against address-taken functions once the whole module was seen.
package callgraph
