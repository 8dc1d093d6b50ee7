package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"ipa/internal/callgraph"
	"ipa/internal/ir"
)

// CheckModule runs the structural checks of ir.Verify plus the ones the
// inliner relies on:
// 1) names inside each local, label and register table are unique
// 2) no body holds more statements than ids were handed out
func CheckModule(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	errs := []error{ir.Verify(m)}
	issued, err := safecast.Conv[uint32](m.NumStmtIDs())
	if err != nil {
		return fmt.Errorf("statement id count overflow: %w", err)
	}
	for _, f := range m.LiveFuncs() {
		errs = append(errs, uniqueNames(f)...)
		n, err := safecast.Conv[uint32](ir.CountStmts(f.Body))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: statement count overflow: %w", f.Name, err))
			continue
		}
		if n > issued {
			errs = append(errs, fmt.Errorf("%s: %d statements but only %d ids issued", f.Name, n, issued))
		}
	}
	return errors.Join(errs...)
}

func uniqueNames(f *ir.Func) []error {
	var errs []error
	check := func(kind string, names []string) {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if n == "" {
				continue
			}
			if seen[n] {
				errs = append(errs, fmt.Errorf("%s: duplicate %s %q", f.Name, kind, n))
			}
			seen[n] = true
		}
	}
	var locals, labels, pregs []string
	for _, s := range f.Locals[1:] {
		if s != nil {
			locals = append(locals, s.Name)
		}
	}
	for _, l := range f.Labels[1:] {
		labels = append(labels, l.Name)
	}
	for _, p := range f.Pregs[1:] {
		pregs = append(pregs, p.Name)
	}
	check("local", locals)
	check("label", labels)
	check("register", pregs)
	return errs
}

// CheckCallGraph verifies that g describes the bodies it was built from:
// 1) every edge is recorded on both ends (CallGraph.Verify)
// 2) every call site statement is still part of its caller's body
// 3) every non-intrinsic call statement of a live body has a call site
func CheckCallGraph(g *callgraph.CallGraph) error {
	if g == nil {
		return fmt.Errorf("nil call graph")
	}
	errs := []error{g.Verify()}
	for _, n := range g.Nodes() {
		if !n.HasBody() {
			continue
		}
		for _, cs := range n.Callsites() {
			if _, _, ok := ir.FindStmt(n.Func.Body, cs.Info.Stmt); !ok {
				errs = append(errs, fmt.Errorf("%s: call site %s not in body", n.Name(), cs.Info))
			}
		}
		ir.WalkBlock(n.Func.Body, func(s *ir.Stmt) bool {
			d := s.Call()
			if d == nil || d.Kind == ir.CallIntrinsic {
				return true
			}
			if n.Callsite(s.ID) == nil {
				errs = append(errs, fmt.Errorf("%s: call stmt %d has no call site", n.Name(), s.ID))
			}
			return true
		})
	}
	return errors.Join(errs...)
}
