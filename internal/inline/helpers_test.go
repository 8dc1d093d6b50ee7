package inline_test

import (
	"context"
	"testing"

	"ipa/internal/callgraph"
	"ipa/internal/hierarchy"
	"ipa/internal/ir"
	"ipa/internal/irexec"
	"ipa/internal/irtext"
)

func parse(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := irtext.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

func build(t *testing.T, src string) (*ir.Module, *callgraph.CallGraph) {
	t.Helper()
	m := parse(t, src)
	return m, buildModule(t, m)
}

func buildModule(t *testing.T, m *ir.Module) *callgraph.CallGraph {
	t.Helper()
	g := callgraph.Build(context.Background(), m, hierarchy.Build(m), callgraph.BuildOptions{ResolveIndirect: true})
	if err := g.Verify(); err != nil {
		t.Fatalf("verify after build: %v", err)
	}
	return g
}

func fn(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()
	f := m.FuncByName(name)
	if f == nil {
		t.Fatalf("function %s missing", name)
	}
	return f
}

func node(t *testing.T, g *callgraph.CallGraph, name string) *callgraph.CGNode {
	t.Helper()
	n := g.NodeOf(fn(t, g.Module, name).ID)
	if n == nil {
		t.Fatalf("node %s missing", name)
	}
	return n
}

// site returns the only call site from caller to callee.
func site(t *testing.T, g *callgraph.CallGraph, caller, callee string) *callgraph.CallInfo {
	t.Helper()
	want := fn(t, g.Module, callee).ID
	var found *callgraph.CallInfo
	for _, cs := range node(t, g, caller).Callsites() {
		if cs.Info.Callee != want {
			continue
		}
		if found != nil {
			t.Fatalf("%s calls %s more than once", caller, callee)
		}
		found = cs.Info
	}
	if found == nil {
		t.Fatalf("%s does not call %s", caller, callee)
	}
	return found
}

func run(t *testing.T, m *ir.Module, name string, args ...int64) int64 {
	t.Helper()
	got, err := irexec.Run(context.Background(), m, name, args...)
	if err != nil {
		t.Fatalf("run %s: %v", name, err)
	}
	return got
}
