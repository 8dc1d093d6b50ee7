package scc_test

import (
	"slices"
	"testing"

	"ipa/internal/scc"
)

type graph [][]int

func (g graph) succs(v int) []int { return g[v] }

func reach(g graph) [][]bool {
	n := len(g)
	r := make([][]bool, n)
	for v := range n {
		r[v] = make([]bool, n)
		stack := []int{v}
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range g[x] {
				if !r[v][w] {
					r[v][w] = true
					stack = append(stack, w)
				}
			}
		}
	}
	return r
}

func checkPartition(t *testing.T, g graph, res *scc.Result) {
	t.Helper()
	seen := make(map[int]int)
	for _, c := range res.Components {
		for _, v := range c.Members {
			seen[v]++
			if res.CompOf[v] != c.ID {
				t.Fatalf("node %d listed in component %d but CompOf says %d", v, c.ID, res.CompOf[v])
			}
		}
	}
	for v := range g {
		if seen[v] != 1 {
			t.Fatalf("node %d belongs to %d components", v, seen[v])
		}
	}
	r := reach(g)
	for a := range g {
		for b := range g {
			if a == b {
				continue
			}
			same := res.CompOf[a] == res.CompOf[b]
			mutual := r[a][b] && r[b][a]
			if same != mutual {
				t.Fatalf("nodes %d,%d: same component=%v, mutually reachable=%v", a, b, same, mutual)
			}
		}
	}
}

func checkTopo(t *testing.T, res *scc.Result) {
	t.Helper()
	pos := make(map[int]int)
	for i, c := range res.TopVec {
		pos[c.ID] = i
	}
	if len(pos) != len(res.Components) {
		t.Fatalf("TopVec has %d components, want %d", len(pos), len(res.Components))
	}
	for _, c := range res.Components {
		for _, callee := range c.OutSCC {
			if pos[c.ID] >= pos[callee] {
				t.Fatalf("caller component %d is not before callee component %d", c.ID, callee)
			}
		}
	}
}

func TestPartitionAndOrder(t *testing.T) {
	// 0 -> 1 -> 2 -> 1, 2 -> 3, 3 -> 3, 4 -> 0, 5 <-> 6 island
	g := graph{
		{1},
		{2},
		{1, 3},
		{3},
		{0},
		{6},
		{5},
	}
	res := scc.Build(len(g), []int{4}, g.succs)
	checkPartition(t, g, res)
	checkTopo(t, res)

	if c := res.Of(1); !c.HasRecursion() || c.HasSelfRecursion() || !slices.Equal(c.Members, []int{1, 2}) {
		t.Fatalf("component of 1 = %+v", c)
	}
	if c := res.Of(3); !c.HasRecursion() || !c.HasSelfRecursion() {
		t.Fatal("3 calls itself and should be self-recursive")
	}
	if c := res.Of(0); c.HasRecursion() || c.HasSelfRecursion() {
		t.Fatal("0 is not recursive")
	}
	if c := res.Of(5); !c.HasRecursion() || len(c.Members) != 2 {
		t.Fatal("the 5/6 island should be found by the sweep")
	}
	if res.Of(4).HasInSCC() {
		t.Fatal("4 is a root")
	}
}

func TestRemoveInSCC(t *testing.T) {
	g := graph{{1}, {}, {1}}
	res := scc.Build(len(g), []int{0, 2}, g.succs)
	c := res.Of(1)
	if len(c.InSCC) != 2 {
		t.Fatalf("InSCC = %v", c.InSCC)
	}
	c.RemoveInSCC(res.CompOf[0])
	c.RemoveInSCC(res.CompOf[2])
	if c.HasInSCC() {
		t.Fatal("InSCC should be empty after removals")
	}
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	const n = 200000
	g := make(graph, n)
	for i := 0; i < n-1; i++ {
		g[i] = []int{i + 1}
	}
	g[n-1] = []int{0}
	res := scc.Build(n, nil, g.succs)
	if len(res.Components) != 1 || len(res.Components[0].Members) != n {
		t.Fatalf("expected one component of %d nodes, got %d components", n, len(res.Components))
	}
}
