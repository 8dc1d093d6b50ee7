package callgraph

import (
	"bufio"
	"fmt"
	"io"
)

// DumpDot writes the graph in Graphviz syntax. Without all, functions that
// have no body are left out. Edges between members of a recursive component
// are red and labelled with the component id; edges to the external node and
// sites without targets are labelled with the call kind.
func (g *CallGraph) DumpDot(w io.Writer, all bool) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %q {\n", g.Module.Name)
	fmt.Fprintln(bw, "  node [shape=box];")

	shown := func(n *CGNode) bool { return all || n.HasBody() }
	external := false
	for _, n := range g.Nodes() {
		if shown(n) {
			fmt.Fprintf(bw, "  %q;\n", n.Name())
		}
	}
	for _, n := range g.Nodes() {
		if !shown(n) {
			continue
		}
		seen := make(map[NodeID]bool)
		for _, cs := range n.callsites {
			if len(cs.Targets) == 0 {
				fmt.Fprintf(bw, "  %q -> %q [style=dashed, label=%q];\n", n.Name(), "<unresolved>", cs.Info.Kind.String())
				continue
			}
			for _, t := range cs.Targets {
				tn := g.nodes[t]
				switch {
				case t == ExternalNode:
					external = true
					fmt.Fprintf(bw, "  %q -> %q [label=%q];\n", n.Name(), tn.Name(), cs.Info.Kind.String())
				case seen[t] || !shown(tn):
				case g.sameSCC(n.ID, t) && g.sccs[n.scc].HasRecursion():
					seen[t] = true
					fmt.Fprintf(bw, "  %q -> %q [color=red, label=\"scc %d\"];\n", n.Name(), tn.Name(), n.scc)
				default:
					seen[t] = true
					fmt.Fprintf(bw, "  %q -> %q;\n", n.Name(), tn.Name())
				}
			}
		}
	}
	if external {
		fmt.Fprintf(bw, "  %q [shape=ellipse, style=dotted];\n", g.External().Name())
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
