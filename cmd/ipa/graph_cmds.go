package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ipa/internal/callgraph"
	"ipa/internal/snapshot"
)

var callgraphCmd = &cobra.Command{
	Use:   "callgraph [flags] FILE...",
	Short: "Build the call graph and print or dump it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCallgraph,
}

var sccCmd = &cobra.Command{
	Use:   "scc FILE...",
	Short: "Print strongly connected components in topological order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graphFromArgs(cmd, args)
		if err != nil {
			return err
		}
		return printSCCs(cmd.OutOrStdout(), g)
	},
}

var orderCmd = &cobra.Command{
	Use:   "order FILE...",
	Short: "Print the bottom-up compilation order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := graphFromArgs(cmd, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range g.Module.FuncList {
			if fn := g.Module.Func(id); fn != nil {
				fmt.Fprintln(out, fn.Name)
			}
		}
		return nil
	},
}

func init() {
	callgraphCmd.Flags().String("dot", "", "write the graph in Graphviz syntax to this file (- for stdout)")
	callgraphCmd.Flags().Bool("all", false, "include functions without a body in the DOT output")
	callgraphCmd.Flags().String("snapshot", "", "write a msgpack snapshot of the graph to this file")
	callgraphCmd.Flags().Bool("prune", false, "remove uncalled file-static functions")
}

func graphFromArgs(cmd *cobra.Command, args []string) (*callgraph.CallGraph, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	m, err := loadModule(cmd, args)
	if err != nil {
		return nil, err
	}
	opts := cfg.BuildOptions()
	if cmd.Flags().Changed("prune") {
		opts.PruneStatic, _ = cmd.Flags().GetBool("prune")
	}
	return buildGraph(cmd, m, opts), nil
}

func runCallgraph(cmd *cobra.Command, args []string) error {
	g, err := graphFromArgs(cmd, args)
	if err != nil {
		return err
	}
	if err := g.Verify(); err != nil {
		return fmt.Errorf("call graph is inconsistent: %w", err)
	}

	dotPath, _ := cmd.Flags().GetString("dot")
	all, _ := cmd.Flags().GetBool("all")
	snapPath, _ := cmd.Flags().GetString("snapshot")

	if snapPath != "" {
		if err := snapshot.Write(snapPath, &snapshot.Snapshot{Graph: snapshot.FromGraph(g)}); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	switch dotPath {
	case "":
		return printGraph(cmd.OutOrStdout(), g)
	case "-":
		return g.DumpDot(cmd.OutOrStdout(), all)
	default:
		return writeFile(dotPath, func(f *os.File) error { return g.DumpDot(f, all) })
	}
}

func printGraph(w io.Writer, g *callgraph.CallGraph) error {
	name := color.New(color.Bold)
	for _, n := range g.Nodes() {
		var callees []string
		for _, id := range n.Callees() {
			if callee := g.Node(id); callee != nil {
				callees = append(callees, callee.Name())
			}
		}
		line := name.Sprint(n.Name())
		if !n.HasBody() {
			line += " (no body)"
		}
		if len(callees) > 0 {
			line += " -> " + strings.Join(callees, ", ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if !sess.quiet {
		_, err := fmt.Fprintf(w, "%d functions, %d components, %d removed\n", g.NumNodes(), len(g.SCCs()), g.Removed())
		return err
	}
	return nil
}

func printSCCs(w io.Writer, g *callgraph.CallGraph) error {
	rec := color.New(color.FgRed)
	for _, c := range g.TopVec() {
		var names []string
		for _, id := range c.Nodes() {
			names = append(names, g.Node(id).Name())
		}
		if len(names) == 0 {
			continue
		}
		line := fmt.Sprintf("scc %d: %s", c.ID(), strings.Join(names, " "))
		switch {
		case c.HasSelfRecursion():
			line += rec.Sprint(" [self-recursive]")
		case c.HasRecursion():
			line += rec.Sprint(" [recursive]")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
