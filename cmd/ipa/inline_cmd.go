package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ipa/internal/callgraph"
	"ipa/internal/config"
	"ipa/internal/diag"
	"ipa/internal/inline"
	"ipa/internal/ir"
	"ipa/internal/snapshot"
)

var inlineCmd = &cobra.Command{
	Use:   "inline [flags] FILE...",
	Short: "Run the greedy inliner over the module",
	Args: func(cmd *cobra.Command, args []string) error {
		if explain, _ := cmd.Flags().GetBool("explain"); explain {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runInline,
}

func init() {
	f := inlineCmd.Flags()
	f.Bool("emit", false, "print the module after inlining")
	f.Bool("report", true, "print the inline report")
	f.String("ui", "auto", "live progress view (auto|on|off)")
	f.String("snapshot", "", "write a msgpack snapshot of the graph and report to this file")
	f.Bool("explain", false, "list every verdict code with its meaning and exit")
	f.Int64("growth", -1, "override inline.module_growth (percent)")
}

func runInline(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if explain, _ := flags.GetBool("explain"); explain {
		for _, c := range callgraph.AllFailedCodes() {
			fmt.Fprintln(cmd.OutOrStdout(), describeCode(c))
		}
		return nil
	}
	emit, _ := flags.GetBool("emit")
	showReport, _ := flags.GetBool("report")
	snapPath, _ := flags.GetString("snapshot")
	live, err := liveView(cmd, sess.quiet)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if g, _ := flags.GetInt64("growth"); g >= 0 {
		cfg.Inline.ModuleGrowth = g
	}
	m, err := loadModule(cmd, args)
	if err != nil {
		return err
	}
	g := buildGraph(cmd, m, cfg.BuildOptions())

	bag := diag.NewBag(sess.maxDiag)
	defer flushDiagnostics(cmd, bag)
	rep, err := inlineModule(cmd, g, cfg, bag, live)
	if err != nil {
		return err
	}

	if cfg.CallGraph.DumpDot != "" {
		if err := writeFile(cfg.CallGraph.DumpDot, func(f *os.File) error { return g.DumpDot(f, false) }); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.CallGraph.DumpDot, err)
		}
	}
	if snapPath != "" {
		snap := &snapshot.Snapshot{Graph: snapshot.FromGraph(g), Inline: snapshot.FromReport(rep)}
		if err := snapshot.Write(snapPath, snap); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	if emit {
		if err := ir.Fprint(cmd.OutOrStdout(), m); err != nil {
			return err
		}
	}
	if showReport && !sess.quiet {
		return renderReport(cmd.OutOrStdout(), rep)
	}
	return nil
}

// inlineModule loads the lists named by cfg and runs the inliner over g.
func inlineModule(cmd *cobra.Command, g *callgraph.CallGraph, cfg config.Config, bag *diag.Bag, useUI bool) (*inline.Report, error) {
	rep := diag.BagReporter{Bag: bag}
	lists, profile, err := cfg.LoadLists(rep)
	if err != nil {
		return nil, err
	}
	lists.Inline.CheckNames(g.Module, cfg.Inline.InlineList, rep)
	lists.NoInline.CheckNames(g.Module, cfg.Inline.NoInlineList, rep)

	in := inline.NewInliner(g, cfg.Options(), lists, rep)
	defer in.Cleanup()
	if profile != nil {
		in.SetProfile(profile, cfg.Inline.Profile)
	}

	var report *inline.Report
	err = timed("inline", func() error {
		var err error
		if useUI {
			report, err = runInlineWithUI(cmd.Context(), "inlining "+g.Module.Name, in)
		} else {
			report, err = in.Run(cmd.Context())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := g.Verify(); err != nil {
		return nil, fmt.Errorf("call graph is inconsistent after inlining: %w", err)
	}
	return report, nil
}
