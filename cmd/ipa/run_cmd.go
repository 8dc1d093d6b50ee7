package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ipa/internal/diag"
	"ipa/internal/irexec"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] FILE... [-- ARG...]",
	Short: "Interpret a function, optionally after inlining",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("func", "main", "function to call")
	runCmd.Flags().Bool("inline", false, "run the inliner before interpreting")
	runCmd.Flags().Int64Slice("arg", nil, "integer argument, repeatable")
	runCmd.Flags().Int("max-steps", irexec.DefaultOptions().MaxSteps, "abort after this many statements")
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("func")
	doInline, _ := flags.GetBool("inline")
	callArgs, _ := flags.GetInt64Slice("arg")
	maxSteps, _ := flags.GetInt("max-steps")

	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		rest, err := parseInts(args[dash:])
		if err != nil {
			return err
		}
		callArgs = append(callArgs, rest...)
		args = args[:dash]
	}
	if len(args) == 0 {
		return errors.New("no input files")
	}

	m, err := loadModule(cmd, args)
	if err != nil {
		return err
	}
	if m.FuncByName(name) == nil {
		return fmt.Errorf("unknown function %q", name)
	}
	if doInline {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		bag := diag.NewBag(sess.maxDiag)
		defer flushDiagnostics(cmd, bag)
		if _, err := inlineModule(cmd, buildGraph(cmd, m, cfg.BuildOptions()), cfg, bag, false); err != nil {
			return err
		}
	}

	opts := irexec.DefaultOptions()
	opts.MaxSteps = maxSteps
	mc, err := irexec.New(m, opts)
	if err != nil {
		return err
	}
	var result irexec.Value
	err = timed("run", func() error {
		var err error
		result, err = mc.Call(cmd.Context(), name, callArgs...)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	if !sess.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d steps\n", mc.Steps())
	}
	return nil
}

func parseInts(args []string) ([]int64, error) {
	out := make([]int64, len(args))
	for i, a := range args {
		if _, err := fmt.Sscan(a, &out[i]); err != nil {
			return nil, fmt.Errorf("bad argument %q: %w", a, err)
		}
	}
	return out, nil
}
