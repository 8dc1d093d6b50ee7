package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ipa/internal/inline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [flags] FILE...",
	Short: "Dump the inline summaries of the module",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().String("func", "", "dump only this function")
}

func runSummary(cmd *cobra.Command, args []string) error {
	only, err := cmd.Flags().GetString("func")
	if err != nil {
		return err
	}
	m, err := loadModule(cmd, args)
	if err != nil {
		return err
	}
	if only != "" && m.FuncByName(only) == nil {
		return fmt.Errorf("unknown function %q", only)
	}

	sums := inline.NewSummaries()
	defer sums.Release()
	if err := timed("summary", func() error { return inline.CollectAll(cmd.Context(), m, sums) }); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, fn := range m.LiveFuncs() {
		if only != "" && fn.Name != only {
			continue
		}
		s := sums.Get(fn.ID)
		if s == nil {
			continue
		}
		if err := s.Dump(out, fn.Name); err != nil {
			return err
		}
	}
	return nil
}
