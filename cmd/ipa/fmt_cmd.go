package main

import (
	"github.com/spf13/cobra"

	"ipa/internal/ir"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt FILE...",
	Short: "Parse the IR and print it back in canonical form",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadModule(cmd, args)
		if err != nil {
			return err
		}
		return ir.Fprint(cmd.OutOrStdout(), m)
	},
}
