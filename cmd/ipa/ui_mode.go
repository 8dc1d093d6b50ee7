package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// uiMode is the value of the inline command's --ui flag.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

var uiModes = map[string]uiMode{"": uiAuto, "auto": uiAuto, "on": uiOn, "off": uiOff}

func parseUIMode(value string) (uiMode, error) {
	if m, ok := uiModes[strings.ToLower(strings.TrimSpace(value))]; ok {
		return m, nil
	}
	return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// liveView reports whether an inline run renders the progress view. In
// auto mode the command output must be a terminal and --quiet unset.
func liveView(cmd *cobra.Command, quiet bool) (bool, error) {
	value, _ := cmd.Flags().GetString("ui")
	mode, err := parseUIMode(value)
	if err != nil {
		return false, err
	}
	switch mode {
	case uiOn:
		return true, nil
	case uiOff:
		return false, nil
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && !quiet && isTerminal(f), nil
}
