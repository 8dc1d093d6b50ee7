package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ipa/internal/observ"
	"ipa/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "ipa",
	Short:         "Interprocedural call graph and inlining driver",
	Long:          `ipa builds the call graph of a textual IR module, orders it bottom-up and inlines call sites greedily under a module growth cap`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupSession(cmd)
	},
}

// session is the per-invocation state shared by the subcommands.
type session struct {
	timer    *observ.Timer
	cleanups []func()
	useColor bool
	quiet    bool
	maxDiag  int
	timings  bool
}

var sess session

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(callgraphCmd)
	rootCmd.AddCommand(sccCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(inlineCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("config", "", "options file (default: ipa.toml next to the first input)")
	flags.String("trace", "", "write a pass trace to this file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace mode (stream|ring|both)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval")
	flags.String("cpuprofile", "", "write a CPU profile to this file")
	flags.String("memprofile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	sess.finish()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ipa: %v\n", err)
		os.Exit(1)
	}
}

func setupSession(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return err
	}
	useColor, err := readColorMode(colorFlag)
	if err != nil {
		return err
	}
	color.NoColor = !useColor
	sess.useColor = useColor

	if sess.quiet, err = flags.GetBool("quiet"); err != nil {
		return err
	}
	if sess.timings, err = flags.GetBool("timings"); err != nil {
		return err
	}
	if sess.maxDiag, err = flags.GetInt("max-diagnostics"); err != nil {
		return err
	}
	sess.timer = observ.NewTimer()

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	sess.cleanups = append(sess.cleanups, traceCleanup)
	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	sess.cleanups = append(sess.cleanups, profCleanup)
	return nil
}

// finish runs cleanups in reverse order and prints timings.
func (s *session) finish() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
	if s.timings && s.timer != nil {
		printTimings(os.Stderr, s.timer)
	}
}

func readColorMode(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
