package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ipa/internal/inline"
	"ipa/internal/ui"
)

type inlineOutcome struct {
	report *inline.Report
	err    error
}

// runInlineWithUI drives in.Run in the background while a progress view
// consumes its events. Quitting the view cancels the run.
func runInlineWithUI(ctx context.Context, title string, in *inline.Inliner) (*inline.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan inline.Event, 256)
	outcomeCh := make(chan inlineOutcome, 1)
	in.Events = events
	go func() {
		rep, err := in.Run(ctx)
		outcomeCh <- inlineOutcome{report: rep, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	outcome := <-outcomeCh
	in.Events = nil
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
