package main

import (
	"fmt"
	"io"

	"ipa/internal/observ"
)

func printTimings(w io.Writer, t *observ.Timer) {
	if len(t.Report().Phases) == 0 {
		return
	}
	if err := t.WriteSummary(w); err != nil {
		fmt.Fprintf(w, "timings: %v\n", err)
	}
}

// timed runs fn as a named phase of the session timer.
func timed(name string, fn func() error) error {
	if sess.timer == nil {
		return fn()
	}
	return sess.timer.Track(name, fn)
}
