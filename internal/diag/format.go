package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Fprint renders diagnostics one per line, followed by their notes.
func Fprint(w io.Writer, items []Diagnostic, useColor bool) error {
	for _, d := range items {
		sev := d.Severity.String()
		if useColor {
			sev = severityColor(d.Severity).Sprint(sev)
		}
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n", d.Pos, sev, d.Code.ID(), d.Message); err != nil {
			return err
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "  %s: note: %s\n", n.Pos, n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func severityColor(s Severity) *color.Color {
	c := color.New(color.Bold)
	switch s {
	case SevError:
		c.Add(color.FgRed)
	case SevWarning:
		c.Add(color.FgYellow)
	default:
		c.Add(color.FgCyan)
	}
	// useColor already accounts for the terminal.
	c.EnableColor()
	return c
}
