package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ipa/internal/callgraph"
	"ipa/internal/inline"
)

const codeColumn = 28

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	finalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderReport prints the inline report as a table with grouped numbers.
func renderReport(w io.Writer, r *inline.Report) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	ok := color.New(color.FgGreen, color.Bold)
	b.WriteString(p.Sprintf("%s %d sites (%d into all callers), dropped %d empty calls, removed %d functions\n",
		ok.Sprint("inlined"), r.NumInlined(), r.AllCallers, r.Dropped, r.Removed))
	growth := color.New(color.FgGreen)
	if r.FinalSize > r.InitialSize {
		growth = color.New(color.FgYellow)
	}
	b.WriteString(p.Sprintf("size %d -> %d insns (max %d, peak %d, %s)\n",
		r.InitialSize, r.FinalSize, r.MaxSize, r.PeakSize, growth.Sprintf("%+.1f%%", r.Growth())))

	codes := r.Codes()
	if len(codes) == 0 {
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(pad("verdict", codeColumn)+" "+pad("class", 11)+" "+pad("inlined", 8)+" left"))
	b.WriteString("\n")
	for _, c := range codes {
		row := pad(c.String(), codeColumn) + " " + pad(c.Class().String(), 11) + " " +
			pad(p.Sprintf("%d", r.Inlined[c]), 8) + " " + p.Sprintf("%d", r.Failed[c])
		if c.IsFinal() && r.Inlined[c] == 0 {
			row = finalStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// pad fits s into width display cells.
func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

// describeCode is the one-line help shown by `ipa inline --explain`.
func describeCode(c callgraph.FailedCode) string {
	return fmt.Sprintf("%-*s %s", codeColumn, c, c.Reason())
}
