package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ipa/internal/inline"
)

// recentSites is how many call sites the view keeps on screen.
const recentSites = 12

type progressModel struct {
	title   string
	events  <-chan inline.Event
	spinner spinner.Model
	prog    progress.Model
	recent  []siteItem
	width   int
	done    bool

	inlined  int
	rejected int
	queued   int
	size     int64
	max      int64
}

type siteItem struct {
	site   string
	status string
	depth  int
}

type eventMsg inline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders the progress of
// a greedy inlining run fed through events.
func NewProgressModel(title string, events <-chan inline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(inline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (inlined %d, rejected %d, queued %d)", m.title, m.inlined, m.rejected, m.queued)
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	if m.max > 0 {
		fmt.Fprintf(&b, "  size %d / %d insns\n", m.size, m.max)
	}
	b.WriteString("\n")

	statusWidth := 24
	nameWidth := max(m.width-statusWidth-10, 20)
	for _, item := range m.recent {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%24s", truncate(item.status, statusWidth)))
		fmt.Fprintf(&b, "  %s %s d%d\n", statusStyled, truncate(item.site, nameWidth), item.depth)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev inline.Event) tea.Cmd {
	m.size, m.max, m.queued = ev.Size, ev.Max, ev.Queued
	switch ev.Kind {
	case inline.EventInlined:
		m.inlined++
		m.push(siteItem{site: ev.Caller + " <- " + ev.Callee, status: "inlined", depth: ev.Depth})
	case inline.EventRejected:
		m.rejected++
		m.push(siteItem{site: ev.Caller + " <- " + ev.Callee, status: ev.Code.String(), depth: ev.Depth})
	case inline.EventDone:
		return m.prog.SetPercent(1)
	}
	handled := m.inlined + m.rejected
	if total := handled + m.queued; total > 0 {
		return m.prog.SetPercent(float64(handled) / float64(total))
	}
	return nil
}

func (m *progressModel) push(item siteItem) {
	m.recent = append(m.recent, item)
	if len(m.recent) > recentSites {
		m.recent = m.recent[len(m.recent)-recentSites:]
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "inlined":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "module_growth", "depth_limit":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
