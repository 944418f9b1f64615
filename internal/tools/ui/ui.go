package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("250"))
	frames      = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

var ErrInterrupted = errors.New("interrupted")

type tickMsg time.Time

type doneMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	run     func() tea.Msg
	cancel  context.CancelFunc
	frame   int
	done    bool
	details []string
	err     error
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.run)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancel()
			m.done = true
			m.err = ErrInterrupted
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(frames)
		return m, tick()
	case doneMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if !m.done {
		return frames[m.frame] + " " + titleStyle.Render(m.title) + "\n"
	}
	var b strings.Builder
	if m.err != nil {
		b.WriteString(failStyle.Render("✗ "+m.title) + "\n")
	} else {
		b.WriteString(okStyle.Render("✓ "+m.title) + "\n")
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render("• "+d) + "\n")
	}
	if m.err != nil {
		b.WriteString(detailStyle.Render("error: "+m.err.Error()) + "\n")
	}
	return b.String()
}

// Run executes fn behind a spinner and prints the styled outcome.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := model{
		title:  title,
		cancel: cancel,
		run: func() tea.Msg {
			details, err := fn(ctx)
			return doneMsg{details: details, err: err}
		},
	}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}
	fm := final.(model)
	return fm.details, fm.err
}
