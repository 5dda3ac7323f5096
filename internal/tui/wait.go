// Package tui contains the interactive wait view shown while a synchronous
// dispatch polls for its response artifact.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	slotStyle    = lipgloss.NewStyle().Bold(true)
	pathStyle    = lipgloss.NewStyle().Faint(true)
	elapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

// doneMsg carries the wait outcome into the model.
type doneMsg struct {
	content string
	err     error
}

type tickMsg time.Time

type waitModel struct {
	spinner      spinner.Model
	slotName     string
	responsePath string
	start        time.Time
	elapsed      time.Duration
	content      string
	err          error
	cancelled    bool
}

func newWaitModel(slotName, responsePath string) waitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return waitModel{
		spinner:      s,
		slotName:     slotName,
		responsePath: responsePath,
		start:        time.Now(),
	}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.content = msg.content
		m.err = msg.err
		return m, tea.Quit

	case tickMsg:
		m.elapsed = time.Since(m.start)
		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m waitModel) View() string {
	if m.content != "" || m.err != nil || m.cancelled {
		return ""
	}
	elapsed := m.elapsed.Truncate(time.Second)
	return fmt.Sprintf("%s Waiting for %s %s\n  %s\n",
		m.spinner.View(),
		slotStyle.Render(m.slotName),
		elapsedStyle.Render(fmt.Sprintf("(%s)", elapsed)),
		pathStyle.Render(m.responsePath),
	)
}

// Wait runs fn in the background while showing a spinner with the slot name,
// expected response path and elapsed time. It returns fn's result. Ctrl-C
// stops the view and reports cancellation; fn is expected to observe its own
// context for actual cancellation of the poll.
func Wait(slotName, responsePath string, fn func() (string, error)) (string, error) {
	p := tea.NewProgram(newWaitModel(slotName, responsePath))

	go func() {
		content, err := fn()
		p.Send(doneMsg{content: content, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return "", err
	}

	m := final.(waitModel)
	if m.cancelled {
		return "", fmt.Errorf("wait cancelled")
	}
	return m.content, m.err
}
