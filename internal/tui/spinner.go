package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stacker.dev/stacker/internal/output"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type taskDoneMsg struct {
	err error
}

type spinnerModel struct {
	spinner spinner.Model
	title   string
	done    bool
	err     error
}

func newSpinnerModel(title string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return spinnerModel{spinner: s, title: title}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = fmt.Errorf("canceled")
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case taskDoneMsg:
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), titleStyle.Render(m.title))
}

// RunWithSpinner runs fn while a spinner titled title is drawn. Console output
// from splog is held back for the duration. Without a terminal, or when splog
// is nil, fn just runs.
func RunWithSpinner(splog *output.Splog, title string, fn func() error) error {
	if splog == nil || !output.IsStdoutTTY() {
		return fn()
	}

	splog.SetQuiet(true)
	defer splog.SetQuiet(false)

	result := make(chan error, 1)
	p := tea.NewProgram(newSpinnerModel(title))
	go func() {
		err := fn()
		result <- err
		p.Send(taskDoneMsg{err: err})
	}()

	final, runErr := p.Run()
	if runErr != nil {
		// The terminal could not be driven; still wait for the work.
		return <-result
	}
	if m, ok := final.(spinnerModel); ok && m.err != nil && len(result) == 0 {
		// Interrupted before fn finished.
		return m.err
	}
	return <-result
}
