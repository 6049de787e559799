package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// spinnerModel animates a dot spinner with a status label until quit.
type spinnerModel struct {
	spinner spinner.Model
	label   string
}

type spinnerStopMsg struct{}

type spinnerLabelMsg string

func newSpinnerModel(label string) spinnerModel {
	return spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		label:   label,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerStopMsg:
		return m, tea.Quit
	case spinnerLabelMsg:
		m.label = string(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m spinnerModel) View() string {
	return StatusStyle.Render(m.spinner.View() + m.label)
}

// Spinner shows progress while the request runs. Start and Stop pair;
// Stop blocks until the terminal is released so subsequent prints don't
// interleave with the spinner frame.
type Spinner struct {
	program *tea.Program
	done    chan struct{}
}

// StartSpinner launches the spinner with an initial label.
func StartSpinner(label string) *Spinner {
	s := &Spinner{
		program: tea.NewProgram(newSpinnerModel(label)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		_, _ = s.program.Run()
	}()
	return s
}

// SetLabel updates the status label next to the spinner.
func (s *Spinner) SetLabel(label string) {
	s.program.Send(spinnerLabelMsg(label))
}

// Stop quits the spinner and waits for the terminal to be restored.
func (s *Spinner) Stop() {
	s.program.Send(spinnerStopMsg{})
	<-s.done
}
