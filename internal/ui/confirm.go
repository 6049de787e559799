package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is a minimal yes/no prompt for dangerous commands.
type confirmModel struct {
	req      ConfirmRequest
	answered bool
	approved bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answered = true
		m.approved = true
		return m, tea.Quit
	case "n", "N", "enter", "esc", "ctrl+c", "q":
		// Anything but an explicit yes is a refusal.
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}

	var lines []string
	lines = append(lines, ErrorStyle.Render("DANGEROUS COMMAND DETECTED"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%s %s", WarnStyle.Render("Command:"), m.req.Command))
	lines = append(lines, fmt.Sprintf("%s %s", WarnStyle.Render("Risk:"), m.req.Reason))
	if m.req.Alternative != "" {
		lines = append(lines, "")
		lines = append(lines, CitationStyle.Render("Safer alternative:"))
		lines = append(lines, m.req.Alternative)
	}
	lines = append(lines, "")
	lines = append(lines, "This command could cause data loss or system damage.")
	lines = append(lines, "")
	lines = append(lines, MutedStyle.Render("y: run the command   n/esc: refuse"))

	return ConfirmBoxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// runConfirm blocks on the confirmation prompt. A prompt failure counts
// as a refusal, never as an approval.
func runConfirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	program := tea.NewProgram(confirmModel{req: req}, tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	m, ok := final.(confirmModel)
	return ok && m.approved, nil
}
