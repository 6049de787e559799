package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	panic("unknown key " + s)
}

func TestConfirmApproveRequiresExplicitYes(t *testing.T) {
	tests := []struct {
		key      string
		approved bool
	}{
		{"y", true},
		{"Y", true},
		{"n", false},
		{"N", false},
		{"enter", false},
		{"esc", false},
		{"ctrl+c", false},
		{"q", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := confirmModel{req: ConfirmRequest{Command: "rm -rf /tmp/x"}}

			updated, cmd := m.Update(keyMsg(tt.key))
			final := updated.(confirmModel)

			assert.True(t, final.answered)
			assert.Equal(t, tt.approved, final.approved)
			require.NotNil(t, cmd, "an answer must quit the prompt")
		})
	}
}

func TestConfirmIgnoresOtherKeys(t *testing.T) {
	m := confirmModel{req: ConfirmRequest{Command: "rm -rf /tmp/x"}}

	updated, cmd := m.Update(keyMsg("x"))
	final := updated.(confirmModel)

	assert.False(t, final.answered)
	assert.Nil(t, cmd)
}

func TestConfirmViewShowsCommandAndAlternative(t *testing.T) {
	m := confirmModel{req: ConfirmRequest{
		Command:     "rm -rf /tmp/x",
		Reason:      "forced recursive delete",
		Alternative: "use trash instead",
	}}

	view := m.View()

	assert.Contains(t, view, "rm -rf /tmp/x")
	assert.Contains(t, view, "forced recursive delete")
	assert.Contains(t, view, "use trash instead")
}

func TestConfirmViewEmptyAfterAnswer(t *testing.T) {
	m := confirmModel{answered: true}
	assert.Empty(t, m.View())
}
