package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorPrimary = lipgloss.Color("12") // blue
	ColorAccent  = lipgloss.Color("14") // cyan
	ColorOK      = lipgloss.Color("10") // green
	ColorWarn    = lipgloss.Color("11") // yellow
	ColorDanger  = lipgloss.Color("9")  // red
	ColorMuted   = lipgloss.Color("13") // magenta
)

var (
	QuestionStyle = lipgloss.NewStyle().Bold(true)
	StatusStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	ToolStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	AnswerStyle   = lipgloss.NewStyle().Foreground(ColorOK).Bold(true)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	ErrorStyle    = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)
	CitationStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	MutedStyle    = lipgloss.NewStyle().Faint(true)

	UsageLabelStyle = lipgloss.NewStyle().Bold(true)
	UsageValueStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	CostStyle       = lipgloss.NewStyle().Foreground(ColorOK)

	ConfirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDanger).
			Padding(1, 2)

	RuleStyle = lipgloss.NewStyle().Foreground(ColorPrimary)
)
