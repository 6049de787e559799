// Package ui renders the assistant's terminal surface: status lines,
// the confirmation prompt for dangerous commands, the markdown answer
// and the usage report.
package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
)

// Console is the text-mode implementation of UserInterface.
type Console struct {
	mu      sync.Mutex
	spinner *Spinner
}

// NewConsole creates a console UI.
func NewConsole() *Console {
	return &Console{}
}

// StartThinking shows the progress spinner.
func (c *Console) StartThinking(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spinner == nil {
		c.spinner = StartSpinner(label)
	}
}

// StopThinking hides the progress spinner.
func (c *Console) StopThinking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.spinner != nil {
		c.spinner.Stop()
		c.spinner = nil
	}
}

// WriteStatus implements UserInterface. While the spinner runs, status
// updates relabel it; otherwise they print as their own line.
func (c *Console) WriteStatus(phase string, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spinner != nil {
		c.spinner.SetLabel(message)
		return
	}

	switch phase {
	case "tool":
		fmt.Println(ToolStyle.Render("🔧 " + message))
	case "search":
		fmt.Println(ToolStyle.Render("🌐 " + message))
	default:
		fmt.Println(StatusStyle.Render(message))
	}
}

// WriteWarning implements UserInterface.
func (c *Console) WriteWarning(message string) {
	c.StopThinking()
	fmt.Println(WarnStyle.Render("⚠ " + message))
}

// ReadConfirmation implements UserInterface. The spinner is stopped
// first so the prompt owns the terminal.
func (c *Console) ReadConfirmation(ctx context.Context, req ConfirmRequest) (bool, error) {
	c.StopThinking()
	return runConfirm(ctx, req)
}

// PrintQuestion echoes the user's question.
func (c *Console) PrintQuestion(question string) {
	fmt.Printf("\n%s %s\n\n", QuestionStyle.Render("Question:"), question)
}

// PrintAnswer renders the final answer as markdown.
func (c *Console) PrintAnswer(answer string) {
	c.StopThinking()

	fmt.Println(AnswerStyle.Render("Response:"))
	rendered, err := glamour.Render(answer, "auto")
	if err != nil {
		fmt.Println(answer)
		return
	}
	fmt.Println(strings.TrimRight(rendered, "\n"))
}

// PrintCitations renders the Sources list.
func (c *Console) PrintCitations(citations []provider.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Println(CitationStyle.Render("Sources:"))
	for i, cite := range citations {
		title := cite.Title
		if title == "" {
			title = "Source"
		}
		fmt.Printf("  %d. %s\n     %s\n", i+1, CitationStyle.Render(title), cite.URL)
	}
	fmt.Println()
}

// UsageReport summarizes one request for the user.
type UsageReport struct {
	Model         string
	ToolsUsed     []string
	Usage         provider.Usage
	Cost          float64
	UnknownModels []string
}

// PrintUsage renders the usage statistics block.
func (c *Console) PrintUsage(report UsageReport) {
	rule := RuleStyle.Render(strings.Repeat("─", 60))

	fmt.Println(rule)
	fmt.Println(UsageLabelStyle.Render("Usage Statistics:"))
	fmt.Printf("  Model: %s\n", StatusStyle.Render(report.Model))
	if len(report.ToolsUsed) > 0 {
		fmt.Printf("  Tools used: %s\n", MutedStyle.Render(strings.Join(report.ToolsUsed, ", ")))
	}
	fmt.Printf("  Input tokens: %s\n", UsageValueStyle.Render(fmt.Sprintf("%d", report.Usage.InputTokens)))
	if report.Usage.CachedTokens > 0 {
		fmt.Printf("  Cached tokens: %s\n", UsageValueStyle.Render(fmt.Sprintf("%d", report.Usage.CachedTokens)))
	}
	fmt.Printf("  Output tokens: %s\n", UsageValueStyle.Render(fmt.Sprintf("%d", report.Usage.OutputTokens)))
	if report.Usage.ReasoningTokens > 0 {
		fmt.Printf("  Reasoning tokens: %s\n", UsageValueStyle.Render(fmt.Sprintf("%d", report.Usage.ReasoningTokens)))
	}
	fmt.Printf("  Total tokens: %s\n", UsageValueStyle.Render(fmt.Sprintf("%d", report.Usage.InputTokens+report.Usage.OutputTokens)))
	fmt.Printf("  Cost: %s\n", CostStyle.Render(fmt.Sprintf("$%.6f", report.Cost)))
	for _, model := range report.UnknownModels {
		fmt.Println(WarnStyle.Render(fmt.Sprintf("  (no pricing for model %q — its tokens are not included in the cost)", model)))
	}
	fmt.Println(rule)
}
