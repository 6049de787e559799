package ui

import "context"

// ConfirmRequest describes a dangerous command awaiting human approval.
type ConfirmRequest struct {
	Command     string
	Reason      string
	Alternative string
}

// UserInterface defines the contract the orchestrator uses to talk to
// the user. Methods accept context.Context where they block; if the user
// interrupts, implementations return immediately with the context error.
type UserInterface interface {
	// ReadConfirmation prompts for a yes/no decision on a dangerous
	// command. Declining, interrupting or timing out all mean "no".
	ReadConfirmation(ctx context.Context, req ConfirmRequest) (bool, error)

	// WriteStatus displays ephemeral progress updates (tool dispatches,
	// search notices, iteration boundaries)
	WriteStatus(phase string, message string)

	// WriteWarning displays a non-fatal warning (cost threshold crossed,
	// unknown pricing model)
	WriteWarning(message string)
}
