package orchestrator

import (
	"fmt"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
)

// AbortReason names which ceiling forced the request to stop.
type AbortReason string

const (
	AbortCost       AbortReason = "cost ceiling"
	AbortToolCalls  AbortReason = "tool-call ceiling"
	AbortIterations AbortReason = "iteration ceiling"
)

// AbortError is returned when a configured ceiling is breached. It is
// fatal to the current request only, and carries everything accrued so
// far so the caller can still report usage.
type AbortError struct {
	Reason AbortReason
	Limit  string
	Usage  provider.Usage
	Cost   float64
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("request aborted: %s exceeded (%s); accrued cost $%.6f over %d tokens",
		e.Reason, e.Limit, e.Cost, e.Usage.TotalTokens)
}

// RefusalError marks a tool call that was blocked rather than executed:
// either by the risk classifier or by ask mode. It is not an application
// error — the text becomes the tool result the model reads.
type RefusalError struct {
	Command     string
	Reason      string
	Alternative string
}

// Error implements the error interface.
func (e *RefusalError) Error() string {
	msg := fmt.Sprintf("command was not run: %s\n\nCommand: %s", e.Reason, e.Command)
	if e.Alternative != "" {
		msg += "\n\nSafer alternative: " + e.Alternative
	}
	return msg
}
