package tool

import (
	"context"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
)

// Tool represents a capability the assistant can invoke locally.
// Each tool must be stateless and safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description
	Description() string

	// Definition returns the structured tool definition for the provider
	Definition() provider.ToolDefinition

	// Execute runs the tool with the given arguments.
	// Args is a map of argument names to values, as provided by the model.
	// Internal failures must come back as the error return, never as a
	// panic past this boundary.
	Execute(ctx context.Context, args map[string]any) (string, error)
}
