package config

import (
	"fmt"
	"strings"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	if c.Model.Name == "" {
		errs = append(errs, "model.name must not be empty")
	}
	if c.Model.RequestTimeoutSeconds < 1 {
		errs = append(errs, "model.request_timeout_seconds must be >= 1")
	}

	// Limits validation: every ceiling must be positive so each one is
	// actually enforceable.
	if c.Limits.MaxIterations < 1 {
		errs = append(errs, "limits.max_iterations must be >= 1")
	}
	if c.Limits.MaxToolCalls < 1 {
		errs = append(errs, "limits.max_tool_calls must be >= 1")
	}
	if c.Limits.MaxCostPerRequest <= 0 {
		errs = append(errs, "limits.max_cost_per_request must be > 0")
	}
	if c.Limits.CostWarningThreshold > c.Limits.MaxCostPerRequest {
		errs = append(errs, "limits.cost_warning_threshold must be <= limits.max_cost_per_request")
	}

	// Tools validation
	if c.Tools.DefaultCommandTimeoutSeconds < 1 {
		errs = append(errs, "tools.default_command_timeout_seconds must be >= 1")
	}
	if c.Tools.MaxCommandTimeoutSeconds < 1 {
		errs = append(errs, "tools.max_command_timeout_seconds must be >= 1")
	}
	if c.Tools.DefaultCommandTimeoutSeconds > c.Tools.MaxCommandTimeoutSeconds {
		errs = append(errs, "tools.default_command_timeout_seconds must be <= tools.max_command_timeout_seconds")
	}
	if c.Tools.MaxCommandOutputChars < 1 {
		errs = append(errs, "tools.max_command_output_chars must be >= 1")
	}
	if c.Tools.WebFetchMaxChars < 1 {
		errs = append(errs, "tools.web_fetch_max_chars must be >= 1")
	}
	if c.Tools.PythonTimeoutSeconds > c.Tools.MaxPythonTimeoutSeconds {
		errs = append(errs, "tools.python_timeout_seconds must be <= tools.max_python_timeout_seconds")
	}

	// Memory validation
	if c.Memory.MaxConversations < 1 {
		errs = append(errs, "memory.max_conversations must be >= 1")
	}
	if c.Memory.ContextConversations < 0 {
		errs = append(errs, "memory.context_conversations must be >= 0")
	}
	if c.Memory.ContextConversations > c.Memory.MaxConversations {
		errs = append(errs, "memory.context_conversations must be <= memory.max_conversations")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
