package config

import "github.com/Cyclone1070/lolo/internal/cost"

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero
// values. Missing keys are left at their default values.
type Config struct {
	Model  ModelConfig  `json:"model"`
	Limits LimitsConfig `json:"limits"`
	Tools  ToolsConfig  `json:"tools"`
	Memory MemoryConfig `json:"memory"`
	Voice  VoiceConfig  `json:"voice"`
}

type ModelConfig struct {
	Name                  string     `json:"name"`                    // Default: "gpt-5-mini"
	ReasoningEffort       string     `json:"reasoning_effort"`        // Default: "low"
	Verbosity             string     `json:"verbosity"`               // Default: "medium"
	RequestTimeoutSeconds int        `json:"request_timeout_seconds"` // Default: 120
	Pricing               cost.Table `json:"pricing"`                 // Per-1M-token rates by model name
}

// LimitsConfig holds the four independent per-request ceilings. Each one
// must be individually triggerable; none is hardcoded in the loop.
type LimitsConfig struct {
	MaxIterations        int     `json:"max_iterations"`         // Default: 5
	MaxToolCalls         int     `json:"max_tool_calls"`         // Default: 10
	CostWarningThreshold float64 `json:"cost_warning_threshold"` // Default: 0.10 (USD)
	MaxCostPerRequest    float64 `json:"max_cost_per_request"`   // Default: 0.50 (USD)
}

type ToolsConfig struct {
	// Command execution
	DefaultCommandTimeoutSeconds int `json:"default_command_timeout_seconds"` // Default: 30
	MaxCommandTimeoutSeconds     int `json:"max_command_timeout_seconds"`     // Default: 300
	MaxCommandOutputChars        int `json:"max_command_output_chars"`        // Default: 10000

	// Web fetch
	WebFetchMaxChars       int `json:"web_fetch_max_chars"`       // Default: 25000
	WebFetchTimeoutSeconds int `json:"web_fetch_timeout_seconds"` // Default: 10
	WebCacheTTLSeconds     int `json:"web_cache_ttl_seconds"`     // Default: 3600

	// Python executor
	PythonTimeoutSeconds    int `json:"python_timeout_seconds"`     // Default: 30
	MaxPythonTimeoutSeconds int `json:"max_python_timeout_seconds"` // Default: 300

	// Image generation
	ImageModel     string `json:"image_model"`      // Default: "gpt-image-1"
	ImageOutputDir string `json:"image_output_dir"` // Default: "~/.lolo/images"
}

type MemoryConfig struct {
	Path                 string `json:"path"`                  // Default: "~/.lolo/memory.json"
	MaxConversations     int    `json:"max_conversations"`     // Default: 50
	ContextConversations int    `json:"context_conversations"` // Default: 10
}

type VoiceConfig struct {
	Model string `json:"model"` // Default: "gpt-realtime"
	Voice string `json:"voice"` // Default: "alloy"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:                  "gpt-5-mini",
			ReasoningEffort:       "low",
			Verbosity:             "medium",
			RequestTimeoutSeconds: 120,
			Pricing:               cost.DefaultTable(),
		},
		Limits: LimitsConfig{
			MaxIterations:        5,
			MaxToolCalls:         10,
			CostWarningThreshold: 0.10,
			MaxCostPerRequest:    0.50,
		},
		Tools: ToolsConfig{
			DefaultCommandTimeoutSeconds: 30,
			MaxCommandTimeoutSeconds:     300,
			MaxCommandOutputChars:        10000,
			WebFetchMaxChars:             25000,
			WebFetchTimeoutSeconds:       10,
			WebCacheTTLSeconds:           3600,
			PythonTimeoutSeconds:         30,
			MaxPythonTimeoutSeconds:      300,
			ImageModel:                   "gpt-image-1",
			ImageOutputDir:               "~/.lolo/images",
		},
		Memory: MemoryConfig{
			Path:                 "~/.lolo/memory.json",
			MaxConversations:     50,
			ContextConversations: 10,
		},
		Voice: VoiceConfig{
			Model: "gpt-realtime",
			Voice: "alloy",
		},
	}
}
