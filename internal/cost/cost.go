// Package cost converts token usage into dollars and tracks per-request
// spend against the configured warning threshold and hard ceiling.
package cost

import (
	"sort"
	"sync"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
)

// Pricing holds per-1M-token rates for one model. The audio rates only
// matter for realtime models; they are zero everywhere else.
type Pricing struct {
	Input       float64 `json:"input"`
	Output      float64 `json:"output"`
	Cached      float64 `json:"cached"`
	AudioInput  float64 `json:"audio_input"`
	AudioOutput float64 `json:"audio_output"`
}

// Table maps model names to their pricing.
type Table map[string]Pricing

// DefaultTable returns the built-in pricing table.
func DefaultTable() Table {
	return Table{
		"gpt-5":        {Input: 1.25, Output: 10.00, Cached: 0.125},
		"gpt-5-mini":   {Input: 0.25, Output: 2.00, Cached: 0.025},
		"gpt-5-nano":   {Input: 0.05, Output: 0.40, Cached: 0.005},
		"gpt-realtime": {Input: 4.00, Output: 16.00, Cached: 0.40, AudioInput: 32.00, AudioOutput: 64.00},
	}
}

// Calculate computes the dollar cost of one round-trip's usage. Cached
// input tokens are billed at the cached rate instead of the input rate;
// reasoning tokens are billed as output; audio tokens are billed at the
// audio rates instead of the text rates.
func Calculate(p Pricing, u provider.Usage) float64 {
	textInput := u.InputTokens - u.AudioInputTokens - u.CachedTokens
	if textInput < 0 {
		textInput = 0
	}
	textOutput := u.OutputTokens - u.AudioOutputTokens
	if textOutput < 0 {
		textOutput = 0
	}
	cost := float64(textInput) * p.Input
	cost += float64(u.CachedTokens) * p.Cached
	cost += float64(textOutput+u.ReasoningTokens) * p.Output
	cost += float64(u.AudioInputTokens) * p.AudioInput
	cost += float64(u.AudioOutputTokens) * p.AudioOutput
	return cost / 1_000_000
}

// Accountant accumulates usage and cost for the duration of one request.
// It is safe for concurrent use: voice mode records usage from the
// transport's event goroutine while the display goroutine reads it.
type Accountant struct {
	mu      sync.Mutex
	table   Table
	warning float64
	ceiling float64

	usage   provider.Usage
	cost    float64
	unknown map[string]bool
}

// NewAccountant creates an accountant with zeroed counters. warning and
// ceiling are dollar amounts; a non-positive value disables that check.
func NewAccountant(table Table, warning, ceiling float64) *Accountant {
	return &Accountant{
		table:   table,
		warning: warning,
		ceiling: ceiling,
		unknown: make(map[string]bool),
	}
}

// Record adds one round-trip's usage. It returns the incremental dollar
// cost and whether the model was found in the pricing table. An unknown
// model contributes exactly zero cost (fail open on pricing, not on
// execution) but is flagged so callers can report it.
func (a *Accountant) Record(model string, u provider.Usage) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.usage.Add(u)

	p, ok := a.table[model]
	if !ok {
		a.unknown[model] = true
		return 0, false
	}

	delta := Calculate(p, u)
	a.cost += delta
	return delta, true
}

// Cost returns the accumulated dollar cost.
func (a *Accountant) Cost() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cost
}

// Usage returns a copy of the accumulated usage counters.
func (a *Accountant) Usage() provider.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// OverWarning reports whether the accumulated cost has crossed the
// warning threshold (but says nothing about the hard ceiling).
func (a *Accountant) OverWarning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.warning > 0 && a.cost >= a.warning
}

// OverCeiling reports whether the accumulated cost has crossed the hard
// ceiling.
func (a *Accountant) OverCeiling() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ceiling > 0 && a.cost >= a.ceiling
}

// UnknownModels returns the model names that were recorded without a
// pricing entry, sorted for stable reporting.
func (a *Accountant) UnknownModels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.unknown))
	for name := range a.unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
