// Package orchestrator drives the conversation loop: it sends the
// transcript to the provider, accounts for cost, dispatches tool calls
// in order, and decides after each round-trip whether to loop again or
// stop. All per-request ceilings (iterations, tool calls, cost) are
// enforced here and nowhere else.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/Cyclone1070/lolo/internal/config"
	"github.com/Cyclone1070/lolo/internal/cost"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/Cyclone1070/lolo/internal/tool/terminal"
	"github.com/Cyclone1070/lolo/internal/ui"
)

// Mode selects how command execution is handled for this run.
type Mode string

const (
	// ModeNormal executes commands, gated by the risk classifier.
	ModeNormal Mode = "normal"
	// ModeAsk refuses all command execution; the assistant answers from
	// knowledge and read-only tools.
	ModeAsk Mode = "ask"
)

const systemPrompt = `You are Lolo, a personal terminal assistant. You help with
shell commands, system administration, quick research and everyday questions.
Be concise and direct. When a task needs information you don't have, use the
available tools instead of guessing. Prefer non-interactive commands. Answer in
markdown.`

const askModeNote = `

Command execution is disabled for this conversation. Do not attempt to run
shell commands; explain what you would run instead.`

// Options collects the orchestrator's collaborators.
type Options struct {
	Provider   provider.Provider
	Tools      *tool.Set
	Gate       CommandGate
	Accountant *cost.Accountant
	UI         ui.UserInterface
	Logger     *slog.Logger
	Config     *config.Config
	Mode       Mode
}

// Orchestrator runs one question through the tool-calling loop.
type Orchestrator struct {
	provider   provider.Provider
	tools      *tool.Set
	gate       CommandGate
	accountant *cost.Accountant
	ui         ui.UserInterface
	logger     *slog.Logger
	cfg        *config.Config
	mode       Mode
}

// New builds an orchestrator from its collaborators.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		provider:   opts.Provider,
		tools:      opts.Tools,
		gate:       opts.Gate,
		accountant: opts.Accountant,
		ui:         opts.UI,
		logger:     opts.Logger,
		cfg:        opts.Config,
		mode:       opts.Mode,
	}
}

// Result is the outcome of a completed run.
type Result struct {
	Answer        string
	Citations     []provider.Citation
	ToolsUsed     []string
	Iterations    int
	ToolCalls     int
	Usage         provider.Usage
	Cost          float64
	UnknownModels []string
}

// Run drives the loop to completion for a single question. History items
// are prepended to the transcript verbatim. On a ceiling breach the
// returned error is an *AbortError carrying everything accrued so far.
func (o *Orchestrator) Run(ctx context.Context, question string, history []provider.Item) (*Result, error) {
	transcript := make([]provider.Item, 0, len(history)+1)
	transcript = append(transcript, history...)
	transcript = append(transcript, provider.UserMessage("user", question))

	toolCalls := 0
	warned := false
	var toolsUsed []string

	for iteration := 1; iteration <= o.cfg.Limits.MaxIterations; iteration++ {
		o.logger.Debug("iteration start", "iteration", iteration, "transcript_items", len(transcript))

		resp, err := o.provider.CreateResponse(ctx, o.buildRequest(transcript))
		if err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("model reported error %s: %s", resp.Error.Code, resp.Error.Message)
		}

		model := resp.Model
		if model == "" {
			model = o.cfg.Model.Name
		}
		delta, known := o.accountant.Record(model, resp.Usage)
		o.logger.Debug("usage recorded",
			"model", model,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"delta_usd", delta,
			"total_usd", o.accountant.Cost())
		if !known {
			o.logger.Warn("no pricing entry for model, cost not counted", "model", model)
		}

		// The cost ceiling is checked before any tool call from this
		// response is dispatched.
		if o.accountant.OverCeiling() {
			return nil, o.abort(AbortCost, fmt.Sprintf("$%.2f", o.cfg.Limits.MaxCostPerRequest))
		}
		if o.accountant.OverWarning() && !warned {
			o.ui.WriteWarning(fmt.Sprintf("cost has passed $%.2f (now $%.4f)",
				o.cfg.Limits.CostWarningThreshold, o.accountant.Cost()))
			warned = true
		}

		transcript = append(transcript, resp.Output...)

		hasFunctionCalls := false
		hasRefusals := false
		hasSearch := false
		hasMessage := false

		for _, item := range resp.Output {
			switch item.Type {
			case provider.ItemTypeMessage:
				hasMessage = true

			case provider.ItemTypeWebSearchCall:
				hasSearch = true
				toolsUsed = append(toolsUsed, "web_search")
				query := ""
				if item.Action != nil {
					query = item.Action.Query
				}
				o.ui.WriteStatus("search", query)

			case provider.ItemTypeFunctionCall:
				toolCalls++
				if toolCalls > o.cfg.Limits.MaxToolCalls {
					return nil, o.abort(AbortToolCalls, fmt.Sprintf("%d calls", o.cfg.Limits.MaxToolCalls))
				}
				if o.mode == ModeAsk && item.Name == terminal.ToolName {
					// The call_id must still be resolved or the next
					// round-trip is rejected.
					refusal := &RefusalError{
						Command: item.Arguments,
						Reason:  "command execution is disabled in ask mode",
					}
					transcript = append(transcript, provider.FunctionOutput(item.CallID, refusal.Error()))
					o.ui.WriteStatus("tool", "refused command (ask mode)")
					hasRefusals = true
					continue
				}
				hasFunctionCalls = true
				toolsUsed = append(toolsUsed, item.Name)
				output := o.executeCall(ctx, item)
				transcript = append(transcript, provider.FunctionOutput(item.CallID, output))
			}
		}

		if hasFunctionCalls {
			continue
		}
		if hasSearch && !hasMessage {
			// A search with no message means the model wants its results
			// back before answering.
			continue
		}
		if hasRefusals && !hasMessage {
			// The refusal results have to reach the model so it can
			// answer around them.
			continue
		}

		result := &Result{
			Citations:     resp.Citations(),
			ToolsUsed:     toolsUsed,
			Iterations:    iteration,
			ToolCalls:     toolCalls,
			Usage:         o.accountant.Usage(),
			Cost:          o.accountant.Cost(),
			UnknownModels: o.accountant.UnknownModels(),
		}
		if hasMessage {
			result.Answer = resp.OutputText()
		} else {
			o.logger.Warn("response carried no message, tool call or search", "response_id", resp.ID)
		}
		return result, nil
	}

	return nil, o.abort(AbortIterations, fmt.Sprintf("%d iterations", o.cfg.Limits.MaxIterations))
}

func (o *Orchestrator) buildRequest(transcript []provider.Item) *provider.Request {
	req := &provider.Request{
		Model:        o.cfg.Model.Name,
		Input:        transcript,
		Instructions: o.instructions(),
		Tools:        o.tools.Definitions(),
	}
	if effort := o.cfg.Model.ReasoningEffort; effort != "" {
		req.Reasoning = &provider.ReasoningConfig{Effort: effort}
	}
	if verbosity := o.cfg.Model.Verbosity; verbosity != "" {
		req.Text = &provider.TextConfig{Verbosity: verbosity}
	}
	return req
}

func (o *Orchestrator) instructions() string {
	prompt := systemPrompt
	if o.mode == ModeAsk {
		prompt += askModeNote
	}
	prompt += "\n\nToday's date: " + time.Now().Format("Monday, 2 January 2006")
	if cwd, err := os.Getwd(); err == nil {
		prompt += "\nWorking directory: " + cwd
	}
	return prompt
}

// executeCall runs one function call and returns its textual result.
// Failures become result text the model can read and react to; they
// never abort the run.
func (o *Orchestrator) executeCall(ctx context.Context, call provider.Item) string {
	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			o.logger.Error("undecodable tool arguments", "tool", call.Name, "error", err)
			return fmt.Sprintf("Error: invalid tool arguments: %v", err)
		}
	}

	if call.Name == terminal.ToolName {
		command, _ := args["command"].(string)
		if err := o.gate.Check(ctx, command); err != nil {
			var refusal *RefusalError
			if errors.As(err, &refusal) {
				o.ui.WriteStatus("tool", "refused: "+refusal.Reason)
				return refusal.Error()
			}
			return fmt.Sprintf("Error: %v", err)
		}
	}

	handler, ok := o.tools.Lookup(call.Name)
	if !ok {
		o.logger.Warn("model called unknown tool", "tool", call.Name)
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}

	o.ui.WriteStatus("tool", describeCall(call.Name, args))
	result, err := handler.Execute(ctx, args)
	if err != nil {
		o.logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}

// describeCall renders a short human-readable label for a tool dispatch.
func describeCall(name string, args map[string]any) string {
	for _, key := range []string{"command", "url", "query", "prompt", "path"} {
		if v, ok := args[key].(string); ok && v != "" {
			if len(v) > 80 {
				cut := 77
				for cut > 0 && !utf8.RuneStart(v[cut]) {
					cut--
				}
				v = v[:cut] + "..."
			}
			return name + ": " + v
		}
	}
	return name
}

func (o *Orchestrator) abort(reason AbortReason, limit string) error {
	return &AbortError{
		Reason: reason,
		Limit:  limit,
		Usage:  o.accountant.Usage(),
		Cost:   o.accountant.Cost(),
	}
}
