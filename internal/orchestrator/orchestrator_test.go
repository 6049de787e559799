package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/lolo/internal/config"
	"github.com/Cyclone1070/lolo/internal/cost"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/Cyclone1070/lolo/internal/tool/terminal"
	"github.com/Cyclone1070/lolo/internal/ui"
)

// scriptedProvider replays a fixed sequence of responses and records
// every request it receives.
type scriptedProvider struct {
	t         *testing.T
	responses []*provider.Response
	requests  []*provider.Request
	err       error
}

func (p *scriptedProvider) CreateResponse(_ context.Context, req *provider.Request) (*provider.Response, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.requests) > len(p.responses) {
		p.t.Fatalf("unexpected request %d, only %d responses scripted", len(p.requests), len(p.responses))
	}
	return p.responses[len(p.requests)-1], nil
}

// recordingUI records every interaction and answers confirmations with a
// fixed decision.
type recordingUI struct {
	approve       bool
	confirmations []ui.ConfirmRequest
	warnings      []string
	statuses      []string
}

func (u *recordingUI) ReadConfirmation(_ context.Context, req ui.ConfirmRequest) (bool, error) {
	u.confirmations = append(u.confirmations, req)
	return u.approve, nil
}

func (u *recordingUI) WriteStatus(phase, message string) {
	u.statuses = append(u.statuses, phase+": "+message)
}

func (u *recordingUI) WriteWarning(message string) {
	u.warnings = append(u.warnings, message)
}

type fakeTool struct {
	name   string
	result string
	err    error
	calls  []map[string]any
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "test tool" }

func (t *fakeTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{Type: "function", Name: t.name}
}

func (t *fakeTool) Execute(_ context.Context, args map[string]any) (string, error) {
	t.calls = append(t.calls, args)
	return t.result, t.err
}

func functionCall(callID, name, arguments string) provider.Item {
	return provider.Item{
		Type:      provider.ItemTypeFunctionCall,
		Name:      name,
		CallID:    callID,
		Arguments: arguments,
	}
}

func messageResponse(text string, usage provider.Usage) *provider.Response {
	return &provider.Response{
		Model:  "gpt-5-mini",
		Status: "completed",
		Output: []provider.Item{{
			Type: provider.ItemTypeMessage,
			Role: "assistant",
			Content: []provider.ContentPart{
				{Type: provider.ContentTypeOutputText, Text: text},
			},
		}},
		Usage: usage,
	}
}

func callResponse(usage provider.Usage, calls ...provider.Item) *provider.Response {
	return &provider.Response{
		Model:  "gpt-5-mini",
		Status: "completed",
		Output: calls,
		Usage:  usage,
	}
}

var smallUsage = provider.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150}

func newTestOrchestrator(p provider.Provider, cfg *config.Config, mode Mode, userUI *recordingUI, tools ...tool.Tool) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Options{
		Provider:   p,
		Tools:      tool.NewSet(nil, tools...),
		Gate:       NewCommandGate(userUI, logger),
		Accountant: cost.NewAccountant(cfg.Model.Pricing, cfg.Limits.CostWarningThreshold, cfg.Limits.MaxCostPerRequest),
		UI:         userUI,
		Logger:     logger,
		Config:     cfg,
		Mode:       mode,
	})
}

func TestRunReturnsTerminalMessage(t *testing.T) {
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		messageResponse("Hello there.", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{})

	result, err := o.Run(context.Background(), "hi", nil)

	require.NoError(t, err)
	assert.Equal(t, "Hello there.", result.Answer)
	assert.Equal(t, 1, result.Iterations)
	assert.Zero(t, result.ToolCalls)
	assert.Equal(t, 150, result.Usage.TotalTokens)
}

func TestRunDispatchesToolCallsInOrder(t *testing.T) {
	weather := &fakeTool{name: "get_weather", result: "sunny"}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage,
			functionCall("call_1", "get_weather", `{"city":"Hanoi"}`),
			functionCall("call_2", "get_weather", `{"city":"Oslo"}`),
			functionCall("call_3", "get_weather", `{"city":"Lima"}`),
		),
		messageResponse("done", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{}, weather)

	result, err := o.Run(context.Background(), "weather please", nil)

	require.NoError(t, err)
	assert.Equal(t, "done", result.Answer)
	assert.Equal(t, 3, result.ToolCalls)
	require.Len(t, weather.calls, 3)
	assert.Equal(t, "Hanoi", weather.calls[0]["city"])

	// The second request must carry one resolving output per call, in
	// call order, after the replayed call items.
	require.Len(t, p.requests, 2)
	input := p.requests[1].Input
	var outputs []string
	for _, item := range input {
		if item.Type == provider.ItemTypeFunctionOutput {
			outputs = append(outputs, item.CallID)
		}
	}
	assert.Equal(t, []string{"call_1", "call_2", "call_3"}, outputs)
}

func TestRunToolFailureBecomesResultText(t *testing.T) {
	broken := &fakeTool{name: "get_weather", err: errors.New("upstream down")}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", "get_weather", `{}`)),
		messageResponse("could not check", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{}, broken)

	result, err := o.Run(context.Background(), "weather", nil)

	require.NoError(t, err)
	assert.Equal(t, "could not check", result.Answer)

	var output string
	for _, item := range p.requests[1].Input {
		if item.Type == provider.ItemTypeFunctionOutput {
			output = item.Output
		}
	}
	assert.Contains(t, output, "upstream down")
}

func TestRunUnknownToolBecomesResultText(t *testing.T) {
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", "launch_rocket", `{}`)),
		messageResponse("no such tool", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{})

	_, err := o.Run(context.Background(), "go", nil)

	require.NoError(t, err)
	var output string
	for _, item := range p.requests[1].Input {
		if item.Type == provider.ItemTypeFunctionOutput {
			output = item.Output
		}
	}
	assert.Contains(t, output, "unknown tool")
}

func TestRunToolCallCeilingAbortsBeforeBreachingCall(t *testing.T) {
	weather := &fakeTool{name: "get_weather", result: "sunny"}
	cfg := config.DefaultConfig()
	cfg.Limits.MaxToolCalls = 2

	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage,
			functionCall("call_1", "get_weather", `{}`),
			functionCall("call_2", "get_weather", `{}`),
			functionCall("call_3", "get_weather", `{}`),
		),
	}}
	o := newTestOrchestrator(p, cfg, ModeNormal, &recordingUI{}, weather)

	_, err := o.Run(context.Background(), "weather", nil)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, AbortToolCalls, abort.Reason)
	// The first two calls ran; the third was stopped before execution.
	assert.Len(t, weather.calls, 2)
	assert.Equal(t, 150, abort.Usage.TotalTokens)
}

func TestRunIterationCeilingAborts(t *testing.T) {
	weather := &fakeTool{name: "get_weather", result: "sunny"}
	cfg := config.DefaultConfig()
	cfg.Limits.MaxIterations = 2

	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", "get_weather", `{}`)),
		callResponse(smallUsage, functionCall("call_2", "get_weather", `{}`)),
	}}
	o := newTestOrchestrator(p, cfg, ModeNormal, &recordingUI{}, weather)

	_, err := o.Run(context.Background(), "weather", nil)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, AbortIterations, abort.Reason)
	assert.Len(t, p.requests, 2)
}

func TestRunCostCeilingAbortsBeforeDispatch(t *testing.T) {
	weather := &fakeTool{name: "get_weather", result: "sunny"}
	// 4M input tokens on gpt-5-mini is $1.00, past the $0.50 default.
	bigUsage := provider.Usage{InputTokens: 4_000_000, TotalTokens: 4_000_000}

	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(bigUsage, functionCall("call_1", "get_weather", `{}`)),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{}, weather)

	_, err := o.Run(context.Background(), "weather", nil)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, AbortCost, abort.Reason)
	assert.InDelta(t, 1.00, abort.Cost, 1e-9)
	assert.Empty(t, weather.calls)
}

func TestRunCostWarningIsNonFatalAndFiresOnce(t *testing.T) {
	weather := &fakeTool{name: "get_weather", result: "sunny"}
	// $0.25 per round-trip: over the $0.10 warning, under the ceiling.
	warnUsage := provider.Usage{InputTokens: 1_000_000, TotalTokens: 1_000_000}
	cfg := config.DefaultConfig()
	cfg.Limits.MaxCostPerRequest = 10.0

	userUI := &recordingUI{}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(warnUsage, functionCall("call_1", "get_weather", `{}`)),
		messageResponse("done", warnUsage),
	}}
	o := newTestOrchestrator(p, cfg, ModeNormal, userUI, weather)

	result, err := o.Run(context.Background(), "weather", nil)

	require.NoError(t, err)
	assert.Equal(t, "done", result.Answer)
	assert.Len(t, userUI.warnings, 1)
}

func TestRunAskModeRefusesCommandAndResolvesCallID(t *testing.T) {
	cmd := &fakeTool{name: terminal.ToolName, result: "should never run"}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", terminal.ToolName, `{"command":"ls"}`)),
		messageResponse("I cannot run commands right now.", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeAsk, &recordingUI{}, cmd)

	result, err := o.Run(context.Background(), "list files", nil)

	require.NoError(t, err)
	assert.Equal(t, "I cannot run commands right now.", result.Answer)
	assert.Empty(t, cmd.calls)

	// The refusal still resolves the call_id so the second round-trip
	// completes without protocol error.
	require.Len(t, p.requests, 2)
	var resolved bool
	for _, item := range p.requests[1].Input {
		if item.Type == provider.ItemTypeFunctionOutput && item.CallID == "call_1" {
			resolved = true
			assert.Contains(t, item.Output, "ask mode")
		}
	}
	assert.True(t, resolved)
}

func TestRunAskModeRefusalsCountTowardToolCallCeiling(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Limits.MaxToolCalls = 1

	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage,
			functionCall("call_1", terminal.ToolName, `{"command":"ls"}`),
			functionCall("call_2", terminal.ToolName, `{"command":"pwd"}`),
		),
	}}
	o := newTestOrchestrator(p, cfg, ModeAsk, &recordingUI{})

	_, err := o.Run(context.Background(), "list files", nil)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, AbortToolCalls, abort.Reason)
}

func TestRunDangerousCommandDeclined(t *testing.T) {
	cmd := &fakeTool{name: terminal.ToolName, result: "deleted"}
	userUI := &recordingUI{approve: false}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", terminal.ToolName, `{"command":"rm -rf /tmp/x"}`)),
		messageResponse("I did not delete anything.", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, userUI, cmd)

	result, err := o.Run(context.Background(), "clean up", nil)

	require.NoError(t, err)
	assert.Equal(t, "I did not delete anything.", result.Answer)
	assert.Empty(t, cmd.calls)
	require.Len(t, userUI.confirmations, 1)
	assert.Equal(t, "rm -rf /tmp/x", userUI.confirmations[0].Command)

	var output string
	for _, item := range p.requests[1].Input {
		if item.Type == provider.ItemTypeFunctionOutput {
			output = item.Output
		}
	}
	assert.Contains(t, output, "was not run")
}

func TestRunDangerousCommandApproved(t *testing.T) {
	cmd := &fakeTool{name: terminal.ToolName, result: "gone"}
	userUI := &recordingUI{approve: true}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", terminal.ToolName, `{"command":"rm -rf /tmp/x"}`)),
		messageResponse("done", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, userUI, cmd)

	result, err := o.Run(context.Background(), "clean up", nil)

	require.NoError(t, err)
	assert.Equal(t, "done", result.Answer)
	assert.Len(t, cmd.calls, 1)
}

func TestRunInteractiveCommandRefusedWithoutPrompt(t *testing.T) {
	cmd := &fakeTool{name: terminal.ToolName}
	userUI := &recordingUI{approve: true}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, functionCall("call_1", terminal.ToolName, `{"command":"vim notes.txt"}`)),
		messageResponse("use sed instead", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, userUI, cmd)

	result, err := o.Run(context.Background(), "edit notes", nil)

	require.NoError(t, err)
	assert.Equal(t, "use sed instead", result.Answer)
	assert.Empty(t, cmd.calls)
	assert.Empty(t, userUI.confirmations, "interactive refusal must not offer a confirmation path")
}

func TestRunSearchOnlyResponseLoopsBack(t *testing.T) {
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, provider.Item{
			Type:   provider.ItemTypeWebSearchCall,
			Action: &provider.SearchAction{Type: "search", Query: "go generics"},
		}),
		messageResponse("Generics landed in Go 1.18.", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{})

	result, err := o.Run(context.Background(), "when did go get generics?", nil)

	require.NoError(t, err)
	assert.Equal(t, "Generics landed in Go 1.18.", result.Answer)
	assert.Contains(t, result.ToolsUsed, "web_search")
	assert.Len(t, p.requests, 2)
}

func TestRunProtocolAnomalyEndsWithEmptyAnswer(t *testing.T) {
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		callResponse(smallUsage, provider.Item{Type: provider.ItemTypeReasoning}),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{})

	result, err := o.Run(context.Background(), "hmm", nil)

	require.NoError(t, err)
	assert.Empty(t, result.Answer)
	assert.Len(t, p.requests, 1)
}

func TestRunProviderErrorPropagates(t *testing.T) {
	p := &scriptedProvider{t: t, err: fmt.Errorf("boom: %w", provider.ErrNetwork)}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{})

	_, err := o.Run(context.Background(), "hi", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrNetwork)
}

func TestRunHistoryPrecedesQuestion(t *testing.T) {
	history := []provider.Item{
		provider.UserMessage("user", "earlier question"),
		provider.UserMessage("assistant", "earlier answer"),
	}
	p := &scriptedProvider{t: t, responses: []*provider.Response{
		messageResponse("hi again", smallUsage),
	}}
	o := newTestOrchestrator(p, config.DefaultConfig(), ModeNormal, &recordingUI{})

	_, err := o.Run(context.Background(), "hi", history)

	require.NoError(t, err)
	input := p.requests[0].Input
	require.Len(t, input, 3)
	assert.Equal(t, "earlier question", input[0].Text)
	assert.Equal(t, "hi", input[2].Text)
}

func TestDescribeCallTruncatesLongArguments(t *testing.T) {
	long := strings.Repeat("x", 200)
	label := describeCall("execute_command", map[string]any{"command": long})
	assert.LessOrEqual(t, len(label), len("execute_command: ")+80)
	assert.True(t, strings.HasSuffix(label, "..."))
}

func TestDescribeCallTruncationKeepsRunesIntact(t *testing.T) {
	// A three-byte rune straddles the cut point.
	long := strings.Repeat("x", 76) + strings.Repeat("日本語", 20)
	label := describeCall("execute_command", map[string]any{"command": long})
	assert.True(t, utf8.ValidString(label))
	assert.True(t, strings.HasSuffix(label, "..."))
}
