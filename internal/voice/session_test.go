package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/lolo/internal/config"
	"github.com/Cyclone1070/lolo/internal/cost"
	"github.com/Cyclone1070/lolo/internal/orchestrator"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/Cyclone1070/lolo/internal/tool/terminal"
	"github.com/Cyclone1070/lolo/internal/ui"
)

type stubUI struct {
	approve  bool
	warnings []string
	statuses []string
}

func (u *stubUI) ReadConfirmation(_ context.Context, _ ui.ConfirmRequest) (bool, error) {
	return u.approve, nil
}
func (u *stubUI) WriteStatus(phase, message string) { u.statuses = append(u.statuses, message) }
func (u *stubUI) WriteWarning(message string)       { u.warnings = append(u.warnings, message) }

type echoTool struct {
	name  string
	calls int
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "echo" }
func (t *echoTool) Definition() provider.ToolDefinition {
	return provider.ToolDefinition{Type: "function", Name: t.name}
}
func (t *echoTool) Execute(_ context.Context, args map[string]any) (string, error) {
	t.calls++
	text, _ := args["text"].(string)
	return text, nil
}

func newTestSession(t *testing.T, mode orchestrator.Mode, userUI *stubUI, tools ...tool.Tool) *Session {
	t.Helper()
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSession(Options{
		APIKey:     "test-key",
		Config:     cfg,
		Tools:      tool.NewSet(nil, tools...),
		Gate:       orchestrator.NewCommandGate(userUI, logger),
		Accountant: cost.NewAccountant(cfg.Model.Pricing, cfg.Limits.CostWarningThreshold, cfg.Limits.MaxCostPerRequest),
		UI:         userUI,
		Logger:     logger,
		Mode:       mode,
	})
}

func TestDecodeServerEventAudioDelta(t *testing.T) {
	ev, err := decodeServerEvent([]byte(`{"type":"response.output_audio.delta","delta":"AAAA"}`))
	require.NoError(t, err)
	assert.Equal(t, eventAudioDelta, ev.Type)
	assert.Equal(t, "AAAA", ev.Delta)
}

func TestDecodeServerEventFunctionCall(t *testing.T) {
	raw := `{"type":"response.function_call_arguments.done","name":"get_weather","call_id":"call_9","arguments":"{\"city\":\"Hanoi\"}"}`
	ev, err := decodeServerEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "get_weather", ev.Name)
	assert.Equal(t, "call_9", ev.CallID)
	assert.JSONEq(t, `{"city":"Hanoi"}`, ev.Arguments)
}

func TestRealtimeUsageConversion(t *testing.T) {
	raw := `{"type":"response.done","response":{"usage":{"total_tokens":320,"input_tokens":200,"output_tokens":120,"input_token_details":{"cached_tokens":50,"audio_tokens":80},"output_token_details":{"audio_tokens":100}}}}`
	ev, err := decodeServerEvent([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, ev.Response)

	u := ev.Response.Usage.toProvider()
	assert.Equal(t, 200, u.InputTokens)
	assert.Equal(t, 120, u.OutputTokens)
	assert.Equal(t, 50, u.CachedTokens)
	assert.Equal(t, 80, u.AudioInputTokens)
	assert.Equal(t, 100, u.AudioOutputTokens)
	assert.Equal(t, 320, u.TotalTokens)
}

func TestRecordUsageCeilingEndsSession(t *testing.T) {
	userUI := &stubUI{}
	s := newTestSession(t, orchestrator.ModeNormal, userUI)

	// 200k input tokens at $4/1M is $0.80, past the $0.50 default ceiling.
	err := s.recordUsage(&realtimeUsage{InputTokens: 200_000, TotalTokens: 200_000})

	var abort *orchestrator.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, orchestrator.AbortCost, abort.Reason)
	assert.Equal(t, 200_000, abort.Usage.TotalTokens)
}

func TestRecordUsageAudioTokensCountTowardCeiling(t *testing.T) {
	userUI := &stubUI{}
	s := newTestSession(t, orchestrator.ModeNormal, userUI)

	// Text input 10k at $4/1M plus audio input 10k at $32/1M plus audio
	// output 5k at $64/1M is $0.68, past the $0.50 default ceiling. The
	// same counts billed at the text rates alone would stay under it.
	u := &realtimeUsage{InputTokens: 20_000, OutputTokens: 5_000, TotalTokens: 25_000}
	u.InputTokenDetails.AudioTokens = 10_000
	u.OutputTokenDetails.AudioTokens = 5_000

	err := s.recordUsage(u)

	var abort *orchestrator.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, orchestrator.AbortCost, abort.Reason)
	assert.InDelta(t, 0.68, abort.Cost, 1e-9)
}

func TestRecordUsageWarnsOnce(t *testing.T) {
	userUI := &stubUI{}
	s := newTestSession(t, orchestrator.ModeNormal, userUI)
	s.cfg.Limits.MaxCostPerRequest = 10.0
	s.accountant = cost.NewAccountant(s.cfg.Model.Pricing, 0.10, 10.0)

	// $0.12 per call: over the warning, far under the ceiling.
	require.NoError(t, s.recordUsage(&realtimeUsage{InputTokens: 30_000, TotalTokens: 30_000}))
	require.NoError(t, s.recordUsage(&realtimeUsage{InputTokens: 30_000, TotalTokens: 30_000}))

	assert.Len(t, userUI.warnings, 1)
}

func TestExecuteCallRunsTool(t *testing.T) {
	echo := &echoTool{name: "echo"}
	s := newTestSession(t, orchestrator.ModeNormal, &stubUI{}, echo)

	out := s.executeCall(context.Background(), &serverEvent{
		Name:      "echo",
		Arguments: `{"text":"hello"}`,
	})

	assert.Equal(t, "hello", out)
	assert.Equal(t, 1, echo.calls)
}

func TestExecuteCallAskModeRefusesCommands(t *testing.T) {
	cmd := &echoTool{name: terminal.ToolName}
	s := newTestSession(t, orchestrator.ModeAsk, &stubUI{}, cmd)

	out := s.executeCall(context.Background(), &serverEvent{
		Name:      terminal.ToolName,
		Arguments: `{"command":"ls"}`,
	})

	assert.Contains(t, out, "ask mode")
	assert.Zero(t, cmd.calls)
}

func TestExecuteCallDangerousCommandDeclined(t *testing.T) {
	cmd := &echoTool{name: terminal.ToolName}
	s := newTestSession(t, orchestrator.ModeNormal, &stubUI{approve: false}, cmd)

	out := s.executeCall(context.Background(), &serverEvent{
		Name:      terminal.ToolName,
		Arguments: `{"command":"rm -rf /tmp/x"}`,
	})

	assert.Contains(t, out, "was not run")
	assert.Zero(t, cmd.calls)
}

func TestExecuteCallUnknownTool(t *testing.T) {
	s := newTestSession(t, orchestrator.ModeNormal, &stubUI{})

	out := s.executeCall(context.Background(), &serverEvent{Name: "nope", Arguments: `{}`})

	assert.Contains(t, out, "unknown tool")
}

func TestHandleFunctionCallFeedsResultBack(t *testing.T) {
	echo := &echoTool{name: "echo"}
	s := newTestSession(t, orchestrator.ModeNormal, &stubUI{}, echo)
	sendCh := make(chan clientEvent, 2)

	s.handleFunctionCall(context.Background(), &serverEvent{
		Name:      "echo",
		CallID:    "call_1",
		Arguments: `{"text":"hi"}`,
	}, sendCh)

	require.Len(t, sendCh, 2)
	first := <-sendCh
	require.NotNil(t, first.Item)
	assert.Equal(t, eventItemCreate, first.Type)
	assert.Equal(t, "call_1", first.Item.CallID)
	assert.Equal(t, "hi", first.Item.Output)
	second := <-sendCh
	assert.Equal(t, eventResponseCreate, second.Type)
}

func TestRecordTurnAppendsAndNotifies(t *testing.T) {
	s := newTestSession(t, orchestrator.ModeNormal, &stubUI{})
	var notified []TranscriptEntry
	s.OnTranscript = func(entry TranscriptEntry) { notified = append(notified, entry) }

	s.recordTurn("user", "what time is it")
	s.recordTurn("assistant", "half past three")
	s.recordTurn("assistant", "")

	got := s.Transcript()
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, notified, got)
}

func TestRecordUsageUnknownModelIsNotFatal(t *testing.T) {
	userUI := &stubUI{}
	s := newTestSession(t, orchestrator.ModeNormal, userUI)
	delete(s.cfg.Model.Pricing, "gpt-realtime")

	err := s.recordUsage(&realtimeUsage{InputTokens: 1_000_000, TotalTokens: 1_000_000})

	require.NoError(t, err)
	assert.Contains(t, s.accountant.UnknownModels(), "gpt-realtime")
}

func TestSessionRunFailsFastWithoutEndpoint(t *testing.T) {
	s := newTestSession(t, orchestrator.ModeNormal, &stubUI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	if err != nil {
		assert.False(t, errors.Is(err, context.DeadlineExceeded))
	}
}
