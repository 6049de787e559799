// Package voice runs a realtime speech conversation over a websocket.
// The pipeline is three goroutines joined by channels: a capture task
// feeding microphone audio to the transport, the transport task reading
// server events, and a playback task draining model audio. One shared
// context cancels all of them.
package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Cyclone1070/lolo/internal/config"
	"github.com/Cyclone1070/lolo/internal/cost"
	"github.com/Cyclone1070/lolo/internal/orchestrator"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/Cyclone1070/lolo/internal/tool/terminal"
	"github.com/Cyclone1070/lolo/internal/ui"
)

const realtimeBaseURL = "wss://api.openai.com/v1/realtime"

const voiceInstructions = `You are Lolo, a personal voice assistant. Keep spoken
answers short and conversational. Use the available tools when a question needs
live information or local actions.`

// TranscriptEntry is one spoken turn, kept for memory persistence.
type TranscriptEntry struct {
	Role string
	Text string
}

// Options collects the session's collaborators.
type Options struct {
	APIKey     string
	Config     *config.Config
	Tools      *tool.Set
	Gate       orchestrator.CommandGate
	Accountant *cost.Accountant
	UI         ui.UserInterface
	Logger     *slog.Logger
	Mode       orchestrator.Mode
}

// Session is one live voice conversation.
type Session struct {
	apiKey     string
	cfg        *config.Config
	tools      *tool.Set
	gate       orchestrator.CommandGate
	accountant *cost.Accountant
	ui         ui.UserInterface
	logger     *slog.Logger
	mode       orchestrator.Mode

	// OnTranscript, when set, is called for every completed spoken turn.
	OnTranscript func(entry TranscriptEntry)

	mu         sync.Mutex
	transcript []TranscriptEntry
	warned     bool
}

// NewSession builds a voice session from its collaborators.
func NewSession(opts Options) *Session {
	return &Session{
		apiKey:     opts.APIKey,
		cfg:        opts.Config,
		tools:      opts.Tools,
		gate:       opts.Gate,
		accountant: opts.Accountant,
		ui:         opts.UI,
		logger:     opts.Logger,
		mode:       opts.Mode,
	}
}

// Transcript returns a copy of the spoken turns so far.
func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Run connects to the realtime endpoint and streams audio both ways
// until ctx is cancelled or a fatal error occurs. A breached cost
// ceiling ends the session with an *orchestrator.AbortError.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.apiKey)
	url := realtimeBaseURL + "?model=" + s.cfg.Voice.Model

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("connecting to realtime endpoint: %w", err)
	}
	defer conn.Close()

	sendCh := make(chan clientEvent, 32)
	fatalCh := make(chan error, 3)

	sendCh <- s.sessionUpdateEvent()

	capture, err := startCapture(ctx)
	if err != nil {
		return err
	}
	playback, err := startPlayback(ctx)
	if err != nil {
		return err
	}

	go s.writeLoop(ctx, conn, sendCh, fatalCh)
	go s.captureLoop(ctx, capture, sendCh)
	go s.readLoop(ctx, conn, playback, sendCh, fatalCh)

	s.ui.WriteStatus("voice", "session started, speak whenever you like (ctrl+c to end)")

	select {
	case <-ctx.Done():
		return nil
	case err := <-fatalCh:
		cancel()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func (s *Session) sessionUpdateEvent() clientEvent {
	session := &sessionConfig{
		Type:         "realtime",
		Model:        s.cfg.Voice.Model,
		Instructions: voiceInstructions,
		Tools:        s.tools.Definitions(),
		Audio:        &audioConfig{},
	}
	session.Audio.Output.Voice = s.cfg.Voice.Voice
	return clientEvent{Type: eventSessionUpdate, Session: session}
}

// writeLoop is the only goroutine that writes to the websocket.
func (s *Session) writeLoop(ctx context.Context, conn *websocket.Conn, sendCh <-chan clientEvent, fatalCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sendCh:
			if err := conn.WriteJSON(ev); err != nil {
				select {
				case fatalCh <- fmt.Errorf("writing event: %w", err):
				default:
				}
				return
			}
		}
	}
}

// captureLoop forwards microphone chunks as audio append events.
func (s *Session) captureLoop(ctx context.Context, capture <-chan []byte, sendCh chan<- clientEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-capture:
			if !ok {
				return
			}
			ev := clientEvent{Type: eventAudioAppend, Audio: base64.StdEncoding.EncodeToString(chunk)}
			select {
			case sendCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// readLoop decodes server events and dispatches them. Tool execution
// runs on its own goroutine so a long command does not stall audio.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn, playback chan<- []byte, sendCh chan<- clientEvent, fatalCh chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case fatalCh <- err:
			default:
			}
			return
		}
		ev, err := decodeServerEvent(data)
		if err != nil {
			s.logger.Warn("undecodable realtime event", "error", err)
			continue
		}

		switch ev.Type {
		case eventAudioDelta:
			pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
			if err != nil {
				continue
			}
			select {
			case playback <- pcm:
			case <-ctx.Done():
				return
			}

		case eventInputTranscriptDone:
			s.recordTurn("user", ev.Transcript)

		case eventAudioTranscriptDone:
			s.recordTurn("assistant", ev.Transcript)

		case eventFunctionArgsDone:
			call := *ev
			go s.handleFunctionCall(ctx, &call, sendCh)

		case eventResponseDone:
			if ev.Response != nil {
				if err := s.recordUsage(ev.Response.Usage); err != nil {
					select {
					case fatalCh <- err:
					default:
					}
					return
				}
			}

		case eventError:
			if ev.Error != nil {
				s.logger.Warn("realtime error event", "code", ev.Error.Code, "message", ev.Error.Message)
			}
		}
	}
}

func (s *Session) recordTurn(role, text string) {
	if text == "" {
		return
	}
	entry := TranscriptEntry{Role: role, Text: text}
	s.mu.Lock()
	s.transcript = append(s.transcript, entry)
	s.mu.Unlock()
	if s.OnTranscript != nil {
		s.OnTranscript(entry)
	}
}

// recordUsage accounts for one completed response. Breaching the cost
// ceiling ends the session; the warning threshold only warns once.
func (s *Session) recordUsage(usage *realtimeUsage) error {
	if usage == nil {
		return nil
	}
	u := usage.toProvider()
	delta, known := s.accountant.Record(s.cfg.Voice.Model, u)
	s.logger.Debug("voice usage recorded", "delta_usd", delta, "total_usd", s.accountant.Cost())
	if !known {
		s.logger.Warn("no pricing entry for voice model, cost not counted", "model", s.cfg.Voice.Model)
	}

	if s.accountant.OverCeiling() {
		return &orchestrator.AbortError{
			Reason: orchestrator.AbortCost,
			Limit:  fmt.Sprintf("$%.2f", s.cfg.Limits.MaxCostPerRequest),
			Usage:  s.accountant.Usage(),
			Cost:   s.accountant.Cost(),
		}
	}
	if s.accountant.OverWarning() {
		s.mu.Lock()
		warned := s.warned
		s.warned = true
		s.mu.Unlock()
		if !warned {
			s.ui.WriteWarning(fmt.Sprintf("voice session cost has passed $%.2f (now $%.4f)",
				s.cfg.Limits.CostWarningThreshold, s.accountant.Cost()))
		}
	}
	return nil
}

// handleFunctionCall executes one tool call and feeds the result back so
// the model can speak it. Failures and refusals become result text, same
// as in the text loop.
func (s *Session) handleFunctionCall(ctx context.Context, ev *serverEvent, sendCh chan<- clientEvent) {
	output := s.executeCall(ctx, ev)
	item := &realtimeItem{Type: "function_call_output", CallID: ev.CallID, Output: output}
	select {
	case sendCh <- clientEvent{Type: eventItemCreate, Item: item}:
	case <-ctx.Done():
		return
	}
	select {
	case sendCh <- clientEvent{Type: eventResponseCreate, Response: &responseParams{}}:
	case <-ctx.Done():
	}
}

func (s *Session) executeCall(ctx context.Context, ev *serverEvent) string {
	var args map[string]any
	if ev.Arguments != "" {
		if err := json.Unmarshal([]byte(ev.Arguments), &args); err != nil {
			return fmt.Sprintf("Error: invalid tool arguments: %v", err)
		}
	}

	if ev.Name == terminal.ToolName {
		if s.mode == orchestrator.ModeAsk {
			refusal := &orchestrator.RefusalError{
				Command: ev.Arguments,
				Reason:  "command execution is disabled in ask mode",
			}
			return refusal.Error()
		}
		command, _ := args["command"].(string)
		if err := s.gate.Check(ctx, command); err != nil {
			var refusal *orchestrator.RefusalError
			if errors.As(err, &refusal) {
				s.ui.WriteStatus("tool", "refused: "+refusal.Reason)
				return refusal.Error()
			}
			return fmt.Sprintf("Error: %v", err)
		}
	}

	handler, ok := s.tools.Lookup(ev.Name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", ev.Name)
	}
	s.ui.WriteStatus("tool", ev.Name)
	result, err := handler.Execute(ctx, args)
	if err != nil {
		s.logger.Error("voice tool execution failed", "tool", ev.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}
