package voice

import (
	"encoding/json"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
)

// Client → server event types.
const (
	eventSessionUpdate  = "session.update"
	eventAudioAppend    = "input_audio_buffer.append"
	eventItemCreate     = "conversation.item.create"
	eventResponseCreate = "response.create"
)

// Server → client event types the session acts on. Everything else is
// ignored.
const (
	eventAudioDelta          = "response.output_audio.delta"
	eventAudioTranscriptDone = "response.output_audio_transcript.done"
	eventInputTranscriptDone = "conversation.item.input_audio_transcription.completed"
	eventFunctionArgsDone    = "response.function_call_arguments.done"
	eventResponseDone        = "response.done"
	eventError               = "error"
)

// clientEvent is the envelope for everything sent to the endpoint.
type clientEvent struct {
	Type     string          `json:"type"`
	Session  *sessionConfig  `json:"session,omitempty"`
	Audio    string          `json:"audio,omitempty"`
	Item     *realtimeItem   `json:"item,omitempty"`
	Response *responseParams `json:"response,omitempty"`
}

type sessionConfig struct {
	Type         string                    `json:"type"` // "realtime"
	Model        string                    `json:"model,omitempty"`
	Instructions string                    `json:"instructions,omitempty"`
	Tools        []provider.ToolDefinition `json:"tools,omitempty"`
	Audio        *audioConfig              `json:"audio,omitempty"`
}

type audioConfig struct {
	Output struct {
		Voice string `json:"voice,omitempty"`
	} `json:"output"`
}

// realtimeItem carries a function call result back to the model.
type realtimeItem struct {
	Type   string `json:"type"` // "function_call_output"
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

type responseParams struct{}

// serverEvent is the envelope for everything received. Fields are a
// union over the event types the session handles.
type serverEvent struct {
	Type string `json:"type"`

	// Audio payload (response.output_audio.delta), base64 PCM16.
	Delta string `json:"delta,omitempty"`

	// Transcript text (transcript.done events).
	Transcript string `json:"transcript,omitempty"`

	// Function call fields (response.function_call_arguments.done).
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// Completed response envelope (response.done).
	Response *struct {
		Usage *realtimeUsage `json:"usage,omitempty"`
	} `json:"response,omitempty"`

	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// realtimeUsage is the realtime API's usage block. It nests differently
// from the Responses API, so it is decoded here and converted.
type realtimeUsage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	InputTokenDetails  struct {
		CachedTokens int `json:"cached_tokens"`
		AudioTokens  int `json:"audio_tokens"`
	} `json:"input_token_details"`
	OutputTokenDetails struct {
		AudioTokens int `json:"audio_tokens"`
	} `json:"output_token_details"`
}

func (u *realtimeUsage) toProvider() provider.Usage {
	if u == nil {
		return provider.Usage{}
	}
	return provider.Usage{
		InputTokens:       u.InputTokens,
		OutputTokens:      u.OutputTokens,
		CachedTokens:      u.InputTokenDetails.CachedTokens,
		AudioInputTokens:  u.InputTokenDetails.AudioTokens,
		AudioOutputTokens: u.OutputTokenDetails.AudioTokens,
		TotalTokens:       u.TotalTokens,
	}
}

func decodeServerEvent(data []byte) (*serverEvent, error) {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
