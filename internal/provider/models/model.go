package models

import "encoding/json"

// Request encapsulates all parameters for one Responses API round-trip.
type Request struct {
	// Model is the model identifier (e.g. "gpt-5-mini")
	Model string `json:"model"`

	// Input contains the ordered transcript: messages, function calls
	// and function outputs from previous iterations
	Input []Item `json:"input"`

	// Instructions is the system prompt for this request
	Instructions string `json:"instructions,omitempty"`

	// Tools contains tool definitions (function tools and built-ins)
	Tools []ToolDefinition `json:"tools,omitempty"`

	// ToolChoice controls tool usage ("auto", "required", "none")
	ToolChoice string `json:"tool_choice,omitempty"`

	// Reasoning configures reasoning effort for reasoning-capable models
	Reasoning *ReasoningConfig `json:"reasoning,omitempty"`

	// Text configures output verbosity
	Text *TextConfig `json:"text,omitempty"`
}

// ReasoningConfig controls how much reasoning the model performs.
type ReasoningConfig struct {
	Effort string `json:"effort,omitempty"` // "minimal", "low", "medium", "high"
}

// TextConfig controls output shape.
type TextConfig struct {
	Verbosity string `json:"verbosity,omitempty"` // "low", "medium", "high"
}

// Response contains the model's output items and usage metadata.
type Response struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Status string `json:"status"`

	// Output is the ordered list of output items. The orchestrator must
	// append these to the transcript verbatim and in order.
	Output []Item `json:"output"`

	Usage Usage `json:"usage"`

	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError is an error reported inside an otherwise valid response body.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutputText concatenates the text of all terminal message items.
func (r *Response) OutputText() string {
	var out string
	for _, item := range r.Output {
		if item.Type != ItemTypeMessage {
			continue
		}
		for _, part := range item.Content {
			if part.Type == ContentTypeOutputText {
				out += part.Text
			}
		}
	}
	return out
}

// Citations returns the url_citation annotations of all message items,
// in the order they appear.
func (r *Response) Citations() []Citation {
	var citations []Citation
	for _, item := range r.Output {
		if item.Type != ItemTypeMessage {
			continue
		}
		for _, part := range item.Content {
			for _, ann := range part.Annotations {
				if ann.Type == "url_citation" {
					citations = append(citations, Citation{URL: ann.URL, Title: ann.Title})
				}
			}
		}
	}
	return citations
}

// Citation is a source reference attached to a message.
type Citation struct {
	URL   string
	Title string
}

// Usage reports token consumption for a single round-trip. Input and
// output counts are totals; the cached, reasoning and audio fields are
// subsets broken out of them for billing.
type Usage struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	CachedTokens      int `json:"-"`
	ReasoningTokens   int `json:"-"`
	AudioInputTokens  int `json:"-"`
	AudioOutputTokens int `json:"-"`
	TotalTokens       int `json:"total_tokens"`
}

// usageWire matches the nested wire format of the usage block.
type usageWire struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	TotalTokens        int `json:"total_tokens"`
	InputTokenDetails  struct {
		CachedTokens int `json:"cached_tokens"`
		AudioTokens  int `json:"audio_tokens"`
	} `json:"input_tokens_details"`
	OutputTokenDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
		AudioTokens     int `json:"audio_tokens"`
	} `json:"output_tokens_details"`
}

// UnmarshalJSON flattens the nested token detail blocks.
func (u *Usage) UnmarshalJSON(data []byte) error {
	var wire usageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	u.InputTokens = wire.InputTokens
	u.OutputTokens = wire.OutputTokens
	u.TotalTokens = wire.TotalTokens
	u.CachedTokens = wire.InputTokenDetails.CachedTokens
	u.ReasoningTokens = wire.OutputTokenDetails.ReasoningTokens
	u.AudioInputTokens = wire.InputTokenDetails.AudioTokens
	u.AudioOutputTokens = wire.OutputTokenDetails.AudioTokens
	return nil
}

// Add accumulates another round-trip's usage into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CachedTokens += other.CachedTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.AudioInputTokens += other.AudioInputTokens
	u.AudioOutputTokens += other.AudioOutputTokens
	u.TotalTokens += other.TotalTokens
}

// ToolDefinition defines a tool exposed to the model. Function tools carry
// a name and JSON schema; built-in tools (web_search) carry only a type.
type ToolDefinition struct {
	Type        string           `json:"type"` // "function" or "web_search"
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Parameters  *ParameterSchema `json:"parameters,omitempty"`
	Strict      bool             `json:"strict,omitempty"`
}

// ParameterSchema maps directly to standard JSON Schema.
type ParameterSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]PropertySchema `json:"properties"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// PropertySchema defines a single parameter property.
type PropertySchema struct {
	Type        any             `json:"type"` // string or ["string", "null"]
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}
