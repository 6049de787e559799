package models

import "encoding/json"

// ItemType discriminates the kinds of transcript items.
type ItemType string

const (
	ItemTypeMessage        ItemType = "message"
	ItemTypeFunctionCall   ItemType = "function_call"
	ItemTypeFunctionOutput ItemType = "function_call_output"
	ItemTypeWebSearchCall  ItemType = "web_search_call"
	ItemTypeReasoning      ItemType = "reasoning"
)

// ContentTypeOutputText marks text content inside a message item.
const ContentTypeOutputText = "output_text"

// Item is a tagged union over transcript item kinds. Items received from
// the model keep their raw JSON so they can be replayed verbatim on the
// next round-trip; probing untyped fields throughout the loop is not
// allowed, everything is decoded here once.
type Item struct {
	Type ItemType `json:"type"`

	// Message fields (Type == ItemTypeMessage). For input messages the
	// loop sets Role and Text directly; output messages carry Content.
	Role    string        `json:"role,omitempty"`
	Text    string        `json:"-"`
	Content []ContentPart `json:"content,omitempty"`

	// Function call fields (Type == ItemTypeFunctionCall)
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// Function output fields (Type == ItemTypeFunctionOutput)
	Output string `json:"output,omitempty"`

	// Web search fields (Type == ItemTypeWebSearchCall)
	Action *SearchAction `json:"action,omitempty"`

	// raw preserves the exact bytes the endpoint returned, so replaying
	// the item does not drop fields this struct doesn't model.
	raw json.RawMessage
}

// ContentPart is one block of message content.
type ContentPart struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation is an inline annotation on message text, e.g. a url_citation.
type Annotation struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// SearchAction describes what a built-in web_search_call did.
type SearchAction struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// UserMessage builds an input message item with the given role and text.
func UserMessage(role, text string) Item {
	return Item{Type: ItemTypeMessage, Role: role, Text: text}
}

// FunctionOutput builds the item resolving a function call's call_id.
func FunctionOutput(callID, output string) Item {
	return Item{Type: ItemTypeFunctionOutput, CallID: callID, Output: output}
}

type itemAlias Item

// UnmarshalJSON decodes the typed fields and keeps the raw bytes for replay.
func (i *Item) UnmarshalJSON(data []byte) error {
	var alias itemAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*i = Item(alias)
	i.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON replays received items verbatim. Items constructed locally
// (user messages, function outputs) are serialized from their fields.
func (i Item) MarshalJSON() ([]byte, error) {
	if i.raw != nil {
		return i.raw, nil
	}
	if i.Type == ItemTypeMessage && i.Content == nil {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: i.Role, Content: i.Text})
	}
	return json.Marshal(itemAlias(i))
}
