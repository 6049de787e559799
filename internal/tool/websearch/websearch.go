// Package websearch exposes the endpoint's built-in web search as a
// callable function tool. Voice mode needs this: the realtime transport
// has no built-in search, so the tool makes a nested Responses call with
// web search forced.
package websearch

import (
	"context"
	"fmt"
	"strings"

	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
)

// ToolName identifies the function-tool form of web search.
const ToolName = "web_search"

// searchModel is a fast model for the nested search call; the main
// conversation model is not involved.
const searchModel = "gpt-5-nano"

// Request carries the model's arguments.
type Request struct {
	Query string `mapstructure:"query"`
}

// Validate implements tool.Validator.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	return nil
}

// SearchTool performs a nested web search round-trip.
type SearchTool struct {
	provider provider.Provider
}

// New creates the web search function tool wrapped in the standard adapter.
func New(p provider.Provider) tool.Tool {
	t := &SearchTool{provider: p}
	return tool.NewAdapter(
		ToolName,
		"Search the web for current information. Returns relevant results with sources. Use this when you need up-to-date information online.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"query": {
					Type:        "string",
					Description: "The search query (e.g., 'weather in Tokyo', 'latest Go release')",
				},
			},
			Required: []string{"query"},
		},
		t.run,
	)
}

func (t *SearchTool) run(ctx context.Context, req Request) (string, error) {
	resp, err := t.provider.CreateResponse(ctx, &provider.Request{
		Model:      searchModel,
		Input:      []provider.Item{provider.UserMessage("user", "Search the web and provide a summary of results for: "+req.Query)},
		Tools:      []provider.ToolDefinition{{Type: "web_search"}},
		ToolChoice: "required",
	})
	if err != nil {
		return fmt.Sprintf("Web search error: %v\n\nTry fetch_webpage with a specific URL instead.", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for: %s\n", req.Query)
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	b.WriteString(resp.OutputText())

	if citations := resp.Citations(); len(citations) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, cite := range citations {
			if i == 5 {
				break
			}
			title := cite.Title
			if title == "" {
				title = "Source"
			}
			fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, title, cite.URL)
		}
	}
	return b.String(), nil
}
