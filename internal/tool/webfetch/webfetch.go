// Package webfetch implements the fetch_webpage tool: HTTP GET with
// rotating user agents, text extraction from HTML, and TTL caching.
package webfetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Cyclone1070/lolo/internal/cache"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/go-resty/resty/v2"
)

// ToolName identifies the web fetch tool in the registry.
const ToolName = "fetch_webpage"

// Rotating user agents to avoid trivial bot detection.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Request carries the model's arguments.
type Request struct {
	URL string `mapstructure:"url"`
}

// Validate implements tool.Validator.
func (r Request) Validate() error {
	if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return fmt.Errorf("invalid URL: must start with http:// or https://")
	}
	return nil
}

// FetchTool fetches webpages and extracts their text content.
type FetchTool struct {
	client   *resty.Client
	cache    *cache.Cache
	maxChars int
	logger   *slog.Logger
}

// New creates the web fetch tool wrapped in the standard adapter. The
// cache is injected; pass a memory-only cache in tests.
func New(webCache *cache.Cache, maxChars int, timeout time.Duration, logger *slog.Logger) tool.Tool {
	t := &FetchTool{
		client: resty.New().
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
		cache:    webCache,
		maxChars: maxChars,
		logger:   logger,
	}
	return tool.NewAdapter(
		ToolName,
		"Fetch and extract clean text content from a webpage URL. Returns up to 25,000 characters of clean text.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"url": {
					Type:        "string",
					Description: "The full URL of the webpage to fetch (e.g., 'https://example.com/article')",
				},
			},
			Required: []string{"url"},
		},
		t.run,
	)
}

func (t *FetchTool) run(ctx context.Context, req Request) (string, error) {
	if cached, ok := t.cache.Get(req.URL); ok {
		t.logger.Debug("web fetch cache hit", "url", req.URL)
		return cached, nil
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgents[rand.Intn(len(userAgents))]).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		Get(req.URL)
	if err != nil {
		return fmt.Sprintf("Error fetching webpage: %v", err), nil
	}
	if resp.IsError() {
		return fmt.Sprintf("Error fetching webpage: HTTP %d", resp.StatusCode()), nil
	}

	text, err := ExtractText(resp.String())
	if err != nil {
		return fmt.Sprintf("Error parsing webpage: %v", err), nil
	}

	truncated := false
	if len(text) > t.maxChars {
		// Back off to a rune boundary so the cut never splits a
		// multibyte character.
		cut := t.maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		truncated = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", req.URL)
	fmt.Fprintf(&b, "Content length: %d characters\n", len(text))
	b.WriteString(strings.Repeat("-", 40) + "\n\n")
	b.WriteString(text)
	if truncated {
		fmt.Fprintf(&b, "\n\n[Content truncated at %d characters]", t.maxChars)
	}

	result := b.String()
	t.cache.Set(req.URL, result)
	return result, nil
}
