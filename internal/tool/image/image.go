// Package image holds the image generation and analysis tools. Both are
// thin glue over the hosted API; no local image processing happens here.
package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Cyclone1070/lolo/internal/config"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
	"github.com/go-resty/resty/v2"
)

// Tool names in the registry.
const (
	GenerateToolName = "generate_image"
	AnalyzeToolName  = "analyze_image"
)

const imagesBaseURL = "https://api.openai.com/v1"

// GenerateRequest carries the model's arguments for image generation.
type GenerateRequest struct {
	Prompt string  `mapstructure:"prompt"`
	Size   *string `mapstructure:"size"`
}

// Validate implements tool.Validator.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	return nil
}

// GenerateTool calls the images endpoint and saves the result locally.
type GenerateTool struct {
	client    *resty.Client
	model     string
	outputDir string
	logger    *slog.Logger
}

// NewGenerate creates the image generation tool.
func NewGenerate(apiKey string, cfg *config.Config, logger *slog.Logger) tool.Tool {
	t := &GenerateTool{
		client: resty.New().
			SetBaseURL(imagesBaseURL).
			SetTimeout(180 * time.Second).
			SetAuthToken(apiKey),
		model:     cfg.Tools.ImageModel,
		outputDir: config.ExpandHome(cfg.Tools.ImageOutputDir),
		logger:    logger,
	}
	return tool.NewAdapter(
		GenerateToolName,
		"Generate an image from a text prompt. Saves the image locally and returns its path.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"prompt": {
					Type:        "string",
					Description: "Description of the image to generate",
				},
				"size": {
					Type:        []string{"string", "null"},
					Description: "Image size",
					Enum:        []string{"1024x1024", "1536x1024", "1024x1536"},
				},
			},
			Required: []string{"prompt", "size"},
		},
		t.run,
	)
}

type imagesResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *GenerateTool) run(ctx context.Context, req GenerateRequest) (string, error) {
	size := "1024x1024"
	if req.Size != nil && *req.Size != "" {
		size = *req.Size
	}

	var out imagesResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":  t.model,
			"prompt": req.Prompt,
			"size":   size,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/images/generations")
	if err != nil {
		return fmt.Sprintf("Error generating image: %v", err), nil
	}
	if resp.IsError() || out.Error != nil {
		msg := http.StatusText(resp.StatusCode())
		if out.Error != nil {
			msg = out.Error.Message
		}
		return fmt.Sprintf("Error generating image: %s", msg), nil
	}
	if len(out.Data) == 0 {
		return "Error generating image: empty response", nil
	}

	raw, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return fmt.Sprintf("Error decoding image data: %v", err), nil
	}

	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return fmt.Sprintf("Error saving image: %v", err), nil
	}
	path := filepath.Join(t.outputDir, fmt.Sprintf("image-%d.png", time.Now().Unix()))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Sprintf("Error saving image: %v", err), nil
	}

	t.logger.Info("image generated", "path", path, "size", size)
	return fmt.Sprintf("Image generated and saved to %s", path), nil
}
