package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Cyclone1070/lolo/internal/config"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
)

// AnalyzeRequest carries the model's arguments for image analysis.
type AnalyzeRequest struct {
	Path     string  `mapstructure:"path"`
	Question *string `mapstructure:"question"`
}

// Validate implements tool.Validator.
func (r AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("path must not be empty")
	}
	return nil
}

// AnalyzeTool describes a local image by sending it through the model
// endpoint as an inline data URL.
type AnalyzeTool struct {
	provider provider.Provider
	model    string
}

// NewAnalyze creates the image analysis tool.
func NewAnalyze(p provider.Provider, cfg *config.Config) tool.Tool {
	t := &AnalyzeTool{provider: p, model: cfg.Model.Name}
	return tool.NewAdapter(
		AnalyzeToolName,
		"Analyze a local image file and describe its contents, optionally answering a specific question about it.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"path": {
					Type:        "string",
					Description: "Path to the local image file",
				},
				"question": {
					Type:        []string{"string", "null"},
					Description: "Optional question about the image",
				},
			},
			Required: []string{"path", "question"},
		},
		t.run,
	)
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func (t *AnalyzeTool) run(ctx context.Context, req AnalyzeRequest) (string, error) {
	path := config.ExpandHome(req.Path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading image: %v", err), nil
	}

	mime := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if mime == "" {
		mime = http.DetectContentType(raw)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(raw))

	question := "Describe this image in detail."
	if req.Question != nil && *req.Question != "" {
		question = *req.Question
	}

	resp, err := t.provider.CreateResponse(ctx, &provider.Request{
		Model: t.model,
		Input: []provider.Item{{
			Type: provider.ItemTypeMessage,
			Role: "user",
			Content: []provider.ContentPart{
				{Type: "input_text", Text: question},
				{Type: "input_image", ImageURL: dataURL},
			},
		}},
	})
	if err != nil {
		return fmt.Sprintf("Error analyzing image: %v", err), nil
	}
	return resp.OutputText(), nil
}
