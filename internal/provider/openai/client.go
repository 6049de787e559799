// Package openai implements the Responses API client used as the model
// endpoint. It is deliberately thin: request in, decoded response out.
// All orchestration lives in internal/orchestrator.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the Responses API endpoint.
type Client struct {
	client *resty.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests and proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.client.SetBaseURL(baseURL)
	}
}

// WithTimeout overrides the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.SetTimeout(timeout)
	}
}

// NewClient creates a Responses API client. The key is sent as a bearer
// token on every request.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(120 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey)

	c := &Client{client: client, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateResponse implements models.Provider.
func (c *Client) CreateResponse(ctx context.Context, req *models.Request) (*models.Response, error) {
	var out models.Response
	var apiErr apiError

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/responses")
	if err != nil {
		return nil, &models.ProviderError{
			Code:       models.ErrorCodeNetwork,
			Message:    err.Error(),
			Underlying: models.ErrNetwork,
			Retryable:  true,
		}
	}

	c.logger.Debug("model round-trip",
		"model", req.Model,
		"status", resp.StatusCode(),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.IsError() {
		return nil, mapStatusError(resp.StatusCode(), &apiErr)
	}
	if out.Error != nil {
		return nil, &models.ProviderError{
			Code:    models.ErrorCodeInvalidRequest,
			Message: fmt.Sprintf("%s: %s", out.Error.Code, out.Error.Message),
		}
	}
	return &out, nil
}

// apiError matches the endpoint's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mapStatusError(status int, apiErr *apiError) error {
	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &models.ProviderError{
			Code:       models.ErrorCodeAuth,
			Message:    msg,
			Underlying: models.ErrAuthentication,
		}
	case http.StatusTooManyRequests:
		return &models.ProviderError{
			Code:       models.ErrorCodeRateLimit,
			Message:    msg,
			Underlying: models.ErrRateLimit,
			Retryable:  true,
		}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return &models.ProviderError{
			Code:       models.ErrorCodeInvalidRequest,
			Message:    msg,
			Underlying: models.ErrInvalidRequest,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &models.ProviderError{
			Code:       models.ErrorCodeTimeout,
			Message:    msg,
			Underlying: models.ErrTimeout,
			Retryable:  true,
		}
	default:
		if status >= 500 {
			return &models.ProviderError{
				Code:       models.ErrorCodeUnavailable,
				Message:    msg,
				Underlying: models.ErrUnavailable,
				Retryable:  true,
			}
		}
		return &models.ProviderError{
			Code:    models.ErrorCodeInvalidRequest,
			Message: fmt.Sprintf("unexpected status %d: %s", status, msg),
		}
	}
}
