// Package openrouter implements generation.Provider against any
// OpenAI-compatible chat completions endpoint (OpenRouter by default) using a
// plain resty HTTP client. The raw body is read through a size limit before
// parsing so an oversized reply cannot exhaust memory.
package openrouter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/tidwall/gjson"
)

// ProviderName identifies this provider in logs and stats.
const ProviderName = "openrouter"

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

// Provider posts chat completion requests with resty.
type Provider struct {
	client       *resty.Client
	model        string
	maxTokens    int
	temperature  float64
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewProvider builds the HTTP client from the LLM configuration.
func NewProvider(cfg config.LLMConfig, logger *slog.Logger) (*Provider, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("%w: openrouter API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(cfg.OpenRouterAPIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	maxBody := int64(cfg.MaxResponseBytes)
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	return &Provider{
		client:       client,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		maxBodyBytes: maxBody,
		logger:       logger.With("component", "openrouter_provider"),
	}, nil
}

// Name implements generation.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// Complete implements generation.Provider.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(chatRequest{
			Model: p.model,
			Messages: []message{
				{Role: "system", Content: generation.SystemPrompt},
				{Role: "user", Content: prompt},
			},
			MaxTokens:      p.maxTokens,
			Temperature:    p.temperature,
			ResponseFormat: responseFormat{Type: "json_object"},
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}

	raw := resp.RawBody()
	defer raw.Close()
	body, err := io.ReadAll(io.LimitReader(raw, p.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", generation.ErrTransientFailure, err)
	}

	status := resp.StatusCode()
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: openrouter status %d", generation.ErrTransientFailure, status)
	}
	if status >= http.StatusBadRequest {
		msg := gjson.GetBytes(body, "error.message").String()
		return "", fmt.Errorf("%w: openrouter status %d: %s", generation.ErrInvalidResponse, status, msg)
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: response envelope is not valid JSON (%d bytes read)",
			generation.ErrInvalidResponse, len(body))
	}
	if gjson.GetBytes(body, "choices.0.finish_reason").String() == "content_filter" {
		return "", fmt.Errorf("%w: completion filtered", generation.ErrContentBlocked)
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("%w: no message content in response", generation.ErrInvalidResponse)
	}

	p.logger.DebugContext(ctx, "openrouter completion received",
		"model", p.model,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
		"body_bytes", len(body))
	return content.String(), nil
}
