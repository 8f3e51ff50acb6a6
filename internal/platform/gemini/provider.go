package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"google.golang.org/genai"
)

// ProviderName identifies this provider in logs and stats.
const ProviderName = "gemini"

// contentGenerator is the subset of *genai.Models used by Provider.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Provider sends assessment prompts to Gemini.
type Provider struct {
	models contentGenerator
	model  string
	config *genai.GenerateContentConfig
	logger *slog.Logger
}

// NewProvider creates a Gemini client from the LLM configuration.
func NewProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Provider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newProvider(client.Models, cfg, logger), nil
}

func newProvider(models contentGenerator, cfg config.LLMConfig, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		models: models,
		model:  cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:       genai.Ptr(float32(cfg.Temperature)),
			MaxOutputTokens:   int32(cfg.MaxTokens),
			ResponseMIMEType:  "application/json",
			SystemInstruction: genai.NewContentFromText(generation.SystemPrompt, genai.RoleUser),
		},
		logger: logger.With("component", "gemini_provider"),
	}
}

// Name implements generation.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// Complete implements generation.Provider.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt), p.config)
	if err != nil {
		return "", classifyError(err)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: candidate stopped for safety", generation.ErrContentBlocked)
	}

	text := resp.Text()
	p.logger.DebugContext(ctx, "gemini completion received",
		"model", p.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_chars", len(text))
	return text, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return fmt.Errorf("%w: gemini status %d: %v", generation.ErrTransientFailure, apiErr.Code, err)
		default:
			return fmt.Errorf("gemini status %d: %w", apiErr.Code, err)
		}
	}
	return fmt.Errorf("gemini generate content: %w", err)
}
