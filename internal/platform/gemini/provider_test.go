package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp      *genai.GenerateContentResponse
	err       error
	gotModel  string
	gotConfig *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	_ []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotConfig = cfg
	return f.resp, f.err
}

func testProvider(f *fakeModels) *Provider {
	return newProvider(f, config.LLMConfig{Model: "gemini-2.0-flash", Temperature: 0.3, MaxTokens: 1500},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewProviderValidation(t *testing.T) {
	t.Parallel()
	_, err := NewProvider(context.Background(), config.LLMConfig{Model: "m"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewProvider(context.Background(), config.LLMConfig{GeminiAPIKey: "k"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestProviderComplete(t *testing.T) {
	t.Parallel()
	f := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(`{"scoreOutOf100":70}`, genai.RoleModel),
		}},
	}}
	p := testProvider(f)

	text, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"scoreOutOf100":70}`, text)
	assert.Equal(t, "gemini-2.0-flash", f.gotModel)
	assert.Equal(t, "application/json", f.gotConfig.ResponseMIMEType)
	assert.Equal(t, int32(1500), f.gotConfig.MaxOutputTokens)
	assert.Equal(t, ProviderName, p.Name())
}

func TestProviderCompleteErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		fake    *fakeModels
		wantErr error
	}{
		{"nil response", &fakeModels{}, generation.ErrInvalidResponse},
		{"no candidates", &fakeModels{resp: &genai.GenerateContentResponse{}}, generation.ErrInvalidResponse},
		{
			"prompt blocked",
			&fakeModels{resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			}},
			generation.ErrContentBlocked,
		},
		{"rate limited", &fakeModels{err: genai.APIError{Code: 429, Message: "quota"}}, generation.ErrTransientFailure},
		{"server error", &fakeModels{err: genai.APIError{Code: 503, Message: "unavailable"}}, generation.ErrTransientFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testProvider(tc.fake).Complete(context.Background(), "p")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := testProvider(&fakeModels{err: errors.New("dial tcp: refused")}).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini generate content")
}
