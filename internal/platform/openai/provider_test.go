package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewProvider(config.LLMConfig{
		OpenAIAPIKey: "test-key",
		Model:        "gpt-4o",
		BaseURL:      server.URL,
		MaxTokens:    1500,
		Temperature:  0.3,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func TestNewProviderValidation(t *testing.T) {
	t.Parallel()
	_, err := NewProvider(config.LLMConfig{Model: "gpt-4o"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewProvider(config.LLMConfig{OpenAIAPIKey: "k"}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestProviderCompleteSendsJSONModeRequest(t *testing.T) {
	t.Parallel()
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"scoreOutOf100\": 72}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	})

	text, err := p.Complete(context.Background(), "assess this")
	require.NoError(t, err)
	assert.Equal(t, `{"scoreOutOf100": 72}`, text)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.EqualValues(t, 1500, body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestProviderCompleteErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, generation.ErrTransientFailure},
		{"server error", http.StatusBadGateway, `{"error":{"message":"bad gateway"}}`, generation.ErrTransientFailure},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, generation.ErrInvalidResponse},
		{
			"content filter", http.StatusOK,
			`{"id":"x","object":"chat.completion","choices":[{"index":0,"finish_reason":"content_filter","message":{"role":"assistant","content":""}}]}`,
			generation.ErrContentBlocked,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := p.Complete(context.Background(), "p")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
