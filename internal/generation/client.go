package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/redact"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// FallbackPayload is the JSON document returned in place of model output
// whenever a call fails: no summaries, score 0, manual review required.
var FallbackPayload = mustMarshal(domain.NewFallbackResult())

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("generation: marshal fallback payload: %v", err))
	}
	return string(b)
}

// ClientConfig bounds how the Client talks to its provider.
type ClientConfig struct {
	// ConcurrencyLimit caps simultaneous in-flight provider calls across every
	// caller sharing the Client. Must be positive.
	ConcurrencyLimit int

	// CallTimeout bounds one provider call so a stuck call cannot hold a slot forever.
	CallTimeout time.Duration

	// RequestsPerSecond paces calls when positive. Zero disables pacing.
	RequestsPerSecond float64

	// MaxResponseBytes truncates longer responses. Zero disables the cap.
	MaxResponseBytes int

	// DiagnosticMaxLength caps logged and recorded failure messages.
	DiagnosticMaxLength int
}

// DefaultClientConfig returns a ClientConfig with reasonable defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ConcurrencyLimit:    5,
		CallTimeout:         60 * time.Second,
		MaxResponseBytes:    1 << 20,
		DiagnosticMaxLength: redact.DefaultMaxLength,
	}
}

// Response is the outcome of one Invoke. Text always holds something the
// validator can consume: the model output on success, FallbackPayload otherwise.
type Response struct {
	Text string

	// Fallback is true when Text is FallbackPayload.
	Fallback bool

	// Reason is a redacted, length-capped description of why the fallback was
	// used. Empty on success.
	Reason string

	// Truncated is true when the model output exceeded MaxResponseBytes.
	Truncated bool
}

// ClientStats is a point-in-time view of the Client's limiter and counters.
type ClientStats struct {
	Provider         string `json:"provider"`
	ConcurrencyLimit int    `json:"concurrencyLimit"`
	InFlight         int64  `json:"inFlight"`
	AvailableSlots   int64  `json:"availableSlots"`
	PeakInFlight     int64  `json:"peakInFlight"`
	TotalCalls       int64  `json:"totalCalls"`
	SuccessfulCalls  int64  `json:"successfulCalls"`
	FallbackCount    int64  `json:"fallbackCount"`
	TruncatedCount   int64  `json:"truncatedCount"`
}

// Client is the concurrency-bounded gateway to a language-model Provider.
// Invoke never returns an error: every failure yields FallbackPayload.
type Client struct {
	provider Provider
	config   ClientConfig
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	logger   *slog.Logger

	inFlight  atomic.Int64
	peak      atomic.Int64
	total     atomic.Int64
	succeeded atomic.Int64
	fallbacks atomic.Int64
	truncated atomic.Int64
}

// NewClient validates cfg and wraps provider. A non-positive concurrency
// limit is a construction error so misconfiguration fails at startup.
func NewClient(provider Provider, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if cfg.ConcurrencyLimit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrencyLimit, cfg.ConcurrencyLimit)
	}
	if cfg.CallTimeout <= 0 {
		return nil, fmt.Errorf("%w: call timeout must be positive", ErrInvalidConfig)
	}
	if cfg.RequestsPerSecond < 0 || cfg.MaxResponseBytes < 0 {
		return nil, fmt.Errorf("%w: negative pacing or response cap", ErrInvalidConfig)
	}
	if cfg.DiagnosticMaxLength <= 0 {
		cfg.DiagnosticMaxLength = redact.DefaultMaxLength
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		provider: provider,
		config:   cfg,
		sem:      semaphore.NewWeighted(int64(cfg.ConcurrencyLimit)),
		logger:   logger.With("component", "llm_client", "provider", provider.Name()),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Invoke sends prompt to the provider. It blocks while all concurrency slots
// are taken, then for at most CallTimeout on the call itself.
func (c *Client) Invoke(ctx context.Context, prompt string) Response {
	c.total.Add(1)

	if strings.TrimSpace(prompt) == "" {
		return c.fallback(ctx, ErrEmptyPrompt)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return c.fallback(ctx, fmt.Errorf("waiting for concurrency slot: %w", err))
	}
	defer c.sem.Release(1)

	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.recordPeak(current)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fallback(ctx, fmt.Errorf("waiting for rate limiter: %w", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	start := time.Now()
	text, err := c.provider.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: call exceeded %s: %w", ErrTransientFailure, c.config.CallTimeout, err)
		}
		return c.fallback(ctx, err)
	}

	if strings.TrimSpace(text) == "" {
		return c.fallback(ctx, fmt.Errorf("%w: empty completion", ErrInvalidResponse))
	}

	resp := Response{Text: text}
	if c.config.MaxResponseBytes > 0 && len(text) > c.config.MaxResponseBytes {
		resp.Text = truncateUTF8(text, c.config.MaxResponseBytes)
		resp.Truncated = true
		c.truncated.Add(1)
		c.logger.WarnContext(ctx, "language model response truncated",
			"original_bytes", len(text),
			"max_bytes", c.config.MaxResponseBytes)
	}

	c.succeeded.Add(1)
	c.logger.DebugContext(ctx, "language model call completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"response_bytes", len(resp.Text))
	return resp
}

func (c *Client) fallback(ctx context.Context, err error) Response {
	c.fallbacks.Add(1)
	reason := redact.Diagnostic(err, c.config.DiagnosticMaxLength)
	c.logger.WarnContext(ctx, "language model call failed, using fallback payload",
		"error", reason)
	return Response{
		Text:     FallbackPayload,
		Fallback: true,
		Reason:   reason,
	}
}

func (c *Client) recordPeak(current int64) {
	for {
		peak := c.peak.Load()
		if current <= peak || c.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}

// Stats returns the current limiter occupancy and call counters.
func (c *Client) Stats() ClientStats {
	inFlight := c.inFlight.Load()
	return ClientStats{
		Provider:         c.provider.Name(),
		ConcurrencyLimit: c.config.ConcurrencyLimit,
		InFlight:         inFlight,
		AvailableSlots:   int64(c.config.ConcurrencyLimit) - inFlight,
		PeakInFlight:     c.peak.Load(),
		TotalCalls:       c.total.Load(),
		SuccessfulCalls:  c.succeeded.Load(),
		FallbackCount:    c.fallbacks.Load(),
		TruncatedCount:   c.truncated.Load(),
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
