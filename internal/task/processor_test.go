package task

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/recruit-summary/internal/assessment"
	"github.com/phrazzld/recruit-summary/internal/cache"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/phrazzld/recruit-summary/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validModelOutput = `{
  "questionSummaries": [
    {"question": "Motivation", "aiSummary": "Wants to build mobile apps together with other members."},
    {"question": "Teamwork", "aiSummary": "Led a four person project and resolved conflicts calmly."}
  ],
  "scoreOutOf100": 78,
  "scoreReason": "Shows clear passion and solid teamwork, with room for technical growth."
}`

// scriptedProvider answers with reply and records how many calls overlap.
type scriptedProvider struct {
	reply    func(ctx context.Context, prompt string) (string, error)
	delay    time.Duration
	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls.Add(1)
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		m := p.peak.Load()
		if n <= m || p.peak.CompareAndSwap(m, n) {
			break
		}
	}

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.reply != nil {
		return p.reply(ctx, prompt)
	}
	return validModelOutput, nil
}

func failingProvider() *scriptedProvider {
	return &scriptedProvider{reply: func(context.Context, string) (string, error) {
		return "", errors.New("connection refused: api_key=sk-secret123456789")
	}}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires the real client, validator and cache around a MemoryStore.
type harness struct {
	store     *MemoryStore
	provider  *scriptedProvider
	client    *generation.Client
	results   *cache.ResultCache
	processor *Processor
	queue     *JobQueue
	pool      *WorkerPool
	scheduler *BatchScheduler
	clock     *testClock
}

type harnessOptions struct {
	concurrency int
	workers     int
	queueSize   int
	startPool   bool
	scheduler   func(*SchedulerConfig)
	window      WindowChecker
}

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BatchSize:            8,
		Interval:             time.Second,
		RetryDelay:           5 * time.Minute,
		RetryInterval:        time.Minute,
		RetryInitialDelay:    time.Minute,
		MaxRetries:           3,
		ProcessingTimeout:    5 * time.Minute,
		TimeoutCheckInterval: time.Minute,
		TimeoutInitialDelay:  time.Minute,
		WaitTimeout:          5 * time.Second,
	}
}

func newHarness(t *testing.T, provider *scriptedProvider, opts harnessOptions) *harness {
	t.Helper()
	logger := setupTestLogger()
	if provider == nil {
		provider = &scriptedProvider{}
	}
	if opts.concurrency == 0 {
		opts.concurrency = 4
	}
	if opts.workers == 0 {
		opts.workers = 4
	}
	if opts.queueSize == 0 {
		opts.queueSize = 32
	}

	h := &harness{store: NewMemoryStore(), provider: provider, clock: newTestClock()}

	clientCfg := generation.DefaultClientConfig()
	clientCfg.ConcurrencyLimit = opts.concurrency
	clientCfg.CallTimeout = 2 * time.Second
	client, err := generation.NewClient(provider, clientCfg, logger)
	require.NoError(t, err)
	h.client = client

	prompts, err := generation.NewPromptBuilder("", logger)
	require.NoError(t, err)

	h.results = cache.New(100, time.Hour, logger)
	h.processor, err = NewProcessor(h.store, prompts, client, assessment.NewValidator(logger), logger,
		WithResultCache(h.results),
		WithProcessorClock(h.clock.Now))
	require.NoError(t, err)

	h.queue = NewJobQueue(opts.queueSize, logger)
	h.pool = NewWorkerPool(h.queue, WorkerPoolConfig{WorkerCount: opts.workers}, logger)
	if opts.startPool {
		h.pool.Start()
	}

	cfg := testSchedulerConfig()
	if opts.scheduler != nil {
		opts.scheduler(&cfg)
	}
	h.scheduler, err = NewBatchScheduler(h.store, h.processor, h.queue, cfg, logger,
		WithWindow(opts.window),
		WithSchedulerClock(h.clock.Now))
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.scheduler.Stop(ctx)
		h.queue.Close()
		h.pool.Stop()
	})
	return h
}

// claim stores a PENDING task and claims it the way the scheduler does.
func (h *harness) claim(t *testing.T, n int, questions ...string) *domain.SummarizationTask {
	t.Helper()
	task, err := domain.NewSummarizationTask(
		"response-"+string(rune('a'+n)),
		"applicant"+string(rune('a'+n))+"@example.com",
		testPayload(questions...),
		h.clock.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, h.store.Create(context.Background(), task))
	require.NoError(t, task.Claim(h.clock.Now()))
	require.NoError(t, h.store.Save(context.Background(), task, domain.TaskStatusPending))
	return task
}

func (h *harness) get(t *testing.T, task *domain.SummarizationTask) *domain.SummarizationTask {
	t.Helper()
	got, err := h.store.Get(context.Background(), task.ID)
	require.NoError(t, err)
	return got
}

func TestNewProcessorValidation(t *testing.T) {
	t.Parallel()
	logger := setupTestLogger()
	prompts, err := generation.NewPromptBuilder("", logger)
	require.NoError(t, err)
	validator := assessment.NewValidator(logger)
	client, err := generation.NewClient(&scriptedProvider{}, generation.DefaultClientConfig(), logger)
	require.NoError(t, err)

	_, err = NewProcessor(nil, prompts, client, validator, logger)
	assert.ErrorIs(t, err, ErrNilStore)

	_, err = NewProcessor(NewMemoryStore(), nil, client, validator, logger)
	assert.Error(t, err)

	p, err := NewProcessor(NewMemoryStore(), prompts, client, validator, nil)
	require.NoError(t, err)
	assert.Nil(t, p.cache)
}

func TestProcessorCompletesTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	task := h.claim(t, 1)

	require.NoError(t, h.processor.Process(context.Background(), task))

	got := h.get(t, task)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, 78, got.Result.ScoreOutOf100)
	assert.Len(t, got.Result.QuestionSummaries, 2)
	assert.Empty(t, got.ErrorMessage)
	assert.NotNil(t, got.ProcessingCompletedAt)
	assert.Equal(t, 1, h.results.Len())
}

func TestProcessorReusesCachedResult(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	first := h.claim(t, 1)
	second := h.claim(t, 2)

	require.NoError(t, h.processor.Process(context.Background(), first))
	require.NoError(t, h.processor.Process(context.Background(), second))

	assert.Equal(t, int64(1), h.provider.calls.Load())
	assert.Equal(t, h.get(t, first).Result, h.get(t, second).Result)
}

func TestProcessorFailsOnFallback(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		provider *scriptedProvider
		cause    string
	}{
		{
			name:     "provider error",
			provider: failingProvider(),
			cause:    "connection refused",
		},
		{
			name: "unparseable output",
			provider: &scriptedProvider{reply: func(context.Context, string) (string, error) {
				return "I cannot help with that.", nil
			}},
			cause: "model output could not be parsed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, tc.provider, harnessOptions{})
			task := h.claim(t, 1)

			err := h.processor.Process(context.Background(), task)
			assert.ErrorIs(t, err, ErrTaskFailed)

			got := h.get(t, task)
			assert.Equal(t, domain.TaskStatusFailed, got.Status)
			assert.Nil(t, got.Result)
			assert.True(t, strings.HasPrefix(got.ErrorMessage, domain.FallbackScoreReason+" Cause: "))
			assert.Contains(t, got.ErrorMessage, tc.cause)
			assert.NotContains(t, got.ErrorMessage, "sk-secret123456789")
			assert.Equal(t, 1, got.RetryCount)
			assert.Equal(t, 0, h.results.Len(), "fallback results are never cached")
		})
	}
}

func TestProcessorCompletesWhenEverySummaryIsDropped(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		reply string
	}{
		{
			name:  "sensitive summary",
			reply: `{"questionSummaries":[{"question":"Contact","aiSummary":"Shared their phone number and email."}],"scoreOutOf100":55,"scoreReason":"Shows passion and teamwork."}`,
		},
		{
			name:  "empty list",
			reply: `{"questionSummaries":[],"scoreOutOf100":55,"scoreReason":"Shows passion and teamwork."}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reply := tc.reply
			h := newHarness(t, &scriptedProvider{reply: func(context.Context, string) (string, error) {
				return reply, nil
			}}, harnessOptions{})
			task := h.claim(t, 1)

			require.NoError(t, h.processor.Process(context.Background(), task))

			got := h.get(t, task)
			assert.Equal(t, domain.TaskStatusCompleted, got.Status)
			require.NotNil(t, got.Result)
			assert.Empty(t, got.Result.QuestionSummaries)
			assert.Equal(t, 55, got.Result.ScoreOutOf100)
			assert.Empty(t, got.ErrorMessage)
			assert.Equal(t, 0, got.RetryCount)
			assert.Equal(t, 0, h.results.Len(), "results without summaries are not cached")
		})
	}
}

func TestProcessorPersistenceFailureFailsTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	task := h.claim(t, 1)

	h.store.SaveFn = func(ctx context.Context, task *domain.SummarizationTask, from domain.TaskStatus) error {
		if task.Status == domain.TaskStatusCompleted {
			return store.ErrUpdateFailed
		}
		return h.store.save(task, from)
	}

	err := h.processor.Process(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrUpdateFailed)

	got := h.get(t, task)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, store.ErrUpdateFailed.Error())
}

func TestProcessorDiscardsLateResult(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	task := h.claim(t, 1)

	timedOut := task.Clone()
	require.NoError(t, timedOut.Fail(domain.TimeoutErrorMessage, h.clock.Now()))
	require.NoError(t, h.store.Save(context.Background(), timedOut, domain.TaskStatusProcessing))

	err := h.processor.Process(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrStaleState)

	got := h.get(t, task)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, domain.TimeoutErrorMessage, got.ErrorMessage)
	assert.Equal(t, 1, h.results.Len(), "the late result still warms the cache")
}

func TestProcessorDiscardsResultFromEarlierClaim(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	ctx := context.Background()
	task := h.claim(t, 1)

	// Timed out, retried and claimed again before the first attempt returns.
	h.clock.Advance(6 * time.Minute)
	swept := task.Clone()
	require.NoError(t, swept.Fail(domain.TimeoutErrorMessage, h.clock.Now()))
	require.NoError(t, h.store.Save(ctx, swept, domain.TaskStatusProcessing))
	h.clock.Advance(5 * time.Minute)
	require.NoError(t, swept.ResetForRetry(h.clock.Now()))
	require.NoError(t, h.store.Save(ctx, swept, domain.TaskStatusFailed))
	h.clock.Advance(time.Minute)
	require.NoError(t, swept.Claim(h.clock.Now()))
	require.NoError(t, h.store.Save(ctx, swept, domain.TaskStatusPending))

	err := h.processor.Process(ctx, task)
	assert.ErrorIs(t, err, store.ErrStaleState)

	got := h.get(t, task)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Nil(t, got.Result)
	assert.Equal(t, *swept.ProcessingStartedAt, *got.ProcessingStartedAt)
	assert.Equal(t, 1, got.RetryCount)
}

type panickingValidator struct{}

func (panickingValidator) Validate(string) *domain.AssessmentResult { panic("validator exploded") }

func TestProcessorRecoversFromPanic(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	h.processor.validator = panickingValidator{}
	task := h.claim(t, 1)

	err := h.processor.Process(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validator exploded")

	got := h.get(t, task)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "pipeline panic")
}

func TestProcessorRejectsUnclaimedTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	task := newPendingTask(t, 1, baseTime)

	assert.ErrorIs(t, h.processor.Process(context.Background(), task), ErrTaskNotProcessing)
	assert.ErrorIs(t, h.processor.Process(context.Background(), nil), ErrTaskNotProcessing)
	assert.Equal(t, int64(0), h.provider.calls.Load())
}
