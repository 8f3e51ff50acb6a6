package task

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWindow struct{}

func (failingWindow) IsOpen(context.Context) (bool, error) {
	return false, errors.New("database unavailable")
}

// submit stores n PENDING tasks sharing the given question set, one second apart.
func (h *harness) submit(t *testing.T, n int, questions ...string) []*domain.SummarizationTask {
	t.Helper()
	tasks := make([]*domain.SummarizationTask, n)
	for i := range tasks {
		count, err := h.store.CountsByStatus(context.Background())
		require.NoError(t, err)
		seq := count[domain.TaskStatusPending] + count[domain.TaskStatusProcessing] +
			count[domain.TaskStatusCompleted] + count[domain.TaskStatusFailed]

		task, err := domain.NewSummarizationTask(
			fmt.Sprintf("response-%d", seq),
			fmt.Sprintf("applicant%d@example.com", seq),
			testPayload(questions...),
			h.clock.Now(),
		)
		require.NoError(t, err)
		task.Payload[0].Answer = fmt.Sprintf("a different answer %d", seq)
		require.NoError(t, h.store.Create(context.Background(), task))
		tasks[i] = task
		h.clock.Advance(time.Second)
	}
	return tasks
}

func (h *harness) counts(t *testing.T) map[domain.TaskStatus]int64 {
	t.Helper()
	counts, err := h.store.CountsByStatus(context.Background())
	require.NoError(t, err)
	return counts
}

func TestNewBatchSchedulerValidation(t *testing.T) {
	t.Parallel()
	logger := setupTestLogger()
	s := NewMemoryStore()
	q := NewJobQueue(1, logger)
	p := &Processor{}

	_, err := NewBatchScheduler(nil, p, q, testSchedulerConfig(), logger)
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = NewBatchScheduler(s, nil, q, testSchedulerConfig(), logger)
	assert.ErrorIs(t, err, ErrNilProcessor)
	_, err = NewBatchScheduler(s, p, nil, testSchedulerConfig(), logger)
	assert.ErrorIs(t, err, ErrNilQueue)

	invalid := []func(*SchedulerConfig){
		func(c *SchedulerConfig) { c.BatchSize = 0 },
		func(c *SchedulerConfig) { c.Interval = 0 },
		func(c *SchedulerConfig) { c.RetryInterval = -time.Second },
		func(c *SchedulerConfig) { c.ProcessingTimeout = 0 },
		func(c *SchedulerConfig) { c.WaitTimeout = 0 },
		func(c *SchedulerConfig) { c.MaxRetries = -1 },
	}
	for i, mutate := range invalid {
		cfg := testSchedulerConfig()
		mutate(&cfg)
		_, err := NewBatchScheduler(s, p, q, cfg, logger)
		assert.ErrorIs(t, err, ErrInvalidSchedulerConfig, "case %d", i)
	}

	sched, err := NewBatchScheduler(s, p, q, testSchedulerConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecoveryLimit, sched.Config().RecoveryLimit)
}

func TestSchedulerConfigFrom(t *testing.T) {
	t.Parallel()
	cfg := SchedulerConfigFrom(config.BatchConfig{
		Enabled:                     true,
		Size:                        8,
		IntervalSeconds:             5,
		InitialDelaySeconds:         10,
		RetryDelaySeconds:           300,
		RetryIntervalSeconds:        300,
		TimeoutCheckIntervalSeconds: 120,
		ProcessingTimeoutMinutes:    5,
		MaxRetries:                  3,
		WaitTimeoutSeconds:          60,
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.InitialDelay)
	assert.Equal(t, 5*time.Minute, cfg.RetryDelay)
	assert.Equal(t, DefaultRetryInitialDelay, cfg.RetryInitialDelay)
	assert.Equal(t, 2*time.Minute, cfg.TimeoutCheckInterval)
	assert.Equal(t, DefaultTimeoutInitialDelay, cfg.TimeoutInitialDelay)
	assert.Equal(t, 5*time.Minute, cfg.ProcessingTimeout)
	assert.Equal(t, time.Minute, cfg.WaitTimeout)
}

func TestRunBatchClaimsOldestPendingTasks(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{startPool: true, scheduler: func(c *SchedulerConfig) {
		c.BatchSize = 3
	}})
	tasks := h.submit(t, 5)

	report, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 3, report.Dispatched)
	assert.Equal(t, 3, report.Completed)
	assert.Zero(t, report.StillRunning)
	for _, task := range tasks[:3] {
		assert.Equal(t, domain.TaskStatusCompleted, h.get(t, task).Status)
	}
	for _, task := range tasks[3:] {
		assert.Equal(t, domain.TaskStatusPending, h.get(t, task).Status)
	}
}

func TestRunBatchSkipsWhenWindowClosed(t *testing.T) {
	t.Parallel()
	for name, window := range map[string]WindowChecker{
		"closed":       StaticWindow(false),
		"check failed": failingWindow{},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nil, harnessOptions{startPool: true, window: window})
			h.submit(t, 2)

			report, err := h.scheduler.RunBatch(context.Background())
			require.NoError(t, err)
			assert.True(t, report.WindowClosed)
			assert.Equal(t, int64(2), h.counts(t)[domain.TaskStatusPending])
			assert.Zero(t, h.provider.calls.Load())

			assert.Zero(t, h.scheduler.RunRetrySweep(context.Background()))
			assert.Zero(t, h.scheduler.RunTimeoutSweep(context.Background()))
		})
	}
}

func TestRunBatchDoesNotOverlap(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	h.scheduler.mainMu.Lock()
	defer h.scheduler.mainMu.Unlock()

	_, err := h.scheduler.RunBatch(context.Background())
	assert.ErrorIs(t, err, ErrBatchInProgress)
}

func TestRunBatchIdenticalQuestionsShareCache(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{startPool: true, scheduler: func(c *SchedulerConfig) {
		c.BatchSize = 10
	}})
	h.submit(t, 10)

	report, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.Completed)
	assert.Equal(t, int64(10), h.counts(t)[domain.TaskStatusCompleted])
	assert.Equal(t, 1, h.results.Len(), "one cache entry per normalized question set")

	callsAfterFirstRun := h.provider.calls.Load()
	assert.LessOrEqual(t, callsAfterFirstRun, int64(10))

	h.submit(t, 4)
	report, err = h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Completed)
	assert.Equal(t, callsAfterFirstRun, h.provider.calls.Load(), "cache hits skip the model call")
}

func TestRunBatchAlwaysFailingModel(t *testing.T) {
	t.Parallel()
	h := newHarness(t, failingProvider(), harnessOptions{startPool: true})
	tasks := h.submit(t, 6)

	report, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Failed)

	counts := h.counts(t)
	assert.Zero(t, counts[domain.TaskStatusProcessing])
	assert.Equal(t, int64(6), counts[domain.TaskStatusFailed])
	for _, task := range tasks {
		got := h.get(t, task)
		assert.Contains(t, got.ErrorMessage, domain.FallbackScoreReason)
		assert.Equal(t, 1, got.RetryCount)
	}
	assert.Zero(t, h.results.Len())
}

func TestRunBatchRespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()
	provider := &scriptedProvider{delay: 20 * time.Millisecond}
	h := newHarness(t, provider, harnessOptions{
		startPool:   true,
		concurrency: 2,
		workers:     8,
		scheduler:   func(c *SchedulerConfig) { c.BatchSize = 8 },
	})
	// Distinct question sets so the cache cannot absorb calls.
	for i := 0; i < 8; i++ {
		h.submit(t, 1, fmt.Sprintf("Question set %d", i))
	}

	report, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Completed)
	assert.Equal(t, int64(8), provider.calls.Load())
	assert.LessOrEqual(t, provider.peak.Load(), int64(2))
	assert.Equal(t, int64(2), h.client.Stats().PeakInFlight)
}

func TestRunBatchRequeuesWhenQueueFull(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{queueSize: 1, scheduler: func(c *SchedulerConfig) {
		c.WaitTimeout = 20 * time.Millisecond
	}})
	h.submit(t, 3)

	report, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
	assert.Equal(t, 2, report.Requeued)
	assert.Equal(t, 1, report.StillRunning, "the pool was never started")

	counts := h.counts(t)
	assert.Equal(t, int64(2), counts[domain.TaskStatusPending])
	assert.Equal(t, int64(1), counts[domain.TaskStatusProcessing])
}

func TestRunBatchWaitTimeoutDoesNotCancel(t *testing.T) {
	t.Parallel()
	provider := &scriptedProvider{delay: 200 * time.Millisecond}
	h := newHarness(t, provider, harnessOptions{startPool: true, scheduler: func(c *SchedulerConfig) {
		c.WaitTimeout = 20 * time.Millisecond
	}})
	h.submit(t, 2, "Only question")

	report, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.StillRunning)

	assert.Eventually(t, func() bool {
		return h.counts(t)[domain.TaskStatusCompleted] == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetrySweepResetsEligibleTasks(t *testing.T) {
	t.Parallel()
	h := newHarness(t, failingProvider(), harnessOptions{startPool: true})
	tasks := h.submit(t, 2)

	_, err := h.scheduler.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, h.scheduler.RunRetrySweep(context.Background()), "failures younger than the retry delay wait")

	h.clock.Advance(5*time.Minute + time.Second)
	assert.Equal(t, 2, h.scheduler.RunRetrySweep(context.Background()))

	for _, task := range tasks {
		got := h.get(t, task)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
		assert.Empty(t, got.ErrorMessage)
		assert.Equal(t, 1, got.RetryCount, "retry count only grows on failure")
	}
}

func TestRetriesExhaustAtMaxRetries(t *testing.T) {
	t.Parallel()
	h := newHarness(t, failingProvider(), harnessOptions{startPool: true})
	task := h.submit(t, 1)[0]
	ctx := context.Background()

	for attempt := 1; attempt <= 3; attempt++ {
		report, err := h.scheduler.RunBatch(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, report.Failed, "attempt %d", attempt)

		h.clock.Advance(10 * time.Minute)
		reset := h.scheduler.RunRetrySweep(ctx)
		if attempt < 3 {
			require.Equal(t, 1, reset, "attempt %d", attempt)
		} else {
			assert.Zero(t, reset)
		}
	}

	got := h.get(t, task)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	assert.True(t, got.IsTerminal(3))

	h.clock.Advance(time.Hour)
	assert.Zero(t, h.scheduler.RunRetrySweep(ctx))
}

func TestTimeoutSweepFailsStuckTasksOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{})
	stuck := h.claim(t, 1)
	h.clock.Advance(4 * time.Minute)
	recent := h.claim(t, 2)

	h.clock.Advance(time.Minute + time.Second)
	assert.Equal(t, 1, h.scheduler.RunTimeoutSweep(context.Background()))
	assert.Zero(t, h.scheduler.RunTimeoutSweep(context.Background()))

	got := h.get(t, stuck)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.Equal(t, domain.TimeoutErrorMessage, got.ErrorMessage)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, domain.TaskStatusProcessing, h.get(t, recent).Status)

	h.clock.Advance(5*time.Minute + time.Second)
	assert.Equal(t, 1, h.scheduler.RunRetrySweep(context.Background()), "timed-out tasks stay retryable")
}

func TestTriggerNowBypassesEnabledFlag(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{startPool: true})
	require.False(t, h.scheduler.Config().Enabled)
	require.NoError(t, h.scheduler.Start())
	h.submit(t, 2)

	require.NoError(t, h.scheduler.TriggerNow())
	assert.Eventually(t, func() bool {
		return h.counts(t)[domain.TaskStatusCompleted] == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.scheduler.Stop(context.Background()))
	assert.ErrorIs(t, h.scheduler.TriggerNow(), ErrSchedulerStopped)
	assert.ErrorIs(t, h.scheduler.Start(), ErrSchedulerStopped)
	require.NoError(t, h.scheduler.Stop(context.Background()))
}

func TestStartRunsScheduledSweeps(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, harnessOptions{startPool: true, scheduler: func(c *SchedulerConfig) {
		c.Enabled = true
		c.InitialDelay = 10 * time.Millisecond
	}})
	h.submit(t, 3)

	require.NoError(t, h.scheduler.Start())
	assert.Eventually(t, func() bool {
		return h.counts(t)[domain.TaskStatusCompleted] == 3
	}, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.scheduler.Stop(ctx))
}

func TestDelayedSchedule(t *testing.T) {
	t.Parallel()
	s := newDelayedSchedule(30*time.Second, 2*time.Minute)

	assert.Equal(t, baseTime.Add(30*time.Second), s.Next(baseTime))
	next := baseTime.Add(30 * time.Second)
	assert.Equal(t, next.Add(2*time.Minute), s.Next(next))

	undelayed := newDelayedSchedule(0, time.Minute)
	assert.Equal(t, baseTime.Add(time.Minute), undelayed.Next(baseTime))
}
