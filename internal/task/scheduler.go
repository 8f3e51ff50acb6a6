package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/config"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/store"
	"github.com/robfig/cron/v3"
)

// Default initial delays of the recovery sweeps, so that they never race the
// first main sweep after startup.
const (
	DefaultRetryInitialDelay   = 60 * time.Second
	DefaultTimeoutInitialDelay = 30 * time.Second

	// DefaultRecoveryLimit caps how many tasks one recovery sweep touches.
	DefaultRecoveryLimit = 100
)

// ErrBatchInProgress is returned by RunBatch while another main sweep runs.
var ErrBatchInProgress = errors.New("a batch is already in progress")

// TaskProcessor runs the per-task pipeline on a claimed task.
type TaskProcessor interface {
	Process(ctx context.Context, claimed *domain.SummarizationTask) error
}

// SchedulerConfig holds the sweep settings.
type SchedulerConfig struct {
	// Enabled registers the periodic sweeps on Start. TriggerNow works either way.
	Enabled bool

	// BatchSize bounds how many PENDING tasks one main sweep claims.
	BatchSize int

	Interval     time.Duration
	InitialDelay time.Duration

	// RetryDelay is how long a failure must age before it is retried.
	RetryDelay        time.Duration
	RetryInterval     time.Duration
	RetryInitialDelay time.Duration
	MaxRetries        int

	// ProcessingTimeout is how long a task may stay PROCESSING before the
	// timeout sweep fails it.
	ProcessingTimeout    time.Duration
	TimeoutCheckInterval time.Duration
	TimeoutInitialDelay  time.Duration

	// WaitTimeout bounds the main sweep's wait for its dispatched tasks.
	// Tasks still running afterwards are not cancelled.
	WaitTimeout time.Duration

	// RecoveryLimit caps how many tasks one retry or timeout sweep touches.
	RecoveryLimit int
}

// SchedulerConfigFrom maps the batch configuration group onto a SchedulerConfig.
func SchedulerConfigFrom(cfg config.BatchConfig) SchedulerConfig {
	return SchedulerConfig{
		Enabled:              cfg.Enabled,
		BatchSize:            cfg.Size,
		Interval:             cfg.Interval(),
		InitialDelay:         cfg.InitialDelay(),
		RetryDelay:           cfg.RetryDelay(),
		RetryInterval:        cfg.RetryInterval(),
		RetryInitialDelay:    DefaultRetryInitialDelay,
		MaxRetries:           cfg.MaxRetries,
		ProcessingTimeout:    cfg.ProcessingTimeout(),
		TimeoutCheckInterval: cfg.TimeoutCheckInterval(),
		TimeoutInitialDelay:  DefaultTimeoutInitialDelay,
		WaitTimeout:          cfg.WaitTimeout(),
		RecoveryLimit:        DefaultRecoveryLimit,
	}
}

func (c SchedulerConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidSchedulerConfig)
	case c.Interval <= 0 || c.RetryInterval <= 0 || c.TimeoutCheckInterval <= 0:
		return fmt.Errorf("%w: sweep intervals must be positive", ErrInvalidSchedulerConfig)
	case c.RetryDelay < 0 || c.ProcessingTimeout <= 0 || c.WaitTimeout <= 0:
		return fmt.Errorf("%w: delays and timeouts must be positive", ErrInvalidSchedulerConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidSchedulerConfig)
	}
	return nil
}

// BatchReport summarises one main sweep.
type BatchReport struct {
	WindowClosed bool `json:"windowClosed"`
	Found        int  `json:"found"`
	Dispatched   int  `json:"dispatched"`
	Completed    int  `json:"completed"`
	Failed       int  `json:"failed"`

	// Skipped counts tasks another writer claimed first.
	Skipped int `json:"skipped"`

	// Requeued counts tasks handed back to PENDING because the queue was full.
	Requeued int `json:"requeued"`

	// StillRunning counts dispatched tasks unfinished when the wait timed out.
	StillRunning int           `json:"stillRunning"`
	Duration     time.Duration `json:"duration"`
}

// BatchScheduler polls the task store and dispatches claimed tasks to the
// worker pool. It runs the main sweep plus a retry sweep and a
// timeout-recovery sweep, each on its own schedule.
type BatchScheduler struct {
	store     store.TaskStore
	processor TaskProcessor
	queue     QueueWriter
	window    WindowChecker
	config    SchedulerConfig
	now       func() time.Time
	logger    *slog.Logger

	cron *cron.Cron

	// mainMu keeps main sweeps from overlapping, whoever starts them.
	mainMu sync.Mutex

	mu       sync.Mutex
	stopped  bool
	triggers sync.WaitGroup
}

// SchedulerOption customises a BatchScheduler.
type SchedulerOption func(*BatchScheduler)

// WithWindow sets the recruiting window check. The default is always open.
func WithWindow(w WindowChecker) SchedulerOption {
	return func(s *BatchScheduler) {
		if w != nil {
			s.window = w
		}
	}
}

// WithSchedulerClock replaces time.Now.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *BatchScheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBatchScheduler validates cfg and builds a scheduler. Invalid settings
// are construction errors so misconfiguration fails at startup.
func NewBatchScheduler(
	taskStore store.TaskStore,
	processor TaskProcessor,
	queue QueueWriter,
	cfg SchedulerConfig,
	logger *slog.Logger,
	opts ...SchedulerOption,
) (*BatchScheduler, error) {
	if taskStore == nil {
		return nil, ErrNilStore
	}
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RecoveryLimit <= 0 {
		cfg.RecoveryLimit = DefaultRecoveryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "batch_scheduler")

	s := &BatchScheduler{
		store:     taskStore,
		processor: processor,
		queue:     queue,
		window:    StaticWindow(true),
		config:    cfg,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s, nil
}

// Config returns the settings the scheduler was built with.
func (s *BatchScheduler) Config() SchedulerConfig {
	return s.config
}

// Start registers the three sweeps and starts the cron runner. When batch
// processing is disabled nothing is scheduled.
func (s *BatchScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}

	if !s.config.Enabled {
		s.logger.Info("batch processing disabled, sweeps not scheduled")
		return nil
	}

	s.cron.Schedule(
		newDelayedSchedule(s.config.InitialDelay, s.config.Interval),
		cron.FuncJob(func() { s.runScheduledBatch() }),
	)
	s.cron.Schedule(
		newDelayedSchedule(s.config.RetryInitialDelay, s.config.RetryInterval),
		cron.FuncJob(func() { s.RunRetrySweep(context.Background()) }),
	)
	s.cron.Schedule(
		newDelayedSchedule(s.config.TimeoutInitialDelay, s.config.TimeoutCheckInterval),
		cron.FuncJob(func() { s.RunTimeoutSweep(context.Background()) }),
	)
	s.cron.Start()

	s.logger.Info("batch scheduler started",
		"batch_size", s.config.BatchSize,
		"interval", s.config.Interval,
		"retry_interval", s.config.RetryInterval,
		"timeout_check_interval", s.config.TimeoutCheckInterval,
		"max_retries", s.config.MaxRetries)
	return nil
}

// Stop unschedules the sweeps and waits for running sweeps and manual
// triggers to return, or for ctx to expire. Dispatched tasks keep running in
// the worker pool; shutting that down is the pool owner's job.
func (s *BatchScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.triggers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("batch scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("batch scheduler stop timed out with sweeps still running")
		return ctx.Err()
	}
}

// TriggerNow runs the main sweep in the background, outside its schedule and
// regardless of the enabled flag.
func (s *BatchScheduler) TriggerNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}

	s.triggers.Add(1)
	go func() {
		defer s.triggers.Done()
		s.logger.Info("manual batch triggered")
		if _, err := s.RunBatch(context.Background()); err != nil {
			s.logger.Warn("manual batch did not run", "error", err)
		}
	}()
	return nil
}

func (s *BatchScheduler) runScheduledBatch() {
	if _, err := s.RunBatch(context.Background()); err != nil && !errors.Is(err, ErrBatchInProgress) {
		s.logger.Error("batch sweep failed", "error", err)
	}
}

// windowOpen reports whether sweeps may run. A failing check counts as closed.
func (s *BatchScheduler) windowOpen(ctx context.Context, sweep string) bool {
	open, err := s.window.IsOpen(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "recruiting window check failed, skipping sweep",
			"sweep", sweep,
			"error", err)
		return false
	}
	if !open {
		s.logger.DebugContext(ctx, "no active recruiting form, skipping sweep", "sweep", sweep)
	}
	return open
}

// RunBatch runs one main sweep: claim up to BatchSize oldest PENDING tasks,
// dispatch them to the worker pool and wait for them up to WaitTimeout.
func (s *BatchScheduler) RunBatch(ctx context.Context) (report BatchReport, err error) {
	if !s.mainMu.TryLock() {
		return report, ErrBatchInProgress
	}
	defer s.mainMu.Unlock()

	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	if !s.windowOpen(ctx, "batch") {
		report.WindowClosed = true
		return report, nil
	}

	ids, err := s.store.FindIDsByStatus(ctx, domain.TaskStatusPending, s.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("find pending tasks: %w", err)
	}
	if len(ids) == 0 {
		return report, nil
	}

	tasks, err := s.store.LoadWithDependencies(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("load pending tasks: %w", err)
	}
	report.Found = len(tasks)

	results := make(chan error, len(tasks))
	for _, t := range tasks {
		switch s.dispatch(ctx, t, results) {
		case dispatched:
			report.Dispatched++
		case claimLost:
			report.Skipped++
		case requeued:
			report.Requeued++
		}
	}

	s.logger.InfoContext(ctx, "batch dispatched",
		"found", report.Found,
		"dispatched", report.Dispatched,
		"skipped", report.Skipped,
		"requeued", report.Requeued)

	s.await(ctx, results, &report)
	return report, nil
}

type dispatchOutcome int

const (
	dispatched dispatchOutcome = iota
	claimLost
	requeued
)

// dispatch claims t and enqueues its pipeline. The job reports its outcome
// on results, which is buffered for every task of the batch.
func (s *BatchScheduler) dispatch(ctx context.Context, t *domain.SummarizationTask, results chan<- error) dispatchOutcome {
	log := s.logger.With("task_id", t.ID)

	if err := t.Claim(s.now()); err != nil {
		log.DebugContext(ctx, "task no longer pending", "status", t.Status)
		return claimLost
	}
	if err := s.store.Save(ctx, t, domain.TaskStatusPending); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			log.DebugContext(ctx, "task claimed by another sweep")
		} else {
			log.ErrorContext(ctx, "failed to claim task", "error", err)
		}
		return claimLost
	}

	claimed := t.Clone()
	job := JobFunc{
		JobID: t.ID,
		Fn: func(jobCtx context.Context) error {
			err := s.processor.Process(jobCtx, claimed)
			results <- err
			return err
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		log.WarnContext(ctx, "could not dispatch task, returning it to PENDING", "error", err)
		s.unclaim(ctx, t)
		return requeued
	}
	return dispatched
}

func (s *BatchScheduler) unclaim(ctx context.Context, t *domain.SummarizationTask) {
	if err := t.Unclaim(s.now()); err != nil {
		return
	}
	if err := s.store.Save(ctx, t, domain.TaskStatusProcessing); err != nil {
		s.logger.ErrorContext(ctx, "failed to return task to PENDING, timeout sweep will recover it",
			"task_id", t.ID,
			"error", err)
	}
}

// await collects job outcomes until all dispatched tasks report or the joint
// wait expires. Expiry does not cancel anything.
func (s *BatchScheduler) await(ctx context.Context, results <-chan error, report *BatchReport) {
	if report.Dispatched == 0 {
		return
	}

	timer := time.NewTimer(s.config.WaitTimeout)
	defer timer.Stop()

	for received := 0; received < report.Dispatched; received++ {
		select {
		case err := <-results:
			if err == nil {
				report.Completed++
			} else {
				report.Failed++
			}
		case <-timer.C:
			report.StillRunning = report.Dispatched - received
			s.logger.WarnContext(ctx, "batch wait timed out, tasks continue in background",
				"still_running", report.StillRunning,
				"wait_timeout", s.config.WaitTimeout)
			return
		case <-ctx.Done():
			report.StillRunning = report.Dispatched - received
			return
		}
	}

	s.logger.InfoContext(ctx, "batch finished",
		"completed", report.Completed,
		"failed", report.Failed)
}

// RunRetrySweep returns retry-eligible FAILED tasks to PENDING and reports
// how many it reset.
func (s *BatchScheduler) RunRetrySweep(ctx context.Context) int {
	if !s.windowOpen(ctx, "retry") {
		return 0
	}

	cutoff := s.now().Add(-s.config.RetryDelay)
	tasks, err := s.store.FindRetryEligible(ctx, cutoff, s.config.MaxRetries, s.config.RecoveryLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to find retry-eligible tasks", "error", err)
		return 0
	}

	reset := 0
	for _, t := range tasks {
		if err := t.ResetForRetry(s.now()); err != nil {
			continue
		}
		if err := s.store.Save(ctx, t, domain.TaskStatusFailed); err != nil {
			s.logFailedTransition(ctx, t.ID, "retry", err)
			continue
		}
		reset++
		s.logger.InfoContext(ctx, "task reset for retry",
			"task_id", t.ID,
			"retry_count", t.RetryCount,
			"max_retries", s.config.MaxRetries)
	}

	if reset > 0 {
		s.logger.InfoContext(ctx, "retry sweep finished", "reset", reset, "found", len(tasks))
	}
	return reset
}

// RunTimeoutSweep fails PROCESSING tasks claimed longer than
// ProcessingTimeout ago and reports how many it failed.
func (s *BatchScheduler) RunTimeoutSweep(ctx context.Context) int {
	if !s.windowOpen(ctx, "timeout") {
		return 0
	}

	cutoff := s.now().Add(-s.config.ProcessingTimeout)
	tasks, err := s.store.FindTimedOut(ctx, cutoff, s.config.RecoveryLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to find timed-out tasks", "error", err)
		return 0
	}

	failed := 0
	for _, t := range tasks {
		if err := t.Fail(domain.TimeoutErrorMessage, s.now()); err != nil {
			continue
		}
		if err := s.store.Save(ctx, t, domain.TaskStatusProcessing); err != nil {
			s.logFailedTransition(ctx, t.ID, "timeout", err)
			continue
		}
		failed++
		s.logger.WarnContext(ctx, "task failed by processing timeout",
			"task_id", t.ID,
			"started_at", t.ProcessingStartedAt,
			"retry_count", t.RetryCount)
	}

	if failed > 0 {
		s.logger.InfoContext(ctx, "timeout sweep finished", "failed", failed, "found", len(tasks))
	}
	return failed
}

func (s *BatchScheduler) logFailedTransition(ctx context.Context, id uuid.UUID, sweep string, err error) {
	if errors.Is(err, store.ErrStaleState) {
		s.logger.DebugContext(ctx, "task changed state during sweep", "task_id", id, "sweep", sweep)
		return
	}
	s.logger.ErrorContext(ctx, "failed to save task", "task_id", id, "sweep", sweep, "error", err)
}
