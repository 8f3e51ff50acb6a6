package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/generation"
	"github.com/phrazzld/recruit-summary/internal/redact"
	"github.com/phrazzld/recruit-summary/internal/store"
)

// Invoker calls the language model. Implementations never fail; a degraded
// call is reported through Response.Fallback.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) generation.Response
}

// PromptRenderer assembles the prompt for one submission.
type PromptRenderer interface {
	Build(pairs []domain.QuestionAnswer) (string, error)
}

// ResultValidator turns raw model output into a well-formed assessment.
type ResultValidator interface {
	Validate(raw string) *domain.AssessmentResult
}

// ResultCache reuses validated results across submissions with the same questions.
type ResultCache interface {
	Lookup(payload []domain.QuestionAnswer) (*domain.AssessmentResult, bool)
	Store(payload []domain.QuestionAnswer, result *domain.AssessmentResult) bool
}

// Processor runs the per-task pipeline: cache lookup, prompt, model call,
// validation, persistence.
type Processor struct {
	store     store.TaskStore
	prompts   PromptRenderer
	invoker   Invoker
	validator ResultValidator
	cache     ResultCache
	now       func() time.Time
	logger    *slog.Logger
}

// ProcessorOption customises a Processor.
type ProcessorOption func(*Processor)

// WithProcessorClock replaces time.Now.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithResultCache enables result reuse. Without it every task calls the model.
func WithResultCache(c ResultCache) ProcessorOption {
	return func(p *Processor) {
		p.cache = c
	}
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(
	taskStore store.TaskStore,
	prompts PromptRenderer,
	invoker Invoker,
	validator ResultValidator,
	logger *slog.Logger,
	opts ...ProcessorOption,
) (*Processor, error) {
	if taskStore == nil {
		return nil, ErrNilStore
	}
	if prompts == nil || invoker == nil || validator == nil {
		return nil, errors.New("processor requires a prompt renderer, an invoker and a validator")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		store:     taskStore,
		prompts:   prompts,
		invoker:   invoker,
		validator: validator,
		now:       time.Now,
		logger:    logger.With("component", "task_processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process drives one claimed task to COMPLETED or FAILED. The task must be in
// PROCESSING. Panics and persistence errors are converted to a FAILED
// transition; the returned error only reports what happened.
func (p *Processor) Process(ctx context.Context, claimed *domain.SummarizationTask) (err error) {
	if claimed == nil || claimed.Status != domain.TaskStatusProcessing {
		return ErrTaskNotProcessing
	}
	log := p.logger.With("task_id", claimed.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			log.ErrorContext(ctx, "task pipeline panicked", "panic", r)
			p.fail(ctx, claimed, err.Error())
		}
	}()

	result, cached := p.lookup(claimed.Payload)
	if cached {
		log.DebugContext(ctx, "result cache hit")
	} else {
		var failure string
		result, failure = p.generate(ctx, claimed)
		if failure != "" {
			log.WarnContext(ctx, "summary generation failed", "reason", failure)
			return p.fail(ctx, claimed, failure)
		}
	}

	completed := claimed.Clone()
	if err := completed.Complete(result, p.now()); err != nil {
		return p.fail(ctx, claimed, err.Error())
	}

	saveErr := p.store.Save(ctx, completed, domain.TaskStatusProcessing)
	if !cached && p.cache != nil {
		p.cache.Store(claimed.Payload, result)
	}
	switch {
	case saveErr == nil:
		log.InfoContext(ctx, "task completed",
			"score", result.ScoreOutOf100,
			"summaries", len(result.QuestionSummaries),
			"cache_hit", cached)
		return nil
	case errors.Is(saveErr, store.ErrStaleState):
		log.WarnContext(ctx, "discarding late result, task changed state while processing",
			"error", saveErr)
		return saveErr
	default:
		log.ErrorContext(ctx, "failed to persist completed task", "error", saveErr)
		_ = p.fail(ctx, claimed, redact.Diagnostic(saveErr, redact.DefaultMaxLength))
		return fmt.Errorf("persist completed task: %w", saveErr)
	}
}

func (p *Processor) lookup(payload []domain.QuestionAnswer) (*domain.AssessmentResult, bool) {
	if p.cache == nil {
		return nil, false
	}
	return p.cache.Lookup(payload)
}

// generate calls the model and validates its output. A non-empty failure
// message means the task must be failed.
func (p *Processor) generate(ctx context.Context, t *domain.SummarizationTask) (*domain.AssessmentResult, string) {
	prompt, err := p.prompts.Build(t.Payload)
	if err != nil {
		return nil, fmt.Sprintf("%s Cause: %s", domain.FallbackScoreReason,
			redact.Diagnostic(err, redact.DefaultMaxLength))
	}

	resp := p.invoker.Invoke(ctx, prompt)
	result := p.validator.Validate(resp.Text)

	if resp.Fallback {
		return nil, fmt.Sprintf("%s Cause: %s", domain.FallbackScoreReason, resp.Reason)
	}
	if result.IsFallback() {
		return nil, fmt.Sprintf("%s Cause: model output could not be parsed", domain.FallbackScoreReason)
	}
	return result, ""
}

// fail records message on the task, guarded by the PROCESSING state it was
// claimed in. A conflict means another sweep already moved the task on.
func (p *Processor) fail(ctx context.Context, claimed *domain.SummarizationTask, message string) error {
	failed := claimed.Clone()
	if err := failed.Fail(message, p.now()); err != nil {
		return err
	}
	if err := p.store.Save(ctx, failed, domain.TaskStatusProcessing); err != nil {
		p.logger.ErrorContext(ctx, "failed to record task failure",
			"task_id", claimed.ID,
			"error", err)
		return fmt.Errorf("record task failure: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrTaskFailed, message)
}
