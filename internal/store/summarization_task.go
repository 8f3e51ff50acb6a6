package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
)

// TaskStore persists summarization tasks. The pipeline treats it as a keyed
// store with status-filtered queries; every listing is ordered oldest first
// so that sweeps treat applicants fairly.
type TaskStore interface {
	// Create inserts a new PENDING task. Returns ErrSubmissionExists when a task
	// with the same (form response ID, applicant email) already exists.
	Create(ctx context.Context, task *domain.SummarizationTask) error

	// Get retrieves one task. Returns ErrTaskNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.SummarizationTask, error)

	// FindIDsByStatus returns up to limit IDs of tasks in status, oldest
	// created first. It loads no payloads.
	FindIDsByStatus(ctx context.Context, status domain.TaskStatus, limit int) ([]uuid.UUID, error)

	// LoadWithDependencies loads the full tasks for ids, payload and result
	// included, ordered by creation time. Unknown IDs are skipped.
	LoadWithDependencies(ctx context.Context, ids []uuid.UUID) ([]*domain.SummarizationTask, error)

	// Save writes every mutable field of task, but only if the stored task is
	// still in status from. Leaving PROCESSING also requires the stored claim
	// stamp (ProcessingStartedAt) to match task's, so a result from an earlier
	// claim cannot overwrite a later one. Returns ErrStaleState when another
	// writer moved it first, and ErrTaskNotFound when it does not exist.
	Save(ctx context.Context, task *domain.SummarizationTask, from domain.TaskStatus) error

	// FindRetryEligible returns up to limit FAILED tasks with retries left
	// (retry_count < maxRetries) whose last attempt completed before olderThan,
	// oldest failure first.
	FindRetryEligible(ctx context.Context, olderThan time.Time, maxRetries, limit int) ([]*domain.SummarizationTask, error)

	// FindTimedOut returns up to limit PROCESSING tasks claimed before
	// olderThan, oldest claim first.
	FindTimedOut(ctx context.Context, olderThan time.Time, limit int) ([]*domain.SummarizationTask, error)

	// CountsByStatus returns the number of tasks in each status. Every known
	// status is present in the map, with zero when no task has it.
	CountsByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)
}
