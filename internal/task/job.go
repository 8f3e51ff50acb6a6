package task

import (
	"context"

	"github.com/google/uuid"
)

// Job is a unit of background work executed by the WorkerPool.
type Job interface {
	// ID returns the identifier of the work item, used for logging
	ID() uuid.UUID

	// Execute runs the job. Errors are reported to the pool's error handler.
	Execute(ctx context.Context) error
}

// QueueReader provides read-only access to the job channel
// allowing workers to consume jobs without the ability to enqueue
type QueueReader interface {
	// Channel returns a read-only channel for consuming jobs
	Channel() <-chan Job
}

// QueueWriter provides write access to the job queue
type QueueWriter interface {
	// Enqueue adds a job to the queue for processing.
	// Returns ErrQueueFull or ErrQueueClosed without blocking.
	Enqueue(job Job) error

	// Close closes the queue, preventing further submission
	Close()
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobID uuid.UUID
	Fn    func(ctx context.Context) error
}

// ID implements Job.
func (j JobFunc) ID() uuid.UUID { return j.JobID }

// Execute implements Job.
func (j JobFunc) Execute(ctx context.Context) error { return j.Fn(ctx) }
