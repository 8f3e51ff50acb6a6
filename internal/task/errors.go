package task

import "errors"

// Errors returned by the scheduler and its collaborators.
var (
	// ErrNilStore is returned when a scheduler or service is built without a task store.
	ErrNilStore = errors.New("task store cannot be nil")

	// ErrNilProcessor is returned when a scheduler is built without a processor.
	ErrNilProcessor = errors.New("task processor cannot be nil")

	// ErrNilQueue is returned when a scheduler is built without a job queue.
	ErrNilQueue = errors.New("job queue cannot be nil")

	// ErrInvalidSchedulerConfig is returned for non-positive sizes or intervals.
	ErrInvalidSchedulerConfig = errors.New("invalid scheduler configuration")

	// ErrSchedulerStopped is returned when work is requested after Stop.
	ErrSchedulerStopped = errors.New("batch scheduler is stopped")

	// ErrTaskFailed wraps the message recorded on a task the pipeline failed.
	ErrTaskFailed = errors.New("task failed")

	// ErrTaskNotProcessing is returned when Process is handed a task that was not claimed.
	ErrTaskNotProcessing = errors.New("task is not in PROCESSING state")
)
