package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second task for the same submission).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrStaleState is returned by conditional saves when the stored entity is
	// no longer in the state the caller expected, usually because a concurrent
	// sweep or worker moved it first.
	ErrStaleState = errors.New("entity state changed concurrently")

	// ErrUpdateFailed is returned when an update operation fails for a reason
	// other than a missing entity or a state conflict.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTaskNotFound indicates that the requested summarization task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: summarization task", ErrNotFound)

	// ErrFormNotFound indicates that the requested recruiting form does not exist.
	ErrFormNotFound = fmt.Errorf("%w: recruiting form", ErrNotFound)

	// ErrTaskInvariant indicates a write that would leave a task with a result
	// but not COMPLETED, or COMPLETED without a result.
	ErrTaskInvariant = fmt.Errorf("%w: summarization task result must be present exactly when completed", ErrInvalidEntity)

	// ErrSubmissionExists indicates that a task already exists for the same
	// (form response, applicant email) pair.
	ErrSubmissionExists = fmt.Errorf("%w: submission", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "summarization_task", "recruiting_form")
	Operation string // The operation that failed (e.g., "create", "save")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
