package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/recruit-summary/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is; the API layer maps them to status codes.
var (
	// ErrSubmissionExists indicates that the applicant already has a task for
	// this form response. API layer should map this to HTTP 409 Conflict.
	ErrSubmissionExists = errors.New("submission already received")

	// ErrTaskNotFound indicates that the summarization task does not exist.
	ErrTaskNotFound = errors.New("summarization task not found")

	// ErrFormNotFound indicates that the recruiting form does not exist.
	ErrFormNotFound = errors.New("recruiting form not found")
)

// ServiceError wraps unexpected errors with the operation that failed.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "activate_form")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError maps store sentinels to service sentinels and wraps
// anything else in a ServiceError.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, store.ErrSubmissionExists):
		return ErrSubmissionExists
	case errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, store.ErrFormNotFound):
		return ErrFormNotFound
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
