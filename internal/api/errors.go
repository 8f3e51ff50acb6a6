package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/recruit-summary/internal/api/shared"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/service"
	"github.com/phrazzld/recruit-summary/internal/store"
	"github.com/phrazzld/recruit-summary/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// handlers never have to inspect error types themselves.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrFormNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrSubmissionExists),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, domain.ErrInvalidFormTransition),
		errors.Is(err, task.ErrBatchInProgress):
		return http.StatusConflict

	// Bad request errors
	case isValidationError(err),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Unavailable
	case errors.Is(err, task.ErrSchedulerStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// isValidationError reports whether err describes bad client input.
func isValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return true
	}
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrEmptyPayload,
		domain.ErrEmptyQuestion,
		domain.ErrEmptyAnswer,
		domain.ErrQuestionTooLong,
		domain.ErrAnswerTooLong,
		domain.ErrEmptyNaturalKey,
		domain.ErrEmptyFormTitle,
		domain.ErrInvalidFormStatus,
		shared.ErrEmptyBody,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetSafeErrorMessage returns a client-facing message for err. Domain
// validation messages are safe to show; everything unexpected is generic.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var fieldErrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return "Summarization task not found"
	case errors.Is(err, service.ErrFormNotFound):
		return "Recruiting form not found"
	case errors.Is(err, service.ErrSubmissionExists):
		return "Submission already received"
	case errors.Is(err, domain.ErrInvalidFormTransition):
		return "Form is already in the requested status"
	case errors.Is(err, task.ErrBatchInProgress):
		return "A batch is already running"
	case errors.Is(err, task.ErrSchedulerStopped):
		return "Batch scheduler is shutting down"
	case errors.As(err, &fieldErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case isValidationError(err):
		return domainValidationMessage(err)
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	default:
		return "An unexpected error occurred"
	}
}

// domainValidationMessage maps domain validation sentinels to messages,
// keeping the position prefix added for payload pairs ("pair 2: ...").
func domainValidationMessage(err error) string {
	for _, target := range []error{
		domain.ErrEmptyPayload,
		domain.ErrEmptyQuestion,
		domain.ErrEmptyAnswer,
		domain.ErrQuestionTooLong,
		domain.ErrAnswerTooLong,
		domain.ErrEmptyNaturalKey,
		domain.ErrEmptyFormTitle,
		domain.ErrInvalidFormStatus,
	} {
		if !errors.Is(err, target) {
			continue
		}
		msg := target.Error()
		if prefix, _, ok := strings.Cut(err.Error(), ": "); ok && strings.HasPrefix(prefix, "pair ") {
			msg = prefix + ": " + msg
		}
		switch target {
		case domain.ErrQuestionTooLong:
			msg = fmt.Sprintf("%s (%d characters allowed)", msg, domain.MaxQuestionLength)
		case domain.ErrAnswerTooLong:
			msg = fmt.Sprintf("%s (%d characters allowed)", msg, domain.MaxAnswerLength)
		}
		return msg
	}
	return "Validation error"
}

// SanitizeValidationError turns validator field errors into a short message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "Validation error"
	}
	first := fieldErrs[0]
	return fmt.Sprintf("Invalid %s: %s", first.Field(), getValidationTagMessage(first.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted details.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" || status != http.StatusInternalServerError {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
