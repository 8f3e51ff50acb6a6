package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a task is asked to move between
	// two lifecycle states that are not connected in the state machine.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrInvalidTaskStatus is returned when a status value is not recognized.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrEmptyPayload is returned when a submission carries no question/answer pairs.
	ErrEmptyPayload = errors.New("payload must contain at least one question/answer pair")

	// ErrEmptyQuestion is returned when a question is blank.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrEmptyAnswer is returned when an answer is blank.
	ErrEmptyAnswer = errors.New("answer cannot be empty")

	// ErrQuestionTooLong is returned when a question exceeds MaxQuestionLength.
	ErrQuestionTooLong = errors.New("question exceeds maximum length")

	// ErrAnswerTooLong is returned when an answer exceeds MaxAnswerLength.
	ErrAnswerTooLong = errors.New("answer exceeds maximum length")

	// ErrEmptyNaturalKey is returned when the submission source or applicant identity is missing.
	ErrEmptyNaturalKey = errors.New("form response ID and applicant email are required")

	// ErrNilResult is returned when completing a task without an assessment.
	ErrNilResult = errors.New("assessment result cannot be nil")

	// ErrInvalidFormStatus is returned when a form status value is not recognized.
	ErrInvalidFormStatus = errors.New("invalid form status")

	// ErrInvalidFormTransition is returned when a form status change is not allowed.
	ErrInvalidFormTransition = errors.New("invalid form status transition")

	// ErrEmptyFormTitle is returned when a recruiting form has no title.
	ErrEmptyFormTitle = errors.New("form title cannot be empty")
)
