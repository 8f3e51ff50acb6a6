package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a summarization task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// AllTaskStatuses lists every status in lifecycle order.
var AllTaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusProcessing,
	TaskStatusCompleted,
	TaskStatusFailed,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Payload bounds for a single question/answer pair, measured in characters.
const (
	MaxQuestionLength = 500
	MaxAnswerLength   = 5000
)

// TimeoutErrorMessage is recorded on tasks failed by the timeout sweep so that
// operators can tell a stalled call apart from a bad model reply.
const TimeoutErrorMessage = "Processing timeout"

// QuestionAnswer is one ordered (question, answer) pair from a submission.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Validate checks that the pair is non-empty and within length bounds.
func (qa QuestionAnswer) Validate() error {
	if strings.TrimSpace(qa.Question) == "" {
		return ErrEmptyQuestion
	}
	if strings.TrimSpace(qa.Answer) == "" {
		return ErrEmptyAnswer
	}
	if utf8.RuneCountInString(qa.Question) > MaxQuestionLength {
		return fmt.Errorf("%w: %d characters allowed", ErrQuestionTooLong, MaxQuestionLength)
	}
	if utf8.RuneCountInString(qa.Answer) > MaxAnswerLength {
		return fmt.Errorf("%w: %d characters allowed", ErrAnswerTooLong, MaxAnswerLength)
	}
	return nil
}

// SummarizationTask is one unit of work: summarize one applicant's submission.
//
// Invariants: Result is non-nil iff Status is COMPLETED, ErrorMessage is set iff
// Status is FAILED, ProcessingStartedAt is set once the task has been claimed at
// least once, and RetryCount never decreases.
type SummarizationTask struct {
	ID                    uuid.UUID         `json:"id"`
	FormResponseID        string            `json:"form_response_id"`
	ApplicantEmail        string            `json:"applicant_email"`
	Status                TaskStatus        `json:"status"`
	Payload               []QuestionAnswer  `json:"payload"`
	Result                *AssessmentResult `json:"result,omitempty"`
	ErrorMessage          string            `json:"error_message,omitempty"`
	RetryCount            int               `json:"retry_count"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	ProcessingStartedAt   *time.Time        `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time        `json:"processing_completed_at,omitempty"`
}

// NewSummarizationTask creates a PENDING task for an accepted submission.
// The natural key (form response ID, applicant email) identifies the
// submission and must be unique across tasks.
func NewSummarizationTask(
	formResponseID, applicantEmail string,
	payload []QuestionAnswer,
	now time.Time,
) (*SummarizationTask, error) {
	items := make([]QuestionAnswer, len(payload))
	copy(items, payload)

	t := &SummarizationTask{
		ID:             uuid.New(),
		FormResponseID: strings.TrimSpace(formResponseID),
		ApplicantEmail: strings.TrimSpace(applicantEmail),
		Status:         TaskStatusPending,
		Payload:        items,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the identity, status and payload of the task.
func (t *SummarizationTask) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrValidation)
	}
	if t.FormResponseID == "" || t.ApplicantEmail == "" {
		return ErrEmptyNaturalKey
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, t.Status)
	}
	if len(t.Payload) == 0 {
		return ErrEmptyPayload
	}
	for i, qa := range t.Payload {
		if err := qa.Validate(); err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
	}
	return nil
}

// Questions returns the questions of the payload in their original order.
func (t *SummarizationTask) Questions() []string {
	questions := make([]string, len(t.Payload))
	for i, qa := range t.Payload {
		questions[i] = qa.Question
	}
	return questions
}

func (t *SummarizationTask) transitionError(to TaskStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
}

// Claim moves a PENDING task into PROCESSING and stamps the start time.
func (t *SummarizationTask) Claim(now time.Time) error {
	if t.Status != TaskStatusPending {
		return t.transitionError(TaskStatusProcessing)
	}
	started := now.UTC()
	t.Status = TaskStatusProcessing
	t.ProcessingStartedAt = &started
	t.ProcessingCompletedAt = nil
	t.UpdatedAt = started
	return nil
}

// Complete records a validated result on a PROCESSING task.
func (t *SummarizationTask) Complete(result *AssessmentResult, now time.Time) error {
	if result == nil {
		return ErrNilResult
	}
	if t.Status != TaskStatusProcessing {
		return t.transitionError(TaskStatusCompleted)
	}
	done := now.UTC()
	t.Status = TaskStatusCompleted
	t.Result = result
	t.ErrorMessage = ""
	t.ProcessingCompletedAt = &done
	t.UpdatedAt = done
	return nil
}

// Fail marks a PROCESSING task as FAILED and counts the attempt.
func (t *SummarizationTask) Fail(message string, now time.Time) error {
	if t.Status != TaskStatusProcessing {
		return t.transitionError(TaskStatusFailed)
	}
	if strings.TrimSpace(message) == "" {
		message = "summary generation failed"
	}
	done := now.UTC()
	t.Status = TaskStatusFailed
	t.Result = nil
	t.ErrorMessage = message
	t.RetryCount++
	t.ProcessingCompletedAt = &done
	t.UpdatedAt = done
	return nil
}

// ResetForRetry returns a FAILED task to PENDING and clears its error.
// RetryCount is left untouched until the next failure.
func (t *SummarizationTask) ResetForRetry(now time.Time) error {
	if t.Status != TaskStatusFailed {
		return t.transitionError(TaskStatusPending)
	}
	t.Status = TaskStatusPending
	t.ErrorMessage = ""
	t.UpdatedAt = now.UTC()
	return nil
}

// Unclaim reverts a claim that was never dispatched, for example because the
// worker queue was full. It is the only way back from PROCESSING to PENDING.
func (t *SummarizationTask) Unclaim(now time.Time) error {
	if t.Status != TaskStatusProcessing {
		return t.transitionError(TaskStatusPending)
	}
	t.Status = TaskStatusPending
	t.UpdatedAt = now.UTC()
	return nil
}

// IsTerminal reports whether no further automatic transition can happen.
func (t *SummarizationTask) IsTerminal(maxRetries int) bool {
	switch t.Status {
	case TaskStatusCompleted:
		return true
	case TaskStatusFailed:
		return t.RetryCount >= maxRetries
	}
	return false
}

// IsRetryEligible reports whether a FAILED task may be reset to PENDING:
// attempts remain and it failed before the cutoff.
func (t *SummarizationTask) IsRetryEligible(cutoff time.Time, maxRetries int) bool {
	return t.Status == TaskStatusFailed &&
		t.RetryCount < maxRetries &&
		t.ProcessingCompletedAt != nil &&
		t.ProcessingCompletedAt.Before(cutoff)
}

// IsTimedOut reports whether a PROCESSING task was claimed before the cutoff.
func (t *SummarizationTask) IsTimedOut(cutoff time.Time) bool {
	return t.Status == TaskStatusProcessing &&
		t.ProcessingStartedAt != nil &&
		t.ProcessingStartedAt.Before(cutoff)
}

// Clone returns a deep copy of the task.
func (t *SummarizationTask) Clone() *SummarizationTask {
	if t == nil {
		return nil
	}
	c := *t
	c.Payload = make([]QuestionAnswer, len(t.Payload))
	copy(c.Payload, t.Payload)
	c.Result = t.Result.Clone()
	if t.ProcessingStartedAt != nil {
		v := *t.ProcessingStartedAt
		c.ProcessingStartedAt = &v
	}
	if t.ProcessingCompletedAt != nil {
		v := *t.ProcessingCompletedAt
		c.ProcessingCompletedAt = &v
	}
	return &c
}
