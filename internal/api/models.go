package api

import (
	"time"

	"github.com/phrazzld/recruit-summary/internal/domain"
)

// AnswerRequest is one question/answer pair of a submission.
type AnswerRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"   validate:"required"`
}

// SubmitRequest defines the payload for the submission endpoint.
type SubmitRequest struct {
	FormResponseID string          `json:"form_response_id" validate:"required,max=255"`
	ApplicantEmail string          `json:"applicant_email"  validate:"required,email"`
	Answers        []AnswerRequest `json:"answers"          validate:"required,min=1,dive"`
}

// TaskResponse is the client view of a summarization task. Answers are not
// echoed back.
type TaskResponse struct {
	ID                    string                   `json:"id"`
	FormResponseID        string                   `json:"form_response_id"`
	ApplicantEmail        string                   `json:"applicant_email"`
	Status                string                   `json:"status"`
	Questions             int                      `json:"questions"`
	Result                *domain.AssessmentResult `json:"result,omitempty"`
	ErrorMessage          string                   `json:"error_message,omitempty"`
	RetryCount            int                      `json:"retry_count"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
	ProcessingStartedAt   *time.Time               `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time               `json:"processing_completed_at,omitempty"`
}

// CreateFormRequest defines the payload for creating a recruiting form.
type CreateFormRequest struct {
	ExternalID string `json:"external_id" validate:"max=255"`
	Title      string `json:"title"       validate:"required,max=200"`
}

// FormResponse is the client view of a recruiting form.
type FormResponse struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func taskToResponse(t *domain.SummarizationTask) TaskResponse {
	return TaskResponse{
		ID:                    t.ID.String(),
		FormResponseID:        t.FormResponseID,
		ApplicantEmail:        t.ApplicantEmail,
		Status:                string(t.Status),
		Questions:             len(t.Payload),
		Result:                t.Result,
		ErrorMessage:          t.ErrorMessage,
		RetryCount:            t.RetryCount,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		ProcessingStartedAt:   t.ProcessingStartedAt,
		ProcessingCompletedAt: t.ProcessingCompletedAt,
	}
}

func formToResponse(f *domain.RecruitingForm) FormResponse {
	return FormResponse{
		ID:         f.ID.String(),
		ExternalID: f.ExternalID,
		Title:      f.Title,
		Status:     string(f.Status),
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}
