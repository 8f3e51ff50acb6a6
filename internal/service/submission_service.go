package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/store"
)

// Submission is one applicant's answers to a recruiting form.
type Submission struct {
	FormResponseID string
	ApplicantEmail string
	Answers        []domain.QuestionAnswer
}

// SubmissionService accepts submissions and exposes their summarization tasks.
type SubmissionService interface {
	// Submit validates the submission and stores it as a PENDING task.
	// Returns ErrSubmissionExists when the applicant already submitted this response.
	Submit(ctx context.Context, submission Submission) (*domain.SummarizationTask, error)

	// GetTask returns the task with its current status and result.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.SummarizationTask, error)
}

type submissionServiceImpl struct {
	tasks  store.TaskStore
	now    func() time.Time
	logger *slog.Logger
}

// NewSubmissionService creates a SubmissionService over tasks.
func NewSubmissionService(tasks store.TaskStore, logger *slog.Logger) (SubmissionService, error) {
	if tasks == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionServiceImpl{
		tasks:  tasks,
		now:    time.Now,
		logger: logger.With("component", "submission_service"),
	}, nil
}

// Submit implements SubmissionService.
func (s *submissionServiceImpl) Submit(ctx context.Context, submission Submission) (*domain.SummarizationTask, error) {
	task, err := domain.NewSummarizationTask(
		submission.FormResponseID,
		submission.ApplicantEmail,
		submission.Answers,
		s.now(),
	)
	if err != nil {
		s.logger.Debug("rejected invalid submission",
			"error", err,
			"form_response_id", submission.FormResponseID)
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		mapped := NewServiceError("submit", "failed to store summarization task", err)
		if errors.Is(mapped, ErrSubmissionExists) {
			s.logger.Info("duplicate submission ignored",
				"form_response_id", task.FormResponseID)
		} else {
			s.logger.Error("failed to store summarization task",
				"error", err,
				"form_response_id", task.FormResponseID)
		}
		return nil, mapped
	}

	s.logger.Info("submission accepted",
		"task_id", task.ID,
		"form_response_id", task.FormResponseID,
		"questions", len(task.Payload))
	return task, nil
}

// GetTask implements SubmissionService.
func (s *submissionServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.SummarizationTask, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_task", "failed to retrieve summarization task", err)
	}
	return task, nil
}
