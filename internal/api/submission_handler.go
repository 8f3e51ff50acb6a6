package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/recruit-summary/internal/api/shared"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/service"
)

// SubmissionHandler handles applicant submissions and task lookups.
type SubmissionHandler struct {
	submissions service.SubmissionService
	logger      *slog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissions service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionHandler{
		submissions: submissions,
		logger:      logger.With(slog.String("component", "submission_handler")),
	}
}

// Submit handles POST /api/submissions. The task is summarized later by the
// batch scheduler, so the response is 202 Accepted.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	answers := make([]domain.QuestionAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = domain.QuestionAnswer{Question: a.Question, Answer: a.Answer}
	}

	task, err := h.submissions.Submit(r.Context(), service.Submission{
		FormResponseID: req.FormResponseID,
		ApplicantEmail: req.ApplicantEmail,
		Answers:        answers,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to accept submission")
		return
	}

	h.logger.DebugContext(r.Context(), "submission accepted", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(task))
}

// GetTask handles GET /api/submissions/{id}.
func (h *SubmissionHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.submissions.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve summarization task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}
