package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/api/shared"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/service"
)

// FormHandler handles recruiting form administration. Status changes open
// and close the intake window the sweeps check.
type FormHandler struct {
	forms  service.FormService
	logger *slog.Logger
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(forms service.FormService, logger *slog.Logger) *FormHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormHandler{
		forms:  forms,
		logger: logger.With(slog.String("component", "form_handler")),
	}
}

// CreateForm handles POST /api/forms.
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req CreateFormRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	form, err := h.forms.CreateForm(r.Context(), req.ExternalID, req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create recruiting form")
		return
	}
	h.logger.DebugContext(r.Context(), "recruiting form created", slog.String("form_id", form.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, formToResponse(form))
}

// ListForms handles GET /api/forms.
func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.forms.ListForms(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list recruiting forms")
		return
	}

	resp := make([]FormResponse, len(forms))
	for i, f := range forms {
		resp[i] = formToResponse(f)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetForm handles GET /api/forms/{id}.
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	h.withForm(w, r, "Failed to retrieve recruiting form", h.forms.GetForm)
}

// ActivateForm handles POST /api/forms/{id}/activate.
func (h *FormHandler) ActivateForm(w http.ResponseWriter, r *http.Request) {
	h.withForm(w, r, "Failed to activate recruiting form", h.forms.ActivateForm)
}

// DeactivateForm handles POST /api/forms/{id}/deactivate.
func (h *FormHandler) DeactivateForm(w http.ResponseWriter, r *http.Request) {
	h.withForm(w, r, "Failed to deactivate recruiting form", h.forms.DeactivateForm)
}

// CloseForm handles POST /api/forms/{id}/close.
func (h *FormHandler) CloseForm(w http.ResponseWriter, r *http.Request) {
	h.withForm(w, r, "Failed to close recruiting form", h.forms.CloseForm)
}

func (h *FormHandler) withForm(
	w http.ResponseWriter,
	r *http.Request,
	failure string,
	op func(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error),
) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	form, err := op(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, failure)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, formToResponse(form))
}
