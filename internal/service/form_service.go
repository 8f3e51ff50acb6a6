package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/events"
	"github.com/phrazzld/recruit-summary/internal/store"
)

// FormService manages recruiting forms. At most one form is ACTIVE at a time;
// its presence opens the recruiting window the batch sweeps check.
type FormService interface {
	// CreateForm stores a new INACTIVE form.
	CreateForm(ctx context.Context, externalID, title string) (*domain.RecruitingForm, error)

	// GetForm returns one form.
	GetForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error)

	// ListForms returns every form, newest first.
	ListForms(ctx context.Context) ([]*domain.RecruitingForm, error)

	// ActivateForm makes the form the only ACTIVE one.
	ActivateForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error)

	// DeactivateForm sets the form INACTIVE.
	DeactivateForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error)

	// CloseForm sets the form CLOSED.
	CloseForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error)
}

type formServiceImpl struct {
	forms   store.FormStore
	emitter events.EventEmitter
	now     func() time.Time
	logger  *slog.Logger
}

// NewFormService creates a FormService. Every status change is published
// through emitter.
func NewFormService(forms store.FormStore, emitter events.EventEmitter, logger *slog.Logger) (FormService, error) {
	if forms == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "form store cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &formServiceImpl{
		forms:   forms,
		emitter: emitter,
		now:     time.Now,
		logger:  logger.With("component", "form_service"),
	}, nil
}

// CreateForm implements FormService.
func (s *formServiceImpl) CreateForm(ctx context.Context, externalID, title string) (*domain.RecruitingForm, error) {
	form, err := domain.NewRecruitingForm(externalID, title, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.forms.Create(ctx, form); err != nil {
		s.logger.Error("failed to create recruiting form", "error", err, "external_id", externalID)
		return nil, NewServiceError("create_form", "failed to save recruiting form", err)
	}

	s.logger.Info("recruiting form created", "form_id", form.ID, "title", form.Title)
	s.emit(ctx, form, "")
	return form, nil
}

// GetForm implements FormService.
func (s *formServiceImpl) GetForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error) {
	form, err := s.forms.Get(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_form", "failed to retrieve recruiting form", err)
	}
	return form, nil
}

// ListForms implements FormService.
func (s *formServiceImpl) ListForms(ctx context.Context) ([]*domain.RecruitingForm, error) {
	forms, err := s.forms.List(ctx)
	if err != nil {
		return nil, NewServiceError("list_forms", "failed to list recruiting forms", err)
	}
	return forms, nil
}

// ActivateForm implements FormService. The forms it deactivates along the
// way get their own events.
func (s *formServiceImpl) ActivateForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error) {
	current, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(domain.FormStatusActive) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidFormTransition, current.Status, domain.FormStatusActive)
	}

	activated, deactivated, err := s.forms.Activate(ctx, id, s.now())
	if err != nil {
		s.logger.Error("failed to activate recruiting form", "error", err, "form_id", id)
		return nil, NewServiceError("activate_form", "failed to activate recruiting form", err)
	}

	s.logger.Info("recruiting form activated",
		"form_id", id,
		"deactivated_forms", len(deactivated))

	for _, otherID := range deactivated {
		other, err := s.forms.Get(ctx, otherID)
		if err != nil {
			s.logger.Warn("could not load deactivated form for event", "error", err, "form_id", otherID)
			continue
		}
		s.emit(ctx, other, domain.FormStatusActive)
	}
	s.emit(ctx, activated, current.Status)
	return activated, nil
}

// DeactivateForm implements FormService.
func (s *formServiceImpl) DeactivateForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error) {
	return s.changeStatus(ctx, id, domain.FormStatusInactive, "deactivate_form")
}

// CloseForm implements FormService.
func (s *formServiceImpl) CloseForm(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error) {
	return s.changeStatus(ctx, id, domain.FormStatusClosed, "close_form")
}

func (s *formServiceImpl) changeStatus(
	ctx context.Context,
	id uuid.UUID,
	target domain.FormStatus,
	operation string,
) (*domain.RecruitingForm, error) {
	form, err := s.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}

	prev, err := form.ChangeStatus(target, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.forms.UpdateStatus(ctx, form); err != nil {
		s.logger.Error("failed to update recruiting form status",
			"error", err,
			"form_id", id,
			"target_status", target)
		return nil, NewServiceError(operation, "failed to update recruiting form status", err)
	}

	s.logger.Info("recruiting form status changed",
		"form_id", id,
		"from", prev,
		"to", target)
	s.emit(ctx, form, prev)
	return form, nil
}

// emit publishes the change. Handler failures are logged; the status change
// itself is already committed.
func (s *formServiceImpl) emit(ctx context.Context, form *domain.RecruitingForm, from domain.FormStatus) {
	event := events.NewFormEvent(form, from, s.now())
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("form event handler failed",
			"error", err,
			"event_id", event.ID,
			"event_kind", event.Kind,
			"form_id", form.ID)
	}
}
