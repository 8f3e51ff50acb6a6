package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
)

// FormEventKind tags what happened to a recruiting form.
type FormEventKind string

// Form event kinds
const (
	FormCreated       FormEventKind = "form_created"
	FormActivated     FormEventKind = "form_activated"
	FormDeactivated   FormEventKind = "form_deactivated"
	FormClosed        FormEventKind = "form_closed"
	FormStatusChanged FormEventKind = "form_status_changed"
)

// FormEvent describes one recruiting form lifecycle change. All kinds share
// the same fields; From is empty for FormCreated.
type FormEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Kind tags the event
	Kind FormEventKind `json:"kind"`

	FormID    uuid.UUID         `json:"form_id"`
	FormTitle string            `json:"form_title"`
	From      domain.FormStatus `json:"from,omitempty"`
	To        domain.FormStatus `json:"to"`

	// OccurredAt is the timestamp when the change happened
	OccurredAt time.Time `json:"occurred_at"`
}

// NewFormEvent builds an event for form, which is already in its new status.
// The kind is derived from the status pair: a change into ACTIVE, INACTIVE or
// CLOSED gets its own kind, and an empty from means the form was just created.
func NewFormEvent(form *domain.RecruitingForm, from domain.FormStatus, now time.Time) *FormEvent {
	return &FormEvent{
		ID:         uuid.New(),
		Kind:       kindFor(from, form.Status),
		FormID:     form.ID,
		FormTitle:  form.Title,
		From:       from,
		To:         form.Status,
		OccurredAt: now.UTC(),
	}
}

func kindFor(from, to domain.FormStatus) FormEventKind {
	if from == "" {
		return FormCreated
	}
	switch to {
	case domain.FormStatusActive:
		return FormActivated
	case domain.FormStatusInactive:
		return FormDeactivated
	case domain.FormStatusClosed:
		return FormClosed
	}
	return FormStatusChanged
}

// OpensWindow reports whether the event leaves the form ACTIVE.
func (e *FormEvent) OpensWindow() bool {
	return e.To == domain.FormStatusActive
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *FormEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *FormEvent) error
}
