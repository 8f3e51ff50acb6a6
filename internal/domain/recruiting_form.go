package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormStatus is the lifecycle state of a recruiting form.
type FormStatus string

// Possible form status values
const (
	FormStatusInactive FormStatus = "INACTIVE"
	FormStatusActive   FormStatus = "ACTIVE"
	FormStatusClosed   FormStatus = "CLOSED"
)

// Valid reports whether s is a known form status.
func (s FormStatus) Valid() bool {
	switch s {
	case FormStatusInactive, FormStatusActive, FormStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a form may move from s to target. Every
// status may move to every other status; staying put is not a transition.
func (s FormStatus) CanTransitionTo(target FormStatus) bool {
	return s.Valid() && target.Valid() && s != target
}

// RecruitingForm is an application form whose ACTIVE status opens the intake
// window. The summarization sweeps run only while some form is active.
type RecruitingForm struct {
	ID         uuid.UUID  `json:"id"`
	ExternalID string     `json:"external_id,omitempty"`
	Title      string     `json:"title"`
	Status     FormStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewRecruitingForm creates an INACTIVE form.
func NewRecruitingForm(externalID, title string, now time.Time) (*RecruitingForm, error) {
	f := &RecruitingForm{
		ID:         uuid.New(),
		ExternalID: strings.TrimSpace(externalID),
		Title:      strings.TrimSpace(title),
		Status:     FormStatusInactive,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks identity, title and status.
func (f *RecruitingForm) Validate() error {
	if f.ID == uuid.Nil {
		return fmt.Errorf("%w: form ID cannot be empty", ErrValidation)
	}
	if f.Title == "" {
		return ErrEmptyFormTitle
	}
	if !f.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFormStatus, f.Status)
	}
	return nil
}

// IsActive reports whether the form currently opens the intake window.
func (f *RecruitingForm) IsActive() bool {
	return f.Status == FormStatusActive
}

// ChangeStatus moves the form to target and returns the previous status.
func (f *RecruitingForm) ChangeStatus(target FormStatus, now time.Time) (FormStatus, error) {
	if !f.Status.CanTransitionTo(target) {
		return f.Status, fmt.Errorf("%w: %s -> %s", ErrInvalidFormTransition, f.Status, target)
	}
	prev := f.Status
	f.Status = target
	f.UpdatedAt = now.UTC()
	return prev, nil
}
