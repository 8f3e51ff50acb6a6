package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
)

// FormStore persists recruiting forms.
type FormStore interface {
	// Create inserts a new form.
	Create(ctx context.Context, form *domain.RecruitingForm) error

	// Get retrieves one form. Returns ErrFormNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.RecruitingForm, error)

	// List returns every form, newest first.
	List(ctx context.Context) ([]*domain.RecruitingForm, error)

	// Activate makes the form the only ACTIVE one: every other active form is
	// set INACTIVE in the same transaction. It returns the activated form and
	// the IDs of the forms it deactivated.
	Activate(ctx context.Context, id uuid.UUID, now time.Time) (*domain.RecruitingForm, []uuid.UUID, error)

	// UpdateStatus persists form.Status and form.UpdatedAt.
	UpdateStatus(ctx context.Context, form *domain.RecruitingForm) error

	// ExistsActive reports whether any form is ACTIVE.
	ExistsActive(ctx context.Context) (bool, error)
}
