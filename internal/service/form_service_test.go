package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/domain"
	"github.com/phrazzld/recruit-summary/internal/events"
	"github.com/phrazzld/recruit-summary/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFormStore keeps forms in a map and mirrors the postgres semantics.
type fakeFormStore struct {
	mu        sync.Mutex
	forms     map[uuid.UUID]*domain.RecruitingForm
	updateErr error
}

func newFakeFormStore() *fakeFormStore {
	return &fakeFormStore{forms: make(map[uuid.UUID]*domain.RecruitingForm)}
}

func (s *fakeFormStore) Create(_ context.Context, form *domain.RecruitingForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *form
	s.forms[form.ID] = &c
	return nil
}

func (s *fakeFormStore) Get(_ context.Context, id uuid.UUID) (*domain.RecruitingForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[id]
	if !ok {
		return nil, store.ErrFormNotFound
	}
	c := *f
	return &c, nil
}

func (s *fakeFormStore) List(context.Context) ([]*domain.RecruitingForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.RecruitingForm, 0, len(s.forms))
	for _, f := range s.forms {
		c := *f
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeFormStore) Activate(_ context.Context, id uuid.UUID, now time.Time) (*domain.RecruitingForm, []uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.forms[id]
	if !ok {
		return nil, nil, store.ErrFormNotFound
	}
	var deactivated []uuid.UUID
	for otherID, f := range s.forms {
		if otherID != id && f.Status == domain.FormStatusActive {
			f.Status = domain.FormStatusInactive
			f.UpdatedAt = now
			deactivated = append(deactivated, otherID)
		}
	}
	target.Status = domain.FormStatusActive
	target.UpdatedAt = now
	c := *target
	return &c, deactivated, nil
}

func (s *fakeFormStore) UpdateStatus(_ context.Context, form *domain.RecruitingForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	f, ok := s.forms[form.ID]
	if !ok {
		return store.ErrFormNotFound
	}
	f.Status = form.Status
	f.UpdatedAt = form.UpdatedAt
	return nil
}

func (s *fakeFormStore) ExistsActive(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.forms {
		if f.Status == domain.FormStatusActive {
			return true, nil
		}
	}
	return false, nil
}

// recordingHandler keeps every event it sees.
type recordingHandler struct {
	mu     sync.Mutex
	events []*events.FormEvent
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, e *events.FormEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return h.err
}

func (h *recordingHandler) kinds() []events.FormEventKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds := make([]events.FormEventKind, len(h.events))
	for i, e := range h.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func newFormService(t *testing.T) (FormService, *fakeFormStore, *recordingHandler) {
	t.Helper()
	forms := newFakeFormStore()
	handler := &recordingHandler{}
	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(handler)

	svc, err := NewFormService(forms, emitter, testLogger())
	require.NoError(t, err)
	return svc, forms, handler
}

func TestNewFormServiceValidation(t *testing.T) {
	t.Parallel()
	_, err := NewFormService(nil, events.NewInMemoryEventEmitter(testLogger()), nil)
	assert.Error(t, err)
	_, err = NewFormService(newFakeFormStore(), nil, nil)
	assert.Error(t, err)
}

func TestFormLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, forms, handler := newFormService(t)

	spring, err := svc.CreateForm(ctx, "ext-1", "Spring recruiting")
	require.NoError(t, err)
	assert.Equal(t, domain.FormStatusInactive, spring.Status)

	autumn, err := svc.CreateForm(ctx, "ext-2", "Autumn recruiting")
	require.NoError(t, err)

	_, err = svc.ActivateForm(ctx, spring.ID)
	require.NoError(t, err)
	activated, err := svc.ActivateForm(ctx, autumn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FormStatusActive, activated.Status)

	got, err := svc.GetForm(ctx, spring.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FormStatusInactive, got.Status, "activating one form deactivates the others")

	_, err = svc.ActivateForm(ctx, autumn.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidFormTransition)

	closed, err := svc.CloseForm(ctx, autumn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FormStatusClosed, closed.Status)

	open, err := forms.ExistsActive(ctx)
	require.NoError(t, err)
	assert.False(t, open)

	assert.Equal(t, []events.FormEventKind{
		events.FormCreated,
		events.FormCreated,
		events.FormActivated,
		events.FormDeactivated,
		events.FormActivated,
		events.FormClosed,
	}, handler.kinds())

	list, err := svc.ListForms(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeactivateForm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, handler := newFormService(t)

	form, err := svc.CreateForm(ctx, "", "Winter recruiting")
	require.NoError(t, err)

	_, err = svc.DeactivateForm(ctx, form.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidFormTransition, "already inactive")

	_, err = svc.ActivateForm(ctx, form.ID)
	require.NoError(t, err)
	got, err := svc.DeactivateForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FormStatusInactive, got.Status)
	assert.Len(t, handler.kinds(), 3)
}

func TestFormServiceErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, forms, handler := newFormService(t)

	_, err := svc.CreateForm(ctx, "ext", "  ")
	assert.ErrorIs(t, err, domain.ErrEmptyFormTitle)

	_, err = svc.ActivateForm(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrFormNotFound)
	_, err = svc.CloseForm(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrFormNotFound)

	form, err := svc.CreateForm(ctx, "ext", "Spring recruiting")
	require.NoError(t, err)
	forms.updateErr = errors.New("disk full")
	_, err = svc.CloseForm(ctx, form.ID)
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "close_form", serviceErr.Operation)

	handler.err = errors.New("handler down")
	forms.updateErr = nil
	_, err = svc.CloseForm(ctx, form.ID)
	assert.NoError(t, err, "handler failures do not undo the change")
}
