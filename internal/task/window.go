package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/recruit-summary/internal/events"
	"github.com/phrazzld/recruit-summary/internal/store"
)

// WindowChecker reports whether a recruiting intake window is open. Every
// sweep skips its work while it is closed.
type WindowChecker interface {
	IsOpen(ctx context.Context) (bool, error)
}

// StaticWindow is a fixed answer, for deployments without recruiting forms.
type StaticWindow bool

// IsOpen implements WindowChecker.
func (w StaticWindow) IsOpen(context.Context) (bool, error) {
	return bool(w), nil
}

// StoreWindow asks the form store whether any form is ACTIVE.
type StoreWindow struct {
	forms store.FormStore
}

// NewStoreWindow creates a StoreWindow over forms.
func NewStoreWindow(forms store.FormStore) *StoreWindow {
	return &StoreWindow{forms: forms}
}

// IsOpen implements WindowChecker.
func (w *StoreWindow) IsOpen(ctx context.Context) (bool, error) {
	open, err := w.forms.ExistsActive(ctx)
	if err != nil {
		return false, fmt.Errorf("check active recruiting form: %w", err)
	}
	return open, nil
}

// FormTracker keeps the set of ACTIVE forms in memory, fed by form lifecycle
// events. It is a WindowChecker that never touches the database.
type FormTracker struct {
	mu     sync.RWMutex
	active map[uuid.UUID]string
	logger *slog.Logger
}

// NewFormTracker creates a tracker that starts with no active form.
func NewFormTracker(logger *slog.Logger) *FormTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormTracker{
		active: make(map[uuid.UUID]string),
		logger: logger.With("component", "form_tracker"),
	}
}

// HandleEvent implements events.EventHandler.
func (t *FormTracker) HandleEvent(ctx context.Context, event *events.FormEvent) error {
	if event == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, wasActive := t.active[event.FormID]
	if event.OpensWindow() {
		t.active[event.FormID] = event.FormTitle
	} else {
		delete(t.active, event.FormID)
	}

	if wasActive != event.OpensWindow() {
		t.logger.InfoContext(ctx, "recruiting window changed",
			"event_kind", event.Kind,
			"form_id", event.FormID,
			"form_title", event.FormTitle,
			"active_forms", len(t.active))
	}
	return nil
}

// Seed marks the given forms active, for startup before any event arrives.
func (t *FormTracker) Seed(forms map[uuid.UUID]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, title := range forms {
		t.active[id] = title
	}
}

// IsOpen implements WindowChecker.
func (t *FormTracker) IsOpen(context.Context) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active) > 0, nil
}

var (
	_ WindowChecker       = StaticWindow(false)
	_ WindowChecker       = (*StoreWindow)(nil)
	_ WindowChecker       = (*FormTracker)(nil)
	_ events.EventHandler = (*FormTracker)(nil)
)
