package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ErrNilEvent is returned when EmitEvent is called without an event.
var ErrNilEvent = errors.New("nil form event")

// InMemoryEventEmitter delivers form events synchronously, in registration
// order, to the handlers subscribed to the event's kind.
type InMemoryEventEmitter struct {
	mu sync.RWMutex
	// all receive every kind; byKind only the kinds they asked for.
	all    []EventHandler
	byKind map[FormEventKind][]EventHandler
	logger *slog.Logger
}

// NewInMemoryEventEmitter creates an emitter with no subscribers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		byKind: make(map[FormEventKind][]EventHandler),
		logger: logger.With("component", "form_event_emitter"),
	}
}

// RegisterHandler subscribes handler to the given kinds, or to every kind
// when none are given. Repeated kinds are subscribed once.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, kinds ...FormEventKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(kinds) == 0 {
		e.all = append(e.all, handler)
		e.logger.Debug("registered form event handler", "kinds", "all")
		return
	}
	kinds = slices.Compact(slices.Sorted(slices.Values(kinds)))
	for _, kind := range kinds {
		e.byKind[kind] = append(e.byKind[kind], handler)
	}
	e.logger.Debug("registered form event handler", "kinds", kinds)
}

// handlersFor returns a snapshot so handlers may register more handlers
// without deadlocking.
func (e *InMemoryEventEmitter) handlersFor(kind FormEventKind) []EventHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Concat(e.all, e.byKind[kind])
}

// EmitEvent delivers event to every subscribed handler even when some fail,
// and returns their failures joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *FormEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	handlers := e.handlersFor(event.Kind)
	if len(handlers) == 0 {
		e.logger.Debug("no subscribers for form event",
			"event_id", event.ID,
			"event_kind", event.Kind)
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("form event handler failed",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_kind", event.Kind,
				"form_id", event.FormID)
			errs = append(errs, fmt.Errorf("%s handler %d: %w", event.Kind, i, err))
		}
	}
	return errors.Join(errs...)
}
