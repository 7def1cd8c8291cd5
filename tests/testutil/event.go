package testutil

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/stretchr/testify/require"
)

// RecordingEventHandler records every event delivered to it
type RecordingEventHandler struct {
	eventTypes []string

	mu      sync.Mutex
	handled []shared.DomainEvent
	err     error
	arrived chan struct{}
}

// NewRecordingEventHandler subscribes to eventTypes
func NewRecordingEventHandler(eventTypes ...string) *RecordingEventHandler {
	return &RecordingEventHandler{eventTypes: eventTypes, arrived: make(chan struct{}, 1)}
}

// EventTypes implements shared.EventHandler
func (h *RecordingEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records event and returns the error set with SetError
func (h *RecordingEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	err := h.err
	h.mu.Unlock()

	select {
	case h.arrived <- struct{}{}:
	default:
	}
	return err
}

// SetError makes later deliveries fail with err
func (h *RecordingEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Handled returns the events received so far in arrival order
func (h *RecordingEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.handled)
}

// Types returns the types of Handled
func (h *RecordingEventHandler) Types() []string {
	events := h.Handled()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

// HandledCount returns how many events were received
func (h *RecordingEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// WaitFor blocks until at least n events arrived and fails the test after timeout
func (h *RecordingEventHandler) WaitFor(t *testing.T, n int, timeout time.Duration) []shared.DomainEvent {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if events := h.Handled(); len(events) >= n {
			return events
		}
		select {
		case <-h.arrived:
		case <-deadline.C:
			require.FailNow(t, "events did not arrive", "want %d, got %d: %v", n, h.HandledCount(), h.Types())
		}
	}
}

var _ shared.EventHandler = (*RecordingEventHandler)(nil)
