package event

import (
	"context"
	"sync/atomic"

	"github.com/backoffice/installments/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// handleOutcome is what happened to one delivery of an event
type handleOutcome int

const (
	outcomeHandled handleOutcome = iota
	outcomeDuplicate
	outcomeFailed
	// the store could not be asked, so the event ran unguarded
	outcomeUnguarded
	outcomeCount
)

func (o handleOutcome) String() string {
	switch o {
	case outcomeHandled:
		return "handled"
	case outcomeDuplicate:
		return "duplicate"
	case outcomeFailed:
		return "failed"
	case outcomeUnguarded:
		return "unguarded"
	default:
		return "unknown"
	}
}

// IdempotencyStats counts deliveries by outcome
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
	EventsUnguarded int64 `json:"events_unguarded"`
}

// IdempotentHandler runs the wrapped handler once per event ID. The outbox
// delivers at least once, so a redelivered event is claimed in the store
// before the handler runs and skipped when the claim already exists.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	outcomes  [outcomeCount]atomic.Int64
	delivered metric.Int64Counter
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the claim TTL or disables the guard
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithDeliveryMeter counts deliveries on meter as event_delivery_total,
// by event type and outcome
func WithDeliveryMeter(meter metric.Meter) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if meter == nil {
			return
		}
		counter, err := meter.Int64Counter("event_delivery_total",
			metric.WithDescription("Outbox event deliveries by handler outcome"),
			metric.WithUnit("{delivery}"))
		if err != nil {
			h.logger.Warn("event delivery counter unavailable", zap.Error(err))
			return
		}
		h.delivered = counter
	}
}

// NewIdempotentHandler wraps handler with claims taken in store
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless the event ID is already claimed.
// A failed run releases the claim so the next delivery retries it.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.handler.Handle(ctx, event)
	}

	key := shared.ScopeEvent.Key(event.EventID().String())
	log := h.logger.With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	guarded := true
	claimed, err := h.store.Claim(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		// run anyway: a repeated audit line is recoverable, a lost one is not
		log.Warn("idempotency store unavailable, handling event unguarded", zap.Error(err))
		guarded = false
	case !claimed:
		log.Debug("event already handled, skipping")
		h.record(ctx, event, outcomeDuplicate)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.record(ctx, event, outcomeFailed)
		if guarded {
			if releaseErr := h.store.Release(ctx, key); releaseErr != nil {
				log.Warn("failed to release event claim", zap.Error(releaseErr))
			}
		}
		return err
	}

	if guarded {
		h.record(ctx, event, outcomeHandled)
	} else {
		h.record(ctx, event, outcomeUnguarded)
	}
	return nil
}

func (h *IdempotentHandler) record(ctx context.Context, event shared.DomainEvent, outcome handleOutcome) {
	h.outcomes[outcome].Add(1)
	if h.delivered != nil {
		h.delivered.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event.type", event.EventType()),
			attribute.String("outcome", outcome.String()),
		))
	}
}

// Stats returns the delivery counts so far
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.outcomes[outcomeHandled].Load(),
		EventsDuplicate: h.outcomes[outcomeDuplicate].Load(),
		EventsFailed:    h.outcomes[outcomeFailed].Load(),
		EventsUnguarded: h.outcomes[outcomeUnguarded].Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
