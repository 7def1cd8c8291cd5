package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED" // waiting for NextRetryAt
	OutboxStatusDead       OutboxStatus = "DEAD"   // gave up after MaxRetries
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	// MaxBackoff caps the exponential retry delay
	MaxBackoff = 5 * time.Minute
)

// OutboxEntry is a serialized domain event committed in the same transaction
// as the aggregate change that raised it. Entries of one aggregate are
// delivered in CreatedAt order.
type OutboxEntry struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string       `gorm:"size:100;not null"`
	AggregateID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_outbox_aggregate_created,priority:1"`
	AggregateType string       `gorm:"size:100;not null"`
	Payload       []byte       `gorm:"not null"`
	Status        OutboxStatus `gorm:"size:20;not null;index"`
	RetryCount    int          `gorm:"not null;default:0"`
	MaxRetries    int          `gorm:"not null;default:5"`
	LastError     string       `gorm:"type:text"`
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"index:idx_outbox_aggregate_created,priority:2"`
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (OutboxEntry) TableName() string {
	return "outbox_events"
}

// NewOutboxEntry creates a pending entry for a serialized event
func NewOutboxEntry(event DomainEvent, payload []byte, createdAt time.Time) *OutboxEntry {
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// IsDue reports whether the entry may be attempted at now
func (e *OutboxEntry) IsDue(now time.Time) bool {
	switch e.Status {
	case OutboxStatusPending:
		return true
	case OutboxStatusFailed:
		return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
	}
	return false
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent(now time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.NextRetryAt = nil
	e.UpdatedAt = now
}

// MarkFailed records a failed attempt. The entry is dead once RetryCount
// reaches MaxRetries; otherwise the next attempt backs off exponentially from
// DefaultBaseBackoff, capped at MaxBackoff.
func (e *OutboxEntry) MarkFailed(errMsg string, now time.Time) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(retryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// Defer hands a claimed entry back without counting an attempt. It is used
// when an older entry of the same aggregate failed in the same batch.
func (e *OutboxEntry) Defer(now time.Time) {
	if e.RetryCount == 0 {
		e.Status = OutboxStatusPending
	} else {
		e.Status = OutboxStatusFailed
		e.NextRetryAt = &now
	}
	e.UpdatedAt = now
}

// IsDead returns true once the entry will no longer be retried
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// beyond 2^20 seconds the cap applies anyway
	if attempt > 20 {
		return MaxBackoff
	}
	d := DefaultBaseBackoff << uint(attempt-1)
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error

	// ClaimDue marks up to limit due entries PROCESSING and returns them oldest
	// first. An entry of an aggregate whose older entry is still in flight or
	// waiting for a retry is not due yet.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)

	Update(ctx context.Context, entry *OutboxEntry) error

	// RequeueStale returns entries stuck PROCESSING since before the cutoff to PENDING
	RequeueStale(ctx context.Context, before time.Time) (int64, error)

	// DeleteSentBefore removes entries delivered before the cutoff
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)

	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
