package event

import (
	"context"
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutboxRepository stores outbox entries in the outbox_events table
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates an outbox repository on db
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save inserts entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

// blockedByOlder matches entries whose aggregate has an older entry that is
// in flight or waiting out its retry backoff.
const blockedByOlder = "EXISTS (SELECT 1 FROM outbox_events older" +
	" WHERE older.aggregate_id = outbox_events.aggregate_id" +
	" AND older.created_at < outbox_events.created_at" +
	" AND (older.status = ? OR (older.status = ? AND older.next_retry_at > ?)))"

// ClaimDue implements shared.OutboxRepository. On PostgreSQL the candidate
// rows are locked with SKIP LOCKED so concurrent processors split the work.
func (r *GormOutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var claimed []*shared.OutboxEntry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// SQLite serializes writers on its own and has no row locks
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		err := query.
			Where("status = ? OR (status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?))",
				shared.OutboxStatusPending, shared.OutboxStatusFailed, now).
			Where("NOT "+blockedByOlder, shared.OutboxStatusProcessing, shared.OutboxStatusFailed, now).
			Order("created_at ASC").
			Order("id ASC").
			Limit(limit).
			Find(&claimed).Error
		if err != nil || len(claimed) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(claimed))
		for i, e := range claimed {
			ids[i] = e.ID
		}
		if err := tx.Model(&shared.OutboxEntry{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for _, e := range claimed {
			e.Status = shared.OutboxStatusProcessing
			e.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Update writes the entry's delivery state
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	return r.db.WithContext(ctx).
		Model(entry).
		Select("status", "retry_count", "max_retries", "last_error", "next_retry_at", "processed_at", "updated_at").
		Updates(entry).Error
}

// RequeueStale implements shared.OutboxRepository
func (r *GormOutboxRepository) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Where("status = ? AND updated_at < ?", shared.OutboxStatusProcessing, before).
		Updates(map[string]any{
			"status":     shared.OutboxStatusPending,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteSentBefore implements shared.OutboxRepository
func (r *GormOutboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&shared.OutboxEntry{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns the number of entries per status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&shared.OutboxEntry{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
