package event

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var outboxColumns = []string{
	"id", "event_id", "event_type", "aggregate_id",
	"aggregate_type", "payload", "status", "retry_count", "max_retries",
	"last_error", "next_retry_at", "processed_at", "created_at", "updated_at",
}

var claimNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// setupOutboxDB opens a private in-memory sqlite database holding only the outbox table
func setupOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&shared.OutboxEntry{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// addEntry stores an entry for aggregate created offset after claimNow's hour start
func addEntry(t *testing.T, repo *GormOutboxRepository, aggregate uuid.UUID, offset time.Duration, mutate func(*shared.OutboxEntry)) *shared.OutboxEntry {
	t.Helper()
	event := &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRegistered", "Obligation", aggregate)}
	entry := shared.NewOutboxEntry(event, []byte(`{}`), claimNow.Add(-time.Hour+offset))
	if mutate != nil {
		mutate(entry)
	}
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func claimedIDs(entries []*shared.OutboxEntry) []uuid.UUID {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestGormOutboxRepository_ClaimDue(t *testing.T) {
	ctx := context.Background()

	t.Run("oldest first, only due entries", func(t *testing.T) {
		repo := NewGormOutboxRepository(setupOutboxDB(t))
		second := addEntry(t, repo, uuid.New(), 2*time.Second, nil)
		first := addEntry(t, repo, uuid.New(), time.Second, nil)
		retryDue := addEntry(t, repo, uuid.New(), 3*time.Second, func(e *shared.OutboxEntry) {
			e.MarkFailed("timeout", claimNow.Add(-time.Minute))
		})
		addEntry(t, repo, uuid.New(), 4*time.Second, func(e *shared.OutboxEntry) {
			e.MarkFailed("timeout", claimNow) // retry in the future
		})
		addEntry(t, repo, uuid.New(), 5*time.Second, func(e *shared.OutboxEntry) { e.MarkSent(claimNow) })

		claimed, err := repo.ClaimDue(ctx, claimNow, 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{first.ID, second.ID, retryDue.ID}, claimedIDs(claimed))
		for _, e := range claimed {
			assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
		}

		again, err := repo.ClaimDue(ctx, claimNow, 10)
		require.NoError(t, err)
		assert.Empty(t, again, "claimed entries are not handed out twice")
	})

	t.Run("respects the limit", func(t *testing.T) {
		repo := NewGormOutboxRepository(setupOutboxDB(t))
		for i := 0; i < 5; i++ {
			addEntry(t, repo, uuid.New(), time.Duration(i)*time.Second, nil)
		}

		claimed, err := repo.ClaimDue(ctx, claimNow, 2)
		require.NoError(t, err)
		assert.Len(t, claimed, 2)
	})

	t.Run("holds later entries behind a failing one of the same obligation", func(t *testing.T) {
		repo := NewGormOutboxRepository(setupOutboxDB(t))
		obligation := uuid.New()
		addEntry(t, repo, obligation, time.Second, func(e *shared.OutboxEntry) {
			e.MarkFailed("handler down", claimNow) // backing off
		})
		blocked := addEntry(t, repo, obligation, 2*time.Second, nil)
		other := addEntry(t, repo, uuid.New(), 3*time.Second, nil)

		claimed, err := repo.ClaimDue(ctx, claimNow, 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{other.ID}, claimedIDs(claimed))

		// once the backoff elapses both go out in order
		later := claimNow.Add(time.Hour)
		claimed, err = repo.ClaimDue(ctx, later, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 2)
		assert.Equal(t, blocked.ID, claimed[1].ID)
	})

	t.Run("dead entries do not block", func(t *testing.T) {
		repo := NewGormOutboxRepository(setupOutboxDB(t))
		obligation := uuid.New()
		addEntry(t, repo, obligation, time.Second, func(e *shared.OutboxEntry) {
			e.MaxRetries = 1
			e.MarkFailed("poison", claimNow)
		})
		next := addEntry(t, repo, obligation, 2*time.Second, nil)

		claimed, err := repo.ClaimDue(ctx, claimNow, 10)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{next.ID}, claimedIDs(claimed))
	})
}

func TestGormOutboxRepository_ClaimDue_LocksOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE .+NOT EXISTS .+ORDER BY created_at ASC,id ASC LIMIT .+ FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(outboxColumns).AddRow(
			id, uuid.New(), "PaymentRegistered", uuid.New(),
			"Obligation", []byte(`{}`), "PENDING", 0, 5,
			"", nil, nil, claimNow, claimNow,
		))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := repo.ClaimDue(context.Background(), claimNow, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_UpdateAndRequeue(t *testing.T) {
	ctx := context.Background()
	db := setupOutboxDB(t)
	repo := NewGormOutboxRepository(db)

	stuck := addEntry(t, repo, uuid.New(), 0, nil)
	fresh := addEntry(t, repo, uuid.New(), time.Second, nil)
	_, err := repo.ClaimDue(ctx, claimNow.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.NoError(t, db.Model(&shared.OutboxEntry{}).Where("id = ?", fresh.ID).Update("updated_at", claimNow).Error)

	n, err := repo.RequeueStale(ctx, claimNow.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var reloaded shared.OutboxEntry
	require.NoError(t, db.First(&reloaded, "id = ?", stuck.ID).Error)
	assert.Equal(t, shared.OutboxStatusPending, reloaded.Status)

	reloaded.MarkFailed("timeout", claimNow)
	require.NoError(t, repo.Update(ctx, &reloaded))

	var failed shared.OutboxEntry
	require.NoError(t, db.First(&failed, "id = ?", stuck.ID).Error)
	assert.Equal(t, shared.OutboxStatusFailed, failed.Status)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "timeout", failed.LastError)
	require.NotNil(t, failed.NextRetryAt)
}

func TestGormOutboxRepository_DeleteSentBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	addEntry(t, repo, uuid.New(), 0, func(e *shared.OutboxEntry) { e.MarkSent(claimNow.Add(-10 * 24 * time.Hour)) })
	addEntry(t, repo, uuid.New(), 0, func(e *shared.OutboxEntry) { e.MarkSent(claimNow) })
	addEntry(t, repo, uuid.New(), 0, nil)

	deleted, err := repo.DeleteSentBefore(ctx, claimNow.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[shared.OutboxStatus]int64{
		shared.OutboxStatusSent:    1,
		shared.OutboxStatusPending: 1,
	}, counts)
}

func TestGormOutboxRepository_Save_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	require.NoError(t, NewGormOutboxRepository(db).Save(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
