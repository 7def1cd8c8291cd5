package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventWriter stores domain events in the same transaction as the aggregate change
type EventWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormObligationRepository implements installment.Repository using GORM
type GormObligationRepository struct {
	db     *gorm.DB
	events EventWriter
}

// ObligationRepositoryOption configures a GormObligationRepository
type ObligationRepositoryOption func(*GormObligationRepository)

// WithEventWriter writes each change's domain events through w inside the change's
// transaction. Events stay on the aggregate for the caller to clear.
func WithEventWriter(w EventWriter) ObligationRepositoryOption {
	return func(r *GormObligationRepository) {
		r.events = w
	}
}

// NewGormObligationRepository creates a new GormObligationRepository
func NewGormObligationRepository(db *gorm.DB, opts ...ObligationRepositoryOption) *GormObligationRepository {
	r := &GormObligationRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ installment.Repository = (*GormObligationRepository)(nil)

func orderPayments(db *gorm.DB) *gorm.DB {
	return db.Order("sequence_number ASC")
}

// FindByID finds an obligation with its payments
func (r *GormObligationRepository) FindByID(ctx context.Context, id uuid.UUID) (*installment.Obligation, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

func (r *GormObligationRepository) findByID(db *gorm.DB, id uuid.UUID) (*installment.Obligation, error) {
	var model models.ObligationModel
	if err := db.Preload("Payments", orderPayments).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, installment.ErrObligationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDocument finds all installments of a document ordered by sequence number
func (r *GormObligationRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*installment.Obligation, error) {
	var obligationModels []models.ObligationModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", orderPayments).
		Where("document_id = ?", documentID).
		Order("sequence_number ASC").
		Find(&obligationModels).Error; err != nil {
		return nil, err
	}
	return toDomainObligations(obligationModels), nil
}

// FindAll finds obligations matching the filter
func (r *GormObligationRepository) FindAll(ctx context.Context, filter installment.ObligationFilter) ([]*installment.Obligation, error) {
	var obligationModels []models.ObligationModel
	query := r.db.WithContext(ctx).Model(&models.ObligationModel{}).Preload("Payments", orderPayments)
	query = r.applyFilter(query, filter)

	if err := query.Find(&obligationModels).Error; err != nil {
		return nil, err
	}
	return toDomainObligations(obligationModels), nil
}

// FindOpen finds obligations with a pending balance. A filter without a page size
// returns every open obligation.
func (r *GormObligationRepository) FindOpen(ctx context.Context, filter installment.ObligationFilter) ([]*installment.Obligation, error) {
	filter.OnlyOpen = true
	return r.FindAll(ctx, filter)
}

// Count counts obligations matching the filter
func (r *GormObligationRepository) Count(ctx context.Context, filter installment.ObligationFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ObligationModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListPayments lists an obligation's payments in insertion order
func (r *GormObligationRepository) ListPayments(ctx context.Context, obligationID uuid.UUID) ([]*installment.Payment, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.ObligationModel{}).Where("id = ?", obligationID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, installment.ErrObligationNotFound
	}

	var paymentModels []models.PaymentModel
	if err := orderPayments(db.Where("obligation_id = ?", obligationID)).
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]*installment.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments, nil
}

// Create persists a new obligation
func (r *GormObligationRepository) Create(ctx context.Context, obligation *installment.Obligation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.ObligationModelFromDomain(obligation)
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrAlreadyExists.WithDetails(map[string]any{
					"document_id":     obligation.DocumentID.String(),
					"sequence_number": obligation.SequenceNumber,
				})
			}
			return err
		}
		for _, p := range obligation.Payments {
			if err := tx.Create(models.PaymentModelFromDomain(obligation.DocumentID, p)).Error; err != nil {
				return err
			}
		}
		return r.writeEvents(ctx, tx, obligation)
	})
}

// CreatePayment registers a payment under a row lock and returns the updated obligation.
// The payment is validated again against the locked state, so concurrent submissions
// can never together exceed the pending amount.
func (r *GormObligationRepository) CreatePayment(
	ctx context.Context,
	obligationID uuid.UUID,
	draft installment.PaymentDraft,
	today time.Time,
) (*installment.Obligation, *installment.Payment, error) {
	var (
		updated *installment.Obligation
		payment *installment.Payment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := r.lockForUpdate(tx, obligationID)
		if err != nil {
			return err
		}

		p, err := o.RegisterPayment(draft.Amounts, draft.PaymentDate, draft.Observation, today)
		if err != nil {
			return err
		}
		seq, err := nextPaymentSequence(tx, o.DocumentID)
		if err != nil {
			return err
		}
		p.SequenceNumber = seq

		if err := o.CheckInvariants(today); err != nil {
			return err
		}
		if err := tx.Create(models.PaymentModelFromDomain(o.DocumentID, p)).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrConcurrencyConflict
			}
			return err
		}
		if err := updateWithVersion(tx, o); err != nil {
			return err
		}
		if err := r.writeEvents(ctx, tx, o); err != nil {
			return err
		}

		updated, payment = o, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, payment, nil
}

// DeletePayment removes a payment under a row lock and returns the updated obligation
func (r *GormObligationRepository) DeletePayment(ctx context.Context, obligationID, paymentID uuid.UUID, today time.Time) (*installment.Obligation, error) {
	var updated *installment.Obligation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := r.lockForUpdate(tx, obligationID)
		if err != nil {
			return err
		}

		if _, err := o.RemovePayment(paymentID, today); err != nil {
			return err
		}
		if err := o.CheckInvariants(today); err != nil {
			return err
		}

		result := tx.Delete(&models.PaymentModel{}, "id = ? AND obligation_id = ?", paymentID, obligationID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return installment.ErrPaymentNotFound
		}
		if err := updateWithVersion(tx, o); err != nil {
			return err
		}
		if err := r.writeEvents(ctx, tx, o); err != nil {
			return err
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Save updates an obligation with an optimistic version check.
// The caller must have incremented the version.
func (r *GormObligationRepository) Save(ctx context.Context, obligation *installment.Obligation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateWithVersion(tx, obligation); err != nil {
			return err
		}
		return r.writeEvents(ctx, tx, obligation)
	})
}

// lockForUpdate loads an obligation inside tx. On postgres every installment of the
// obligation's document is row-locked first, in id order, so the document-scoped
// payment sequence and the pending balance are read under the same lock.
func (r *GormObligationRepository) lockForUpdate(tx *gorm.DB, id uuid.UUID) (*installment.Obligation, error) {
	if tx.Dialector.Name() == DriverPostgres {
		var documentIDs []uuid.UUID
		if err := tx.Model(&models.ObligationModel{}).
			Where("id = ?", id).
			Pluck("document_id", &documentIDs).Error; err != nil {
			return nil, err
		}
		if len(documentIDs) == 0 {
			return nil, installment.ErrObligationNotFound
		}

		var locked []uuid.UUID
		if err := tx.Model(&models.ObligationModel{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("document_id = ?", documentIDs[0]).
			Order("id").
			Pluck("id", &locked).Error; err != nil {
			return nil, err
		}
	}
	return r.findByID(tx, id)
}

func nextPaymentSequence(tx *gorm.DB, documentID uuid.UUID) (int, error) {
	var last int
	if err := tx.Model(&models.PaymentModel{}).
		Select("COALESCE(MAX(sequence_number), 0)").
		Where("document_id = ?", documentID).
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}

// updateWithVersion writes the mutable columns of an obligation if the stored
// version is the one the change was based on
func updateWithVersion(tx *gorm.DB, o *installment.Obligation) error {
	result := tx.Model(&models.ObligationModel{}).
		Where("id = ? AND version = ?", o.ID, o.Version-1).
		Updates(map[string]any{
			"pending_amount": o.PendingAmount,
			"status":         o.Status,
			"version":        o.Version,
			"updated_at":     o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormObligationRepository) writeEvents(ctx context.Context, tx *gorm.DB, o *installment.Obligation) error {
	events := o.GetDomainEvents()
	if r.events == nil || len(events) == 0 {
		return nil
	}
	return r.events.PublishWithTx(ctx, tx, events...)
}

// applyFilter applies filtering and pagination
func (r *GormObligationRepository) applyFilter(query *gorm.DB, filter installment.ObligationFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Order(obligationSortColumns.orderBy(filter.Filter, "due_date")).
		Order("document_id ASC").
		Order("sequence_number ASC")

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// applyFilterWithoutPagination applies filtering only
func (r *GormObligationRepository) applyFilterWithoutPagination(query *gorm.DB, filter installment.ObligationFilter) *gorm.DB {
	if filter.DocumentID != nil {
		query = query.Where("document_id = ?", *filter.DocumentID)
	}
	if filter.DocumentKind != nil {
		query = query.Where("document_kind = ?", *filter.DocumentKind)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	if filter.Status != nil {
		query = whereStatus(query, *filter.Status, filter.AsOf)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", installment.DateOf(*filter.DueFrom, time.UTC))
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", installment.DateOf(*filter.DueTo, time.UTC))
	}
	if filter.OnlyOpen {
		query = query.Where("pending_amount > 0")
	}
	return query
}

// whereStatus matches the status Classify derives on asOf from the pending
// amount and due date, so rows a sweep has not reached yet still match
func whereStatus(query *gorm.DB, status installment.Status, asOf time.Time) *gorm.DB {
	if asOf.IsZero() {
		return query.Where("status = ?", status)
	}
	today := installment.DateOf(asOf, time.UTC)
	switch status {
	case installment.StatusPaid:
		return query.Where("pending_amount <= 0")
	case installment.StatusOverdue:
		return query.Where("pending_amount > 0 AND due_date < ?", today)
	case installment.StatusPending:
		return query.Where("pending_amount > 0 AND due_date >= ?", today)
	}
	return query.Where("status = ?", status)
}

func toDomainObligations(obligationModels []models.ObligationModel) []*installment.Obligation {
	obligations := make([]*installment.Obligation, len(obligationModels))
	for i := range obligationModels {
		obligations[i] = obligationModels[i].ToDomain()
	}
	return obligations
}
