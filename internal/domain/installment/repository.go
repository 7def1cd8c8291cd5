package installment

import (
	"context"
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ObligationFilter defines filtering options for obligation queries
type ObligationFilter struct {
	shared.Filter
	DocumentID   *uuid.UUID            // Filter by parent document
	DocumentKind *DocumentKind         // Filter by sale or purchase
	Currency     *valueobject.Currency // Filter by currency
	Status       *Status               // Filter by the status derived on AsOf
	AsOf         time.Time             // Business date for Status; zero matches the stored status
	DueFrom      *time.Time            // Filter by due date range start
	DueTo        *time.Time            // Filter by due date range end
	OnlyOpen     bool                  // Only obligations with a pending balance
}

// PaymentDraft carries a candidate payment to the store
type PaymentDraft struct {
	Amounts     PaymentAmounts
	PaymentDate time.Time
	Observation string
}

// Repository is the system of record for obligations and their payments.
//
// CreatePayment and DeletePayment must re-run validation against the locked,
// current state of the obligation, so two concurrent submissions can never
// together exceed the pending amount.
type Repository interface {
	// FindByID finds an obligation with its payments
	FindByID(ctx context.Context, id uuid.UUID) (*Obligation, error)

	// FindByDocument finds all installments of a document ordered by sequence number
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*Obligation, error)

	// FindAll finds obligations matching the filter
	FindAll(ctx context.Context, filter ObligationFilter) ([]*Obligation, error)

	// FindOpen finds obligations with a pending balance matching the filter
	FindOpen(ctx context.Context, filter ObligationFilter) ([]*Obligation, error)

	// Count counts obligations matching the filter
	Count(ctx context.Context, filter ObligationFilter) (int64, error)

	// ListPayments lists an obligation's payments in insertion order
	ListPayments(ctx context.Context, obligationID uuid.UUID) ([]*Payment, error)

	// Create persists a new obligation
	Create(ctx context.Context, obligation *Obligation) error

	// CreatePayment registers a payment under a row lock and returns the updated obligation
	CreatePayment(ctx context.Context, obligationID uuid.UUID, draft PaymentDraft, today time.Time) (*Obligation, *Payment, error)

	// DeletePayment removes a payment under a row lock and returns the updated obligation
	DeletePayment(ctx context.Context, obligationID, paymentID uuid.UUID, today time.Time) (*Obligation, error)

	// Save updates an obligation with an optimistic version check
	Save(ctx context.Context, obligation *Obligation) error
}
