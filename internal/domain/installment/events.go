package installment

import (
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeObligationCreated  = "ObligationCreated"
	EventTypePaymentRegistered  = "PaymentRegistered"
	EventTypeObligationSettled  = "ObligationSettled"
	EventTypePaymentRemoved     = "PaymentRemoved"
	EventTypeObligationReopened = "ObligationReopened"
)

// ObligationCreatedEvent is raised when an installment is created
type ObligationCreatedEvent struct {
	shared.BaseDomainEvent
	ObligationID    uuid.UUID            `json:"obligation_id"`
	DocumentID      uuid.UUID            `json:"document_id"`
	DocumentKind    DocumentKind         `json:"document_kind"`
	SequenceNumber  int                  `json:"sequence_number"`
	PrincipalAmount decimal.Decimal      `json:"principal_amount"`
	Currency        valueobject.Currency `json:"currency"`
	DueDate         time.Time            `json:"due_date"`
}

// NewObligationCreatedEvent creates a new ObligationCreatedEvent
func NewObligationCreatedEvent(o *Obligation) *ObligationCreatedEvent {
	return &ObligationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeObligationCreated, AggregateTypeObligation, o.ID),
		ObligationID:    o.ID,
		DocumentID:      o.DocumentID,
		DocumentKind:    o.DocumentKind,
		SequenceNumber:  o.SequenceNumber,
		PrincipalAmount: o.PrincipalAmount,
		Currency:        o.Currency,
		DueDate:         o.DueDate,
	}
}

// PaymentRegisteredEvent is raised when a payment is applied to an obligation
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	ObligationID   uuid.UUID            `json:"obligation_id"`
	DocumentID     uuid.UUID            `json:"document_id"`
	PaymentID      uuid.UUID            `json:"payment_id"`
	Methods        []Method             `json:"methods"`
	TotalPaid      decimal.Decimal      `json:"total_paid"`
	PendingAmount  decimal.Decimal      `json:"pending_amount"`
	Currency       valueobject.Currency `json:"currency"`
	PreviousStatus Status               `json:"previous_status"`
	NewStatus      Status               `json:"new_status"`
}

// NewPaymentRegisteredEvent creates a new PaymentRegisteredEvent
func NewPaymentRegisteredEvent(o *Obligation, p *Payment, previous Status) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRegistered, AggregateTypeObligation, o.ID),
		ObligationID:    o.ID,
		DocumentID:      o.DocumentID,
		PaymentID:       p.ID,
		Methods:         p.Amounts.UsedMethods(),
		TotalPaid:       p.TotalPaid,
		PendingAmount:   o.PendingAmount,
		Currency:        o.Currency,
		PreviousStatus:  previous,
		NewStatus:       o.Status,
	}
}

// ObligationSettledEvent is raised when the pending amount reaches zero
type ObligationSettledEvent struct {
	shared.BaseDomainEvent
	ObligationID    uuid.UUID            `json:"obligation_id"`
	DocumentID      uuid.UUID            `json:"document_id"`
	PrincipalAmount decimal.Decimal      `json:"principal_amount"`
	Currency        valueobject.Currency `json:"currency"`
	PaymentCount    int                  `json:"payment_count"`
}

// NewObligationSettledEvent creates a new ObligationSettledEvent
func NewObligationSettledEvent(o *Obligation) *ObligationSettledEvent {
	return &ObligationSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeObligationSettled, AggregateTypeObligation, o.ID),
		ObligationID:    o.ID,
		DocumentID:      o.DocumentID,
		PrincipalAmount: o.PrincipalAmount,
		Currency:        o.Currency,
		PaymentCount:    len(o.Payments),
	}
}

// PaymentRemovedEvent is raised when a payment is deleted and its amount restored
type PaymentRemovedEvent struct {
	shared.BaseDomainEvent
	ObligationID   uuid.UUID            `json:"obligation_id"`
	DocumentID     uuid.UUID            `json:"document_id"`
	PaymentID      uuid.UUID            `json:"payment_id"`
	TotalPaid      decimal.Decimal      `json:"total_paid"`
	PendingAmount  decimal.Decimal      `json:"pending_amount"`
	Currency       valueobject.Currency `json:"currency"`
	PreviousStatus Status               `json:"previous_status"`
	NewStatus      Status               `json:"new_status"`
}

// NewPaymentRemovedEvent creates a new PaymentRemovedEvent
func NewPaymentRemovedEvent(o *Obligation, p *Payment, previous Status) *PaymentRemovedEvent {
	return &PaymentRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRemoved, AggregateTypeObligation, o.ID),
		ObligationID:    o.ID,
		DocumentID:      o.DocumentID,
		PaymentID:       p.ID,
		TotalPaid:       p.TotalPaid,
		PendingAmount:   o.PendingAmount,
		Currency:        o.Currency,
		PreviousStatus:  previous,
		NewStatus:       o.Status,
	}
}

// ObligationReopenedEvent is raised when a paid obligation owes money again after a payment removal
type ObligationReopenedEvent struct {
	shared.BaseDomainEvent
	ObligationID  uuid.UUID            `json:"obligation_id"`
	DocumentID    uuid.UUID            `json:"document_id"`
	PendingAmount decimal.Decimal      `json:"pending_amount"`
	Currency      valueobject.Currency `json:"currency"`
	Status        Status               `json:"status"`
}

// NewObligationReopenedEvent creates a new ObligationReopenedEvent
func NewObligationReopenedEvent(o *Obligation) *ObligationReopenedEvent {
	return &ObligationReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeObligationReopened, AggregateTypeObligation, o.ID),
		ObligationID:    o.ID,
		DocumentID:      o.DocumentID,
		PendingAmount:   o.PendingAmount,
		Currency:        o.Currency,
		Status:          o.Status,
	}
}
