package models

import (
	"time"

	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ObligationModel is the persistence model for the Obligation aggregate root.
type ObligationModel struct {
	AggregateModel
	DocumentID      uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_obligation_document_seq,priority:1"`
	DocumentKind    installment.DocumentKind `gorm:"type:varchar(20);not null;index"`
	SequenceNumber  int                      `gorm:"not null;uniqueIndex:idx_obligation_document_seq,priority:2"`
	PrincipalAmount decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	PendingAmount   decimal.Decimal          `gorm:"type:decimal(18,2);not null;index"`
	DueDate         time.Time                `gorm:"type:date;not null;index"`
	Currency        valueobject.Currency     `gorm:"type:varchar(3);not null;index"`
	Status          installment.Status       `gorm:"type:varchar(20);not null;default:'PENDIENTE';index"`
	Payments        []PaymentModel           `gorm:"foreignKey:ObligationID;references:ID"`
}

// TableName returns the table name for GORM
func (ObligationModel) TableName() string {
	return "obligations"
}

// ToDomain converts the persistence model to a domain Obligation.
// Amounts are re-rounded since some drivers hand numeric columns back as floats.
func (m *ObligationModel) ToDomain() *installment.Obligation {
	o := &installment.Obligation{
		DocumentID:      m.DocumentID,
		DocumentKind:    m.DocumentKind,
		SequenceNumber:  m.SequenceNumber,
		PrincipalAmount: valueobject.RoundAmount(m.PrincipalAmount),
		PendingAmount:   valueobject.RoundAmount(m.PendingAmount),
		DueDate:         installment.DateOf(m.DueDate, time.UTC),
		Currency:        m.Currency,
		Status:          m.Status,
		Payments:        make([]*installment.Payment, 0, len(m.Payments)),
	}
	m.PopulateAggregateRoot(&o.BaseAggregateRoot)
	for i := range m.Payments {
		o.Payments = append(o.Payments, m.Payments[i].ToDomain())
	}
	return o
}

// FromDomain populates the persistence model from a domain Obligation.
// Payments are not copied; they are written through PaymentModel.
func (m *ObligationModel) FromDomain(o *installment.Obligation) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.DocumentID = o.DocumentID
	m.DocumentKind = o.DocumentKind
	m.SequenceNumber = o.SequenceNumber
	m.PrincipalAmount = o.PrincipalAmount
	m.PendingAmount = o.PendingAmount
	m.DueDate = o.DueDate
	m.Currency = o.Currency
	m.Status = o.Status
}

// ObligationModelFromDomain creates a new persistence model from a domain Obligation
func ObligationModelFromDomain(o *installment.Obligation) *ObligationModel {
	m := &ObligationModel{}
	m.FromDomain(o)
	return m
}

// PaymentModel is the persistence model for a payment. One column per method bucket
// keeps per-method totals summable in SQL.
type PaymentModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ObligationID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_document_seq,priority:1"`
	SequenceNumber int             `gorm:"not null;uniqueIndex:idx_payment_document_seq,priority:2"`
	PaymentDate    time.Time       `gorm:"type:date;not null;index"`
	Cash           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Card           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Yape           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Plin           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BankDeposit    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	BankTransfer   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Other          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalPaid      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Observation    string          `gorm:"type:varchar(500)"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *installment.Payment {
	return &installment.Payment{
		ID:             m.ID,
		ObligationID:   m.ObligationID,
		SequenceNumber: m.SequenceNumber,
		PaymentDate:    installment.DateOf(m.PaymentDate, time.UTC),
		Amounts: installment.PaymentAmounts{
			Cash:         m.Cash,
			Card:         m.Card,
			Yape:         m.Yape,
			Plin:         m.Plin,
			BankDeposit:  m.BankDeposit,
			BankTransfer: m.BankTransfer,
			Other:        m.Other,
		}.Rounded(),
		TotalPaid:   valueobject.RoundAmount(m.TotalPaid),
		Observation: m.Observation,
		CreatedAt:   m.CreatedAt,
	}
}

// PaymentModelFromDomain creates a persistence model for a payment of a document
func PaymentModelFromDomain(documentID uuid.UUID, p *installment.Payment) *PaymentModel {
	return &PaymentModel{
		ID:             p.ID,
		ObligationID:   p.ObligationID,
		DocumentID:     documentID,
		SequenceNumber: p.SequenceNumber,
		PaymentDate:    p.PaymentDate,
		Cash:           p.Amounts.Cash,
		Card:           p.Amounts.Card,
		Yape:           p.Amounts.Yape,
		Plin:           p.Amounts.Plin,
		BankDeposit:    p.Amounts.BankDeposit,
		BankTransfer:   p.Amounts.BankTransfer,
		Other:          p.Amounts.Other,
		TotalPaid:      p.TotalPaid,
		Observation:    p.Observation,
		CreatedAt:      p.CreatedAt,
	}
}

// AllModels returns every model the schema is built from, in dependency order
func AllModels() []any {
	return []any{
		&ObligationModel{},
		&PaymentModel{},
		&shared.OutboxEntry{},
	}
}
