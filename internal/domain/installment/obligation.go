package installment

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeObligation is the aggregate type recorded on obligation events
const AggregateTypeObligation = "Obligation"

// MaxObservationLength caps the free-text note on a payment
const MaxObservationLength = 500

// Payment is one registered transaction against exactly one obligation.
// Payments are immutable once created; they can only be removed.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	ObligationID   uuid.UUID       `json:"obligation_id"`
	SequenceNumber int             `json:"sequence_number"` // document-scoped
	PaymentDate    time.Time       `json:"payment_date"`
	Amounts        PaymentAmounts  `json:"amounts"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Observation    string          `json:"observation,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Obligation is an installment of a credit sale or credit purchase
type Obligation struct {
	shared.BaseAggregateRoot
	DocumentID      uuid.UUID
	DocumentKind    DocumentKind
	SequenceNumber  int
	PrincipalAmount decimal.Decimal // fixed at creation
	PendingAmount   decimal.Decimal
	DueDate         time.Time // calendar date, time of day is ignored
	Currency        valueobject.Currency
	Status          Status // value as persisted
	Payments        []*Payment
}

// NewObligation creates an installment with nothing paid yet
func NewObligation(
	documentID uuid.UUID,
	kind DocumentKind,
	sequenceNumber int,
	principal valueobject.Money,
	dueDate time.Time,
	today time.Time,
) (*Obligation, error) {
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_KIND", "Document kind must be SALE or PURCHASE")
	}
	if sequenceNumber < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "Installment sequence number must start at 1")
	}
	if !principal.Currency().IsSupported() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Currency %s is not supported", principal.Currency()))
	}
	amount := valueobject.RoundAmount(principal.Amount())
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Principal amount must be positive, got %s", principal))
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	o := &Obligation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentID:        documentID,
		DocumentKind:      kind,
		SequenceNumber:    sequenceNumber,
		PrincipalAmount:   amount,
		PendingAmount:     amount,
		DueDate:           DateOf(dueDate, time.UTC),
		Currency:          principal.Currency(),
		Payments:          make([]*Payment, 0),
	}
	o.Status = Classify(o, today)

	o.AddDomainEvent(NewObligationCreatedEvent(o))
	return o, nil
}

// PaidAmount returns the sum of all registered payments
func (o *Obligation) PaidAmount() decimal.Decimal {
	totals := make([]decimal.Decimal, len(o.Payments))
	for i, p := range o.Payments {
		totals[i] = p.TotalPaid
	}
	return valueobject.SumAmounts(totals...)
}

// FindPayment returns the payment with the given ID
func (o *Obligation) FindPayment(paymentID uuid.UUID) (*Payment, bool) {
	for _, p := range o.Payments {
		if p.ID == paymentID {
			return p, true
		}
	}
	return nil, false
}

// NextPaymentSequence returns the next payment number within this obligation.
// Stores that number payments per document overwrite it.
func (o *Obligation) NextPaymentSequence() int {
	next := 1
	for _, p := range o.Payments {
		if p.SequenceNumber >= next {
			next = p.SequenceNumber + 1
		}
	}
	return next
}

// RegisterPayment validates and appends a payment, then recomputes the pending
// amount and status. The obligation is left untouched when validation fails.
func (o *Obligation) RegisterPayment(amounts PaymentAmounts, paymentDate time.Time, observation string, today time.Time) (*Payment, error) {
	valid, err := Validate(o, amounts)
	if err != nil {
		return nil, err
	}

	observation = strings.TrimSpace(observation)
	if len(observation) > MaxObservationLength {
		return nil, shared.NewDomainError("INVALID_OBSERVATION", fmt.Sprintf("Observation cannot exceed %d characters", MaxObservationLength))
	}
	if paymentDate.IsZero() {
		paymentDate = today
	}

	payment := &Payment{
		ID:             uuid.New(),
		ObligationID:   o.ID,
		SequenceNumber: o.NextPaymentSequence(),
		PaymentDate:    DateOf(paymentDate, time.UTC),
		Amounts:        amounts.Rounded(),
		TotalPaid:      valid.Total,
		Observation:    observation,
		CreatedAt:      time.Now(),
	}

	previousStatus := o.Status
	o.Payments = append(o.Payments, payment)
	o.Recompute(today)
	o.MarkChanged(time.Now())

	o.AddDomainEvent(NewPaymentRegisteredEvent(o, payment, previousStatus))
	if o.Status == StatusPaid {
		o.AddDomainEvent(NewObligationSettledEvent(o))
	}
	return payment, nil
}

// RemovePayment deletes a payment and restores its amount to the pending balance.
// A PAGADO obligation reopens to PENDIENTE or VENCIDO depending on its due date.
func (o *Obligation) RemovePayment(paymentID uuid.UUID, today time.Time) (*Payment, error) {
	removed, ok := o.FindPayment(paymentID)
	if !ok {
		return nil, ErrPaymentNotFound
	}

	previousStatus := o.Status
	o.Payments = slices.DeleteFunc(slices.Clone(o.Payments), func(p *Payment) bool {
		return p.ID == paymentID
	})
	o.Recompute(today)
	o.MarkChanged(time.Now())

	o.AddDomainEvent(NewPaymentRemovedEvent(o, removed, previousStatus))
	if !previousStatus.IsOpen() && o.Status.IsOpen() {
		o.AddDomainEvent(NewObligationReopenedEvent(o))
	}
	return removed, nil
}

// Recompute rebuilds the pending amount from the payments and re-derives the status
func (o *Obligation) Recompute(today time.Time) {
	o.PendingAmount = valueobject.RoundAmount(o.PrincipalAmount.Sub(o.PaidAmount()))
	o.Status = Classify(o, today)
}

// Reclassify re-derives the status for today and reports whether it changed.
// A changed obligation gets a new version so the store can persist it.
func (o *Obligation) Reclassify(today time.Time) bool {
	derived := Classify(o, today)
	if derived == o.Status {
		return false
	}
	o.Status = derived
	o.MarkChanged(time.Now())
	return true
}

// CheckInvariants verifies the aggregate's consistency rules against its stored status
func (o *Obligation) CheckInvariants(today time.Time) error {
	violation := func(rule InvariantRule, format string, args ...any) error {
		return &InvariantViolationError{ObligationID: o.ID, Rule: rule, Detail: fmt.Sprintf(format, args...)}
	}

	for _, p := range o.Payments {
		if _, _, negative := p.Amounts.FirstNegative(); negative || !p.TotalPaid.IsPositive() {
			return violation(RulePaymentTotal, "payment %s has total %s", p.ID, p.TotalPaid)
		}
		if !valueobject.WithinEpsilon(p.TotalPaid, p.Amounts.Sum()) {
			return violation(RulePaymentTotal, "payment %s total %s differs from buckets %s", p.ID, p.TotalPaid, p.Amounts.Sum())
		}
	}

	if o.PendingAmount.IsNegative() || o.PendingAmount.GreaterThan(o.PrincipalAmount) {
		return violation(RulePendingRange, "pending %s outside [0, %s]", o.PendingAmount, o.PrincipalAmount)
	}

	paid := o.PaidAmount()
	if !valueobject.WithinEpsilon(paid.Add(o.PendingAmount), o.PrincipalAmount) {
		return violation(RuleBalance, "paid %s + pending %s != principal %s", paid, o.PendingAmount, o.PrincipalAmount)
	}

	nothingPending := valueobject.IsEffectivelyZero(o.PendingAmount)
	if nothingPending != (o.Status == StatusPaid) {
		return violation(RulePaidStatus, "status %s with pending %s", o.Status, o.PendingAmount)
	}

	if o.Status == StatusOverdue && (nothingPending || !isPastDue(o.DueDate, today)) {
		return violation(RuleOverdueStatus, "status %s with pending %s due %s", o.Status, o.PendingAmount, o.DueDate.Format(time.DateOnly))
	}

	return nil
}
