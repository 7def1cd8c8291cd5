package installment

import (
	"time"

	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Projection is the optimistic view of an obligation after a payment, shown
// until the store confirms it
type Projection struct {
	ObligationID  uuid.UUID       `json:"obligation_id"`
	PendingBefore decimal.Decimal `json:"pending_before"`
	PendingAfter  decimal.Decimal `json:"pending_after"`
	StatusAfter   Status          `json:"status_after"`
}

// Project computes the expected pending amount and status once a validated payment lands
func Project(o *Obligation, valid ValidPayment, today time.Time) Projection {
	after := valueobject.RoundAmount(o.PendingAmount.Sub(valid.Total))
	return Projection{
		ObligationID:  o.ID,
		PendingBefore: valueobject.RoundAmount(o.PendingAmount),
		PendingAfter:  after,
		StatusAfter:   classify(after, o.DueDate, today),
	}
}

// Drift is the difference between a projection and the refetched obligation
type Drift struct {
	Amount         decimal.Decimal `json:"amount"` // fetched pending minus projected pending
	Expected       Status          `json:"expected_status"`
	Actual         Status          `json:"actual_status"`
	StatusMismatch bool            `json:"status_mismatch"`
}

// Confirmed reports whether the refetched state matches the projection
func (d Drift) Confirmed() bool {
	return !d.StatusMismatch && valueobject.WithinEpsilon(d.Amount, decimal.Zero)
}

// ReconcileProjection compares a projection with the authoritative obligation
// fetched after the mutation. Status is compared on the derived value.
func ReconcileProjection(p Projection, fetched *Obligation, today time.Time) Drift {
	actual := Classify(fetched, today)
	return Drift{
		Amount:         valueobject.RoundAmount(fetched.PendingAmount).Sub(p.PendingAfter),
		Expected:       p.StatusAfter,
		Actual:         actual,
		StatusMismatch: actual != p.StatusAfter,
	}
}

// StatusReport contrasts the persisted status with the derived one.
// Derived is what gets displayed; Server is what gets persisted.
type StatusReport struct {
	Server  Status `json:"server_status"`
	Derived Status `json:"derived_status"`
	Agrees  bool   `json:"agrees"`
}

// CompareStatus derives the status and reports whether it agrees with the stored one
func CompareStatus(o *Obligation, today time.Time) StatusReport {
	derived := Classify(o, today)
	return StatusReport{
		Server:  o.Status,
		Derived: derived,
		Agrees:  derived == o.Status,
	}
}
