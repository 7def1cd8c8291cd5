package installment

import (
	"fmt"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error codes surfaced to API callers
const (
	CodeZeroAmount         = "ZERO_AMOUNT"
	CodeNegativeAmount     = "NEGATIVE_AMOUNT"
	CodeExceedsPending     = "EXCEEDS_PENDING"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
)

var (
	ErrObligationNotFound = shared.NewDomainError("OBLIGATION_NOT_FOUND", "Obligation not found")
	ErrPaymentNotFound    = shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
)

// ZeroAmountError rejects a payment with no positive bucket
type ZeroAmountError struct{}

func (e *ZeroAmountError) Error() string {
	return "payment amount must be greater than zero"
}

// DomainError maps the error onto its API code
func (e *ZeroAmountError) DomainError() *shared.DomainError {
	return shared.NewDomainError(CodeZeroAmount, "Enter an amount in at least one payment method")
}

// NegativeAmountError rejects a payment with a negative bucket
type NegativeAmountError struct {
	Method Method
	Amount decimal.Decimal
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("amount for %s cannot be negative: %s", e.Method, e.Amount.String())
}

// DomainError maps the error onto its API code
func (e *NegativeAmountError) DomainError() *shared.DomainError {
	return shared.NewDomainError(CodeNegativeAmount, e.Error()).WithDetails(map[string]any{
		"method": e.Method.String(),
		"amount": e.Amount.String(),
	})
}

// ExceedsPendingError rejects a payment larger than the remaining balance
type ExceedsPendingError struct {
	Total   decimal.Decimal
	Pending decimal.Decimal
}

// Excess returns how much the payment goes over the pending amount
func (e *ExceedsPendingError) Excess() decimal.Decimal {
	return e.Total.Sub(e.Pending)
}

func (e *ExceedsPendingError) Error() string {
	return fmt.Sprintf("payment total %s exceeds pending amount %s by %s",
		valueobject.FixedAmount(e.Total), valueobject.FixedAmount(e.Pending), valueobject.FixedAmount(e.Excess()))
}

// DomainError maps the error onto its API code
func (e *ExceedsPendingError) DomainError() *shared.DomainError {
	return shared.NewDomainError(CodeExceedsPending, e.Error()).WithDetails(map[string]any{
		"total":   valueobject.FixedAmount(e.Total),
		"pending": valueobject.FixedAmount(e.Pending),
		"excess":  valueobject.FixedAmount(e.Excess()),
	})
}

// InvariantRule names a consistency rule of the obligation aggregate
type InvariantRule string

const (
	RulePendingRange  InvariantRule = "pending_within_principal"
	RuleBalance       InvariantRule = "payments_plus_pending_equals_principal"
	RulePaidStatus    InvariantRule = "paid_iff_nothing_pending"
	RuleOverdueStatus InvariantRule = "overdue_requires_pending_past_due"
	RulePaymentTotal  InvariantRule = "payment_total_positive_sum_of_buckets"
)

// InvariantViolationError reports an obligation whose state breaks a consistency rule
type InvariantViolationError struct {
	ObligationID uuid.UUID
	Rule         InvariantRule
	Detail       string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("obligation %s violates %s: %s", e.ObligationID, e.Rule, e.Detail)
}

// DomainError maps the error onto its API code
func (e *InvariantViolationError) DomainError() *shared.DomainError {
	return shared.NewDomainError(CodeInvariantViolation, e.Error()).WithDetails(map[string]any{
		"rule": string(e.Rule),
	})
}
