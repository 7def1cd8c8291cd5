package installment

import (
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ValidPayment is the accepted outcome of Validate
type ValidPayment struct {
	Total     decimal.Decimal      `json:"total"`
	Remainder decimal.Decimal      `json:"remainder"` // pending after this payment
	Currency  valueobject.Currency `json:"currency"`
}

// Validate checks a candidate payment split against the obligation's pending amount.
// It never mutates the obligation and returns the same result for the same inputs.
//
// Errors, in the order they are checked:
//   - *NegativeAmountError when any bucket is negative
//   - *ZeroAmountError when the rounded total is zero
//   - *ExceedsPendingError when the rounded total is greater than the rounded pending amount
func Validate(o *Obligation, amounts PaymentAmounts) (ValidPayment, error) {
	if o == nil {
		return ValidPayment{}, shared.ErrInvalidInput
	}
	return ValidateAgainst(o.PendingAmount, o.Currency, amounts)
}

// ValidateAgainst is Validate over a bare pending amount, for callers holding only a snapshot figure
func ValidateAgainst(pending decimal.Decimal, currency valueobject.Currency, amounts PaymentAmounts) (ValidPayment, error) {
	if method, amount, ok := amounts.FirstNegative(); ok {
		return ValidPayment{}, &NegativeAmountError{Method: method, Amount: amount}
	}

	total := amounts.Total()
	if total.IsZero() {
		return ValidPayment{}, &ZeroAmountError{}
	}

	pending = valueobject.RoundAmount(pending)
	if total.GreaterThan(pending) {
		return ValidPayment{}, &ExceedsPendingError{Total: total, Pending: pending}
	}

	return ValidPayment{
		Total:     total,
		Remainder: pending.Sub(total),
		Currency:  currency,
	}, nil
}
