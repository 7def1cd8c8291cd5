package valueobject

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the scale every stored and compared amount is rounded to.
// All supported currencies have a two-decimal minor unit.
const MinorUnitPlaces int32 = 2

// Epsilon is one minor unit. Two amounts closer than this are the same amount.
var Epsilon = decimal.New(1, -MinorUnitPlaces)

// RoundAmount rounds half away from zero to the minor unit
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// SumAmounts adds amounts exactly and rounds the result once
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	if len(amounts) == 0 {
		return decimal.Zero
	}
	return RoundAmount(decimal.Sum(amounts[0], amounts[1:]...))
}

// WithinEpsilon reports whether two amounts differ by less than one minor unit
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// IsEffectivelyZero reports whether an amount rounds to zero
func IsEffectivelyZero(d decimal.Decimal) bool {
	return RoundAmount(d).IsZero()
}

// FixedAmount renders an amount rounded and padded to the minor unit, "12.5" -> "12.50"
func FixedAmount(d decimal.Decimal) string {
	return d.StringFixed(MinorUnitPlaces)
}

// Money is an amount in a currency. It is immutable.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney pairs amount with currency. The currency must be a valid ISO code;
// whether it is supported is the caller's rule.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if _, ok := ParseCurrency(string(currency)); !ok {
		return Money{}, fmt.Errorf("invalid currency code %q", currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney is NewMoney for amounts known to be valid; it panics otherwise
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the amount as given, unrounded
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Rounded returns the amount rounded to the minor unit of the currency
func (m Money) Rounded() decimal.Decimal {
	return m.amount.Round(m.currency.MinorUnitPlaces())
}

// String renders the amount at the currency's minor unit followed by the ISO code, "250.00 PEN"
func (m Money) String() string {
	return m.Rounded().StringFixed(m.currency.MinorUnitPlaces()) + " " + m.currency.String()
}

// MarshalJSON writes {"amount":"250.00","currency":"PEN","symbol":"S/"}
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
		Symbol   string   `json:"symbol"`
	}{
		Amount:   m.Rounded().StringFixed(m.currency.MinorUnitPlaces()),
		Currency: m.currency,
		Symbol:   m.currency.Symbol(),
	})
}
