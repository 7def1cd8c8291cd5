package installment

import (
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Method identifies a payment-method bucket
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodYape         Method = "YAPE" // wallet transfer
	MethodPlin         Method = "PLIN" // wallet transfer
	MethodBankDeposit  Method = "BANK_DEPOSIT"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodOther        Method = "OTHER"
)

// Methods returns every bucket in display order
func Methods() []Method {
	return []Method{
		MethodCash,
		MethodCard,
		MethodYape,
		MethodPlin,
		MethodBankDeposit,
		MethodBankTransfer,
		MethodOther,
	}
}

// IsValid checks if the method is one of the known buckets
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodYape, MethodPlin,
		MethodBankDeposit, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

// String returns the string representation of Method
func (m Method) String() string {
	return string(m)
}

// PaymentAmounts is the split of one payment across the fixed method buckets.
// A zero-value field means the method was not used.
type PaymentAmounts struct {
	Cash         decimal.Decimal `json:"cash"`
	Card         decimal.Decimal `json:"card"`
	Yape         decimal.Decimal `json:"yape"`
	Plin         decimal.Decimal `json:"plin"`
	BankDeposit  decimal.Decimal `json:"bank_deposit"`
	BankTransfer decimal.Decimal `json:"bank_transfer"`
	Other        decimal.Decimal `json:"other"`
}

// Get returns the amount of one bucket
func (a PaymentAmounts) Get(m Method) decimal.Decimal {
	switch m {
	case MethodCash:
		return a.Cash
	case MethodCard:
		return a.Card
	case MethodYape:
		return a.Yape
	case MethodPlin:
		return a.Plin
	case MethodBankDeposit:
		return a.BankDeposit
	case MethodBankTransfer:
		return a.BankTransfer
	case MethodOther:
		return a.Other
	}
	return decimal.Zero
}

// Each calls fn for every bucket in display order
func (a PaymentAmounts) Each(fn func(m Method, amount decimal.Decimal)) {
	for _, m := range Methods() {
		fn(m, a.Get(m))
	}
}

// Sum returns the raw, unrounded sum of all buckets
func (a PaymentAmounts) Sum() decimal.Decimal {
	sum := decimal.Zero
	a.Each(func(_ Method, amount decimal.Decimal) {
		sum = sum.Add(amount)
	})
	return sum
}

// Total returns the sum of the buckets, each rounded to the minor unit first,
// so it always equals what Rounded stores
func (a PaymentAmounts) Total() decimal.Decimal {
	return a.Rounded().Sum()
}

// FirstNegative returns the first bucket holding a negative amount
func (a PaymentAmounts) FirstNegative() (Method, decimal.Decimal, bool) {
	for _, m := range Methods() {
		if amount := a.Get(m); amount.IsNegative() {
			return m, amount, true
		}
	}
	return "", decimal.Zero, false
}

// Rounded returns a copy with every bucket rounded to the minor unit
func (a PaymentAmounts) Rounded() PaymentAmounts {
	return PaymentAmounts{
		Cash:         valueobject.RoundAmount(a.Cash),
		Card:         valueobject.RoundAmount(a.Card),
		Yape:         valueobject.RoundAmount(a.Yape),
		Plin:         valueobject.RoundAmount(a.Plin),
		BankDeposit:  valueobject.RoundAmount(a.BankDeposit),
		BankTransfer: valueobject.RoundAmount(a.BankTransfer),
		Other:        valueobject.RoundAmount(a.Other),
	}
}

// UsedMethods lists the buckets holding a positive amount
func (a PaymentAmounts) UsedMethods() []Method {
	used := make([]Method, 0, 2)
	a.Each(func(m Method, amount decimal.Decimal) {
		if amount.IsPositive() {
			used = append(used, m)
		}
	})
	return used
}
