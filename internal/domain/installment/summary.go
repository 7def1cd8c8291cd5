package installment

import (
	"sort"
	"time"

	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultDueSoonHorizonDays is how far ahead an obligation counts as due soon
const DefaultDueSoonHorizonDays = 7

// Summary holds the portfolio figures of one currency
type Summary struct {
	Currency     valueobject.Currency `json:"currency"`
	TotalPending decimal.Decimal      `json:"total_pending"`
	TotalOverdue decimal.Decimal      `json:"total_overdue"`
	TotalDueSoon decimal.Decimal      `json:"total_due_soon"`
	CountPending int                  `json:"count_pending"`
	CountOverdue int                  `json:"count_overdue"`
	CountDueSoon int                  `json:"count_due_soon"`
}

// Summaries maps each currency present in the input to its figures
type Summaries map[valueobject.Currency]Summary

// Currencies returns the currencies in sorted order
func (s Summaries) Currencies() []valueobject.Currency {
	keys := make([]valueobject.Currency, 0, len(s))
	for c := range s {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type summaryOptions struct {
	horizonDays     int
	defaultCurrency valueobject.Currency
}

// SummaryOption configures Summarize
type SummaryOption func(*summaryOptions)

// WithDueSoonHorizon sets the due-soon horizon in days. Negative values are treated as zero.
func WithDueSoonHorizon(days int) SummaryOption {
	return func(o *summaryOptions) {
		if days < 0 {
			days = 0
		}
		o.horizonDays = days
	}
}

// WithDefaultCurrency sets the currency used for obligations with a missing or unknown currency
func WithDefaultCurrency(c valueobject.Currency) SummaryOption {
	return func(o *summaryOptions) {
		if c.IsSupported() {
			o.defaultCurrency = c
		}
	}
}

// Summarize folds obligations into per-currency totals.
//
// Only obligations with a pending balance add to the pending figures. Overdue
// and due-soon are mutually exclusive: due soon means due between today and
// today plus the horizon, both ends inclusive.
func Summarize(obligations []*Obligation, today time.Time, opts ...SummaryOption) Summaries {
	options := summaryOptions{
		horizonDays:     DefaultDueSoonHorizonDays,
		defaultCurrency: valueobject.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(&options)
	}

	result := make(Summaries)
	for _, o := range obligations {
		if o == nil {
			continue
		}

		currency := valueobject.CurrencyOrDefault(o.Currency.String(), options.defaultCurrency)
		s, ok := result[currency]
		if !ok {
			s = Summary{
				Currency:     currency,
				TotalPending: decimal.Zero,
				TotalOverdue: decimal.Zero,
				TotalDueSoon: decimal.Zero,
			}
		}

		pending := valueobject.RoundAmount(o.PendingAmount)
		if pending.IsPositive() {
			s.TotalPending = s.TotalPending.Add(pending)
			s.CountPending++

			if Classify(o, today) == StatusOverdue {
				s.TotalOverdue = s.TotalOverdue.Add(pending)
				s.CountOverdue++
			} else if days := DaysUntilDue(o, today); days >= 0 && days <= options.horizonDays {
				s.TotalDueSoon = s.TotalDueSoon.Add(pending)
				s.CountDueSoon++
			}
		}

		result[currency] = s
	}
	return result
}
