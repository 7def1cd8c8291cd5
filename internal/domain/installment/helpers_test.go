package installment

import (
	"testing"
	"time"

	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var lima = time.FixedZone("PET", -5*60*60)

// testToday is a fixed business date used across the package tests
var testToday = time.Date(2026, time.March, 15, 0, 0, 0, 0, lima)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func daysFromToday(days int) time.Time {
	return testToday.AddDate(0, 0, days)
}

func newTestObligation(t *testing.T, principal string, currency valueobject.Currency, dueInDays int) *Obligation {
	t.Helper()
	o, err := NewObligation(
		uuid.New(),
		DocumentKindSale,
		1,
		valueobject.MustMoney(dec(principal), currency),
		daysFromToday(dueInDays),
		testToday,
	)
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

// snapshotObligation builds an obligation as it would arrive from a fetch, with a
// pending amount and no local payment history
func snapshotObligation(pending string, currency valueobject.Currency, dueInDays int) *Obligation {
	return &Obligation{
		PrincipalAmount: dec(pending),
		PendingAmount:   dec(pending),
		DueDate:         daysFromToday(dueInDays),
		Currency:        currency,
		Status:          StatusPending,
	}
}
