package installment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertBalanced(t *testing.T, o *Obligation) {
	t.Helper()
	sum := o.PaidAmount().Add(o.PendingAmount)
	assert.True(t, valueobject.WithinEpsilon(sum, o.PrincipalAmount),
		"paid %s + pending %s != principal %s", o.PaidAmount(), o.PendingAmount, o.PrincipalAmount)
	assert.NoError(t, o.CheckInvariants(testToday))
}

func eventTypes(o *Obligation) []string {
	types := make([]string, 0, len(o.GetDomainEvents()))
	for _, e := range o.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	return types
}

func TestNewObligation(t *testing.T) {
	t.Run("creates pending obligation", func(t *testing.T) {
		docID := uuid.New()
		o, err := NewObligation(docID, DocumentKindPurchase, 2, valueobject.MustMoney(dec("250.555"), valueobject.USD), daysFromToday(30), testToday)

		require.NoError(t, err)
		assert.Equal(t, docID, o.DocumentID)
		assert.Equal(t, 2, o.SequenceNumber)
		assert.True(t, o.PrincipalAmount.Equal(dec("250.56")))
		assert.True(t, o.PendingAmount.Equal(o.PrincipalAmount))
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, 1, o.GetVersion())
		assert.Equal(t, []string{EventTypeObligationCreated}, eventTypes(o))
		assertBalanced(t, o)
	})

	t.Run("past due date starts overdue", func(t *testing.T) {
		o := newTestObligation(t, "10", valueobject.PEN, -2)
		assert.Equal(t, StatusOverdue, o.Status)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		money := valueobject.MustMoney(dec("10"), valueobject.PEN)
		due := daysFromToday(5)

		_, err := NewObligation(uuid.Nil, DocumentKindSale, 1, money, due, testToday)
		assert.Error(t, err)

		_, err = NewObligation(uuid.New(), DocumentKind("LOAN"), 1, money, due, testToday)
		assert.Error(t, err)

		_, err = NewObligation(uuid.New(), DocumentKindSale, 0, money, due, testToday)
		assert.Error(t, err)

		_, err = NewObligation(uuid.New(), DocumentKindSale, 1, valueobject.MustMoney(dec("10"), "GBP"), due, testToday)
		assert.Error(t, err)

		_, err = NewObligation(uuid.New(), DocumentKindSale, 1, valueobject.MustMoney(dec("0.001"), valueobject.PEN), due, testToday)
		assert.Error(t, err)
	})
}

func TestObligation_RegisterPayment(t *testing.T) {
	t.Run("partial then full payment settles", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 5)

		p1, err := o.RegisterPayment(PaymentAmounts{Cash: dec("30"), Yape: dec("10")}, testToday, " first ", testToday)
		require.NoError(t, err)
		assert.Equal(t, 1, p1.SequenceNumber)
		assert.Equal(t, "first", p1.Observation)
		assert.True(t, o.PendingAmount.Equal(dec("60")))
		assert.Equal(t, StatusPending, o.Status)
		assertBalanced(t, o)

		_, err = o.RegisterPayment(PaymentAmounts{Card: dec("60")}, testToday, "", testToday)
		require.NoError(t, err)
		assert.True(t, o.PendingAmount.IsZero())
		assert.Equal(t, StatusPaid, o.Status)
		assertBalanced(t, o)

		assert.Equal(t, []string{
			EventTypePaymentRegistered,
			EventTypePaymentRegistered,
			EventTypeObligationSettled,
		}, eventTypes(o))
		assert.Equal(t, 3, o.GetVersion())
	})

	t.Run("overdue obligation can still be paid in full", func(t *testing.T) {
		o := newTestObligation(t, "45", valueobject.USD, -10)
		require.Equal(t, StatusOverdue, o.Status)

		_, err := o.RegisterPayment(PaymentAmounts{BankDeposit: dec("45")}, testToday, "", testToday)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, o.Status)
	})

	t.Run("rejected payment leaves obligation untouched", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 5)

		_, err := o.RegisterPayment(PaymentAmounts{Cash: dec("60"), Card: dec("50")}, testToday, "", testToday)

		var exceeds *ExceedsPendingError
		require.True(t, errors.As(err, &exceeds))
		assert.Empty(t, o.Payments)
		assert.True(t, o.PendingAmount.Equal(dec("100")))
		assert.Equal(t, 1, o.GetVersion())
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("observation length is capped", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 5)
		_, err := o.RegisterPayment(PaymentAmounts{Cash: dec("1")}, testToday, strings.Repeat("x", MaxObservationLength+1), testToday)
		assert.Error(t, err)
		assert.Empty(t, o.Payments)
	})

	t.Run("sub-cent buckets keep the payment total equal to its buckets", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 5)
		split := PaymentAmounts{Cash: dec("10.005"), Card: dec("5.005")}

		valid, err := Validate(o, split)
		require.NoError(t, err)

		p, err := o.RegisterPayment(split, testToday, "", testToday)
		require.NoError(t, err)
		assert.True(t, p.TotalPaid.Equal(dec("15.02")))
		assert.True(t, p.TotalPaid.Equal(p.Amounts.Sum()))
		assert.True(t, p.TotalPaid.Equal(valid.Total))
		assert.True(t, o.PendingAmount.Equal(valid.Remainder))
		assert.NoError(t, o.CheckInvariants(testToday))
	})

	t.Run("zero payment date defaults to today", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 5)
		p, err := o.RegisterPayment(PaymentAmounts{Cash: dec("1")}, time.Time{}, "", testToday)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-15", p.PaymentDate.Format(time.DateOnly))
	})
}

func TestObligation_RemovePayment(t *testing.T) {
	t.Run("reopens paid obligation to pending", func(t *testing.T) {
		o := newTestObligation(t, "80", valueobject.PEN, 2)
		p, err := o.RegisterPayment(PaymentAmounts{Cash: dec("80")}, testToday, "", testToday)
		require.NoError(t, err)
		require.Equal(t, StatusPaid, o.Status)
		o.ClearDomainEvents()

		removed, err := o.RemovePayment(p.ID, testToday)

		require.NoError(t, err)
		assert.Equal(t, p.ID, removed.ID)
		assert.True(t, o.PendingAmount.Equal(o.PrincipalAmount))
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, []string{EventTypePaymentRemoved, EventTypeObligationReopened}, eventTypes(o))
		assertBalanced(t, o)
	})

	t.Run("reopens paid obligation to overdue when past due", func(t *testing.T) {
		o := newTestObligation(t, "80", valueobject.PEN, -3)
		p, err := o.RegisterPayment(PaymentAmounts{Cash: dec("80")}, testToday, "", testToday)
		require.NoError(t, err)

		_, err = o.RemovePayment(p.ID, testToday)

		require.NoError(t, err)
		assert.Equal(t, StatusOverdue, o.Status)
		assert.True(t, o.PendingAmount.Equal(dec("80")))
	})

	t.Run("keeps remaining payments in order", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		p1, _ := o.RegisterPayment(PaymentAmounts{Cash: dec("10")}, testToday, "", testToday)
		p2, _ := o.RegisterPayment(PaymentAmounts{Cash: dec("20")}, testToday, "", testToday)
		p3, _ := o.RegisterPayment(PaymentAmounts{Cash: dec("30")}, testToday, "", testToday)

		_, err := o.RemovePayment(p2.ID, testToday)

		require.NoError(t, err)
		require.Len(t, o.Payments, 2)
		assert.Equal(t, p1.ID, o.Payments[0].ID)
		assert.Equal(t, p3.ID, o.Payments[1].ID)
		assert.True(t, o.PendingAmount.Equal(dec("60")))
		assert.Equal(t, 4, o.NextPaymentSequence())

		_, found := o.FindPayment(p2.ID)
		assert.False(t, found)
		kept, found := o.FindPayment(p3.ID)
		require.True(t, found)
		assert.Same(t, p3, kept)
	})

	t.Run("removing from an open obligation does not reopen it", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		p, err := o.RegisterPayment(PaymentAmounts{Yape: dec("25")}, testToday, "", testToday)
		require.NoError(t, err)
		o.ClearDomainEvents()

		_, err = o.RemovePayment(p.ID, testToday)
		require.NoError(t, err)
		assert.Equal(t, []string{EventTypePaymentRemoved}, eventTypes(o))
	})

	t.Run("unknown payment", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		_, err := o.RemovePayment(uuid.New(), testToday)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestObligation_CheckInvariants(t *testing.T) {
	rule := func(t *testing.T, err error) InvariantRule {
		t.Helper()
		var violation *InvariantViolationError
		require.True(t, errors.As(err, &violation), "expected invariant violation, got %v", err)
		return violation.Rule
	}

	t.Run("pending above principal", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		o.PendingAmount = dec("120")
		assert.Equal(t, RulePendingRange, rule(t, o.CheckInvariants(testToday)))
	})

	t.Run("balance drift", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		_, err := o.RegisterPayment(PaymentAmounts{Cash: dec("40")}, testToday, "", testToday)
		require.NoError(t, err)
		o.PendingAmount = dec("50")
		assert.Equal(t, RuleBalance, rule(t, o.CheckInvariants(testToday)))
	})

	t.Run("paid status with pending balance", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		o.Status = StatusPaid
		assert.Equal(t, RulePaidStatus, rule(t, o.CheckInvariants(testToday)))
	})

	t.Run("overdue status before due date", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 0)
		o.Status = StatusOverdue
		assert.Equal(t, RuleOverdueStatus, rule(t, o.CheckInvariants(testToday)))
	})

	t.Run("payment total out of sync with buckets", func(t *testing.T) {
		o := newTestObligation(t, "100", valueobject.PEN, 2)
		p, err := o.RegisterPayment(PaymentAmounts{Cash: dec("40")}, testToday, "", testToday)
		require.NoError(t, err)
		p.Amounts.Card = dec("5")
		assert.Equal(t, RulePaymentTotal, rule(t, o.CheckInvariants(testToday)))
	})

	t.Run("violation maps to domain error", func(t *testing.T) {
		de, ok := shared.AsDomainError(&InvariantViolationError{Rule: RuleBalance})
		require.True(t, ok)
		assert.Equal(t, CodeInvariantViolation, de.Code)
	})
}

func TestObligation_Recompute(t *testing.T) {
	o := newTestObligation(t, "100", valueobject.PEN, 1)
	_, err := o.RegisterPayment(PaymentAmounts{Cash: dec("100")}, testToday, "", testToday)
	require.NoError(t, err)

	o.PendingAmount = dec("100")
	o.Status = StatusPending
	o.Recompute(testToday)

	assert.True(t, o.PendingAmount.IsZero())
	assert.Equal(t, StatusPaid, o.Status)

	// a stale pending status flips to overdue once the due date passes
	o2 := newTestObligation(t, "100", valueobject.PEN, 1)
	o2.Recompute(testToday.AddDate(0, 0, 2))
	assert.Equal(t, StatusOverdue, o2.Status)
}

func TestObligation_Reclassify(t *testing.T) {
	o := newTestObligation(t, "100", valueobject.PEN, 1)
	version := o.GetVersion()

	assert.False(t, o.Reclassify(testToday))
	assert.Equal(t, version, o.GetVersion())

	assert.True(t, o.Reclassify(testToday.AddDate(0, 0, 2)))
	assert.Equal(t, StatusOverdue, o.Status)
	assert.Equal(t, version+1, o.GetVersion())
	assert.True(t, o.PendingAmount.Equal(dec("100")))
}
