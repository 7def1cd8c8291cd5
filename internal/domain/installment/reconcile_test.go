package installment

import (
	"testing"

	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectAndReconcile(t *testing.T) {
	o := newTestObligation(t, "100", valueobject.PEN, 3)
	valid, err := Validate(o, PaymentAmounts{Cash: dec("100")})
	require.NoError(t, err)

	projection := Project(o, valid, testToday)
	assert.True(t, projection.PendingBefore.Equal(dec("100")))
	assert.True(t, projection.PendingAfter.IsZero())
	assert.Equal(t, StatusPaid, projection.StatusAfter)

	t.Run("confirmed when the store agrees", func(t *testing.T) {
		fetched := newTestObligation(t, "100", valueobject.PEN, 3)
		_, err := fetched.RegisterPayment(PaymentAmounts{Cash: dec("100")}, testToday, "", testToday)
		require.NoError(t, err)

		drift := ReconcileProjection(projection, fetched, testToday)
		assert.True(t, drift.Confirmed())
		assert.False(t, drift.StatusMismatch)
	})

	t.Run("drift when another session paid first", func(t *testing.T) {
		fetched := newTestObligation(t, "100", valueobject.PEN, 3)
		_, err := fetched.RegisterPayment(PaymentAmounts{Cash: dec("40")}, testToday, "", testToday)
		require.NoError(t, err)

		drift := ReconcileProjection(projection, fetched, testToday)
		assert.False(t, drift.Confirmed())
		assert.True(t, drift.Amount.Equal(dec("60")))
		assert.Equal(t, StatusPaid, drift.Expected)
		assert.Equal(t, StatusPending, drift.Actual)
		assert.True(t, drift.StatusMismatch)
	})
}

func TestProject_PartialOnOverdue(t *testing.T) {
	o := newTestObligation(t, "100", valueobject.USD, -1)
	valid, err := Validate(o, PaymentAmounts{Card: dec("25")})
	require.NoError(t, err)

	projection := Project(o, valid, testToday)
	assert.True(t, projection.PendingAfter.Equal(dec("75")))
	assert.Equal(t, StatusOverdue, projection.StatusAfter)
}

func TestCompareStatus(t *testing.T) {
	t.Run("stale pending status on an overdue obligation", func(t *testing.T) {
		o := snapshotObligation("30", valueobject.PEN, -2)
		o.Status = StatusPending

		report := CompareStatus(o, testToday)
		assert.Equal(t, StatusPending, report.Server)
		assert.Equal(t, StatusOverdue, report.Derived)
		assert.False(t, report.Agrees)
	})

	t.Run("agreeing status", func(t *testing.T) {
		o := snapshotObligation("30", valueobject.PEN, 2)
		report := CompareStatus(o, testToday)
		assert.True(t, report.Agrees)
	})
}
