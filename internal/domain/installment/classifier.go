package installment

import (
	"time"

	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Classify derives the display status from the pending amount and due date.
// Both dates are compared at midnight in today's location; an obligation due
// today is still PENDIENTE.
func Classify(o *Obligation, today time.Time) Status {
	return classify(o.PendingAmount, o.DueDate, today)
}

func classify(pending decimal.Decimal, due, today time.Time) Status {
	if !valueobject.RoundAmount(pending).IsPositive() {
		return StatusPaid
	}
	if isPastDue(due, today) {
		return StatusOverdue
	}
	return StatusPending
}

func isPastDue(due, today time.Time) bool {
	loc := today.Location()
	return DateOf(due, loc).Before(DateOf(today, loc))
}

// DaysOverdue returns how many days an overdue obligation is late, zero otherwise
func DaysOverdue(o *Obligation, today time.Time) int {
	if Classify(o, today) != StatusOverdue {
		return 0
	}
	return daysBetween(o.DueDate, today)
}

// DaysUntilDue returns the days left until the due date, negative once it has passed
func DaysUntilDue(o *Obligation, today time.Time) int {
	return daysBetween(today, o.DueDate)
}
