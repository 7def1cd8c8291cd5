package installment

import "time"

// Clock supplies the business date. Domain functions never read wall-clock time themselves.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the current time in a fixed business location
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock creates a clock for the given location, UTC when nil
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{Location: loc}
}

// Today returns midnight of the current date in the clock's location
func (c SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc), loc)
}

// FixedClock always returns the same date
type FixedClock struct {
	Date time.Time
}

// Today returns the fixed date normalized to midnight
func (c FixedClock) Today() time.Time {
	return DateOf(c.Date, c.Date.Location())
}

// DateOf returns midnight of t's calendar date in loc.
// The year, month and day are taken from t as written, so a due date stored at
// UTC midnight keeps its calendar day in any business location.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from one date to another, ignoring time of day and DST
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
