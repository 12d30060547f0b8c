// Package cadence provides the date arithmetic behind payment schedules:
// fixed periods-per-year tables, due date advancement for each supported
// payment frequency, and grace-period overdue classification.
package cadence

import "time"

type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// DefaultGracePeriodDays is how many days a pending payment may sit past its
// due date before it is classified overdue.
const DefaultGracePeriodDays = 3

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// PeriodsPerYear is a fixed table, no calendar lookups. Unknown frequencies
// fall back to monthly; callers validate frequency before computing.
func PeriodsPerYear(f Frequency) int {
	switch f {
	case Weekly:
		return 52
	case Biweekly:
		return 26
	default:
		return 12
	}
}

// Advance returns the next due date after t for the given frequency.
// Weekly and biweekly are plain calendar-day offsets. Monthly preserves the
// day of month; when the target month is shorter the day is clamped to its
// last day (2024-01-31 advances to 2024-02-29, never 2024-03-02).
func Advance(t time.Time, f Frequency) time.Time {
	switch f {
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Biweekly:
		return t.AddDate(0, 0, 14)
	default:
		return addMonthClamped(t)
	}
}

// FirstPaymentDate is the first due date of a schedule starting at start.
func FirstPaymentDate(start time.Time, f Frequency) time.Time {
	return Advance(start, f)
}

// IsOverdue reports whether a due date has passed its grace period as of now.
// It is a pure function of the supplied clock; overdue is never persisted.
func IsOverdue(dueDate time.Time, gracePeriodDays int, now time.Time) bool {
	return now.After(dueDate.AddDate(0, 0, gracePeriodDays))
}

// SameDay reports whether two instants fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	if last := daysIn(y, m+1); d > last {
		d = last
	}
	h, min, sec := t.Clock()
	return time.Date(y, m+1, d, h, min, sec, t.Nanosecond(), t.Location())
}

// daysIn relies on time.Date normalizing day zero of the following month to
// the last day of the requested one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
