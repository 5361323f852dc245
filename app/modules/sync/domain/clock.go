package syncdomain

import "time"

// Clock abstracts time for reconciliation timestamps and seasonal windows.
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// SeasonWindow is an inclusive month range. A window whose start month is after
// its end month wraps around the turn of the year.
type SeasonWindow struct {
	StartMonth time.Month
	EndMonth   time.Month
}

// Contains reports whether t falls inside the window.
func (w SeasonWindow) Contains(t time.Time) bool {
	m := t.Month()
	if w.StartMonth <= w.EndMonth {
		return m >= w.StartMonth && m <= w.EndMonth
	}
	return m >= w.StartMonth || m <= w.EndMonth
}
