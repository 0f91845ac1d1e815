// Package calendar provides day-granular dates, grid day keys and period windows.
package calendar

import (
	"fmt"
	"time"
)

// Day is a calendar date without a time of day or location.
type Day struct {
	year  int
	month time.Month
	day   int
}

// NewDay builds a Day, normalizing out-of-range values the way time.Date does.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Year returns the year of d.
func (d Day) Year() int { return d.year }

// Month returns the month of d.
func (d Day) Month() time.Month { return d.month }

// DayOfMonth returns the day of the month of d.
func (d Day) DayOfMonth() int { return d.day }

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d == Day{} }

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

// AddMonths returns d shifted by n months. Overflowing days roll into the next month.
func (d Day) AddMonths(n int) Day {
	return DayOf(d.Time().AddDate(0, n, 0))
}

// AddYears returns d shifted by n years.
func (d Day) AddYears(n int) Day {
	return DayOf(d.Time().AddDate(n, 0, 0))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Day) Compare(o Day) int {
	switch {
	case d.year != o.year:
		return cmpInt(d.year, o.year)
	case d.month != o.month:
		return cmpInt(int(d.month), int(o.month))
	default:
		return cmpInt(d.day, o.day)
	}
}

// Before reports whether d is strictly before o.
func (d Day) Before(o Day) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly after o.
func (d Day) After(o Day) bool { return d.Compare(o) > 0 }

// Key returns the year-less grid key of d.
func (d Day) Key() DayKey {
	return DayKey(fmt.Sprintf("%02d/%02d", d.day, int(d.month)))
}

// String formats d as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// Latest returns the later of a and b.
func Latest(a, b Day) Day {
	if a.After(b) {
		return a
	}
	return b
}

// Range enumerates every day from from to to inclusive. It is empty when from is after to.
func Range(from, to Day) []Day {
	if from.After(to) {
		return nil
	}
	days := make([]Day, 0, int(to.Time().Sub(from.Time()).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// LastDays returns the n days ending at today, newest first.
func LastDays(today Day, n int) []Day {
	if n <= 0 {
		return nil
	}
	days := make([]Day, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDays(-i)
	}
	return days
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
