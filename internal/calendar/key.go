package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidDayKey is returned for strings that are not DD/MM grid keys.
var ErrInvalidDayKey = errors.New("invalid day key")

// DayKey identifies a grid row as "DD/MM". It carries no year, so the same key
// names one date in every year.
type DayKey string

// KeyOf returns the grid key for the calendar day of t.
func KeyOf(t time.Time) DayKey {
	return DayOf(t).Key()
}

// ParseDayKey validates s as a DD/MM key. Single-digit parts are zero padded.
func ParseDayKey(s string) (DayKey, error) {
	day, month, ok := splitKey(s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %q: month out of range", ErrInvalidDayKey, s)
	}
	// 2000 is a leap year, so 29/02 is accepted.
	if day < 1 || day > daysIn(time.Month(month), 2000) {
		return "", fmt.Errorf("%w: %q: day out of range", ErrInvalidDayKey, s)
	}
	return DayKey(fmt.Sprintf("%02d/%02d", day, month)), nil
}

// Valid reports whether k is a well-formed key.
func (k DayKey) Valid() bool {
	parsed, err := ParseDayKey(string(k))
	return err == nil && parsed == k
}

// DayOfMonth returns the day part of k, or 0 when k is malformed.
func (k DayKey) DayOfMonth() int {
	day, _, ok := splitKey(string(k))
	if !ok {
		return 0
	}
	return day
}

// Month returns the month part of k, or 0 when k is malformed.
func (k DayKey) Month() time.Month {
	_, month, ok := splitKey(string(k))
	if !ok {
		return 0
	}
	return time.Month(month)
}

// In returns the day named by k in the given year.
func (k DayKey) In(year int) Day {
	return NewDay(year, k.Month(), k.DayOfMonth())
}

func splitKey(s string) (int, int, bool) {
	sep := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			sep = i
			break
		}
	}
	if sep < 1 || sep > 2 || len(s)-sep-1 < 1 || len(s)-sep-1 > 2 {
		return 0, 0, false
	}
	day, err := strconv.Atoi(s[:sep])
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(s[sep+1:])
	if err != nil {
		return 0, 0, false
	}
	return day, month, true
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
