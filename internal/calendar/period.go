package calendar

import "strings"

// Period is a named look-back window for statistics.
type Period string

// Supported periods.
const (
	PeriodWeek     Period = "1week"
	PeriodMonth    Period = "1month"
	PeriodQuarter  Period = "3months"
	PeriodHalfYear Period = "6months"
	PeriodYear     Period = "1year"
	PeriodForever  Period = "forever"
)

var periods = []Period{PeriodWeek, PeriodMonth, PeriodQuarter, PeriodHalfYear, PeriodYear, PeriodForever}

// Periods lists the supported periods from shortest to longest.
func Periods() []Period {
	return append([]Period(nil), periods...)
}

// ParsePeriod maps s to a supported period. Anything unrecognized means forever.
func ParsePeriod(s string) Period {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range periods {
		if string(p) == s {
			return p
		}
	}
	return PeriodForever
}

// Start returns the first day of the window ending at today. The boolean is false
// for forever, which has no lower bound.
func (p Period) Start(today Day) (Day, bool) {
	switch p {
	case PeriodWeek:
		return today.AddDays(-7), true
	case PeriodMonth:
		return today.AddMonths(-1), true
	case PeriodQuarter:
		return today.AddMonths(-3), true
	case PeriodHalfYear:
		return today.AddMonths(-6), true
	case PeriodYear:
		return today.AddYears(-1), true
	default:
		return Day{}, false
	}
}

// Label returns a human readable name.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "Last week"
	case PeriodMonth:
		return "1 month"
	case PeriodQuarter:
		return "3 months"
	case PeriodHalfYear:
		return "6 months"
	case PeriodYear:
		return "1 year"
	default:
		return "Forever"
	}
}

// Next returns the following period, wrapping after forever.
func (p Period) Next() Period {
	return p.shift(1)
}

// Prev returns the preceding period, wrapping before 1week.
func (p Period) Prev() Period {
	return p.shift(-1)
}

func (p Period) shift(delta int) Period {
	idx := len(periods) - 1
	for i, candidate := range periods {
		if candidate == p {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(periods)) % len(periods)
	return periods[idx]
}
