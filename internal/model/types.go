// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
)

// Status is the mark of one grid cell.
type Status string

// Cell states.
const (
	StatusBlank Status = "blank"
	StatusTick  Status = "tick"
	StatusCross Status = "cross"
)

// ParseStatus parses a status case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusBlank:
		return StatusBlank, nil
	case StatusTick:
		return StatusTick, nil
	case StatusCross:
		return StatusCross, nil
	default:
		return "", fmt.Errorf("invalid status %q", s)
	}
}

// Next returns the status after a click: blank, tick, cross, tick.
func (s Status) Next() Status {
	if s == StatusTick {
		return StatusCross
	}
	return StatusTick
}

// Symbol returns the glyph used by the terminal grid.
func (s Status) Symbol() string {
	switch s {
	case StatusTick:
		return "✓"
	case StatusCross:
		return "✗"
	default:
		return "·"
	}
}

// User is an authenticated account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	GoogleID  string    `json:"googleId,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rule is one tracked habit.
type Rule struct {
	ID          string    `json:"_id"`
	UserID      string    `json:"userId"`
	Number      int       `json:"number"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatedDay returns the calendar day the rule was created on, in loc.
func (r Rule) CreatedDay(loc *time.Location) calendar.Day {
	return calendar.DayOf(r.CreatedAt.In(loc))
}

// GridEntry is the mark of one rule on one day.
type GridEntry struct {
	UserID    string          `json:"userId"`
	Date      calendar.DayKey `json:"date"`
	Rule      int             `json:"rule"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Text is a free-form journal note.
type Text struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// RuleProgress is the completion of one rule over its own date range.
type RuleProgress struct {
	RuleNumber     int     `json:"ruleNumber"`
	RuleName       string  `json:"ruleName"`
	CompletionRate float64 `json:"completionRate"`
	TotalTicks     int     `json:"totalTicks"`
	TotalDays      int     `json:"totalDays"`
	PossibleCells  int     `json:"possibleCells"`
}

// Statistics summarizes a user's grid over a period.
type Statistics struct {
	TotalRules         int             `json:"totalRules"`
	TotalDays          int             `json:"totalDays"`
	CompletionRate     float64         `json:"completionRate"`
	StreakCount        int             `json:"streakCount"`
	Period             calendar.Period `json:"period"`
	RuleProgress       []RuleProgress  `json:"ruleProgress"`
	TotalTicks         int             `json:"totalTicks"`
	TotalPossibleTicks int             `json:"totalPossibleTicks"`
}

// DayCompletion is the completion of all in-scope rules on one day.
type DayCompletion struct {
	Day      calendar.Day
	Ticks    int
	Possible int
}

// Rate returns the completion percentage of the day.
func (d DayCompletion) Rate() float64 {
	if d.Possible == 0 {
		return 0
	}
	return float64(d.Ticks) / float64(d.Possible) * 100
}

// Complete reports whether every in-scope rule was ticked.
func (d DayCompletion) Complete() bool {
	return d.Possible > 0 && d.Ticks == d.Possible
}

// UserCellCounts summarizes one user's grid for administrators.
type UserCellCounts struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Ticks       int    `json:"tickCount"`
	Crosses     int    `json:"crossCount"`
	Blanks      int    `json:"blankCount"`
	TotalCells  int    `json:"totalCells"`
	ActiveRules int    `json:"activeRules"`
}

// OwnedRule is a rule with its owner's email, used by all-user exports.
type OwnedRule struct {
	Email string `json:"email"`
	Rule
}

// OwnedGridEntry is a grid entry with its owner's email, used by all-user exports.
type OwnedGridEntry struct {
	Email string `json:"email"`
	GridEntry
}

// TrackerConfig defines the local grid and stats settings.
type TrackerConfig struct {
	UserEmail       string
	Period          calendar.Period
	Days            int
	TickProbability float64
}

// StatsConfig defines options for stats output.
type StatsConfig struct {
	UserEmail   string
	Period      calendar.Period
	CurveWindow int
	WeakTop     int
}
