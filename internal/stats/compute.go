package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
)

type cellKey struct {
	date calendar.DayKey
	rule int
}

type scopedRule struct {
	rule    model.Rule
	created calendar.Day
}

// scope holds the active rules and ticks of one user over the window
// from the oldest active rule (or the period start, if later) to today.
type scope struct {
	rules       []scopedRule
	ticks       map[cellKey]struct{}
	from        calendar.Day
	today       calendar.Day
	periodStart calendar.Day
	bounded     bool
}

func newScope(rules []model.Rule, entries []model.GridEntry, period calendar.Period, now time.Time) (scope, bool) {
	loc := now.Location()
	sc := scope{
		ticks: map[cellKey]struct{}{},
		today: calendar.DayOf(now),
	}
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		sc.rules = append(sc.rules, scopedRule{rule: rule, created: rule.CreatedDay(loc)})
	}
	if len(sc.rules) == 0 {
		return scope{}, false
	}
	sort.SliceStable(sc.rules, func(i, j int) bool {
		return sc.rules[i].rule.Number < sc.rules[j].rule.Number
	})
	for _, entry := range entries {
		if entry.Status == model.StatusTick {
			sc.ticks[cellKey{date: entry.Date, rule: entry.Rule}] = struct{}{}
		}
	}

	oldest := sc.rules[0].created
	for _, r := range sc.rules[1:] {
		if r.created.Before(oldest) {
			oldest = r.created
		}
	}
	sc.from = oldest
	sc.periodStart, sc.bounded = period.Start(sc.today)
	if sc.bounded {
		sc.from = calendar.Latest(oldest, sc.periodStart)
	}
	return sc, true
}

func (sc scope) ticked(day calendar.Day, number int) bool {
	_, ok := sc.ticks[cellKey{date: day.Key(), rule: number}]
	return ok
}

func (sc scope) days() []calendar.Day {
	return calendar.Range(sc.from, sc.today)
}

func (sc scope) completion(day calendar.Day) model.DayCompletion {
	dc := model.DayCompletion{Day: day}
	for _, r := range sc.rules {
		if r.created.After(day) {
			continue
		}
		dc.Possible++
		if sc.ticked(day, r.rule.Number) {
			dc.Ticks++
		}
	}
	return dc
}

func (sc scope) ruleProgress(r scopedRule) model.RuleProgress {
	from := r.created
	if sc.bounded {
		from = calendar.Latest(from, sc.periodStart)
	}
	days := calendar.Range(from, sc.today)
	rp := model.RuleProgress{
		RuleNumber:    r.rule.Number,
		RuleName:      r.rule.Name,
		TotalDays:     len(days),
		PossibleCells: len(days),
	}
	for _, day := range days {
		if sc.ticked(day, r.rule.Number) {
			rp.TotalTicks++
		}
	}
	rp.CompletionRate = percent(rp.TotalTicks, rp.PossibleCells)
	return rp
}

// Compute derives the statistics of a user's grid for a period ending at now.
// Only active rules count, and a rule counts toward a day only from the
// calendar day it was created on. Unknown periods mean forever.
func Compute(rules []model.Rule, entries []model.GridEntry, period calendar.Period, now time.Time) model.Statistics {
	period = calendar.ParsePeriod(string(period))
	result := model.Statistics{
		Period:       period,
		RuleProgress: []model.RuleProgress{},
	}
	sc, ok := newScope(rules, entries, period, now)
	if !ok {
		return result
	}

	daily := sc.daily()
	result.TotalRules = len(sc.rules)
	result.TotalDays = len(daily)
	for _, dc := range daily {
		result.TotalTicks += dc.Ticks
		result.TotalPossibleTicks += dc.Possible
	}
	result.CompletionRate = percent(result.TotalTicks, result.TotalPossibleTicks)
	result.StreakCount = CurrentStreak(daily)
	for _, r := range sc.rules {
		result.RuleProgress = append(result.RuleProgress, sc.ruleProgress(r))
	}
	return result
}

// Daily returns the completion of every day in the statistics window, oldest first.
func Daily(rules []model.Rule, entries []model.GridEntry, period calendar.Period, now time.Time) []model.DayCompletion {
	sc, ok := newScope(rules, entries, calendar.ParsePeriod(string(period)), now)
	if !ok {
		return nil
	}
	return sc.daily()
}

func (sc scope) daily() []model.DayCompletion {
	days := sc.days()
	out := make([]model.DayCompletion, 0, len(days))
	for _, day := range days {
		out = append(out, sc.completion(day))
	}
	return out
}

// CurrentStreak counts the complete days at the end of daily, which is ordered
// oldest first. An incomplete last day means no streak.
func CurrentStreak(daily []model.DayCompletion) int {
	streak := 0
	for i := len(daily) - 1; i >= 0; i-- {
		if !daily[i].Complete() {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of complete days in daily.
func LongestStreak(daily []model.DayCompletion) int {
	best, run := 0, 0
	for _, dc := range daily {
		if !dc.Complete() {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// DailyRates extracts the completion percentage of each day.
func DailyRates(daily []model.DayCompletion) []float64 {
	rates := make([]float64, len(daily))
	for i, dc := range daily {
		rates[i] = dc.Rate()
	}
	return rates
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
