package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
)

// Source loads the rules and grid of one user.
type Source interface {
	ListActiveRules(ctx context.Context, userID string) ([]model.Rule, error)
	ListGridEntries(ctx context.Context, userID string) ([]model.GridEntry, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Stats         model.Statistics
	Daily         []model.DayCompletion
	LongestStreak int
	Window        int
}

// BuildReport loads a user's data and computes statistics for period ending at now.
func BuildReport(ctx context.Context, src Source, userID string, period calendar.Period, now time.Time, window int) (Report, error) {
	rules, err := src.ListActiveRules(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("load rules: %w", err)
	}
	entries, err := src.ListGridEntries(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("load grid: %w", err)
	}
	daily := Daily(rules, entries, period, now)
	return Report{
		Stats:         Compute(rules, entries, period, now),
		Daily:         daily,
		LongestStreak: LongestStreak(daily),
		Window:        window,
	}, nil
}
