package stats

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "franklin.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	user, err := st.UpsertUserByEmail(ctx, model.User{Email: "ada@example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	now := time.Date(2024, time.January, 5, 20, 0, 0, 0, time.UTC)
	for i, name := range []string{"Walk", "Read"} {
		r := model.Rule{UserID: user.ID, Number: i + 1, Name: name, IsActive: true, CreatedAt: now.AddDate(0, 0, -4)}
		if _, err := st.CreateRule(ctx, r); err != nil {
			t.Fatalf("create rule: %v", err)
		}
	}
	if _, err := st.CreateRule(ctx, model.Rule{UserID: user.ID, Number: 3, Name: "Old", CreatedAt: now.AddDate(0, 0, -10)}); err != nil {
		t.Fatalf("create inactive rule: %v", err)
	}
	for _, date := range []calendar.DayKey{"01/01", "02/01", "04/01", "05/01"} {
		for number := 1; number <= 2; number++ {
			entry := model.GridEntry{UserID: user.ID, Date: date, Rule: number, Status: model.StatusTick}
			if _, _, err := st.UpsertGridEntry(ctx, entry); err != nil {
				t.Fatalf("upsert entry: %v", err)
			}
		}
	}

	report, err := BuildReport(ctx, st, user.ID, calendar.PeriodForever, now, 3)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Stats.TotalRules != 2 || report.Stats.TotalDays != 5 {
		t.Fatalf("unexpected stats %+v", report.Stats)
	}
	if report.Stats.TotalTicks != 8 || report.Stats.TotalPossibleTicks != 10 {
		t.Fatalf("unexpected ticks %d/%d", report.Stats.TotalTicks, report.Stats.TotalPossibleTicks)
	}
	if report.Stats.StreakCount != 2 || report.LongestStreak != 2 {
		t.Fatalf("unexpected streaks current=%d longest=%d", report.Stats.StreakCount, report.LongestStreak)
	}
	if len(report.Daily) != 5 || report.Window != 3 {
		t.Fatalf("unexpected daily %d window %d", len(report.Daily), report.Window)
	}
}

type failingSource struct{}

func (failingSource) ListActiveRules(context.Context, string) ([]model.Rule, error) {
	return nil, errors.New("disk on fire")
}

func (failingSource) ListGridEntries(context.Context, string) ([]model.GridEntry, error) {
	return nil, nil
}

func TestBuildReportWrapsErrors(t *testing.T) {
	_, err := BuildReport(context.Background(), failingSource{}, "u", calendar.PeriodWeek, time.Now(), 7)
	if err == nil || !strings.Contains(err.Error(), "load rules: disk on fire") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRenderSummaryAndRuleTable(t *testing.T) {
	rules := []model.Rule{rule(1, "Walk", day(2024, time.January, 1))}
	entries := []model.GridEntry{tick("01/01", 1), tick("03/01", 1)}
	now := day(2024, time.January, 3)
	daily := Daily(rules, entries, calendar.PeriodForever, now)
	report := Report{
		Stats:         Compute(rules, entries, calendar.PeriodForever, now),
		Daily:         daily,
		LongestStreak: LongestStreak(daily),
	}

	var buf bytes.Buffer
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}
	for _, want := range []string{"Summary (Forever)", "Ticks: 2 / 3", "Completion: 66.67%", "Current streak: 1 day", "Last days: @ @"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %q in summary:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := RenderRuleTable(&buf, report.Stats.RuleProgress); err != nil {
		t.Fatalf("RenderRuleTable: %v", err)
	}
	if !strings.Contains(buf.String(), "1 Walk     66.67%     2    3") {
		t.Fatalf("unexpected rule table:\n%s", buf.String())
	}

	buf.Reset()
	if err := RenderSummary(&buf, Report{}); err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}
	if buf.String() != "No active rules.\n" {
		t.Fatalf("unexpected empty summary %q", buf.String())
	}
}
