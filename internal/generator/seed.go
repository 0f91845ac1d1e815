package generator

import (
	"context"
	"fmt"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

// DemoNotes is how many journal notes Seed writes.
const DemoNotes = 3

// Target is the persistence Seed writes demo data through.
type Target interface {
	ListRules(ctx context.Context, userID string) ([]model.Rule, error)
	CreateRule(ctx context.Context, rule model.Rule) (model.Rule, error)
	UpsertGridEntry(ctx context.Context, entry model.GridEntry) (model.GridEntry, bool, error)
	CreateText(ctx context.Context, userID, content string) (model.Text, error)
}

// Summary counts what Seed wrote.
type Summary struct {
	Rules    int `json:"rules"`
	GridData int `json:"gridData"`
	Texts    int `json:"texts"`
}

// Seed fills the user's grid for the last days ending at today. Users without
// rules get the default rules, dated back to the first seeded day so that the
// whole range counts in statistics.
func (g *Generator) Seed(ctx context.Context, dst Target, userID string, today calendar.Day, days int, tickProb float64) (Summary, error) {
	if days <= 0 {
		days = DefaultDays
	}
	rules, err := dst.ListRules(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("list rules: %w", err)
	}
	if len(rules) == 0 {
		since := today.AddDays(-(days - 1)).Time()
		for _, def := range store.DefaultRules {
			def.UserID = userID
			def.CreatedAt = since
			rule, err := dst.CreateRule(ctx, def)
			if err != nil {
				return Summary{}, fmt.Errorf("create rule %d: %w", def.Number, err)
			}
			rules = append(rules, rule)
		}
	}

	var summary Summary
	for _, r := range rules {
		if r.IsActive {
			summary.Rules++
		}
	}
	for _, entry := range g.Populate(rules, today, days, tickProb) {
		if _, _, err := dst.UpsertGridEntry(ctx, entry); err != nil {
			return Summary{}, fmt.Errorf("write %s rule %d: %w", entry.Date, entry.Rule, err)
		}
		summary.GridData++
	}
	for _, note := range g.Notes(DemoNotes) {
		if _, err := dst.CreateText(ctx, userID, note); err != nil {
			return Summary{}, fmt.Errorf("write note: %w", err)
		}
		summary.Texts++
	}
	return summary, nil
}
