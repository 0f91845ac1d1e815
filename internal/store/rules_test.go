package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/csvio"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/stats"
)

func TestCreateRuleRejectsDuplicateNumber(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "ada@example.com")

	rule, err := st.CreateRule(ctx, model.Rule{UserID: user.ID, Number: 1, Name: " Walk ", IsActive: true})
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if rule.ID == "" || rule.Name != "Walk" || rule.CreatedAt.IsZero() {
		t.Fatalf("unexpected rule %+v", rule)
	}
	if _, err := st.CreateRule(ctx, model.Rule{UserID: user.ID, Number: 1, Name: "Run"}); !errors.Is(err, ErrDuplicateRuleNumber) {
		t.Fatalf("expected ErrDuplicateRuleNumber, got %v", err)
	}

	other := createUser(t, st, "bob@example.com")
	if _, err := st.CreateRule(ctx, model.Rule{UserID: other.ID, Number: 1, Name: "Run"}); err != nil {
		t.Fatalf("numbers are per user, got %v", err)
	}
}

func TestCreateRuleKeepsCreatedAt(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "ada@example.com")
	created := time.Date(2023, time.May, 4, 18, 30, 0, 0, time.UTC)

	if _, err := st.CreateRule(ctx, model.Rule{UserID: user.ID, Number: 2, Name: "Read", IsActive: true, CreatedAt: created}); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	rules, err := st.ListRules(ctx, user.ID)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(rules) != 1 || !rules[0].CreatedAt.Equal(created) {
		t.Fatalf("unexpected rules %+v", rules)
	}
}

func TestUpdateAndDeleteRule(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "ada@example.com")
	rules, created, err := st.InitDefaultRules(ctx, user.ID)
	if err != nil || !created {
		t.Fatalf("init rules: created=%v err=%v", created, err)
	}

	name := "Walk"
	inactive := false
	updated, err := st.UpdateRule(ctx, user.ID, rules[0].ID, RuleUpdate{Name: &name, IsActive: &inactive})
	if err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if updated.Name != "Walk" || updated.IsActive || updated.Number != 1 {
		t.Fatalf("unexpected update %+v", updated)
	}
	active, err := st.ListActiveRules(ctx, user.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 3 || active[0].Number != 2 {
		t.Fatalf("unexpected active rules %+v", active)
	}

	taken := 2
	if _, err := st.UpdateRule(ctx, user.ID, rules[0].ID, RuleUpdate{Number: &taken}); !errors.Is(err, ErrDuplicateRuleNumber) {
		t.Fatalf("expected ErrDuplicateRuleNumber, got %v", err)
	}
	if _, err := st.UpdateRule(ctx, user.ID, "missing", RuleUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := createUser(t, st, "bob@example.com")
	if err := st.DeleteRule(ctx, other.ID, rules[1].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign rule, got %v", err)
	}
	if err := st.DeleteRule(ctx, user.ID, rules[1].ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}
	if _, err := st.GetRule(ctx, user.ID, rules[1].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted rule to be gone, got %v", err)
	}
}

func TestInitDefaultRulesOnce(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "ada@example.com")

	rules, created, err := st.InitDefaultRules(ctx, user.ID)
	if err != nil || !created {
		t.Fatalf("init rules: created=%v err=%v", created, err)
	}
	want := []string{"Limit", "Yoga", "Medit", "Food"}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, rule := range rules {
		if rule.Name != want[i] || rule.Number != i+1 || !rule.IsActive {
			t.Fatalf("rule %d: unexpected %+v", i, rule)
		}
	}

	rules, created, err = st.InitDefaultRules(ctx, user.ID)
	if err != nil {
		t.Fatalf("init rules again: %v", err)
	}
	if created || len(rules) != 4 {
		t.Fatalf("expected no new rules, created=%v len=%d", created, len(rules))
	}
}

func TestReplaceRules(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "ada@example.com")
	if _, _, err := st.InitDefaultRules(ctx, user.ID); err != nil {
		t.Fatalf("init rules: %v", err)
	}

	dup := []model.Rule{{Number: 1, Name: "A"}, {Number: 1, Name: "B"}}
	if _, err := st.ReplaceRules(ctx, user.ID, dup); !errors.Is(err, ErrDuplicateRuleNumber) {
		t.Fatalf("expected ErrDuplicateRuleNumber, got %v", err)
	}
	rules, err := st.ListRules(ctx, user.ID)
	if err != nil || len(rules) != 4 {
		t.Fatalf("failed replace must keep rules, len=%d err=%v", len(rules), err)
	}

	n, err := st.ReplaceRules(ctx, user.ID, []model.Rule{{Number: 3, Name: "Read", IsActive: true}, {Number: 1, Name: "Walk"}})
	if err != nil || n != 2 {
		t.Fatalf("replace rules: n=%d err=%v", n, err)
	}
	rules, err = st.ListRules(ctx, user.ID)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(rules) != 2 || rules[0].Name != "Walk" || rules[1].Name != "Read" || rules[0].IsActive {
		t.Fatalf("unexpected rules %+v", rules)
	}
}

func TestReplaceAllRulesByEmail(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	ada := createUser(t, st, "ada@example.com")
	bob := createUser(t, st, "bob@example.com")
	if _, _, err := st.InitDefaultRules(ctx, bob.ID); err != nil {
		t.Fatalf("init rules: %v", err)
	}

	rows := []model.OwnedRule{
		{Email: "ADA@example.com", Rule: model.Rule{Number: 1, Name: "Walk", IsActive: true}},
		{Email: "ghost@example.com", Rule: model.Rule{Number: 1, Name: "Boo"}},
		{Email: "ada@example.com", Rule: model.Rule{Number: 2, Name: "Read", IsActive: true}},
		{Email: "ghost@example.com", Rule: model.Rule{Number: 2, Name: "Boo"}},
	}
	res, err := st.ReplaceAllRules(ctx, rows)
	if err != nil {
		t.Fatalf("replace all rules: %v", err)
	}
	if res.Imported != 2 || len(res.Skipped) != 1 || res.Skipped[0] != "ghost@example.com" {
		t.Fatalf("unexpected result %+v", res)
	}

	all, err := st.ListAllRules(ctx)
	if err != nil {
		t.Fatalf("list all rules: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("expected 6 rules, got %d", len(all))
	}
	if all[0].Email != "ada@example.com" || all[0].UserID != ada.ID || all[0].Name != "Walk" {
		t.Fatalf("unexpected first rule %+v", all[0])
	}
	if all[2].Email != "bob@example.com" || all[2].Name != "Limit" {
		t.Fatalf("bob's rules must be untouched, got %+v", all[2])
	}
}

func TestReplaceRulesKeepsStatisticsHistory(t *testing.T) {
	now := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		export func(t *testing.T, rules []model.Rule) string
	}{
		{
			name: "exported file",
			export: func(t *testing.T, rules []model.Rule) string {
				var buf bytes.Buffer
				if err := csvio.WriteRules(&buf, rules); err != nil {
					t.Fatalf("write rules: %v", err)
				}
				return buf.String()
			},
		},
		{
			name: "file without createdAt",
			export: func(*testing.T, []model.Rule) string {
				return "number,name,description,active\n1,Walk,,true\n"
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := openTestStore(t)
			ctx := context.Background()
			user := createUser(t, st, "ada@example.com")
			created := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
			if _, err := st.CreateRule(ctx, model.Rule{UserID: user.ID, Number: 1, Name: "Walk", IsActive: true, CreatedAt: created}); err != nil {
				t.Fatalf("create rule: %v", err)
			}
			for _, date := range []calendar.DayKey{"01/01", "02/01", "03/01"} {
				if _, _, err := st.UpsertGridEntry(ctx, model.GridEntry{UserID: user.ID, Date: date, Rule: 1, Status: model.StatusTick}); err != nil {
					t.Fatalf("upsert %s: %v", date, err)
				}
			}
			before, err := stats.BuildReport(ctx, st, user.ID, calendar.PeriodForever, now, 7)
			if err != nil {
				t.Fatalf("report before: %v", err)
			}
			if before.Stats.TotalDays != 10 || before.Stats.TotalTicks != 3 {
				t.Fatalf("unexpected baseline %+v", before.Stats)
			}

			rules, err := st.ListRules(ctx, user.ID)
			if err != nil {
				t.Fatalf("list rules: %v", err)
			}
			imported, err := csvio.ReadRules(strings.NewReader(tc.export(t, rules)))
			if err != nil {
				t.Fatalf("read rules: %v", err)
			}
			if _, err := st.ReplaceRules(ctx, user.ID, imported); err != nil {
				t.Fatalf("replace rules: %v", err)
			}

			after, err := stats.BuildReport(ctx, st, user.ID, calendar.PeriodForever, now, 7)
			if err != nil {
				t.Fatalf("report after: %v", err)
			}
			if after.Stats.TotalDays != before.Stats.TotalDays ||
				after.Stats.TotalTicks != before.Stats.TotalTicks ||
				after.Stats.TotalPossibleTicks != before.Stats.TotalPossibleTicks ||
				after.Stats.CompletionRate != before.Stats.CompletionRate {
				t.Fatalf("statistics changed after import: before=%+v after=%+v", before.Stats, after.Stats)
			}
		})
	}
}

func TestReplaceRulesNewNumberStartsNow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	user := createUser(t, st, "ada@example.com")
	old := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	if _, err := st.CreateRule(ctx, model.Rule{UserID: user.ID, Number: 1, Name: "Walk", IsActive: true, CreatedAt: old}); err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if _, err := st.ReplaceRules(ctx, user.ID, []model.Rule{{Number: 1, Name: "Walk"}, {Number: 2, Name: "Read"}}); err != nil {
		t.Fatalf("replace rules: %v", err)
	}
	rules, err := st.ListRules(ctx, user.ID)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if !rules[0].CreatedAt.Equal(old) {
		t.Fatalf("existing number should keep its creation time, got %v", rules[0].CreatedAt)
	}
	if !rules[1].CreatedAt.After(old) {
		t.Fatalf("new number should be created now, got %v", rules[1].CreatedAt)
	}
}
