package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/generator"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

func TestGridLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	body := map[string]any{"date": "5/3", "rule": 1, "status": "tick"}
	w := env.do(t, http.MethodPost, "/api/grid-data", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entry := decode[model.GridEntry](t, w)
	assert.Equal(t, calendar.DayKey("05/03"), entry.Date)
	assert.Equal(t, model.StatusTick, entry.Status)

	body["status"] = "cross"
	w = env.do(t, http.MethodPost, "/api/grid-data", token, body)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/grid-data", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]model.GridEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusCross, entries[0].Status)

	w = env.do(t, http.MethodDelete, "/api/grid-data/05%2F03/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodDelete, "/api/grid-data/05%2F03/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Grid entry not found", decode[ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodGet, "/api/grid-data", token, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGridValidation(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	cases := []struct {
		name string
		body any
		want string
	}{
		{name: "bad date", body: map[string]any{"date": "32/01", "rule": 1, "status": "tick"}, want: "date must be a DD/MM date"},
		{name: "missing rule", body: map[string]any{"date": "01/01", "status": "tick"}, want: "Rule is required"},
		{name: "bad status", body: map[string]any{"date": "01/01", "rule": 1, "status": "maybe"}, want: "status must be one of: blank tick cross"},
		{name: "not json", body: "{", want: "Invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/grid-data", token, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, decode[ErrorResponse](t, w).Error)
		})
	}

	w := env.do(t, http.MethodDelete, "/api/grid-data/01%2F01/x", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGridIsScopedToCaller(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, alice := env.signIn(t, "alice@example.com")
	_, bob := env.signIn(t, "bob@example.com")

	w := env.do(t, http.MethodPost, "/api/grid-data", alice, map[string]any{"date": "01/01", "rule": 1, "status": "tick"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/grid-data", bob, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
	w = env.do(t, http.MethodDelete, "/api/grid-data/01%2F01/1", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/grid-data/clear-all", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["deletedCount"])
}

func TestRulesCRUD(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	w := env.do(t, http.MethodPost, "/api/rules", token, map[string]any{"number": 1, "name": " Silence ", "description": "Speak little"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rule := decode[model.Rule](t, w)
	assert.Equal(t, "Silence", rule.Name)
	assert.True(t, rule.IsActive)

	w = env.do(t, http.MethodPost, "/api/rules", token, map[string]any{"number": 1, "name": "Order"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/rules", token, map[string]any{"number": 2, "name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Name is required", decode[ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodPost, "/api/rules", token, map[string]any{"number": "two", "name": "Order"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/rules", token, map[string]any{"number": 2, "name": "Order", "active": false})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decode[model.Rule](t, w).IsActive)

	w = env.do(t, http.MethodPut, "/api/rules/"+rule.ID, token, map[string]any{"name": "Quiet", "active": false})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[model.Rule](t, w)
	assert.Equal(t, "Quiet", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 1, updated.Number)

	w = env.do(t, http.MethodPut, "/api/rules/"+rule.ID, token, map[string]any{"number": 2})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = env.do(t, http.MethodPut, "/api/rules/"+rule.ID, token, map[string]any{"number": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPut, "/api/rules/missing", token, map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/rules", token, nil)
	rules := decode[[]model.Rule](t, w)
	require.Len(t, rules, 2)
	assert.Equal(t, 1, rules[0].Number)
	assert.Equal(t, 2, rules[1].Number)

	w = env.do(t, http.MethodDelete, "/api/rules/"+rule.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/api/rules/"+rule.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Rule not found", decode[ErrorResponse](t, w).Error)
}

func TestInitRules(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	w := env.do(t, http.MethodPost, "/api/rules/init", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	rules := decode[[]model.Rule](t, w)
	require.Len(t, rules, len(store.DefaultRules))
	assert.Equal(t, "Limit", rules[0].Name)

	w = env.do(t, http.MethodPost, "/api/rules/init", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Rule](t, w), len(store.DefaultRules))
}

func TestTexts(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	w := env.do(t, http.MethodPost, "/api/texts", token, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Content is required", decode[ErrorResponse](t, w).Error)

	for _, content := range []string{"first", "second"} {
		w = env.do(t, http.MethodPost, "/api/texts", token, map[string]string{"content": content})
		require.Equal(t, http.StatusCreated, w.Code)
		time.Sleep(2 * time.Millisecond)
	}

	w = env.do(t, http.MethodGet, "/api/texts", token, nil)
	texts := decode[[]model.Text](t, w)
	require.Len(t, texts, 2)
	assert.Equal(t, "second", texts[0].Content)
}

func TestStatistics(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	w := env.do(t, http.MethodGet, "/api/statistics?period=1week", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[model.Statistics](t, w)
	assert.Equal(t, 0, empty.TotalRules)
	assert.Equal(t, calendar.PeriodWeek, empty.Period)
	assert.NotNil(t, empty.RuleProgress)

	for _, n := range []int{1, 2} {
		w = env.do(t, http.MethodPost, "/api/rules", token, map[string]any{"number": n, "name": "Rule"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	today := calendar.DayOf(time.Now()).Key()
	w = env.do(t, http.MethodPost, "/api/grid-data", token, map[string]any{"date": string(today), "rule": 1, "status": "tick"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/statistics?period=bogus", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[model.Statistics](t, w)
	assert.Equal(t, calendar.PeriodForever, got.Period)
	assert.Equal(t, 2, got.TotalRules)
	assert.Equal(t, 1, got.TotalDays)
	assert.Equal(t, 1, got.TotalTicks)
	assert.Equal(t, 2, got.TotalPossibleTicks)
	assert.InDelta(t, 50.0, got.CompletionRate, 1e-9)
	assert.Equal(t, 0, got.StreakCount)
	require.Len(t, got.RuleProgress, 2)
	assert.InDelta(t, 100.0, got.RuleProgress[0].CompletionRate, 1e-9)
}

func TestProgressCSVRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	w := env.do(t, http.MethodPost, "/api/grid-data/upload-csv", token, "date,rule,status\n01/02,1,tick\n02/02,1,cross\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["count"])

	w = env.do(t, http.MethodGet, "/api/grid-data/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="progress.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Equal(t, "date,rule,status\n02/02,1,cross\n01/02,1,tick\n", w.Body.String())

	w = env.do(t, http.MethodPost, "/api/grid-data/upload-csv", token, "date,rule,status\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No valid records found in CSV", decode[ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodPost, "/api/grid-data/upload-csv", token, "date,rule\n01/02,1\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/grid-data", token, nil)
	assert.Len(t, decode[[]model.GridEntry](t, w), 2)
}

func TestRulesCSVRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, token := env.signIn(t, "user@example.com")

	csv := "number,name,description,active,createdAt\n" +
		"1,Temperance,Eat not to dullness,true,2024-01-01T08:00:00Z\n" +
		"2,Silence,,false,2024-01-02T09:30:00Z\n"
	w := env.do(t, http.MethodPost, "/api/rules/upload-csv", token, csv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/rules/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csv, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/rules/upload-csv", token, "number,name,description,active\n1,A,,true\n1,B,,true\n")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminGridData(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, adminToken := env.signIn(t, adminEmail)
	user, userToken := env.signIn(t, "user@example.com")

	for _, date := range []string{"01/01", "02/01"} {
		w := env.do(t, http.MethodPost, "/api/grid-data", userToken, map[string]any{"date": date, "rule": 1, "status": "tick"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/rules", userToken, map[string]any{"number": 1, "name": "Order"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/statistics", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	counts := decode[[]model.UserCellCounts](t, w)
	var found bool
	for _, c := range counts {
		if c.UserID == user.ID {
			found = true
			assert.Equal(t, 2, c.Ticks)
			assert.Equal(t, 1, c.ActiveRules)
		}
	}
	assert.True(t, found)

	w = env.do(t, http.MethodGet, "/api/admin/export-all-progress", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="all-progress.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "user@example.com,02/01,1,tick")

	w = env.do(t, http.MethodDelete, "/api/admin/clear-user-grid-data/"+user.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["deletedCount"])
	w = env.do(t, http.MethodDelete, "/api/admin/clear-user-grid-data/nobody", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	upload := "userId.email,date,rule,status\nuser@example.com,03/01,1,cross\nstranger@example.com,03/01,1,tick\n"
	w = env.do(t, http.MethodPost, "/api/admin/upload-all-progress", adminToken, upload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Count   int      `json:"count"`
		Skipped []string `json:"skippedEmails"`
	}](t, w)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, []string{"stranger@example.com"}, resp.Skipped)

	entries, err := env.store.ListGridEntries(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StatusCross, entries[0].Status)

	w = env.do(t, http.MethodDelete, "/api/admin/clear-all-grid-data", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["deletedCount"])
}

func TestAdminRulesCSV(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, adminToken := env.signIn(t, adminEmail)
	user, _ := env.signIn(t, "user@example.com")

	upload := "userId.email,number,name,description,active,createdAt\n" +
		"user@example.com,1,Order,Keep things in place,true,2024-03-01T00:00:00Z\n"
	w := env.do(t, http.MethodPost, "/api/admin/upload-all-rules", adminToken, upload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rules, err := env.store.ListRules(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Order", rules[0].Name)

	w = env.do(t, http.MethodGet, "/api/admin/export-all-rules", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="all-rules.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, upload, w.Body.String())
}

func TestAdminDBDumpAndReset(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	_, adminToken := env.signIn(t, adminEmail)
	user, userToken := env.signIn(t, "user@example.com")

	w := env.do(t, http.MethodPost, "/api/rules", userToken, map[string]any{"number": 1, "name": "Order"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/grid-data", userToken, map[string]any{"date": "01/01", "rule": 1, "status": "tick"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/texts", userToken, map[string]string{"content": "kept my word"})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, path := range []string{"/api/admin/db-dump", "/api/admin/reset"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "reset") {
			method = http.MethodPost
		}
		w = env.do(t, method, path, userToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w = env.do(t, http.MethodGet, "/api/admin/db-dump", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dump := decode[struct {
		Users    []map[string]any `json:"users"`
		Rules    []map[string]any `json:"rules"`
		GridData []map[string]any `json:"gridData"`
		Texts    []model.Text     `json:"texts"`
	}](t, w)
	assert.Len(t, dump.Users, 2)
	require.Len(t, dump.Rules, 1)
	assert.Equal(t, "user@example.com", dump.Rules[0]["email"])
	assert.Equal(t, "Order", dump.Rules[0]["name"])
	require.Len(t, dump.GridData, 1)
	assert.Equal(t, "01/01", dump.GridData[0]["date"])
	require.Len(t, dump.Texts, 1)
	assert.Equal(t, user.ID, dump.Texts[0].UserID)

	w = env.do(t, http.MethodPost, "/api/admin/reset", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Message string            `json:"message"`
		Deleted store.ResetResult `json:"deleted"`
	}](t, w)
	assert.Equal(t, "Database reset successful", resp.Message)
	assert.Equal(t, store.ResetResult{Rules: 1, GridData: 1, Texts: 1}, resp.Deleted)

	rules, err := env.store.ListRules(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
	users, err := env.store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestPopulate(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	admin, adminToken := env.signIn(t, adminEmail)

	w := env.do(t, http.MethodPost, "/api/admin/populate?days=5&tick=1", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Summary generator.Summary `json:"summary"`
	}](t, w)
	want := generator.Summary{Rules: len(store.DefaultRules), GridData: 5 * len(store.DefaultRules), Texts: generator.DemoNotes}
	assert.Equal(t, want, resp.Summary)

	texts, err := env.store.ListTexts(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Len(t, texts, generator.DemoNotes)

	w = env.do(t, http.MethodPost, "/api/admin/populate?days=zero", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
