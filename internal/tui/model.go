// Package tui provides the Bubble Tea habit grid.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/stats"
)

// Store is the persistence used by the grid.
type Store interface {
	ListActiveRules(ctx context.Context, userID string) ([]model.Rule, error)
	ListGridEntries(ctx context.Context, userID string) ([]model.GridEntry, error)
	UpsertGridEntry(ctx context.Context, entry model.GridEntry) (model.GridEntry, bool, error)
}

type cellKey struct {
	date calendar.DayKey
	rule int
}

// Model implements the Bubble Tea grid UI. Rows are days, newest first, and
// columns are the active rules.
type Model struct {
	config model.TrackerConfig
	store  Store
	userID string
	now    func() time.Time

	rules []model.Rule
	days  []calendar.Day
	cells map[cellKey]model.Status

	row int
	col int

	width  int
	height int

	summary model.Statistics
	today   model.DayCompletion
	err     error
}

// NewModel loads the user's rules and grid and builds the UI model.
func NewModel(ctx context.Context, cfg model.TrackerConfig, st Store, userID string, now func() time.Time) (*Model, error) {
	if now == nil {
		now = time.Now
	}
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	cfg.Period = calendar.ParsePeriod(string(cfg.Period))

	rules, err := st.ListActiveRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Number < rules[j].Number })
	entries, err := st.ListGridEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load grid: %w", err)
	}

	m := &Model{
		config: cfg,
		store:  st,
		userID: userID,
		now:    now,
		rules:  rules,
		days:   calendar.LastDays(calendar.DayOf(now()), cfg.Days),
		cells:  make(map[cellKey]model.Status, len(entries)),
	}
	for _, e := range entries {
		m.cells[cellKey{date: e.Date, rule: e.Rule}] = e.Status
	}
	m.recompute()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1, 0)
		case "down", "j":
			m.move(1, 0)
		case "left", "h":
			m.move(0, -1)
		case "right", "l":
			m.move(0, 1)
		case " ", "enter":
			m.set(m.current().Next())
		case "t":
			m.set(model.StatusTick)
		case "x":
			m.set(model.StatusCross)
		case "backspace", "delete", "b":
			m.set(model.StatusBlank)
		case "p":
			m.config.Period = m.config.Period.Next()
			m.recompute()
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) move(dRow, dCol int) {
	m.row = clamp(m.row+dRow, 0, len(m.days)-1)
	m.col = clamp(m.col+dCol, 0, len(m.rules)-1)
}

func (m *Model) current() model.Status {
	key, ok := m.cursorKey()
	if !ok {
		return model.StatusBlank
	}
	if status, ok := m.cells[key]; ok {
		return status
	}
	return model.StatusBlank
}

func (m *Model) cursorKey() (cellKey, bool) {
	if len(m.rules) == 0 || len(m.days) == 0 {
		return cellKey{}, false
	}
	return cellKey{date: m.days[m.row].Key(), rule: m.rules[m.col].Number}, true
}

// set writes status to the cell under the cursor and persists it.
func (m *Model) set(status model.Status) {
	key, ok := m.cursorKey()
	if !ok {
		return
	}
	if _, _, err := m.store.UpsertGridEntry(context.Background(), model.GridEntry{
		UserID: m.userID,
		Date:   key.date,
		Rule:   key.rule,
		Status: status,
	}); err != nil {
		m.err = fmt.Errorf("save %s rule %d: %w", key.date, key.rule, err)
		return
	}
	m.err = nil
	m.cells[key] = status
	m.recompute()
}

func (m *Model) recompute() {
	entries := make([]model.GridEntry, 0, len(m.cells))
	for key, status := range m.cells {
		entries = append(entries, model.GridEntry{Date: key.date, Rule: key.rule, Status: status})
	}
	now := m.now()
	m.summary = stats.Compute(m.rules, entries, m.config.Period, now)
	m.today = model.DayCompletion{Day: calendar.DayOf(now)}
	if daily := stats.Daily(m.rules, entries, calendar.PeriodWeek, now); len(daily) > 0 {
		m.today = daily[len(daily)-1]
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
