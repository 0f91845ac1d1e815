// Package generator builds demo grid data.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
)

// DefaultTickProbability is the chance that a generated cell is a tick.
const DefaultTickProbability = 0.7

// DefaultDays is how many days back demo data covers, today included.
const DefaultDays = 7

// Generator produces randomized grid entries.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Populate marks every active rule on each of the last days ending at today
// with a tick (with probability tickProb) or a cross. Days before a rule was
// created are skipped. Entries are ordered newest day first, then by rule.
func (g *Generator) Populate(rules []model.Rule, today calendar.Day, days int, tickProb float64) []model.GridEntry {
	if days <= 0 {
		days = DefaultDays
	}
	if tickProb < 0 || tickProb > 1 {
		tickProb = DefaultTickProbability
	}
	active := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}

	entries := make([]model.GridEntry, 0, days*len(active))
	for _, day := range calendar.LastDays(today, days) {
		for _, r := range active {
			if !r.CreatedAt.IsZero() && calendar.DayOf(r.CreatedAt).After(day) {
				continue
			}
			entries = append(entries, model.GridEntry{
				UserID: r.UserID,
				Date:   day.Key(),
				Rule:   r.Number,
				Status: g.status(tickProb),
			})
		}
	}
	return entries
}

// Notes returns n numbered demo journal entries.
func (g *Generator) Notes(n int) []string {
	notes := make([]string, n)
	for i := range notes {
		notes[i] = fmt.Sprintf("Test entry %d", i+1)
	}
	return notes
}

func (g *Generator) status(tickProb float64) model.Status {
	if g.rnd.Float64() < tickProb {
		return model.StatusTick
	}
	return model.StatusCross
}
