package stats

import (
	"sort"

	"github.com/verte-zerg/franklin/internal/model"
)

// TopRulesByTicks returns the n rules with the most ticks. Ties go to the
// higher completion rate, then the lower rule number.
func TopRulesByTicks(progress []model.RuleProgress, n int) []model.RuleProgress {
	items := make([]model.RuleProgress, len(progress))
	copy(items, progress)
	sort.Slice(items, func(i, j int) bool {
		if items[i].TotalTicks != items[j].TotalTicks {
			return items[i].TotalTicks > items[j].TotalTicks
		}
		if items[i].CompletionRate != items[j].CompletionRate {
			return items[i].CompletionRate > items[j].CompletionRate
		}
		return items[i].RuleNumber < items[j].RuleNumber
	})
	return firstN(items, n)
}
