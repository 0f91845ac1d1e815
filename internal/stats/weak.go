package stats

import (
	"sort"

	"github.com/verte-zerg/franklin/internal/model"
)

// WeakestRules returns the n rules with the lowest completion rate. Ties go to
// the lower rule number. n <= 0 returns all rules.
func WeakestRules(progress []model.RuleProgress, n int) []model.RuleProgress {
	candidates := make([]model.RuleProgress, len(progress))
	copy(candidates, progress)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CompletionRate == candidates[j].CompletionRate {
			return candidates[i].RuleNumber < candidates[j].RuleNumber
		}
		return candidates[i].CompletionRate < candidates[j].CompletionRate
	})
	return firstN(candidates, n)
}

func firstN(progress []model.RuleProgress, n int) []model.RuleProgress {
	if n <= 0 || n > len(progress) {
		n = len(progress)
	}
	return progress[:n]
}
