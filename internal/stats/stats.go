// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/franklin/internal/model"
)

const (
	sparkChars       = " .:-=+*#%@"
	maxRuleNameWidth = 24
)

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline of percentages in [0, 100].
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range values {
		pos := v / 100
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the headline numbers of a report.
func RenderSummary(w io.Writer, report Report) error {
	st := report.Stats
	if st.TotalRules == 0 {
		_, err := fmt.Fprintln(w, "No active rules.")
		return err
	}
	lines := []string{
		fmt.Sprintf("Summary (%s)", st.Period.Label()),
		fmt.Sprintf("Active rules: %d", st.TotalRules),
		fmt.Sprintf("Days tracked: %d", st.TotalDays),
		fmt.Sprintf("Ticks: %d / %d", st.TotalTicks, st.TotalPossibleTicks),
		fmt.Sprintf("Completion: %.2f%%", st.CompletionRate),
		fmt.Sprintf("Current streak: %s", pluralDays(st.StreakCount)),
		fmt.Sprintf("Longest streak: %s", pluralDays(report.LongestStreak)),
	}
	if len(report.Daily) > 0 {
		lines = append(lines, "Last days: "+Sparkline(lastRates(report.Daily, 30)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderRuleTable prints per-rule progress ordered by rule number.
func RenderRuleTable(w io.Writer, progress []model.RuleProgress) error {
	if len(progress) == 0 {
		_, err := fmt.Fprintln(w, "No rule progress found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Rule Progress"); err != nil {
		return err
	}
	headers := []string{"#", "Rule", "Completion", "Ticks", "Days"}
	rows := make([][]string, 0, len(progress))
	for _, rp := range progress {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rp.RuleNumber),
			rp.RuleName,
			fmt.Sprintf("%.2f%%", rp.CompletionRate),
			fmt.Sprintf("%d", rp.TotalTicks),
			fmt.Sprintf("%d", rp.TotalDays),
		})
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign, map[int]int{1: maxRuleNameWidth}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderTrend prints the smoothed daily completion curve.
func RenderTrend(w io.Writer, daily []model.DayCompletion, window int) error {
	return RenderTrendWithSize(w, daily, window, 0, 10, false)
}

// RenderTrendWithSize prints the daily completion curve sized to a given total width.
func RenderTrendWithSize(w io.Writer, daily []model.DayCompletion, window, totalWidth, height int, useColor bool) error {
	if len(daily) == 0 {
		return nil
	}
	rates := DailyRates(daily)
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return Plot{
		Title: "Daily Completion",
		Series: []Series{
			{Name: "Daily", Values: rates},
			{Name: fmt.Sprintf("Avg %dd", window), Values: MovingAverage(rates, window)},
		},
		Width:  width,
		Height: height,
		From:   daily[0].Day.String(),
		To:     daily[len(daily)-1].Day.String(),
		Color:  useColor,
	}.Render(w)
}

func lastRates(daily []model.DayCompletion, n int) []float64 {
	if len(daily) > n {
		daily = daily[len(daily)-n:]
	}
	return DailyRates(daily)
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
