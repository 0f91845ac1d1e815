package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/franklin/internal/model"
)

const (
	dayLabelLayout = "Mon 02/01"
	minColumnWidth = 5
	maxColumnWidth = 12
	columnGap      = " "
)

var (
	tickStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	crossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	blankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	dayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

const helpLine = "←↓↑→/hjkl move · space cycle · t tick · x cross · b clear · p period · q quit"

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	if len(m.rules) == 0 {
		content = blankStyle.Render("No active rules. Add one with `franklin rules add` or `franklin rules init`.")
	} else {
		content = m.renderGrid()
	}
	lines := []string{content, "", helpKeyStyle.Render(helpLine)}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()))
	}
	body := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return body + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	top := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, body)
	bottom := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return top + "\n" + bottom
}

func (m *Model) renderGrid() string {
	labelWidth := runewidth.StringWidth(dayLabelLayout)
	widths := m.columnWidths()

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelWidth))
	for i, r := range m.rules {
		b.WriteString(columnGap)
		name := runewidth.Truncate(r.Name, widths[i], "…")
		b.WriteString(headerStyle.Render(center(name, widths[i])))
	}
	b.WriteByte('\n')

	for row, day := range m.days {
		b.WriteString(dayStyle.Render(runewidth.FillRight(day.Time().Format(dayLabelLayout), labelWidth)))
		for col, r := range m.rules {
			b.WriteString(columnGap)
			status := m.cells[cellKey{date: day.Key(), rule: r.Number}]
			cell := center(status.Symbol(), widths[col])
			if row == m.row && col == m.col {
				b.WriteString(cursorStyle.Render(cell))
				continue
			}
			b.WriteString(statusStyle(status).Render(cell))
		}
		if row < len(m.days)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// columnWidths sizes each rule column to its name within the allowed bounds.
func (m *Model) columnWidths() []int {
	widths := make([]int, len(m.rules))
	for i, r := range m.rules {
		w := runewidth.StringWidth(r.Name)
		if w < minColumnWidth {
			w = minColumnWidth
		}
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		widths[i] = w
	}
	return widths
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.today.Possible > 0 {
		segments = append(segments, fmt.Sprintf("Today %d/%d", m.today.Ticks, m.today.Possible))
	}
	segments = append(segments,
		fmt.Sprintf("Streak %d", m.summary.StreakCount),
		fmt.Sprintf("%s %.2f%%", m.summary.Period.Label(), m.summary.CompletionRate),
	)
	return footerStyle.Render(strings.Join(segments, "  "))
}

func statusStyle(status model.Status) lipgloss.Style {
	switch status {
	case model.StatusTick:
		return tickStyle
	case model.StatusCross:
		return crossStyle
	default:
		return blankStyle
	}
}

func center(s string, width int) string {
	pad := width - runewidth.StringWidth(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
