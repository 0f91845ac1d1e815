// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/stats"
)

const (
	tabOverview = iota
	tabRules
	tabTrend
)

const (
	plotHeight      = 10
	defaultWindow   = 7
	defaultWeakTop  = 3
	fallbackWidth   = 80
	wideCardsLayout = 80
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	source stats.Source
	userID string
	cfg    model.StatsConfig
	now    func() time.Time

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	ruleTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats UI model and loads the first report.
func NewModel(src stats.Source, userID string, cfg model.StatsConfig, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = defaultWindow
	}
	if cfg.WeakTop < 1 {
		cfg.WeakTop = defaultWeakTop
	}
	cfg.Period = calendar.ParsePeriod(string(cfg.Period))
	m := &Model{
		source: src,
		userID: userID,
		cfg:    cfg,
		now:    now,
		tabs:   []string{"Overview", "Rules", "Trend"},
	}
	m.initInputs()
	m.ruleTable = buildRuleTable(nil, fallbackWidth, 1)
	m.initViewports()
	m.refreshReport()
	return m
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
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		if m.activeTab == tabRules {
			m.ruleTable.Focus()
		} else {
			m.ruleTable.Blur()
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "p", "]":
			m.cfg.Period = m.cfg.Period.Next()
			m.refreshReport()
			return m, nil
		case "P", "[":
			m.cfg.Period = m.cfg.Period.Prev()
			m.refreshReport()
			return m, nil
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabRules {
				m.ruleTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabRules {
				m.ruleTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabRules {
				var cmd tea.Cmd
				m.ruleTable, cmd = m.ruleTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Period (1week, 1month, 3months, 6months, 1year, forever): "),
		newFilterInput("Curve window: "),
		newFilterInput("Weakest rules shown: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.filterInputs[0].SetValue(string(m.cfg.Period))
	m.filterInputs[1].SetValue(strconv.Itoa(m.cfg.CurveWindow))
	m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.WeakTop))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.ruleTable.SetWidth(m.width)
	m.ruleTable.SetHeight(maxInt(1, bodyHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabRules {
		m.ruleTable.Focus()
	} else {
		m.ruleTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	settings := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + settings
}

func (m *Model) renderSettingsSummary() string {
	summary := fmt.Sprintf("Period: %s  window=%d  weakest=%d", m.cfg.Period.Label(), m.cfg.CurveWindow, m.cfg.WeakTop)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Period: p/P  Window: -/=  Settings: /  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabRules {
		if len(m.report.Stats.RuleProgress) == 0 {
			return fitLines("No active rules.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.ruleTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.source, m.userID, m.cfg.Period, m.now(), m.cfg.CurveWindow)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	m.ruleTable.SetRows(buildRuleRows(report.Stats.RuleProgress))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.cfg.WeakTop, width))
	m.viewports[tabTrend].SetContent(renderTrend(m.report.Daily, m.cfg.CurveWindow, width))
}

func renderOverview(report stats.Report, weakTop, width int) string {
	st := report.Stats
	if st.TotalRules == 0 {
		return "No active rules."
	}
	cards := []string{
		metricCard("Completion", fmt.Sprintf("%.2f%%", st.CompletionRate)),
		metricCard("Current streak", strconv.Itoa(st.StreakCount)),
		metricCard("Longest streak", strconv.Itoa(report.LongestStreak)),
		metricCard("Active rules", strconv.Itoa(st.TotalRules)),
		metricCard("Days", strconv.Itoa(st.TotalDays)),
		metricCard("Ticks", fmt.Sprintf("%d / %d", st.TotalTicks, st.TotalPossibleTicks)),
	}
	var summary string
	if width < wideCardsLayout {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}

	lines := []string{summary, "", headerStyle.Render("Needs attention")}
	for _, rp := range stats.WeakestRules(st.RuleProgress, weakTop) {
		lines = append(lines, fmt.Sprintf("  %d. %s  %.2f%%", rp.RuleNumber, rp.RuleName, rp.CompletionRate))
	}
	lines = append(lines, "", headerStyle.Render("Most ticks"))
	for _, rp := range stats.TopRulesByTicks(st.RuleProgress, weakTop) {
		lines = append(lines, fmt.Sprintf("  %d. %s  %d", rp.RuleNumber, rp.RuleName, rp.TotalTicks))
	}
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderTrend(daily []model.DayCompletion, window, width int) string {
	if len(daily) == 0 {
		return "No days tracked."
	}
	var buf bytes.Buffer
	if err := stats.RenderTrendWithSize(&buf, daily, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func ruleColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Rule", Width: 24},
		{Title: "Completion", Width: 11},
		{Title: "Ticks", Width: 6},
		{Title: "Days", Width: 6},
		{Title: "Possible", Width: 8},
	}
}

func buildRuleRows(progress []model.RuleProgress) []table.Row {
	rows := make([]table.Row, 0, len(progress))
	for _, rp := range progress {
		rows = append(rows, table.Row{
			strconv.Itoa(rp.RuleNumber),
			rp.RuleName,
			fmt.Sprintf("%.2f%%", rp.CompletionRate),
			strconv.Itoa(rp.TotalTicks),
			strconv.Itoa(rp.TotalDays),
			strconv.Itoa(rp.PossibleCells),
		})
	}
	return rows
}

func buildRuleTable(progress []model.RuleProgress, width, height int) table.Model {
	t := table.New(
		table.WithColumns(ruleColumns()),
		table.WithRows(buildRuleRows(progress)),
		table.WithHeight(maxInt(1, height)),
	)
	t.SetWidth(width)
	t.SetStyles(ruleTableStyles())
	return t
}

func ruleTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	idx = (idx + count) % count
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	periodInput := strings.ToLower(strings.TrimSpace(m.filterInputs[0].Value()))
	period := calendar.ParsePeriod(periodInput)
	if periodInput != "" && string(period) != periodInput {
		return fmt.Errorf("invalid period %q", periodInput)
	}

	window, err := positiveInput(m.filterInputs[1].Value(), m.cfg.CurveWindow)
	if err != nil {
		return fmt.Errorf("invalid curve window (use integer >= 1)")
	}
	weakTop, err := positiveInput(m.filterInputs[2].Value(), m.cfg.WeakTop)
	if err != nil {
		return fmt.Errorf("invalid weakest count (use integer >= 1)")
	}

	m.cfg.Period = period
	m.cfg.CurveWindow = window
	m.cfg.WeakTop = weakTop
	return nil
}

func positiveInput(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid value %q", value)
	}
	return n, nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
