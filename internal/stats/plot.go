package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// Plot is a braille line chart of percentage series on a fixed 0-100% scale.
type Plot struct {
	Title  string
	Series []Series
	// Width and Height are in terminal cells. Zero picks defaults.
	Width  int
	Height int
	// From and To label the two ends of the x axis.
	From  string
	To    string
	Color bool
}

type dash struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelTop        = "100%"
	axisLabelMid        = "50%"
	axisLabelBottom     = "0%"
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var dashes = []dash{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
}

var palette = []string{"\x1b[32m", "\x1b[36m", "\x1b[33m", "\x1b[35m"}

// PlotSeries renders series with default options.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return Plot{Title: title, Series: series, Width: width, Height: height}.Render(w)
}

// PlotSeriesWithColor renders series, forcing ANSI colors when forceColor is set.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	return Plot{Title: title, Series: series, Width: width, Height: height, Color: forceColor}.Render(w)
}

// Render writes the chart, its per-series summary and a legend to w.
func (p Plot) Render(w io.Writer) error {
	series := make([]Series, 0, len(p.Series))
	for _, s := range p.Series {
		if len(s.Values) > 0 {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return nil
	}
	width, height := p.Width, p.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	canvases := make([]*canvas, len(series))
	for i, s := range series {
		canvases[i] = newCanvas(width, height)
		canvases[i].trace(resample(s.Values, width), dashes[i%len(dashes)])
	}
	useColor := shouldUseColor(w, p.Color)

	var out strings.Builder
	if p.Title != "" {
		out.WriteString(p.Title + "\n")
	}
	for _, s := range series {
		lo, hi := minMax(s.Values)
		fmt.Fprintf(&out, "%s: min=%.2f%% avg=%.2f%% max=%.2f%%\n", s.Name, lo, mean(s.Values), hi)
	}
	labels := axisLabels(height)
	axisWidth := runewidth.StringWidth(axisLabelTop)
	for y := 0; y < height; y++ {
		out.WriteString(runewidth.FillLeft(labels[y], axisWidth))
		out.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := overlay(canvases, x, y)
			ch := string(rune(0x2800 + int(mask)))
			if useColor && owner >= 0 {
				ch = palette[owner%len(palette)] + ch + colorReset
			}
			out.WriteString(ch)
		}
		out.WriteByte('\n')
	}
	if p.From != "" || p.To != "" {
		pad := width - runewidth.StringWidth(p.From) - runewidth.StringWidth(p.To)
		if pad < 1 {
			pad = 1
		}
		out.WriteString(strings.Repeat(" ", axisWidth+runewidth.StringWidth(axisSeparator)))
		out.WriteString(p.From + strings.Repeat(" ", pad) + p.To + "\n")
	}
	out.WriteString(legend(series, useColor) + "\n\n")
	_, err := io.WriteString(w, out.String())
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - runewidth.StringWidth(axisLabelTop) - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

// canvas is a grid of braille cells, each holding 2x4 dots.
type canvas struct {
	width  int
	height int
	cells  [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{width: width, height: height, cells: cells}
}

// trace draws values as a connected line, one value per cell column.
func (c *canvas) trace(values []float64, d dash) {
	dotRows := c.height * 4
	prevX, prevY := -1, -1
	for i, v := range values {
		x := i * 2
		y := percentToRow(v, dotRows)
		if prevX < 0 {
			if d.draws(x) {
				c.dot(x, y)
			}
		} else {
			c.line(prevX, prevY, x, y, d)
		}
		prevX, prevY = x, y
	}
}

func (c *canvas) line(x0, y0, x1, y1 int, d dash) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if d.draws(x0) {
			c.dot(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Dot bit layout of a braille cell, indexed by [row][column].
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func (c *canvas) dot(x, y int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.width || cy >= c.height {
		return
	}
	c.cells[cy][cx] |= brailleBits[y%4][x%2]
}

func (d dash) draws(x int) bool {
	if d.period <= 1 {
		return true
	}
	return abs(x)%d.period < d.on
}

// overlay merges the dots of all canvases at one cell and reports the first
// canvas that has a dot there, or -1.
func overlay(canvases []*canvas, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, c := range canvases {
		m := c.cells[y][x]
		if m == 0 {
			continue
		}
		if owner < 0 {
			owner = i
		}
		mask |= m
	}
	return mask, owner
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			out[i] = mean(values[start:end])
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func percentToRow(v float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	v = math.Max(0, math.Min(100, v))
	return int(math.Round((1 - v/100) * float64(rows-1)))
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = axisLabelTop
	if height > 2 {
		labels[height/2] = axisLabelMid
	}
	if height > 1 {
		labels[height-1] = axisLabelBottom
	}
	return labels
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%s (%s)", s.Name, dashes[i%len(dashes)].name)
		if useColor {
			label = palette[i%len(palette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
