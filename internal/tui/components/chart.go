package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/londongap/internal/money"
	"github.com/theirongolddev/londongap/internal/tui/theme"
)

// Bar is one year column of a BarChart.
type Bar struct {
	Label     string
	Value     float64
	Present   bool
	Projected bool
	Selected  bool
}

// Sparkline renders a unicode sparkline from values. Absent values render
// as a gap.
func Sparkline(bars []Bar) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := 0.0
	for _, b := range bars {
		if b.Present && b.Value > peak {
			peak = b.Value
		}
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, b := range bars {
		if !b.Present {
			buf.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(" "))
			continue
		}
		idx := int(b.Value / peak * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		style := lipgloss.NewStyle().Foreground(t.SeriesColor(b.Projected)).Background(t.Surface)
		buf.WriteString(style.Render(string(blocks[idx])))
	}
	return buf.String()
}

// BarChart renders one bar per year on a zero-based y-axis. Observed years
// use the accent color, projected years the forecast color, selected years
// are highlighted and cursor marks the focused bar (-1 for none).
func BarChart(bars []Bar, cursor, width, height int) string {
	if len(bars) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(bars)
	}

	t := theme.Active

	maxVal := 0.0
	for _, b := range bars {
		if b.Present && b.Value > maxVal {
			maxVal = b.Value
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Y-axis: compute tick step and ceiling
	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)

	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(lipgloss.Width(money.FormatCompactGBP(ceiling))+1, 4)
	tickLabels := make(map[int]string)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = money.FormatCompactGBP(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	n := len(bars)

	gap := 1
	if n <= 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	barW = max(1, min(barW, 6))
	axisLen := n*barW + max(0, n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for i, bar := range bars {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(strings.Repeat(" ", gap)))
			}
			style := barStyle(bar, i == cursor)
			switch {
			case !bar.Present:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			case bar.Value >= rowTop:
				b.WriteString(style.Render(strings.Repeat("█", barW)))
			case bar.Value > rowBottom:
				frac := (bar.Value - rowBottom) / (rowTop - rowBottom)
				idx := max(1, min(int(frac*8), 8))
				b.WriteString(style.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└"))
	b.WriteString(axisStyle.Render(strings.Repeat("─", axisLen)))

	b.WriteString("\n")
	b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
	b.WriteString(axisLabels(bars, cursor, barW, gap, axisLen))

	return b.String()
}

func barStyle(bar Bar, focused bool) lipgloss.Style {
	t := theme.Active
	color := t.SeriesColor(bar.Projected)
	if bar.Selected {
		color = t.Selected
	}
	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	if focused {
		style = style.Background(t.SurfaceBright)
	}
	return style
}

// axisLabels spaces year labels so they never overlap, always keeping the
// focused and last bars labelled.
func axisLabels(bars []Bar, cursor, barW, gap, axisLen int) string {
	t := theme.Active
	n := len(bars)
	buf := []byte(strings.Repeat(" ", axisLen))

	place := func(i int) bool {
		lbl := bars[i].Label
		pos := i * (barW + gap)
		if pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos < 0 {
			return false
		}
		for j := max(0, pos-1); j < min(axisLen, pos+len(lbl)+1); j++ {
			if buf[j] != ' ' {
				return false
			}
		}
		copy(buf[pos:], lbl)
		return true
	}

	if cursor >= 0 && cursor < n {
		place(cursor)
	}
	if n > 1 {
		place(n - 1)
	}
	for i := 0; i < n; i++ {
		place(i)
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	return labelStyle.Render(strings.TrimRight(string(buf), " "))
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}
