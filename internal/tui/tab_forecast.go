package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/londongap/internal/cli"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/money"
	"github.com/theirongolddev/londongap/internal/series"
	"github.com/theirongolddev/londongap/internal/tui/components"
	"github.com/theirongolddev/londongap/internal/tui/theme"
)

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "borough name, e.g. camden"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

// defaultCursor places the cursor on the last observed year.
func (a App) defaultCursor() int {
	for i, y := range a.chart.Labels {
		if y == a.chart.LastHistoricalYear {
			return i
		}
	}
	return 0
}

func (a App) updateForecast(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "/":
		a.searching = true
		a.search.SetValue("")
		return a, a.search.Focus()
	case "o":
		if a.borough != "" && !a.loading {
			a.loading = true
			return a, a.loadCmd("")
		}
		return a, nil
	case "R":
		if !a.loading {
			a.loading = true
			return a, a.loadCmd(a.borough)
		}
		return a, nil
	case "m":
		if a.metric == model.HousePrice {
			a.metric = model.AnnualIncome
		} else {
			a.metric = model.HousePrice
		}
		return a, nil
	}

	if !a.loaded || len(a.chart.Labels) == 0 {
		return a, nil
	}

	last := len(a.chart.Labels) - 1
	switch key {
	case "left", "h":
		a.cursor = max(a.cursor-1, 0)
	case "right", "l":
		a.cursor = min(a.cursor+1, last)
	case "home", "g":
		a.cursor = 0
	case "end", "G":
		a.cursor = last
	case " ", "space", "enter":
		a = a.selectYear(a.chart.Labels[a.cursor])
	case "r":
		a.selection = a.selection.Reset()
		a.insight = nil
	}
	return a, nil
}

// selectYear advances the selection and recomputes the comparison when two
// years are picked.
func (a App) selectYear(year int) App {
	a.selection = series.SelectYear(a.selection, year)
	a.insight = nil
	if from, to, ok := a.selection.Range(); ok {
		if in, err := series.ComputeInsight(series.InsightSeriesOf(a.chart), from, to); err == nil {
			a.insight = &in
		}
	}
	return a
}

func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := strings.TrimSpace(a.search.Value())
		a.searching = false
		a.search.Blur()
		if query == "" {
			return a, nil
		}
		a.loading = true
		return a, a.loadCmd(query)
	case "esc":
		a.searching = false
		a.search.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

func (a App) bars() []components.Bar {
	cs := a.chart.Metric(a.metric)
	bars := make([]components.Bar, len(a.chart.Labels))
	for i, y := range a.chart.Labels {
		bar := components.Bar{
			Label:     strconv.Itoa(y),
			Projected: a.chart.IsProjected(y),
			Selected:  a.selection.Contains(y),
		}
		if v := cs.Shown(i); v != nil {
			bar.Value = *v
			bar.Present = true
		}
		bars[i] = bar
	}
	return bars
}

func (a App) renderForecastTab(cw, contentH int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)
	errStyle := lipgloss.NewStyle().Foreground(t.Error).Background(t.Background)

	var b strings.Builder
	if a.searching {
		b.WriteString(components.ContentCard("Load borough", a.search.View(), cw))
		b.WriteString("\n")
	}
	if a.loadErr != nil {
		b.WriteString(errStyle.Render("  " + a.loadErr.Error()))
		b.WriteString("\n")
	}
	if !a.loaded {
		if a.loading {
			b.WriteString(muted.Render("  " + a.spinner.View() + " Loading forecast…"))
		}
		return b.String()
	}

	b.WriteString(components.MetricCardRow(a.summaryCards(), cw))
	b.WriteString("\n")

	title := fmt.Sprintf("%s · %s", a.chart.Title, a.metric.Label())
	chartH := max(contentH-lipgloss.Height(b.String())-12, 6)
	chart := components.BarChart(a.bars(), a.cursor, components.CardInnerWidth(cw), chartH)
	b.WriteString(components.ContentCard(title, chart, cw))
	b.WriteString("\n")

	b.WriteString(components.ContentCard("Compare years", a.renderInsight(), cw))
	if a.chart.Note != "" {
		b.WriteString("\n")
		b.WriteString(muted.Render("  " + a.chart.Note))
	}
	return b.String()
}

func (a App) summaryCards() []components.Card {
	t := theme.Active
	cs := a.chart.Metric(a.metric)
	var cards []components.Card

	if a.cursor < len(a.chart.Labels) {
		y := a.chart.Labels[a.cursor]
		card := components.Card{Label: fmt.Sprintf("%s %d", a.metric.Label(), y), Value: "N/A"}
		if v := cs.Shown(a.cursor); v != nil {
			card.Value = money.FormatGBP(*v)
		}
		if a.chart.IsProjected(y) {
			card.Color = t.Projected
			card.Note = fmt.Sprintf("range %s – %s",
				cli.FormatMaybeGBP(cs.Lower[a.cursor]), cli.FormatMaybeGBP(cs.Upper[a.cursor]))
		} else {
			card.Note = "observed"
		}
		cards = append(cards, card)
	}

	ratios := series.Ratios(a.chart)
	if latest, ok := series.Latest(ratios); ok {
		cards = append(cards, components.Card{
			Label: "Price to income",
			Value: cli.FormatRatio(latest.Ratio),
			Note:  strconv.Itoa(latest.Year),
		})
	}
	if n := len(ratios); n > 0 && ratios[n-1].Projected {
		cards = append(cards, components.Card{
			Label: "Projected ratio",
			Value: cli.FormatRatio(ratios[n-1].Ratio),
			Note:  strconv.Itoa(ratios[n-1].Year),
			Color: t.Projected,
		})
	}
	cards = append(cards, components.Card{
		Label: "Selection",
		Value: a.selection.String(),
		Note:  fmt.Sprintf("%d years ahead", a.chart.YearsAhead),
	})
	return cards
}

func (a App) renderInsight() string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	text := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	if a.insight == nil {
		return muted.Render("Press space on two years to compare them.")
	}
	in := a.insight
	line := func(m model.Metric) string {
		c := in.Metric(m)
		return fmt.Sprintf("%-14s %s → %s  %s", m.Label(),
			cli.FormatMaybeGBP(c.From), cli.FormatMaybeGBP(c.To), cli.FormatDelta(c.Pct))
	}
	return text.Render(line(model.HousePrice)) + "\n" +
		text.Render(line(model.AnnualIncome)) + "\n" +
		muted.Render(in.Message)
}
