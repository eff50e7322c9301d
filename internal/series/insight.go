package series

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/money"
)

// ErrYearNotFound is returned when a requested year is not on the axis.
var ErrYearNotFound = errors.New("year not found")

// YearNotFoundError names the missing year.
type YearNotFoundError struct {
	Year int
}

func (e *YearNotFoundError) Error() string {
	return fmt.Sprintf("year %d not found in series", e.Year)
}

func (e *YearNotFoundError) Unwrap() error { return ErrYearNotFound }

// InsightSeries is the per-year data an insight is computed from.
type InsightSeries struct {
	Title        string
	Years        []int
	HousePrice   []*float64
	AnnualIncome []*float64
}

// InsightSeriesOf compares central forecast values on the full axis, so an
// observed year is read from the fitted line rather than the raw history.
func InsightSeriesOf(c Chart) InsightSeries {
	s := InsightSeries{
		Title:        c.Title,
		Years:        c.Labels,
		HousePrice:   make([]*float64, len(c.Labels)),
		AnnualIncome: make([]*float64, len(c.Labels)),
	}
	for i := range c.Labels {
		s.HousePrice[i] = at(c.HousePrice.Estimate, i)
		s.AnnualIncome[i] = at(c.AnnualIncome.Estimate, i)
	}
	return s
}

// Change is a metric's movement between two years. Pct is nil when the
// starting value is zero or either value is absent.
type Change struct {
	From *float64 `json:"from"`
	To   *float64 `json:"to"`
	Pct  *float64 `json:"pct"`
}

// Insight compares two years of a series.
type Insight struct {
	Title        string `json:"title"`
	From         int    `json:"from"`
	To           int    `json:"to"`
	HousePrice   Change `json:"house_price"`
	AnnualIncome Change `json:"annual_income"`
	Message      string `json:"message"`
}

// Metric returns the change of m.
func (in Insight) Metric(m model.Metric) Change {
	if m == model.AnnualIncome {
		return in.AnnualIncome
	}
	return in.HousePrice
}

// ComputeInsight reports how both metrics moved from y1 to y2.
func ComputeInsight(s InsightSeries, y1, y2 int) (Insight, error) {
	i1, err := indexOf(s.Years, y1)
	if err != nil {
		return Insight{}, err
	}
	i2, err := indexOf(s.Years, y2)
	if err != nil {
		return Insight{}, err
	}

	in := Insight{
		Title:        s.Title,
		From:         y1,
		To:           y2,
		HousePrice:   change(at(s.HousePrice, i1), at(s.HousePrice, i2)),
		AnnualIncome: change(at(s.AnnualIncome, i1), at(s.AnnualIncome, i2)),
	}
	in.Message = fmt.Sprintf("%s: From %d to %d, house price went from %s to %s (%s). Income went from %s to %s (%s).",
		in.Title, y1, y2,
		gbp(in.HousePrice.From), gbp(in.HousePrice.To), money.FormatPercent(in.HousePrice.Pct),
		gbp(in.AnnualIncome.From), gbp(in.AnnualIncome.To), money.FormatPercent(in.AnnualIncome.Pct))
	return in, nil
}

// PercentChange returns (to-from)/from*100, or nil when undefined.
func PercentChange(from, to *float64) *float64 {
	if from == nil || to == nil || *from == 0 {
		return nil
	}
	return ptr((*to - *from) / *from * 100)
}

func change(from, to *float64) Change {
	return Change{From: from, To: to, Pct: PercentChange(from, to)}
}

func indexOf(years []int, y int) (int, error) {
	for i, v := range years {
		if v == y {
			return i, nil
		}
	}
	return -1, &YearNotFoundError{Year: y}
}

func at(vals []*float64, i int) *float64 {
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}

func gbp(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return money.FormatGBP(*v)
}
