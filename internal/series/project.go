// Package series projects observed history and forecast bands onto a shared
// year axis for charting, and derives the two-year comparison insight.
package series

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/londongap/internal/model"
)

// ErrMalformedSeries is returned when projection input is inconsistent.
var ErrMalformedSeries = errors.New("malformed series")

// TimeSeries holds observed values on strictly increasing years.
type TimeSeries struct {
	Years  []int
	Values []float64
}

// ForecastSeries holds a central forecast and its bounds on one axis.
type ForecastSeries struct {
	Years   []int
	Central []float64
	Lower   []float64
	Upper   []float64
}

// ChartSeries is one metric laid out on the label axis. A nil entry means
// no value is drawn at that year. Estimate is the central forecast on the
// whole axis, observed years included; comparisons are taken from it.
type ChartSeries struct {
	Historical []*float64 `json:"historical"`
	Central    []*float64 `json:"forecast_central"`
	Upper      []*float64 `json:"forecast_upper"`
	Lower      []*float64 `json:"forecast_lower"`
	Estimate   []*float64 `json:"forecast_estimate"`
}

// Chart is a projected dataset: both metrics on a shared axis.
type Chart struct {
	Title              string      `json:"title"`
	Labels             []int       `json:"labels"`
	LastHistoricalYear int         `json:"last_historical_year"`
	HousePrice         ChartSeries `json:"house_price"`
	AnnualIncome       ChartSeries `json:"annual_income"`
	YearsAhead         int         `json:"years_ahead"`
	Note               string      `json:"note,omitempty"`
}

// Metric returns the projected series for m.
func (c Chart) Metric(m model.Metric) ChartSeries {
	if m == model.AnnualIncome {
		return c.AnnualIncome
	}
	return c.HousePrice
}

// Shown returns the value a chart displays at index i: the observed value
// when present, otherwise the central forecast.
func (s ChartSeries) Shown(i int) *float64 {
	if i < 0 || i >= len(s.Historical) {
		return nil
	}
	if v := s.Historical[i]; v != nil {
		return v
	}
	if i < len(s.Central) {
		return s.Central[i]
	}
	return nil
}

// IsProjected reports whether year is past the last observed year.
func (c Chart) IsProjected(year int) bool {
	return year > c.LastHistoricalYear
}

// Project lays history and forecast out on the forecast's year axis.
// Historical values appear for observed years, the central line starts at
// the last observed year so the two lines join, and bounds appear only for
// strictly later years.
func Project(history TimeSeries, forecast ForecastSeries) (ChartSeries, error) {
	if err := checkHistory(history); err != nil {
		return ChartSeries{}, err
	}
	if err := checkForecast(forecast); err != nil {
		return ChartSeries{}, err
	}

	observed := make(map[int]float64, len(history.Years))
	for i, y := range history.Years {
		observed[y] = history.Values[i]
	}
	lastHist := history.Years[len(history.Years)-1]

	n := len(forecast.Years)
	out := ChartSeries{
		Historical: make([]*float64, n),
		Central:    make([]*float64, n),
		Upper:      make([]*float64, n),
		Lower:      make([]*float64, n),
		Estimate:   make([]*float64, n),
	}
	for i, y := range forecast.Years {
		out.Estimate[i] = ptr(forecast.Central[i])
		if v, ok := observed[y]; ok {
			out.Historical[i] = ptr(v)
		}
		if y >= lastHist {
			out.Central[i] = ptr(forecast.Central[i])
		}
		if y > lastHist {
			out.Upper[i] = ptr(forecast.Upper[i])
			out.Lower[i] = ptr(forecast.Lower[i])
		}
	}
	return out, nil
}

// ProjectDataset projects both metrics of a provider dataset.
func ProjectDataset(d model.Dataset) (Chart, error) {
	c := Chart{
		Title:      d.Title,
		Labels:     append([]int(nil), d.Forecast.Years...),
		YearsAhead: d.Meta.YearsAhead,
		Note:       d.Meta.Note,
	}
	for _, m := range model.Metrics {
		cs, err := Project(HistoryOf(d, m), ForecastOf(d, m))
		if err != nil {
			return Chart{}, fmt.Errorf("project %s: %w", m, err)
		}
		if m == model.AnnualIncome {
			c.AnnualIncome = cs
		} else {
			c.HousePrice = cs
		}
	}
	c.LastHistoricalYear, _ = d.LastHistoricalYear()
	return c, nil
}

// HistoryOf extracts the observed series of m from d.
func HistoryOf(d model.Dataset, m model.Metric) TimeSeries {
	return TimeSeries{Years: d.History.Years, Values: d.History.Values(m)}
}

// ForecastOf extracts the forecast band of m from d.
func ForecastOf(d model.Dataset, m model.Metric) ForecastSeries {
	b := d.Forecast.Band(m)
	return ForecastSeries{Years: d.Forecast.Years, Central: b.Yhat, Lower: b.Lower, Upper: b.Upper}
}

func checkHistory(h TimeSeries) error {
	if len(h.Years) == 0 {
		return fmt.Errorf("%w: empty history", ErrMalformedSeries)
	}
	if len(h.Values) != len(h.Years) {
		return fmt.Errorf("%w: history has %d years and %d values", ErrMalformedSeries, len(h.Years), len(h.Values))
	}
	return checkIncreasing("history", h.Years)
}

func checkForecast(f ForecastSeries) error {
	n := len(f.Years)
	if len(f.Central) != n || len(f.Lower) != n || len(f.Upper) != n {
		return fmt.Errorf("%w: forecast has %d years but %d/%d/%d central/lower/upper values",
			ErrMalformedSeries, n, len(f.Central), len(f.Lower), len(f.Upper))
	}
	return checkIncreasing("forecast", f.Years)
}

func checkIncreasing(name string, years []int) error {
	for i := 1; i < len(years); i++ {
		if years[i] <= years[i-1] {
			return fmt.Errorf("%w: %s years not strictly increasing at %d", ErrMalformedSeries, name, years[i])
		}
	}
	return nil
}

func ptr(v float64) *float64 { return &v }
