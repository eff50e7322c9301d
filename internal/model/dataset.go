// Package model defines the forecast provider's data shapes shared across
// the client, cache, and projection layers.
package model

// Metric names a tracked yearly quantity.
type Metric string

// Tracked metrics, in display order.
const (
	HousePrice   Metric = "house_price"
	AnnualIncome Metric = "annual_income"
)

// Metrics lists every tracked metric.
var Metrics = []Metric{HousePrice, AnnualIncome}

// Label returns a human-readable metric name.
func (m Metric) Label() string {
	switch m {
	case HousePrice:
		return "House price"
	case AnnualIncome:
		return "Annual income"
	}
	return string(m)
}

// History holds observed yearly values.
type History struct {
	Years        []int     `json:"years"`
	HousePrice   []float64 `json:"house_price"`
	AnnualIncome []float64 `json:"annual_income"`
}

// Values returns the observed values for m.
func (h History) Values(m Metric) []float64 {
	if m == AnnualIncome {
		return h.AnnualIncome
	}
	return h.HousePrice
}

// Band is a central forecast with its uncertainty bounds.
type Band struct {
	Yhat  []float64 `json:"yhat"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// Forecast holds projected values on the full year axis.
type Forecast struct {
	Years        []int `json:"years"`
	HousePrice   Band  `json:"house_price"`
	AnnualIncome Band  `json:"annual_income"`
}

// Band returns the forecast band for m.
func (f Forecast) Band(m Metric) Band {
	if m == AnnualIncome {
		return f.AnnualIncome
	}
	return f.HousePrice
}

// Meta carries the provider's request echo and caveat.
type Meta struct {
	YearsAhead int    `json:"years_ahead"`
	Note       string `json:"note,omitempty"`
}

// Dataset is one forecast response: London overview or a single borough.
type Dataset struct {
	Title    string   `json:"title"`
	History  History  `json:"history"`
	Forecast Forecast `json:"forecast"`
	Meta     Meta     `json:"meta"`
}

// LastHistoricalYear returns the latest observed year and false when the
// history is empty.
func (d Dataset) LastHistoricalYear() (int, bool) {
	if len(d.History.Years) == 0 {
		return 0, false
	}
	last := d.History.Years[0]
	for _, y := range d.History.Years[1:] {
		if y > last {
			last = y
		}
	}
	return last, true
}
