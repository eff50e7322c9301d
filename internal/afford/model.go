package afford

import (
	"fmt"
	"math"
	"strings"
)

// Model names accepted by ModelByName and the config file.
const (
	LogAmortizationName = "log-amortization"
	LinearRatioName     = "linear-ratio"
)

const (
	// DefaultSavingsRatio is the share of gross annual salary put toward the purchase.
	DefaultSavingsRatio = 0.3
	// DefaultMonthlyRate is the assumed monthly rate (about 4.5% a year).
	DefaultMonthlyRate = 0.00375
	// DefaultLinearMarkup scales the price in the linear model.
	DefaultLinearMarkup = 1.045

	// maxMonths caps results so they always fit an int and stay meaningful.
	maxMonths = 12 * 100_000
)

// Model turns a validated salary and price into a month count.
type Model interface {
	Name() string
	Months(salary, price float64) (float64, error)
}

// LogAmortizationModel estimates months with a log-amortization identity:
// months = |ln(|1 - price*r/fee|) / ln(1+r)| where fee = salary*SavingsRatio.
type LogAmortizationModel struct {
	SavingsRatio float64
	MonthlyRate  float64
}

// Name implements Model.
func (LogAmortizationModel) Name() string { return LogAmortizationName }

// Months implements Model.
func (m LogAmortizationModel) Months(salary, price float64) (float64, error) {
	fee := salary * m.SavingsRatio
	if fee == 0 {
		return 0, &UndefinedResultError{Model: m.Name(), Reason: "zero savings fee"}
	}
	if m.MonthlyRate <= 0 {
		return 0, &UndefinedResultError{Model: m.Name(), Reason: "non-positive monthly rate"}
	}

	arg := math.Abs(1 - price*m.MonthlyRate/fee)
	if arg == 0 {
		return 0, &UndefinedResultError{Model: m.Name(), Reason: "logarithm of zero"}
	}

	months := math.Abs(math.Log(arg) / math.Log(1+m.MonthlyRate))
	return checkMonths(m.Name(), months)
}

// LinearRatioModel estimates months as price*Markup/fee, without compounding.
type LinearRatioModel struct {
	SavingsRatio float64
	Markup       float64
}

// Name implements Model.
func (LinearRatioModel) Name() string { return LinearRatioName }

// Months implements Model.
func (m LinearRatioModel) Months(salary, price float64) (float64, error) {
	fee := salary * m.SavingsRatio
	if fee == 0 {
		return 0, &UndefinedResultError{Model: m.Name(), Reason: "zero savings fee"}
	}
	return checkMonths(m.Name(), price*m.Markup/fee)
}

func checkMonths(model string, months float64) (float64, error) {
	switch {
	case math.IsNaN(months) || math.IsInf(months, 0):
		return 0, &UndefinedResultError{Model: model, Reason: "non-finite month count"}
	case months < 0:
		return 0, &UndefinedResultError{Model: model, Reason: "negative month count"}
	case months > maxMonths:
		return 0, &UndefinedResultError{Model: model, Reason: "month count out of range"}
	}
	return months, nil
}

// Params overrides model constants. Zero fields keep the defaults.
type Params struct {
	SavingsRatio float64
	MonthlyRate  float64
	LinearMarkup float64
}

// ModelByName returns the named model with params applied.
// An empty name selects the log-amortization model.
func ModelByName(name string, p Params) (Model, error) {
	ratio := orDefault(p.SavingsRatio, DefaultSavingsRatio)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LogAmortizationName:
		return LogAmortizationModel{
			SavingsRatio: ratio,
			MonthlyRate:  orDefault(p.MonthlyRate, DefaultMonthlyRate),
		}, nil
	case LinearRatioName:
		return LinearRatioModel{
			SavingsRatio: ratio,
			Markup:       orDefault(p.LinearMarkup, DefaultLinearMarkup),
		}, nil
	default:
		return nil, fmt.Errorf("unknown affordability model %q (want %s or %s)",
			name, LogAmortizationName, LinearRatioName)
	}
}

// ModelNames lists the selectable models, default first.
func ModelNames() []string {
	return []string{LogAmortizationName, LinearRatioName}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
