// Package afford estimates how long it takes to afford a property and
// classifies the answer into a severity tier.
package afford

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Status is the severity tier of a result.
type Status string

// Result tiers, worst first.
const (
	StatusError   Status = "error"
	StatusWarning Status = "warning"
	StatusSuccess Status = "success"
)

// Tier thresholds on total age. Bounds are exclusive: a total of exactly
// 80 is a warning, not an error.
const (
	ImpossibleAbove = 80
	HardlyAbove     = 50
	PossibleAbove   = 30
)

// Input is one calculator request.
type Input struct {
	Salary float64 `json:"salary" validate:"gt=0"`
	Price  float64 `json:"price" validate:"gt=0"`
	Age    *int    `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
}

// Result is the computed affordability estimate.
type Result struct {
	Years    int    `json:"years"`
	Months   int    `json:"months"`
	TotalAge int    `json:"total_age"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Model    string `json:"model"`
}

var validate = validator.New()

// Estimator computes results with one model and one message language.
// It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	model    Model
	messages *Messages
}

// New returns an estimator. A nil model selects the default log-amortization
// model; a nil messages renders English.
func New(model Model, messages *Messages) *Estimator {
	if model == nil {
		model, _ = ModelByName("", Params{})
	}
	if messages == nil {
		messages = NewMessages(DefaultLanguage)
	}
	return &Estimator{model: model, messages: messages}
}

// Model returns the estimator's model.
func (e *Estimator) Model() Model { return e.model }

// Estimate validates in and computes the years and months until the price is
// covered, then classifies the total age.
func (e *Estimator) Estimate(in Input) (Result, error) {
	if err := Validate(in); err != nil {
		return Result{}, err
	}

	months, err := e.model.Months(in.Salary, in.Price)
	if err != nil {
		return Result{}, err
	}

	whole := int(math.Floor(months))
	years := whole / 12
	rem := whole - years*12

	total := years
	if in.Age != nil {
		total += *in.Age
	}

	status, id := classify(total)
	return Result{
		Years:    years,
		Months:   rem,
		TotalAge: total,
		Status:   status,
		Message:  e.messages.render(id, years, rem),
		Model:    e.model.Name(),
	}, nil
}

// Estimate runs the default estimator (log-amortization, English).
func Estimate(in Input) (Result, error) {
	return defaultEstimator.Estimate(in)
}

var defaultEstimator = New(nil, nil)

// Classify returns the tier for a total age.
func Classify(totalAge int) Status {
	s, _ := classify(totalAge)
	return s
}

func classify(totalAge int) (Status, string) {
	switch {
	case totalAge > ImpossibleAbove:
		return StatusError, msgImpossible
	case totalAge > HardlyAbove:
		return StatusWarning, msgHardly
	case totalAge > PossibleAbove:
		return StatusSuccess, msgPossible
	default:
		return StatusSuccess, msgComfortable
	}
}

// Validate checks an input without computing anything. Failures are
// *InvalidInputError values.
func Validate(in Input) error {
	// +Inf satisfies gt=0, so non-finite values are rejected up front.
	if math.IsNaN(in.Salary) || math.IsInf(in.Salary, 0) {
		return &InvalidInputError{Field: "salary", Reason: "must be a finite number"}
	}
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return &InvalidInputError{Field: "price", Reason: "must be a finite number"}
	}

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InvalidInputError{Field: "input", Reason: err.Error()}
	}

	fe := verrs[0]
	return &InvalidInputError{Field: jsonField(fe.Field()), Reason: reason(fe)}
}

func jsonField(structField string) string {
	switch structField {
	case "Salary":
		return "salary"
	case "Price":
		return "price"
	case "Age":
		return "age"
	}
	return structField
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "failed " + fe.Tag()
}
