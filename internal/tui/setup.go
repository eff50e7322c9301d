package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/tui/theme"
)

// SetupValues are the answers collected by the setup form.
type SetupValues struct {
	APIURL     string
	YearsAhead string
	Model      string
	Language   string
	Theme      string
}

// SetupValuesFrom pre-fills the form from cfg.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		APIURL:     cfg.API.BaseURL,
		YearsAhead: strconv.Itoa(cfg.General.YearsAhead),
		Model:      cfg.General.Model,
		Language:   cfg.General.Language,
		Theme:      cfg.Appearance.Theme,
	}
}

// NewSetupForm builds the first-run form writing into v.
func NewSetupForm(v *SetupValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to londongap").
				Description("London housing affordability forecasts.\nSettings are saved to "+config.ConfigPath()),
			huh.NewInput().
				Title("Forecast API base URL").
				Value(&v.APIURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("Years to forecast").
				Description(fmt.Sprintf("%d to %d", forecastapi.MinYearsAhead, forecastapi.MaxYearsAhead)).
				Value(&v.YearsAhead).
				Validate(validateYearsAhead),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Calculator model").
				Options(huh.NewOptions(afford.ModelNames()...)...).
				Value(&v.Model),
			huh.NewSelect[string]().
				Title("Message language").
				Options(huh.NewOptions(afford.Languages()...)...).
				Value(&v.Language),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		),
	)
}

// Apply copies the answers into cfg and validates the result.
func (v SetupValues) Apply(cfg *config.Config) error {
	if err := validateBaseURL(v.APIURL); err != nil {
		return err
	}
	n, err := parseYearsAhead(v.YearsAhead)
	if err != nil {
		return err
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(v.APIURL), "/")
	cfg.General.YearsAhead = n
	if v.Model != "" {
		cfg.General.Model = v.Model
	}
	if v.Language != "" {
		cfg.General.Language = v.Language
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
	return config.Validate(*cfg)
}

func validateBaseURL(s string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

func validateYearsAhead(s string) error {
	_, err := parseYearsAhead(s)
	return err
}

func parseYearsAhead(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.New("enter a whole number")
	}
	if err := forecastapi.ValidateYearsAhead(n); err != nil {
		return 0, err
	}
	return n, nil
}
