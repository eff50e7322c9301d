package config

import "github.com/theirongolddev/londongap/internal/afford"

// AffordabilityParams converts the overrides into calculator parameters.
func AffordabilityParams(cfg Config) afford.Params {
	var p afford.Params
	if v := cfg.Affordability.SavingsRatio; v != nil {
		p.SavingsRatio = *v
	}
	if v := cfg.Affordability.MonthlyRate; v != nil {
		p.MonthlyRate = *v
	}
	if v := cfg.Affordability.LinearMarkup; v != nil {
		p.LinearMarkup = *v
	}
	return p
}

// Estimator builds the calculator for the configured model and language.
// A non-empty modelName or lang overrides the config.
func Estimator(cfg Config, modelName, lang string) (*afford.Estimator, error) {
	if modelName == "" {
		modelName = cfg.General.Model
	}
	if lang == "" {
		lang = cfg.General.Language
	}
	m, err := afford.ModelByName(modelName, AffordabilityParams(cfg))
	if err != nil {
		return nil, err
	}
	return afford.New(m, afford.NewMessages(lang)), nil
}
