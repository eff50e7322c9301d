// Package cmd implements the londongap CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/logging"
	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/source"
	"github.com/theirongolddev/londongap/internal/store"
)

var (
	flagAPIURL     string
	flagNoCache    bool
	flagQuiet      bool
	flagLogLevel   string
	flagDataFile   string
	flagYearsAhead int
)

var rootCmd = &cobra.Command{
	Use:   "londongap",
	Short: "London housing affordability forecasts",
	Long: "Explore house price and income forecasts for London and its boroughs,\n" +
		"and estimate how long it takes to afford a home.",
	Args:          cobra.MaximumNArgs(1),
	RunE:          runForecast,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Forecast API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite forecast cache")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagDataFile, "data-file", "", "Read forecasts from a saved archive instead of the API")
	rootCmd.PersistentFlags().IntVarP(&flagYearsAhead, "years-ahead", "y", 0, "Forecast horizon in years, 1-20 (default from config)")
}

// env is the wiring shared by every command that reads forecasts.
type env struct {
	cfg    config.Config
	log    *logrus.Logger
	loader *pipeline.Loader
	cache  *store.Cache
}

func (e *env) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// yearsAhead returns the flag value or the configured default, validated.
func (e *env) yearsAhead() (int, error) {
	n := flagYearsAhead
	if n == 0 {
		n = e.cfg.General.YearsAhead
	}
	if err := forecastapi.ValidateYearsAhead(n); err != nil {
		return 0, err
	}
	return n, nil
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagLogLevel != "" {
		cfg.General.LogLevel = flagLogLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config, format logging.Format) (*logrus.Logger, error) {
	level := cfg.General.LogLevel
	if level == "" && flagQuiet {
		level = "error"
	}
	if level == "" {
		// Long-running services log their lifecycle; one-shot commands stay quiet.
		level = "warn"
		if format == logging.FormatJSON {
			level = "info"
		}
	}
	return logging.New(logging.Options{Level: level, Format: format})
}

// newEnv builds the config, logger, fetcher and cache-backed loader.
// An empty format picks text on a terminal and JSON otherwise.
func newEnv(format logging.Format) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, format)
	if err != nil {
		return nil, err
	}

	fetcher, err := newFetcher(cfg, log)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}
	// Archives are read directly, never cached.
	if !flagNoCache && !cfg.Cache.Disabled && flagDataFile == "" {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			log.WithError(err).Warn("cache unavailable, fetching directly")
		} else {
			e.cache = cache
		}
	}

	e.loader = pipeline.NewLoader(fetcher, pipeline.Options{
		Cache:   e.cache,
		MaxAge:  cfg.Cache.MaxAge(),
		NoCache: flagNoCache,
		Logger:  log,
	})
	return e, nil
}

func newFetcher(cfg config.Config, log logrus.FieldLogger) (pipeline.Fetcher, error) {
	if flagDataFile != "" {
		archive, err := source.Load(flagDataFile)
		if err != nil {
			return nil, err
		}
		log.WithField("datasets", archive.Len()).Debug("using offline archive")
		return archive, nil
	}
	return forecastapi.NewClient(forecastapi.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout(),
		RatePerMinute: cfg.API.RatePerMinute,
		Burst:         cfg.API.Burst,
		Logger:        log,
	}), nil
}

// progressf prints a status line to stderr unless --quiet is set.
func progressf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
