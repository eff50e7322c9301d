package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvAPIURL   = "LONDONGAP_API_URL"
	EnvLogLevel = "LONDONGAP_LOG_LEVEL"
	EnvFile     = "LONDONGAP_ENV_FILE"
)

// Config holds all londongap configuration.
type Config struct {
	General       GeneralConfig       `toml:"general"`
	API           APIConfig           `toml:"api"`
	Cache         CacheConfig         `toml:"cache"`
	Server        ServerConfig        `toml:"server"`
	Daemon        DaemonConfig        `toml:"daemon"`
	Appearance    AppearanceConfig    `toml:"appearance"`
	Affordability AffordabilityConfig `toml:"affordability"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	YearsAhead int    `toml:"years_ahead" validate:"gte=1,lte=20"`
	Model      string `toml:"model" validate:"omitempty,oneof=log-amortization linear-ratio"`
	Language   string `toml:"language" validate:"omitempty,bcp47_language_tag"`
	LogLevel   string `toml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn warning error"`
}

// APIConfig holds forecast provider settings.
type APIConfig struct {
	BaseURL       string `toml:"base_url" validate:"required,url"`
	TimeoutSec    int    `toml:"timeout_sec" validate:"gte=1,lte=300"`
	RatePerMinute int    `toml:"rate_per_minute" validate:"gte=0"`
	Burst         int    `toml:"burst" validate:"gte=0"`
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Disabled    bool `toml:"disabled"`
	MaxAgeHours int  `toml:"max_age_hours" validate:"gte=1"`
}

// MaxAge returns the freshness window as a duration.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr" validate:"required,hostname_port"`
}

// DaemonConfig holds cache warmer settings.
type DaemonConfig struct {
	Addr         string   `toml:"addr" validate:"required,hostname_port"`
	Schedule     string   `toml:"schedule" validate:"required"`
	Boroughs     []string `toml:"boroughs,omitempty"`
	EventsBuffer int      `toml:"events_buffer" validate:"gte=1,lte=10000"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme" validate:"oneof=flexoki-dark catppuccin-mocha tokyo-night terminal"`
}

// AffordabilityConfig overrides the calculator's constants. Unset fields
// keep the built-in values.
type AffordabilityConfig struct {
	SavingsRatio *float64 `toml:"savings_ratio,omitempty" validate:"omitempty,gt=0,lte=1"`
	MonthlyRate  *float64 `toml:"monthly_rate,omitempty" validate:"omitempty,gt=0,lt=1"`
	LinearMarkup *float64 `toml:"linear_markup,omitempty" validate:"omitempty,gt=0"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			YearsAhead: 6,
			Model:      "log-amortization",
			Language:   "en",
		},
		API: APIConfig{
			BaseURL:       "http://localhost:8000/api",
			TimeoutSec:    15,
			RatePerMinute: 60,
			Burst:         5,
		},
		Cache: CacheConfig{
			MaxAgeHours: 24,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			Schedule:     "0 */6 * * *",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "londongap")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "londongap")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Values from the environment (and a .env file) take precedence.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

var validate = validator.New()

// Validate checks every section against its constraints.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// loadEnv reads LONDONGAP_ENV_FILE if set, else a .env in the working
// directory when present. Existing environment variables win.
func loadEnv() error {
	if envFile := os.Getenv(EnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.General.LogLevel = strings.ToLower(v)
	}
}
