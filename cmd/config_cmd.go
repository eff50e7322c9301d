package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Years ahead: %d\n", cfg.General.YearsAhead)
	fmt.Printf("    Model:       %s\n", cfg.General.Model)
	fmt.Printf("    Language:    %s\n", cfg.General.Language)
	if cfg.General.LogLevel != "" {
		fmt.Printf("    Log level:   %s\n", cfg.General.LogLevel)
	}
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Printf("    Base URL:   %s\n", cfg.API.BaseURL)
	fmt.Printf("    Timeout:    %s\n", cfg.API.Timeout())
	if cfg.API.RatePerMinute > 0 {
		fmt.Printf("    Rate limit: %d/min (burst %d)\n", cfg.API.RatePerMinute, cfg.API.Burst)
	} else {
		fmt.Println("    Rate limit: off")
	}
	fmt.Println()

	fmt.Println("  [Cache]")
	if cfg.Cache.Disabled {
		fmt.Println("    Disabled")
	} else {
		fmt.Printf("    Max age: %s\n", cfg.Cache.MaxAge())
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Addr: %s\n", cfg.Server.Addr)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Addr:          %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Schedule:      %s\n", cfg.Daemon.Schedule)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	if len(cfg.Daemon.Boroughs) > 0 {
		fmt.Printf("    Boroughs:      %s\n", strings.Join(cfg.Daemon.Boroughs, ", "))
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Affordability]")
	p := config.AffordabilityParams(cfg)
	printOverride("Savings ratio", p.SavingsRatio)
	printOverride("Monthly rate", p.MonthlyRate)
	printOverride("Linear markup", p.LinearMarkup)
	fmt.Println()

	fmt.Println("  Run `londongap setup` to reconfigure.")
	return nil
}

func printOverride(label string, v float64) {
	if v == 0 {
		fmt.Printf("    %-14s built-in\n", label+":")
		return
	}
	fmt.Printf("    %-14s %g\n", label+":", v)
}
