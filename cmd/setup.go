package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	vals := tui.SetupValuesFrom(cfg)
	form := tui.NewSetupForm(&vals)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	if err := vals.Apply(&cfg); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `londongap setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
