package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/tui"
	"github.com/theirongolddev/londongap/internal/tui/theme"
)

var (
	flagTUIBorough string
	flagTUIModel   string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive forecast explorer",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&flagTUIBorough, "borough", "b", "", "Borough to open (default: London overview)")
	tuiCmd.Flags().StringVar(&flagTUIModel, "model", "", "Affordability model for the calculator")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	e, err := newEnv("")
	if err != nil {
		return err
	}
	defer e.Close()

	// Log lines would tear the alt screen.
	e.log.SetOutput(io.Discard)

	years, err := e.yearsAhead()
	if err != nil {
		return err
	}
	est, err := config.Estimator(e.cfg, flagTUIModel, "")
	if err != nil {
		return err
	}

	theme.SetActive(e.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Loader:     e.loader,
		Estimator:  est,
		Config:     e.cfg,
		YearsAhead: years,
		Borough:    flagTUIBorough,
		NeedSetup:  !config.Exists(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
