package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/config"
	"github.com/theirongolddev/londongap/internal/logging"
	"github.com/theirongolddev/londongap/internal/server"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calculator and forecast charts over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	e, err := newEnv(logging.FormatJSON)
	if err != nil {
		return err
	}
	defer e.Close()

	years, err := e.yearsAhead()
	if err != nil {
		return err
	}
	addr := flagServeAddr
	if addr == "" {
		addr = e.cfg.Server.Addr
	}

	cfg := e.cfg
	srv := server.New(server.Options{
		Loader: e.loader,
		Estimator: func(model, lang string) (*afford.Estimator, error) {
			return config.Estimator(cfg, model, lang)
		},
		DefaultYearsAhead: years,
		Logger:            e.log,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
