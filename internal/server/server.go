// Package server exposes the calculator and projected charts over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/pipeline"
)

// Loader is the dataset source the handlers read from.
type Loader interface {
	Load(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Boroughs(ctx context.Context) ([]string, error)
	Resolve(ctx context.Context, query string) (string, error)
}

// EstimatorFunc builds a calculator for a model name and language. Empty
// arguments select the configured defaults.
type EstimatorFunc func(model, lang string) (*afford.Estimator, error)

// Options configures New.
type Options struct {
	Loader            Loader
	Estimator         EstimatorFunc
	DefaultYearsAhead int
	Logger            logrus.FieldLogger
}

// Server routes the HTTP API.
type Server struct {
	router     *mux.Router
	loader     Loader
	estimator  EstimatorFunc
	yearsAhead int
	validate   *validator.Validate
	log        logrus.FieldLogger
}

// New builds the router.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	est := opts.Estimator
	if est == nil {
		est = func(model, lang string) (*afford.Estimator, error) {
			m, err := afford.ModelByName(model, afford.Params{})
			if err != nil {
				return nil, err
			}
			return afford.New(m, afford.NewMessages(lang)), nil
		}
	}
	years := opts.DefaultYearsAhead
	if years == 0 {
		years = forecastapi.DefaultYearsAhead
	}

	s := &Server{
		router:     mux.NewRouter(),
		loader:     opts.Loader,
		estimator:  est,
		yearsAhead: years,
		validate:   validator.New(),
		log:        log.WithField("component", "server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestIDMiddleware, s.recoverMiddleware, s.logMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/estimate", s.handleEstimate).Methods(http.MethodPost)
	api.HandleFunc("/boroughs", s.handleBoroughs).Methods(http.MethodGet)
	api.HandleFunc("/chart", s.handleChart).Methods(http.MethodGet)
	api.HandleFunc("/chart.svg", s.handleChartSVG).Methods(http.MethodGet)
	api.HandleFunc("/insight", s.handleInsight).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
