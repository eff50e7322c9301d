// Package daemon provides the long-running cache warmer service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/series"
)

// Refresher reloads datasets from the provider.
type Refresher interface {
	LoadMany(ctx context.Context, reqs []pipeline.Request, refresh bool, progressFn pipeline.ProgressFunc) []pipeline.Result
}

// Config controls the daemon runtime behavior.
type Config struct {
	Schedule     string
	Addr         string
	EventsBuffer int
	YearsAhead   int
	Boroughs     []string
	Logger       logrus.FieldLogger
}

// Snapshot is a compact cache state for status/event payloads.
type Snapshot struct {
	At             time.Time `json:"at"`
	Datasets       int       `json:"datasets"`
	Failed         int       `json:"failed"`
	Stale          int       `json:"stale"`
	RatioYear      int       `json:"ratio_year,omitempty"`
	LatestRatio    float64   `json:"latest_ratio"`
	ProjectedYear  int       `json:"projected_year,omitempty"`
	ProjectedRatio float64   `json:"projected_ratio"`
}

// Delta captures snapshot deltas between refreshes.
type Delta struct {
	Datasets       int     `json:"datasets"`
	Failed         int     `json:"failed"`
	LatestRatio    float64 `json:"latest_ratio"`
	ProjectedRatio float64 `json:"projected_ratio"`
}

func (d Delta) isZero() bool {
	return d.Datasets == 0 &&
		d.Failed == 0 &&
		d.LatestRatio == 0 &&
		d.ProjectedRatio == 0
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastRunAt       time.Time `json:"last_run_at"`
	NextRunAt       time.Time `json:"next_run_at,omitempty"`
	Schedule        string    `json:"schedule"`
	RunCount        int64     `json:"run_count"`
	YearsAhead      int       `json:"years_ahead"`
	Boroughs        []string  `json:"boroughs,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg       Config
	refresher Refresher
	log       logrus.FieldLogger
	cron      *cron.Cron
	entry     cron.EntryID

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	runCount    int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, r Refresher) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 */6 * * *"
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.YearsAhead == 0 {
		cfg.YearsAhead = 6
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		cfg:       cfg,
		refresher: r,
		log:       log.WithField("component", "daemon"),
		cron:      cron.New(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the daemon's HTTP routes.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	return r
}

// Run starts HTTP endpoints and scheduled refreshes until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.refreshOnce(ctx) })
	if err != nil {
		return fmt.Errorf("daemon schedule %q: %w", s.cfg.Schedule, err)
	}
	s.entry = id

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.WithFields(logrus.Fields{"addr": s.cfg.Addr, "schedule": s.cfg.Schedule}).Info("daemon started")

	// Seed initial snapshot so status is useful immediately.
	s.refreshOnce(ctx)
	s.cron.Start()

	select {
	case <-ctx.Done():
		<-s.cron.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.cron.Stop()
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) requests() []pipeline.Request {
	reqs := []pipeline.Request{pipeline.Overview(s.cfg.YearsAhead)}
	for _, b := range s.cfg.Boroughs {
		reqs = append(reqs, pipeline.Request{Borough: b, YearsAhead: s.cfg.YearsAhead})
	}
	return reqs
}

func (s *Service) refreshOnce(ctx context.Context) {
	start := time.Now()
	results := s.refresher.LoadMany(ctx, s.requests(), true, nil)
	now := time.Now()
	snap := snapshotFromResults(results, now)

	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			s.log.WithError(r.Err).WithField("dataset", r.Request.Label()).Warn("refresh failed")
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastRunAt = now
	s.runCount++
	s.lastError = ""
	if firstErr != nil {
		s.lastError = firstErr.Error()
	}

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "forecast_delta",
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}

	s.log.WithFields(logrus.Fields{
		"datasets": snap.Datasets,
		"failed":   snap.Failed,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("refresh complete")
}

// snapshotFromResults summarizes a refresh. Ratios come from the London
// overview, the first request.
func snapshotFromResults(results []pipeline.Result, at time.Time) Snapshot {
	snap := Snapshot{At: at}
	for i, r := range results {
		if r.Err != nil {
			snap.Failed++
			continue
		}
		snap.Datasets++
		if r.Origin == pipeline.OriginStale {
			snap.Stale++
		}
		if i != 0 || r.Request.Borough != "" {
			continue
		}
		chart, err := series.ProjectDataset(r.Dataset)
		if err != nil {
			continue
		}
		ratios := series.Ratios(chart)
		if latest, ok := series.Latest(ratios); ok {
			snap.RatioYear = latest.Year
			snap.LatestRatio = latest.Ratio
		}
		if n := len(ratios); n > 0 && ratios[n-1].Projected {
			snap.ProjectedYear = ratios[n-1].Year
			snap.ProjectedRatio = ratios[n-1].Ratio
		}
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Datasets:       curr.Datasets - prev.Datasets,
		Failed:         curr.Failed - prev.Failed,
		LatestRatio:    curr.LatestRatio - prev.LatestRatio,
		ProjectedRatio: curr.ProjectedRatio - prev.ProjectedRatio,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastRunAt:       s.lastRunAt,
		Schedule:        s.cfg.Schedule,
		RunCount:        s.runCount,
		YearsAhead:      s.cfg.YearsAhead,
		Boroughs:        s.cfg.Boroughs,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.entry != 0 {
		st.NextRunAt = s.cron.Entry(s.entry).Next
	}
	return st
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
