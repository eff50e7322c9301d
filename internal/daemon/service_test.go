package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/pipeline"
)

type fakeRefresher struct {
	calls   int
	fail    bool
	lastReq []pipeline.Request
}

func (f *fakeRefresher) LoadMany(_ context.Context, reqs []pipeline.Request, _ bool, _ pipeline.ProgressFunc) []pipeline.Result {
	f.calls++
	f.lastReq = reqs
	out := make([]pipeline.Result, len(reqs))
	for i, r := range reqs {
		out[i] = pipeline.Result{Request: r, Dataset: overviewDataset(), Origin: pipeline.OriginNetwork}
		if f.fail && r.Borough != "" {
			out[i] = pipeline.Result{Request: r, Err: errors.New("upstream down")}
		}
	}
	return out
}

func overviewDataset() model.Dataset {
	return model.Dataset{
		Title: "London",
		History: model.History{
			Years:        []int{2020, 2021, 2022},
			HousePrice:   []float64{300000, 310000, 320000},
			AnnualIncome: []float64{40000, 40000, 40000},
		},
		Forecast: model.Forecast{
			Years: []int{2020, 2021, 2022, 2023, 2024},
			HousePrice: model.Band{
				Yhat:  []float64{300000, 310000, 320000, 330000, 340000},
				Lower: []float64{300000, 310000, 320000, 320000, 325000},
				Upper: []float64{300000, 310000, 320000, 340000, 355000},
			},
			AnnualIncome: model.Band{
				Yhat:  []float64{40000, 40000, 40000, 40000, 40000},
				Lower: []float64{40000, 40000, 40000, 39000, 38000},
				Upper: []float64{40000, 40000, 40000, 41000, 42000},
			},
		},
		Meta: model.Meta{YearsAhead: 2},
	}
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Datasets:       3,
		Failed:         1,
		LatestRatio:    8.0,
		ProjectedRatio: 8.5,
	}
	curr := Snapshot{
		Datasets:       4,
		Failed:         0,
		LatestRatio:    8.25,
		ProjectedRatio: 9.0,
	}

	delta := diffSnapshots(prev, curr)
	if delta.Datasets != 1 {
		t.Fatalf("Datasets delta = %d, want 1", delta.Datasets)
	}
	if delta.Failed != -1 {
		t.Fatalf("Failed delta = %d, want -1", delta.Failed)
	}
	if math.Abs(delta.LatestRatio-0.25) > 1e-9 {
		t.Fatalf("LatestRatio delta = %.2f, want 0.25", delta.LatestRatio)
	}
	if math.Abs(delta.ProjectedRatio-0.5) > 1e-9 {
		t.Fatalf("ProjectedRatio delta = %.2f, want 0.50", delta.ProjectedRatio)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots should produce a zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		Schedule:     "@every 1m",
		EventsBuffer: 2,
		Logger:       quietLogger(),
	}, &fakeRefresher{})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestSnapshotFromResults(t *testing.T) {
	results := []pipeline.Result{
		{Request: pipeline.Overview(2), Dataset: overviewDataset(), Origin: pipeline.OriginNetwork},
		{Request: pipeline.Request{Borough: "Camden", YearsAhead: 2}, Dataset: overviewDataset(), Origin: pipeline.OriginStale},
		{Request: pipeline.Request{Borough: "Hackney", YearsAhead: 2}, Err: errors.New("boom")},
	}

	snap := snapshotFromResults(results, fixedNow)
	if snap.Datasets != 2 || snap.Failed != 1 || snap.Stale != 1 {
		t.Fatalf("counts = %d/%d/%d, want 2/1/1", snap.Datasets, snap.Failed, snap.Stale)
	}
	if snap.RatioYear != 2022 || math.Abs(snap.LatestRatio-8.0) > 1e-9 {
		t.Fatalf("latest = %d %.2f, want 2022 8.00", snap.RatioYear, snap.LatestRatio)
	}
	if snap.ProjectedYear != 2024 || math.Abs(snap.ProjectedRatio-8.5) > 1e-9 {
		t.Fatalf("projected = %d %.2f, want 2024 8.50", snap.ProjectedYear, snap.ProjectedRatio)
	}
}

func TestRefreshOnceEmitsEventsOnChange(t *testing.T) {
	r := &fakeRefresher{}
	s := New(Config{
		YearsAhead: 2,
		Boroughs:   []string{"Camden"},
		Logger:     quietLogger(),
	}, r)

	s.refreshOnce(context.Background())
	if len(r.lastReq) != 2 || r.lastReq[0].Borough != "" || r.lastReq[1].Borough != "Camden" {
		t.Fatalf("requests = %+v, want overview then Camden", r.lastReq)
	}

	s.refreshOnce(context.Background())

	r.fail = true
	s.refreshOnce(context.Background())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.runCount != 3 {
		t.Fatalf("runCount = %d, want 3", s.runCount)
	}
	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Type != "snapshot" {
		t.Fatalf("first event type = %q, want snapshot", s.events[0].Type)
	}
	if s.events[1].Type != "forecast_delta" || s.events[1].Delta.Failed != 1 {
		t.Fatalf("second event = %+v, want forecast_delta with one failure", s.events[1])
	}
	if s.lastError != "upstream down" {
		t.Fatalf("lastError = %q, want upstream down", s.lastError)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := New(Config{YearsAhead: 2, Logger: quietLogger()}, &fakeRefresher{})
	s.refreshOnce(context.Background())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.RunCount != 1 || st.Summary.Datasets != 1 || st.EventCount != 1 {
		t.Fatalf("status = %+v, want one run, one dataset, one event", st)
	}
	if st.Schedule != "0 */6 * * *" {
		t.Fatalf("schedule = %q, want default", st.Schedule)
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	s := New(Config{Schedule: "not a schedule", Logger: quietLogger()}, &fakeRefresher{})
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run with invalid schedule should fail")
	}
}
