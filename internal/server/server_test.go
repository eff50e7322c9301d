package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/series"
)

type fakeLoader struct {
	datasets map[string]model.Dataset
	boroughs []string
	err      error
	requests []pipeline.Request
}

func (f *fakeLoader) Load(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.datasets[req.Borough]
	if !ok {
		return nil, forecastapi.ErrNotFound
	}
	return &pipeline.Result{Request: req, Dataset: d, Origin: pipeline.OriginCache, FetchedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeLoader) Boroughs(context.Context) ([]string, error) {
	return f.boroughs, f.err
}

func (f *fakeLoader) Resolve(_ context.Context, q string) (string, error) {
	if q == "" {
		return "", nil
	}
	return pipeline.ResolveBorough(q, f.boroughs)
}

func dataset(title string) model.Dataset {
	return model.Dataset{
		Title: title,
		History: model.History{
			Years:        []int{2018, 2019, 2020},
			HousePrice:   []float64{500000, 520000, 550000},
			AnnualIncome: []float64{40000, 41000, 42000},
		},
		Forecast: model.Forecast{
			Years: []int{2018, 2019, 2020, 2021, 2022},
			HousePrice: model.Band{
				Yhat:  []float64{501000, 519000, 549000, 570000, 590000},
				Lower: []float64{490000, 500000, 530000, 540000, 550000},
				Upper: []float64{510000, 540000, 570000, 600000, 630000},
			},
			AnnualIncome: model.Band{
				Yhat:  []float64{40100, 40900, 42100, 43000, 44000},
				Lower: []float64{39000, 39500, 40000, 41000, 42000},
				Upper: []float64{41000, 42000, 44000, 45000, 46000},
			},
		},
		Meta: model.Meta{YearsAhead: 2, Note: "trend"},
	}
}

func newTestServer() (*Server, *fakeLoader) {
	l := &fakeLoader{
		datasets: map[string]model.Dataset{"": dataset("London overview"), "Camden": dataset("Camden")},
		boroughs: []string{"Camden", "Hackney"},
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(Options{Loader: l, Logger: log}), l
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestIDPropagated(t *testing.T) {
	s, _ := newTestServer()
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestEstimate(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodPost, "/api/estimate", `{"salary": 60000, "price": 300000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res afford.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Years)
	assert.Equal(t, 5, res.Months)
	assert.Equal(t, afford.StatusSuccess, res.Status)
	assert.Equal(t, "log-amortization", res.Model)
}

func TestEstimate_ModelAndLanguage(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodPost, "/api/estimate", `{"salary": 60000, "price": 300000, "age": 35, "model": "linear-ratio", "lang": "es"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res afford.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "linear-ratio", res.Model)
	assert.Equal(t, 36, res.TotalAge)
	assert.Contains(t, res.Message, "Según tus condiciones")
}

func TestEstimate_Errors(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"bad json", `{"salary":`, http.StatusBadRequest, ""},
		{"zero salary", `{"salary": 0, "price": 300000}`, http.StatusBadRequest, "salary"},
		{"negative price", `{"salary": 1, "price": -5}`, http.StatusBadRequest, "price"},
		{"unknown model", `{"salary": 1, "price": 5, "model": "astrology"}`, http.StatusBadRequest, ""},
		{"undefined", `{"salary": 1000, "price": 80000}`, http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/estimate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.RequestID)
			assert.Equal(t, tt.field, body.Field)
		})
	}
}

func TestEstimate_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodGet, "/api/estimate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBoroughs(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodGet, "/api/boroughs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"boroughs": ["Camden", "Hackney"]}`, rec.Body.String())
}

func TestChart(t *testing.T) {
	s, l := newTestServer()
	rec := do(s, http.MethodGet, "/api/chart?borough=camd&years_ahead=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ChartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Camden", resp.Chart.Title)
	assert.Equal(t, []int{2018, 2019, 2020, 2021, 2022}, resp.Chart.Labels)
	assert.Nil(t, resp.Chart.HousePrice.Historical[4])
	assert.Nil(t, resp.Chart.HousePrice.Central[0])
	require.NotNil(t, resp.Chart.HousePrice.Upper[3])
	assert.Len(t, resp.Ratios, 5)
	assert.Equal(t, pipeline.OriginCache, resp.Origin)

	require.Len(t, l.requests, 1)
	assert.Equal(t, pipeline.Request{Borough: "Camden", YearsAhead: 2}, l.requests[0])
}

func TestChart_NullsInJSON(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodGet, "/api/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"forecast_upper":[null,null,null,`)
}

func TestChart_Errors(t *testing.T) {
	s, _ := newTestServer()

	tests := []struct {
		target string
		status int
	}{
		{"/api/chart?years_ahead=0", http.StatusBadRequest},
		{"/api/chart?years_ahead=21", http.StatusBadRequest},
		{"/api/chart?years_ahead=six", http.StatusBadRequest},
		{"/api/chart?borough=Atlantis", http.StatusNotFound},
		{"/api/chart?borough=Hackney", http.StatusNotFound},
		{"/api/chart.svg?metric=rent", http.StatusBadRequest},
		{"/api/chart.svg?selected=20x1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestChart_UpstreamFailure(t *testing.T) {
	s, l := newTestServer()
	l.err = assert.AnError
	rec := do(s, http.MethodGet, "/api/chart", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChartSVG(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodGet, "/api/chart.svg?metric=annual_income&selected=2018,2022", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "London overview: Annual income")
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `class="selected"`))
}

func TestInsight(t *testing.T) {
	s, _ := newTestServer()
	rec := do(s, http.MethodGet, "/api/insight?from=2020&to=2018", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var in series.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	assert.Equal(t, 2018, in.From)
	assert.Equal(t, 2020, in.To)
	require.NotNil(t, in.HousePrice.Pct)
	assert.InDelta(t, 48000.0/501000.0*100, *in.HousePrice.Pct, 1e-9)
	assert.Equal(t,
		"London overview: From 2018 to 2020, house price went from £501,000 to £549,000 (9.6%). Income went from £40,100 to £42,100 (5.0%).",
		in.Message)
}

func TestInsight_Errors(t *testing.T) {
	s, _ := newTestServer()

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/insight?from=2018", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/insight?from=x&to=2020", "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/insight?from=2018&to=2040", "").Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&afford.InvalidInputError{Field: "salary"}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&afford.UndefinedResultError{}))
	assert.Equal(t, http.StatusNotFound, statusFor(&series.YearNotFoundError{Year: 1}))
	assert.Equal(t, http.StatusBadGateway, statusFor(series.ErrMalformedSeries))
}
