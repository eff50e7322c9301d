package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/theirongolddev/londongap/internal/afford"
	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/pipeline"
	"github.com/theirongolddev/londongap/internal/render"
	"github.com/theirongolddev/londongap/internal/series"
)

const maxRequestBody = 64 << 10

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// EstimateRequest is the body of POST /api/estimate.
type EstimateRequest struct {
	Salary float64 `json:"salary"`
	Price  float64 `json:"price"`
	Age    *int    `json:"age,omitempty"`
	Model  string  `json:"model,omitempty"`
	Lang   string  `json:"lang,omitempty"`
}

// ChartResponse is the body of GET /api/chart.
type ChartResponse struct {
	Chart     series.Chart       `json:"chart"`
	Ratios    []series.YearRatio `json:"ratios"`
	Origin    pipeline.Origin    `json:"origin"`
	FetchedAt time.Time          `json:"fetched_at"`
}

type datasetQuery struct {
	Borough    string `validate:"omitempty,max=64"`
	YearsAhead int    `validate:"gte=1,lte=20"`
	Metric     string `validate:"omitempty,oneof=house_price annual_income"`
}

type insightQuery struct {
	datasetQuery
	From int `validate:"required"`
	To   int `validate:"required"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return
	}

	est, err := s.estimator(req.Model, req.Lang)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	res, err := est.Estimate(afford.Input{Salary: req.Salary, Price: req.Price, Age: req.Age})
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBoroughs(w http.ResponseWriter, r *http.Request) {
	names, err := s.loader.Boroughs(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"boroughs": names})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseDatasetQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	res, chart, err := s.loadChart(r, q)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ChartResponse{
		Chart:     chart,
		Ratios:    series.Ratios(chart),
		Origin:    res.Origin,
		FetchedAt: res.FetchedAt,
	})
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseDatasetQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	selected, err := parseYears(r.URL.Query().Get("selected"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	_, chart, err := s.loadChart(r, q)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	metric := model.HousePrice
	if q.Metric != "" {
		metric = model.Metric(q.Metric)
	}
	body, err := render.Bytes(chart, metric, render.Options{Selected: selected})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(body)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	dq, err := s.parseDatasetQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	q := insightQuery{datasetQuery: dq}
	if q.From, err = intParam(r, "from", 0); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if q.To, err = intParam(r, "to", 0); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		s.writeError(w, r, http.StatusBadRequest, queryError(err))
		return
	}

	_, chart, err := s.loadChart(r, q.datasetQuery)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	sel := series.SelectYear(series.SelectYear(series.Selection{}, q.From), q.To)
	from, to := q.From, q.To
	if a, b, ok := sel.Range(); ok {
		from, to = a, b
	}
	in, err := series.ComputeInsight(series.InsightSeriesOf(chart), from, to)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) parseDatasetQuery(r *http.Request) (datasetQuery, error) {
	years, err := intParam(r, "years_ahead", s.yearsAhead)
	if err != nil {
		return datasetQuery{}, err
	}
	q := datasetQuery{
		Borough:    strings.TrimSpace(r.URL.Query().Get("borough")),
		YearsAhead: years,
		Metric:     strings.TrimSpace(r.URL.Query().Get("metric")),
	}
	if err := s.validate.Struct(q); err != nil {
		return datasetQuery{}, queryError(err)
	}
	return q, nil
}

func (s *Server) loadChart(r *http.Request, q datasetQuery) (*pipeline.Result, series.Chart, error) {
	borough, err := s.loader.Resolve(r.Context(), q.Borough)
	if err != nil {
		return nil, series.Chart{}, err
	}
	res, err := s.loader.Load(r.Context(), pipeline.Request{Borough: borough, YearsAhead: q.YearsAhead})
	if err != nil {
		return nil, series.Chart{}, err
	}
	chart, err := series.ProjectDataset(res.Dataset)
	if err != nil {
		return nil, series.Chart{}, err
	}
	return res, chart, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return v, nil
}

func parseYears(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("selected: %q is not a year", part)
		}
		out = append(out, y)
	}
	return out, nil
}

func queryError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid query parameter %s: failed %s", queryName(fe.Field()), fe.Tag())
	}
	return err
}

func queryName(field string) string {
	switch field {
	case "YearsAhead":
		return "years_ahead"
	default:
		return strings.ToLower(field)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, afford.ErrInvalidInput),
		errors.Is(err, forecastapi.ErrBadRequest),
		errors.Is(err, forecastapi.ErrInvalidYearsAhead):
		return http.StatusBadRequest
	case errors.Is(err, forecastapi.ErrNotFound),
		errors.Is(err, pipeline.ErrUnknownBorough),
		errors.Is(err, series.ErrYearNotFound):
		return http.StatusNotFound
	case errors.Is(err, afford.ErrUndefinedResult):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := errorBody{Error: err.Error(), RequestID: RequestID(r.Context())}
	var ie *afford.InvalidInputError
	if errors.As(err, &ie) {
		body.Field = ie.Field
	}
	if status >= 500 {
		s.log.WithError(err).WithField("request_id", body.RequestID).Warn("upstream failure")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
