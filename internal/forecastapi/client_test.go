package forecastapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetJSON = `{
	"title": "London overview",
	"history": {"years": [2022, 2023], "house_price": [500000, 510000], "annual_income": [40000, 41000]},
	"forecast": {
		"years": [2022, 2023, 2024],
		"house_price": {"yhat": [500500, 509000, 520000], "lower": [490000, 495000, 500000], "upper": [510000, 520000, 540000]},
		"annual_income": {"yhat": [40100, 40900, 42000], "lower": [39000, 39500, 40000], "upper": [41000, 42000, 44000]}
	},
	"meta": {"years_ahead": 1, "note": "trend-based"}
}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/api/", Logger: quietLogger()})
}

func TestFetchOverviewForecast(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/overview-forecast", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("years_ahead"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(datasetJSON))
	})

	d, err := c.FetchOverviewForecast(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "London overview", d.Title)
	assert.Equal(t, []int{2022, 2023, 2024}, d.Forecast.Years)
	assert.Equal(t, 1, d.Meta.YearsAhead)
}

func TestFetchForecast_SendsBorough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/forecast", r.URL.Path)
		assert.Equal(t, "Kensington and Chelsea", r.URL.Query().Get("borough"))
		assert.Equal(t, "6", r.URL.Query().Get("years_ahead"))
		_, _ = w.Write([]byte(datasetJSON))
	})

	_, err := c.FetchForecast(context.Background(), "  Kensington and Chelsea ", DefaultYearsAhead)
	require.NoError(t, err)
}

func TestFetchForecast_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Borough not found: Atlantis"}`))
	})

	_, err := c.FetchForecast(context.Background(), "Atlantis", 6)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Borough not found: Atlantis")
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnprocessableEntity, ErrBadRequest},
		{http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.FetchBoroughs(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetch_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.FetchOverviewForecast(context.Background(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestFetchBoroughs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/boroughs", r.URL.Path)
		_, _ = w.Write([]byte(`{"boroughs": ["Camden", "Hackney", "Westminster"]}`))
	})

	bs, err := c.FetchBoroughs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Camden", "Hackney", "Westminster"}, bs)
}

func TestFetch_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"title":`))
	})

	_, err := c.FetchOverviewForecast(context.Background(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing /overview-forecast")
}

func TestYearsAheadValidatedBeforeRequest(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
	})

	for _, n := range []int{0, -1, 21} {
		_, err := c.FetchOverviewForecast(context.Background(), n)
		assert.ErrorIs(t, err, ErrInvalidYearsAhead)
		_, err = c.FetchForecast(context.Background(), "Camden", n)
		assert.ErrorIs(t, err, ErrInvalidYearsAhead)
	}
	assert.Zero(t, calls)

	assert.NoError(t, ValidateYearsAhead(1))
	assert.NoError(t, ValidateYearsAhead(20))
}

func TestFetchForecast_EmptyBorough(t *testing.T) {
	c := NewClient(Options{Logger: quietLogger()})
	_, err := c.FetchForecast(context.Background(), " ", 6)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Options{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, defaultTimeout, c.timeout)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"boroughs": []}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, RatePerMinute: 1, Burst: 1, Logger: quietLogger()})

	_, err := c.FetchBoroughs(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchBoroughs(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
