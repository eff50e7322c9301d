// Package forecastapi provides a client for the housing forecast provider.
package forecastapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/londongap/internal/model"
)

const (
	// DefaultBaseURL is where the provider listens in local development.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultYearsAhead is the forecast horizon used when none is given.
	DefaultYearsAhead = 6
	MinYearsAhead     = 1
	MaxYearsAhead     = 20

	defaultTimeout = 15 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "londongap/1.0"
)

var (
	// ErrNotFound indicates the provider does not know the borough.
	ErrNotFound = errors.New("forecastapi: not found")
	// ErrBadRequest indicates the provider rejected the query.
	ErrBadRequest = errors.New("forecastapi: bad request")
	// ErrRateLimited indicates the provider asked us to slow down.
	ErrRateLimited = errors.New("forecastapi: rate limited")
	// ErrInvalidYearsAhead is returned before any request when the horizon is out of range.
	ErrInvalidYearsAhead = errors.New("forecastapi: years_ahead out of range")
)

// Options configures a Client. Zero fields take defaults.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
	Burst         int
	HTTPClient    *http.Client
	Logger        logrus.FieldLogger
}

// Client fetches forecast datasets. It is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewClient creates a client for the provider at opts.BaseURL.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), burst)
	}

	return &Client{
		baseURL: base,
		timeout: timeout,
		http:    hc,
		limiter: limiter,
		log:     log.WithField("component", "forecastapi"),
	}
}

// BaseURL returns the provider root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ValidateYearsAhead checks the forecast horizon against the provider's bounds.
func ValidateYearsAhead(n int) error {
	if n < MinYearsAhead || n > MaxYearsAhead {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidYearsAhead, n, MinYearsAhead, MaxYearsAhead)
	}
	return nil
}

// FetchOverviewForecast returns the London-wide dataset.
func (c *Client) FetchOverviewForecast(ctx context.Context, yearsAhead int) (*model.Dataset, error) {
	if err := ValidateYearsAhead(yearsAhead); err != nil {
		return nil, err
	}
	q := url.Values{"years_ahead": {strconv.Itoa(yearsAhead)}}
	return c.fetchDataset(ctx, "/overview-forecast", q)
}

// FetchForecast returns the dataset for one borough.
func (c *Client) FetchForecast(ctx context.Context, borough string, yearsAhead int) (*model.Dataset, error) {
	borough = strings.TrimSpace(borough)
	if borough == "" {
		return nil, fmt.Errorf("%w: empty borough", ErrBadRequest)
	}
	if err := ValidateYearsAhead(yearsAhead); err != nil {
		return nil, err
	}
	q := url.Values{
		"borough":     {borough},
		"years_ahead": {strconv.Itoa(yearsAhead)},
	}
	return c.fetchDataset(ctx, "/forecast", q)
}

// FetchBoroughs returns the borough names the provider can forecast.
func (c *Client) FetchBoroughs(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/boroughs", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Boroughs []string `json:"boroughs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("forecastapi: parsing boroughs: %w", err)
	}
	return resp.Boroughs, nil
}

func (c *Client) fetchDataset(ctx context.Context, path string, q url.Values) (*model.Dataset, error) {
	body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}

	var d model.Dataset
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("forecastapi: parsing %s: %w", path, err)
	}
	return &d, nil
}

// get performs a rate-limited GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("forecastapi: waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("forecastapi: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecastapi: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("provider request")

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, detail(resp.Body))
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, detail(resp.Body))
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("forecastapi: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("forecastapi: reading response: %w", err)
	}
	return body, nil
}

// detail extracts the provider's error message, which arrives as
// {"detail": "..."} or, for validation errors, a list of objects.
func detail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return "no detail"
	}
	var d struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &d) == nil && len(d.Detail) > 0 {
		var s string
		if json.Unmarshal(d.Detail, &s) == nil {
			return s
		}
		return string(d.Detail)
	}
	return strings.TrimSpace(string(body))
}
