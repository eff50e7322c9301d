// Package pipeline loads forecast datasets through the cache, falling back
// to stale entries when the provider is unreachable.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/model"
	"github.com/theirongolddev/londongap/internal/store"
)

// DefaultMaxAge is how long a cached dataset is served without refetching.
const DefaultMaxAge = 24 * time.Hour

// Fetcher is a source of forecast datasets: the live client or an archive.
type Fetcher interface {
	FetchOverviewForecast(ctx context.Context, yearsAhead int) (*model.Dataset, error)
	FetchForecast(ctx context.Context, borough string, yearsAhead int) (*model.Dataset, error)
	FetchBoroughs(ctx context.Context) ([]string, error)
}

// Origin says where a loaded dataset came from.
type Origin string

const (
	OriginNetwork Origin = "network"
	OriginCache   Origin = "cache"
	OriginStale   Origin = "stale-cache"
)

// Request identifies a dataset. An empty Borough means the London overview.
type Request struct {
	Borough    string
	YearsAhead int
}

// Overview requests the London-wide dataset.
func Overview(yearsAhead int) Request {
	return Request{YearsAhead: yearsAhead}
}

// Label names the request for logs and status lines.
func (r Request) Label() string {
	if r.Borough == "" {
		return "London overview"
	}
	return r.Borough
}

// Key returns the cache key for the request.
func (r Request) Key() string {
	return CacheKey(r.Borough, r.YearsAhead)
}

// CacheKey builds the cache key for a borough and horizon.
func CacheKey(borough string, yearsAhead int) string {
	b := strings.ToLower(strings.TrimSpace(borough))
	if b == "" {
		return fmt.Sprintf("overview:%d", yearsAhead)
	}
	return fmt.Sprintf("borough:%s:%d", b, yearsAhead)
}

// Result is a loaded dataset and its provenance.
type Result struct {
	Request   Request
	Dataset   model.Dataset
	Origin    Origin
	FetchedAt time.Time
	Err       error
}

// Options configures a Loader. A nil Cache disables caching.
type Options struct {
	Cache   *store.Cache
	MaxAge  time.Duration
	NoCache bool
	Logger  logrus.FieldLogger
}

// Loader fetches datasets, consulting the cache first.
type Loader struct {
	fetcher Fetcher
	cache   *store.Cache
	maxAge  time.Duration
	noCache bool
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewLoader wraps f with the cache policy in opts.
func NewLoader(f Fetcher, opts Options) *Loader {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{
		fetcher: f,
		cache:   opts.Cache,
		maxAge:  maxAge,
		noCache: opts.NoCache,
		log:     log.WithField("component", "pipeline"),
		now:     time.Now,
	}
}

// Load returns a fresh cached dataset or fetches a new one.
func (l *Loader) Load(ctx context.Context, req Request) (*Result, error) {
	return l.load(ctx, req, false)
}

// Refresh fetches from the provider regardless of cache freshness.
func (l *Loader) Refresh(ctx context.Context, req Request) (*Result, error) {
	return l.load(ctx, req, true)
}

func (l *Loader) load(ctx context.Context, req Request, force bool) (*Result, error) {
	if err := forecastapi.ValidateYearsAhead(req.YearsAhead); err != nil {
		return nil, err
	}
	log := l.log.WithFields(logrus.Fields{"dataset": req.Label(), "years_ahead": req.YearsAhead})

	var cached *store.Entry
	if l.useCache() {
		e, err := l.cache.LoadDataset(req.Key())
		switch {
		case err == nil:
			cached = e
		case !errors.Is(err, store.ErrMiss):
			log.WithError(err).Warn("reading cache")
		}
	}

	if cached != nil && !force && cached.Age(l.now()) < l.maxAge {
		log.Debug("cache hit")
		return &Result{Request: req, Dataset: cached.Dataset, Origin: OriginCache, FetchedAt: cached.FetchedAt}, nil
	}

	d, err := l.fetch(ctx, req)
	if err != nil {
		if cached != nil && recoverable(err) {
			log.WithError(err).Warn("provider unavailable, serving stale cache")
			return &Result{Request: req, Dataset: cached.Dataset, Origin: OriginStale, FetchedAt: cached.FetchedAt}, nil
		}
		return nil, fmt.Errorf("loading %s: %w", req.Label(), err)
	}

	now := l.now()
	if l.useCache() {
		if err := l.cache.SaveDataset(req.Key(), *d, now); err != nil {
			log.WithError(err).Warn("writing cache")
		}
	}
	return &Result{Request: req, Dataset: *d, Origin: OriginNetwork, FetchedAt: now}, nil
}

func (l *Loader) fetch(ctx context.Context, req Request) (*model.Dataset, error) {
	if req.Borough == "" {
		return l.fetcher.FetchOverviewForecast(ctx, req.YearsAhead)
	}
	return l.fetcher.FetchForecast(ctx, req.Borough, req.YearsAhead)
}

// Boroughs returns the provider's borough list under the same cache policy.
func (l *Loader) Boroughs(ctx context.Context) ([]string, error) {
	var stale []string
	if l.useCache() {
		names, at, err := l.cache.LoadBoroughs()
		if err == nil {
			if l.now().Sub(at) < l.maxAge {
				return names, nil
			}
			stale = names
		}
	}

	names, err := l.fetcher.FetchBoroughs(ctx)
	if err != nil {
		if stale != nil && recoverable(err) {
			l.log.WithError(err).Warn("provider unavailable, serving stale borough list")
			return stale, nil
		}
		return nil, fmt.Errorf("loading boroughs: %w", err)
	}

	if l.useCache() && len(names) > 0 {
		if err := l.cache.SaveBoroughs(names, l.now()); err != nil {
			l.log.WithError(err).Warn("writing borough cache")
		}
	}
	return names, nil
}

// Resolve maps a user-typed borough to the provider's spelling. When the
// borough list cannot be loaded the query is passed through unchanged.
func (l *Loader) Resolve(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	names, err := l.Boroughs(ctx)
	if err != nil || len(names) == 0 {
		l.log.WithError(err).Debug("borough list unavailable, passing query through")
		return query, nil
	}
	return ResolveBorough(query, names)
}

func (l *Loader) useCache() bool {
	return l.cache != nil && !l.noCache
}

// recoverable reports whether a stale dataset is an acceptable answer.
// Rejections of the request itself are not.
func recoverable(err error) bool {
	return !errors.Is(err, forecastapi.ErrNotFound) &&
		!errors.Is(err, forecastapi.ErrBadRequest) &&
		!errors.Is(err, forecastapi.ErrInvalidYearsAhead) &&
		!errors.Is(err, context.Canceled)
}

// ProgressFunc is called during LoadMany to report progress.
// current is the number of requests finished so far, total is the total count.
type ProgressFunc func(current, total int)

// LoadMany loads several datasets in parallel with a bounded worker pool.
// Results are returned in request order; failures are reported per result.
func (l *Loader) LoadMany(ctx context.Context, reqs []Request, refresh bool, progressFn ProgressFunc) []Result {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(reqs) {
		numWorkers = len(reqs)
	}

	work := make(chan int, len(reqs))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range reqs {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				res, err := l.load(ctx, reqs[idx], refresh)
				if err != nil {
					results[idx] = Result{Request: reqs[idx], Err: err}
				} else {
					results[idx] = *res
				}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(reqs))
				}
			}
		}()
	}

	wg.Wait()
	return results
}
