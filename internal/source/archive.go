package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/model"
)

// Archive is an in-memory set of saved provider responses. It answers the
// same queries as the live client.
type Archive struct {
	SavedAt  time.Time
	Boroughs []string
	entries  map[string]Entry
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{entries: make(map[string]Entry)}
}

func entryKey(borough string, yearsAhead int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(borough)), yearsAhead)
}

// Put adds or replaces an entry.
func (a *Archive) Put(e Entry) {
	a.entries[entryKey(e.Borough, e.YearsAhead)] = e
}

// Entries returns all entries, overview first, then by borough and horizon.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Borough != out[j].Borough {
			return out[i].Borough < out[j].Borough
		}
		return out[i].YearsAhead < out[j].YearsAhead
	})
	return out
}

// Len returns the number of archived datasets.
func (a *Archive) Len() int { return len(a.entries) }

// FetchOverviewForecast returns the archived London overview.
func (a *Archive) FetchOverviewForecast(ctx context.Context, yearsAhead int) (*model.Dataset, error) {
	return a.lookup("", yearsAhead)
}

// FetchForecast returns the archived dataset for a borough.
func (a *Archive) FetchForecast(ctx context.Context, borough string, yearsAhead int) (*model.Dataset, error) {
	if strings.TrimSpace(borough) == "" {
		return nil, fmt.Errorf("%w: empty borough", forecastapi.ErrBadRequest)
	}
	return a.lookup(borough, yearsAhead)
}

// FetchBoroughs returns the archived borough list, or the boroughs that have
// datasets when no list was saved.
func (a *Archive) FetchBoroughs(ctx context.Context) ([]string, error) {
	if len(a.Boroughs) > 0 {
		return a.Boroughs, nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range a.Entries() {
		if e.Borough != "" && !seen[e.Borough] {
			seen[e.Borough] = true
			out = append(out, e.Borough)
		}
	}
	return out, nil
}

func (a *Archive) lookup(borough string, yearsAhead int) (*model.Dataset, error) {
	if err := forecastapi.ValidateYearsAhead(yearsAhead); err != nil {
		return nil, err
	}
	e, ok := a.entries[entryKey(borough, yearsAhead)]
	if !ok {
		name := borough
		if name == "" {
			name = "overview"
		}
		return nil, fmt.Errorf("%w: %s (%d years ahead) not in archive", forecastapi.ErrNotFound, name, yearsAhead)
	}
	d := e.Dataset
	return &d, nil
}

// WriteFile writes the archive as JSONL, replacing path atomically.
func WriteFile(path string, a *Archive) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".londongap-archive-*")
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	saved := a.SavedAt
	if saved.IsZero() {
		saved = time.Now()
	}
	stamp := saved.UTC().Format(time.RFC3339Nano)

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	if len(a.Boroughs) > 0 {
		if err := enc.Encode(RawRecord{Type: TypeBoroughs, SavedAt: stamp, Boroughs: a.Boroughs}); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encoding boroughs: %w", err)
		}
	}
	for _, e := range a.Entries() {
		d := e.Dataset
		rec := RawRecord{Type: TypeDataset, SavedAt: stamp, Borough: e.Borough, YearsAhead: e.YearsAhead, Dataset: &d}
		if err := enc.Encode(rec); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("encoding dataset %q: %w", e.Dataset.Title, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Load parses path and fails when the file is unreadable or holds nothing.
func Load(path string) (*Archive, error) {
	res := ParseFile(path)
	if res.Err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", path, res.Err)
	}
	if res.Archive.Len() == 0 && len(res.Archive.Boroughs) == 0 {
		return nil, fmt.Errorf("archive %s: no records (%d malformed lines)", path, res.ParseErrors)
	}
	return res.Archive, nil
}
