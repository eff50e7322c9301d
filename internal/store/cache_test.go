package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/londongap/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleDataset(title string) model.Dataset {
	return model.Dataset{
		Title: title,
		History: model.History{
			Years:        []int{2022, 2023},
			HousePrice:   []float64{500000, 510000},
			AnnualIncome: []float64{40000, 41000},
		},
		Forecast: model.Forecast{
			Years:        []int{2022, 2023, 2024},
			HousePrice:   model.Band{Yhat: []float64{1, 2, 3}, Lower: []float64{0, 1, 2}, Upper: []float64{2, 3, 4}},
			AnnualIncome: model.Band{Yhat: []float64{1, 2, 3}, Lower: []float64{0, 1, 2}, Upper: []float64{2, 3, 4}},
		},
		Meta: model.Meta{YearsAhead: 1, Note: "trend"},
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := c.SaveDataset("overview:1", sampleDataset("London overview"), at); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}

	e, err := c.LoadDataset("overview:1")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if e.Dataset.Title != "London overview" {
		t.Errorf("Title = %q", e.Dataset.Title)
	}
	if got := e.Dataset.Forecast.HousePrice.Upper; len(got) != 3 || got[2] != 4 {
		t.Errorf("Upper = %v", got)
	}
	if !e.FetchedAt.Equal(at) {
		t.Errorf("FetchedAt = %v, want %v", e.FetchedAt, at)
	}
	if age := e.Age(at.Add(time.Hour)); age != time.Hour {
		t.Errorf("Age = %v", age)
	}
}

func TestLoadDataset_Miss(t *testing.T) {
	c := openTestCache(t)
	if _, err := c.LoadDataset("nope"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestSaveDataset_Replaces(t *testing.T) {
	c := openTestCache(t)
	now := time.Now()

	_ = c.SaveDataset("k", sampleDataset("old"), now)
	_ = c.SaveDataset("k", sampleDataset("new"), now)

	e, err := c.LoadDataset("k")
	if err != nil {
		t.Fatal(err)
	}
	if e.Dataset.Title != "new" {
		t.Errorf("Title = %q, want new", e.Dataset.Title)
	}
	if n, _ := c.DatasetCount(); n != 1 {
		t.Errorf("DatasetCount = %d, want 1", n)
	}
}

func TestListAndPurge(t *testing.T) {
	c := openTestCache(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = c.SaveDataset("a", sampleDataset("A"), base)
	_ = c.SaveDataset("b", sampleDataset("B"), base.Add(48*time.Hour))

	list, err := c.ListDatasets()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Key != "b" || list[1].Title != "A" {
		t.Fatalf("ListDatasets = %+v", list)
	}

	n, err := c.PurgeBefore(base.Add(24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, err := c.LoadDataset("a"); !errors.Is(err, ErrMiss) {
		t.Errorf("a still cached: %v", err)
	}

	if err := c.DeleteDataset("b"); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.DatasetCount(); n != 0 {
		t.Errorf("DatasetCount = %d, want 0", n)
	}
}

func TestBoroughsRoundTrip(t *testing.T) {
	c := openTestCache(t)

	if _, _, err := c.LoadBoroughs(); !errors.Is(err, ErrMiss) {
		t.Fatalf("empty LoadBoroughs err = %v", err)
	}

	at := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := c.SaveBoroughs([]string{"Westminster", "Camden", "Hackney"}, at); err != nil {
		t.Fatal(err)
	}
	_ = c.SaveBoroughs([]string{"Westminster", "Camden"}, at)

	names, fetched, err := c.LoadBoroughs()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Westminster" || names[1] != "Camden" {
		t.Errorf("names = %v", names)
	}
	if !fetched.Equal(at) {
		t.Errorf("fetched = %v", fetched)
	}
}

func TestCorruptFetchedAtIsReported(t *testing.T) {
	c := openTestCache(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := c.SaveDataset("overview:1", sampleDataset("London overview"), at); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}
	if err := c.SaveBoroughs([]string{"Camden"}, at); err != nil {
		t.Fatalf("SaveBoroughs: %v", err)
	}
	if _, err := c.db.Exec("UPDATE datasets SET fetched_at = 'yesterday'"); err != nil {
		t.Fatalf("corrupting datasets: %v", err)
	}
	if _, err := c.db.Exec("UPDATE boroughs SET fetched_at = ''"); err != nil {
		t.Fatalf("corrupting boroughs: %v", err)
	}

	if _, err := c.LoadDataset("overview:1"); err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("LoadDataset err = %v, want a parse error", err)
	}
	if _, err := c.ListDatasets(); err == nil {
		t.Error("ListDatasets: want a parse error")
	}
	if _, _, err := c.LoadBoroughs(); err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("LoadBoroughs err = %v, want a parse error", err)
	}
}
