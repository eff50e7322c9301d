package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/londongap/internal/forecastapi"
	"github.com/theirongolddev/londongap/internal/model"
)

// writeArchive creates a temp JSONL file and returns its path.
func writeArchive(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const overviewLine = `{"type":"dataset","saved_at":"2026-05-01T10:00:00Z","years_ahead":6,"dataset":{"title":"London overview","history":{"years":[2023],"house_price":[500000],"annual_income":[40000]},"forecast":{"years":[2023,2024],"house_price":{"yhat":[1,2],"lower":[1,2],"upper":[1,2]},"annual_income":{"yhat":[1,2],"lower":[1,2],"upper":[1,2]}},"meta":{"years_ahead":6}}}`

const camdenLine = `{"type":"dataset","saved_at":"2026-05-02T10:00:00Z","borough":"Camden","dataset":{"title":"Camden","history":{"years":[2023],"house_price":[800000],"annual_income":[45000]},"forecast":{"years":[2023],"house_price":{"yhat":[1],"lower":[1],"upper":[1]},"annual_income":{"yhat":[1],"lower":[1],"upper":[1]}},"meta":{"years_ahead":3}}}`

func TestParseFile_Datasets(t *testing.T) {
	path := writeArchive(t, overviewLine, camdenLine)

	result := ParseFile(path)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	a := result.Archive
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}

	d, err := a.FetchOverviewForecast(context.Background(), 6)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if d.Title != "London overview" {
		t.Errorf("Title = %q", d.Title)
	}

	// Horizon falls back to meta.years_ahead when the record omits it.
	d, err = a.FetchForecast(context.Background(), "camden", 3)
	if err != nil {
		t.Fatalf("camden: %v", err)
	}
	if d.History.HousePrice[0] != 800000 {
		t.Errorf("HousePrice = %v", d.History.HousePrice)
	}

	want := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	if !a.SavedAt.Equal(want) {
		t.Errorf("SavedAt = %v, want %v", a.SavedAt, want)
	}
}

func TestParseFile_Boroughs(t *testing.T) {
	path := writeArchive(t, `{"type":"boroughs","boroughs":["Camden","Hackney"]}`)

	a := ParseFile(path).Archive
	bs, err := a.FetchBoroughs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 2 || bs[1] != "Hackney" {
		t.Errorf("boroughs = %v", bs)
	}
}

func TestParseFile_BoroughsDerivedFromDatasets(t *testing.T) {
	a := ParseFile(writeArchive(t, overviewLine, camdenLine)).Archive
	bs, _ := a.FetchBoroughs(context.Background())
	if len(bs) != 1 || bs[0] != "Camden" {
		t.Errorf("boroughs = %v, want [Camden]", bs)
	}
}

func TestParseFile_MalformedLines(t *testing.T) {
	path := writeArchive(t,
		`{"type":"dataset","dataset":{"title":`,
		`{"type":"dataset"}`,
		`not json`,
		`{"type":"note","text":"ignored"}`,
		``,
		camdenLine,
	)

	result := ParseFile(path)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", result.ParseErrors)
	}
	if result.Archive.Len() != 1 {
		t.Errorf("Len = %d, want 1", result.Archive.Len())
	}
}

func TestParseFile_Missing(t *testing.T) {
	result := ParseFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	if result.Err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jsonl")); err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_EmptyArchive(t *testing.T) {
	if _, err := Load(writeArchive(t, `not json`)); err == nil {
		t.Fatal("expected error for archive with no records")
	}
}

func TestArchive_Lookups(t *testing.T) {
	a := ParseFile(writeArchive(t, overviewLine)).Archive
	ctx := context.Background()

	if _, err := a.FetchOverviewForecast(ctx, 5); !errors.Is(err, forecastapi.ErrNotFound) {
		t.Errorf("other horizon err = %v, want ErrNotFound", err)
	}
	if _, err := a.FetchOverviewForecast(ctx, 0); !errors.Is(err, forecastapi.ErrInvalidYearsAhead) {
		t.Errorf("zero horizon err = %v, want ErrInvalidYearsAhead", err)
	}
	if _, err := a.FetchForecast(ctx, "", 6); !errors.Is(err, forecastapi.ErrBadRequest) {
		t.Errorf("empty borough err = %v, want ErrBadRequest", err)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	a := NewArchive()
	a.SavedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	a.Boroughs = []string{"Camden", "Hackney"}
	a.Put(Entry{YearsAhead: 6, Dataset: model.Dataset{Title: "London overview", Meta: model.Meta{YearsAhead: 6}}})
	a.Put(Entry{Borough: "Hackney", YearsAhead: 6, Dataset: model.Dataset{Title: "Hackney"}})

	path := filepath.Join(t.TempDir(), "out", "saved.jsonl")
	if err := WriteFile(path, a); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Errorf("Len = %d, want 2", got.Len())
	}
	if !got.SavedAt.Equal(a.SavedAt) {
		t.Errorf("SavedAt = %v", got.SavedAt)
	}
	d, err := got.FetchForecast(context.Background(), "HACKNEY", 6)
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Hackney" {
		t.Errorf("Title = %q", d.Title)
	}
	entries := got.Entries()
	if entries[0].Borough != "" {
		t.Errorf("overview should sort first, got %q", entries[0].Borough)
	}
}

func TestExtractTopLevelType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"dataset", `{"type":"dataset","dataset":{}}`, "dataset"},
		{"boroughs", `{"type": "boroughs","boroughs":[]}`, "boroughs"},
		{"nested type ignored", `{"dataset":{"type":"x"},"type":"dataset"}`, "dataset"},
		{"type as value", `{"kind":"type","type":"boroughs"}`, "boroughs"},
		{"unknown type", `{"type":"note"}`, ""},
		{"no type field", `{"message":"hello"}`, ""},
		{"empty", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTopLevelType([]byte(tt.input))
			if got != tt.want {
				t.Errorf("extractTopLevelType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// FuzzExtractTopLevelType tests that the byte-level parser never panics
// on arbitrary input, since archives may be hand-edited.
func FuzzExtractTopLevelType(f *testing.F) {
	f.Add([]byte(`{"type":"dataset","dataset":{}}`))
	f.Add([]byte(`{"type":"boroughs","boroughs":["Camden"]}`))
	f.Add([]byte(`{"data":{"type":"nested"},"type":"dataset"}`))
	f.Add([]byte(`not json`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"type":null}`))
	f.Add([]byte(``))
	f.Add([]byte(`{"type":"data`))

	f.Fuzz(func(t *testing.T, data []byte) {
		switch result := extractTopLevelType(data); result {
		case "", TypeDataset, TypeBoroughs:
		default:
			t.Errorf("unexpected type %q from input %q", result, data)
		}
	})
}
