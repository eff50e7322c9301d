package source

import "github.com/theirongolddev/londongap/internal/model"

// Record types in an archive file.
const (
	TypeDataset  = "dataset"
	TypeBoroughs = "boroughs"
)

// RawRecord is a single line of an archive file.
type RawRecord struct {
	Type       string         `json:"type"`
	SavedAt    string         `json:"saved_at,omitempty"`
	Borough    string         `json:"borough,omitempty"`
	YearsAhead int            `json:"years_ahead,omitempty"`
	Dataset    *model.Dataset `json:"dataset,omitempty"`
	Boroughs   []string       `json:"boroughs,omitempty"`
}

// Entry is one archived dataset. An empty Borough marks the London overview.
type Entry struct {
	Borough    string
	YearsAhead int
	Dataset    model.Dataset
}
