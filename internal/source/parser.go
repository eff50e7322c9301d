// Package source reads and writes offline forecast archives: JSONL files
// holding provider responses saved for use without network access.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// ParseResult holds the output of parsing an archive file.
type ParseResult struct {
	Archive     *Archive
	ParseErrors int
	Err         error
}

// ParseFile reads an archive. Later records for the same borough and
// horizon replace earlier ones.
//
// Record routing by top-level "type" field:
//   - "dataset"  → one provider forecast response
//   - "boroughs" → the provider's borough list
//   - everything else → skip
func ParseFile(path string) ParseResult {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	a := NewArchive()
	var parseErrors int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 8*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		recType := extractTopLevelType(line)
		if recType == "" {
			continue
		}

		var rec RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors++
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, rec.SavedAt); err == nil && ts.After(a.SavedAt) {
			a.SavedAt = ts
		}

		switch recType {
		case TypeDataset:
			if rec.Dataset == nil {
				parseErrors++
				continue
			}
			years := rec.YearsAhead
			if years == 0 {
				years = rec.Dataset.Meta.YearsAhead
			}
			a.Put(Entry{Borough: strings.TrimSpace(rec.Borough), YearsAhead: years, Dataset: *rec.Dataset})

		case TypeBoroughs:
			a.Boroughs = rec.Boroughs
		}
	}

	if err := scanner.Err(); err != nil {
		return ParseResult{Err: err}
	}

	return ParseResult{Archive: a, ParseErrors: parseErrors}
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key (expects : then value).
// isKey=false means "type" appeared as a value, not a key.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case TypeDataset, TypeBoroughs:
		return v, true
	}
	return "", true
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i
}
