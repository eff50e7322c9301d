package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBorough is returned when no borough matches a query.
var ErrUnknownBorough = errors.New("unknown borough")

// ResolveBorough picks the borough a query refers to: a case-insensitive
// exact match, otherwise the shortest name containing the query. Ties keep
// list order.
func ResolveBorough(query string, names []string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", fmt.Errorf("%w: empty query", ErrUnknownBorough)
	}

	best := ""
	for _, n := range names {
		ln := strings.ToLower(n)
		if ln == q {
			return n, nil
		}
		if strings.Contains(ln, q) && (best == "" || len(n) < len(best)) {
			best = n
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownBorough, query)
	}
	return best, nil
}
