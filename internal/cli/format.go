// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"time"

	"github.com/theirongolddev/londongap/internal/money"
)

// FormatYearsMonths spells out a waiting time.
// e.g., (1, 5) -> "1 year 5 months", (0, 1) -> "1 month", (0, 0) -> "now"
func FormatYearsMonths(years, months int) string {
	switch {
	case years == 0 && months == 0:
		return "now"
	case years == 0:
		return plural(months, "month")
	case months == 0:
		return plural(years, "year")
	default:
		return plural(years, "year") + " " + plural(months, "month")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatRatio formats a price-to-income multiple.
// e.g., 12.345 -> "12.3x"
func FormatRatio(r float64) string {
	return fmt.Sprintf("%.1fx", r)
}

// FormatAge formats how long ago something happened.
// e.g., 3h2m -> "3h 2m", 125s -> "2m", 45s -> "45s"
func FormatAge(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs <= 0 {
		return "0s"
	}

	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatDelta formats a percentage change with an explicit sign.
// e.g., 10 -> "+10.0%", -2.5 -> "-2.5%", nil -> "N/A"
func FormatDelta(pct *float64) string {
	if pct == nil {
		return "N/A"
	}
	if *pct >= 0 {
		return "+" + money.FormatPercent(pct)
	}
	return money.FormatPercent(pct)
}

// FormatMaybeGBP formats an optional amount.
func FormatMaybeGBP(v *float64) string {
	if v == nil {
		return "-"
	}
	return money.FormatGBP(*v)
}
