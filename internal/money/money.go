// Package money formats and parses GBP amounts for display.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const symbol = "£"

// gbPrinter groups digits the en-GB way (1,234,567).
var gbPrinter = message.NewPrinter(language.BritishEnglish)

// FormatGBP renders a value with the pound sign and en-GB thousands separators.
// Up to three fraction digits are kept, trailing zeros dropped.
// e.g., 1234567 -> "£1,234,567", 0 -> "£0", -5000 -> "-£5,000"
func FormatGBP(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	if v < 0 {
		return "-" + FormatGBP(-v)
	}
	return symbol + gbPrinter.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// FormatCompactGBP abbreviates large values for axis labels and cards.
// e.g., 1_250_000 -> "£1.3M", 350_400 -> "£350K", 950 -> "£950"
// Values that would round to 1000K are shown in millions.
func FormatCompactGBP(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	if v < 0 {
		return "-" + FormatCompactGBP(-v)
	}
	switch {
	case v >= 1_000_000 || math.Round(v/1_000) >= 1_000:
		return fmt.Sprintf("%s%.1fM", symbol, v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%s%.0fK", symbol, v/1_000)
	default:
		return symbol + strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// FormatPercent renders a percentage with one decimal place, or "N/A" for nil.
func FormatPercent(pct *float64) string {
	if pct == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *pct)
}

// ParseAmount reads a user-typed amount. Spaces, commas, underscores and a
// leading pound sign are ignored, so "£60 000" and "60,000" both parse.
func ParseAmount(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, symbol)
	clean = strings.NewReplacer(" ", "", "\u00a0", "", ",", "", "_", "").Replace(clean)
	if clean == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// GroupDigits inserts a space every three digits from the right, the way the
// calculator form echoes typed amounts back. Non-digits are dropped.
// e.g., "1234567" -> "1 234 567"
func GroupDigits(s string) string {
	var digits strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	d := digits.String()
	if len(d) <= 3 {
		return d
	}

	var b strings.Builder
	lead := len(d) % 3
	if lead > 0 {
		b.WriteString(d[:lead])
	}
	for i := lead; i < len(d); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d[i : i+3])
	}
	return b.String()
}
