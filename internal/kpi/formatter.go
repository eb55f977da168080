package kpi

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// printer is the locale-aware message printer for number formatting.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators.
// Example: FormatNumber(18248) returns "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats f rounded to precision decimals with thousand separators.
// Example: FormatFloat(1234.567, 2) returns "1,234.57".
func FormatFloat(f float64, precision int) string {
	precision = max(precision, 0)
	const base = 10
	multiplier := math.Pow(base, float64(precision))
	rounded := math.Round(f*multiplier) / multiplier
	if rounded == 0 {
		// Avoid "-0.0" for small negative values.
		rounded = 0
	}
	return printer.Sprintf("%v", number.Decimal(rounded, number.Scale(precision)))
}

// FormatPercent formats a percentage value, e.g. "87.5%".
func FormatPercent(p float64, precision int) string {
	return FormatFloat(p, precision) + "%"
}
