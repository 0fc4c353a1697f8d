package model

import (
	"github.com/shopspring/decimal"
)

// Amount converts a catalog price into a decimal.
// Catalog prices arrive as JSON numbers in major units (e.g. 9.99), so the
// float is rounded to cents before any arithmetic to keep totals exact.
// Negative prices are clamped to zero.
func Amount(price float64) decimal.Decimal {
	if price <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(price).Round(2)
}

// FormatAmount renders an amount with exactly two decimals.
// Examples: 25 → "25.00", 35.5 → "35.50"
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
