// Package money formats integer cent amounts for display.
package money

import "github.com/shopspring/decimal"

// FromCents converts an integer cent amount to a two-place decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatUSD renders cents as a dollar string such as "$45.00".
func FormatUSD(cents int64) string {
	d := FromCents(cents)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
