// Package money holds the monetary math shared by quotes, invoices and
// payments. All amounts are decimal, rounded to 2 places at the line level,
// and serialized as fixed 2-dp strings. GST is the flat 10% rate.
package money

import "github.com/shopspring/decimal"

// GSTRate is the flat consumption tax rate applied per line item.
var GSTRate = decimal.NewFromFloat(0.10)

// Round normalizes an amount to 2 decimal places (half away from zero).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Amount is a monetary value carried by the persisted models. Its JSON
// form is always a decimal string with exactly two fraction digits,
// however the value was computed. Storage and comparison behave as the
// embedded decimal.
type Amount struct {
	decimal.Decimal
}

// Amt wraps a computed decimal for storage on a model.
func Amt(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.Decimal.StringFixed(2) + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Format renders an amount as a base-10 string with exactly 2 fraction
// digits. Binary floats never cross the wire.
func Format(d interface{ StringFixed(places int32) string }) string {
	return d.StringFixed(2)
}

// GST returns the rounded GST portion for a line subtotal.
func GST(subtotal decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(GSTRate))
}

// Percentage applies pct (e.g. 30 for 30%) to amount, rounded to 2 places.
func Percentage(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// IsPositive reports whether d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// IsNegative reports whether d < 0.
func IsNegative(d decimal.Decimal) bool {
	return d.Sign() < 0
}
