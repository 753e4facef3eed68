// Package decimal wraps shopspring/decimal with the euro-cent conventions
// used throughout the engine. All precision is carried by the values
// themselves; nothing here mutates process-wide numeric state.
package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// FromString parses a decimal from invoice text. Slovenian invoices write
// amounts with a decimal comma and occasionally thousand separators, so
// "1.234,56" and "1234,56" both parse to 1234.56. Empty text is zero.
func FromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		// comma is the decimal separator, dots are thousand separators
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

// MustFromString parses a decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Cents quantizes to 2 decimal places (euro cents).
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// UnitPrice quantizes to 4 decimal places, the precision used for per-unit
// prices so that cent rounding happens only on line amounts.
func UnitPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

// Percentage computes amount * pct / 100, quantized to cents.
func Percentage(amount, pct decimal.Decimal) decimal.Decimal {
	return Cents(amount.Mul(pct).Div(hundred))
}

// DiscountPct derives the effective discount percentage from the discount
// amount and the post-discount net: amount / (net + amount) * 100, to 2 dp.
// A zero base yields zero.
func DiscountPct(discount, net decimal.Decimal) decimal.Decimal {
	base := net.Add(discount)
	if base.IsZero() {
		return Zero
	}
	return discount.Div(base).Mul(hundred).Round(2)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// ToleranceFor returns the acceptable absolute difference between a computed
// sum and a declared header total. Large invoices accumulate more
// independent roundings, so the step slides with the header magnitude
// instead of using one fixed epsilon.
func ToleranceFor(header, base, max decimal.Decimal) decimal.Decimal {
	step := base
	abs := header.Abs()
	switch {
	case abs.GreaterThanOrEqual(decimal.NewFromInt(10000)):
		step = max
	case abs.GreaterThanOrEqual(decimal.NewFromInt(5000)):
		step = decimal.RequireFromString("0.25")
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		step = decimal.RequireFromString("0.10")
	}
	if step.LessThan(base) {
		step = base
	}
	if step.GreaterThan(max) {
		step = max
	}
	return step
}

// DetectRoundStep infers the rounding granularity the supplier applied from
// the magnitude of the mismatch: a sub-cent diff means cent rounding, a
// diff of a few cents means the supplier rounded per line.
func DetectRoundStep(header, computed decimal.Decimal) decimal.Decimal {
	diff := computed.Sub(header).Abs()
	switch {
	case diff.LessThanOrEqual(decimal.RequireFromString("0.01")):
		return decimal.RequireFromString("0.01")
	case diff.LessThanOrEqual(decimal.RequireFromString("0.05")):
		return decimal.RequireFromString("0.05")
	default:
		return decimal.RequireFromString("0.01")
	}
}

// RoundToStep rounds value to the nearest multiple of step.
func RoundToStep(value, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return value
	}
	return value.Div(step).Round(0).Mul(step)
}

// WithinTolerance reports whether a and b differ by at most tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
