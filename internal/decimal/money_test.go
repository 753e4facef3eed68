package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijav64/eslog-processor/internal/decimal"
)

func TestFromString(t *testing.T) {
	d, err := decimal.FromString("123456.78")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec.RequireFromString("123456.78")))

	_, err = decimal.FromString("not-a-number")
	require.Error(t, err)
}

func TestFromString_DecimalComma(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain comma", "1234,56", "1234.56"},
		{"thousand separator", "1.234,56", "1234.56"},
		{"multiple separators", "1.234.567,89", "1234567.89"},
		{"negative comma", "-12,5", "-12.5"},
		{"embedded spaces", "1 234,56", "1234.56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.FromString(tt.input)
			require.NoError(t, err)
			assert.True(t, d.Equal(dec.RequireFromString(tt.expected)),
				"got %s, want %s", d.String(), tt.expected)
		})
	}
}

func TestFromString_Empty(t *testing.T) {
	d, err := decimal.FromString("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = decimal.FromString("   ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestMustFromString(t *testing.T) {
	d := decimal.MustFromString("999,99")
	assert.True(t, d.Equal(dec.RequireFromString("999.99")))

	assert.Panics(t, func() {
		decimal.MustFromString("invalid")
	})
}

func TestCents(t *testing.T) {
	d := dec.RequireFromString("10.005")
	assert.Equal(t, "10.01", decimal.Cents(d).String())

	d = dec.RequireFromString("10.004")
	assert.Equal(t, "10", decimal.Cents(d).String())
}

func TestUnitPrice(t *testing.T) {
	d := dec.RequireFromString("3.33333")
	assert.Equal(t, "3.3333", decimal.UnitPrice(d).String())
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		pct      string
		expected string
	}{
		{"10% of 100", "100", "10", "10"},
		{"22% of 200", "200", "22", "44"},
		{"9.5% of 90", "90", "9.5", "8.55"},
		{"rounds to cents", "33.33", "10", "3.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decimal.Percentage(
				dec.RequireFromString(tt.amount),
				dec.RequireFromString(tt.pct),
			)
			assert.True(t, result.Equal(dec.RequireFromString(tt.expected)),
				"got %s, want %s", result.String(), tt.expected)
		})
	}
}

func TestDiscountPct(t *testing.T) {
	// discount 5 on a post-discount net of 45: 5/50 = 10%
	pct := decimal.DiscountPct(dec.NewFromInt(5), dec.NewFromInt(45))
	assert.Equal(t, "10", pct.String())

	// discount 2 on a zeroed-out line: 2/2 = 100%
	pct = decimal.DiscountPct(dec.NewFromInt(2), dec.Zero)
	assert.Equal(t, "100", pct.String())
}

func TestDiscountPct_ZeroBase(t *testing.T) {
	pct := decimal.DiscountPct(dec.Zero, dec.Zero)
	assert.True(t, pct.IsZero())
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(200),
		dec.NewFromInt(300),
	}
	result := decimal.Sum(values)
	assert.True(t, result.Equal(dec.NewFromInt(600)))
}

func TestSum_Empty(t *testing.T) {
	result := decimal.Sum([]dec.Decimal{})
	assert.True(t, result.IsZero())
}

func TestToleranceFor(t *testing.T) {
	base := dec.RequireFromString("0.02")
	max := dec.RequireFromString("0.50")

	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"small invoice", "10.04", "0.02"},
		{"just under first tier", "999.99", "0.02"},
		{"four digits", "1500", "0.10"},
		{"five thousands", "7000", "0.25"},
		{"large invoice", "15000", "0.50"},
		{"negative header uses magnitude", "-15000", "0.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tol := decimal.ToleranceFor(dec.RequireFromString(tt.header), base, max)
			assert.Equal(t, tt.expected, tol.StringFixed(2))
		})
	}
}

func TestToleranceFor_Clamped(t *testing.T) {
	// a custom base larger than a tier step wins
	base := dec.RequireFromString("0.30")
	max := dec.RequireFromString("0.50")
	tol := decimal.ToleranceFor(dec.NewFromInt(1500), base, max)
	assert.Equal(t, "0.30", tol.StringFixed(2))

	// the cap bounds the sliding step
	max = dec.RequireFromString("0.20")
	tol = decimal.ToleranceFor(dec.NewFromInt(15000), base, max)
	assert.Equal(t, "0.20", tol.StringFixed(2))
}

func TestWithinTolerance(t *testing.T) {
	tol := dec.RequireFromString("0.02")
	assert.True(t, decimal.WithinTolerance(
		dec.RequireFromString("10.04"), dec.RequireFromString("10.02"), tol))
	assert.False(t, decimal.WithinTolerance(
		dec.RequireFromString("10.05"), dec.RequireFromString("10.02"), tol))
}

func TestRoundToStep(t *testing.T) {
	step := dec.RequireFromString("0.05")
	assert.Equal(t, "10.05", decimal.RoundToStep(dec.RequireFromString("10.04"), step).String())

	// zero step leaves the value alone
	v := dec.RequireFromString("10.04")
	assert.True(t, decimal.RoundToStep(v, dec.Zero).Equal(v))
}
