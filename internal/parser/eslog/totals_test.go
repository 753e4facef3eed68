package eslog_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/parser/eslog"
)

func TestTotals_AlternateNetPreferredWhenConsistent(t *testing.T) {
	// MOA 389 and 79 disagree; 79 matches gross minus VAT and wins
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG50>
    <S_MOA><C_C516><D_5025>389</D_5025><D_5004>100.00</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>79</D_5025><D_5004>95.00</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>9</D_5025><D_5004>116.00</D_5004></C_C516></S_MOA>
  </G_SG50>
  <G_SG52>
    <S_MOA><C_C516><D_5025>124</D_5025><D_5004>21.00</D_5004></C_C516></S_MOA>
  </G_SG52>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "95", inv.HeaderTotals.Net.String())
	assert.Equal(t, "21", inv.HeaderTotals.VAT.String())
	assert.Equal(t, "116", inv.HeaderTotals.Gross.String())
	assert.False(t, inv.HeaderTotals.Mismatch)
}

func TestTotals_NetDisambiguatedByLineSum(t *testing.T) {
	// no usable gross: the candidate matching the line-derived sum wins
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG26>
    <S_MOA><C_C516><D_5025>203</D_5025><D_5004>95.00</D_5004></C_C516></S_MOA>
  </G_SG26>
  <G_SG50>
    <S_MOA><C_C516><D_5025>389</D_5025><D_5004>100.00</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>79</D_5025><D_5004>95.00</D_5004></C_C516></S_MOA>
  </G_SG50>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "95", inv.HeaderTotals.Net.String())
}

func TestTotals_SwappedTaxPairCorrected(t *testing.T) {
	// the supplier wrote the base into 124 and the tax into 125; the
	// smaller magnitude is always the tax
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG52>
    <S_MOA><C_C516><D_5025>124</D_5025><D_5004>100.00</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>125</D_5025><D_5004>22.00</D_5004></C_C516></S_MOA>
  </G_SG52>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "22", inv.HeaderTotals.VAT.String())
	assert.Equal(t, "100", inv.HeaderTotals.Net.String())
}

func TestTotals_NegativePairKeepsSign(t *testing.T) {
	// credit note: both legs negative, the tax stays -22
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG52>
    <S_MOA><C_C516><D_5025>125</D_5025><D_5004>-100.00</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>124</D_5025><D_5004>-22.00</D_5004></C_C516></S_MOA>
  </G_SG52>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "-22", inv.HeaderTotals.VAT.String())
	assert.Equal(t, "-100", inv.HeaderTotals.Net.String())
}

func TestTotals_HeaderTaxGroupVariant(t *testing.T) {
	// some sources use a header-level G_SG34 instead of G_SG52
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG34>
    <S_TAX><C_C243><D_5278>22</D_5278></C_C243></S_TAX>
    <S_MOA><C_C516><D_5025>125</D_5025><D_5004>10.00</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>124</D_5025><D_5004>2.20</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>9</D_5025><D_5004>12.20</D_5004></C_C516></S_MOA>
  </G_SG34>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "10", inv.HeaderTotals.Net.String())
	assert.Equal(t, "2.2", inv.HeaderTotals.VAT.String())
	assert.Equal(t, "12.2", inv.HeaderTotals.Gross.String())
}

func TestTotals_GrossBackfilled(t *testing.T) {
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG50>
    <S_MOA><C_C516><D_5025>389</D_5025><D_5004>50.00</D_5004></C_C516></S_MOA>
  </G_SG50>
  <G_SG52>
    <S_MOA><C_C516><D_5025>124</D_5025><D_5004>4.75</D_5004></C_C516></S_MOA>
  </G_SG52>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "54.75", inv.HeaderTotals.Gross.String())
}

func TestTotals_NetBackfilledFromGross(t *testing.T) {
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG50>
    <S_MOA><C_C516><D_5025>9</D_5025><D_5004>12.20</D_5004></C_C516></S_MOA>
  </G_SG50>
  <G_SG52>
    <S_MOA><C_C516><D_5025>124</D_5025><D_5004>2.20</D_5004></C_C516></S_MOA>
  </G_SG52>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "10", inv.HeaderTotals.Net.String())
}

func TestTotals_AlternateGrossFallback(t *testing.T) {
	xml := `<Invoice xmlns="urn:eslog:2.00">
  <G_SG50>
    <S_MOA><C_C516><D_5025>388</D_5025><D_5004>12.20</D_5004></C_C516></S_MOA>
    <S_MOA><C_C516><D_5025>389</D_5025><D_5004>10.00</D_5004></C_C516></S_MOA>
  </G_SG50>
</Invoice>`

	inv := parseString(t, xml)
	assert.Equal(t, "12.2", inv.HeaderTotals.Gross.String())
}

func TestVATAfterDocDiscount(t *testing.T) {
	allocations := []model.TaxAllocation{
		{Rate: decimal.RequireFromString("9.5"), NetBase: decimal.NewFromInt(100)},
		{Rate: decimal.NewFromInt(22), NetBase: decimal.NewFromInt(200)},
	}

	vat := eslog.VATAfterDocDiscount(allocations, decimal.NewFromInt(30))
	assert.Equal(t, "48.15", vat.StringFixed(2))
}

func TestVATAfterDocDiscount_ZeroBase(t *testing.T) {
	vat := eslog.VATAfterDocDiscount(nil, decimal.NewFromInt(30))
	require.True(t, vat.IsZero())
}
