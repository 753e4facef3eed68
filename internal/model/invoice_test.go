package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijav64/eslog-processor/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAdjustmentValue(t *testing.T) {
	disc := model.DocumentAdjustment{Kind: model.AdjustmentDiscount, Amount: d("15")}
	assert.Equal(t, "-15", disc.Value().String())

	charge := model.DocumentAdjustment{Kind: model.AdjustmentCharge, Amount: d("2")}
	assert.Equal(t, "2", charge.Value().String())
}

func TestLineTotals(t *testing.T) {
	inv := &model.Invoice{
		Lines: []model.LineItem{
			{NetAmount: d("100"), VATAmount: d("22")},
			{NetAmount: d("50"), VATAmount: d("11")},
		},
	}
	assert.Equal(t, "150", inv.LineNetTotal().String())
	assert.Equal(t, "33", inv.LineVATTotal().String())
}

func TestAdjustmentTotal_SkipsInformational(t *testing.T) {
	inv := &model.Invoice{
		Adjustments: []model.DocumentAdjustment{
			{Kind: model.AdjustmentDiscount, Amount: d("10")},
			{Kind: model.AdjustmentDiscount, Amount: d("5"), IsInformational: true},
			{Kind: model.AdjustmentCharge, Amount: d("2")},
		},
	}
	assert.Equal(t, "-8", inv.AdjustmentTotal().String())
}

func TestTaxAllocations(t *testing.T) {
	inv := &model.Invoice{
		Lines: []model.LineItem{
			{NetAmount: d("100"), VATRate: d("9.5"), VATAmount: d("9.5")},
			{NetAmount: d("120"), VATRate: d("22"), VATAmount: d("26.4")},
			{NetAmount: d("80"), VATRate: d("22"), VATAmount: d("17.6")},
		},
	}

	allocs := inv.TaxAllocations()
	require.Len(t, allocs, 2)

	assert.Equal(t, "9.5", allocs[0].Rate.String())
	assert.Equal(t, "100", allocs[0].NetBase.String())

	assert.Equal(t, "22", allocs[1].Rate.String())
	assert.Equal(t, "200", allocs[1].NetBase.String())
	assert.Equal(t, "44", allocs[1].VATAmount.String())
}

func TestGratisThresholds_Distinct(t *testing.T) {
	// the parser threshold is looser than the ledger merge threshold
	assert.True(t, model.GratisMergeThreshold.GreaterThan(model.GratisThreshold))
}

func TestParseError(t *testing.T) {
	err := model.NewParseError("invoice.xml", "xml", "malformed XML", assert.AnError)
	assert.Contains(t, err.Error(), "invoice.xml")
	assert.Contains(t, err.Error(), "malformed XML")
	assert.ErrorIs(t, err, assert.AnError)
}
