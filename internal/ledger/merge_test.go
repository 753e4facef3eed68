package ledger_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijav64/eslog-processor/internal/ledger"
	"github.com/matijav64/eslog-processor/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMerge_SameArticleAndDiscount(t *testing.T) {
	lines := []model.LineItem{
		{ArticleCode: "1001", Quantity: d("2"), NetAmount: d("10"), VATRate: d("22"), VATAmount: d("2.2")},
		{ArticleCode: "1001", Quantity: d("3"), NetAmount: d("15"), VATRate: d("22"), VATAmount: d("3.3")},
	}

	merged := ledger.Merge(lines)
	require.Len(t, merged, 1)
	assert.Equal(t, "5", merged[0].Quantity.String())
	assert.Equal(t, "25", merged[0].NetAmount.String())
	assert.Equal(t, "5.5", merged[0].VATAmount.String())
	assert.Equal(t, "5", merged[0].PriceNet.String())
}

func TestMerge_DifferentDiscountLevelsKeptApart(t *testing.T) {
	lines := []model.LineItem{
		{ArticleCode: "1001", Quantity: d("1"), NetAmount: d("10"), DiscountPct: d("0")},
		{ArticleCode: "1001", Quantity: d("1"), NetAmount: d("9"), DiscountAmount: d("1"), DiscountPct: d("10")},
	}

	merged := ledger.Merge(lines)
	assert.Len(t, merged, 2)
}

func TestMerge_NoArticleCodeNeverMerged(t *testing.T) {
	lines := []model.LineItem{
		{Quantity: d("1"), NetAmount: d("10")},
		{Quantity: d("1"), NetAmount: d("10")},
	}

	merged := ledger.Merge(lines)
	assert.Len(t, merged, 2)
}

func TestMerge_GratisUsesStricterThreshold(t *testing.T) {
	// 99.6% effective discount: gratis for the parser, not for the ledger
	lines := []model.LineItem{
		{ArticleCode: "1001", Quantity: d("1"), NetAmount: d("0.04"), DiscountAmount: d("9.96"), DiscountPct: d("99.6")},
	}

	merged := ledger.Merge(lines)
	require.Len(t, merged, 1)
	assert.False(t, merged[0].IsGratis)

	// a fully discounted row is gratis either way
	lines = []model.LineItem{
		{ArticleCode: "1002", Quantity: d("1"), NetAmount: d("0"), DiscountAmount: d("10"), DiscountPct: d("100")},
	}
	merged = ledger.Merge(lines)
	require.Len(t, merged, 1)
	assert.True(t, merged[0].IsGratis)
}

func TestMerge_RecomputesUnitPrices(t *testing.T) {
	lines := []model.LineItem{
		{ArticleCode: "1001", Quantity: d("2"), NetAmount: d("9"), DiscountAmount: d("1"), DiscountPct: d("10")},
		{ArticleCode: "1001", Quantity: d("2"), NetAmount: d("9"), DiscountAmount: d("1"), DiscountPct: d("10")},
	}

	merged := ledger.Merge(lines)
	require.Len(t, merged, 1)
	assert.Equal(t, "4.5", merged[0].PriceNet.String())
	assert.Equal(t, "5", merged[0].PriceGross.String())
	assert.Equal(t, "10", merged[0].DiscountPct.String())
}

func TestSummarize(t *testing.T) {
	lines := []model.LineItem{
		{NetAmount: d("10"), VATAmount: d("2.2")},
		{NetAmount: d("20"), VATAmount: d("4.4")},
	}

	s := ledger.Summarize(lines)
	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, "30", s.Net.String())
	assert.Equal(t, "6.6", s.VAT.String())
	assert.Equal(t, "36.6", s.Gross.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := ledger.Summarize(nil)
	assert.Equal(t, 0, s.Rows)
	assert.True(t, s.Net.IsZero())
}
