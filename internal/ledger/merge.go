// Package ledger post-processes parsed invoice lines for bookkeeping:
// repeated deliveries of the same article collapse into one row per
// article and discount level.
package ledger

import (
	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// Merge collapses lines that carry the same article code, discount
// percentage and VAT rate into a single row with summed quantities and
// amounts. Lines without an article code are never merged: there is no
// way to tell two unnamed positions apart. Order follows first appearance.
func Merge(lines []model.LineItem) []model.LineItem {
	type slot struct{ index int }
	byKey := map[string]slot{}
	var out []model.LineItem

	for _, l := range lines {
		if l.ArticleCode == "" {
			out = append(out, l)
			continue
		}
		key := l.ArticleCode + "|" + l.DiscountPct.String() + "|" + l.VATRate.String()
		s, ok := byKey[key]
		if !ok {
			byKey[key] = slot{index: len(out)}
			out = append(out, l)
			continue
		}
		merged := &out[s.index]
		merged.Quantity = merged.Quantity.Add(l.Quantity)
		merged.NetAmount = merged.NetAmount.Add(l.NetAmount)
		merged.DiscountAmount = merged.DiscountAmount.Add(l.DiscountAmount)
		merged.VATAmount = merged.VATAmount.Add(l.VATAmount)
	}

	for i := range out {
		finalize(&out[i])
	}
	return out
}

// finalize recomputes the derived fields of a merged row. The gratis flag
// uses the stricter merge threshold so a row assembled from mixed
// discounts is only gratis when effectively nothing was charged.
func finalize(l *model.LineItem) {
	if !l.Quantity.IsZero() {
		l.PriceNet = dec.UnitPrice(l.NetAmount.Div(l.Quantity))
		l.PriceGross = dec.UnitPrice(l.NetAmount.Add(l.DiscountAmount).Div(l.Quantity))
	}
	l.DiscountPct = dec.DiscountPct(l.DiscountAmount, l.NetAmount)
	l.IsGratis = l.DiscountPct.GreaterThanOrEqual(model.GratisMergeThreshold)
}

// Summary are the ledger-side totals after merging.
type Summary struct {
	Rows  int             `json:"rows"`
	Net   decimal.Decimal `json:"net"`
	VAT   decimal.Decimal `json:"vat"`
	Gross decimal.Decimal `json:"gross"`
}

// Summarize totals the given ledger rows.
func Summarize(lines []model.LineItem) Summary {
	s := Summary{Rows: len(lines)}
	for _, l := range lines {
		s.Net = s.Net.Add(l.NetAmount)
		s.VAT = s.VAT.Add(l.VATAmount)
	}
	s.Net = dec.Cents(s.Net)
	s.VAT = dec.Cents(s.VAT)
	s.Gross = dec.Cents(s.Net.Add(s.VAT))
	return s
}
