package model

import (
	"github.com/shopspring/decimal"
)

// AdjustmentKind distinguishes document-level allowances from charges
type AdjustmentKind string

const (
	AdjustmentDiscount AdjustmentKind = "discount"
	AdjustmentCharge   AdjustmentKind = "charge"
)

// Gratis thresholds. The parser treats a line as gratis from 99.5%
// effective discount; ledger merging uses the stricter 99.9%. The two
// values are intentionally distinct and must not be unified without a
// stakeholder decision.
var (
	GratisThreshold      = decimal.RequireFromString("99.5")
	GratisMergeThreshold = decimal.RequireFromString("99.9")
)

// Invoice is the immutable result of parsing one eSLOG document.
// It exclusively owns its lines and adjustments; downstream consumers
// copy or derive, never mutate.
type Invoice struct {
	Number       string               `json:"number,omitempty"`
	SupplierID   string               `json:"supplier_id,omitempty"`
	SupplierName string               `json:"supplier_name,omitempty"`
	SupplierVAT  string               `json:"supplier_vat,omitempty"`
	Currency     string               `json:"currency,omitempty"`
	ServiceDate  string               `json:"service_date,omitempty"` // ISO date
	Lines        []LineItem           `json:"lines"`
	Adjustments  []DocumentAdjustment `json:"document_adjustments,omitempty"`
	HeaderTotals Totals               `json:"header_totals"`
	Warnings     []Warning            `json:"warnings,omitempty"`
}

// LineItem is one merchandise row of the ledger. NetAmount is the value
// after line-level discounts; PriceGross*Quantity - DiscountAmount should
// equal NetAmount within rounding.
type LineItem struct {
	ArticleCode    string          `json:"article_code,omitempty"`
	Description    string          `json:"description,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit,omitempty"`
	PriceGross     decimal.Decimal `json:"price_gross"`
	PriceNet       decimal.Decimal `json:"price_net"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	IsGratis       bool            `json:"is_gratis,omitempty"`
	TaxUnresolved  bool            `json:"tax_unresolved,omitempty"`
}

// DocumentAdjustment is a document-level allowance or charge. Informational
// adjustments are already reflected in the line totals and must not be
// counted again during reconciliation.
type DocumentAdjustment struct {
	Kind            AdjustmentKind  `json:"kind"`
	Amount          decimal.Decimal `json:"amount"` // always positive
	IsInformational bool            `json:"is_informational,omitempty"`
	SequenceIndex   int             `json:"sequence_index"`
	FromLine        bool            `json:"from_line,omitempty"` // reclassified 100%-discount line
	Description     string          `json:"description,omitempty"`
}

// Value returns the signed contribution of the adjustment to the net total:
// negative for discounts, positive for charges.
func (a DocumentAdjustment) Value() decimal.Decimal {
	if a.Kind == AdjustmentDiscount {
		return a.Amount.Neg()
	}
	return a.Amount
}

// TaxAllocation holds the taxable base and tax amount for one VAT rate.
type TaxAllocation struct {
	Rate      decimal.Decimal `json:"rate"`
	NetBase   decimal.Decimal `json:"net_base"`
	VATAmount decimal.Decimal `json:"vat_amount"`
}

// Totals are the header amounts declared by the invoice itself, each
// recovered through its own fallback chain.
type Totals struct {
	Net      decimal.Decimal `json:"net"`
	VAT      decimal.Decimal `json:"vat"`
	Gross    decimal.Decimal `json:"gross"`
	Mismatch bool            `json:"mismatch"`
}

// Warning codes surfaced by the engine. Mismatches are never fatal.
const (
	WarnTotalMismatch = "total_mismatch"
	WarnVATMismatch   = "vat_mismatch"
	WarnLineMismatch  = "line_net_mismatch"
	WarnTaxUnresolved = "tax_unresolved"
)

// Warning is a structured, non-fatal finding carrying the computed vs.
// expected values and the tolerance that was applied.
type Warning struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Computed  decimal.Decimal `json:"computed"`
	Expected  decimal.Decimal `json:"expected"`
	Tolerance decimal.Decimal `json:"tolerance"`
}

// LineNetTotal sums the net amounts of all merchandise lines.
func (inv *Invoice) LineNetTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range inv.Lines {
		total = total.Add(l.NetAmount)
	}
	return total
}

// LineVATTotal sums the VAT amounts of all merchandise lines.
func (inv *Invoice) LineVATTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range inv.Lines {
		total = total.Add(l.VATAmount)
	}
	return total
}

// AdjustmentTotal sums the signed values of non-informational adjustments.
func (inv *Invoice) AdjustmentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range inv.Adjustments {
		if a.IsInformational {
			continue
		}
		total = total.Add(a.Value())
	}
	return total
}

// TaxAllocations groups line nets and VAT by rate, one bucket per distinct
// rate present on the invoice.
func (inv *Invoice) TaxAllocations() []TaxAllocation {
	var order []decimal.Decimal
	buckets := map[string]*TaxAllocation{}
	for _, l := range inv.Lines {
		key := l.VATRate.String()
		b, ok := buckets[key]
		if !ok {
			b = &TaxAllocation{Rate: l.VATRate}
			buckets[key] = b
			order = append(order, l.VATRate)
		}
		b.NetBase = b.NetBase.Add(l.NetAmount)
		b.VATAmount = b.VATAmount.Add(l.VATAmount)
	}
	out := make([]TaxAllocation, 0, len(order))
	for _, r := range order {
		out = append(out, *buckets[r.String()])
	}
	return out
}
