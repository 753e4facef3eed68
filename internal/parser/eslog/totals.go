package eslog

import (
	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// headerConsistencyTol bounds how far two header candidates may drift and
// still count as "the same amount" during disambiguation.
var headerConsistencyTol = decimal.RequireFromString("0.02")

// extractTotals recovers net, VAT and gross from the document header.
// Each amount has its own fallback chain because real invoice sources
// populate different subsets of the MOA codes.
func extractTotals(idx *docIndex, lineNet, lineVAT decimal.Decimal, adjustments []model.DocumentAdjustment) model.Totals {
	vat := extractHeaderVAT(idx)
	gross := extractHeaderGross(idx)
	net := extractHeaderNet(idx, lineNet, adjustments, vat, gross)

	// no tax summary in the header: the line-derived VAT stands in
	if vat.IsZero() && !lineVAT.IsZero() {
		vat = lineVAT
	}

	// no stated tax anywhere but a single declared rate: derive from net
	if vat.IsZero() && gross.IsZero() && !net.IsZero() {
		if rates := headerTaxRates(idx.taxGroups); len(rates) == 1 {
			vat = dec.Percentage(net, rates[0])
		}
	}

	// back-fill a single missing amount when the other two determine it
	switch {
	case gross.IsZero() && !net.IsZero():
		gross = dec.Cents(net.Add(vat))
	case net.IsZero() && !gross.IsZero():
		net = dec.Cents(gross.Sub(vat))
	case vat.IsZero() && !net.IsZero() && !gross.IsZero():
		vat = dec.Cents(gross.Sub(net))
	}

	totals := model.Totals{
		Net:   dec.Cents(net),
		VAT:   dec.Cents(vat),
		Gross: dec.Cents(gross),
	}
	tol := dec.ToleranceFor(totals.Gross, headerConsistencyTol, decimal.RequireFromString("0.50"))
	totals.Mismatch = !dec.WithinTolerance(totals.Net.Add(totals.VAT), totals.Gross, tol)
	return totals
}

// extractHeaderNet resolves the declared net total: MOA 389, else MOA 79,
// else an SG50-level MOA 203 adjusted by document discounts and charges,
// else the sum of tax-group bases, else the line-derived sum. When 389 and
// 79 disagree, the candidate consistent with gross-vat wins; without a
// usable gross, the one matching the line-derived sum wins.
func extractHeaderNet(idx *docIndex, lineNet decimal.Decimal, adjustments []model.DocumentAdjustment, vat, gross decimal.Decimal) decimal.Decimal {
	net389 := sumMOA(idx.allowanceGroups, moaHeaderNet)
	net79 := sumMOA(idx.allowanceGroups, moaAltNet)

	lineDerived := lineNet
	for _, a := range adjustments {
		lineDerived = lineDerived.Add(a.Value())
	}

	if !net389.IsZero() && !net79.IsZero() && !net389.Equal(net79) {
		if !gross.IsZero() && !vat.IsZero() {
			want := gross.Sub(vat)
			if dec.WithinTolerance(net389, want, headerConsistencyTol) {
				return net389
			}
			if dec.WithinTolerance(net79, want, headerConsistencyTol) {
				return net79
			}
		}
		if dec.WithinTolerance(net79, lineDerived, headerConsistencyTol) {
			return net79
		}
		return net389
	}
	if !net389.IsZero() {
		return net389
	}
	if !net79.IsZero() {
		return net79
	}

	// some sources state the pre-discount net as an SG50-level MOA 203;
	// the declared net is that base less the document adjustments
	if hdr203 := sumMOA(idx.allowanceGroups, moaLineNet); !hdr203.IsZero() {
		net := hdr203
		for _, a := range adjustments {
			if !a.FromLine {
				net = net.Add(a.Value())
			}
		}
		return net
	}

	if base := headerVATBases(idx); !base.IsZero() {
		return base
	}
	return lineDerived
}

// extractHeaderVAT sums the tax amounts of the header tax groups. When a
// group carries both MOA 124 and 125 the pair may be swapped at the
// source; the larger magnitude is always the base, so the smaller one is
// taken as tax.
func extractHeaderVAT(idx *docIndex) decimal.Decimal {
	scopes := append(append([]*Node{}, idx.taxGroups...), idx.allowanceGroups...)
	total := dec.Zero
	found := false
	for _, g := range scopes {
		tax, okTax := directMOA(g, moaVAT)
		base, okBase := directMOA(g, moaVATBase)
		switch {
		case okTax && okBase:
			if tax.Abs().GreaterThan(base.Abs()) {
				tax, base = base, tax
			}
			total = total.Add(tax)
			found = true
		case okTax:
			total = total.Add(tax)
			found = true
		}
	}
	if found {
		return total
	}
	// UBL fragments state the header tax as cbc:TaxAmount
	for _, g := range idx.taxGroups {
		if ta := g.Child("TaxAmount"); ta != nil {
			if v, err := dec.FromString(ta.Value); err == nil {
				return v
			}
		}
	}
	return dec.Zero
}

// headerVATBases sums the taxable bases of the header tax groups, with
// the same swapped-pair correction as extractHeaderVAT.
func headerVATBases(idx *docIndex) decimal.Decimal {
	total := dec.Zero
	for _, g := range idx.taxGroups {
		tax, okTax := directMOA(g, moaVAT)
		base, okBase := directMOA(g, moaVATBase)
		switch {
		case okTax && okBase:
			if tax.Abs().GreaterThan(base.Abs()) {
				base = tax
			}
			total = total.Add(base)
		case okBase:
			total = total.Add(base)
		}
	}
	return total
}

// extractHeaderGross resolves the declared gross: MOA 9, else MOA 388.
// The caller falls back to net+vat when neither is present.
func extractHeaderGross(idx *docIndex) decimal.Decimal {
	scopes := append(append([]*Node{}, idx.allowanceGroups...), idx.taxGroups...)
	if g := sumMOA(scopes, moaGross); !g.IsZero() {
		return g
	}
	return sumMOA(scopes, moaAltGross)
}
