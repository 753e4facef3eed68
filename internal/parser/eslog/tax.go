package eslog

import (
	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// lineTax carries the resolved VAT for one line. amountKnown distinguishes
// a stated amount (authoritative) from one that still has to be derived
// from the rate once the post-allowance net is known.
type lineTax struct {
	amount      decimal.Decimal
	rate        decimal.Decimal
	amountKnown bool
	resolved    bool
}

func (t lineTax) withAmount(a decimal.Decimal) lineTax {
	t.amount = a
	t.amountKnown = true
	t.resolved = true
	return t
}

// resolveLineTax assigns VAT to a line. A stated MOA 124 is authoritative;
// multiple entries (split by jurisdiction nuance) are summed. The UBL
// cbc:TaxAmount fallback covers partner systems embedding UBL fragments.
// Without a stated amount the rate is applied to the base (MOA 125) or the
// net; without a rate, a single header rate is borrowed. Multi-rate
// invoices with no per-line tax stay unresolved and contribute zero.
func resolveLineTax(line *Node, net decimal.Decimal, headerRates []decimal.Decimal) lineTax {
	t := lineTax{}

	groups := line.Descendants("G_SG34")
	for _, g := range groups {
		if r := taxGroupRate(g); !r.IsZero() && t.rate.IsZero() {
			t.rate = r
		}
		if amt, ok := directMOA(g, moaVAT); ok {
			t.amount = t.amount.Add(amt)
			t.amountKnown = true
			continue
		}
		if ta := g.Child("TaxAmount"); ta != nil {
			if v, err := dec.FromString(ta.Value); err == nil && !v.IsZero() {
				t.amount = t.amount.Add(v)
				t.amountKnown = true
				continue
			}
		}
		if base, ok := directMOA(g, moaVATBase); ok {
			r := taxGroupRate(g)
			if r.IsZero() {
				r = t.rate
			}
			if !r.IsZero() {
				t.amount = t.amount.Add(dec.Percentage(base, r))
				t.amountKnown = true
			}
		}
	}

	if t.amountKnown {
		t.resolved = true
		if t.rate.IsZero() && !net.IsZero() {
			t.rate = t.amount.Div(net).Mul(decimal.NewFromInt(100)).Round(1)
		}
		return t
	}

	if !t.rate.IsZero() {
		t.resolved = true
		return t // amount derived later from the final net
	}

	// header fallback: only safe when the whole invoice carries one rate
	if len(headerRates) == 1 && !headerRates[0].IsZero() {
		t.rate = headerRates[0]
		t.resolved = true
		return t
	}

	t.resolved = len(groups) == 0 && len(headerRates) == 0
	return t
}

func taxGroupRate(g *Node) decimal.Decimal {
	if tax := g.Child("S_TAX"); tax != nil {
		return tax.Decimal("C_C243", "D_5278")
	}
	return dec.Zero
}

// headerTaxRates collects the distinct VAT rates declared in header tax
// summary groups, in document order.
func headerTaxRates(groups []*Node) []decimal.Decimal {
	var rates []decimal.Decimal
	seen := map[string]bool{}
	for _, g := range groups {
		r := taxGroupRate(g)
		if r.IsZero() || seen[r.String()] {
			continue
		}
		seen[r.String()] = true
		rates = append(rates, r)
	}
	return rates
}

// VATAfterDocDiscount spreads a document-level discount proportionally
// across the taxable base of every rate bucket and returns the resulting
// total VAT. This keeps the VAT closure exact when a discount shrinks a
// multi-rate base.
func VATAfterDocDiscount(allocations []model.TaxAllocation, docDiscount decimal.Decimal) decimal.Decimal {
	totalNet := dec.Zero
	for _, a := range allocations {
		totalNet = totalNet.Add(a.NetBase)
	}
	if totalNet.IsZero() {
		return dec.Zero
	}
	vat := dec.Zero
	for _, a := range allocations {
		share := docDiscount.Mul(a.NetBase).Div(totalNet)
		base := a.NetBase.Sub(share)
		vat = vat.Add(dec.Percentage(base, a.Rate))
	}
	return dec.Cents(vat)
}
