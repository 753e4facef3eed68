package eslog

import (
	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// Allowance/charge qualifier (S_ALC/D_5463).
const (
	alcAllowance = "A"
	alcCharge    = "C"
)

// lineDiscounts reconciles the two discount signals a line can carry:
// amounts nested in G_SG42 (already reflected in the MOA 203 net, recorded
// only) and direct SG39-level percentages/amounts (applied sequentially to
// the net).
type lineDiscounts struct {
	net         decimal.Decimal
	recorded    decimal.Decimal // nested G_SG42 amounts, already in the net
	applied     decimal.Decimal // direct PCD / MOA amounts subtracted here
	explicitPct *decimal.Decimal
}

func (d lineDiscounts) total() decimal.Decimal {
	return d.recorded.Add(d.applied)
}

// percentage returns the explicit PCD value when present; otherwise it is
// derived from the discount amount against the pre-discount base.
func (d lineDiscounts) percentage() decimal.Decimal {
	if d.explicitPct != nil {
		return d.explicitPct.Round(2)
	}
	return dec.DiscountPct(d.total(), d.net)
}

// resolveLineDiscounts walks the line's SG39 allowance groups. Charge
// groups (type "C") are ignored for discount purposes. Duplicate nested
// MOA 204 entries are summed, never overwritten.
func resolveLineDiscounts(line *Node, net decimal.Decimal) lineDiscounts {
	d := lineDiscounts{net: net}

	// direct line-level MOA 204 without an SG39 wrapper appears on
	// promotional credit lines; recorded, already in the net
	if direct, found := lineMOA(line, moaDiscount); found {
		d.recorded = d.recorded.Add(direct)
	}

	for _, sg39 := range line.Descendants("G_SG39") {
		alc := sg39.Child("S_ALC")
		if alc == nil || alc.Text("D_5463") != alcAllowance {
			continue
		}

		// nested amount details disclose a discount the supplier has
		// already subtracted from MOA 203
		for _, detail := range sg39.ChildAll("G_SG42") {
			for _, moa := range detail.ChildAll("S_MOA") {
				if moaCode(moa) == moaDiscount {
					d.recorded = d.recorded.Add(moaValue(moa))
				}
			}
		}

		// direct percentage and amount apply against the running net,
		// in segment order (cascading discounts)
		pct := allowancePct(sg39)
		if !pct.IsZero() {
			p := pct
			d.explicitPct = &p
			base := d.net
			if alt, ok := directMOA(sg39, moaPctBase); ok {
				base = alt
			}
			amt := dec.Percentage(base, pct)
			d.net = d.net.Sub(amt)
			d.applied = d.applied.Add(amt)
		}
		if amt, ok := directMOA(sg39, moaDiscount); ok {
			d.net = d.net.Sub(amt)
			d.applied = d.applied.Add(amt)
		}
	}
	return d
}

// allowancePct finds the PCD percentage directly under SG39 or inside a
// G_SG41 detail group.
func allowancePct(sg39 *Node) decimal.Decimal {
	if pcd := sg39.Child("S_PCD"); pcd != nil {
		return pcd.Decimal("C_C501", "D_5482")
	}
	for _, detail := range sg39.ChildAll("G_SG41") {
		if pcd := detail.Child("S_PCD"); pcd != nil {
			return pcd.Decimal("C_C501", "D_5482")
		}
	}
	return dec.Zero
}

func directMOA(n *Node, code string) (decimal.Decimal, bool) {
	total := dec.Zero
	found := false
	for _, moa := range n.ChildAll("S_MOA") {
		if moaCode(moa) == code {
			total = total.Add(moaValue(moa))
			found = true
		}
	}
	return total, found
}

// documentAdjustments walks header-level SG50/SG20 groups in document
// order. Percentage discounts cascade: each PCD applies to the base left
// after prior allowances, mirroring how suppliers print stacked discounts.
func documentAdjustments(groups []*Node, base decimal.Decimal) []model.DocumentAdjustment {
	var out []model.DocumentAdjustment
	running := base
	seq := 0

	add := func(kind model.AdjustmentKind, amount decimal.Decimal) {
		amount = amount.Abs()
		if amount.IsZero() {
			return
		}
		out = append(out, model.DocumentAdjustment{
			Kind:          kind,
			Amount:        dec.Cents(amount),
			SequenceIndex: seq,
		})
		seq++
	}

	for _, g := range groups {
		alcType := ""
		if alc := g.Child("S_ALC"); alc != nil {
			alcType = alc.Text("D_5463")
		}

		if alcType == alcCharge {
			if amt, ok := directMOA(g, moaCharge); ok {
				add(model.AdjustmentCharge, amt)
			}
			continue
		}

		// percentage discount against the running base
		if pcd := g.Child("S_PCD"); pcd != nil {
			if pct := pcd.Decimal("C_C501", "D_5482"); !pct.IsZero() {
				amt := dec.Percentage(running, pct)
				running = running.Sub(amt)
				add(model.AdjustmentDiscount, amt)
			}
		}
		for _, code := range []string{moaDiscount, moaDocDiscount, moaAltDiscount} {
			if amt, ok := directMOA(g, code); ok && !amt.IsZero() {
				abs := amt.Abs()
				running = running.Sub(abs)
				add(model.AdjustmentDiscount, abs)
			}
		}
	}
	return out
}

// reclassifyAsAdjustment decides whether an extracted line is really a
// document-level promotional credit rather than merchandise: its net was
// driven to or below zero by an allowance while it prices nothing. A
// genuine gratis product (explicit 100% PCD with a real unit price) stays
// a line.
func reclassifyAsAdjustment(item model.LineItem) (model.DocumentAdjustment, bool) {
	sign := item.NetAmount.Sign()
	switch {
	case sign < 0 && (item.Quantity.IsZero() || item.DiscountAmount.Sign() > 0):
		return model.DocumentAdjustment{
			Kind:        model.AdjustmentDiscount,
			Amount:      item.NetAmount.Abs(),
			FromLine:    true,
			Description: item.Description,
		}, true
	case sign == 0 && item.DiscountAmount.Sign() > 0 && item.PriceGross.IsZero() && item.PriceNet.IsZero():
		return model.DocumentAdjustment{
			Kind:        model.AdjustmentDiscount,
			Amount:      item.DiscountAmount,
			FromLine:    true,
			Description: item.Description,
		}, true
	}
	return model.DocumentAdjustment{}, false
}
