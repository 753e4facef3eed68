package eslog

import (
	"strings"

	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// Relevant MOA qualifier codes.
const (
	moaLineNet     = "203" // line net after discount
	moaDiscount    = "204" // discount amount
	moaPctBase     = "25"  // alternate percentage base
	moaDocDiscount = "260" // document discount
	moaAltDiscount = "131" // alternate document discount
	moaVAT         = "124" // tax amount
	moaVATBase     = "125" // taxable base
	moaLineGross   = "38"  // line gross
	moaHeaderNet   = "389" // header net
	moaAltNet      = "79"  // grand total variant
	moaGross       = "9"   // amount due
	moaAltGross    = "388" // alternate gross
	moaCharge      = "504" // document charge
)

// docIndex separates header-level segment groups from those nested inside
// line items; G_SG34 and S_MOA appear at both levels with different roles.
type docIndex struct {
	root            *Node
	lines           []*Node // G_SG26
	allowanceGroups []*Node // header-level G_SG50 / G_SG20
	taxGroups       []*Node // header-level G_SG52 and G_SG34
	partyGroups     []*Node // G_SG2
	nads            []*Node // header-level S_NAD (unwrapped variants)
	rffs            []*Node // header-level S_RFF outside party groups
	dtms            []*Node
	bgm             *Node
	cux             *Node
}

func indexDocument(root *Node) *docIndex {
	idx := &docIndex{root: root}
	var walk func(n *Node, inLine, inParty bool)
	walk = func(n *Node, inLine, inParty bool) {
		for _, c := range n.Children {
			switch c.Kind {
			case KindLineGroup:
				idx.lines = append(idx.lines, c)
				continue // line internals handled per line
			case KindDocAllowanceGroup:
				if !inLine {
					idx.allowanceGroups = append(idx.allowanceGroups, c)
				}
			case KindTaxSummaryGroup, KindLineTaxGroup:
				if !inLine {
					idx.taxGroups = append(idx.taxGroups, c)
				}
			case KindPartyGroup:
				idx.partyGroups = append(idx.partyGroups, c)
				walk(c, inLine, true)
				continue
			case KindNAD:
				if !inParty {
					idx.nads = append(idx.nads, c)
				}
			case KindRFF:
				if !inParty {
					idx.rffs = append(idx.rffs, c)
				}
			case KindDTM:
				idx.dtms = append(idx.dtms, c)
			case KindBGM:
				if idx.bgm == nil {
					idx.bgm = c
				}
			case KindCUX:
				if idx.cux == nil {
					idx.cux = c
				}
			}
			walk(c, inLine, inParty)
		}
	}
	walk(root, false, false)
	return idx
}

// lineMOA sums MOA values with the given code among the direct S_MOA
// children of the line group and its G_SG27 subgroups. Allowance subtrees
// (G_SG39) carry their own MOA segments and are deliberately out of scope.
func lineMOA(line *Node, code string) (decimal.Decimal, bool) {
	scope := append([]*Node{line}, line.ChildAll("G_SG27")...)
	total := dec.Zero
	found := false
	for _, n := range scope {
		for _, moa := range n.ChildAll("S_MOA") {
			if moaCode(moa) == code {
				total = total.Add(moaValue(moa))
				found = true
			}
		}
	}
	return total, found
}

// extractLine builds one ledger row from a G_SG26 group. Zero-quantity
// lines are kept: they are discount or charge annotations, not goods, and
// still carry a net amount.
func (p *Parser) extractLine(line *Node, headerRates []decimal.Decimal) (model.LineItem, []model.Warning) {
	var warnings []model.Warning

	item := model.LineItem{
		Quantity:    line.Decimal("S_QTY", "C_C186", "D_6060"),
		Unit:        line.Text("S_QTY", "C_C186", "D_6411"),
		ArticleCode: articleCode(line),
		Description: description(line),
	}

	var priceNet, priceGross decimal.Decimal
	for _, pri := range line.Descendants("S_PRI") {
		amt := pri.Decimal("C_C509", "D_5118")
		switch pri.Text("C_C509", "D_5125") {
		case "AAA":
			priceNet = amt
		case "AAB":
			priceGross = amt
		}
	}
	if priceGross.IsZero() {
		priceGross = priceNet
	}

	net, netFound := lineMOA(line, moaLineNet)
	gross, grossFound := lineMOA(line, moaLineGross)

	tax := resolveLineTax(line, net, headerRates)
	if !tax.resolved {
		item.TaxUnresolved = true
		warnings = append(warnings, model.Warning{
			Code:    model.WarnTaxUnresolved,
			Message: "line VAT rate could not be resolved; contributing zero tax",
		})
	}

	if !netFound && grossFound {
		// derive net from the gross line amount
		if tax.amountKnown {
			net = gross.Sub(tax.amount)
		} else if !tax.rate.IsZero() {
			net = dec.Cents(gross.Div(decimal.NewFromInt(1).Add(tax.rate.Div(decimal.NewFromInt(100)))))
			tax = tax.withAmount(gross.Sub(net))
		} else {
			net = gross
		}
	}

	disc := resolveLineDiscounts(line, net)
	item.NetAmount = disc.net
	item.DiscountAmount = disc.total()
	item.DiscountPct = disc.percentage()
	item.IsGratis = item.DiscountPct.GreaterThanOrEqual(model.GratisThreshold)

	// tax computed from a bare rate tracks the post-allowance net
	if !tax.amountKnown && !tax.rate.IsZero() {
		tax = tax.withAmount(dec.Percentage(item.NetAmount, tax.rate))
	}
	item.VATRate = tax.rate
	item.VATAmount = tax.amount

	item.PriceNet = priceNet
	item.PriceGross = priceGross
	if !item.Quantity.IsZero() {
		// unit prices before and after the line discount
		item.PriceNet = dec.UnitPrice(item.NetAmount.Div(item.Quantity))
		item.PriceGross = dec.UnitPrice(item.NetAmount.Add(item.DiscountAmount).Div(item.Quantity))
	}

	return item, warnings
}

// articleCode prefers the dedicated article identifier (S_PIA scheme "SA")
// and falls back to the line reference, digits only.
func articleCode(line *Node) string {
	for _, pia := range line.Descendants("S_PIA") {
		for _, c212 := range pia.ChildAll("C_C212") {
			if c212.Text("D_7143") == "SA" {
				if code := c212.Text("D_7140"); code != "" {
					return code
				}
			}
		}
	}
	fb := line.Text("S_LIN", "C_C212", "D_7140")
	if fb != "" && isDigits(fb) {
		return fb
	}
	return ""
}

func description(line *Node) string {
	var parts []string
	for _, imd := range line.Descendants("S_IMD") {
		if txt := imd.Text("C_C273", "D_7008"); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
