package eslog

import (
	"regexp"
	"strings"
)

var vatNumberRx = regexp.MustCompile(`^SI\d{8}$`)

// party is one NAD participant with the identifiers found in its group.
type party struct {
	role string // D_3035: SU supplier, SE seller
	code string // C_C082/D_3039
	name string
	gln  string
	vat  string
}

// extractSupplier resolves the supplier party: NAD role "SU" first, "SE"
// as fallback. The supplier ID prefers a valid VAT number over the GLN
// over the plain NAD code, because the VAT number is the only identifier
// that is stable across supplier systems.
func extractSupplier(idx *docIndex) (id, name, vat string) {
	parties := collectParties(idx)

	var chosen *party
	for i := range parties {
		if parties[i].role == "SU" {
			chosen = &parties[i]
			break
		}
	}
	if chosen == nil {
		for i := range parties {
			if parties[i].role == "SE" {
				chosen = &parties[i]
				break
			}
		}
	}
	if chosen == nil {
		return "", "", ""
	}

	vat = chosen.vat
	if vat == "" {
		vat = documentVAT(idx)
	}

	switch {
	case vat != "":
		id = vat
	case chosen.gln != "":
		id = chosen.gln
	default:
		id = chosen.code
	}
	return id, chosen.name, vat
}

func collectParties(idx *docIndex) []party {
	var out []party
	for _, g := range idx.partyGroups {
		nad := g.Child("S_NAD")
		if nad == nil {
			continue
		}
		p := partyFromNAD(nad)
		// the VAT reference lives in a sibling RFF group
		for _, rff := range g.Descendants("S_RFF") {
			if v := vatFromRFF(rff); v != "" {
				p.vat = v
				break
			}
		}
		out = append(out, p)
	}
	// unwrapped NAD segments without a G_SG2 parent
	for _, nad := range idx.nads {
		out = append(out, partyFromNAD(nad))
	}
	return out
}

func partyFromNAD(nad *Node) party {
	p := party{
		role: nad.Text("D_3035"),
		gln:  nad.Text("S_GLN", "D_7402"),
	}
	if code := nad.Find("C_C082", "D_3039"); code != nil {
		p.code = code.Value
	} else if d := nad.Descendants("D_3039"); len(d) > 0 {
		p.code = d[0].Value
	}
	var nameParts []string
	for _, c080 := range nad.Descendants("C_C080") {
		for _, part := range c080.ChildAll("D_3036") {
			if part.Value != "" {
				nameParts = append(nameParts, part.Value)
			}
		}
	}
	p.name = strings.Join(nameParts, " ")
	return p
}

// vatFromRFF reads a "VA" reference and validates the Slovenian format.
// Malformed values are dropped rather than guessed at.
func vatFromRFF(rff *Node) string {
	c := rff.Child("C_C506")
	if c == nil {
		return ""
	}
	if c.Text("D_1153") != "VA" {
		return ""
	}
	return normalizeVAT(c.Text("D_1154"))
}

func normalizeVAT(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "SI") {
		raw = "SI" + raw
	}
	if vatNumberRx.MatchString(raw) {
		return raw
	}
	return ""
}

// documentVAT scans header-level references and UBL party tax schemes for
// a usable VAT number when the party group itself carries none.
func documentVAT(idx *docIndex) string {
	for _, rff := range idx.rffs {
		if v := vatFromRFF(rff); v != "" {
			return v
		}
	}
	// UBL fragment fallback: cac:PartyTaxScheme/cbc:CompanyID
	for _, pts := range idx.root.Descendants("PartyTaxScheme") {
		if id := pts.Child("CompanyID"); id != nil {
			if v := normalizeVAT(id.Value); v != "" {
				return v
			}
		}
	}
	for _, id := range idx.root.Descendants("CompanyID") {
		if v := normalizeVAT(id.Value); v != "" {
			return v
		}
	}
	return ""
}

// DTM qualifier codes.
const (
	dtmServiceDate = "35"
	dtmInvoiceDate = "137"
)

// extractServiceDate returns the delivery date (DTM 35), falling back to
// the invoice date (DTM 137), normalized to ISO form.
func extractServiceDate(idx *docIndex) string {
	if d := dtmValue(idx, dtmServiceDate); d != "" {
		return d
	}
	return dtmValue(idx, dtmInvoiceDate)
}

func dtmValue(idx *docIndex, code string) string {
	for _, dtm := range idx.dtms {
		c := dtm.Child("C_C507")
		if c == nil || c.Text("D_2005") != code {
			continue
		}
		if iso := normalizeDate(c.Text("D_2380")); iso != "" {
			return iso
		}
	}
	return ""
}

// normalizeDate accepts format 102 (CCYYMMDD) and already-ISO values.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case len(raw) == 8 && isDigits(raw):
		return raw[:4] + "-" + raw[4:6] + "-" + raw[6:8]
	case len(raw) >= 10 && raw[4] == '-' && raw[7] == '-':
		return raw[:10]
	}
	return ""
}

// extractInvoiceNumber reads the document number from BGM.
func extractInvoiceNumber(idx *docIndex) string {
	if idx.bgm == nil {
		return ""
	}
	if num := idx.bgm.Text("C_C106", "D_1004"); num != "" {
		return num
	}
	return idx.bgm.Text("D_1004")
}

// extractCurrency reads the invoice currency (CUX 6345), defaulting to EUR.
func extractCurrency(idx *docIndex) string {
	if idx.cux != nil {
		for _, c504 := range idx.cux.ChildAll("C_C504") {
			if cur := c504.Text("D_6345"); cur != "" {
				return cur
			}
		}
	}
	return "EUR"
}
