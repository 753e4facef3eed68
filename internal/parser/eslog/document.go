// Package eslog parses Slovenian eSLOG 2.0 (EDIFACT INVOIC) e-invoices into
// the canonical ledger model.
//
// Real invoices mix the urn:eslog:2.00 namespace, the enriched EDIFACT
// variant and unnamespaced documents, so the raw XML is normalized once into
// a namespace-agnostic tree of typed nodes before any business logic runs.
package eslog

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// SegmentKind classifies the structural elements the engine dispatches on.
type SegmentKind int

const (
	KindOther SegmentKind = iota
	KindLineGroup          // G_SG26
	KindLineAllowance      // G_SG39
	KindAllowanceDetail    // G_SG41 (percentage detail)
	KindAllowanceAmount    // G_SG42 (amount detail)
	KindLineTaxGroup       // G_SG34
	KindDocAllowanceGroup  // G_SG50, G_SG20
	KindTaxSummaryGroup    // G_SG52
	KindPartyGroup         // G_SG2
	KindMOA
	KindQTY
	KindPRI
	KindPIA
	KindLIN
	KindIMD
	KindALC
	KindPCD
	KindTAX
	KindNAD
	KindRFF
	KindDTM
	KindCUX
	KindBGM
)

var kindByTag = map[string]SegmentKind{
	"G_SG26": KindLineGroup,
	"G_SG39": KindLineAllowance,
	"G_SG41": KindAllowanceDetail,
	"G_SG42": KindAllowanceAmount,
	"G_SG34": KindLineTaxGroup,
	"G_SG50": KindDocAllowanceGroup,
	"G_SG20": KindDocAllowanceGroup,
	"G_SG52": KindTaxSummaryGroup,
	"G_SG2":  KindPartyGroup,
	"S_MOA":  KindMOA,
	"S_QTY":  KindQTY,
	"S_PRI":  KindPRI,
	"S_PIA":  KindPIA,
	"S_LIN":  KindLIN,
	"S_IMD":  KindIMD,
	"S_ALC":  KindALC,
	"S_PCD":  KindPCD,
	"S_TAX":  KindTAX,
	"S_NAD":  KindNAD,
	"S_RFF":  KindRFF,
	"S_DTM":  KindDTM,
	"S_CUX":  KindCUX,
	"S_BGM":  KindBGM,
}

// Node is one element of the normalized document tree. Tags are local
// names; namespace prefixes are stripped during normalization.
type Node struct {
	Kind     SegmentKind
	Tag      string
	Value    string
	Children []*Node
}

// Parse reads raw XML into a normalized document tree. External entities
// and DTDs are never resolved: the underlying reader is permissive, so an
// entity-expansion attempt degrades to literal text instead of a fetch.
// Malformed XML is a fatal ParseError.
func Parse(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewParseError("stream", "xml", "malformed XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, model.NewParseError("stream", "xml", "empty document", nil)
	}
	return normalize(root), nil
}

func normalize(el *etree.Element) *Node {
	tag := localName(el.Tag)
	n := &Node{
		Kind:  kindByTag[tag],
		Tag:   tag,
		Value: strings.TrimSpace(el.Text()),
	}
	for _, child := range el.ChildElements() {
		n.Children = append(n.Children, normalize(child))
	}
	return n
}

func localName(tag string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildAll returns all direct children with the given local name.
func (n *Node) ChildAll(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Find walks a chain of local names from n, taking the first match at
// each level. It returns nil when any link is missing.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, tag := range path {
		cur = cur.Child(tag)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Descendants returns every node with the given local name anywhere under
// n, in document order. n itself is not considered.
func (n *Node) Descendants(tag string) []*Node {
	var out []*Node
	n.walk(func(d *Node) {
		if d.Tag == tag {
			out = append(out, d)
		}
	})
	return out
}

// DescendantsOfKind returns every node of the given kind under n.
func (n *Node) DescendantsOfKind(kind SegmentKind) []*Node {
	var out []*Node
	n.walk(func(d *Node) {
		if d.Kind == kind {
			out = append(out, d)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		c.walk(fn)
	}
}

// Text returns the trimmed text of the node at the given path, or "".
func (n *Node) Text(path ...string) string {
	if found := n.Find(path...); found != nil {
		return found.Value
	}
	return ""
}

// Decimal returns the decimal value of the node at the given path.
// Missing nodes and unparseable text yield zero, matching how optional
// monetary segments default.
func (n *Node) Decimal(path ...string) decimal.Decimal {
	d, err := dec.FromString(n.Text(path...))
	if err != nil {
		return dec.Zero
	}
	return d
}

// moaCode returns the qualifier of an S_MOA segment (C_C516/D_5025).
func moaCode(moa *Node) string {
	return moa.Text("C_C516", "D_5025")
}

// moaValue returns the amount of an S_MOA segment (C_C516/D_5004).
func moaValue(moa *Node) decimal.Decimal {
	return moa.Decimal("C_C516", "D_5004")
}

// sumMOA sums the values of all S_MOA segments with any of the given codes
// among the direct children of each node in scope.
func sumMOA(scope []*Node, codes ...string) decimal.Decimal {
	total := dec.Zero
	for _, n := range scope {
		for _, moa := range n.ChildAll("S_MOA") {
			for _, code := range codes {
				if moaCode(moa) == code {
					total = total.Add(moaValue(moa))
				}
			}
		}
	}
	return total
}
