package eslog

import (
	"context"
	"io"
	"os"

	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
)

// Options tune how strictly the parser matches line-derived sums against
// the declared header total when classifying document adjustments.
type Options struct {
	// BaseTolerance is the acceptable rounding drift on small invoices.
	BaseTolerance decimal.Decimal
	// MaxTolerance caps the sliding tolerance on large invoices.
	MaxTolerance decimal.Decimal
}

// DefaultOptions returns the production tolerances.
func DefaultOptions() Options {
	return Options{
		BaseTolerance: decimal.RequireFromString("0.02"),
		MaxTolerance:  decimal.RequireFromString("0.50"),
	}
}

// Parser converts eSLOG 2.0 documents into the canonical Invoice model.
// A Parser is stateless and safe for concurrent use.
type Parser struct {
	opts Options
}

// NewParser creates a parser with the given options. Zero tolerance
// values fall back to the defaults.
func NewParser(opts Options) *Parser {
	def := DefaultOptions()
	if opts.BaseTolerance.IsZero() {
		opts.BaseTolerance = def.BaseTolerance
	}
	if opts.MaxTolerance.IsZero() {
		opts.MaxTolerance = def.MaxTolerance
	}
	return &Parser{opts: opts}
}

// Parse reads one eSLOG document from r. Only malformed XML or an
// unreadable source is fatal; every numeric inconsistency is reported as
// a warning on the returned invoice instead. A document without line
// groups yields an invoice with zero lines.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("stream", "read", "cannot read source", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return p.build(root), nil
}

// ParseFile parses the eSLOG document at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*model.Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewParseError(path, "file", "cannot open invoice", err)
	}
	defer f.Close()
	inv, err := p.Parse(ctx, f)
	if err != nil {
		if pe, ok := err.(*model.ParseError); ok && pe.Source == "stream" {
			pe.Source = path
		}
		return nil, err
	}
	return inv, nil
}

func (p *Parser) build(root *Node) *model.Invoice {
	idx := indexDocument(root)

	inv := &model.Invoice{
		Number:      extractInvoiceNumber(idx),
		Currency:    extractCurrency(idx),
		ServiceDate: extractServiceDate(idx),
	}
	inv.SupplierID, inv.SupplierName, inv.SupplierVAT = extractSupplier(idx)

	headerRates := headerTaxRates(idx.taxGroups)

	// extract every line group, then peel off promotional credits that
	// only masquerade as merchandise
	var fromLine []model.DocumentAdjustment
	for _, lineNode := range idx.lines {
		item, warns := p.extractLine(lineNode, headerRates)
		inv.Warnings = append(inv.Warnings, warns...)
		if adj, ok := reclassifyAsAdjustment(item); ok {
			fromLine = append(fromLine, adj)
			continue
		}
		inv.Lines = append(inv.Lines, item)
	}

	lineNet := inv.LineNetTotal()

	// the cascade base for percentage discounts is the header-stated
	// pre-discount net when present, otherwise the line sum
	cascadeBase := sumMOA(idx.allowanceGroups, moaLineNet)
	if cascadeBase.IsZero() {
		cascadeBase = lineNet
	}
	docAdjs := documentAdjustments(idx.allowanceGroups, cascadeBase)

	inv.Adjustments = append(inv.Adjustments, docAdjs...)
	for i := range fromLine {
		fromLine[i].SequenceIndex = len(inv.Adjustments)
		inv.Adjustments = append(inv.Adjustments, fromLine[i])
	}

	inv.HeaderTotals = extractTotals(idx, lineNet, inv.LineVATTotal(), inv.Adjustments)

	p.classifyAdjustments(inv, lineNet)

	return inv
}

// classifyAdjustments decides whether document-level adjustments are real
// (to be subtracted during reconciliation) or informational (the supplier
// already folded them into the line amounts and repeats them for display).
// Reclassified line credits always count: their value was removed from the
// line set by the engine itself.
func (p *Parser) classifyAdjustments(inv *model.Invoice, lineNet decimal.Decimal) {
	headerNet := inv.HeaderTotals.Net
	if headerNet.IsZero() {
		return
	}
	tol := dec.ToleranceFor(headerNet, p.opts.BaseTolerance, p.opts.MaxTolerance)

	withFromLine := lineNet
	withAll := lineNet
	for _, a := range inv.Adjustments {
		withAll = withAll.Add(a.Value())
		if a.FromLine {
			withFromLine = withFromLine.Add(a.Value())
		}
	}

	if dec.WithinTolerance(withFromLine, headerNet, tol) && !withFromLine.Equal(withAll) {
		for i := range inv.Adjustments {
			if !inv.Adjustments[i].FromLine {
				inv.Adjustments[i].IsInformational = true
			}
		}
		return
	}

	if !dec.WithinTolerance(withAll, headerNet, tol) {
		inv.Warnings = append(inv.Warnings, model.Warning{
			Code:      model.WarnLineMismatch,
			Message:   "line-derived net does not match the declared header net",
			Computed:  dec.Cents(withAll),
			Expected:  headerNet,
			Tolerance: tol,
		})
	}
}
