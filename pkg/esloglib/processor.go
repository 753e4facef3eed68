package esloglib

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"github.com/matijav64/eslog-processor/internal/ledger"
	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/parser/eslog"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

// ProcessorOptions configures the parse and reconcile chain
type ProcessorOptions struct {
	// BaseTolerance is the fixed reconciliation tolerance for small
	// invoices (env: ESLOG_TOLERANCE_BASE)
	BaseTolerance decimal.Decimal
	// MaxTolerance caps the sliding tolerance (env: ESLOG_MAX_TOLERANCE)
	MaxTolerance decimal.Decimal
	// SmartTolerance slides the tolerance with the invoice magnitude
	// (env: ESLOG_SMART_TOLERANCE)
	SmartTolerance bool
	// AutoRounding closes in-tolerance gaps with a synthetic ledger row
	// (env: ESLOG_AUTO_ROUNDING)
	AutoRounding bool
	// MergeLines collapses repeated article rows in the final ledger
	MergeLines bool
}

// DefaultProcessorOptions returns the production settings, honoring the
// ESLOG_* environment variables.
func DefaultProcessorOptions() ProcessorOptions {
	env := reconcile.FromEnv()
	return ProcessorOptions{
		BaseTolerance:  env.BaseTolerance,
		MaxTolerance:   env.MaxTolerance,
		SmartTolerance: env.Smart,
		AutoRounding:   env.AutoCorrect,
		MergeLines:     true,
	}
}

// Result is the complete outcome for one invoice
type Result struct {
	// Invoice is the parsed document before ledger post-processing
	Invoice *Invoice
	// Ledger is the final bookkeeping ledger, merged when configured
	Ledger []LineItem
	// Summary totals the ledger rows
	Summary ledger.Summary
	// Reconciliation carries the computed totals, tolerance and warnings
	Reconciliation *reconcile.Result
	// NeedsReview is set when the ledger does not reconcile
	NeedsReview bool
}

// Processor parses and reconciles invoices. It is safe for concurrent use.
type Processor struct {
	parser  *eslog.Parser
	options ProcessorOptions
}

// NewProcessor creates a processor with the given options
func NewProcessor(opts ProcessorOptions) *Processor {
	return &Processor{
		parser: eslog.NewParser(eslog.Options{
			BaseTolerance: opts.BaseTolerance,
			MaxTolerance:  opts.MaxTolerance,
		}),
		options: opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultProcessorOptions())
}

// Process parses one invoice and reconciles its ledger
func (p *Processor) Process(ctx context.Context, r io.Reader) (*Result, error) {
	inv, err := p.parser.Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.finish(inv), nil
}

// ProcessFile parses and reconciles the invoice at path
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	inv, err := p.parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.finish(inv), nil
}

func (p *Processor) finish(inv *model.Invoice) *Result {
	res := reconcile.Reconcile(inv, reconcile.Options{
		BaseTolerance: p.options.BaseTolerance,
		MaxTolerance:  p.options.MaxTolerance,
		Smart:         p.options.SmartTolerance,
		AutoCorrect:   p.options.AutoRounding,
	})

	rows := res.Lines
	if p.options.MergeLines {
		rows = ledger.Merge(rows)
	}

	return &Result{
		Invoice:        inv,
		Ledger:         rows,
		Summary:        ledger.Summarize(rows),
		Reconciliation: res,
		NeedsReview:    !res.OK,
	}
}

// ParseInvoice parses the invoice at path with default settings and
// returns the merged ledger, the reconciled totals and whether the
// invoice reconciles cleanly.
func ParseInvoice(path string) ([]LineItem, ledger.Summary, bool, error) {
	res, err := NewDefaultProcessor().ProcessFile(context.Background(), path)
	if err != nil {
		return nil, ledger.Summary{}, false, err
	}
	return res.Ledger, res.Summary, res.Reconciliation.OK, nil
}
