// Package reconcile checks a parsed invoice ledger against the totals the
// document declares about itself. Mismatches are findings, never errors:
// the ledger is always returned, flagged for review when it cannot be
// made to agree with the header.
package reconcile

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/parser/eslog"
)

// CorrectionCode marks the synthetic ledger row that absorbs an
// in-tolerance rounding difference.
const CorrectionCode = "_ROUND_"

// Environment knobs. Values are read once per FromEnv call.
const (
	EnvToleranceBase  = "ESLOG_TOLERANCE_BASE"
	EnvMaxTolerance   = "ESLOG_MAX_TOLERANCE"
	EnvSmartTolerance = "ESLOG_SMART_TOLERANCE"
	EnvAutoRounding   = "ESLOG_AUTO_ROUNDING"
)

// Options control tolerance sizing and automatic rounding correction.
type Options struct {
	// BaseTolerance is the fixed tolerance for small invoices.
	BaseTolerance decimal.Decimal
	// MaxTolerance caps the sliding tolerance.
	MaxTolerance decimal.Decimal
	// Smart slides the tolerance with the header magnitude instead of
	// using BaseTolerance for every invoice.
	Smart bool
	// AutoCorrect appends a synthetic correction row when the computed
	// net is within tolerance of the header but not exactly equal.
	AutoCorrect bool
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		BaseTolerance: decimal.RequireFromString("0.02"),
		MaxTolerance:  decimal.RequireFromString("0.50"),
		Smart:         true,
		AutoCorrect:   true,
	}
}

// FromEnv builds Options from the ESLOG_* environment variables, falling
// back to the defaults for anything unset or unparseable.
func FromEnv() Options {
	opts := DefaultOptions()
	if v := os.Getenv(EnvToleranceBase); v != "" {
		if d, err := dec.FromString(v); err == nil && d.Sign() > 0 {
			opts.BaseTolerance = d
		}
	}
	if v := os.Getenv(EnvMaxTolerance); v != "" {
		if d, err := dec.FromString(v); err == nil && d.Sign() > 0 {
			opts.MaxTolerance = d
		}
	}
	if v := os.Getenv(EnvSmartTolerance); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.Smart = b
		}
	}
	if v := os.Getenv(EnvAutoRounding); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			opts.AutoCorrect = b
		}
	}
	return opts
}

// Result is the outcome of reconciling one invoice. Lines is the final
// ledger, including the correction row when one was applied.
type Result struct {
	Lines       []model.LineItem           `json:"lines"`
	Adjustments []model.DocumentAdjustment `json:"document_adjustments,omitempty"`

	ComputedNet   decimal.Decimal `json:"computed_net"`
	ComputedVAT   decimal.Decimal `json:"computed_vat"`
	ComputedGross decimal.Decimal `json:"computed_gross"`
	HeaderTotals  model.Totals    `json:"header_totals"`

	Tolerance decimal.Decimal `json:"tolerance"`
	NetDiff   decimal.Decimal `json:"net_diff"`
	OK        bool            `json:"ok"`
	Corrected bool            `json:"corrected,omitempty"`
	Warnings  []model.Warning `json:"warnings,omitempty"`
}

// Reconcile computes ledger totals for inv and compares them with the
// declared header amounts. Document discounts trigger a proportional VAT
// reallocation across the rate buckets so the VAT closure stays exact.
func Reconcile(inv *model.Invoice, opts Options) *Result {
	res := &Result{
		Lines:        append([]model.LineItem(nil), inv.Lines...),
		Adjustments:  append([]model.DocumentAdjustment(nil), inv.Adjustments...),
		HeaderTotals: inv.HeaderTotals,
		Warnings:     append([]model.Warning(nil), inv.Warnings...),
	}

	net := inv.LineNetTotal().Add(inv.AdjustmentTotal())
	vat := inv.LineVATTotal()

	// a real document discount shrinks every rate bucket proportionally
	docDiscount := discountDelta(inv)
	if docDiscount.Sign() > 0 {
		vat = eslog.VATAfterDocDiscount(inv.TaxAllocations(), docDiscount)
	}

	res.ComputedNet = dec.Cents(net)
	res.ComputedVAT = dec.Cents(vat)
	res.ComputedGross = dec.Cents(net.Add(vat))

	res.Tolerance = opts.BaseTolerance
	if opts.Smart {
		res.Tolerance = dec.ToleranceFor(inv.HeaderTotals.Net, opts.BaseTolerance, opts.MaxTolerance)
	}

	res.NetDiff = inv.HeaderTotals.Net.Sub(res.ComputedNet)
	netOK := res.NetDiff.Abs().LessThanOrEqual(res.Tolerance)
	vatOK := dec.WithinTolerance(res.ComputedVAT, inv.HeaderTotals.VAT, res.Tolerance)

	if !netOK {
		res.Warnings = append(res.Warnings, model.Warning{
			Code:      model.WarnTotalMismatch,
			Message:   "Invoice total mismatch",
			Computed:  res.ComputedNet,
			Expected:  inv.HeaderTotals.Net,
			Tolerance: res.Tolerance,
		})
	}
	if !vatOK {
		res.Warnings = append(res.Warnings, model.Warning{
			Code:      model.WarnVATMismatch,
			Message:   "VAT mismatch",
			Computed:  res.ComputedVAT,
			Expected:  inv.HeaderTotals.VAT,
			Tolerance: res.Tolerance,
		})
	}
	res.OK = netOK && vatOK

	if opts.AutoCorrect && netOK && !res.NetDiff.IsZero() {
		res.applyCorrection(inv)
	}

	return res
}

// applyCorrection closes an in-tolerance gap with a synthetic ledger row
// so the ledger sums to the header exactly. Re-running reconciliation on
// an already corrected ledger never stacks a second row.
func (r *Result) applyCorrection(inv *model.Invoice) {
	for _, l := range r.Lines {
		if l.ArticleCode == CorrectionCode {
			return
		}
	}
	vatDiff := dec.Cents(inv.HeaderTotals.VAT.Sub(r.ComputedVAT))
	r.Lines = append(r.Lines, model.LineItem{
		ArticleCode: CorrectionCode,
		Description: "rounding correction",
		NetAmount:   dec.Cents(r.NetDiff),
		VATAmount:   vatDiff,
	})
	r.ComputedNet = inv.HeaderTotals.Net
	r.ComputedVAT = r.ComputedVAT.Add(vatDiff)
	r.ComputedGross = dec.Cents(r.ComputedNet.Add(r.ComputedVAT))
	r.NetDiff = dec.Zero
	r.Corrected = true
}

// discountDelta returns the positive net reduction caused by counted
// document discounts, net of charges. Informational adjustments are
// already inside the line amounts and contribute nothing.
func discountDelta(inv *model.Invoice) decimal.Decimal {
	delta := dec.Zero
	for _, a := range inv.Adjustments {
		if a.IsInformational || a.FromLine {
			continue
		}
		delta = delta.Sub(a.Value())
	}
	return delta
}
