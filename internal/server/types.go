package server

import (
	"github.com/shopspring/decimal"

	"github.com/matijav64/eslog-processor/internal/ledger"
	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

// ParseResponse is the response for the parse endpoint
type ParseResponse struct {
	Invoice     *model.Invoice    `json:"invoice"`
	Ledger      []model.LineItem  `json:"ledger"`
	Summary     ledger.Summary    `json:"summary"`
	Result      *reconcile.Result `json:"reconciliation"`
	NeedsReview bool              `json:"needs_review"`
}

// TotalsResponse is the response for the totals endpoint
type TotalsResponse struct {
	Net         decimal.Decimal `json:"net"`
	VAT         decimal.Decimal `json:"vat"`
	Gross       decimal.Decimal `json:"gross"`
	Header      model.Totals    `json:"header"`
	Tolerance   decimal.Decimal `json:"tolerance"`
	OK          bool            `json:"ok"`
	NeedsReview bool            `json:"needs_review"`
	Warnings    []model.Warning `json:"warnings,omitempty"`
}

// ValidationResponse is the response for validate endpoint
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
