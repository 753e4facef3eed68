// Package esloglib provides a public API for processing Slovenian eSLOG
// 2.0 e-invoices.
//
// This package exposes the core types for parsing an invoice into a
// bookkeeping ledger and reconciling it against the totals the document
// declares.
//
// Example usage:
//
//	p := esloglib.NewProcessor(esloglib.DefaultProcessorOptions())
//	res, err := p.Process(ctx, reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Summary.Gross)
package esloglib

import (
	"github.com/matijav64/eslog-processor/internal/model"
)

// Re-export core types for public API
type (
	Invoice            = model.Invoice
	LineItem           = model.LineItem
	DocumentAdjustment = model.DocumentAdjustment
	AdjustmentKind     = model.AdjustmentKind
	TaxAllocation      = model.TaxAllocation
	Totals             = model.Totals
	Warning            = model.Warning
)

// Re-export adjustment kinds
const (
	AdjustmentDiscount = model.AdjustmentDiscount
	AdjustmentCharge   = model.AdjustmentCharge
)

// Re-export warning codes
const (
	WarnTotalMismatch = model.WarnTotalMismatch
	WarnVATMismatch   = model.WarnVATMismatch
	WarnLineMismatch  = model.WarnLineMismatch
	WarnTaxUnresolved = model.WarnTaxUnresolved
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
)
