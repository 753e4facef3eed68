package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matijav64/eslog-processor/internal/parser/eslog"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice files",
	Long: `Validate one or more eSLOG invoice files.

Checks performed:
  - well-formed XML with at least a header segment
  - required fields present (invoice number, supplier identifier)
  - VAT number format (SI followed by 8 digits)
  - ledger totals agree with the declared header within tolerance

Examples:
  eslog-processor validate invoice.xml
  eslog-processor validate *.xml --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Enable strict validation (all fields required)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	opts := reconcileOptions()
	parser := eslog.NewParser(eslog.Options{
		BaseTolerance: opts.BaseTolerance,
		MaxTolerance:  opts.MaxTolerance,
	})

	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(parser, opts, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s: VALID\n", r.File)
			} else {
				fmt.Printf("✗ %s: INVALID\n", r.File)
				for _, e := range r.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Printf("  ⚠ %s\n", w)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(parser *eslog.Parser, opts reconcile.Options, filePath string) *ValidationResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := &ValidationResult{
		File:     filePath,
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	inv, err := parser.ParseFile(ctx, filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("parse error: %v", err))
		return result
	}

	if inv.Number == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "missing invoice number")
	}

	if inv.SupplierID == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "missing supplier identifier")
	} else if inv.SupplierVAT == "" {
		if strictValidation {
			result.Valid = false
			result.Errors = append(result.Errors, "missing or malformed supplier VAT number")
		} else {
			result.Warnings = append(result.Warnings, "missing or malformed supplier VAT number")
		}
	}

	if inv.ServiceDate == "" {
		if strictValidation {
			result.Valid = false
			result.Errors = append(result.Errors, "missing service date")
		} else {
			result.Warnings = append(result.Warnings, "missing service date")
		}
	}

	if len(inv.Lines) == 0 && len(inv.Adjustments) == 0 {
		result.Warnings = append(result.Warnings, "invoice carries no line items")
	}

	if inv.HeaderTotals.Mismatch {
		result.Warnings = append(result.Warnings, "header amounts are internally inconsistent")
	}

	res := reconcile.Reconcile(inv, opts)
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, w.Message)
	}
	if !res.OK {
		if strictValidation {
			result.Valid = false
			result.Errors = append(result.Errors, "ledger does not reconcile with the declared totals")
		} else {
			result.Warnings = append(result.Warnings, "ledger does not reconcile with the declared totals")
		}
	}

	return result
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
