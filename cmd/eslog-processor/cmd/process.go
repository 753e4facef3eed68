package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matijav64/eslog-processor/internal/ledger"
	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/processor"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

var (
	outputFile string
	timeout    time.Duration
	workers    int
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Process invoice files into a reconciled ledger",
	Long: `Process one or more eSLOG invoice files and emit the bookkeeping
ledger for each: merged line items, document discounts and charges, and
the reconciliation outcome against the declared header totals.

A reconciliation mismatch is not an error; the ledger is produced either
way and flagged for review.

Examples:
  eslog-processor process invoice.xml
  eslog-processor process *.xml -o results.json
  eslog-processor process invoices/ -f table --workers 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	processCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Processing timeout for the whole batch")
	processCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (default: number of CPUs)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}

	printVerbose("Found %d files to process\n", len(files))

	batch := processor.NewBatch(
		processor.WithReconcileOptions(reconcileOptions()),
		processor.WithWorkers(workers),
		processor.WithLogger(newLogger()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results := make([]*ProcessResult, 0, len(files))
	for _, fr := range batch.ProcessFiles(ctx, files) {
		results = append(results, convertResult(fr))
	}

	return outputResults(results)
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}

			if info.IsDir() {
				err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !info.IsDir() && isInvoiceFile(path) {
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else {
				files = append(files, arg)
			}
		} else {
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if !info.IsDir() && isInvoiceFile(match) {
					files = append(files, match)
				}
			}
		}
	}

	return files, nil
}

func isInvoiceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func convertResult(fr processor.FileResult) *ProcessResult {
	result := &ProcessResult{File: fr.Path}
	if fr.Err != nil {
		result.Error = fr.Err.Error()
		return result
	}

	result.Invoice = fr.Invoice
	result.Ledger = fr.Ledger
	result.Summary = fr.Summary
	result.Reconciliation = fr.Result
	result.NeedsReview = !fr.Result.OK
	return result
}

func outputResults(results []*ProcessResult) error {
	var writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(writer, results)
	case "table":
		return outputTable(writer, results)
	case "csv":
		return outputCSV(writer, results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w *os.File, results []*ProcessResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputTable(w *os.File, results []*ProcessResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNUMBER\tSUPPLIER\tDATE\tNET\tVAT\tGROSS\tSTATUS")
	fmt.Fprintln(tw, "----\t------\t--------\t----\t---\t---\t-----\t------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\t\n", r.File, r.Error)
			continue
		}

		status := "OK"
		if r.NeedsReview {
			status = "NEEDS REVIEW"
		} else if r.Reconciliation.Corrected {
			status = "CORRECTED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.File,
			r.Invoice.Number,
			r.Invoice.SupplierID,
			r.Invoice.ServiceDate,
			r.Reconciliation.ComputedNet.String(),
			r.Reconciliation.ComputedVAT.String(),
			r.Reconciliation.ComputedGross.String(),
			status,
		)
	}

	return tw.Flush()
}

func outputCSV(w *os.File, results []*ProcessResult) error {
	fmt.Fprintln(w, "file,number,supplier_id,supplier_name,service_date,currency,net,vat,gross,ok,error")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s,,,,,,,,,,%s\n", r.File, escapeCSV(r.Error))
			continue
		}

		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%t,\n",
			r.File,
			r.Invoice.Number,
			r.Invoice.SupplierID,
			escapeCSV(r.Invoice.SupplierName),
			r.Invoice.ServiceDate,
			r.Invoice.Currency,
			r.Reconciliation.ComputedNet.String(),
			r.Reconciliation.ComputedVAT.String(),
			r.Reconciliation.ComputedGross.String(),
			r.Reconciliation.OK,
		)
	}

	return nil
}

func escapeCSV(s string) string {
	if strings.Contains(s, ",") || strings.Contains(s, "\"") || strings.Contains(s, "\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

// ProcessResult holds the result of processing a single file
type ProcessResult struct {
	File           string            `json:"file"`
	Invoice        *model.Invoice    `json:"invoice,omitempty"`
	Ledger         []model.LineItem  `json:"ledger,omitempty"`
	Summary        ledger.Summary    `json:"summary"`
	Reconciliation *reconcile.Result `json:"reconciliation,omitempty"`
	NeedsReview    bool              `json:"needs_review"`
	Error          string            `json:"error,omitempty"`
}
