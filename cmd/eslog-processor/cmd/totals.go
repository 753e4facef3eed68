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

var totalsCmd = &cobra.Command{
	Use:   "totals [file]",
	Short: "Show reconciled invoice totals",
	Long: `Parse one invoice and print the computed net, VAT and gross
amounts next to the totals the document declares, together with the
tolerance that was applied.

Examples:
  eslog-processor totals invoice.xml
  eslog-processor totals invoice.xml -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runTotals,
}

func init() {
	rootCmd.AddCommand(totalsCmd)
}

func runTotals(cmd *cobra.Command, args []string) error {
	opts := reconcileOptions()
	parser := eslog.NewParser(eslog.Options{
		BaseTolerance: opts.BaseTolerance,
		MaxTolerance:  opts.MaxTolerance,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inv, err := parser.ParseFile(ctx, args[0])
	if err != nil {
		return err
	}

	res := reconcile.Reconcile(inv, opts)

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	}

	fmt.Printf("Invoice:   %s\n", inv.Number)
	fmt.Printf("Supplier:  %s %s\n", inv.SupplierID, inv.SupplierName)
	fmt.Printf("Computed:  net=%s vat=%s gross=%s\n",
		res.ComputedNet, res.ComputedVAT, res.ComputedGross)
	fmt.Printf("Declared:  net=%s vat=%s gross=%s\n",
		res.HeaderTotals.Net, res.HeaderTotals.VAT, res.HeaderTotals.Gross)
	fmt.Printf("Tolerance: %s\n", res.Tolerance)
	if res.Corrected {
		fmt.Printf("Rounding correction applied: %s\n", reconcile.CorrectionCode)
	}
	for _, w := range res.Warnings {
		fmt.Printf("Warning:   %s\n", w.Message)
	}
	if res.OK {
		fmt.Println("Status:    OK")
	} else {
		fmt.Println("Status:    NEEDS REVIEW")
	}
	return nil
}
