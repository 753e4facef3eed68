package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	dec "github.com/matijav64/eslog-processor/internal/decimal"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	tolerance    string
	maxTolerance string
	noSmart      bool
	noAutoRound  bool
)

var rootCmd = &cobra.Command{
	Use:   "eslog-processor",
	Short: "Parse and reconcile Slovenian eSLOG 2.0 e-invoices",
	Long: `eslog-processor extracts a bookkeeping ledger from eSLOG 2.0
(EDIFACT INVOIC) e-invoices and reconciles it against the totals the
document declares about itself.

Supports:
  - eSLOG 2.00, enriched EDIFACT and unnamespaced invoice XML
  - line and document level discounts, charges and gratis items
  - multi-rate VAT with proportional discount reallocation
  - tolerance-based header reconciliation with rounding correction

Examples:
  # Process a single invoice
  eslog-processor process invoice.xml

  # Process a directory of invoices
  eslog-processor process invoices/ -f table

  # Show reconciled totals only
  eslog-processor totals invoice.xml

  # Validate an invoice
  eslog-processor validate invoice.xml`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, csv, table)")
	rootCmd.PersistentFlags().StringVar(&tolerance, "tolerance", "", "Base reconciliation tolerance (env: ESLOG_TOLERANCE_BASE)")
	rootCmd.PersistentFlags().StringVar(&maxTolerance, "max-tolerance", "", "Tolerance cap for large invoices (env: ESLOG_MAX_TOLERANCE)")
	rootCmd.PersistentFlags().BoolVar(&noSmart, "no-smart-tolerance", false, "Disable magnitude-based tolerance sliding")
	rootCmd.PersistentFlags().BoolVar(&noAutoRound, "no-auto-rounding", false, "Disable the synthetic rounding correction row")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// a local .env supplies the ESLOG_* knobs during development
	_ = godotenv.Load()
}

// reconcileOptions merges the environment settings with explicit flags.
func reconcileOptions() reconcile.Options {
	opts := reconcile.FromEnv()
	if tolerance != "" {
		if d, err := dec.FromString(tolerance); err == nil && d.Sign() > 0 {
			opts.BaseTolerance = d
		}
	}
	if maxTolerance != "" {
		if d, err := dec.FromString(maxTolerance); err == nil && d.Sign() > 0 {
			opts.MaxTolerance = d
		}
	}
	if noSmart {
		opts.Smart = false
	}
	if noAutoRound {
		opts.AutoCorrect = false
	}
	return opts
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
