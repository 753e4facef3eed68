// Package processor runs the parse-reconcile-merge chain over many
// invoice files at once.
package processor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matijav64/eslog-processor/internal/ledger"
	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/parser/eslog"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

// Option configures a Batch
type Option func(*Batch)

// WithWorkers sets the number of concurrent workers
func WithWorkers(n int) Option {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithReconcileOptions sets the reconciliation settings
func WithReconcileOptions(opts reconcile.Options) Option {
	return func(b *Batch) { b.recOpts = opts }
}

// WithLogger sets the progress logger
func WithLogger(log zerolog.Logger) Option {
	return func(b *Batch) { b.log = log }
}

// Batch processes eSLOG files concurrently. One parser instance is shared
// across workers; it is stateless.
type Batch struct {
	parser  *eslog.Parser
	recOpts reconcile.Options
	workers int
	log     zerolog.Logger
}

// NewBatch creates a batch processor
func NewBatch(opts ...Option) *Batch {
	b := &Batch{
		recOpts: reconcile.DefaultOptions(),
		workers: runtime.NumCPU(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.parser = eslog.NewParser(eslog.Options{
		BaseTolerance: b.recOpts.BaseTolerance,
		MaxTolerance:  b.recOpts.MaxTolerance,
	})
	return b
}

// FileResult is the outcome for one input file. Err is set only for fatal
// parse failures; reconciliation mismatches surface through Result.OK.
type FileResult struct {
	Path    string
	Invoice *model.Invoice
	Result  *reconcile.Result
	Ledger  []model.LineItem
	Summary ledger.Summary
	Err     error
}

// ProcessFiles parses and reconciles every path, preserving input order
// in the returned slice.
func (b *Batch) ProcessFiles(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.processOne(ctx, paths[i])
			}
		}()
	}

	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				results[j] = FileResult{Path: paths[j], Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// ProcessDir processes every .xml file directly inside dir.
func (b *Batch) ProcessDir(ctx context.Context, dir string) ([]FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return b.ProcessFiles(ctx, paths), nil
}

func (b *Batch) processOne(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	inv, err := b.parser.ParseFile(ctx, path)
	if err != nil {
		b.log.Error().Err(err).Str("file", path).Msg("parse failed")
		res.Err = err
		return res
	}

	res.Invoice = inv
	res.Result = reconcile.Reconcile(inv, b.recOpts)
	res.Ledger = ledger.Merge(res.Result.Lines)
	res.Summary = ledger.Summarize(res.Ledger)

	b.log.Info().
		Str("file", path).
		Str("invoice", inv.Number).
		Bool("ok", res.Result.OK).
		Str("net", res.Result.ComputedNet.String()).
		Msg("processed")
	return res
}
