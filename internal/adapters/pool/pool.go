// Package pool provides the bounded-concurrency executor for upload tasks.
package pool

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/target/invoice-uploader/internal/domain/model"
)

// RowRunner drives one row to a terminal state. Implementations never
// return an error; failures are captured inside the outcome.
type RowRunner interface {
	Run(ctx context.Context, row *model.InvoiceRow) *model.UploadOutcome
}

// Recorder receives each outcome as soon as its row finishes.
type Recorder interface {
	Record(outcome *model.UploadOutcome)
}

// Options configures a Pool.
type Options struct {
	// Workers caps simultaneous in-flight rows. Must be at least 1.
	Workers int
	Runner  RowRunner
	Logger  *slog.Logger
}

// Pool runs upload tasks with at most Workers executing at once. Each
// worker runs one row to its terminal state, retries included, before
// pulling the next; rows beyond the limit wait in submission order. The
// pool holds no row state of its own: outcomes flow straight to the
// recorder.
type Pool struct {
	workers int
	runner  RowRunner
	logger  *slog.Logger
}

// MustNew constructs a Pool and panics if required options are missing.
func MustNew(opts Options) *Pool {
	if opts.Runner == nil {
		panic("pool: Runner is required")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{workers: workers, runner: opts.Runner, logger: logger}
}

// Run executes every row to completion. One row's failure never cancels or
// blocks unrelated rows; there is no early exit. Run returns once every
// row has an outcome recorded.
func (p *Pool) Run(ctx context.Context, rows []*model.InvoiceRow, recorder Recorder) {
	p.logger.InfoContext(ctx, "starting worker pool", "workers", p.workers, "rows", len(rows))

	rowCh := make(chan *model.InvoiceRow)

	var g errgroup.Group
	for range p.workers {
		g.Go(func() error {
			for row := range rowCh {
				recorder.Record(p.runner.Run(ctx, row))
			}
			return nil
		})
	}

	for _, row := range rows {
		rowCh <- row
	}
	close(rowCh)

	// Workers never return errors; outcomes carry per-row failures.
	_ = g.Wait()
}
