package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/target/invoice-uploader/config"
	"github.com/target/invoice-uploader/internal/adapters/pool"
	"github.com/target/invoice-uploader/internal/core"
	"github.com/target/invoice-uploader/internal/csvio"
	"github.com/target/invoice-uploader/internal/domain/model"
	obsmetrics "github.com/target/invoice-uploader/internal/observability/metrics"
	"github.com/target/invoice-uploader/internal/observability/statsd"
	"github.com/target/invoice-uploader/internal/report"
	"github.com/target/invoice-uploader/internal/session"
)

// ExitCode is the process exit status communicating aggregate batch health.
type ExitCode int

const (
	// ExitSuccess means every row succeeded or was skipped.
	ExitSuccess ExitCode = 0
	// ExitStartupError means the run aborted before any upload started.
	ExitStartupError ExitCode = 1
	// ExitPartialFailure means the batch completed with at least one failed row.
	ExitPartialFailure ExitCode = 2
)

// OrchestratorOptions groups dependencies for Orchestrator.
type OrchestratorOptions struct {
	Config  config.AppConfig
	CSVPath string

	Driver core.PortalDriver // Required
	Store  core.SessionStore // Required

	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
}

// Orchestrator wires the pipeline together: it loads rows, brings up the
// authenticated session, drives the worker pool to completion, and turns
// the aggregated outcomes into a report file and an exit status.
type Orchestrator struct {
	cfg     config.AppConfig
	csvPath string
	driver  core.PortalDriver
	store   core.SessionStore
	logger  *slog.Logger
	metrics statsd.Sink
}

// MustNewOrchestrator constructs an Orchestrator and panics if required
// dependencies are missing.
func MustNewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Driver == nil {
		panic("orchestrator: Driver is required")
	}
	if opts.Store == nil {
		panic("orchestrator: Store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:     opts.Config,
		csvPath: opts.CSVPath,
		driver:  opts.Driver,
		store:   opts.Store,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Run executes one batch. Startup problems (unreadable CSV, duplicate
// service IDs, failed login) abort before any upload with ExitStartupError;
// after that every row reaches a terminal state and the exit code reflects
// whether any failed.
func (o *Orchestrator) Run(ctx context.Context) (ExitCode, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)

	batch, err := csvio.Load(o.csvPath)
	if err != nil {
		return ExitStartupError, fmt.Errorf("load rows: %w", err)
	}
	logger.InfoContext(ctx, "loaded invoice rows", "path", o.csvPath, "rows", batch.Len())

	if err := o.cfg.Portal.ValidateCredentials(); err != nil {
		return ExitStartupError, err
	}

	sess := session.MustNew(session.Options{
		Driver: o.driver,
		Store:  o.store,
		Credentials: core.Credentials{
			Username: o.cfg.Portal.Username,
			Password: o.cfg.Portal.Password,
		},
		Logger: logger,
	})
	if err := sess.EnsureAuthenticated(ctx); err != nil {
		return ExitStartupError, fmt.Errorf("authenticate: %w", err)
	}

	runner := MustNewTaskRunner(TaskRunnerOptions{
		Session: sess,
		Driver:  o.driver,
		Policy:  NewRetryPolicy(o.cfg.Uploader),
		Logger:  logger,
		Metrics: o.metrics,
	})
	aggregator := NewResultAggregator(batch.Len())

	pool.MustNew(pool.Options{
		Workers: o.cfg.Uploader.Concurrency,
		Runner:  runner,
		Logger:  logger,
	}).Run(ctx, batch.Rows, aggregator)

	outcomes, err := aggregator.Finalize()
	if err != nil {
		return ExitStartupError, fmt.Errorf("finalize outcomes: %w", err)
	}

	reportPath := filepath.Join(o.cfg.Uploader.ReportDir,
		fmt.Sprintf("run-%s.csv", start.Format("20060102-150405")))
	if err := csvio.WriteReport(reportPath, batch, outcomes); err != nil {
		return ExitStartupError, fmt.Errorf("write report: %w", err)
	}

	summary := model.Summarize(outcomes, time.Since(start))
	logger.InfoContext(ctx, "batch completed",
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"report", reportPath,
		"elapsed", summary.Elapsed.Round(time.Second))
	obsmetrics.EmitBatchSummary(o.metrics, obsmetrics.BatchMetric{
		Succeeded: summary.Succeeded,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		Duration:  summary.Elapsed,
	})
	fmt.Println(report.RenderSummary(summary, reportPath)) //nolint:forbidigo // end-of-run console output

	if summary.Failed > 0 {
		return ExitPartialFailure, nil
	}
	return ExitSuccess, nil
}
