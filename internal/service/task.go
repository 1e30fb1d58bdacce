// Package service implements the upload orchestration engine: the per-row
// task state machine, retry policy, result aggregation, and the top-level
// orchestrator.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/target/invoice-uploader/internal/core"
	"github.com/target/invoice-uploader/internal/domain/model"
	apperrors "github.com/target/invoice-uploader/internal/errors"
	obsmetrics "github.com/target/invoice-uploader/internal/observability/metrics"
	"github.com/target/invoice-uploader/internal/observability/statsd"
	"github.com/target/invoice-uploader/internal/session"
)

// TaskState names a stage of the per-row state machine.
type TaskState string

const (
	// TaskPending is the initial state of a queued row.
	TaskPending TaskState = "pending"
	// TaskValidating checks row data before touching the portal.
	TaskValidating TaskState = "validating"
	// TaskAwaitingSession waits for a usable authenticated session.
	TaskAwaitingSession TaskState = "awaiting_session"
	// TaskSubmitting drives the portal upload sequence.
	TaskSubmitting TaskState = "submitting"
	// TaskSucceeded is terminal: the portal assigned an ID.
	TaskSucceeded TaskState = "succeeded"
	// TaskSkipped is terminal: the portal already listed the service.
	TaskSkipped TaskState = "skipped"
	// TaskFailed is terminal: the row did not complete.
	TaskFailed TaskState = "failed"
)

// TaskRunnerOptions groups dependencies for TaskRunner.
type TaskRunnerOptions struct {
	Session *session.Session  // Required: shared authenticated session
	Driver  core.PortalDriver // Required: portal driver for submissions
	Policy  RetryPolicy
	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
}

// TaskRunner executes the upload state machine for individual rows. One
// runner is shared by all pool workers; per-row state lives on the stack of
// each Run call.
type TaskRunner struct {
	session *session.Session
	driver  core.PortalDriver
	policy  RetryPolicy
	logger  *slog.Logger
	metrics statsd.Sink
}

// MustNewTaskRunner constructs a TaskRunner and panics if required
// dependencies are missing.
func MustNewTaskRunner(opts TaskRunnerOptions) *TaskRunner {
	if opts.Session == nil {
		panic("taskrunner: Session is required")
	}
	if opts.Driver == nil {
		panic("taskrunner: Driver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskRunner{
		session: opts.Session,
		driver:  opts.Driver,
		policy:  opts.Policy,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Run drives one row to a terminal state and returns its outcome. Exactly
// one outcome is produced regardless of how many attempts occur; errors
// never escape as Go errors, they are captured into the outcome.
func (t *TaskRunner) Run(ctx context.Context, row *model.InvoiceRow) *model.UploadOutcome {
	start := time.Now()

	outcome, finalErr := t.run(ctx, row)

	obsmetrics.EmitRowLifecycle(t.metrics, obsmetrics.RowMetric{
		Status:   string(outcome.Status),
		Attempts: outcome.Attempts,
		Duration: time.Since(start),
		Err:      finalErr,
	})
	return outcome
}

func (t *TaskRunner) run(ctx context.Context, row *model.InvoiceRow) (*model.UploadOutcome, error) {
	t.logTransition(ctx, row, TaskPending, TaskValidating, 1)
	if err := row.Validate(); err != nil {
		// Bad input will not change on retry: permanent, single attempt.
		verr := apperrors.Wrap(err, apperrors.ErrCodeValidation, "row validation")
		return t.failed(ctx, row, verr, 1), verr
	}

	for attempt := 1; ; attempt++ {
		t.logTransition(ctx, row, TaskValidating, TaskAwaitingSession, attempt)
		if t.session.Lost() {
			lerr := apperrors.SessionLost("portal session lost")
			return t.failed(ctx, row, lerr, attempt), lerr
		}
		if err := ctx.Err(); err != nil {
			aerr := apperrors.Wrap(err, apperrors.ErrCodeInternal, "upload aborted")
			return t.failed(ctx, row, aerr, attempt), aerr
		}

		t.logTransition(ctx, row, TaskAwaitingSession, TaskSubmitting, attempt)
		portalID, err := t.submitWithRecovery(ctx, row, attempt)
		if err == nil {
			t.session.Touch()
			t.logTransition(ctx, row, TaskSubmitting, TaskSucceeded, attempt)
			return &model.UploadOutcome{
				Row:         row,
				Status:      model.StatusSucceeded,
				PortalID:    portalID,
				Attempts:    attempt,
				CompletedAt: time.Now(),
			}, nil
		}

		if apperrors.IsDuplicate(err) {
			t.logTransition(ctx, row, TaskSubmitting, TaskSkipped, attempt)
			return &model.UploadOutcome{
				Row:         row,
				Status:      model.StatusSkipped,
				PortalID:    apperrors.GetPortalID(err),
				Attempts:    attempt,
				CompletedAt: time.Now(),
			}, nil
		}

		decision := t.policy.Decide(err, attempt)
		if !decision.Retry {
			return t.failed(ctx, row, err, attempt), err
		}

		t.logger.WarnContext(ctx, "upload attempt failed, retrying",
			"service_id", row.ServiceID,
			"attempt", attempt,
			"max_attempts", t.policy.MaxAttempts,
			"backoff", decision.Delay,
			"error", err)
		if werr := t.wait(ctx, decision.Delay); werr != nil {
			return t.failed(ctx, row, werr, attempt), werr
		}
	}
}

// submitWithRecovery performs one submission attempt. A session-expiry
// signal triggers re-authentication (collapsed process-wide) followed by a
// single same-attempt resubmission, so a row interrupted by expiry is
// retried post-recovery rather than failed for expiry alone. A second
// expiry within one attempt is downgraded to a transient failure.
func (t *TaskRunner) submitWithRecovery(ctx context.Context, row *model.InvoiceRow, attempt int) (string, error) {
	portalID, err := t.driver.SubmitInvoice(ctx, row)
	if err == nil || !t.session.IsExpiry(err) {
		return portalID, err
	}

	if herr := t.session.HandleExpiry(ctx); herr != nil {
		return "", herr
	}
	t.logger.InfoContext(ctx, "resubmitting after session recovery",
		"service_id", row.ServiceID, "attempt", attempt)

	portalID, err = t.driver.SubmitInvoice(ctx, row)
	if err != nil && t.session.IsExpiry(err) {
		return "", apperrors.Wrap(err, apperrors.ErrCodeTransientPortal, "session expired again after recovery")
	}
	return portalID, err
}

// wait sleeps for the backoff delay. It wakes early when the run is
// cancelled or the session is lost, so a fatal session event never leaves a
// row dozing toward a doomed retry.
func (t *TaskRunner) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-t.session.LostChan():
		return apperrors.SessionLost("portal session lost")
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeInternal, "upload aborted")
	}
}

func (t *TaskRunner) failed(ctx context.Context, row *model.InvoiceRow, err error, attempts int) *model.UploadOutcome {
	t.logger.ErrorContext(ctx, "row failed",
		"service_id", row.ServiceID,
		"attempts", attempts,
		"error", err)
	return &model.UploadOutcome{
		Row:          row,
		Status:       model.StatusFailed,
		ErrorMessage: err.Error(),
		Attempts:     attempts,
		CompletedAt:  time.Now(),
	}
}

func (t *TaskRunner) logTransition(ctx context.Context, row *model.InvoiceRow, from, to TaskState, attempt int) {
	t.logger.DebugContext(ctx, "task transition",
		"service_id", row.ServiceID,
		"from", string(from),
		"to", string(to),
		"attempt", attempt)
}
