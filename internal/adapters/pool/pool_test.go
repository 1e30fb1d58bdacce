package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/invoice-uploader/internal/domain/model"
)

// countingRunner tracks concurrent executions and produces one outcome per row.
type countingRunner struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
	outcome     func(row *model.InvoiceRow) *model.UploadOutcome
}

func (r *countingRunner) Run(_ context.Context, row *model.InvoiceRow) *model.UploadOutcome {
	cur := r.inFlight.Add(1)
	for {
		max := r.maxInFlight.Load()
		if cur <= max || r.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.inFlight.Add(-1)

	if r.outcome != nil {
		return r.outcome(row)
	}
	return &model.UploadOutcome{Row: row, Status: model.StatusSucceeded, PortalID: "P-1", Attempts: 1}
}

// sliceRecorder collects outcomes in completion order.
type sliceRecorder struct {
	mu       sync.Mutex
	outcomes []*model.UploadOutcome
}

func (r *sliceRecorder) Record(o *model.UploadOutcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

func makeRows(n int) []*model.InvoiceRow {
	rows := make([]*model.InvoiceRow, n)
	for i := range rows {
		rows[i] = &model.InvoiceRow{Index: i, ServiceID: fmt.Sprintf("S%d", i)}
	}
	return rows
}

func TestPoolRunsEveryRow(t *testing.T) {
	runner := &countingRunner{}
	recorder := &sliceRecorder{}

	p := MustNew(Options{Workers: 4, Runner: runner})
	p.Run(context.Background(), makeRows(20), recorder)

	assert.Len(t, recorder.outcomes, 20, "every row must reach a terminal state")
}

func TestPoolRespectsConcurrencyLimit(t *testing.T) {
	runner := &countingRunner{delay: 5 * time.Millisecond}
	recorder := &sliceRecorder{}

	p := MustNew(Options{Workers: 3, Runner: runner})
	p.Run(context.Background(), makeRows(30), recorder)

	assert.LessOrEqual(t, runner.maxInFlight.Load(), int32(3))
	assert.Len(t, recorder.outcomes, 30)
}

func TestPoolSingleWorkerIsSequential(t *testing.T) {
	runner := &countingRunner{delay: 2 * time.Millisecond}
	recorder := &sliceRecorder{}

	p := MustNew(Options{Workers: 1, Runner: runner})
	p.Run(context.Background(), makeRows(10), recorder)

	assert.Equal(t, int32(1), runner.maxInFlight.Load(), "one worker means strictly sequential tasks")
	// With one worker, completion order is submission order.
	for i, o := range recorder.outcomes {
		assert.Equal(t, i, o.Row.Index)
	}
}

func TestPoolFailureDoesNotBlockOtherRows(t *testing.T) {
	runner := &countingRunner{
		outcome: func(row *model.InvoiceRow) *model.UploadOutcome {
			if row.Index%2 == 0 {
				return &model.UploadOutcome{Row: row, Status: model.StatusFailed, ErrorMessage: "boom", Attempts: 1}
			}
			return &model.UploadOutcome{Row: row, Status: model.StatusSucceeded, PortalID: "P-1", Attempts: 1}
		},
	}
	recorder := &sliceRecorder{}

	p := MustNew(Options{Workers: 4, Runner: runner})
	p.Run(context.Background(), makeRows(10), recorder)

	require.Len(t, recorder.outcomes, 10, "failures never cancel unrelated rows")

	failed := 0
	for _, o := range recorder.outcomes {
		if o.Failed() {
			failed++
		}
	}
	assert.Equal(t, 5, failed)
}

func TestMustNewValidation(t *testing.T) {
	assert.Panics(t, func() { MustNew(Options{Workers: 2}) })

	// Workers below 1 are clamped, not rejected.
	p := MustNew(Options{Workers: 0, Runner: &countingRunner{}})
	p.Run(context.Background(), makeRows(2), &sliceRecorder{})
}
