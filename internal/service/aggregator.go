package service

import (
	"fmt"
	"sync"

	"github.com/target/invoice-uploader/internal/domain/model"
)

// ResultAggregator collects per-row outcomes keyed by original row
// position. Workers record outcomes as they complete, in any order; the
// final report always comes out in input order. Safe for concurrent use.
type ResultAggregator struct {
	mu        sync.Mutex
	outcomes  []*model.UploadOutcome
	remaining int
}

// NewResultAggregator creates an aggregator expecting exactly n outcomes.
func NewResultAggregator(n int) *ResultAggregator {
	return &ResultAggregator{
		outcomes:  make([]*model.UploadOutcome, n),
		remaining: n,
	}
}

// Record stores one outcome. The mutex covers only the in-memory append.
// A second outcome for the same row cannot happen by construction, so it
// panics rather than being swallowed: that is a bug, not a row failure.
func (a *ResultAggregator) Record(outcome *model.UploadOutcome) {
	if outcome == nil || outcome.Row == nil {
		panic("aggregator: outcome without row")
	}
	idx := outcome.Row.Index

	a.mu.Lock()
	defer a.mu.Unlock()

	if idx < 0 || idx >= len(a.outcomes) {
		panic(fmt.Sprintf("aggregator: row index %d out of range [0,%d)", idx, len(a.outcomes)))
	}
	if a.outcomes[idx] != nil {
		panic(fmt.Sprintf("aggregator: duplicate outcome for row %d (service_id %s)", idx, outcome.Row.ServiceID))
	}
	a.outcomes[idx] = outcome
	a.remaining--
}

// Finalize returns all outcomes in input order. It errors if any expected
// row has not reported; partial reports are never produced.
func (a *ResultAggregator) Finalize() ([]*model.UploadOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.remaining != 0 {
		return nil, fmt.Errorf("aggregator: %d of %d rows have not reported", a.remaining, len(a.outcomes))
	}
	out := make([]*model.UploadOutcome, len(a.outcomes))
	copy(out, a.outcomes)
	return out, nil
}
