package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/invoice-uploader/internal/domain/model"
)

func outcomeFor(index int) *model.UploadOutcome {
	return &model.UploadOutcome{
		Row:         &model.InvoiceRow{Index: index, ServiceID: "S" + string(rune('0'+index))},
		Status:      model.StatusSucceeded,
		PortalID:    "P-1",
		Attempts:    1,
		CompletedAt: time.Now(),
	}
}

func TestAggregatorPreservesInputOrder(t *testing.T) {
	agg := NewResultAggregator(3)

	// Record out of completion order.
	agg.Record(outcomeFor(2))
	agg.Record(outcomeFor(0))
	agg.Record(outcomeFor(1))

	outcomes, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.Equal(t, i, o.Row.Index)
	}
}

func TestAggregatorConcurrentRecord(t *testing.T) {
	const n = 64
	agg := NewResultAggregator(n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Record(outcomeFor(i))
		}(i)
	}
	wg.Wait()

	outcomes, err := agg.Finalize()
	require.NoError(t, err)
	assert.Len(t, outcomes, n)
}

func TestAggregatorFinalizeRefusesPartial(t *testing.T) {
	agg := NewResultAggregator(2)
	agg.Record(outcomeFor(0))

	_, err := agg.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 rows")
}

func TestAggregatorDuplicateRecordPanics(t *testing.T) {
	agg := NewResultAggregator(1)
	agg.Record(outcomeFor(0))

	assert.Panics(t, func() { agg.Record(outcomeFor(0)) })
}

func TestAggregatorOutOfRangePanics(t *testing.T) {
	agg := NewResultAggregator(1)
	assert.Panics(t, func() { agg.Record(outcomeFor(5)) })
}
