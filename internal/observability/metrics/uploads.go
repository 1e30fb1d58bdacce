// Package metrics emits standardised upload lifecycle metrics.
package metrics

import (
	"time"

	apperrors "github.com/target/invoice-uploader/internal/errors"
	"github.com/target/invoice-uploader/internal/observability/statsd"
)

// RowMetric captures details about one finished row for metric emission.
type RowMetric struct {
	Status   string
	Attempts int
	Duration time.Duration
	Err      error
}

// EmitRowLifecycle emits counter and timing metrics for a completed row.
func EmitRowLifecycle(sink statsd.Sink, in RowMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"status": in.Status,
	}
	if class := errorClass(in.Err); class != "" {
		tags["error_class"] = class
	}

	sink.Count("row.completed", 1, tags)
	sink.Count("row.attempts", int64(in.Attempts), cloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("row.duration", in.Duration, cloneTags(tags))
	}
}

// BatchMetric captures whole-run counts.
type BatchMetric struct {
	Succeeded int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// EmitBatchSummary emits end-of-run metrics.
func EmitBatchSummary(sink statsd.Sink, in BatchMetric) {
	if sink == nil {
		return
	}
	sink.Count("batch.rows", int64(in.Succeeded), map[string]string{"status": "succeeded"})
	sink.Count("batch.rows", int64(in.Skipped), map[string]string{"status": "skipped"})
	sink.Count("batch.rows", int64(in.Failed), map[string]string{"status": "failed"})
	if in.Duration > 0 {
		sink.Timing("batch.duration", in.Duration, nil)
	}
}

// errorClass normalises an error to a stable tag value via the failure
// taxonomy; errors outside the taxonomy tag as "unknown".
func errorClass(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return "unknown"
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
