package model

import "time"

// UploadStatus represents the terminal status of one row.
type UploadStatus string

const (
	// StatusSucceeded indicates the portal accepted the invoice and assigned an ID.
	StatusSucceeded UploadStatus = "succeeded"
	// StatusSkipped indicates the portal already listed the service; the
	// existing portal ID is reported and nothing was submitted.
	StatusSkipped UploadStatus = "skipped"
	// StatusFailed indicates the row did not complete after all attempts.
	StatusFailed UploadStatus = "failed"
)

// UploadOutcome is the terminal result of processing one row. Exactly one
// outcome exists per input row; it is immutable once handed to the aggregator.
type UploadOutcome struct {
	// Row references the input row this outcome belongs to.
	Row *InvoiceRow

	Status UploadStatus

	// PortalID is set for succeeded and skipped rows.
	PortalID string

	// ErrorMessage is set for failed rows.
	ErrorMessage string

	// Attempts counts submission attempts, at least 1.
	Attempts int

	CompletedAt time.Time
}

// Failed reports whether the row counts against the batch exit status.
func (o *UploadOutcome) Failed() bool {
	return o.Status == StatusFailed
}

// BatchSummary aggregates outcome counts for the end-of-run report.
type BatchSummary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Elapsed   time.Duration
}

// Summarize tallies outcomes into a BatchSummary.
func Summarize(outcomes []*UploadOutcome, elapsed time.Duration) BatchSummary {
	s := BatchSummary{Elapsed: elapsed}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
