package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/target/invoice-uploader/internal/domain/model"
)

// reportColumns are appended after the mirrored input columns.
var reportColumns = []string{"status", "portal_id", "error_message", "attempts"}

// WriteReport writes the run report: the input columns verbatim, in input
// row order, plus the outcome columns. Outcomes must already be ordered by
// row index (the aggregator guarantees this).
func WriteReport(path string, batch *model.Batch, outcomes []*model.UploadOutcome) error {
	if len(outcomes) != len(batch.Rows) {
		return fmt.Errorf("outcome count %d does not match row count %d", len(outcomes), len(batch.Rows))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	header := make([]string, 0, len(batch.Header)+len(reportColumns))
	header = append(header, batch.Header...)
	header = append(header, reportColumns...)
	if err := w.Write(header); err != nil {
		return closeOnError(f, fmt.Errorf("write report header: %w", err))
	}

	for i, o := range outcomes {
		if o.Row.Index != i {
			return closeOnError(f, fmt.Errorf("outcome at position %d references row %d", i, o.Row.Index))
		}
		rec := make([]string, 0, len(header))
		rec = append(rec, o.Row.Record...)
		rec = append(rec, string(o.Status), o.PortalID, o.ErrorMessage, strconv.Itoa(o.Attempts))
		if err := w.Write(rec); err != nil {
			return closeOnError(f, fmt.Errorf("write report row %d: %w", i+1, err))
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return closeOnError(f, fmt.Errorf("flush report: %w", err))
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	return nil
}

func closeOnError(f *os.File, err error) error {
	if cerr := f.Close(); cerr != nil {
		return fmt.Errorf("%w (close report: %v)", err, cerr)
	}
	return err
}
