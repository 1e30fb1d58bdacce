// Package csvio loads invoice batches from CSV and writes the run report.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/target/invoice-uploader/internal/domain/model"
)

// requiredColumns must all be present in the input header.
var requiredColumns = []string{
	model.ColumnServiceID,
	model.ColumnPrice,
	model.ColumnInvoicePath,
}

// Load reads the input CSV into a Batch. It enforces the batch-level
// invariants: required columns present and service IDs unique. Row-level
// checks (file readability, price format) are left to the upload task so a
// bad row fails alone instead of aborting the run.
func Load(path string) (*model.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are rejected below with row context

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}

	batch := &model.Batch{Header: header, Rows: make([]*model.InvoiceRow, 0, len(records))}
	seen := make(map[string]int, len(records))

	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(rec), len(header))
		}
		row := &model.InvoiceRow{
			Index:       i,
			ServiceID:   strings.TrimSpace(rec[index[model.ColumnServiceID]]),
			PriceRaw:    rec[index[model.ColumnPrice]],
			InvoicePath: strings.TrimSpace(rec[index[model.ColumnInvoicePath]]),
			Record:      rec,
		}
		if j, ok := index[model.ColumnDescription]; ok {
			row.Description = rec[j]
		}
		if j, ok := index[model.ColumnInvoiceDate]; ok {
			row.InvoiceDate = strings.TrimSpace(rec[j])
		}

		if prev, dup := seen[row.ServiceID]; dup {
			return nil, fmt.Errorf("duplicate service_id %q (rows %d and %d)", row.ServiceID, prev+1, i+1)
		}
		seen[row.ServiceID] = i

		batch.Rows = append(batch.Rows, row)
	}

	return batch, nil
}

// columnIndex maps known column names to their positions. Optional columns
// are present in the map only when the header carries them.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}
