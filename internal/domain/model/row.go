// Package model defines the core data types used throughout the upload pipeline.
package model

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Required CSV column names.
const (
	ColumnServiceID   = "service_id"
	ColumnPrice       = "price"
	ColumnInvoicePath = "invoice_path"
	ColumnDescription = "description"
	ColumnInvoiceDate = "invoice_date"
)

// InvoiceRow is one invoice record to be uploaded to the portal.
type InvoiceRow struct {
	// Index is the zero-based position of the row in the input file.
	// It keys the row's slot in the final report.
	Index int

	// ServiceID identifies the service the invoice belongs to.
	// Unique within a batch; duplicates are rejected at load time.
	ServiceID string

	// PriceRaw is the price column exactly as read from the input. Parsing
	// is deferred to Validate so a malformed price fails the row, not the run.
	PriceRaw string

	// Price is the parsed invoice amount, set by Validate. Greater than zero.
	Price decimal.Decimal

	// InvoicePath points at the invoice file to upload.
	InvoicePath string

	// Description is optional free text for the portal form.
	Description string

	// InvoiceDate is an optional ISO date (2006-01-02).
	InvoiceDate string

	// Record preserves the raw input columns verbatim so the report can
	// mirror them, including columns this tool does not interpret.
	Record []string
}

// Validate performs the task-local checks: the price must parse to a
// positive decimal, the invoice file must exist and be readable, and the
// invoice date (when set) must parse as an ISO date. Upstream CSV loading
// already guaranteed the required columns are present.
func (r *InvoiceRow) Validate() error {
	if strings.TrimSpace(r.ServiceID) == "" {
		return fmt.Errorf("service_id is empty")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.PriceRaw))
	if err != nil {
		return fmt.Errorf("price %q is not a number: %w", r.PriceRaw, err)
	}
	if !price.IsPositive() {
		return fmt.Errorf("price %s is not positive", price)
	}
	r.Price = price
	f, err := os.Open(r.InvoicePath)
	if err != nil {
		return fmt.Errorf("invoice file %s is not readable: %w", r.InvoicePath, err)
	}
	if cerr := f.Close(); cerr != nil {
		return fmt.Errorf("close invoice file %s: %w", r.InvoicePath, cerr)
	}
	if r.InvoiceDate != "" {
		if _, err := time.Parse("2006-01-02", r.InvoiceDate); err != nil {
			return fmt.Errorf("invoice_date %q is not an ISO date: %w", r.InvoiceDate, err)
		}
	}
	return nil
}

// Batch is a validated set of invoice rows plus the input header they came
// from. Header order is preserved so report columns line up with the input.
type Batch struct {
	Header []string
	Rows   []*InvoiceRow
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	return len(b.Rows)
}
