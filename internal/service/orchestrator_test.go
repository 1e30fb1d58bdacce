package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/invoice-uploader/config"
	"github.com/target/invoice-uploader/internal/core"
	"github.com/target/invoice-uploader/internal/csvio"
	"github.com/target/invoice-uploader/internal/domain/model"
	apperrors "github.com/target/invoice-uploader/internal/errors"
	"github.com/target/invoice-uploader/internal/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAppConfig(reportDir string) config.AppConfig {
	return config.AppConfig{
		Portal: config.PortalConfig{
			BaseURL:  "https://portal.test",
			Username: "svc-user",
			Password: "svc-pass",
		},
		Uploader: config.UploaderConfig{
			Concurrency:    2,
			MaxAttempts:    3,
			RetryBaseDelay: time.Millisecond,
			RetryMaxDelay:  4 * time.Millisecond,
			ReportDir:      reportDir,
		},
	}
}

// writeBatchCSV creates an input file plus a readable invoice file per row.
func writeBatchCSV(t *testing.T, dir string, serviceIDs ...string) string {
	t.Helper()
	csvPath := filepath.Join(dir, "services.csv")
	content := "service_id,price,invoice_path,description\n"
	for i, id := range serviceIDs {
		invoice := filepath.Join(dir, fmt.Sprintf("invoice-%d.pdf", i))
		require.NoError(t, os.WriteFile(invoice, []byte("pdf"), 0o644))
		content += fmt.Sprintf("%s,19.90,%s,row %d\n", id, invoice, i)
	}
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))
	return csvPath
}

func findReport(t *testing.T, dir string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "run-*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "exactly one report per run")
	return matches[0]
}

func TestOrchestratorHappyPath(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBatchCSV(t, dir, "SVC-1", "SVC-2", "SVC-3")

	driver := &mocks.FakeDriver{}
	o := MustNewOrchestrator(OrchestratorOptions{
		Config:  testAppConfig(dir),
		CSVPath: csvPath,
		Driver:  driver,
		Store:   &mocks.MemorySessionStore{},
		Logger:  testLogger(),
	})

	code, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, 3, driver.SubmitCalls())

	report := findReport(t, dir)
	batch, err := csvio.Load(report)
	require.NoError(t, err)
	require.Equal(t, 3, batch.Len())
	assert.Contains(t, batch.Header, "status")
	assert.Contains(t, batch.Header, "portal_id")
	for _, row := range batch.Rows {
		assert.Equal(t, string(model.StatusSucceeded), row.Record[len(row.Record)-4])
	}
}

func TestOrchestratorPartialFailure(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBatchCSV(t, dir, "SVC-1", "SVC-2")

	driver := &mocks.FakeDriver{
		SubmitInvoiceFunc: func(_ context.Context, row *model.InvoiceRow) (string, error) {
			if row.ServiceID == "SVC-2" {
				return "", apperrors.Permanent("portal rejected the invoice")
			}
			return "P-100", nil
		},
	}
	o := MustNewOrchestrator(OrchestratorOptions{
		Config:  testAppConfig(dir),
		CSVPath: csvPath,
		Driver:  driver,
		Store:   &mocks.MemorySessionStore{},
		Logger:  testLogger(),
	})

	code, err := o.Run(context.Background())
	require.NoError(t, err, "a failed row is an outcome, not a run error")
	assert.Equal(t, ExitPartialFailure, code)

	// The report is still written and carries both terminal states.
	findReport(t, dir)
}

func TestOrchestratorStartupAuthFailure(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBatchCSV(t, dir, "SVC-1")

	driver := &mocks.FakeDriver{
		LoginFunc: func(context.Context, core.Credentials) (core.SessionState, error) {
			return nil, apperrors.Auth("invalid credentials")
		},
	}
	o := MustNewOrchestrator(OrchestratorOptions{
		Config:  testAppConfig(dir),
		CSVPath: csvPath,
		Driver:  driver,
		Store:   &mocks.MemorySessionStore{},
		Logger:  testLogger(),
	})

	code, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitStartupError, code)
	assert.Zero(t, driver.SubmitCalls(), "no upload may start when login fails")

	matches, globErr := filepath.Glob(filepath.Join(dir, "run-*.csv"))
	require.NoError(t, globErr)
	assert.Empty(t, matches, "no report on startup abort")
}

func TestOrchestratorMissingCredentials(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBatchCSV(t, dir, "SVC-1")

	cfg := testAppConfig(dir)
	cfg.Portal.Username = ""

	driver := &mocks.FakeDriver{}
	o := MustNewOrchestrator(OrchestratorOptions{
		Config:  cfg,
		CSVPath: csvPath,
		Driver:  driver,
		Store:   &mocks.MemorySessionStore{},
		Logger:  testLogger(),
	})

	code, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitStartupError, code)
	assert.Zero(t, driver.LoginCalls())
}

func TestOrchestratorDuplicateServiceID(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeBatchCSV(t, dir, "SVC-1", "SVC-1")

	driver := &mocks.FakeDriver{}
	o := MustNewOrchestrator(OrchestratorOptions{
		Config:  testAppConfig(dir),
		CSVPath: csvPath,
		Driver:  driver,
		Store:   &mocks.MemorySessionStore{},
		Logger:  testLogger(),
	})

	code, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate service_id "SVC-1"`)
	assert.Equal(t, ExitStartupError, code)
	assert.Zero(t, driver.LoginCalls(), "duplicates abort before any portal work")
}

func TestOrchestratorMissingCSV(t *testing.T) {
	dir := t.TempDir()

	o := MustNewOrchestrator(OrchestratorOptions{
		Config:  testAppConfig(dir),
		CSVPath: filepath.Join(dir, "nope.csv"),
		Driver:  &mocks.FakeDriver{},
		Store:   &mocks.MemorySessionStore{},
		Logger:  testLogger(),
	})

	code, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitStartupError, code)
}

func TestMustNewOrchestratorValidation(t *testing.T) {
	assert.Panics(t, func() {
		MustNewOrchestrator(OrchestratorOptions{Store: &mocks.MemorySessionStore{}})
	})
	assert.Panics(t, func() {
		MustNewOrchestrator(OrchestratorOptions{Driver: &mocks.FakeDriver{}})
	})
}
