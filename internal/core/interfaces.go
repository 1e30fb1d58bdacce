// Package core defines the port interfaces that decouple the upload
// pipeline from its browser and storage implementations. Services depend
// on these interfaces, never on the concrete adapters.
package core

import (
	"context"
	"errors"

	"github.com/target/invoice-uploader/internal/domain/model"
)

// ErrNoSessionState is returned by SessionStore.Load when no persisted
// state exists. Callers treat it as "perform a fresh login", not a failure.
var ErrNoSessionState = errors.New("no persisted session state")

// Credentials holds the portal login credentials.
type Credentials struct {
	Username string
	Password string
}

// SessionState is the portal's persisted authentication state. The blob is
// opaque to the pipeline; only the portal driver interprets it.
type SessionState []byte

// PortalDriver drives the customer portal through a real browser. A driver
// owns one logged-in browser and may serve concurrent SubmitInvoice calls,
// each in its own tab. Login and RestoreSession mutate shared browser state
// and are serialized by the session layer.
type PortalDriver interface {
	// Login performs a fresh credential login and returns the resulting
	// session state for persistence.
	Login(ctx context.Context, creds Credentials) (SessionState, error)

	// RestoreSession applies previously persisted state and verifies it is
	// still accepted by the portal. Returns false when the portal no longer
	// honors the state; the caller then falls back to Login.
	RestoreSession(ctx context.Context, state SessionState) (bool, error)

	// SubmitInvoice uploads one invoice row and returns the portal-assigned
	// ID. Failures are classified through the internal/errors taxonomy:
	// session expiry, duplicates, transient and permanent portal errors.
	SubmitInvoice(ctx context.Context, row *model.InvoiceRow) (string, error)

	// Close releases the browser.
	Close(ctx context.Context) error
}

// SessionStore persists session state between runs.
type SessionStore interface {
	// Load returns the persisted state, or ErrNoSessionState when absent.
	// Corrupt state is also reported as ErrNoSessionState so callers fall
	// back to a fresh login instead of crashing.
	Load(ctx context.Context) (SessionState, error)

	// Save persists the state for the next run.
	Save(ctx context.Context, state SessionState) error
}
