// Package mocks contains simple hand-written test doubles for the pipeline
// ports. These are lightweight and suitable for unit tests without codegen.
package mocks

import (
	"context"
	"sync"

	"github.com/target/invoice-uploader/internal/core"
	"github.com/target/invoice-uploader/internal/domain/model"
)

// Ensure compile-time conformance to ports.
var (
	_ core.PortalDriver = (*FakeDriver)(nil)
	_ core.SessionStore = (*MemorySessionStore)(nil)
)

// FakeDriver simulates the portal for tests. Behavior is injected through
// func fields; unset fields succeed with zero values. Call counts are safe
// to read after the code under test finishes.
type FakeDriver struct {
	LoginFunc          func(ctx context.Context, creds core.Credentials) (core.SessionState, error)
	RestoreSessionFunc func(ctx context.Context, state core.SessionState) (bool, error)
	SubmitInvoiceFunc  func(ctx context.Context, row *model.InvoiceRow) (string, error)
	CloseFunc          func(ctx context.Context) error

	mu             sync.Mutex
	loginCalls     int
	restoreCalls   int
	submitCalls    int
	submittedRows  []*model.InvoiceRow
	closeCallCount int
}

// Login records the call and delegates to LoginFunc.
func (f *FakeDriver) Login(ctx context.Context, creds core.Credentials) (core.SessionState, error) {
	f.mu.Lock()
	f.loginCalls++
	f.mu.Unlock()
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, creds)
	}
	return core.SessionState(`{"cookies":[]}`), nil
}

// RestoreSession records the call and delegates to RestoreSessionFunc.
func (f *FakeDriver) RestoreSession(ctx context.Context, state core.SessionState) (bool, error) {
	f.mu.Lock()
	f.restoreCalls++
	f.mu.Unlock()
	if f.RestoreSessionFunc != nil {
		return f.RestoreSessionFunc(ctx, state)
	}
	return true, nil
}

// SubmitInvoice records the call and delegates to SubmitInvoiceFunc.
func (f *FakeDriver) SubmitInvoice(ctx context.Context, row *model.InvoiceRow) (string, error) {
	f.mu.Lock()
	f.submitCalls++
	f.submittedRows = append(f.submittedRows, row)
	f.mu.Unlock()
	if f.SubmitInvoiceFunc != nil {
		return f.SubmitInvoiceFunc(ctx, row)
	}
	return "P-1", nil
}

// Close records the call and delegates to CloseFunc.
func (f *FakeDriver) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closeCallCount++
	f.mu.Unlock()
	if f.CloseFunc != nil {
		return f.CloseFunc(ctx)
	}
	return nil
}

// LoginCalls returns how many times Login ran.
func (f *FakeDriver) LoginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls
}

// RestoreCalls returns how many times RestoreSession ran.
func (f *FakeDriver) RestoreCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restoreCalls
}

// SubmitCalls returns how many times SubmitInvoice ran.
func (f *FakeDriver) SubmitCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

// SubmittedRows returns the rows passed to SubmitInvoice, in call order.
func (f *FakeDriver) SubmittedRows() []*model.InvoiceRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.InvoiceRow, len(f.submittedRows))
	copy(out, f.submittedRows)
	return out
}

// MemorySessionStore keeps session state in memory. The zero value reads
// as "no persisted state".
type MemorySessionStore struct {
	mu    sync.Mutex
	state core.SessionState
	// LoadErr and SaveErr force failures when set.
	LoadErr error
	SaveErr error
}

// Load returns the stored state or core.ErrNoSessionState.
func (m *MemorySessionStore) Load(_ context.Context) (core.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.state == nil {
		return nil, core.ErrNoSessionState
	}
	return m.state, nil
}

// Save stores the state.
func (m *MemorySessionStore) Save(_ context.Context, state core.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.state = state
	return nil
}

// Seed pre-populates the store, as if a previous run had saved state.
func (m *MemorySessionStore) Seed(state core.SessionState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

// State returns the currently stored state.
func (m *MemorySessionStore) State() core.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
