// Package session owns the portal's authenticated state: the one resource
// in the pipeline requiring exclusive mutation. Login and refresh run under
// a lease; concurrent upload tasks share the logged-in browser freely.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/invoice-uploader/internal/core"
	apperrors "github.com/target/invoice-uploader/internal/errors"
)

// Options groups dependencies for Session.
type Options struct {
	Driver      core.PortalDriver
	Store       core.SessionStore
	Credentials core.Credentials
	Logger      *slog.Logger
}

// Session wraps the portal driver's authenticated state. All
// state-mutating operations (login, refresh) are serialized through an
// exclusive lease; a failed mid-batch re-authentication marks the session
// lost for the remainder of the run.
type Session struct {
	driver core.PortalDriver
	store  core.SessionStore
	creds  core.Credentials
	logger *slog.Logger

	leaseCh chan struct{}
	reauth  singleflight.Group

	mu       sync.Mutex
	lastUsed time.Time

	lostOnce sync.Once
	lost     chan struct{}
}

// MustNew constructs a Session and panics if required dependencies are missing.
func MustNew(opts Options) *Session {
	if opts.Driver == nil {
		panic("session: Driver is required")
	}
	if opts.Store == nil {
		panic("session: Store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		driver:  opts.Driver,
		store:   opts.Store,
		creds:   opts.Credentials,
		logger:  logger,
		leaseCh: make(chan struct{}, 1),
		lost:    make(chan struct{}),
	}
}

// Lease is the exclusive right to perform a session-mutating operation.
// Release it promptly; upload tasks never need one.
type Lease struct {
	s    *Session
	once sync.Once
}

// Release returns the lease. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() { <-l.s.leaseCh })
}

// Acquire blocks until any in-flight session-mutating operation completes,
// then returns the lease.
func (s *Session) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case s.leaseCh <- struct{}{}:
		return &Lease{s: s}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire session lease: %w", ctx.Err())
	}
}

// EnsureAuthenticated brings the session to a logged-in state: persisted
// state is restored when the portal still honors it, otherwise a fresh
// credential login runs and the new state is persisted. Errors here are
// fatal at startup; the orchestrator attempts no uploads.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	lease, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	state, err := s.store.Load(ctx)
	switch {
	case err == nil:
		ok, rerr := s.driver.RestoreSession(ctx, state)
		if rerr != nil {
			return apperrors.Wrap(rerr, apperrors.ErrCodeAuth, "restore persisted session")
		}
		if ok {
			s.logger.InfoContext(ctx, "using saved session state")
			s.Touch()
			return nil
		}
		s.logger.InfoContext(ctx, "saved session state rejected by portal, performing fresh login")
	case errors.Is(err, core.ErrNoSessionState):
		s.logger.InfoContext(ctx, "no saved session found, performing fresh login")
	default:
		return fmt.Errorf("load session state: %w", err)
	}

	return s.loginLocked(ctx)
}

// loginLocked performs a credential login and persists the resulting state.
// Caller holds the lease.
func (s *Session) loginLocked(ctx context.Context) error {
	state, err := s.driver.Login(ctx, s.creds)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeAuth, "portal login")
	}
	s.logger.InfoContext(ctx, "login successful")

	if err := s.store.Save(ctx, state); err != nil {
		// The session works; a failed save only costs the next run a login.
		s.logger.WarnContext(ctx, "persist session state failed", "error", err)
	}
	s.Touch()
	return nil
}

// IsExpiry classifies a portal error as a session-expiry signal.
func (s *Session) IsExpiry(err error) bool {
	return apperrors.IsSessionExpired(err)
}

// HandleExpiry reacts to a session-expiry signal. Concurrent callers
// collapse into a single re-authentication; every caller observes its
// result. A failed re-authentication marks the session lost: this and all
// later calls return a session-lost error and no further attempts happen.
func (s *Session) HandleExpiry(ctx context.Context) error {
	if s.Lost() {
		return apperrors.SessionLost("portal session lost")
	}

	_, err, _ := s.reauth.Do("reauth", func() (any, error) {
		lease, aerr := s.Acquire(ctx)
		if aerr != nil {
			return nil, aerr
		}
		defer lease.Release()

		s.logger.WarnContext(ctx, "session expiry detected, re-authenticating")
		if lerr := s.loginLocked(ctx); lerr != nil {
			s.markLost()
			return nil, apperrors.Wrap(lerr, apperrors.ErrCodeSessionLost, "re-authentication failed")
		}
		s.logger.InfoContext(ctx, "session recovered")
		return nil, nil
	})
	return err
}

// Lost reports whether a re-authentication has failed for good.
func (s *Session) Lost() bool {
	select {
	case <-s.lost:
		return true
	default:
		return false
	}
}

// LostChan is closed once the session is lost. The worker pool selects on
// it to abort queued rows promptly.
func (s *Session) LostChan() <-chan struct{} {
	return s.lost
}

// Touch records a successful use of the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// LastUsed returns the time of the most recent session activity.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) markLost() {
	s.lostOnce.Do(func() { close(s.lost) })
}
