package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/target/invoice-uploader/internal/core"
)

// FileStore persists session state as a JSON blob on disk, the same shape
// a previous run left behind. Missing or corrupt files read as "no state"
// so the caller falls back to a fresh login.
type FileStore struct {
	path   string
	logger *slog.Logger
}

var _ core.SessionStore = (*FileStore)(nil)

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the persisted state. Corrupt content is reported as
// core.ErrNoSessionState, not an error: stale auth files must never stop a run.
func (f *FileStore) Load(ctx context.Context) (core.SessionState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNoSessionState
		}
		return nil, fmt.Errorf("read session state %s: %w", f.path, err)
	}
	if !json.Valid(data) {
		f.logger.WarnContext(ctx, "session state file is corrupt, ignoring", "path", f.path)
		return nil, core.ErrNoSessionState
	}
	return core.SessionState(data), nil
}

// Save writes the state with owner-only permissions; it holds cookies.
func (f *FileStore) Save(_ context.Context, state core.SessionState) error {
	if err := os.WriteFile(f.path, state, 0o600); err != nil {
		return fmt.Errorf("write session state %s: %w", f.path, err)
	}
	return nil
}
