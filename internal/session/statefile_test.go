package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/invoice-uploader/internal/core"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store := NewFileStore(path, nil)
	ctx := context.Background()

	state := core.SessionState(`{"cookies":[{"name":"sid","value":"abc"}]}`)
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "auth.json"), nil)

	_, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoSessionState))
}

func TestFileStoreCorruptFileReadsAsNoState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewFileStore(path, nil)
	_, err := store.Load(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoSessionState))
}
