package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means logged out")

	require.NoError(t, store.Save("T1"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "T1", token)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"auth_token":"T1"}`, string(raw))

	require.NoError(t, store.Save("T2"))
	token, _ = store.Load()
	assert.Equal(t, "T2", token, "last writer wins")

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_SaveEmptyClears(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save("T1"))
	require.NoError(t, store.Save(""))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("T0")
	token, _ := store.Load()
	assert.Equal(t, "T0", token)

	require.NoError(t, store.Save("T1"))
	token, _ = store.Load()
	assert.Equal(t, "T1", token)

	require.NoError(t, store.Clear())
	token, _ = store.Load()
	assert.Empty(t, token)
}

func TestFileStore_WatchSeesExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	other := NewFileStore(path)

	var changes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx, func() { changes.Add(1) }) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, other.Save("T1"))
	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := changes.Load()
	require.NoError(t, other.Clear())
	assert.Eventually(t, func() bool { return changes.Load() > before }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
