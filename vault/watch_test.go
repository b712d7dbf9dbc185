package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiskVault(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ImagesDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, PostsDir, "existing"), 0o755))
	return root
}

func TestWatcherCoalescesChanges(t *testing.T) {
	root := newDiskVault(t)
	w, err := NewWatcher(root, 50*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, ImagesDir, name), []byte(name), 0o644))
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}

	select {
	case <-w.Changes():
		t.Fatal("expected the burst to be coalesced into one notification")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherSeesEditsInsidePostDirectories(t *testing.T) {
	root := newDiskVault(t)
	w, err := NewWatcher(root, 20*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(root, PostsDir, "existing", TextFile)
	require.NoError(t, os.WriteFile(path, []byte("body"), 0o644))

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification for a post edit")
	}
}

func TestWatcherStartTwice(t *testing.T) {
	root := newDiskVault(t)
	w, err := NewWatcher(root, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.Error(t, w.Start())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	_, ok := <-w.Changes()
	require.False(t, ok)
}

func TestWatcherMissingVault(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), time.Second, nil)
	require.NoError(t, err)
	require.Error(t, w.Start())

	// A failed Start releases the inotify handle.
	assert.ErrorIs(t, w.watcher.Add(t.TempDir()), fsnotify.ErrClosed)
	assert.Error(t, w.Start())
	assert.NoError(t, w.Stop())
}
