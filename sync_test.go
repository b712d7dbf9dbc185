package vaultsync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/vaultsync/vault"
)

func newVault(t *testing.T) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll(vault.ImagesDir, 0o755))
	require.NoError(t, fs.MkdirAll(vault.PostsDir, 0o755))
	return fs
}

func putFile(t *testing.T, fs billy.Filesystem, path string, data []byte) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, data, 0o644))
}

func putPost(t *testing.T, fs billy.Filesystem, name, description, text string) {
	t.Helper()
	dir := fs.Join(vault.PostsDir, name)
	putFile(t, fs, fs.Join(dir, vault.DescriptionFile), []byte(description))
	putFile(t, fs, fs.Join(dir, vault.TextFile), []byte(text))
}

func newTestApp(t *testing.T, fs billy.Filesystem, cfg SiteConfig, views ViewFuncs) *App {
	t.Helper()
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(t.TempDir(), "blog.db")
	}
	a := New(cfg, views, WithVaultFS(fs))
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSyncInsertsNewItems(t *testing.T) {
	fs := newVault(t)
	putPost(t, fs, "hello", "A greeting", "# Hello")
	putFile(t, fs, vault.ImagesDir+"/cat.png", []byte("cat bytes"))
	a := newTestApp(t, fs, SiteConfig{}, ViewFuncs{})
	ctx := context.Background()

	res, err := a.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, res.NewPosts)
	assert.Equal(t, []string{"cat.png"}, res.NewImages)
	assert.Empty(t, res.UpdatedPosts)
	assert.True(t, res.Changed())
	assert.Equal(t, res, *a.LastSync())

	post, err := a.Store.GetPostAny(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "A greeting", post.Description)
	assert.False(t, post.Released)

	img, err := a.Store.GetImage(ctx, "cat.png", false)
	require.NoError(t, err)
	assert.Equal(t, []byte("cat bytes"), img.Data)

	// A second sync with nothing changed writes nothing.
	res, err = a.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func TestSyncUpdatesChangedContentKeepingRelease(t *testing.T) {
	fs := newVault(t)
	putPost(t, fs, "hello", "v1", "first body")
	putFile(t, fs, vault.ImagesDir+"/cat.png", []byte("v1"))
	a := newTestApp(t, fs, SiteConfig{}, ViewFuncs{})
	ctx := context.Background()

	_, err := a.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Store.ReleasePost(ctx, "hello", time.Now()))
	require.NoError(t, a.Store.ReleaseImage(ctx, "cat.png"))

	putPost(t, fs, "hello", "v2", "second body")
	putFile(t, fs, vault.ImagesDir+"/cat.png", []byte("v2"))

	res, err := a.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.NewPosts)
	assert.Equal(t, []string{"hello"}, res.UpdatedPosts)
	assert.Equal(t, []string{"cat.png"}, res.UpdatedImages)

	post, err := a.Store.GetPost(ctx, "hello")
	require.NoError(t, err, "post must stay released after a content update")
	assert.Equal(t, "v2", post.Description)
	assert.Equal(t, "second body", post.Text)
	assert.NotNil(t, post.LastUpdated)

	img, err := a.Store.GetImage(ctx, "cat.png", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), img.Data)
}

func TestSyncInvalidatesCache(t *testing.T) {
	fs := newVault(t)
	putPost(t, fs, "hello", "d", "t")
	a := newTestApp(t, fs, SiteConfig{}, ViewFuncs{})
	ctx := context.Background()

	_, err := a.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Store.ReleasePost(ctx, "hello", time.Now()))
	a.Cache.Invalidate()

	post, err := a.Cache.GetPost(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "t", post.Text)

	putPost(t, fs, "hello", "d", "edited")
	_, err = a.Sync(ctx)
	require.NoError(t, err)

	post, err = a.Cache.GetPost(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "edited", post.Text)
}

func TestSyncFailureWritesNothing(t *testing.T) {
	fs := newVault(t)
	putPost(t, fs, "good", "d", "t")
	a := newTestApp(t, fs, SiteConfig{}, ViewFuncs{})
	ctx := context.Background()

	_, err := a.Sync(ctx)
	require.NoError(t, err)
	first := a.LastSync()

	putPost(t, fs, "another", "d", "t")
	putFile(t, fs, fs.Join(vault.PostsDir, "broken", vault.DescriptionFile), []byte("no body"))

	_, err = a.Sync(ctx)
	require.ErrorIs(t, err, vault.ErrMissingFile)

	_, err = a.Store.GetPostAny(ctx, "another")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Same(t, first, a.LastSync())
}

func TestInitRequiresVault(t *testing.T) {
	a := New(SiteConfig{DatabasePath: filepath.Join(t.TempDir(), "blog.db")}, ViewFuncs{})
	t.Cleanup(func() { a.Close() })
	require.Error(t, a.Init(context.Background()))
}

func TestWatchRequiresHostVault(t *testing.T) {
	a := newTestApp(t, newVault(t), SiteConfig{}, ViewFuncs{})
	_, err := a.watchVault(context.Background())
	require.Error(t, err)
}

func TestWatchVaultSyncs(t *testing.T) {
	root := t.TempDir()
	fs := newHostVault(t, root)
	a := New(SiteConfig{
		VaultPath:     root,
		DatabasePath:  filepath.Join(t.TempDir(), "blog.db"),
		WatchDebounce: 50 * time.Millisecond,
	}, ViewFuncs{})
	t.Cleanup(func() { a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Init(ctx))
	stop, err := a.watchVault(ctx)
	require.NoError(t, err)
	defer stop()

	putPost(t, fs, "fresh", "d", "t")

	require.Eventually(t, func() bool {
		_, err := a.Store.GetPostAny(ctx, "fresh")
		return err == nil
	}, 5*time.Second, 25*time.Millisecond)
}

func newHostVault(t *testing.T, root string) billy.Filesystem {
	t.Helper()
	fs := osfs.New(root)
	require.NoError(t, fs.MkdirAll(vault.ImagesDir, 0o755))
	require.NoError(t, fs.MkdirAll(vault.PostsDir, 0o755))
	return fs
}
