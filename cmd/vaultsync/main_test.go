package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vaultsync dev\n", out)
}

func TestInitSyncReleaseScan(t *testing.T) {
	dir := t.TempDir()
	vaultDir := filepath.Join(dir, "my-notes")

	out, err := execute(t, "init", vaultDir)
	require.NoError(t, err)
	assert.Contains(t, out, "created .env")
	assert.FileExists(t, filepath.Join(vaultDir, "__BLOG_POSTS__", "hello-world", "text.md"))

	envFile := filepath.Join(vaultDir, ".env")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "blog.db"))
	t.Setenv("LOG_LEVEL", "error")

	out, err = execute(t, "--env-file", envFile, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Posts (1, 1 new):")
	assert.Contains(t, out, "+ hello-world")

	out, err = execute(t, "--env-file", envFile, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "1 new posts, 0 new images")

	out, err = execute(t, "--env-file", envFile, "release", "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "hello-world released\n", out)

	out, err = execute(t, "--env-file", envFile, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Posts (1, 0 new):")
	assert.Contains(t, out, "* hello-world")
}

func TestReleaseUnknownPost(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "blog.db"))
	t.Setenv("LOG_LEVEL", "error")

	_, err := execute(t, "--env-file", filepath.Join(dir, "missing.env"), "release", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run sync first")
}

func TestInitRefusesExistingVault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VAULT_PATH=x\n"), 0o644))

	_, err := execute(t, "init", dir)
	require.Error(t, err)
}

func TestMarker(t *testing.T) {
	assert.Equal(t, "+", marker(true, false))
	assert.Equal(t, "*", marker(false, true))
	assert.Equal(t, " ", marker(false, false))
}
