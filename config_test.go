package vaultsync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "Blog", cfg.Name)
	assert.Equal(t, "http://localhost:3000", cfg.URL)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/blog.db", cfg.DatabasePath)
	assert.Equal(t, 5*time.Minute, cfg.PostCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.AdminEnabled())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`# vault settings
VAULT_PATH=/srv/vault
SITE_NAME=Field Notes
SITE_URL=https://notes.example.com/
POST_CACHE_TTL=30s
WATCH_VAULT=true
ADMIN_PASSWORD=from-file
`), 0o644))
	t.Setenv("ADMIN_PASSWORD", "from-env")
	t.Setenv("ADMIN_SESSION_SECRET", "secret")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/srv/vault", cfg.VaultPath)
	assert.Equal(t, "Field Notes", cfg.Name)
	assert.Equal(t, "https://notes.example.com", cfg.URL, "trailing slash is trimmed")
	assert.Equal(t, 30*time.Second, cfg.PostCacheTTL)
	assert.True(t, cfg.WatchVault)
	assert.Equal(t, "from-env", cfg.AdminPassword, "environment wins over the file")
	assert.Equal(t, "secret", cfg.SessionSecret)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	assert.Error(t, SiteConfig{}.Validate())
	assert.Error(t, SiteConfig{VaultPath: "/v", AdminPassword: "pw"}.Validate())
	assert.NoError(t, SiteConfig{VaultPath: "/v"}.Validate())
	assert.NoError(t, SiteConfig{VaultPath: "/v", AdminPassword: "pw", SessionSecret: "s"}.Validate())
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "vaultsync.log")
	logger, err := NewLogger("warn", logFile, false)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shown"`)
	assert.NotContains(t, string(data), "hidden")

	_, err = NewLogger("loud", "", false)
	assert.Error(t, err)
}
