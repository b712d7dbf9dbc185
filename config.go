package vaultsync

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SiteConfig holds all configuration for a vaultsync service.
type SiteConfig struct {
	VaultPath    string `mapstructure:"vault_path"`    // Required: root of the vault
	DatabasePath string `mapstructure:"database_path"` // SQLite path (default "data/blog.db")

	Name        string `mapstructure:"site_name"`        // Site name (default "Blog")
	URL         string `mapstructure:"site_url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"site_description"` // Site description for RSS
	Addr        string `mapstructure:"addr"`             // Listen address (default ":3000")

	AdminPassword string `mapstructure:"admin_password"`       // Empty disables the admin routes
	SessionSecret string `mapstructure:"admin_session_secret"` // Required when AdminPassword is set
	CookieSecure  bool   `mapstructure:"cookie_secure"`        // Set true for HTTPS

	PostCacheTTL  time.Duration `mapstructure:"post_cache_ttl"` // Post cache TTL (default 5m)
	WatchVault    bool          `mapstructure:"watch_vault"`    // Sync on vault changes
	WatchDebounce time.Duration `mapstructure:"watch_debounce"` // Quiet period before a watch sync (default 2s)

	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error (default info)
	LogFile  string `mapstructure:"log_file"`  // Optional rotating log file
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.WatchDebounce == 0 {
		c.WatchDebounce = 2 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// AdminEnabled reports whether the admin routes should be mounted.
func (c SiteConfig) AdminEnabled() bool {
	return c.AdminPassword != ""
}

// Validate checks the settings every command needs.
func (c SiteConfig) Validate() error {
	if c.VaultPath == "" {
		return errors.New("vaultsync: VAULT_PATH is required")
	}
	if c.AdminEnabled() && c.SessionSecret == "" {
		return errors.New("vaultsync: ADMIN_SESSION_SECRET is required when ADMIN_PASSWORD is set")
	}
	return nil
}

// LoadConfig reads configuration from defaults, an optional dotenv file,
// and the process environment, in increasing order of precedence.
// A missing envFile is not an error.
func LoadConfig(envFile string) (SiteConfig, error) {
	v := viper.New()

	v.SetDefault("vault_path", "")
	v.SetDefault("database_path", "data/blog.db")
	v.SetDefault("site_name", "Blog")
	v.SetDefault("site_url", "http://localhost:3000")
	v.SetDefault("site_description", "")
	v.SetDefault("addr", ":3000")
	v.SetDefault("admin_password", "")
	v.SetDefault("admin_session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("post_cache_ttl", "5m")
	v.SetDefault("watch_vault", false)
	v.SetDefault("watch_debounce", "2s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return SiteConfig{}, fmt.Errorf("vaultsync: read %s: %w", envFile, err)
			}
		}
	}

	v.AutomaticEnv()

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("vaultsync: decode config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithVaultFS makes the scanner read the vault through fs instead of the
// host filesystem at SiteConfig.VaultPath.
func WithVaultFS(fs billy.Filesystem) Option {
	return func(a *App) {
		a.vaultFS = fs
	}
}

// WithLogger sets the logger used by the app and its scanner.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}
