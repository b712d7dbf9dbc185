// Package vaultsync publishes a personal knowledge vault as a blog.
// It scans the vault for posts and images, persists new ones to SQLite,
// and serves released content over HTTP with Echo.
//
// Callers provide their own templ components via the ViewFuncs struct;
// the views package ships a default set.
package vaultsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"github.com/go-git/go-billy/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/vaultsync/vault"
)

// ViewFuncs holds the templ components the App renders pages with.
type ViewFuncs struct {
	Index          func(posts []BlogPost, cfg SiteConfig) templ.Component
	Post           func(post BlogPost, cfg SiteConfig) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(data DashboardData) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// DashboardData is everything the admin dashboard shows.
type DashboardData struct {
	Posts     []BlogPost
	Images    []Image
	LastScan  time.Time
	LastSync  *SyncResult
	Message   string
	CsrfToken string
}

// App is the central vaultsync application. It wires together the store,
// scanner, cache, handlers, middleware, and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Scanner *vault.Scanner
	Cache   *PostCache
	Views   ViewFuncs

	logger       *zap.Logger
	vaultFS      billy.Filesystem
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	mounted      bool

	syncMu   sync.Mutex
	lastSync atomic.Pointer[SyncResult]
}

// New creates a new App with the given configuration and view functions.
// Nothing is opened until Init or Start is called.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Logger returns the app's logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Init opens the store and performs the first vault scan. It is safe to
// call more than once.
func (a *App) Init(ctx context.Context) error {
	if a.Scanner != nil {
		return nil
	}
	if a.vaultFS == nil && a.Config.VaultPath == "" {
		return errors.New("vaultsync: VaultPath is required")
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("vaultsync: init store: %w", err)
		}
		a.Store = store
	}
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)

	scanner, err := vault.New(ctx, vault.Config{Root: a.Config.VaultPath, FS: a.vaultFS}, a.Store, a.logger.Named("vault"))
	if err != nil {
		return fmt.Errorf("vaultsync: initial scan: %w", err)
	}
	a.Scanner = scanner
	return nil
}

// Handler initializes the app and mounts middleware and routes without
// starting a listener. Start uses it; tests can drive a.Echo directly.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	if a.mounted {
		return a.Echo, nil
	}
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	if a.Config.AdminEnabled() && a.Config.SessionSecret == "" {
		return nil, errors.New("vaultsync: SessionSecret is required when AdminPassword is set")
	}
	if a.loginLimiter == nil {
		a.loginLimiter = NewLoginLimiter(5, time.Minute)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.mounted = true
	return a.Echo, nil
}

// Start serves HTTP until ctx is cancelled or the listener fails. When
// WatchVault is set, vault changes trigger a Sync in the background.
func (a *App) Start(ctx context.Context) error {
	if _, err := a.Handler(ctx); err != nil {
		return err
	}

	if a.Config.WatchVault {
		stop, err := a.watchVault(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", a.Config.Addr))
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutting down")
		return a.Echo.Shutdown(shutdownCtx)
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/favicon.svg", echo.WrapHandler(http.FileServer(http.FS(assets))))
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/", handleLiveness)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog/", a.handleIndex)
	e.GET("/blog/:name/", a.handlePost)
	e.GET("/images/:name", a.handleImage)
	e.GET("/api/posts/", a.handleAPIPosts)
	e.GET("/api/posts/:name/", a.handleAPIPost)

	if !a.Config.AdminEnabled() {
		a.logger.Warn("ADMIN_PASSWORD not set, admin routes disabled")
		return
	}

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/sync/", a.handleAdminSync)
	e.POST("/admin/posts/:name/release/", a.handleAdminReleasePost)
	e.POST("/admin/posts/:name/unrelease/", a.handleAdminUnreleasePost)
	e.POST("/admin/posts/:name/delete/", a.handleAdminDeletePost)
	e.POST("/admin/images/:name/release/", a.handleAdminReleaseImage)
	e.POST("/admin/images/:name/unrelease/", a.handleAdminUnreleaseImage)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
