package vaultsync

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.logger.Warn("failed admin login", zap.String("ip", ip))
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminSync(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	res, err := a.Sync(c.Request().Context())
	if err != nil {
		// Vault problems (a missing text.md, an over-long description) are
		// the author's to fix, so show them instead of a 500 page.
		a.logger.Error("admin sync failed", zap.Error(err))
		return a.renderAdminDashboard(c, "Sync failed: "+err.Error())
	}
	msg := fmt.Sprintf("Synced: %d new posts, %d new images, %d updated posts, %d updated images.",
		len(res.NewPosts), len(res.NewImages), len(res.UpdatedPosts), len(res.UpdatedImages))
	return a.renderAdminDashboard(c, msg)
}

func (a *App) handleAdminReleasePost(c echo.Context) error {
	return a.adminUpdate(c, "released", func(ctx context.Context, name string) error {
		return a.Store.ReleasePost(ctx, name, time.Now())
	})
}

func (a *App) handleAdminUnreleasePost(c echo.Context) error {
	return a.adminUpdate(c, "unreleased", a.Store.UnreleasePost)
}

func (a *App) handleAdminDeletePost(c echo.Context) error {
	return a.adminUpdate(c, "deleted", a.Store.DeletePost)
}

func (a *App) handleAdminReleaseImage(c echo.Context) error {
	return a.adminUpdate(c, "released", a.Store.ReleaseImage)
}

func (a *App) handleAdminUnreleaseImage(c echo.Context) error {
	return a.adminUpdate(c, "unreleased", a.Store.UnreleaseImage)
}

// adminUpdate applies a change to the post or image named by :name.
func (a *App) adminUpdate(c echo.Context, verb string, fn func(context.Context, string) error) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	name := c.Param("name")
	if err := fn(c.Request().Context(), name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	a.Cache.Invalidate()
	a.logger.Info("admin change", zap.String("name", name), zap.String("status", verb))
	return a.renderAdminDashboard(c, name+" "+verb)
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	posts, err := a.Store.ListAllPosts(ctx)
	if err != nil {
		return err
	}
	images, err := a.Store.ListImages(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(DashboardData{
		Posts:     posts,
		Images:    images,
		LastScan:  a.Scanner.LastScan(),
		LastSync:  a.LastSync(),
		Message:   msg,
		CsrfToken: CsrfToken(c),
	}))
}
