package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/eringen/vaultsync"
)

// AdminLogin is the password form. showError flags a failed attempt.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return bare("Admin login", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>Admin</h1>`)
		if showError {
			w.raw(`<p class="error">Wrong password.</p>`)
		}
		w.raw(`<form method="post" action="/admin/login/">`)
		csrfField(w, csrfToken)
		w.raw(`<label>Password <input type="password" name="password" autofocus required></label> `)
		w.raw(`<button type="submit">Log in</button></form>`)
		return w.err
	}))
}

// AdminDashboard shows every post and image with release controls.
func AdminDashboard(data vaultsync.DashboardData) templ.Component {
	return bare("Admin", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<header><h1>Admin</h1>`)
		postForm(w, "/admin/logout/", "Log out", data.CsrfToken)
		w.raw(`</header>`)

		if data.Message != "" {
			class := "flash"
			if strings.HasPrefix(data.Message, "Sync failed") {
				class = "error"
			}
			w.raw(`<p class="` + class + `">`)
			w.text(data.Message)
			w.raw(`</p>`)
		}

		w.raw(`<p class="meta">`)
		if data.LastScan.IsZero() {
			w.raw(`Vault not scanned yet.`)
		} else {
			w.text("Last scan " + humanize.Time(data.LastScan) + ".")
		}
		if data.LastSync != nil {
			w.text(fmt.Sprintf(" Last sync %s: %d new posts, %d new images.",
				humanize.Time(data.LastSync.ScannedAt), len(data.LastSync.NewPosts), len(data.LastSync.NewImages)))
		}
		w.raw(`</p>`)
		postForm(w, "/admin/sync/", "Sync vault", data.CsrfToken)

		w.raw(`<h2>Posts</h2>`)
		if len(data.Posts) == 0 {
			w.raw(`<p>No posts.</p>`)
		} else {
			w.raw(`<table><thead><tr><th>Name</th><th>Description</th><th>Released</th><th>Updated</th><th></th></tr></thead><tbody>`)
			for _, p := range data.Posts {
				w.raw(`<tr><td>`)
				if p.Released {
					w.raw(`<a href="`)
					w.text(p.Link())
					w.raw(`">`)
					w.text(p.Name)
					w.raw(`</a>`)
				} else {
					w.text(p.Name)
				}
				w.raw(`</td><td>`)
				w.text(p.Description)
				w.raw(`</td><td>`)
				w.text(FormatDate(p.ReleaseDate))
				w.raw(`</td><td>`)
				w.text(FormatDate(p.LastUpdated))
				w.raw(`</td><td>`)
				releaseToggle(w, "/admin/posts/", p.Name, p.Released, data.CsrfToken)
				w.raw(` `)
				postForm(w, "/admin/posts/"+vaultsync.PathEscape(p.Name)+"/delete/", "Delete", data.CsrfToken)
				w.raw(`</td></tr>`)
			}
			w.raw(`</tbody></table>`)
		}

		w.raw(`<h2>Images</h2>`)
		if len(data.Images) == 0 {
			w.raw(`<p>No images.</p>`)
		} else {
			w.raw(`<table><thead><tr><th>Name</th><th>Size</th><th>Released</th><th></th></tr></thead><tbody>`)
			for _, img := range data.Images {
				w.raw(`<tr><td><a href="`)
				w.text(img.Link())
				w.raw(`">`)
				w.text(img.Name)
				w.raw(`</a></td><td>`)
				w.text(humanize.Bytes(uint64(img.Size)))
				w.raw(`</td><td>`)
				if img.Released {
					w.raw(`yes`)
				} else {
					w.raw(`no`)
				}
				w.raw(`</td><td>`)
				releaseToggle(w, "/admin/images/", img.Name, img.Released, data.CsrfToken)
				w.raw(`</td></tr>`)
			}
			w.raw(`</tbody></table>`)
		}
		return w.err
	}))
}

func releaseToggle(w *writer, prefix, name string, released bool, csrfToken string) {
	action := prefix + vaultsync.PathEscape(name) + "/release/"
	label := "Release"
	if released {
		action = prefix + vaultsync.PathEscape(name) + "/unrelease/"
		label = "Unrelease"
	}
	postForm(w, action, label, csrfToken)
}

func postForm(w *writer, action, label, csrfToken string) {
	w.raw(`<form class="inline" method="post" action="`)
	w.text(action)
	w.raw(`">`)
	csrfField(w, csrfToken)
	w.raw(`<button type="submit">`)
	w.text(label)
	w.raw(`</button></form>`)
}

func csrfField(w *writer, token string) {
	w.raw(`<input type="hidden" name="_csrf" value="`)
	w.text(token)
	w.raw(`">`)
}
