// Package views is the default set of page components for vaultsync.
// Pages are plain templ components, so an embedding site can replace any of
// them through vaultsync.ViewFuncs.
package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/vaultsync"
)

// PageMeta carries per-page SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical
	JSONLD      string // optional structured data
}

// Default returns the stock page set.
func Default() vaultsync.ViewFuncs {
	return vaultsync.ViewFuncs{
		Index:          Index,
		Post:           Post,
		AdminLogin:     AdminLogin,
		AdminDashboard: AdminDashboard,
		NotFound:       NotFound,
		ServerError:    ServerError,
	}
}

// writer accumulates the first write error so page bodies read linearly.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err != nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

const styles = `body{font-family:system-ui,sans-serif;max-width:48rem;margin:0 auto;padding:1.5rem;line-height:1.6;color:#1c1917}
a{color:#1d4ed8}header{display:flex;justify-content:space-between;align-items:baseline;border-bottom:1px solid #e7e5e4;margin-bottom:1.5rem}
.meta{color:#78716c;font-size:.875rem}.post-list{list-style:none;padding:0}.post-list li{margin-bottom:1.25rem}
article img{max-width:100%}pre{overflow-x:auto;background:#f5f5f4;padding:.75rem}
table{border-collapse:collapse}td,th{border:1px solid #d6d3d1;padding:.25rem .5rem}
.flash{background:#ecfccb;padding:.5rem .75rem}.error{background:#fee2e2;padding:.5rem .75rem}
form.inline{display:inline}`

// layout wraps body in the site chrome.
func layout(cfg vaultsync.SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		title := cfg.Name
		if meta.Title != "" {
			title = meta.Title + " | " + cfg.Name
		}
		description := meta.Description
		if description == "" {
			description = cfg.Description
		}

		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`)
		w.text(title)
		w.raw(`</title>`)
		if description != "" {
			w.raw(`<meta name="description" content="`)
			w.text(description)
			w.raw(`">`)
		}
		if meta.URL != "" {
			w.raw(`<link rel="canonical" href="`)
			w.text(meta.URL)
			w.raw(`">`)
		}
		w.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml">`)
		w.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml" title="`)
		w.text(cfg.Name)
		w.raw(`">`)
		if meta.JSONLD != "" {
			// json.Marshal escapes <, > and & so the payload cannot close the tag.
			w.raw(`<script type="application/ld+json">`)
			w.raw(meta.JSONLD)
			w.raw(`</script>`)
		}
		w.raw(`<style>` + styles + `</style></head><body><header><a href="/blog/"><strong>`)
		w.text(cfg.Name)
		w.raw(`</strong></a><nav><a href="/feed.xml">RSS</a></nav></header><main>`)
		w.component(ctx, body)
		w.raw(`</main></body></html>`)
		return w.err
	})
}

// bare is the chrome for pages rendered without a SiteConfig.
func bare(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		w.text(title)
		w.raw(`</title><style>` + styles + `</style></head><body><main>`)
		w.component(ctx, body)
		w.raw(`</main></body></html>`)
		return w.err
	})
}
