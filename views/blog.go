package views

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/vaultsync"
	"github.com/eringen/vaultsync/markdown"
)

// FormatDate renders a post date for humans, or "" when unset.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("January 2, 2006")
}

// Index lists released posts, newest first as the store returns them.
func Index(posts []vaultsync.BlogPost, cfg vaultsync.SiteConfig) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>`)
		w.text(cfg.Name)
		w.raw(`</h1>`)
		if cfg.Description != "" {
			w.raw(`<p class="meta">`)
			w.text(cfg.Description)
			w.raw(`</p>`)
		}
		if len(posts) == 0 {
			w.raw(`<p>Nothing published yet.</p>`)
			return w.err
		}
		w.raw(`<ul class="post-list">`)
		for _, p := range posts {
			w.raw(`<li><a href="`)
			w.text(p.Link())
			w.raw(`">`)
			w.text(p.Name)
			w.raw(`</a>`)
			if d := FormatDate(p.ReleaseDate); d != "" {
				w.raw(` <span class="meta">`)
				w.text(d)
				w.raw(`</span>`)
			}
			if p.Description != "" {
				w.raw(`<br>`)
				w.text(p.Description)
			}
			w.raw(`</li>`)
		}
		w.raw(`</ul>`)
		return w.err
	})
	return layout(cfg, PageMeta{URL: vaultsync.BuildURL(cfg.URL, "blog")}, body)
}

// Post renders a single post with its Markdown body.
func Post(post vaultsync.BlogPost, cfg vaultsync.SiteConfig) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<article><h1>`)
		w.text(post.Name)
		w.raw(`</h1><p class="meta">`)
		if d := FormatDate(post.ReleaseDate); d != "" {
			w.raw(`<time>`)
			w.text(d)
			w.raw(`</time>`)
		}
		if post.LastUpdated != nil && (post.ReleaseDate == nil || post.LastUpdated.After(*post.ReleaseDate)) {
			w.raw(` · updated `)
			w.text(FormatDate(post.LastUpdated))
		}
		w.raw(`</p>`)
		w.component(ctx, markdown.Markdown(post.Text))
		w.raw(`</article><p><a href="/blog/">All posts</a></p>`)
		return w.err
	})
	meta := PageMeta{
		Title:       post.Name,
		Description: post.Description,
		URL:         vaultsync.BuildURL(cfg.URL, "blog", post.Name),
		JSONLD:      vaultsync.BlogPostingJsonLD(post, cfg),
	}
	return layout(cfg, meta, body)
}
