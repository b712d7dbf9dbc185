package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/vaultsync"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

var testCfg = vaultsync.SiteConfig{
	Name:        "Notes",
	URL:         "https://notes.example.com",
	Description: "Field notes",
}

func TestIndexListsPosts(t *testing.T) {
	released := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	posts := []vaultsync.BlogPost{
		{Name: "first post", Description: "the first", Released: true, ReleaseDate: &released},
		{Name: "<b>sneaky</b>", Description: "escaped", Released: true},
	}

	html := renderString(t, Index(posts, testCfg))

	assert.Contains(t, html, `<title>Notes</title>`)
	assert.Contains(t, html, `href="/blog/first%20post/"`)
	assert.Contains(t, html, "March 9, 2024")
	assert.Contains(t, html, "the first")
	assert.Contains(t, html, "&lt;b&gt;sneaky&lt;/b&gt;")
	assert.NotContains(t, html, "<b>sneaky</b>")
	assert.Contains(t, html, `<link rel="canonical" href="https://notes.example.com/blog/">`)
}

func TestIndexEmpty(t *testing.T) {
	html := renderString(t, Index(nil, testCfg))
	assert.Contains(t, html, "Nothing published yet.")
}

func TestPostRendersMarkdownAndJSONLD(t *testing.T) {
	released := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	updated := released.Add(48 * time.Hour)
	post := vaultsync.BlogPost{
		Name:        "hello",
		Description: "greeting",
		Text:        "# Hi\n\nSome **bold** text.",
		Released:    true,
		ReleaseDate: &released,
		LastUpdated: &updated,
	}

	html := renderString(t, Post(post, testCfg))

	assert.Contains(t, html, "<title>hello | Notes</title>")
	assert.Contains(t, html, `<meta name="description" content="greeting">`)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, `<script type="application/ld+json">`)
	assert.Contains(t, html, `"@type":"BlogPosting"`)
	assert.Contains(t, html, "updated March 11, 2024")
}

func TestAdminLogin(t *testing.T) {
	html := renderString(t, AdminLogin(false, "tok123"))
	assert.Contains(t, html, `name="_csrf" value="tok123"`)
	assert.NotContains(t, html, "Wrong password")

	html = renderString(t, AdminLogin(true, "tok123"))
	assert.Contains(t, html, "Wrong password")
}

func TestAdminDashboard(t *testing.T) {
	data := vaultsync.DashboardData{
		Posts: []vaultsync.BlogPost{
			{Name: "draft", Description: "not yet"},
			{Name: "live", Released: true},
		},
		Images: []vaultsync.Image{
			{Name: "cat", Size: 2048, Released: false},
		},
		LastScan:  time.Now().Add(-time.Minute),
		Message:   "Sync failed: missing text.md",
		CsrfToken: "tok",
	}

	html := renderString(t, AdminDashboard(data))

	assert.Contains(t, html, `action="/admin/posts/draft/release/"`)
	assert.Contains(t, html, `action="/admin/posts/live/unrelease/"`)
	assert.Contains(t, html, `action="/admin/posts/draft/delete/"`)
	assert.Contains(t, html, `action="/admin/images/cat/release/"`)
	assert.Contains(t, html, "2.0 kB")
	assert.Contains(t, html, `<p class="error">Sync failed: missing text.md</p>`)
	assert.Contains(t, html, "Last scan 1 minute ago.")
}

func TestErrorPages(t *testing.T) {
	assert.Contains(t, renderString(t, NotFound()), "404")
	assert.Contains(t, renderString(t, ServerError()), "500")
}

func TestDefaultIsComplete(t *testing.T) {
	v := Default()
	assert.NotNil(t, v.Index)
	assert.NotNil(t, v.Post)
	assert.NotNil(t, v.AdminLogin)
	assert.NotNil(t, v.AdminDashboard)
	assert.NotNil(t, v.NotFound)
	assert.NotNil(t, v.ServerError)
}
