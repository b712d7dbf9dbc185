package vaultsync

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/vaultsync/markdown"
)

type rssFeed struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	AtomNS    string     `xml:"xmlns:atom,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Self          atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description"`
	Content     *cdataText `xml:"content:encoded,omitempty"`
	PubDate     string     `xml:"pubDate,omitempty"`
	GUID        rssGUID    `xml:"guid"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type cdataText struct {
	Value string `xml:",cdata"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// modifiedAt is the most recent of a post's release and edit times.
func modifiedAt(p BlogPost) *time.Time {
	switch {
	case p.LastUpdated != nil && (p.ReleaseDate == nil || p.LastUpdated.After(*p.ReleaseDate)):
		return p.LastUpdated
	default:
		return p.ReleaseDate
	}
}

// newest returns the latest modifiedAt across posts, or nil.
func newest(posts []BlogPost) *time.Time {
	var latest *time.Time
	for _, p := range posts {
		if m := modifiedAt(p); m != nil && (latest == nil || m.After(*latest)) {
			latest = m
		}
	}
	return latest
}

// buildFeed assembles the RSS 2.0 document for released posts. Post bodies
// are rendered to HTML and carried in content:encoded; a body that fails to
// render is left out of its item rather than failing the whole feed.
func (a *App) buildFeed(posts []BlogPost) rssFeed {
	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := BuildURL(base, "blog", p.Name)
		item := rssItem{
			Title:       p.Name,
			Link:        postURL,
			Description: p.Description,
			GUID:        rssGUID{Value: postURL, IsPermaLink: true},
		}
		if p.ReleaseDate != nil {
			item.PubDate = p.ReleaseDate.UTC().Format(time.RFC1123Z)
		}
		var buf bytes.Buffer
		if err := markdown.RenderMarkdown(&buf, p.Text); err != nil {
			a.logger.Warn("feed: render post body", zap.String("post", p.Name), zap.Error(err))
		} else {
			item.Content = &cdataText{Value: buf.String()}
		}
		items = append(items, item)
	}

	ch := rssChannel{
		Title:       a.Config.Name,
		Link:        BuildURL(base, "blog"),
		Description: a.Config.Description,
		Self:        atomLink{Href: base + "/feed.xml", Rel: "self", Type: "application/rss+xml"},
		Items:       items,
	}
	if t := newest(posts); t != nil {
		ch.LastBuildDate = t.UTC().Format(time.RFC1123Z)
	}
	return rssFeed{
		Version:   "2.0",
		ContentNS: "http://purl.org/rss/1.0/modules/content/",
		AtomNS:    "http://www.w3.org/2005/Atom",
		Channel:   ch,
	}
}

// buildSitemap lists the index and every released post.
func (a *App) buildSitemap(posts []BlogPost) sitemapURLSet {
	base := a.Config.URL
	index := sitemapURL{Loc: BuildURL(base, "blog")}
	if t := newest(posts); t != nil {
		index.LastMod = t.UTC().Format(time.DateOnly)
	}
	urls := append(make([]sitemapURL, 0, len(posts)+1), index)
	for _, p := range posts {
		u := sitemapURL{Loc: BuildURL(base, "blog", p.Name)}
		if m := modifiedAt(p); m != nil {
			u.LastMod = m.UTC().Format(time.DateOnly)
		}
		urls = append(urls, u)
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func writeXML(c echo.Context, contentType string, v any) error {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	body := append([]byte(xml.Header), out...)
	return c.Blob(http.StatusOK, contentType, body)
}
