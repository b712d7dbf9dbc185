package vaultsync

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// storeTimeLayout is how timestamps are kept in SQLite (UTC).
	storeTimeLayout = "2006-01-02 15:04:05"
	// displayTimeLayout is how timestamps leave the service.
	displayTimeLayout = "2006-01-02 15:04"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PathEscape escapes a string for use in a URL path.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// ContentHash is the blake3 digest of the given parts, hex encoded.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func ContentHash(parts ...[]byte) string {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PostHash hashes the vault-owned fields of a post.
func PostHash(description, text string) string {
	return ContentHash([]byte(description), []byte(text))
}

func formatDisplayTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(displayTimeLayout)
	return &s
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post BlogPost, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.Name)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Name,
		"description": post.Description,
		"url":         postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.ReleaseDate != nil {
		data["datePublished"] = post.ReleaseDate.UTC().Format(time.RFC3339)
	}
	if post.LastUpdated != nil {
		data["dateModified"] = post.LastUpdated.UTC().Format(time.RFC3339)
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
