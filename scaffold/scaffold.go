// Package scaffold lays out a starter vault for the vaultsync CLI.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/go-git/go-billy/v5"
)

// Templates contains all scaffold template files.
// Files with a .tmpl suffix use Go text/template syntax; others are copied.
//
//go:embed all:templates
var Templates embed.FS

const root = "templates"

// Data holds the template variables passed to every scaffold template.
type Data struct {
	SiteName  string
	VaultPath string
}

// Generate writes the starter vault into dst and returns the created paths.
// It refuses to overwrite files that already exist.
func Generate(dst billy.Filesystem, data Data) ([]string, error) {
	var created []string
	err := fs.WalkDir(Templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}
		out := strings.TrimSuffix(rel, ".tmpl")
		// dotenv is stored without the dot so embed keeps it visible.
		if path.Base(out) == "dotenv" {
			out = path.Join(path.Dir(out), ".env")
		}

		if d.IsDir() {
			return dst.MkdirAll(out, 0o755)
		}
		if _, err := dst.Stat(out); err == nil {
			return fmt.Errorf("scaffold: %s already exists", out)
		}

		content, err := Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("scaffold: read %s: %w", p, err)
		}
		f, err := dst.Create(out)
		if err != nil {
			return fmt.Errorf("scaffold: create %s: %w", out, err)
		}
		defer f.Close()

		if strings.HasSuffix(p, ".tmpl") {
			tmpl, err := template.New(path.Base(p)).Parse(string(content))
			if err != nil {
				return fmt.Errorf("scaffold: parse template %s: %w", p, err)
			}
			if err := tmpl.Execute(f, data); err != nil {
				return fmt.Errorf("scaffold: execute template %s: %w", p, err)
			}
		} else if _, err := f.Write(content); err != nil {
			return err
		}
		created = append(created, out)
		return nil
	})
	if err != nil {
		return created, err
	}
	return created, nil
}

// TitleFromDir converts a hyphenated or lowercase name to a title-case string.
// e.g. "my-notes" -> "My Notes", "notes" -> "Notes"
func TitleFromDir(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
