// Package markdown renders post bodies from Markdown to HTML, either into a
// buffer or as a templ component.
package markdown

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
		parser.WithASTTransformers(util.Prioritized(imageRewriter{}, 100)),
	),
	// html.WithUnsafe is deliberately absent: raw HTML in posts is omitted.
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := RenderMarkdown(&buf, content); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderMarkdown writes the HTML representation of src to buf.
func RenderMarkdown(buf *bytes.Buffer, src string) error {
	return md.Convert([]byte(src), buf)
}

// imageRewriter points bare image references at the image route, so a post
// can embed ![diagram](diagram.png) and have it served from
// /images/diagram.png. Absolute URLs and paths are left alone.
type imageRewriter struct{}

func (imageRewriter) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		img.Destination = ImageDestination(img.Destination)
		img.SetAttributeString("loading", []byte("lazy"))
		return ast.WalkContinue, nil
	})
}

// ImageDestination maps an image reference from a post to the URL it is
// served at.
func ImageDestination(dest []byte) []byte {
	s := string(dest)
	if s == "" || strings.Contains(s, "://") || strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "#") {
		return dest
	}
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimPrefix(s, "__IMAGES__/")
	if path.Ext(s) == "" {
		s += ".png"
	}
	return []byte("/images/" + s)
}
