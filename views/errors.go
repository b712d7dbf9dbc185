package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func NotFound() templ.Component {
	return bare("Not found", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>404</h1><p>That page does not exist.</p><p><a href="/blog/">Back to the blog</a></p>`)
		return err
	}))
}

func ServerError() templ.Component {
	return bare("Error", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1>500</h1><p>Something went wrong.</p>`)
		return err
	}))
}
