package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, src); err != nil {
		t.Fatalf("RenderMarkdown(%q): %v", src, err)
	}
	return buf.String()
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"use `go test`", "<code>go test</code>"},
		{"~~gone~~", "<del>gone</del>"},
		{"[site](https://example.com)", `<a href="https://example.com">site</a>`},
	}
	for _, tt := range tests {
		got := render(t, tt.input)
		if !strings.Contains(got, tt.expected) {
			t.Errorf("RenderMarkdown(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderBlocks(t *testing.T) {
	src := "# Title\n\nFirst paragraph.\n\n- one\n- two\n\n1. first\n2. second\n\n> quoted\n\n```go\nfmt.Println(\"hi\")\n```\n"
	got := render(t, src)

	for _, want := range []string{
		`<h1 id="title">Title</h1>`,
		"<p>First paragraph.</p>",
		"<ul>\n<li>one</li>",
		"<ol>\n<li>first</li>",
		"<blockquote>",
		`<code class="language-go">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestRenderTable(t *testing.T) {
	got := render(t, "| a | b |\n|---|---|\n| 1 | 2 |\n")
	if !strings.Contains(got, "<table>") || !strings.Contains(got, "<th>a</th>") || !strings.Contains(got, "<td>2</td>") {
		t.Errorf("table not rendered: %s", got)
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	got := render(t, "<script>alert(1)</script>\n\nhello <b>there</b>")
	if strings.Contains(got, "<script>") || strings.Contains(got, "<b>") {
		t.Errorf("raw HTML leaked into output: %s", got)
	}
}

func TestRenderEscapesText(t *testing.T) {
	got := render(t, "1 < 2 & 3 > 2")
	if !strings.Contains(got, "1 &lt; 2 &amp; 3 &gt; 2") {
		t.Errorf("text not escaped: %s", got)
	}
}

func TestRenderImageRewrite(t *testing.T) {
	got := render(t, "![diagram](diagram.png)")
	if !strings.Contains(got, `src="/images/diagram.png"`) {
		t.Errorf("image src not rewritten: %s", got)
	}
	if !strings.Contains(got, `loading="lazy"`) {
		t.Errorf("image missing lazy loading: %s", got)
	}
}

func TestImageDestination(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cat", "/images/cat.png"},
		{"cat.png", "/images/cat.png"},
		{"./cat.png", "/images/cat.png"},
		{"__IMAGES__/cat.png", "/images/cat.png"},
		{"/static/cat.png", "/static/cat.png"},
		{"https://example.com/cat.png", "https://example.com/cat.png"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"", ""},
	}
	for _, tt := range tests {
		got := string(ImageDestination([]byte(tt.input)))
		if got != tt.expected {
			t.Errorf("ImageDestination(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("hello *world*").Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<p>hello <em>world</em></p>") {
		t.Errorf("component output = %q", buf.String())
	}
}
