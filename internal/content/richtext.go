package content

import (
	"bytes"
	"html"
	"html/template"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	sanitizer = bluemonday.UGCPolicy()

	redundantWhitespace = regexp.MustCompile(`\s+`)
)

// RenderMarkdown converts CMS rich text to sanitized HTML. The CMS may hand
// out markdown, raw HTML or a mix; goldmark passes the HTML through and
// bluemonday strips anything unsafe afterwards.
func RenderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(sanitizer.Sanitize(template.HTMLEscapeString(src)))
	}

	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec
}

// Excerpt returns at most limit runes of plain text from rich text,
// cut at a word boundary and suffixed with an ellipsis when shortened.
func Excerpt(src string, limit int) string {
	text := PlainText(src)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}

	return strings.TrimRight(cut, " ,.;:") + "…"
}

// PlainText renders rich text to HTML and extracts its readable text.
func PlainText(src string) string {
	rendered := string(RenderMarkdown(src))
	if rendered == "" {
		return ""
	}

	doc, err := readability.FromReader(strings.NewReader("<html><body><article>"+rendered+"</article></body></html>"), nil)
	if err != nil || strings.TrimSpace(doc.TextContent) == "" {
		return cleanupText(html.UnescapeString(bluemonday.StrictPolicy().Sanitize(rendered)))
	}

	return cleanupText(doc.TextContent)
}

func cleanupText(text string) string {
	return strings.TrimSpace(redundantWhitespace.ReplaceAllString(text, " "))
}
