package util

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	hl "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// -----------------------------------------------------------------------------
// tiny cache so each document is rendered once per process
// -----------------------------------------------------------------------------
var cache sync.Map // map[string]string

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		hl.NewHighlighting(hl.WithStyle("github")), // inline colours
	),
)

// MarkdownToHTML renders GitHub-flavoured Markdown with highlighted code
// fences. Results are memoised under key; an empty key disables the cache.
func MarkdownToHTML(key string, src []byte) (string, error) {
	if key != "" {
		if v, ok := cache.Load(key); ok {
			return v.(string), nil
		}
	}

	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	html := buf.String()
	if key != "" {
		cache.Store(key, html)
	}
	return html, nil
}

// CodeBlock wraps src in a fenced block so it is highlighted as lang.
func CodeBlock(lang string, src []byte) []byte {
	var b bytes.Buffer
	b.WriteString("```" + lang + "\n")
	b.Write(bytes.TrimRight(src, "\n"))
	b.WriteString("\n```\n")
	return b.Bytes()
}

// ForgetHTML drops a memoised rendering.
func ForgetHTML(key string) { cache.Delete(key) }
