package content

import (
	"bytes"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"nexuslab/cache"
)

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

// Renderer converts post markdown to HTML, caching the result on disk keyed
// by slug. Drafts bypass the cache so edits show up immediately.
type Renderer struct {
	cache  *cache.Store
	maxAge time.Duration
}

func NewRenderer(store *cache.Store, maxAge time.Duration) *Renderer {
	return &Renderer{cache: store, maxAge: maxAge}
}

// RenderPost returns the post's HTML, serving from cache when fresh.
func (r *Renderer) RenderPost(post *PostView) (string, error) {
	if post.Published {
		if html, ok := r.cache.Read(post.Slug, r.maxAge); ok {
			return html, nil
		}
	}

	html, err := RenderMarkdown(post.Content)
	if err != nil {
		return "", err
	}

	if post.Published {
		if err := r.cache.Write(post.Slug, html); err != nil {
			return "", err
		}
	}
	return html, nil
}

// Invalidate drops the cached HTML for a slug after an edit or delete.
func (r *Renderer) Invalidate(slug string) {
	_ = r.cache.Clear(slug)
}

// RenderMarkdown converts a markdown string to HTML.
func RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
