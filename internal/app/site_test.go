package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumo/internal/artifact"
	"kumo/internal/domain/config"
	"kumo/internal/domain/content"
	"kumo/internal/index"
	"kumo/internal/pipeline"
)

const helloPost = `---
title: Hello Kumo
date: 2024-05-01
tags: [Go, Markdown]
colabUrl: https://colab.research.google.com/x
---
## Intro

Inline $x$ math.

## Usage

https://www.youtube.com/watch?v=abc123
`

func testSite(t *testing.T) (*Site, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "articles")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "hello.md"), []byte(helloPost), 0o644))

	cfg := config.Default()
	cfg.Build.SourceDir = src
	cfg.Build.ThemeDir = filepath.Join(root, "themes")
	cfg.Build.PublicDir = filepath.Join(root, "public")
	cfg.Render.Diagram.MMDC = "/nonexistent/mmdc"

	store, err := index.Open(index.OpenOptions{Path: filepath.Join(root, "index.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := NewSite(cfg, store)
	require.NoError(t, err)
	_, err = s.Reindex()
	require.NoError(t, err)
	return s, src
}

func TestArticlePage(t *testing.T) {
	s, _ := testSite(t)
	ctx := context.Background()

	page, err := s.ArticlePage(ctx, "hello", "usage")
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, "<title>Hello Kumo | KumoCode</title>")
	assert.Contains(t, html, `<h2 id="intro">`)
	assert.Contains(t, html, `class="math math-inline"`)
	assert.Contains(t, html, "https://www.youtube.com/embed/abc123")
	assert.Contains(t, html, `class="toc-h2 active" data-target="usage"`)
	assert.Contains(t, html, "Open in Colab")
	assert.Contains(t, html, "IntersectionObserver")

	_, err = s.ArticlePage(ctx, "missing", "")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestRenderCacheFollowsContent(t *testing.T) {
	s, src := testSite(t)
	ctx := context.Background()

	a, err := s.Index.Get("hello")
	require.NoError(t, err)
	fp := s.Fingerprint(a).RenderHash

	_, err = s.RenderArticle(ctx, pipeline.NewSession("w.js"), a)
	require.NoError(t, err)

	var snap pipeline.Snapshot
	hit, err := s.Index.GetRender("hello", fp, &snap)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Len(t, snap.Headings, 2)

	// a cached render is served without touching the source
	res, err := s.RenderArticle(ctx, pipeline.NewSession("w.js"), a)
	require.NoError(t, err)
	assert.Equal(t, snap.HTML, res.HTML)

	require.NoError(t, os.WriteFile(filepath.Join(src, "hello.md"), []byte(helloPost+"\n## Changed\n"), 0o644))
	_, err = s.Reindex()
	require.NoError(t, err)

	page, err := s.ArticlePage(ctx, "hello", "")
	require.NoError(t, err)
	assert.Contains(t, string(page), `<h2 id="changed">`)

	changed, err := s.Index.Get("hello")
	require.NoError(t, err)
	assert.NotEqual(t, fp, s.Fingerprint(changed).RenderHash)
}

func TestListingPages(t *testing.T) {
	s, _ := testSite(t)
	ctx := context.Background()

	home, err := s.HomePage(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(home), "Hello Kumo")

	tag, err := s.TagPage(ctx, "go")
	require.NoError(t, err)
	assert.Contains(t, string(tag), "Hello Kumo")

	_, err = s.TagPage(ctx, "rust")
	assert.ErrorIs(t, err, index.ErrNotFound)

	tags, err := s.TagsPage(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(tags), "Markdown")

	nf, err := s.NotFoundPage(ctx, "/nope")
	require.NoError(t, err)
	assert.Contains(t, string(nf), "/nope")

	css, err := s.Stylesheet()
	require.NoError(t, err)
	assert.Contains(t, css, ".dark .chroma")
}

func TestRemoteArticles(t *testing.T) {
	s, _ := testSite(t)
	dir := t.TempDir()
	w := artifact.Writer{Dir: filepath.Join(dir, "data")}
	require.NoError(t, w.WriteIndex([]content.ArticleMeta{{Filename: "remote.md", Title: "Remote"}}))
	require.NoError(t, w.WriteArticle(artifact.Article{
		Filename: "remote.md",
		Title:    "Remote",
		HTML:     `<h2 id="part">Part</h2><p>$$ y $$</p>`,
	}))
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()
	s.Remote = artifact.NewClient(srv.URL)

	ctx := context.Background()
	page, err := s.ArticlePage(ctx, "remote", "part")
	require.NoError(t, err)
	assert.Contains(t, string(page), `class="math math-display"`)
	assert.Contains(t, string(page), `data-target="part"`)

	home, err := s.HomePage(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(home), "Remote")

	_, err = s.ArticlePage(ctx, "gone", "")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}
