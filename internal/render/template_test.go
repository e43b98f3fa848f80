package render

import (
	"context"
	"html/template"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumo/internal/domain/config"
	"kumo/internal/domain/content"
)

func chrome() Chrome {
	return Chrome{Site: config.Default().Site, BasePath: "/blog"}
}

func TestRenderArticlePage(t *testing.T) {
	r, err := NewTemplateRenderer("", "")
	require.NoError(t, err)

	meta := content.ArticleMeta{
		Title: "Hello",
		Slug:  "hello",
		Date:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Tags:  []string{"go"},
		Links: content.Links{Repo: "https://github.com/example/hello"},
	}
	meta.Normalize()

	out, err := r.RenderArticle(context.Background(), ArticlePage{
		Chrome: chrome(),
		Meta:   meta,
		HTML:   template.HTML(`<h2 id="a">A</h2>`),
		TOC:    template.HTML(`<nav class="toc"></nav>`),
	})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `<h2 id="a">A</h2>`)
	assert.Contains(t, html, `<nav class="toc"></nav>`)
	assert.Contains(t, html, "2024-03-01")
	assert.Contains(t, html, `href="/blog/tags/go/"`)
	assert.Contains(t, html, "https://github.com/example/hello")
	assert.Contains(t, html, "linear-gradient(")
	assert.NotContains(t, html, "ZgotmplZ")
}

func TestRenderErrorPage(t *testing.T) {
	r, err := NewTemplateRenderer("", "")
	require.NoError(t, err)

	out, err := r.RenderError(context.Background(), ErrorPage{Chrome: chrome(), Message: "article hello is unavailable"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Failed to load")
	assert.Contains(t, string(out), "article hello is unavailable")
}

func TestThemeTemplatesOverrideBuiltins(t *testing.T) {
	dir := t.TempDir()
	tplDir := filepath.Join(dir, "ocean", "templates")
	require.NoError(t, os.MkdirAll(tplDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tplDir, "404.tmpl"), []byte(`custom {{.Path}}`), 0o644))
	require.NoError(t, CheckThemeTemplates(tplDir))

	r, err := NewTemplateRenderer(dir, "ocean")
	require.NoError(t, err)

	out, err := r.RenderNotFound(context.Background(), NotFoundPage{Chrome: chrome(), Path: "/nope"})
	require.NoError(t, err)
	assert.Equal(t, "custom /nope", string(out))
}

func TestCheckThemeTemplatesRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.tmpl"), []byte(`{{if}`), 0o644))
	assert.Error(t, CheckThemeTemplates(dir))
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "/articles/x/", ArticleURL("", "x"))
	assert.Equal(t, "/blog/tags/go/", TagURL("/blog/", "go"))
}
