package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumo/internal/domain/content"
)

func TestRenderAssignsUniqueHeadingIDs(t *testing.T) {
	src := "# Title\n\n## Intro\n\ntext\n\n## Intro\n\n### 詳細\n\n## !!!\n"
	res, err := NewMarkdownRenderer().Render([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, []content.Heading{
		{Level: 1, ID: "title", Text: "Title"},
		{Level: 2, ID: "intro", Text: "Intro"},
		{Level: 2, ID: "intro-1", Text: "Intro"},
		{Level: 3, ID: "詳細", Text: "詳細"},
		{Level: 2, ID: "section", Text: "!!!"},
	}, res.Headings)

	html := string(res.HTML)
	assert.Contains(t, html, `<h2 id="intro">Intro</h2>`)
	assert.Contains(t, html, `<h2 id="intro-1">Intro</h2>`)
	assert.Contains(t, html, `<h3 id="詳細">詳細</h3>`)
}

func TestRenderRegistryIsPerCall(t *testing.T) {
	r := NewMarkdownRenderer()
	src := []byte("## Same\n\n## Same\n")
	first, err := r.Render(src)
	require.NoError(t, err)
	second, err := r.Render(src)
	require.NoError(t, err)
	assert.Equal(t, first.Headings, second.Headings)
	assert.Equal(t, "same-1", second.Headings[1].ID)
}

func TestRenderHeadingTextIncludesInlineMarkup(t *testing.T) {
	res, err := NewMarkdownRenderer().Render([]byte("## Use `go test` *now*\n"))
	require.NoError(t, err)
	require.Len(t, res.Headings, 1)
	assert.Equal(t, "Use go test now", res.Headings[0].Text)
	assert.Equal(t, "use-go-test-now", res.Headings[0].ID)
}

func TestRenderKeepsLanguageClassAndHardBreaks(t *testing.T) {
	src := "line one\nline two\n\n```mermaid\ngraph TD\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	res, err := NewMarkdownRenderer().Render([]byte(src))
	require.NoError(t, err)

	html := string(res.HTML)
	assert.Contains(t, html, "line one<br")
	assert.Contains(t, html, `<code class="language-mermaid">`)
	assert.Contains(t, html, "<table>")
}

func TestRenderSanitizes(t *testing.T) {
	src := "<script>alert(1)</script>\n\n<p onclick=\"x()\">hi</p>\n"
	res, err := NewMarkdownRenderer().Render([]byte(src))
	require.NoError(t, err)

	html := string(res.HTML)
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "onclick")
	assert.Contains(t, html, "hi")
}

func TestRenderOutline(t *testing.T) {
	src := "# Top\n\n## A\n\n### A.1\n\n#### deep\n\n## B\n"
	res, err := NewMarkdownRenderer().Render([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, res.Outline)

	items := res.Outline.Items
	require.Len(t, items, 2)
	assert.Equal(t, "a", string(items[0].ID))
	require.Len(t, items[0].Items, 1)
	assert.Equal(t, "a1", string(items[0].Items[0].ID))
	assert.Empty(t, items[0].Items[0].Items)
	assert.Equal(t, "b", string(items[1].ID))
}

func TestRenderIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"```\nunterminated fence",
		"[broken](link",
		"| a |\n|",
		strings.Repeat(">", 500) + " deep quote",
		"$$\n\\frac{1}{2\n$$",
		"\x00\xff\xfe",
	}
	r := NewMarkdownRenderer()
	for _, in := range inputs {
		_, err := r.Render([]byte(in))
		assert.NoError(t, err, "%q", in)
	}
}

func TestRenderKeepsSymbolHeadingIDs(t *testing.T) {
	src := "## 🚀 はじめに\n\n## 設計・実装\n\n## A → B\n\n## § 1 ¶\n"
	res, err := NewMarkdownRenderer().Render([]byte(src))
	require.NoError(t, err)
	require.Len(t, res.Headings, 4)
	assert.Equal(t, "設計・実装", res.Headings[1].ID)

	html := string(res.HTML)
	for _, h := range res.Headings {
		assert.Contains(t, html, `id="`+h.ID+`"`, h.Text)
	}
	assert.Equal(t, len(res.Headings), strings.Count(html, "<h2 id="))
}

func TestSanitizeRefusesBrokenHeadingIDs(t *testing.T) {
	r := NewMarkdownRenderer()
	assert.Contains(t, string(r.Sanitize([]byte(`<h2 id="設計・実装">x</h2>`))), `id="設計・実装"`)
	assert.NotContains(t, string(r.Sanitize([]byte(`<h2 id="a b">x</h2>`))), "id=")
}
