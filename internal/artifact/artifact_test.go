package artifact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumo/internal/domain/content"
	"kumo/internal/theme"
)

func TestWriterLayout(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}

	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.AddDate(1, 0, 0)
	require.NoError(t, w.WriteIndex([]content.ArticleMeta{
		{Filename: "old.md", Title: "Old", Modified: old},
		{Filename: "new.md", Title: "New", Modified: recent},
	}))
	require.NoError(t, w.WriteArticle(Article{Filename: "new.md", Title: "New", Content: "# A", HTML: `<h1 id="a">A</h1>`}))

	def := theme.Default()
	require.NoError(t, w.WriteThemes([]theme.Theme{def}, def.ID))

	var entries []ArticleEntry
	readJSON(t, filepath.Join(dir, "articles.json"), &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "new.md", entries[0].Filename)

	var a Article
	readJSON(t, filepath.Join(dir, "articles", "new.json"), &a)
	assert.Equal(t, `<h1 id="a">A</h1>`, a.HTML)

	var idx ThemeIndex
	readJSON(t, filepath.Join(dir, "themes.json"), &idx)
	assert.Equal(t, "default", idx.Default)
	require.Len(t, idx.Themes, 1)
	assert.FileExists(t, filepath.Join(dir, "themes", "default.json"))

	assert.Error(t, w.WriteArticle(Article{}))
}

func readJSON(t *testing.T, path string, dst any) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

func TestClient(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: filepath.Join(dir, "data")}
	require.NoError(t, w.WriteIndex([]content.ArticleMeta{{Filename: "post.md", Title: "Post"}}))
	require.NoError(t, w.WriteArticle(Article{Filename: "post.md", Title: "Post", HTML: "<p>hi</p>"}))

	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	entries, err := c.Articles(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	a, err := c.Article(ctx, Name(entries[0].Filename))
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", a.HTML)

	_, err = c.Article(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Themes(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientRejectsBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/articles.json" {
			_, _ = w.Write([]byte("{not json"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Articles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")

	_, err = c.Themes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
