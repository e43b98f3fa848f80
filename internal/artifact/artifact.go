// Package artifact writes and reads the JSON data files a built site
// publishes under data/.
package artifact

import (
	"path"
	"strings"
	"time"

	"kumo/internal/domain/content"
	"kumo/internal/theme"
)

// ArticleEntry is one row of data/articles.json.
type ArticleEntry struct {
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	ModifiedDate time.Time `json:"modifiedDate"`
}

// Article is data/articles/<slug>.json. HTML already carries heading ids.
type Article struct {
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	HTML         string    `json:"html"`
	ModifiedDate time.Time `json:"modifiedDate"`
}

type ThemeIndex struct {
	Themes  []theme.Summary `json:"themes"`
	Default string          `json:"default"`
}

func EntryFor(m content.ArticleMeta) ArticleEntry {
	return ArticleEntry{Filename: m.Filename, Title: m.Title, ModifiedDate: m.Modified}
}

// Name is the artifact file stem for an article file name.
func Name(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}
