package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"

	"kumo/internal/domain/content"
	"kumo/internal/theme"
)

// Writer lays artifacts out under Dir, normally <public>/data.
type Writer struct {
	Dir string
}

// WriteIndex writes articles.json, newest first.
func (w Writer) WriteIndex(metas []content.ArticleMeta) error {
	entries := make([]ArticleEntry, 0, len(metas))
	for _, m := range metas {
		entries = append(entries, EntryFor(m))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModifiedDate.After(entries[j].ModifiedDate)
	})
	return w.writeJSON(filepath.Join(w.Dir, "articles.json"), entries)
}

func (w Writer) WriteArticle(a Article) error {
	name := Name(a.Filename)
	if name == "" {
		return errors.Newf("artifact: article without file name")
	}
	return w.writeJSON(filepath.Join(w.Dir, "articles", name+".json"), a)
}

// WriteThemes writes themes.json and one file per theme.
func (w Writer) WriteThemes(themes []theme.Theme, def string) error {
	idx := ThemeIndex{Themes: make([]theme.Summary, 0, len(themes)), Default: def}
	for _, t := range themes {
		idx.Themes = append(idx.Themes, t.Summary())
		if err := w.writeJSON(filepath.Join(w.Dir, "themes", t.ID+".json"), t); err != nil {
			return err
		}
	}
	return w.writeJSON(filepath.Join(w.Dir, "themes.json"), idx)
}

func (w Writer) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
