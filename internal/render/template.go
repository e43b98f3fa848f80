package render

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"kumo/internal/domain/content"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

var requiredTemplates = []string{
	"home.tmpl",
	"article.tmpl",
	"list.tmpl",
	"tags.tmpl",
	"404.tmpl",
	"error.tmpl",
}

type TemplateRenderer struct {
	tpl *template.Template
}

// NewTemplateRenderer parses the built-in templates, then lets
// <themeDir>/<themeName>/templates/*.tmpl override any of them.
func NewTemplateRenderer(themeDir, themeName string) (*TemplateRenderer, error) {
	tpl, err := template.New("").Funcs(templateFuncs()).ParseFS(builtinTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "parse builtin templates")
	}
	if themeDir != "" && themeName != "" {
		pattern := filepath.Join(themeDir, themeName, "templates", "*.tmpl")
		matches, _ := filepath.Glob(pattern)
		if len(matches) > 0 {
			if tpl, err = tpl.ParseFiles(matches...); err != nil {
				return nil, errors.Wrapf(err, "parse theme templates %s", pattern)
			}
		}
	}
	for _, name := range requiredTemplates {
		if tpl.Lookup(name) == nil {
			return nil, errors.Newf("missing template: %s", name)
		}
	}
	return &TemplateRenderer{tpl: tpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t interface{}, layout string) string {
			switch v := t.(type) {
			case nil:
				return ""
			case string:
				return v
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Format(layout)
			case interface{ Format(string) string }:
				return v.Format(layout)
			default:
				return ""
			}
		},
		"nowYear": func() int {
			return time.Now().Year()
		},
		"articleURL": func(base string, m content.ArticleMeta) string {
			return ArticleURL(base, m.Slug)
		},
		"tagURL": TagURL,
		// card gradients come from the palette or trusted frontmatter
		"css":  func(s string) template.CSS { return template.CSS(s) },
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
		"sub":  func(a, b int) int { return a - b },
	}
}

func ArticleURL(base, slug string) string {
	return strings.TrimSuffix(base, "/") + "/articles/" + slug + "/"
}

func TagURL(base, tag string) string {
	return strings.TrimSuffix(base, "/") + "/tags/" + tag + "/"
}

func (r *TemplateRenderer) RenderHome(ctx context.Context, page HomePage) ([]byte, error) {
	return r.exec("home.tmpl", page)
}

func (r *TemplateRenderer) RenderArticle(ctx context.Context, page ArticlePage) ([]byte, error) {
	return r.exec("article.tmpl", page)
}

func (r *TemplateRenderer) RenderList(ctx context.Context, page ListPage) ([]byte, error) {
	return r.exec("list.tmpl", page)
}

func (r *TemplateRenderer) RenderTags(ctx context.Context, page TagsPage) ([]byte, error) {
	return r.exec("tags.tmpl", page)
}

func (r *TemplateRenderer) RenderNotFound(ctx context.Context, page NotFoundPage) ([]byte, error) {
	return r.exec("404.tmpl", page)
}

func (r *TemplateRenderer) RenderError(ctx context.Context, page ErrorPage) ([]byte, error) {
	return r.exec("error.tmpl", page)
}

func (r *TemplateRenderer) exec(name string, data interface{}) ([]byte, error) {
	t := r.tpl.Lookup(name)
	if t == nil {
		return nil, errors.Newf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "execute %s", name)
	}
	return buf.Bytes(), nil
}

// CheckThemeTemplates reports theme override files that would not parse.
func CheckThemeTemplates(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmpl"))
	if err != nil {
		return errors.Wrap(err, "glob templates")
	}
	for _, path := range matches {
		b, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read template %s", path)
		}
		if _, err := template.New(filepath.Base(path)).Funcs(templateFuncs()).Parse(string(b)); err != nil {
			return errors.Wrapf(err, "parse template %s", path)
		}
	}
	return nil
}
