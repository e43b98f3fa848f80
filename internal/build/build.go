package build

import (
	"context"
	"html/template"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"kumo/internal/app"
	"kumo/internal/artifact"
	"kumo/internal/domain/config"
	"kumo/internal/domain/content"
	"kumo/internal/domain/site"
	"kumo/internal/index"
	"kumo/internal/ingest"
	"kumo/internal/pipeline"
)

type Builder struct {
	Cfg       config.Config
	IndexPath string
}

type Result struct {
	Articles int
	Routes   []site.Route
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	st, err := index.Open(index.OpenOptions{Path: b.IndexPath})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open index")
	}
	defer st.Close()

	s, err := app.NewSite(b.Cfg, st)
	if err != nil {
		return nil, err
	}
	// a static build always renders from local sources
	s.Remote = nil

	arts, err := s.Reindex()
	if err != nil {
		return nil, err
	}

	outDir := b.Cfg.Build.PublicDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir public")
	}

	routes, err := b.buildAll(ctx, s, outDir, arts)
	if err != nil {
		return nil, err
	}
	return &Result{Articles: len(arts), Routes: routes}, nil
}

func (b *Builder) buildAll(ctx context.Context, s *app.Site, outDir string, arts []content.Article) ([]site.Route, error) {
	rb := &app.RouteBuilder{Index: s.Index}

	metas := make([]content.ArticleMeta, 0, len(arts))
	bySlug := make(map[string]content.Article, len(arts))
	for _, a := range arts {
		metas = append(metas, a.Meta)
		bySlug[a.Meta.Slug] = a
	}

	tagRoutes, err := rb.BuildTagRoutes()
	if err != nil {
		return nil, errors.Wrap(err, "tag routes")
	}
	routes := rb.BuildSiteRoutes()
	routes = append(routes, rb.BuildArticleRoutes(metas)...)
	routes = append(routes, tagRoutes...)

	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := b.buildRoute(ctx, s, r)
		if err != nil {
			return nil, errors.Wrapf(err, "build %s", r)
		}
		if err := writeFile(outDir, r.OutPath, data); err != nil {
			return nil, err
		}
	}

	if err := b.buildArtifacts(s, filepath.Join(outDir, "data"), metas, bySlug); err != nil {
		return nil, errors.Wrap(err, "build artifacts")
	}
	routes = append(routes, site.Route{Kind: site.RouteData, OutPath: "data"})

	if err := b.copyStaticAssets(outDir); err != nil {
		return nil, errors.Wrap(err, "copy static assets")
	}
	return routes, nil
}

func (b *Builder) buildRoute(ctx context.Context, s *app.Site, r site.Route) ([]byte, error) {
	switch r.Kind {
	case site.RouteIndex:
		return s.HomePage(ctx)
	case site.RouteArticle:
		return s.ArticlePage(ctx, r.Slug, "")
	case site.RouteTags:
		return s.TagsPage(ctx)
	case site.RouteTag:
		return s.TagPage(ctx, r.Key)
	case site.RouteNotFound:
		return s.NotFoundPage(ctx, "")
	case site.RouteStylesheet:
		css, err := s.Stylesheet()
		return []byte(css), err
	}
	return nil, errors.Newf("unknown route kind %s", r.Kind)
}

func (b *Builder) buildArtifacts(s *app.Site, dir string, metas []content.ArticleMeta, bySlug map[string]content.Article) error {
	w := artifact.Writer{Dir: dir}
	if err := w.WriteIndex(metas); err != nil {
		return err
	}
	for _, m := range metas {
		a, err := s.Artifact(bySlug[m.Slug])
		if err != nil {
			return err
		}
		if err := w.WriteArticle(a); err != nil {
			return err
		}
	}

	themes, err := s.Themes()
	if err != nil {
		return err
	}
	return w.WriteThemes(themes, s.Theme.ID)
}

// RenderPreview renders one Markdown file without touching the index or the
// public dir.
func RenderPreview(ctx context.Context, cfg config.Config, path string) (template.HTML, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	_, body, fmErr := ingest.ParseFrontMatter(raw)
	if fmErr != nil {
		log.Printf("[build] %s: %v", path, fmErr)
	}
	p, err := pipeline.FromConfig(cfg.Render, cfg.Site.Mode)
	if err != nil {
		return "", err
	}
	sess := pipeline.NewSession(cfg.Render.Embed.WidgetScript)
	defer sess.Close()
	res, err := p.Render(ctx, sess, body)
	if err != nil {
		return "", err
	}
	return template.HTML(res.HTML) + "\n" + res.TOC + "\n" + res.ScriptsHTML(), nil
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(full))
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", full)
	}
	return nil
}

func (b *Builder) copyStaticAssets(outDir string) error {
	src := filepath.Join(b.Cfg.Build.ThemeDir, b.Cfg.Site.Theme, "static")
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		in, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return writeFile(outDir, rel, in)
	})
}
