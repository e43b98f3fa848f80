package app

import (
	"context"
	"html/template"
	"log"
	"time"

	"github.com/cockroachdb/errors"

	"kumo/internal/artifact"
	"kumo/internal/domain/build"
	"kumo/internal/domain/config"
	"kumo/internal/domain/content"
	"kumo/internal/highlight"
	"kumo/internal/index"
	"kumo/internal/ingest"
	"kumo/internal/pipeline"
	"kumo/internal/render"
	"kumo/internal/theme"
)

// Site assembles pages from the index, the render pipeline and the theme.
// The static build and the dev server share it.
type Site struct {
	Cfg       config.Config
	Theme     theme.Theme
	Index     *index.Store
	Pipeline  *pipeline.Pipeline
	Markdown  *render.MarkdownRenderer
	Templates render.Renderer
	DevReload bool

	// Remote, when set, serves articles from published artifacts instead of
	// the local source tree.
	Remote *artifact.Client

	fingerprintInput string
}

func NewSite(cfg config.Config, store *index.Store) (*Site, error) {
	th, err := theme.LoadOrDefault(cfg.Build.ThemeDir, cfg.Site.Theme)
	if err != nil {
		return nil, err
	}
	tpl, err := render.NewTemplateRenderer(cfg.Build.ThemeDir, cfg.Site.Theme)
	if err != nil {
		return nil, errors.Wrapf(err, "load templates (%s)", cfg.Build.ThemeDir)
	}
	p, err := pipeline.FromConfig(cfg.Render, cfg.Site.Mode)
	if err != nil {
		return nil, err
	}
	s := &Site{
		Cfg:       cfg,
		Theme:     th,
		Index:     store,
		Pipeline:  p,
		Markdown:  render.NewMarkdownRenderer(),
		Templates: tpl,
	}
	if u := cfg.Serve.ArtifactURL; u != "" {
		s.Remote = artifact.NewClient(u)
	}
	return s, nil
}

// Reindex ingests the source tree into the index.
func (s *Site) Reindex() ([]content.Article, error) {
	arts, warns, err := ingest.Ingest(ingest.Options{
		SourceDir:    s.Cfg.Build.SourceDir,
		IncludeDraft: s.Cfg.Build.IncludeDraft,
	})
	if err != nil {
		return nil, errors.Wrap(err, "ingest")
	}
	for _, w := range warns {
		log.Printf("[warn] %s: %s", w.Path, w.Msg)
	}
	if err := s.Index.Rebuild(arts, index.RebuildOptions{IncludeDraft: s.Cfg.Build.IncludeDraft}); err != nil {
		return nil, errors.Wrap(err, "index rebuild")
	}
	return arts, nil
}

func (s *Site) Chrome(title string) render.Chrome {
	return render.Chrome{
		Site:      s.Cfg.Site,
		BasePath:  s.Cfg.Build.BasePath,
		ThemeCSS:  template.CSS(s.Theme.CSSVariables(s.Cfg.Site.Mode)),
		DevReload: s.DevReload,
		PageTitle: title,
	}
}

// Stylesheet is the chroma CSS for both modes.
func (s *Site) Stylesheet() (string, error) {
	return highlight.Stylesheet(s.Theme.HighlightStyles.Light, s.Theme.HighlightStyles.Dark)
}

func (s *Site) Fingerprint(a content.Article) build.Fingerprint {
	return build.NewFingerprint(a.Body.ContentHash, s.Theme, struct {
		Render config.RenderConfig
		Mode   config.Mode
	}{s.Cfg.Render, s.Cfg.Site.Mode}, render.Version)
}

// RenderArticle runs the pipeline over a, reusing the cached render when its
// fingerprint still matches.
func (s *Site) RenderArticle(ctx context.Context, sess *pipeline.Session, a content.Article) (pipeline.Result, error) {
	fp := s.Fingerprint(a).RenderHash

	var snap pipeline.Snapshot
	hit, err := s.Index.GetRender(a.Meta.Slug, fp, &snap)
	if err != nil {
		log.Printf("[render] cache read %s: %v", a.Meta.Slug, err)
	}
	if hit {
		return pipeline.Restore(sess, snap), nil
	}

	body, _, err := ingest.Load(a)
	if err != nil {
		return pipeline.Result{}, err
	}
	res, err := s.Pipeline.Render(ctx, sess, body)
	if err != nil {
		return res, errors.Wrapf(err, "render %s", a.Meta.Slug)
	}
	if !res.Stale {
		if err := s.Index.PutRender(a.Meta.Slug, fp, res.Snapshot()); err != nil {
			log.Printf("[render] cache write %s: %v", a.Meta.Slug, err)
		}
	}
	return res, nil
}

// Artifact is the published JSON form of a: its Markdown and the Markdown
// render with heading ids baked in. The remaining stages run where it is
// displayed.
func (s *Site) Artifact(a content.Article) (artifact.Article, error) {
	body, _, err := ingest.Load(a)
	if err != nil {
		return artifact.Article{}, err
	}
	md, err := s.Markdown.Render(body)
	if err != nil {
		return artifact.Article{}, errors.Wrapf(err, "markdown %s", a.Meta.Slug)
	}
	return artifact.Article{
		Filename:     a.Meta.Filename,
		Title:        a.Meta.Title,
		Content:      string(body),
		HTML:         string(md.HTML),
		ModifiedDate: a.Meta.Modified,
	}, nil
}

// Themes lists the installed themes, falling back to the active one.
func (s *Site) Themes() ([]theme.Theme, error) {
	themes, err := theme.List(s.Cfg.Build.ThemeDir)
	if err != nil {
		return nil, err
	}
	if len(themes) == 0 {
		themes = []theme.Theme{s.Theme}
	}
	return themes, nil
}

// ArticlePage renders the page for slug. A non-empty section marks that TOC
// entry active and scrolls to it.
func (s *Site) ArticlePage(ctx context.Context, slug, section string) ([]byte, error) {
	sess := pipeline.NewSession(s.Cfg.Render.Embed.WidgetScript)
	defer sess.Close()

	var (
		meta content.ArticleMeta
		res  pipeline.Result
	)
	if s.Remote != nil {
		art, err := s.Remote.Article(ctx, slug)
		if err != nil {
			return nil, err
		}
		meta = content.ArticleMeta{
			Title:    art.Title,
			Slug:     slug,
			Filename: art.Filename,
			Modified: art.ModifiedDate,
			Date:     art.ModifiedDate,
		}
		meta.Normalize()
		if res, err = s.Pipeline.RenderPrerendered(ctx, sess, art.HTML); err != nil {
			return nil, err
		}
	} else {
		a, err := s.Index.Get(slug)
		if err != nil {
			return nil, err
		}
		meta = a.Meta
		if res, err = s.RenderArticle(ctx, sess, a); err != nil {
			return nil, err
		}
	}

	if section != "" && !res.Activate(section) {
		log.Printf("[toc] unknown section %q in %s", section, slug)
	}
	meta.Headings = res.Headings

	return s.Templates.RenderArticle(ctx, render.ArticlePage{
		Chrome:   s.Chrome(meta.Title),
		Meta:     meta,
		HTML:     template.HTML(res.HTML),
		TOC:      res.TOC,
		Headings: res.Headings,
		Scripts:  res.ScriptsHTML(),
		Active:   activeOf(res),
	})
}

func activeOf(res pipeline.Result) string {
	if res.Spy == nil {
		return ""
	}
	return res.Spy.Active()
}

func (s *Site) HomePage(ctx context.Context) ([]byte, error) {
	items, err := s.homeItems(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagStats()
	if err != nil {
		return nil, err
	}
	return s.Templates.RenderHome(ctx, render.HomePage{
		Chrome:    s.Chrome(""),
		Items:     items,
		Tags:      tags,
		Generated: s.now(),
	})
}

func (s *Site) homeItems(ctx context.Context) ([]content.ArticleMeta, error) {
	if s.Remote == nil {
		return s.Index.List(index.ListOptions{})
	}
	entries, err := s.Remote.Articles(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]content.ArticleMeta, 0, len(entries))
	for _, e := range entries {
		m := content.ArticleMeta{
			Title:    e.Title,
			Slug:     artifact.Name(e.Filename),
			Filename: e.Filename,
			Date:     e.ModifiedDate,
			Modified: e.ModifiedDate,
		}
		m.Normalize()
		items = append(items, m)
	}
	return items, nil
}

// TagPage returns index.ErrNotFound for a tag no article carries.
func (s *Site) TagPage(ctx context.Context, tag string) ([]byte, error) {
	items, err := s.Index.ListByTag(tag, index.ListOptions{})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.Wrapf(index.ErrNotFound, "tag %s", tag)
	}
	return s.Templates.RenderList(ctx, render.ListPage{
		Chrome:    s.Chrome("Tag: " + tag),
		Tag:       tag,
		Items:     items,
		Generated: s.now(),
	})
}

func (s *Site) TagsPage(ctx context.Context) ([]byte, error) {
	stats, err := s.tagStats()
	if err != nil {
		return nil, err
	}
	return s.Templates.RenderTags(ctx, render.TagsPage{
		Chrome: s.Chrome("Tags"),
		Tags:   stats,
		Total:  len(stats),
	})
}

func (s *Site) tagStats() ([]render.TagStat, error) {
	tags, err := s.Index.Tags()
	if err != nil {
		return nil, err
	}
	stats := make([]render.TagStat, 0, len(tags))
	for _, t := range tags {
		stats = append(stats, render.TagStat{Name: t.Name, Count: t.Count})
	}
	return stats, nil
}

func (s *Site) NotFoundPage(ctx context.Context, path string) ([]byte, error) {
	return s.Templates.RenderNotFound(ctx, render.NotFoundPage{
		Chrome: s.Chrome("Not Found"),
		Path:   path,
	})
}

// ErrorPage is the visible failed-to-load state.
func (s *Site) ErrorPage(ctx context.Context, msg string) ([]byte, error) {
	return s.Templates.RenderError(ctx, render.ErrorPage{
		Chrome:  s.Chrome("Error"),
		Message: msg,
	})
}

func (s *Site) now() time.Time {
	if !s.Cfg.Build.Now.IsZero() {
		return s.Cfg.Build.Now
	}
	return time.Now()
}
