// Package pipeline runs the article stages in their fixed order: Markdown,
// mount, highlight, math, diagrams, embeds, then the TOC and its scroll spy.
package pipeline

import (
	"context"
	"html/template"
	"log"
	"strings"

	"github.com/cockroachdb/errors"
	gtoc "go.abhg.dev/goldmark/toc"

	"kumo/internal/diagram"
	"kumo/internal/dom"
	"kumo/internal/domain/config"
	"kumo/internal/domain/content"
	"kumo/internal/embed"
	"kumo/internal/highlight"
	"kumo/internal/mathtex"
	"kumo/internal/render"
	"kumo/internal/theme"
	"kumo/internal/toc"
)

// Stages that are nil are skipped.
type Options struct {
	Markdown  *render.MarkdownRenderer
	Highlight *highlight.Highlighter
	Math      *mathtex.Typesetter
	Diagrams  *diagram.Renderer
	Embeds    *embed.Transformer
	TOC       config.TOCConfig
}

type Pipeline struct {
	opts Options
}

func New(opts Options) *Pipeline {
	if opts.Markdown == nil {
		opts.Markdown = render.NewMarkdownRenderer()
	}
	return &Pipeline{opts: opts}
}

// FromConfig wires every stage from the render config. A missing diagram
// engine only disables that stage.
func FromConfig(cfg config.RenderConfig, mode config.Mode) (*Pipeline, error) {
	opts := Options{
		Markdown: render.NewMarkdownRenderer(),
		TOC:      cfg.TOC,
	}
	if cfg.Highlight.Enabled {
		opts.Highlight = highlight.New(cfg.Diagram.Language)
	}
	if cfg.Math.Enabled {
		engine, err := mathtex.EngineFor(string(cfg.Math.Engine))
		if err != nil {
			return nil, err
		}
		opts.Math = mathtex.NewTypesetter(engine, cfg.Math.AutoScan)
	}
	if cfg.Diagram.Enabled {
		var engine diagram.Engine
		cli, err := diagram.NewMermaidCLI(cfg.Diagram.MMDC, theme.MermaidTheme(mode))
		if err != nil {
			log.Printf("[warn] diagrams disabled: %v", err)
		} else {
			engine = cli
		}
		opts.Diagrams = diagram.NewRenderer(engine, cfg.Diagram.Language, cfg.Diagram.Concurrency)
	}
	if cfg.Embed.Enabled {
		opts.Embeds = &embed.Transformer{
			Theme:       theme.WidgetTheme(mode),
			RescanDelay: cfg.Embed.RescanDelay,
		}
	}
	return New(opts), nil
}

type Result struct {
	HTML     string
	TOC      template.HTML
	Headings []content.Heading
	Outline  *gtoc.TOC
	Scripts  []embed.Script
	Spy      *toc.Spy

	Math     mathtex.Report
	Diagrams diagram.Report
	Embeds   embed.Report
	// Stale is set when another article took over the session mid-render.
	Stale bool
}

// Render runs every stage over Markdown source.
func (p *Pipeline) Render(ctx context.Context, s *Session, markdown []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	md, err := p.opts.Markdown.Render(markdown)
	if err != nil {
		return Result{}, errors.Wrap(err, "render markdown")
	}
	return p.run(ctx, s, string(md.HTML), md.Outline)
}

// RenderPrerendered runs the post-mount stages over HTML that already carries
// heading ids, as found in article artifacts.
func (p *Pipeline) RenderPrerendered(ctx context.Context, s *Session, html string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	clean := p.opts.Markdown.Sanitize([]byte(html))
	return p.run(ctx, s, string(clean), nil)
}

func (p *Pipeline) run(ctx context.Context, s *Session, html string, outline *gtoc.TOC) (Result, error) {
	c, err := dom.Mount(html)
	if err != nil {
		return Result{}, err
	}
	token := s.Begin(c)
	res := Result{Outline: outline}

	if p.opts.Highlight != nil {
		p.opts.Highlight.Apply(c)
	}

	if p.opts.Math != nil {
		rep, err := p.opts.Math.Typeset(ctx, c)
		if err != nil {
			return res, err
		}
		res.Math = rep
	}

	if p.opts.Diagrams != nil {
		res.Diagrams = p.opts.Diagrams.Render(ctx, c)
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	// diagrams may take long enough for the reader to move on; the
	// abandoned article must not request widgets from the new one
	if !s.Current(token) {
		res.Stale = true
		return res, nil
	}

	if p.opts.Embeds != nil {
		rep, err := p.opts.Embeds.Transform(ctx, c, s.Widgets)
		if err != nil {
			return res, err
		}
		res.Embeds = rep
		res.Scripts = append(res.Scripts, rep.Scripts...)
	}

	entries, err := toc.Build(c.Root())
	if err != nil {
		log.Printf("[toc] omitting table of contents: %v", err)
		entries = nil
	} else if outline != nil {
		if err := toc.Check(entries, toc.FromOutline(outline)); err != nil {
			log.Printf("[toc] %v", err)
		}
	}
	res.Headings = entries
	res.Spy = toc.NewSpy(entries)
	if !s.Attach(token, res.Spy) || !c.Mounted() {
		res.Stale = true
		return res, nil
	}

	if res.HTML, err = c.InnerHTML(); err != nil {
		return res, err
	}
	if res.TOC, err = toc.RenderHTML(entries, ""); err != nil {
		log.Printf("[toc] %v", err)
	}
	if len(entries) > 0 {
		obs := toc.NewObserver(res.Spy, p.opts.TOC.TopMarginPx, p.opts.TOC.BottomFraction)
		res.Scripts = append(res.Scripts, embed.Script{Inline: toc.ClientScript(obs.RootMargin())})
	}
	for _, sc := range res.Scripts {
		if sc.Src != "" {
			// the page now carries the widget script
			s.Widgets.MarkLoaded()
		}
	}
	return res, nil
}

// Activate marks the TOC entry id active through the spy's click path and
// queues the matching smooth scroll.
func (r *Result) Activate(id string) bool {
	if r.Spy == nil {
		return false
	}
	req, ok := r.Spy.Click(id)
	if !ok {
		return false
	}
	if html, err := toc.RenderHTML(r.Headings, r.Spy.Active()); err == nil {
		r.TOC = html
	}
	r.Scripts = append(r.Scripts, embed.Script{Inline: toc.ScrollScript(req)})
	return true
}

// ScriptsHTML renders every script tag the page needs.
func (r Result) ScriptsHTML() template.HTML {
	var b strings.Builder
	for _, s := range r.Scripts {
		b.WriteString(string(s.HTML()))
		b.WriteByte('\n')
	}
	return template.HTML(b.String())
}
