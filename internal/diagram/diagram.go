// Package diagram replaces fenced diagram blocks in a mounted article with
// rendered SVG.
package diagram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"kumo/internal/dom"
)

type Renderer struct {
	engine      Engine
	language    string
	concurrency int
	sel         cascadia.Selector
	seq         atomic.Uint64
}

// NewRenderer handles `pre > code.language-<language>` blocks. A nil engine
// turns the stage into a no-op.
func NewRenderer(engine Engine, language string, concurrency int) *Renderer {
	if language == "" {
		language = "mermaid"
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Renderer{
		engine:      engine,
		language:    language,
		concurrency: concurrency,
		sel:         cascadia.MustCompile("pre > code.language-" + language),
	}
}

type Result struct {
	Index int
	ID    string
	Err   error
}

type Report struct {
	Results []Result
	// Dropped is set when the container went away before results were applied.
	Dropped bool
	Skipped bool
}

func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

type task struct {
	index  int
	id     string
	pre    *html.Node
	code   *html.Node
	source string
	svg    string
	err    error
}

// Render collects every diagram block in document order, renders them
// concurrently and then applies the results in that same order.
func (r *Renderer) Render(ctx context.Context, c *dom.Container) Report {
	if r.engine == nil {
		log.Printf("[diagram] no engine available, leaving diagrams as code")
		return Report{Skipped: true}
	}

	var tasks []*task
	seq := r.seq.Add(1)
	c.Mutate(func(root *html.Node) {
		for i, code := range r.sel.MatchAll(root) {
			tasks = append(tasks, &task{
				index:  i,
				id:     fmt.Sprintf("%s-%d-%d", r.language, seq, i),
				pre:    code.Parent,
				code:   code,
				source: dom.TextContent(code),
			})
		}
	})
	if len(tasks) == 0 {
		return Report{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				t.err = err
				return nil
			}
			t.svg, t.err = r.engine.Render(gctx, t.id, t.source)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Results: make([]Result, len(tasks))}
	if ctx.Err() != nil {
		rep.Dropped = true
		for i, t := range tasks {
			rep.Results[i] = Result{Index: t.index, ID: t.id, Err: ctx.Err()}
		}
		return rep
	}

	applied := c.Mutate(func(root *html.Node) {
		for i, t := range tasks {
			rep.Results[i] = Result{Index: t.index, ID: t.id, Err: t.err}
			if !dom.Contains(root, t.pre) {
				continue
			}
			if t.err != nil {
				log.Printf("[diagram] %s failed: %v", t.id, t.err)
				markFailed(t)
				continue
			}
			if err := replace(t); err != nil {
				log.Printf("[diagram] %s: %v", t.id, err)
				t.err = err
				rep.Results[i].Err = err
				markFailed(t)
			}
		}
	})
	if !applied {
		rep.Dropped = true
	}
	return rep
}

func replace(t *task) error {
	box := dom.Element(atom.Div,
		"class", "mermaid-container",
		"id", t.id,
		"data-processed", "true",
	)
	nodes, err := dom.ParseFragment(t.svg, box)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		box.AppendChild(n)
	}
	dom.ReplaceWith(t.pre, box)
	return nil
}

// markFailed keeps the source visible with the error on top of it.
func markFailed(t *task) {
	msg := strings.TrimSpace(t.err.Error())
	dom.SetTextContent(t.code, "Error rendering diagram:\n"+msg+"\n\n"+t.source)
	dom.AddClass(t.pre, "diagram-error")
}
