package embed

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"kumo/internal/dom"
)

var paragraphSel = cascadia.MustCompile("p")

type Transformer struct {
	// Theme is passed to microblog placeholders ("light" or "dark").
	Theme       string
	RescanDelay time.Duration
}

type Report struct {
	Embedded map[Platform]int
	Scripts  []Script
}

func (r Report) Total() int {
	n := 0
	for _, v := range r.Embedded {
		n += v
	}
	return n
}

// Transform replaces standalone-URL paragraphs in c with embed cards. loader
// belongs to the current page session and may be nil when scripts are not wanted.
func (t *Transformer) Transform(ctx context.Context, c *dom.Container, loader *WidgetLoader) (Report, error) {
	rep := Report{Embedded: map[Platform]int{}}
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	c.Mutate(func(root *html.Node) {
		for _, p := range paragraphSel.MatchAll(root) {
			d, ok := standaloneURL(p)
			if !ok {
				continue
			}
			markup, err := Markup(d, t.Theme)
			if err != nil {
				log.Printf("[embed] %s: %v", d.URL, err)
				continue
			}
			nodes, err := dom.ParseFragment(markup, p.Parent)
			if err != nil {
				log.Printf("[embed] %s: %v", d.URL, err)
				continue
			}
			dom.ReplaceWith(p, nodes...)
			rep.Embedded[d.Platform]++
		}
	})

	if rep.Embedded[Twitter] > 0 && loader != nil {
		if s, ok := loader.Request(); ok {
			rep.Scripts = append(rep.Scripts, s)
		}
		rep.Scripts = append(rep.Scripts, RescanScript(t.RescanDelay))
	}
	return rep, nil
}

// standaloneURL classifies a paragraph whose whole content is one link, or one
// bare URL text node.
func standaloneURL(p *html.Node) (Descriptor, bool) {
	var link *html.Node
	var text *html.Node
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) == "" {
				continue
			}
			if text != nil || link != nil {
				return Descriptor{}, false
			}
			text = c
		case html.ElementNode:
			if c.DataAtom != atom.A || link != nil || text != nil {
				return Descriptor{}, false
			}
			link = c
		case html.CommentNode:
		default:
			return Descriptor{}, false
		}
	}

	switch {
	case link != nil:
		href, _ := dom.Attr(link, "href")
		if strings.TrimSpace(dom.TextContent(p)) != strings.TrimSpace(dom.TextContent(link)) {
			return Descriptor{}, false
		}
		return Classify(href)
	case text != nil:
		return Classify(text.Data)
	}
	return Descriptor{}, false
}
