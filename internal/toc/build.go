// Package toc derives the article outline from rendered headings and keeps
// track of which section is in view.
package toc

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/cockroachdb/errors"
	gtoc "go.abhg.dev/goldmark/toc"
	"golang.org/x/net/html"

	"kumo/internal/dom"
	"kumo/internal/domain/content"
)

var (
	// ErrMissingID means a rendered heading reached the TOC without an id.
	// Ids come from the Markdown renderer only, so this is a bug upstream.
	ErrMissingID = errors.New("heading has no id")
	// ErrMismatch means the outline and the rendered headings disagree.
	ErrMismatch = errors.New("outline does not match rendered headings")
)

var headingSel = cascadia.MustCompile("h2, h3")

// Build lists the h2 and h3 headings under root in document order.
func Build(root *html.Node) ([]content.Heading, error) {
	var out []content.Heading
	for _, n := range headingSel.MatchAll(root) {
		text := strings.TrimSpace(dom.TextContent(n))
		id, _ := dom.Attr(n, "id")
		if strings.TrimSpace(id) == "" {
			return nil, errors.Wrapf(ErrMissingID, "<%s>%s</%s>", n.Data, text, n.Data)
		}
		level := 2
		if n.Data == "h3" {
			level = 3
		}
		out = append(out, content.Heading{Level: level, ID: id, Text: text})
	}
	return out, nil
}

// FromOutline flattens a renderer outline inspected with MinDepth(2).
// Placeholder items for skipped levels carry no id and are dropped.
func FromOutline(t *gtoc.TOC) []content.Heading {
	if t == nil {
		return nil
	}
	var out []content.Heading
	var walk func(items gtoc.Items, level int)
	walk = func(items gtoc.Items, level int) {
		for _, it := range items {
			if len(it.ID) > 0 {
				out = append(out, content.Heading{
					Level: level,
					ID:    string(it.ID),
					Text:  strings.TrimSpace(string(it.Title)),
				})
			}
			walk(it.Items, level+1)
		}
	}
	walk(t.Items, 2)
	return out
}

// Check compares two derivations of the same outline by id and order.
func Check(rendered, outline []content.Heading) error {
	if len(rendered) != len(outline) {
		return errors.Wrapf(ErrMismatch, "%d rendered vs %d in outline", len(rendered), len(outline))
	}
	for i := range rendered {
		if rendered[i].ID != outline[i].ID || rendered[i].Level != outline[i].Level {
			return errors.Wrapf(ErrMismatch, "entry %d: %q vs %q", i, rendered[i].ID, outline[i].ID)
		}
	}
	return nil
}
