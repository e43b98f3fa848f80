// Package mathtex repairs display-math blocks that Markdown split into several
// paragraphs and typesets TeX delimited by $$, \[ \] and $.
package mathtex

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"kumo/internal/dom"
)

const displayMarker = "$$"

// NormalizeDisplayMath rewrites every display-math region under root into a
// single paragraph reading "$$content$$" and returns how many it rewrote.
//
// A paragraph that is exactly "$$" opens a region; following sibling paragraphs
// are collected until one that is exactly "$$". Any other element in between,
// or a missing closing marker, leaves that region untouched.
func NormalizeDisplayMath(root *html.Node) int {
	var paragraphs []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || dom.SkipTags[c.DataAtom] {
				continue
			}
			if dom.IsElement(c, atom.P) {
				paragraphs = append(paragraphs, c)
				continue
			}
			walk(c)
		}
	}
	walk(root)

	consumed := make(map[*html.Node]bool)
	count := 0
	for _, p := range paragraphs {
		if consumed[p] || p.Parent == nil {
			continue
		}
		text := strings.TrimSpace(dom.TextContent(p))
		switch {
		case text == displayMarker:
			span, ok := collectSpan(p)
			if !ok {
				continue
			}
			parts := make([]string, 0, len(span))
			for _, q := range span[:len(span)-1] {
				parts = append(parts, dom.TextContent(q))
			}
			inner := strings.TrimSpace(strings.Join(parts, "\n"))
			for _, q := range span {
				consumed[q] = true
			}
			removeBetween(p, span[len(span)-1])
			dom.SetTextContent(p, displayMarker+inner+displayMarker)
			count++
		case len(text) > 2*len(displayMarker) &&
			strings.HasPrefix(text, displayMarker) && strings.HasSuffix(text, displayMarker):
			inner := strings.TrimSpace(text[len(displayMarker) : len(text)-len(displayMarker)])
			want := displayMarker + inner + displayMarker
			if dom.TextContent(p) != want {
				dom.SetTextContent(p, want)
				count++
			}
		}
	}
	return count
}

// collectSpan returns the paragraphs after open up to and including the closing
// marker paragraph. ok is false when the span must not be touched.
func collectSpan(open *html.Node) (span []*html.Node, ok bool) {
	for n := open.NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil, false
			}
			continue
		case html.CommentNode:
			continue
		case html.ElementNode:
			if n.DataAtom != atom.P {
				return nil, false
			}
		default:
			return nil, false
		}
		span = append(span, n)
		if strings.TrimSpace(dom.TextContent(n)) == displayMarker {
			return span, true
		}
	}
	return nil, false
}

// removeBetween drops every sibling after open up to and including last.
func removeBetween(open, last *html.Node) {
	for n := open.NextSibling; n != nil; {
		next := n.NextSibling
		open.Parent.RemoveChild(n)
		if n == last {
			return
		}
		n = next
	}
}
