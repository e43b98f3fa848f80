package mathtex

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"kumo/internal/dom"
)

// Delimiter is one recognised pair of math markers.
type Delimiter struct {
	Left    string
	Right   string
	Display bool
}

// DefaultDelimiters are tried in order; "$$" must precede "$".
var DefaultDelimiters = []Delimiter{
	{Left: "$$", Right: "$$", Display: true},
	{Left: `\[`, Right: `\]`, Display: true},
	{Left: "$", Right: "$", Display: false},
}

var fallbackRE = regexp.MustCompile(`(?s)\$\$(.+?)\$\$|\$(.+?)\$`)

type Typesetter struct {
	Engine     Engine
	Delimiters []Delimiter
	// AutoScan selects the delimiter scanner; off means the regex walk.
	AutoScan bool
}

type Report struct {
	Normalized int
	Rendered   int
	Failed     int
	Fallback   bool
}

func NewTypesetter(engine Engine, autoScan bool) *Typesetter {
	return &Typesetter{Engine: engine, Delimiters: DefaultDelimiters, AutoScan: autoScan}
}

// Typeset normalizes display math in c and replaces every delimited TeX span
// with typeset markup. Spans the engine rejects stay as their literal text.
func (t *Typesetter) Typeset(ctx context.Context, c *dom.Container) (Report, error) {
	var rep Report
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	c.Mutate(func(root *html.Node) {
		rep.Normalized = NormalizeDisplayMath(root)
		if t.Engine == nil {
			log.Printf("[math] no engine configured, leaving TeX as text")
			return
		}
		if t.AutoScan {
			edits, err := t.scan(root)
			if err == nil {
				rep.Rendered, rep.Failed = applyEdits(edits)
				return
			}
			log.Printf("[warn] math auto-render unavailable, using fallback: %v", err)
		}
		rep.Fallback = true
		rep.Rendered, rep.Failed = applyEdits(t.fallback(root))
	})
	return rep, nil
}

func skipMath(n *html.Node) bool {
	return dom.SkipTags[n.DataAtom] || n.DataAtom == atom.Math || dom.HasClass(n, "math")
}

// segment is a piece of one text node: plain text or a typeset expression.
// A typeset segment keeps its delimited source in text.
type segment struct {
	text   string
	markup string
	failed bool
}

type edit struct {
	node     *html.Node
	segments []segment
}

// scan computes edits without touching the tree, so a failure here leaves
// nothing half-done for the fallback.
func (t *Typesetter) scan(root *html.Node) (edits []edit, err error) {
	defer func() {
		if p := recover(); p != nil {
			edits = nil
			err = errors.Newf("scanner panic: %v", p)
		}
	}()
	delims := t.Delimiters
	if len(delims) == 0 {
		delims = DefaultDelimiters
	}
	for _, n := range dom.TextNodes(root, skipMath) {
		parts := splitAtDelimiters(n.Data, delims)
		if len(parts) == 1 && !parts[0].math {
			continue
		}
		segs := make([]segment, 0, len(parts))
		for _, p := range parts {
			if !p.math {
				segs = append(segs, segment{text: p.data})
				continue
			}
			segs = append(segs, t.typeset(p.data, p.raw, p.display))
		}
		edits = append(edits, edit{node: n, segments: segs})
	}
	return edits, nil
}

func (t *Typesetter) fallback(root *html.Node) []edit {
	var edits []edit
	for _, n := range dom.TextNodes(root, skipMath) {
		matches := fallbackRE.FindAllStringSubmatchIndex(n.Data, -1)
		if len(matches) == 0 {
			continue
		}
		var segs []segment
		last := 0
		for _, m := range matches {
			if m[0] > last {
				segs = append(segs, segment{text: n.Data[last:m[0]]})
			}
			raw := n.Data[m[0]:m[1]]
			if m[2] >= 0 {
				segs = append(segs, t.typeset(n.Data[m[2]:m[3]], raw, true))
			} else {
				segs = append(segs, t.typeset(n.Data[m[4]:m[5]], raw, false))
			}
			last = m[1]
		}
		if last < len(n.Data) {
			segs = append(segs, segment{text: n.Data[last:]})
		}
		edits = append(edits, edit{node: n, segments: segs})
	}
	return edits
}

func (t *Typesetter) typeset(tex, raw string, display bool) segment {
	markup, err := t.Engine.Render(strings.TrimSpace(tex), display)
	if err != nil {
		log.Printf("[math] keeping %q as text: %v", raw, err)
		return segment{text: raw, failed: true}
	}
	class := "math math-inline"
	if display {
		class = "math math-display"
	}
	return segment{text: raw, markup: `<span class="` + class + `">` + markup + `</span>`}
}

var parseMarkup = dom.ParseFragment

func applyEdits(edits []edit) (rendered, failed int) {
	for _, e := range edits {
		parent := e.node.Parent
		if parent == nil {
			continue
		}
		for _, s := range e.segments {
			if s.markup == "" {
				if s.failed {
					failed++
				}
				parent.InsertBefore(dom.Text(s.text), e.node)
				continue
			}
			nodes, err := parseMarkup(s.markup, parent)
			if err == nil && len(nodes) == 0 {
				err = errors.New("no nodes")
			}
			if err != nil {
				log.Printf("[math] keeping %q as text, typeset markup: %v", s.text, err)
				parent.InsertBefore(dom.Text(s.text), e.node)
				failed++
				continue
			}
			for _, n := range nodes {
				parent.InsertBefore(n, e.node)
			}
			rendered++
		}
		parent.RemoveChild(e.node)
	}
	return rendered, failed
}
