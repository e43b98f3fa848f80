// Package highlight colours fenced code blocks in a mounted article with chroma.
package highlight

import (
	"bytes"
	"log"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/andybalholm/cascadia"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"

	"kumo/internal/dom"
)

var codeSel = cascadia.MustCompile(`pre > code[class*="language-"]`)

type Highlighter struct {
	formatter *chromahtml.Formatter
	skip      map[string]bool
}

// New returns a highlighter that leaves the given languages alone, so later
// stages (diagrams) still see their raw source.
func New(skipLanguages ...string) *Highlighter {
	skip := make(map[string]bool, len(skipLanguages))
	for _, l := range skipLanguages {
		skip[strings.ToLower(l)] = true
	}
	return &Highlighter{
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
		skip: skip,
	}
}

// Language extracts "go" from class="language-go".
func Language(code *html.Node) string {
	for _, c := range dom.Classes(code) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok {
			return strings.ToLower(lang)
		}
	}
	return ""
}

// Apply highlights every eligible block and reports how many were changed.
// Blocks whose language chroma does not know are left as plain code.
func (h *Highlighter) Apply(c *dom.Container) int {
	count := 0
	c.Mutate(func(root *html.Node) {
		for _, code := range codeSel.MatchAll(root) {
			lang := Language(code)
			if lang == "" || h.skip[lang] {
				continue
			}
			lexer := lexers.Get(lang)
			if lexer == nil {
				continue
			}
			markup, err := h.format(lexer, dom.TextContent(code))
			if err != nil {
				log.Printf("[render] highlight %s: %v", lang, err)
				continue
			}
			nodes, err := dom.ParseFragment(markup, code)
			if err != nil {
				log.Printf("[render] highlight %s: %v", lang, err)
				continue
			}
			dom.RemoveChildren(code)
			for _, n := range nodes {
				code.AppendChild(n)
			}
			dom.AddClass(code.Parent, "chroma")
			count++
		}
	})
	return count
}

func (h *Highlighter) format(lexer chroma.Lexer, src string) (string, error) {
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return "", errors.Wrap(err, "tokenise")
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, styles.Fallback, it); err != nil {
		return "", errors.Wrap(err, "format")
	}
	return buf.String(), nil
}

// CSS returns the stylesheet for the named chroma style. A non-empty scope
// prefixes every rule, e.g. ".dark" for the dark-mode sheet.
func CSS(style, scope string) (string, error) {
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buf, s); err != nil {
		return "", errors.Wrapf(err, "write css for %s", style)
	}
	css := buf.String()
	if scope != "" {
		css = strings.ReplaceAll(css, ".chroma", scope+" .chroma")
	}
	return css, nil
}

// Stylesheet combines a light sheet with a dark one scoped under ".dark".
func Stylesheet(light, dark string) (string, error) {
	l, err := CSS(light, "")
	if err != nil {
		return "", err
	}
	d, err := CSS(dark, ".dark")
	if err != nil {
		return "", err
	}
	return l + "\n" + d, nil
}
