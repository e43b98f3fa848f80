package render

import (
	"bytes"
	"html/template"
	"log"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.abhg.dev/goldmark/toc"

	"kumo/internal/domain/content"
	"kumo/internal/slug"
)

// Version changes whenever rendered output for the same source would change.
const Version = "md-3"

var (
	registryKey = parser.NewContextKey()
	headingsKey = parser.NewContextKey()
)

type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdownRenderer() *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.Strikethrough,
			extension.Table,
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(headingIDTransformer{}, 100)),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)
	return &MarkdownRenderer{md: md, policy: newPolicy()}
}

var headingIDPattern = regexp.MustCompile(`^[^\s"'<>&]+$`)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// ids come from slug.Slugify, which keeps symbols such as "・" and emoji;
	// only characters that could break out of the attribute are refused
	p.AllowAttrs("id").
		Matching(headingIDPattern).
		OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").
		Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).
		OnElements("code")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	return p
}

type MarkdownResult struct {
	HTML     []byte
	Headings []content.Heading
	Outline  *toc.TOC
}

// Render converts src to sanitized HTML with heading ids from a registry
// owned by this call. It never fails on malformed Markdown.
func (r *MarkdownRenderer) Render(src []byte) (res MarkdownResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[render] markdown panic recovered: %v", p)
			res = MarkdownResult{HTML: []byte(`<pre class="markdown-source">` + template.HTMLEscapeString(string(src)) + `</pre>`)}
			err = nil
		}
	}()

	ctx := parser.NewContext()
	ctx.Set(registryKey, slug.NewRegistry())
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var heads []content.Heading
	if v, ok := ctx.Get(headingsKey).([]content.Heading); ok {
		heads = v
	}

	outline, err := toc.Inspect(doc, src, toc.MinDepth(2), toc.MaxDepth(3))
	if err != nil {
		return MarkdownResult{}, errors.Wrap(err, "inspect outline")
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return MarkdownResult{}, errors.Wrap(err, "render markdown")
	}

	return MarkdownResult{
		HTML:     r.policy.SanitizeBytes(buf.Bytes()),
		Headings: heads,
		Outline:  outline,
	}, nil
}

// Sanitize applies the same policy to HTML that did not come from Render.
func (r *MarkdownRenderer) Sanitize(b []byte) []byte {
	return r.policy.SanitizeBytes(b)
}

type headingIDTransformer struct{}

func (headingIDTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	reg, ok := pc.Get(registryKey).(*slug.Registry)
	if !ok {
		reg = slug.NewRegistry()
		pc.Set(registryKey, reg)
	}
	src := reader.Source()

	var heads []content.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		label := plainText(h, src)
		id := reg.Next(label)
		h.SetAttributeString("id", []byte(id))
		heads = append(heads, content.Heading{Level: h.Level, ID: id, Text: label})
		return ast.WalkSkipChildren, nil
	})
	pc.Set(headingsKey, heads)
}

func plainText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Text:
				buf.Write(v.Segment.Value(src))
				if v.SoftLineBreak() || v.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(v.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}
