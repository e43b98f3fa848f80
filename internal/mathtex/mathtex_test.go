package mathtex

import (
	"context"
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"kumo/internal/dom"
)

// fakeEngine wraps TeX in a marker element and rejects anything containing "bad".
type fakeEngine struct {
	calls []string
}

func (f *fakeEngine) Render(tex string, display bool) (string, error) {
	f.calls = append(f.calls, tex)
	if strings.Contains(tex, "bad") {
		return "", errors.Wrap(ErrUnparseable, "fake")
	}
	kind := "i"
	if display {
		kind = "d"
	}
	return "<tex-" + kind + ">" + tex + "</tex-" + kind + ">", nil
}

func mount(t *testing.T, fragment string) *dom.Container {
	t.Helper()
	c, err := dom.Mount(fragment)
	require.NoError(t, err)
	return c
}

func inner(t *testing.T, c *dom.Container) string {
	t.Helper()
	s, err := c.InnerHTML()
	require.NoError(t, err)
	return s
}

func TestNormalizeSplitRegion(t *testing.T) {
	c := mount(t, "<p>$$</p>\n<p>x^2</p>\n<p>$$</p>")
	assert.Equal(t, 1, NormalizeDisplayMath(c.Root()))
	assert.Equal(t, "<p>$$x^2$$</p>", inner(t, c))
}

func TestNormalizeJoinsLinesWithNewline(t *testing.T) {
	c := mount(t, "<p>before</p><p>$$</p><p>a +</p><p>b</p><p> $$ </p><p>after</p>")
	assert.Equal(t, 1, NormalizeDisplayMath(c.Root()))
	assert.Equal(t, "<p>before</p><p>$$a +\nb$$</p><p>after</p>", inner(t, c))
}

func TestNormalizeSingleBlockTrimsInner(t *testing.T) {
	c := mount(t, "<p>$$ x^2 $$</p>")
	assert.Equal(t, 1, NormalizeDisplayMath(c.Root()))
	assert.Equal(t, "<p>$$x^2$$</p>", inner(t, c))

	// already normalized
	assert.Equal(t, 0, NormalizeDisplayMath(c.Root()))
}

func TestNormalizeAbortsOnForeignElement(t *testing.T) {
	src := "<p>$$</p><ul><li>x</li></ul><p>$$</p>"
	c := mount(t, src)
	assert.Equal(t, 0, NormalizeDisplayMath(c.Root()))
	assert.Equal(t, src, inner(t, c))
}

func TestNormalizeLeavesUnclosedRegion(t *testing.T) {
	src := "<p>$$</p><p>x</p>"
	c := mount(t, src)
	assert.Equal(t, 0, NormalizeDisplayMath(c.Root()))
	assert.Equal(t, src, inner(t, c))
}

func TestTypesetDelimiters(t *testing.T) {
	c := mount(t, `<p>inline $a+b$ and display</p><p>$$</p><p>\sum x</p><p>$$</p><p>\[y\]</p>`)
	eng := &fakeEngine{}
	rep, err := NewTypesetter(eng, true).Typeset(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, Report{Normalized: 1, Rendered: 3}, rep)
	assert.Equal(t, []string{"a+b", `\sum x`, "y"}, eng.calls)
	html := inner(t, c)
	assert.Contains(t, html, `<span class="math math-inline"><tex-i>a+b</tex-i></span>`)
	assert.Contains(t, html, `<span class="math math-display"><tex-d>\sum x</tex-d></span>`)
	assert.Contains(t, html, `<span class="math math-display"><tex-d>y</tex-d></span>`)
}

func TestTypesetNeverTouchesCode(t *testing.T) {
	for _, auto := range []bool{true, false} {
		c := mount(t, `<p>price <code>$100</code></p><pre><code>$x$</code></pre><p><kbd>$y$</kbd><samp>$z$</samp></p>`)
		before := inner(t, c)
		eng := &fakeEngine{}
		_, err := NewTypesetter(eng, auto).Typeset(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, before, inner(t, c))
		assert.Empty(t, eng.calls)
	}
}

func TestTypesetKeepsUnparseableLiteral(t *testing.T) {
	for _, auto := range []bool{true, false} {
		c := mount(t, `<p>ok $x$ then $bad$ end</p>`)
		rep, err := NewTypesetter(&fakeEngine{}, auto).Typeset(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Rendered)
		assert.Equal(t, 1, rep.Failed)
		assert.Equal(t, !auto, rep.Fallback)
		assert.Equal(t, "ok x then $bad$ end", dom.TextContent(c.Root()))
	}
}

func TestTypesetIsIdempotent(t *testing.T) {
	c := mount(t, `<p>$x$</p>`)
	ts := NewTypesetter(&fakeEngine{}, true)
	_, err := ts.Typeset(context.Background(), c)
	require.NoError(t, err)
	first := inner(t, c)

	rep, err := ts.Typeset(context.Background(), c)
	require.NoError(t, err)
	assert.Zero(t, rep.Rendered)
	assert.Equal(t, first, inner(t, c))
}

func TestTypesetUnmountedOrCancelled(t *testing.T) {
	c := mount(t, `<p>$x$</p>`)
	c.Unmount()
	eng := &fakeEngine{}
	_, err := NewTypesetter(eng, true).Typeset(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, eng.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTypesetter(eng, true).Typeset(ctx, mount(t, `<p>$x$</p>`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitAtDelimiters(t *testing.T) {
	parts := splitAtDelimiters(`a $x$ b $$y$$ \$5 $unclosed`, DefaultDelimiters)
	var kinds []string
	for _, p := range parts {
		switch {
		case !p.math:
			kinds = append(kinds, "t:"+p.data)
		case p.display:
			kinds = append(kinds, "d:"+p.data)
		default:
			kinds = append(kinds, "i:"+p.data)
		}
	}
	assert.Equal(t, []string{"t:a ", "i:x", "t: b ", "d:y", `t: \$5 $unclosed`}, kinds)
}

func TestSplitSkipsBracedDelimiter(t *testing.T) {
	parts := splitAtDelimiters(`$\text{a $ b}$`, DefaultDelimiters)
	require.Len(t, parts, 1)
	assert.True(t, parts[0].math)
	assert.Equal(t, `\text{a $ b}`, parts[0].data)
}

func TestCheckTeX(t *testing.T) {
	good := []string{`x^2`, `\frac{a}{b}`, `\left( x \right)`, `\begin{matrix} a \\ b \end{matrix}`, `\{ a \}`}
	for _, tex := range good {
		assert.NoError(t, CheckTeX(tex), tex)
	}
	bad := []string{``, `\frac{a}{b`, `a}`, `\begin{cases} x`, `\begin{a} \end{b}`, `\left( x`, `x \right)`}
	for _, tex := range bad {
		assert.ErrorIs(t, CheckTeX(tex), ErrUnparseable, tex)
	}
}

func TestMathMLEngine(t *testing.T) {
	out, err := MathML{}.Render("x^2", true)
	require.NoError(t, err)
	assert.Contains(t, out, "<math")

	_, err = MathML{}.Render(`\frac{1}{2`, false)
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = (&KaTeX{}).Render(`{`, false)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestMathMLThroughTypesetter(t *testing.T) {
	c := mount(t, `<p>$$x^2$$</p>`)
	rep, err := NewTypesetter(MathML{}, true).Typeset(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Rendered)
	assert.Len(t, cascadia.MustCompile("span.math-display").MatchAll(c.Root()), 1)
}

func TestEngineFor(t *testing.T) {
	e, err := EngineFor("mathml")
	require.NoError(t, err)
	assert.IsType(t, MathML{}, e)
	e, err = EngineFor("katex")
	require.NoError(t, err)
	assert.IsType(t, &KaTeX{}, e)
	_, err = EngineFor("mathjax")
	assert.Error(t, err)
}

func TestExtractMathKeepsOnlyMathML(t *testing.T) {
	out := `<span class="katex"><span class="katex-mathml"><math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><msup><mi>x</mi><mn>2</mn></msup></mrow><annotation encoding="application/x-tex">x^2</annotation></semantics></math></span><span class="katex-html" aria-hidden="true">x2</span></span>`
	got, err := extractMath(out, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "<math"), got)
	assert.Contains(t, got, `display="block"`)
	assert.Contains(t, got, "<msup>")
	assert.NotContains(t, got, "katex-html")

	_, err = extractMath(`<span class="katex">x</span>`, false)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestTypesetKeepsSourceWhenMarkupDoesNotParse(t *testing.T) {
	orig := parseMarkup
	t.Cleanup(func() { parseMarkup = orig })
	parseMarkup = func(string, *html.Node) ([]*html.Node, error) {
		return nil, errors.New("broken markup")
	}

	c := mount(t, `<p>a $x$ b $$y$$ c</p>`)
	rep, err := NewTypesetter(&fakeEngine{}, true).Typeset(context.Background(), c)
	require.NoError(t, err)
	assert.Zero(t, rep.Rendered)
	assert.Equal(t, 2, rep.Failed)
	assert.Equal(t, "a $x$ b $$y$$ c", dom.TextContent(c.Root()))
}
