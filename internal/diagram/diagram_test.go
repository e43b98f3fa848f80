package diagram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumo/internal/dom"
)

// fakeEngine finishes later blocks first and fails any source containing "boom".
type fakeEngine struct {
	mu      sync.Mutex
	order   []string
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeEngine) Render(ctx context.Context, id, source string) (string, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if strings.HasPrefix(source, "graph A") {
		time.Sleep(20 * time.Millisecond)
	}
	f.mu.Lock()
	f.order = append(f.order, id)
	f.mu.Unlock()
	if strings.Contains(source, "boom") {
		return "", errors.New("parse error on line 1")
	}
	return `<svg data-src="` + strings.TrimSpace(source) + `"></svg>`, nil
}

const article = `<h2 id="x">x</h2>
<pre><code class="language-mermaid">graph A</code></pre>
<p>between</p>
<pre><code class="language-mermaid">graph boom</code></pre>
<pre><code class="language-go">fmt.Println()</code></pre>
<pre><code class="language-mermaid">graph C</code></pre>`

func TestRenderAppliesInSourceOrder(t *testing.T) {
	c, err := dom.Mount(article)
	require.NoError(t, err)
	eng := &fakeEngine{}

	rep := NewRenderer(eng, "mermaid", 3).Render(context.Background(), c)
	require.Len(t, rep.Results, 3)
	assert.Equal(t, 1, rep.Failed())
	assert.False(t, rep.Dropped)
	for i, res := range rep.Results {
		assert.Equal(t, i, res.Index)
		assert.True(t, strings.HasPrefix(res.ID, "mermaid-"))
		assert.True(t, strings.HasSuffix(res.ID, "-"+string(rune('0'+i))))
	}

	boxes := cascadia.MustCompile("div.mermaid-container").MatchAll(c.Root())
	require.Len(t, boxes, 2)
	for _, b := range boxes {
		v, _ := dom.Attr(b, "data-processed")
		assert.Equal(t, "true", v)
	}
	html, err := c.InnerHTML()
	require.NoError(t, err)
	assert.Less(t, strings.Index(html, `data-src="graph A"`), strings.Index(html, "boom"))
	assert.Less(t, strings.Index(html, "boom"), strings.Index(html, `data-src="graph C"`))
	assert.Contains(t, html, `<code class="language-go">fmt.Println()</code>`)
}

func TestRenderFailureKeepsSourceWithError(t *testing.T) {
	c, err := dom.Mount(article)
	require.NoError(t, err)

	NewRenderer(&fakeEngine{}, "mermaid", 1).Render(context.Background(), c)

	failed := cascadia.MustCompile("pre.diagram-error > code").MatchAll(c.Root())
	require.Len(t, failed, 1)
	text := dom.TextContent(failed[0])
	assert.True(t, strings.HasPrefix(text, "Error rendering diagram:\n"))
	assert.Contains(t, text, "parse error on line 1")
	assert.True(t, strings.HasSuffix(text, "\n\ngraph boom"))
}

func TestRenderDropsResultsAfterUnmount(t *testing.T) {
	c, err := dom.Mount(article)
	require.NoError(t, err)
	before, err := c.InnerHTML()
	require.NoError(t, err)

	eng := &fakeEngine{block: make(chan struct{}), entered: make(chan struct{}, 8)}
	done := make(chan Report)
	go func() {
		done <- NewRenderer(eng, "mermaid", 2).Render(context.Background(), c)
	}()

	<-eng.entered
	c.Unmount()
	close(eng.block)
	rep := <-done

	assert.True(t, rep.Dropped)
	after, err := c.InnerHTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, cascadia.MustCompile("div.mermaid-container").MatchAll(c.Root()))
}

func TestRenderCancelledContext(t *testing.T) {
	c, err := dom.Mount(article)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	eng := &fakeEngine{block: make(chan struct{})}
	done := make(chan Report)
	go func() { done <- NewRenderer(eng, "mermaid", 3).Render(ctx, c) }()
	cancel()
	rep := <-done

	assert.True(t, rep.Dropped)
	assert.Empty(t, cascadia.MustCompile("div.mermaid-container, pre.diagram-error").MatchAll(c.Root()))
}

func TestRenderWithoutEngine(t *testing.T) {
	c, err := dom.Mount(article)
	require.NoError(t, err)
	rep := NewRenderer(nil, "", 0).Render(context.Background(), c)
	assert.True(t, rep.Skipped)
	assert.Len(t, cascadia.MustCompile("code.language-mermaid").MatchAll(c.Root()), 3)
}

func TestRenderIDsAreScopedPerRender(t *testing.T) {
	r := NewRenderer(&fakeEngine{}, "mermaid", 1)
	c1, err := dom.Mount(`<pre><code class="language-mermaid">graph C</code></pre>`)
	require.NoError(t, err)
	c2, err := dom.Mount(`<pre><code class="language-mermaid">graph C</code></pre>`)
	require.NoError(t, err)

	a := r.Render(context.Background(), c1)
	b := r.Render(context.Background(), c2)
	assert.NotEqual(t, a.Results[0].ID, b.Results[0].ID)
}

func TestNewMermaidCLIMissingBinary(t *testing.T) {
	_, err := NewMermaidCLI("/nonexistent/mmdc-binary", "default")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngineUnavailable))
}
