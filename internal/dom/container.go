// Package dom holds the mounted article tree that the post-render stages mutate.
package dom

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/andybalholm/cascadia"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerClass marks the element every article fragment is mounted into.
const ContainerClass = "article-content"

// Container is a mounted article subtree. Stages that finish after Unmount
// must not touch it; Mutate enforces that.
type Container struct {
	root    *html.Node
	mu      sync.Mutex
	mounted atomic.Bool
}

// Mount parses fragment as the children of a fresh div.article-content.
func Mount(fragment string) (*Container, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: ContainerClass}},
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, errors.Wrap(err, "parse article fragment")
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	c := &Container{root: root}
	c.mounted.Store(true)
	return c, nil
}

func (c *Container) Mounted() bool {
	return c != nil && c.mounted.Load()
}

// Unmount detaches the container. Pending async stages become no-ops.
func (c *Container) Unmount() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mounted.Store(false)
	c.mu.Unlock()
}

// Mutate runs fn against the tree while holding the container lock.
// It reports false, without calling fn, once the container is unmounted.
func (c *Container) Mutate(fn func(root *html.Node)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted.Load() {
		return false
	}
	fn(c.root)
	return true
}

// Query returns the matches of sel in document order.
func (c *Container) Query(sel cascadia.Selector) []*html.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sel.MatchAll(c.root)
}

// InnerHTML serializes the container children.
func (c *Container) InnerHTML() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return InnerHTML(c.root)
}

// OuterHTML serializes the container element itself.
func (c *Container) OuterHTML() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, c.root); err != nil {
		return "", errors.Wrap(err, "render container")
	}
	return buf.String(), nil
}

// Root exposes the tree for read-only inspection in tests and builders.
func (c *Container) Root() *html.Node {
	return c.root
}
