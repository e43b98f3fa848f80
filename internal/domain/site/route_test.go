package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteString(t *testing.T) {
	r := Route{Kind: RouteArticle, Slug: "hello", OutPath: "articles/hello/index.html"}
	assert.Equal(t, "article slug=hello out=articles/hello/index.html", r.String())
	assert.Equal(t, "tag key=go page=2", Route{Kind: RouteTag, Key: "go", Page: 2}.String())
}

func TestSafeSegment(t *testing.T) {
	assert.True(t, SafeSegment("日本語"))
	assert.True(t, SafeSegment("c++"))
	assert.False(t, SafeSegment(".."))
	assert.False(t, SafeSegment("a/b"))
	assert.False(t, SafeSegment(""))
}
