package site

import (
	"fmt"
	"strings"
)

type RouteKind string

const (
	RouteIndex      RouteKind = "index"
	RouteArticle    RouteKind = "article"
	RouteTags       RouteKind = "tags"
	RouteTag        RouteKind = "tag"
	RouteNotFound   RouteKind = "404"
	RouteStylesheet RouteKind = "stylesheet"
	RouteData       RouteKind = "data"
)

// Route is one output of a site build.
type Route struct {
	Kind    RouteKind
	Slug    string
	Key     string
	Page    int
	OutPath string
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.Key != "" {
		parts = append(parts, "key="+r.Key)
	}
	if r.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", r.Page))
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}

// SafeSegment reports whether s can be used as a single path segment.
func SafeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\?#`)
}
