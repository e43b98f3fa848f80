package app

import (
	"log"
	"path/filepath"

	"kumo/internal/domain/content"
	"kumo/internal/domain/site"
	"kumo/internal/index"
)

type RouteBuilder struct {
	Index *index.Store
}

func (rb *RouteBuilder) BuildArticleRoutes(articles []content.ArticleMeta) []site.Route {
	var routes []site.Route
	for _, m := range articles {
		if !site.SafeSegment(m.Slug) {
			log.Printf("[routes] skipping article with unsafe slug %q", m.Slug)
			continue
		}
		routes = append(routes, site.Route{
			Kind:    site.RouteArticle,
			Slug:    m.Slug,
			OutPath: filepath.Join("articles", m.Slug, "index.html"),
		})
	}
	return routes
}

func (rb *RouteBuilder) BuildTagRoutes() ([]site.Route, error) {
	tags, err := rb.Index.Tags()
	if err != nil {
		return nil, err
	}
	var routes []site.Route
	for _, t := range tags {
		if !site.SafeSegment(t.Name) {
			log.Printf("[routes] skipping tag with unsafe name %q", t.Name)
			continue
		}
		routes = append(routes, site.Route{
			Kind:    site.RouteTag,
			Key:     t.Name,
			OutPath: filepath.Join("tags", t.Name, "index.html"),
		})
	}
	return routes, nil
}

// BuildSiteRoutes lists the pages that exist regardless of content.
func (rb *RouteBuilder) BuildSiteRoutes() []site.Route {
	return []site.Route{
		{Kind: site.RouteIndex, OutPath: "index.html"},
		{Kind: site.RouteTags, OutPath: filepath.Join("tags", "index.html")},
		{Kind: site.RouteNotFound, OutPath: "404.html"},
		{Kind: site.RouteStylesheet, OutPath: filepath.Join("css", "highlight.css")},
	}
}
