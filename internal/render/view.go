package render

import (
	"html/template"
	"time"

	"kumo/internal/domain/config"
	"kumo/internal/domain/content"
)

// Chrome is what every page template needs besides its own data.
type Chrome struct {
	Site     config.SiteConfig
	BasePath string
	// ThemeCSS holds the CSS custom properties of the active theme and mode.
	ThemeCSS  template.CSS
	DevReload bool
	PageTitle string
}

type ArticlePage struct {
	Chrome
	Meta     content.ArticleMeta
	HTML     template.HTML
	TOC      template.HTML
	Headings []content.Heading
	Scripts  template.HTML
	Active   string
}

type HomePage struct {
	Chrome
	Items     []content.ArticleMeta
	Tags      []TagStat
	Generated time.Time
}

type ListPage struct {
	Chrome
	Tag       string
	Items     []content.ArticleMeta
	Generated time.Time
}

type TagStat struct {
	Name  string
	Count int
}

type TagsPage struct {
	Chrome
	Tags  []TagStat
	Total int
}

type NotFoundPage struct {
	Chrome
	Path string
}

// ErrorPage is the visible "failed to load" state shown in place of content.
type ErrorPage struct {
	Chrome
	Message string
}
