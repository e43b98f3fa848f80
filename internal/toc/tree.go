package toc

import (
	"bytes"
	"html/template"

	"github.com/cockroachdb/errors"

	"kumo/internal/domain/content"
)

type Node struct {
	content.Heading
	Active   bool
	Children []*Node
}

// Tree nests each h3 under the h2 before it. An h3 with no h2 above it
// stays at the top level.
func Tree(entries []content.Heading, activeID string) []*Node {
	var roots []*Node
	var parent *Node
	for _, e := range entries {
		n := &Node{Heading: e, Active: activeID != "" && e.ID == activeID}
		if e.Level > 2 && parent != nil {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
		if e.Level == 2 {
			parent = n
		}
	}
	return roots
}

var navTemplate = template.Must(template.New("toc").Parse(
	`{{define "items"}}<ul>{{range .}}<li><a href="#{{.ID}}" class="toc-h{{.Level}}{{if .Active}} active{{end}}" data-target="{{.ID}}">{{.Text}}</a>{{with .Children}}{{template "items" .}}{{end}}</li>{{end}}</ul>{{end}}` +
		`<nav class="toc" aria-label="目次"><p class="toc-title">目次</p>{{template "items" .}}</nav>`))

// RenderHTML renders the navigable list, marking activeID.
func RenderHTML(entries []content.Heading, activeID string) (template.HTML, error) {
	if len(entries) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := navTemplate.Execute(&buf, Tree(entries, activeID)); err != nil {
		return "", errors.Wrap(err, "render toc")
	}
	return template.HTML(buf.String()), nil
}
