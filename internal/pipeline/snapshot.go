package pipeline

import (
	"log"

	"kumo/internal/domain/content"
	"kumo/internal/embed"
	"kumo/internal/toc"
)

// Snapshot is the part of a Result worth caching between requests.
type Snapshot struct {
	HTML     string            `json:"html"`
	Headings []content.Heading `json:"headings"`
	Scripts  []embed.Script    `json:"scripts"`
}

func (r Result) Snapshot() Snapshot {
	return Snapshot{HTML: r.HTML, Headings: r.Headings, Scripts: r.Scripts}
}

// Restore rebuilds a Result for a new page from a cached snapshot. The TOC
// and a fresh spy are derived from the cached headings.
func Restore(s *Session, snap Snapshot) Result {
	res := Result{
		HTML:     snap.HTML,
		Headings: snap.Headings,
		Scripts:  append([]embed.Script(nil), snap.Scripts...),
		Spy:      toc.NewSpy(snap.Headings),
	}
	// nothing is mounted for a cached page, only the spy is installed
	s.Attach(s.Begin(nil), res.Spy)
	html, err := toc.RenderHTML(snap.Headings, "")
	if err != nil {
		log.Printf("[toc] %v", err)
	}
	res.TOC = html
	for _, sc := range res.Scripts {
		if sc.Src != "" {
			s.Widgets.MarkLoaded()
		}
	}
	return res
}
