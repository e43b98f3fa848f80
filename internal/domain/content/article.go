package content

import (
	"strings"
	"time"
)

type Links struct {
	Colab string
	Demo  string
	Repo  string
}

func (l Links) Any() bool {
	return l.Colab != "" || l.Demo != "" || l.Repo != ""
}

type ArticleMeta struct {
	Title    string
	Slug     string
	Filename string
	Date     time.Time
	Modified time.Time
	Author   string

	Tags  []string
	Draft bool

	Links Links

	// card decoration
	Gradient string
	Emoji    string

	// filled by the render stage
	Headings []Heading
}

// Heading is one entry of a document outline. IDs are unique within one render pass.
type Heading struct {
	Level int
	ID    string
	Text  string
}

type BodyRef struct {
	SourcePath  string
	ContentHash string
}

type Article struct {
	Meta ArticleMeta
	Body BodyRef
}

func (m *ArticleMeta) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = strings.TrimSpace(m.Slug)
	m.Author = strings.TrimSpace(m.Author)
	m.Tags = normalizeStrings(m.Tags)
	m.Links.Colab = strings.TrimSpace(m.Links.Colab)
	m.Links.Demo = strings.TrimSpace(m.Links.Demo)
	m.Links.Repo = strings.TrimSpace(m.Links.Repo)
	if m.Title == "" {
		m.Title = TitleFromFilename(m.Filename)
	}
	if m.Gradient == "" {
		m.Gradient = GradientFor(m.Slug)
	}
	if m.Emoji == "" {
		m.Emoji = EmojiFor(m.Slug)
	}
}

// TitleFromFilename turns "my-first-post.md" into "My First Post".
func TitleFromFilename(name string) string {
	name = strings.TrimSuffix(name, ".md")
	name = strings.TrimSuffix(name, ".markdown")
	words := strings.Split(name, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// tags keep their case, only duplicates and blanks go
func normalizeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
