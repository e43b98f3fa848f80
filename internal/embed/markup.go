package embed

import (
	"bytes"
	"html/template"

	"github.com/cockroachdb/errors"
)

var cardTemplates = template.Must(template.New("").Parse(`
{{define "youtube"}}<div class="url-card youtube-card" data-url="{{.URL}}" data-type="youtube"><div class="url-card-embed"><iframe src="{{.EmbedURL}}" title="YouTube video player" frameborder="0" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen loading="lazy"></iframe></div><a href="{{.URL}}" target="_blank" rel="noopener noreferrer" class="url-card-link">YouTube で開く</a></div>{{end}}
{{define "nicovideo"}}<div class="url-card nicovideo-card" data-url="{{.URL}}" data-type="nicovideo"><div class="url-card-embed"><iframe src="{{.EmbedURL}}" frameborder="0" allowfullscreen loading="lazy"></iframe></div><a href="{{.URL}}" target="_blank" rel="noopener noreferrer" class="url-card-link">ニコニコ動画で開く</a></div>{{end}}
{{define "twitter"}}<div class="url-card twitter-card" data-url="{{.URL}}" data-type="twitter"><blockquote class="twitter-tweet" data-theme="{{.Theme}}"><a href="{{.StatusURL}}" target="_blank" rel="noopener noreferrer">ツイートを読み込み中...</a></blockquote><a href="{{.URL}}" target="_blank" rel="noopener noreferrer" class="url-card-link">Twitter/X で開く</a></div>{{end}}
`))

type cardData struct {
	Descriptor
	Theme string
}

// Markup renders the embed card for d. theme is "light" or "dark".
func Markup(d Descriptor, theme string) (string, error) {
	if theme == "" {
		theme = "light"
	}
	var buf bytes.Buffer
	if err := cardTemplates.ExecuteTemplate(&buf, string(d.Platform), cardData{Descriptor: d, Theme: theme}); err != nil {
		return "", errors.Wrapf(err, "render %s card", d.Platform)
	}
	return buf.String(), nil
}
