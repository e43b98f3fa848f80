package embed

import (
	"fmt"
	"html/template"
	"sync"
	"time"
)

// Script is a <script> element the page must carry.
type Script struct {
	Src    string
	Async  bool
	Inline string
}

func (s Script) HTML() template.HTML {
	if s.Src != "" {
		async := ""
		if s.Async {
			async = " async"
		}
		return template.HTML(fmt.Sprintf(`<script src="%s"%s charset="utf-8"></script>`, template.HTMLEscapeString(s.Src), async))
	}
	return template.HTML("<script>" + s.Inline + "</script>")
}

// WidgetLoader tracks the microblog widget script for one page session.
// The loading flag flips before the script is handed out, so two embeds
// detected back to back still inject it once.
type WidgetLoader struct {
	src string

	mu      sync.Mutex
	loading bool
	loaded  bool
}

func NewWidgetLoader(src string) *WidgetLoader {
	return &WidgetLoader{src: src}
}

// Request returns the script to inject, or false if it is already loading or loaded.
func (l *WidgetLoader) Request() (Script, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded || l.loading {
		return Script{}, false
	}
	l.loading = true
	return Script{Src: l.src, Async: true}, true
}

// MarkLoaded is the completion callback once the page carries the script.
func (l *WidgetLoader) MarkLoaded() {
	l.mu.Lock()
	l.loading = false
	l.loaded = true
	l.mu.Unlock()
}

func (l *WidgetLoader) State() (loading, loaded bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading, l.loaded
}

// RescanScript asks the widget library to hydrate placeholders inserted after
// it first ran.
func RescanScript(delay time.Duration) Script {
	return Script{Inline: fmt.Sprintf(
		"setTimeout(function () { if (window.twttr && window.twttr.widgets) { window.twttr.widgets.load(); } }, %d);",
		delay.Milliseconds(),
	)}
}
