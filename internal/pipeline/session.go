package pipeline

import (
	"sync"

	"kumo/internal/dom"
	"kumo/internal/embed"
	"kumo/internal/toc"
)

// Session is one page lifetime: it owns the widget loader and whatever
// article is currently mounted.
type Session struct {
	Widgets *embed.WidgetLoader

	mu        sync.Mutex
	token     uint64
	container *dom.Container
	spy       *toc.Spy
}

func NewSession(widgetScript string) *Session {
	return &Session{Widgets: embed.NewWidgetLoader(widgetScript)}
}

// Begin mounts c as the current article. The previous container is
// unmounted and its spy disconnected, so its pending stages become no-ops.
func (s *Session) Begin(c *dom.Container) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.token++
	s.container = c
	return s.token
}

// Attach installs spy for the article started with token. It reports false,
// and disconnects spy, when another article has begun since.
func (s *Session) Attach(token uint64, spy *toc.Spy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		spy.Disconnect()
		return false
	}
	s.spy = spy
	return true
}

// Current reports whether token still names the mounted article.
func (s *Session) Current(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.token && s.container.Mounted()
}

func (s *Session) Spy() *toc.Spy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spy
}

// Close tears down the current article.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.token++
}

func (s *Session) teardownLocked() {
	if s.container != nil {
		s.container.Unmount()
		s.container = nil
	}
	if s.spy != nil {
		s.spy.Disconnect()
		s.spy = nil
	}
}
