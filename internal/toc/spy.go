package toc

import (
	"sync"

	"kumo/internal/domain/content"
)

// Intersection is one observer record: a heading entering or leaving the band.
type Intersection struct {
	ID             string
	IsIntersecting bool
}

// ScrollRequest asks the page to bring a heading into view.
type ScrollRequest struct {
	ID       string
	Behavior string
}

// Spy holds the active heading id. Handle is the only writer driven by
// observation; Click writes optimistically ahead of it.
type Spy struct {
	mu           sync.Mutex
	known        map[string]bool
	active       string
	disconnected bool
	listeners    []func(id string)
}

func NewSpy(entries []content.Heading) *Spy {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}
	return &Spy{known: known}
}

// OnChange registers fn to run after the active id changes.
func (s *Spy) OnChange(fn func(id string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Handle applies one observation batch. The last intersecting entry wins.
func (s *Spy) Handle(batch []Intersection) {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return
	}
	next := s.active
	for _, e := range batch {
		if e.IsIntersecting && s.known[e.ID] {
			next = e.ID
		}
	}
	s.setLocked(next)
}

// Click marks id active right away and returns the smooth scroll to perform.
func (s *Spy) Click(id string) (ScrollRequest, bool) {
	s.mu.Lock()
	if s.disconnected || !s.known[id] {
		s.mu.Unlock()
		return ScrollRequest{}, false
	}
	s.setLocked(id)
	return ScrollRequest{ID: id, Behavior: "smooth"}, true
}

// setLocked must be called with s.mu held and releases it.
func (s *Spy) setLocked(id string) {
	changed := id != s.active
	s.active = id
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(id)
	}
}

func (s *Spy) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Disconnect detaches the spy from its article; later batches and clicks
// are ignored.
func (s *Spy) Disconnect() {
	s.mu.Lock()
	s.disconnected = true
	s.listeners = nil
	s.mu.Unlock()
}

func (s *Spy) Disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}
