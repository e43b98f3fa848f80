package toc

import (
	"fmt"
	"math"
	"sync"
)

// Viewport is the visible window in document coordinates.
type Viewport struct {
	ScrollY float64
	Height  float64
}

// Position is a heading's box in document coordinates.
type Position struct {
	ID     string
	Top    float64
	Height float64
}

// Observer turns scroll positions into intersection batches for a Spy.
// The tracked band starts TopMargin px below the viewport top and ends
// BottomFraction of the viewport height above its bottom.
//
// Pages get the band through RootMargin and ClientScript; Observe and Update
// model the same geometry server-side, where no layout exists, so the band
// rules can be tested without a browser.
type Observer struct {
	spy            *Spy
	topMargin      float64
	bottomFraction float64

	mu        sync.Mutex
	positions []Position
	state     map[string]bool
	closed    bool
}

func NewObserver(spy *Spy, topMarginPx, bottomFraction float64) *Observer {
	return &Observer{
		spy:            spy,
		topMargin:      topMarginPx,
		bottomFraction: bottomFraction,
		state:          make(map[string]bool),
	}
}

// Observe adds one heading. Headings are reported in the order observed.
func (o *Observer) Observe(p Position) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.positions = append(o.positions, p)
}

// Band returns the tracked vertical range for v.
func (o *Observer) Band(v Viewport) (top, bottom float64) {
	return v.ScrollY + o.topMargin, v.ScrollY + v.Height*(1-o.bottomFraction)
}

// Update recomputes intersections for v, feeds the changes to the spy and
// returns them.
func (o *Observer) Update(v Viewport) []Intersection {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	top, bottom := o.Band(v)
	var batch []Intersection
	for _, p := range o.positions {
		in := p.Top <= bottom && p.Top+p.Height >= top
		if o.state[p.ID] == in {
			continue
		}
		o.state[p.ID] = in
		batch = append(batch, Intersection{ID: p.ID, IsIntersecting: in})
	}
	o.mu.Unlock()

	if len(batch) > 0 {
		o.spy.Handle(batch)
	}
	return batch
}

// Disconnect stops observing and detaches the spy.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	o.closed = true
	o.positions = nil
	o.mu.Unlock()
	o.spy.Disconnect()
}

// RootMargin is the IntersectionObserver rootMargin matching this band.
func (o *Observer) RootMargin() string {
	return fmt.Sprintf("-%gpx 0px -%g%%", o.topMargin, math.Round(o.bottomFraction*10000)/100)
}
