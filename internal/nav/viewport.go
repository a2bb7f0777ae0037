// Package nav decides how the site's navigation bar lays out for the
// visitor's viewport.
package nav

import "sync"

// Viewport tracks the width a browser last reported and tells subscribers
// when it changes. The zero value is not usable; call NewViewport.
type Viewport struct {
	mu     sync.Mutex
	width  int
	nextID int
	subs   map[int]func(width int)
	closed bool
}

// NewViewport starts observing at width.
func NewViewport(width int) *Viewport {
	return &Viewport{width: width, subs: make(map[int]func(int))}
}

// Width returns the last reported width.
func (v *Viewport) Width() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width
}

// Resize records a new width and notifies subscribers when it differs from
// the previous one. Non-positive widths are ignored.
func (v *Viewport) Resize(width int) {
	if width <= 0 {
		return
	}
	v.mu.Lock()
	if v.closed || width == v.width {
		v.mu.Unlock()
		return
	}
	v.width = width
	fns := make([]func(int), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(width)
	}
}

// Subscribe registers fn for width changes and calls it once with the
// current width. The returned function removes the subscription and is safe
// to call more than once.
func (v *Viewport) Subscribe(fn func(width int)) (unsubscribe func()) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return func() {}
	}
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	width := v.width
	v.mu.Unlock()

	fn(width)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (v *Viewport) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Close drops every subscriber; later Resize and Subscribe calls are no-ops.
func (v *Viewport) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.subs = make(map[int]func(int))
}
