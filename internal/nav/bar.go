package nav

import "sync"

// MenuBreakpoint is the narrowest width that still shows inline buttons.
const MenuBreakpoint = 600

// Layout is how the bar presents its items.
type Layout string

const (
	LayoutInline Layout = "inline"
	LayoutMenu   Layout = "menu"
)

// LayoutFor picks the layout for a viewport width.
func LayoutFor(width int) Layout {
	if width < MenuBreakpoint {
		return LayoutMenu
	}
	return LayoutInline
}

// Item is one navigation entry. OpensResume items open the resume dialog
// instead of following Href.
type Item struct {
	Key         string
	Label       string
	Href        string
	OpensResume bool
}

// Items are the bar entries in display order.
var Items = []Item{
	{Key: "projects", Label: "Projects", Href: "/#featured-projects"},
	{Key: "contact", Label: "Contact", Href: "/#contact"},
	{Key: "resume", Label: "Resume", OpensResume: true},
}

// Bar follows a Viewport and holds the collapsible menu state.
type Bar struct {
	mu          sync.Mutex
	layout      Layout
	menuOpen    bool
	unsubscribe func()
}

// NewBar subscribes to v. Call Close to stop following it.
func NewBar(v *Viewport) *Bar {
	b := &Bar{layout: LayoutInline}
	b.unsubscribe = v.Subscribe(b.resized)
	return b
}

func (b *Bar) resized(width int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.layout = LayoutFor(width)
	if b.layout == LayoutInline {
		b.menuOpen = false
	}
}

// Layout returns the current layout.
func (b *Bar) Layout() Layout {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layout
}

// OpenMenu expands the collapsed menu. It does nothing in inline layout.
func (b *Bar) OpenMenu() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.layout == LayoutMenu {
		b.menuOpen = true
	}
}

// CloseMenu collapses the menu, e.g. after an item was picked.
func (b *Bar) CloseMenu() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.menuOpen = false
}

// MenuOpen reports whether the collapsed menu is expanded.
func (b *Bar) MenuOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.menuOpen
}

// Close detaches the bar from its viewport.
func (b *Bar) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}
