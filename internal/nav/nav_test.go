package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutFor(t *testing.T) {
	assert.Equal(t, LayoutMenu, LayoutFor(320))
	assert.Equal(t, LayoutMenu, LayoutFor(599))
	assert.Equal(t, LayoutInline, LayoutFor(600))
	assert.Equal(t, LayoutInline, LayoutFor(1440))
}

func TestBarFollowsViewport(t *testing.T) {
	v := NewViewport(1024)
	b := NewBar(v)
	defer b.Close()

	assert.Equal(t, LayoutInline, b.Layout())
	b.OpenMenu()
	assert.False(t, b.MenuOpen(), "inline layout has no menu to open")

	v.Resize(400)
	assert.Equal(t, LayoutMenu, b.Layout())
	b.OpenMenu()
	assert.True(t, b.MenuOpen())

	v.Resize(800)
	assert.Equal(t, LayoutInline, b.Layout())
	assert.False(t, b.MenuOpen(), "growing past the breakpoint collapses the menu")
}

func TestBarStartsFromCurrentWidth(t *testing.T) {
	v := NewViewport(375)
	b := NewBar(v)
	defer b.Close()
	assert.Equal(t, LayoutMenu, b.Layout())
}

func TestViewportTeardown(t *testing.T) {
	v := NewViewport(1024)
	b := NewBar(v)
	assert.Equal(t, 1, v.Subscribers())

	b.Close()
	b.Close()
	assert.Equal(t, 0, v.Subscribers())

	v.Resize(300)
	assert.Equal(t, LayoutInline, b.Layout(), "a closed bar stops following the viewport")
}

func TestViewportClose(t *testing.T) {
	v := NewViewport(1024)
	var seen []int
	v.Subscribe(func(w int) { seen = append(seen, w) })
	v.Resize(500)
	v.Resize(500)
	v.Resize(0)
	v.Close()
	v.Resize(900)

	assert.Equal(t, []int{1024, 500}, seen)
	assert.Equal(t, 0, v.Subscribers())
	assert.Equal(t, 500, v.Width())
}
