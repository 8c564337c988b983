// Package interact handles pan and zoom of the graph view.
package interact

import (
	"gioui.org/io/pointer"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

const (
	minZoom = 0.05
	maxZoom = 20
)

// Camera maps world coordinates to screen pixels.
type Camera struct {
	OffsetX float32 // Pan offset in screen pixels
	OffsetY float32
	Zoom    float32 // Pixels per world unit

	fitted   bool
	dragging bool
	lastX    float32
	lastY    float32
}

// NewCamera creates an unfitted camera. The first Fit call frames the graph.
func NewCamera() *Camera {
	return &Camera{Zoom: 1}
}

// Reset forgets the current view; the next Fit reframes the graph.
func (c *Camera) Reset() {
	c.fitted = false
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(p core.Pos) (x, y float32) {
	return float32(p.X)*c.Zoom + c.OffsetX, float32(p.Y)*c.Zoom + c.OffsetY
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(x, y float32) core.Pos {
	return core.Pos{X: float64((x - c.OffsetX) / c.Zoom), Y: float64((y - c.OffsetY) / c.Zoom)}
}

// HandleEvent pans on secondary-button drag and zooms on scroll around the
// pointer.
func (c *Camera) HandleEvent(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary)
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y
	case pointer.Drag:
		if c.dragging {
			c.OffsetX += ev.Position.X - c.lastX
			c.OffsetY += ev.Position.Y - c.lastY
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y
	case pointer.Release:
		c.dragging = false
	case pointer.Scroll:
		switch {
		case ev.Scroll.Y > 0:
			c.ZoomBy(1/1.1, ev.Position.X, ev.Position.Y)
		case ev.Scroll.Y < 0:
			c.ZoomBy(1.1, ev.Position.X, ev.Position.Y)
		}
	}
}

// ZoomBy scales the view by factor, keeping the world point under the
// screen point (cx, cy) fixed.
func (c *Camera) ZoomBy(factor, cx, cy float32) {
	anchor := c.ScreenToWorld(cx, cy)
	c.Zoom = clamp(c.Zoom*factor, minZoom, maxZoom)
	sx, sy := c.WorldToScreen(anchor)
	c.OffsetX += cx - sx
	c.OffsetY += cy - sy
}

// Fit frames g in a w x h viewport with margin pixels on each side. It
// does nothing once fitted until Reset is called.
func (c *Camera) Fit(g *core.Graph, w, h, margin float32) {
	if c.fitted || g == nil || g.Len() == 0 || w <= 2*margin || h <= 2*margin {
		return
	}
	lo, hi := Bounds(g)
	spanX, spanY := float32(hi.X-lo.X), float32(hi.Y-lo.Y)

	zoom := float32(maxZoom)
	if spanX > 0 {
		zoom = min(zoom, (w-2*margin)/spanX)
	}
	if spanY > 0 {
		zoom = min(zoom, (h-2*margin)/spanY)
	}
	c.Zoom = clamp(zoom, minZoom, maxZoom)

	cx, cy := float32(lo.X+hi.X)/2, float32(lo.Y+hi.Y)/2
	c.OffsetX = w/2 - cx*c.Zoom
	c.OffsetY = h/2 - cy*c.Zoom
	c.fitted = true
}

// Bounds returns the bounding box of the node positions of g.
func Bounds(g *core.Graph) (lo, hi core.Pos) {
	for i, id := range g.IDs() {
		p := g.Pos(id)
		if i == 0 {
			lo, hi = p, p
			continue
		}
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	return lo, hi
}

func clamp(v, lo, hi float32) float32 {
	return min(hi, max(lo, v))
}
