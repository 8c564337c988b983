// Package draw renders the graph, the ledger and the agents.
package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/interact"
)

// NodeState classifies a node for coloring.
type NodeState int

const (
	NodeFree     NodeState = iota
	NodeOccupied           // Owner is settled on it
	NodeReserved           // Owner is moving onto it
)

var (
	ColorNodeFree     = color.NRGBA{R: 100, G: 120, B: 140, A: 255}
	ColorNodeOccupied = color.NRGBA{R: 80, G: 180, B: 100, A: 255}
	ColorNodeReserved = color.NRGBA{R: 230, G: 170, B: 60, A: 255}
	ColorEdge         = color.NRGBA{R: 80, G: 90, B: 100, A: 180}
	ColorGoal         = color.NRGBA{R: 220, G: 220, B: 230, A: 200}
)

// NodeStates classifies every ledger entry of snap. Nodes not in the
// result are free.
func NodeStates(snap *core.Snapshot) map[core.NodeID]NodeState {
	out := make(map[core.NodeID]NodeState, len(snap.Ledger))
	pending := make(map[core.NodeID]bool)
	for _, a := range snap.Agents {
		if a.Pending != core.NoNode {
			pending[a.Pending] = true
		}
	}
	for v := range snap.Ledger {
		if pending[v] {
			out[v] = NodeReserved
		} else {
			out[v] = NodeOccupied
		}
	}
	return out
}

// NodeColor returns the fill color for a node state.
func NodeColor(s NodeState) color.NRGBA {
	switch s {
	case NodeOccupied:
		return ColorNodeOccupied
	case NodeReserved:
		return ColorNodeReserved
	default:
		return ColorNodeFree
	}
}

// DrawGraph renders edges, then nodes colored by ledger state.
func DrawGraph(gtx layout.Context, g *core.Graph, states map[core.NodeID]NodeState, camera *interact.Camera) {
	for _, id := range g.IDs() {
		for _, u := range g.Neighbors(id) {
			// Each undirected edge once.
			if core.NodeIDLess(u, id) {
				continue
			}
			DrawEdge(gtx, g.Pos(id), g.Pos(u), camera, ColorEdge)
		}
	}
	for _, id := range g.IDs() {
		DrawNode(gtx, g.Pos(id), camera, NodeColor(states[id]), 6)
	}
}

// DrawNode draws a node as a filled circle.
func DrawNode(gtx layout.Context, pos core.Pos, camera *interact.Camera, col color.NRGBA, radius float32) {
	x, y := camera.WorldToScreen(pos)
	fillCircle(gtx, x, y, max(2, radius*camera.Zoom/2), col)
}

// DrawEdge draws a line between two positions.
func DrawEdge(gtx layout.Context, p1, p2 core.Pos, camera *interact.Camera, col color.NRGBA) {
	x1, y1 := camera.WorldToScreen(p1)
	x2, y2 := camera.WorldToScreen(p2)
	drawSegment(gtx, x1, y1, x2, y2, 2, col)
}

// HitTest reports whether the screen point lies within radius pixels of pos.
func HitTest(sx, sy float32, pos core.Pos, camera *interact.Camera, radius float32) bool {
	x, y := camera.WorldToScreen(pos)
	dx, dy := sx-x, sy-y
	return dx*dx+dy*dy <= radius*radius
}

func fillCircle(gtx layout.Context, cx, cy, r float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(cx+r, cy))
	const segments = 16
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / segments
		path.LineTo(f32.Pt(cx+r*float32(math.Cos(angle)), cy+r*float32(math.Sin(angle))))
	}
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func strokeCircle(gtx layout.Context, cx, cy, r, width float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(cx+r, cy))
	const segments = 24
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / segments
		path.LineTo(f32.Pt(cx+r*float32(math.Cos(angle)), cy+r*float32(math.Sin(angle))))
	}
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Stroke{Path: path.End(), Width: width}.Op())
}

func drawSegment(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx, dy := x2-x1, y2-y1
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length < 0.1 {
		return
	}
	px := -dy / length * width / 2
	py := dx / length * width / 2

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1+px, y1+py))
	path.LineTo(f32.Pt(x2+px, y2+py))
	path.LineTo(f32.Pt(x2-px, y2-py))
	path.LineTo(f32.Pt(x1-px, y1-py))
	path.Close()
	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}
