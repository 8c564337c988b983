// Package widgets provides Gio UI widgets for the viewer.
package widgets

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/mapf-exec/internal/vis/draw"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/state"
)

const trailLength = 30

// Workspace is the graph view.
type Workspace struct {
	state  *state.State
	camera *interact.Camera
}

// NewWorkspace creates a graph view.
func NewWorkspace(st *state.State, camera *interact.Camera) *Workspace {
	return &Workspace{state: st, camera: camera}
}

// Layout renders the graph, the ledger and the agents of the snapshot
// under the cursor.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	w.camera.Fit(w.state.Graph, float32(bounds.X), float32(bounds.Y), 40)
	w.handlePointerEvents(gtx)

	snap := w.state.Current()
	if snap == nil {
		draw.DrawGraph(gtx, w.state.Graph, nil, w.camera)
		return layout.Dimensions{Size: bounds}
	}

	draw.DrawGraph(gtx, w.state.Graph, draw.NodeStates(snap), w.camera)
	selected := w.state.Selected()
	for _, a := range snap.Agents {
		if trail := w.state.Trail(a.ID, trailLength); len(trail) > 1 {
			draw.DrawTrail(gtx, trail, w.camera, draw.AgentColor(a, a.ID == selected), 3)
		}
	}
	draw.DrawAgents(gtx, w.state.Graph, snap, w.camera, selected)

	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		w.camera.HandleEvent(pe)
		if pe.Kind == pointer.Press && pe.Buttons.Contain(pointer.ButtonPrimary) {
			w.handleClick(pe.Position.X, pe.Position.Y)
		}
	}
}

func (w *Workspace) handleClick(x, y float32) {
	snap := w.state.Current()
	if snap == nil {
		return
	}
	id, _ := draw.FindAgentAt(x, y, w.state.Graph, snap, w.camera)
	w.state.Select(id)
}
