package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/mapf-exec/internal/vis/state"
)

// Timeline scrubs through the retained tick history.
type Timeline struct {
	state    *state.State
	dragging bool
}

// NewTimeline creates a timeline widget.
func NewTimeline(st *state.State) *Timeline {
	return &Timeline{state: st}
}

// Layout renders the timeline.
func (t *Timeline) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	const height, margin, trackHeight = 60, 20, 6
	width := gtx.Constraints.Max.X
	trackWidth := width - 2*margin
	trackY := height / 2

	paint.FillShape(gtx.Ops, color.NRGBA{R: 35, G: 38, B: 42, A: 255}, clip.Rect(image.Rect(0, 0, width, height)).Op())
	t.handlePointerEvents(gtx, height, margin, trackWidth)

	track := image.Rect(margin, trackY-trackHeight/2, margin+trackWidth, trackY+trackHeight/2)
	paint.FillShape(gtx.Ops, color.NRGBA{R: 60, G: 65, B: 70, A: 255}, clip.Rect(track).Op())

	fill := int(float64(trackWidth) * t.state.Progress())
	fillCol := color.NRGBA{R: 100, G: 180, B: 255, A: 255}
	if t.state.Live() {
		fillCol = color.NRGBA{R: 90, G: 200, B: 120, A: 255}
	}
	if fill > 0 {
		paint.FillShape(gtx.Ops, fillCol, clip.Rect(image.Rect(margin, track.Min.Y, margin+fill, track.Max.Y)).Op())
	}
	head := margin + fill
	paint.FillShape(gtx.Ops, color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		clip.Rect(image.Rect(head-6, trackY-6, head+6, trackY+6)).Op())

	st := t.state.Stats()
	mode := "paused"
	if t.state.Live() {
		mode = "live"
	}
	label := material.Label(th, 12, fmt.Sprintf("tick %d  (%d retained, %s)", st.Tick, t.state.Len(), mode))
	label.Color = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	layout.Inset{Top: unit.Dp(4), Left: unit.Dp(margin)}.Layout(gtx, label.Layout)

	return layout.Dimensions{Size: image.Point{X: width, Y: height}}
}

func (t *Timeline) handlePointerEvents(gtx layout.Context, height, margin, trackWidth int) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, height)).Push(gtx.Ops)
	event.Op(gtx.Ops, t)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{Target: t, Kinds: pointer.Press | pointer.Drag | pointer.Release})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Press:
			t.dragging = true
			t.seek(pe.Position.X, margin, trackWidth)
		case pointer.Drag:
			if t.dragging {
				t.seek(pe.Position.X, margin, trackWidth)
			}
		case pointer.Release:
			t.dragging = false
		}
	}
}

func (t *Timeline) seek(x float32, margin, trackWidth int) {
	if trackWidth <= 0 {
		return
	}
	t.state.Seek((float64(x) - float64(margin)) / float64(trackWidth))
}
