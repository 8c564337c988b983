package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/mapf-exec/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/state"
)

// Toolbar holds the playback buttons and the run status.
type Toolbar struct {
	state  *state.State
	camera *interact.Camera
	title  string

	rewindBtn   widget.Clickable
	stepBackBtn widget.Clickable
	pauseBtn    widget.Clickable
	stepFwdBtn  widget.Clickable
	liveBtn     widget.Clickable
	fitBtn      widget.Clickable
}

// NewToolbar creates a toolbar. title names the planner.
func NewToolbar(st *state.State, camera *interact.Camera, title string) *Toolbar {
	return &Toolbar{state: st, camera: camera, title: title}
}

// Layout renders the toolbar.
func (t *Toolbar) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	paint.FillShape(gtx.Ops, color.NRGBA{R: 40, G: 43, B: 48, A: 255},
		clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, 48)).Op())
	t.handleClicks(gtx)

	pause := "||"
	if !t.state.Live() {
		pause = ">"
	}
	return layout.Inset{Left: unit.Dp(10), Right: unit.Dp(10), Top: unit.Dp(8), Bottom: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.rewindBtn, "|<", false) }),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.stepBackBtn, "<", false) }),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.pauseBtn, pause, false) }),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.stepFwdBtn, ">", false) }),
			layout.Rigid(layout.Spacer{Width: unit.Dp(4)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return button(gtx, th, &t.liveBtn, "live", t.state.Live())
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(12)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return button(gtx, th, &t.fitBtn, "fit", false) }),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions { return layout.Dimensions{} }),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions { return t.layoutStatus(gtx, th) }),
		)
	})
}

func (t *Toolbar) layoutStatus(gtx layout.Context, th *material.Theme) layout.Dimensions {
	st := t.state.Stats()
	text := fmt.Sprintf("%s  agents %d  moving %d  at goal %d", t.title, st.Agents, st.Moving, st.AtGoal)
	if st.Done {
		text += "  done"
	}
	label := material.Label(th, 13, text)
	label.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
	return label.Layout(gtx)
}

func (t *Toolbar) handleClicks(gtx layout.Context) {
	for t.rewindBtn.Clicked(gtx) {
		t.state.Rewind()
	}
	for t.stepBackBtn.Clicked(gtx) {
		t.state.StepBack()
	}
	for t.pauseBtn.Clicked(gtx) {
		t.state.TogglePause()
	}
	for t.stepFwdBtn.Clicked(gtx) {
		t.state.StepForward()
	}
	for t.liveBtn.Clicked(gtx) {
		t.state.GoLive()
	}
	for t.fitBtn.Clicked(gtx) {
		t.camera.Reset()
	}
}

func button(gtx layout.Context, th *material.Theme, btn *widget.Clickable, text string, active bool) layout.Dimensions {
	bg := color.NRGBA{R: 55, G: 58, B: 65, A: 255}
	if active {
		bg = color.NRGBA{R: 80, G: 130, B: 180, A: 255}
	}
	if btn.Hovered() {
		bg.R = min(bg.R+15, 255)
		bg.G = min(bg.G+15, 255)
		bg.B = min(bg.B+15, 255)
	}
	return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Background{}.Layout(gtx,
			func(gtx layout.Context) layout.Dimensions {
				gtx.Constraints.Min = image.Point{X: 32, Y: 28}
				paint.FillShape(gtx.Ops, bg, clip.Rect(image.Rect(0, 0, gtx.Constraints.Min.X, gtx.Constraints.Min.Y)).Op())
				return layout.Dimensions{Size: gtx.Constraints.Min}
			},
			func(gtx layout.Context) layout.Dimensions {
				return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					label := material.Label(th, 12, text)
					label.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
					return label.Layout(gtx)
				})
			},
		)
	})
}
