package widgets

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/state"
)

const inspectorWidth = 240

// Inspector shows the selected agent under the playback cursor.
type Inspector struct {
	state *state.State
}

func NewInspector(st *state.State) *Inspector {
	return &Inspector{state: st}
}

// Lines returns the rows shown for agent id in snap, nil when the agent is
// not in the snapshot.
func (i *Inspector) Lines(snap *core.Snapshot, id core.AgentID) []string {
	if snap == nil || id == "" {
		return nil
	}
	a, ok := snap.Agent(id)
	if !ok {
		return nil
	}
	lines := []string{
		"agent " + string(a.ID),
		"node " + string(a.Current),
		"phase " + a.Phase,
	}
	if a.Pending != core.NoNode {
		lines = append(lines, "pending "+string(a.Pending))
	}
	if a.PlanLen > 0 {
		lines = append(lines, fmt.Sprintf("plan %d/%d", a.Cursor+1, a.PlanLen))
	} else {
		lines = append(lines, "goal "+string(a.Goal))
	}
	if a.Priority != 0 {
		lines = append(lines, fmt.Sprintf("priority %.2f", a.Priority))
	}
	if a.HasPos {
		lines = append(lines, fmt.Sprintf("pos %.1f, %.1f", a.Pos.X, a.Pos.Y))
	}
	if a.AtGoal {
		lines = append(lines, "at goal")
	}
	return lines
}

// Layout renders the panel, or nothing when no agent is selected.
func (i *Inspector) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	lines := i.Lines(i.state.Current(), i.state.Selected())
	if lines == nil {
		return layout.Dimensions{}
	}

	size := image.Point{X: gtx.Dp(unit.Dp(inspectorWidth)), Y: gtx.Constraints.Max.Y}
	paint.FillShape(gtx.Ops, color.NRGBA{R: 40, G: 40, B: 45, A: 255}, clip.Rect(image.Rectangle{Max: size}).Op())

	children := make([]layout.FlexChild, len(lines))
	for n, text := range lines {
		children[n] = layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Label(th, 13, text)
			label.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
			return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, label.Layout)
		})
	}
	gtx.Constraints = layout.Exact(size)
	layout.UniformInset(unit.Dp(10)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
	})
	return layout.Dimensions{Size: size}
}
