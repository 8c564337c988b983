package draw

import (
	"image/color"

	"gioui.org/layout"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/interact"
)

var (
	ColorAgentSettled  = color.NRGBA{R: 100, G: 200, B: 255, A: 255}
	ColorAgentMoving   = color.NRGBA{R: 255, G: 150, B: 100, A: 255}
	ColorAgentAtGoal   = color.NRGBA{R: 120, G: 230, B: 120, A: 255}
	ColorAgentSelected = color.NRGBA{R: 255, G: 255, B: 100, A: 255}
)

// AgentColor returns the fill color of an agent.
func AgentColor(a core.AgentView, selected bool) color.NRGBA {
	switch {
	case selected:
		return ColorAgentSelected
	case a.Phase == core.Moving.String():
		return ColorAgentMoving
	case a.AtGoal:
		return ColorAgentAtGoal
	default:
		return ColorAgentSettled
	}
}

// AgentPos is where an agent is drawn: its last reported position, or its
// current node before any telemetry.
func AgentPos(g *core.Graph, a core.AgentView) core.Pos {
	if a.HasPos {
		return a.Pos
	}
	return g.Pos(a.Current)
}

// DrawAgents draws every agent of snap with a line to its pending node and
// a ring on its goal.
func DrawAgents(gtx layout.Context, g *core.Graph, snap *core.Snapshot, camera *interact.Camera, selected core.AgentID) {
	size := max(5, 8*camera.Zoom/2)
	for _, a := range snap.Agents {
		col := AgentColor(a, a.ID == selected)
		pos := AgentPos(g, a)
		x, y := camera.WorldToScreen(pos)

		if a.Goal != core.NoNode && !a.AtGoal {
			gx, gy := camera.WorldToScreen(g.Pos(a.Goal))
			ring := col
			ring.A = 140
			strokeCircle(gtx, gx, gy, size+3, 2, ring)
		}
		if a.Pending != core.NoNode {
			px, py := camera.WorldToScreen(g.Pos(a.Pending))
			line := col
			line.A = 160
			drawSegment(gtx, x, y, px, py, 2, line)
		}
		fillCircle(gtx, x, y, size, col)
	}
}

// FindAgentAt returns the agent drawn under the screen point.
func FindAgentAt(sx, sy float32, g *core.Graph, snap *core.Snapshot, camera *interact.Camera) (core.AgentID, bool) {
	for _, a := range snap.Agents {
		if HitTest(sx, sy, AgentPos(g, a), camera, 12) {
			return a.ID, true
		}
	}
	return "", false
}
