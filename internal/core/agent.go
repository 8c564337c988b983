package core

import "math"

// AgentID is a unique, stable agent identifier (typically a device address).
type AgentID string

// Agent is the per-agent execution record.
type Agent struct {
	ID      AgentID
	Current NodeID // Node settled at, or most recently departed
	Pending NodeID // Node in transit toward; NoNode when settled
	Phase   Phase

	// Last telemetry sample. Written by the tick drain only.
	LastPos Pos
	HasPos  bool

	// TSWAP and PIBT
	Goal NodeID

	// MCP
	Plan   []NodeID
	Order  []int // Required visit count of Plan[i] before entering it
	Cursor int

	// PIBT
	Priority   float64
	TieBreaker float64
}

// AtGoal reports whether the agent's current node is its goal.
func (a *Agent) AtGoal() bool {
	return a.Goal != NoNode && a.Current == a.Goal
}

// PlanDone reports whether the plan cursor reached the last plan entry.
func (a *Agent) PlanDone() bool {
	return len(a.Plan) > 0 && a.Cursor == len(a.Plan)-1
}

// NextPlanNode returns the plan entry after the cursor.
func (a *Agent) NextPlanNode() (NodeID, bool) {
	if a.Cursor+1 >= len(a.Plan) {
		return NoNode, false
	}
	return a.Plan[a.Cursor+1], true
}

// Near reports whether the last telemetry sample lies within tol of target on
// both axes.
func (a *Agent) Near(target Pos, tol float64) bool {
	if !a.HasPos {
		return false
	}
	return math.Abs(a.LastPos.X-target.X) < tol && math.Abs(a.LastPos.Y-target.Y) < tol
}

// Move is a fire-and-forget actuation request produced by a reservation.
type Move struct {
	Agent  AgentID
	From   NodeID
	To     NodeID
	Target Pos
}
