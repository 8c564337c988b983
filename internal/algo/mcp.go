package algo

import (
	"context"
	"fmt"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// MCP replays precomputed plans. An agent enters its next plan node only when
// the node is free and has been left exactly as many times as the plan's
// order entry requires, which preserves the inter-agent precedence of the
// offline solution.
type MCP struct{}

// NewMCP creates a plan replay executor.
func NewMCP() *MCP {
	return &MCP{}
}

func (p *MCP) Name() string { return "MCP" }

// Init checks that every agent carries a plan aligned with its order.
func (p *MCP) Init(ctx context.Context, w *core.World) error {
	for _, a := range w.Agents() {
		if len(a.Plan) == 0 {
			return fmt.Errorf("agent %q: %w", a.ID, core.ErrEmptyPlan)
		}
		if len(a.Plan) != len(a.Order) {
			return fmt.Errorf("agent %q: %w", a.ID, core.ErrPlanOrderMismatch)
		}
	}
	return nil
}

func (p *MCP) Step(ctx context.Context, w *core.World) Outcome {
	var out Outcome
	for _, a := range w.Agents() {
		if a.Phase == core.Moving || a.PlanDone() {
			continue
		}
		next, _ := a.NextPlanNode()
		if !w.Ledger.Free(next) || !Ready(w, a) {
			out.Waits++
			continue
		}
		out.Moves = append(out.Moves, w.Reserve(a.ID, next))
	}
	return out
}

// Ready reports whether the temporal dependency of a's next plan step holds.
func Ready(w *core.World, a *core.Agent) bool {
	next, ok := a.NextPlanNode()
	if !ok {
		return false
	}
	return w.VisitedCounts[next] == a.Order[a.Cursor+1]
}

// Done reports whether every agent rests at the end of its plan.
func (p *MCP) Done(w *core.World) bool {
	for _, a := range w.Agents() {
		if a.Phase != core.Settled || !a.PlanDone() {
			return false
		}
	}
	return true
}
