package algo

import (
	"context"
	"fmt"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

// TSWAP drives each agent greedily along shortest paths, swapping goals with
// agents parked on the way and rotating goals around deadlock cycles.
type TSWAP struct{}

// NewTSWAP creates a TSWAP planner.
func NewTSWAP() *TSWAP {
	return &TSWAP{}
}

func (p *TSWAP) Name() string { return "TSWAP" }

// Init checks that every agent has a goal of its own that it can reach.
func (p *TSWAP) Init(ctx context.Context, w *core.World) error {
	for _, a := range w.Agents() {
		if a.Goal == core.NoNode {
			return fmt.Errorf("agent %q: %w", a.ID, core.ErrNoGoal)
		}
	}
	return w.CheckGoals()
}

// Step activates every agent once, in id order.
func (p *TSWAP) Step(ctx context.Context, w *core.World) Outcome {
	log := logging.FromContext(ctx)
	var out Outcome

	for _, me := range w.Agents() {
		if me.Phase == core.Moving || me.AtGoal() {
			continue
		}

		next := NextHop(w, me)
		if next == me.Current {
			out.Waits++
			continue
		}

		other := w.OccupantOf(next)
		switch {
		case other == nil:
			out.Moves = append(out.Moves, w.Reserve(me.ID, next))

		case other.Phase == core.Moving:
			out.Waits++

		case other.AtGoal() && other.Goal != me.Goal:
			me.Goal, other.Goal = other.Goal, me.Goal
			out.Swaps++
			log.Info("goals swapped", "agent", me.ID, "with", other.ID,
				"goal", me.Goal, "other_goal", other.Goal)

		default:
			if cycle := findDeadlock(w, me); cycle != nil {
				rotateGoals(cycle)
				out.Rotations++
				log.Info("deadlock resolved", "origin", me.ID, "cycle", len(cycle))
			} else {
				out.Waits++
			}
		}
	}
	return out
}

// Done reports whether every agent rests at its goal.
func (p *TSWAP) Done(w *core.World) bool {
	for _, a := range w.Agents() {
		if a.Phase != core.Settled || !a.AtGoal() {
			return false
		}
	}
	return true
}

// NextHop returns the neighbor of a's current node closest to its goal.
// Neighbors tied at the minimum are chosen by StableHash(a.ID) modulo their
// count. Without any neighbor closer than the current node it returns the
// current node.
func NextHop(w *core.World, a *core.Agent) core.NodeID {
	best := w.Dist.Dist(a.Current, a.Goal)
	var cands []core.NodeID
	for _, u := range w.Graph.Neighbors(a.Current) {
		d := w.Dist.Dist(u, a.Goal)
		switch {
		case d < best:
			best = d
			cands = append(cands[:0], u)
		case d == best && len(cands) > 0:
			cands = append(cands, u)
		}
	}
	if len(cands) == 0 {
		return a.Current
	}
	return cands[StableHash(a.ID)%uint64(len(cands))]
}

// findDeadlock follows "who holds the node I want" from origin. It returns
// the chain when it closes on origin, nil when the chain reaches a free node,
// a moving agent, an agent at its goal or a loop not containing origin.
func findDeadlock(w *core.World, origin *core.Agent) []*core.Agent {
	chain := []*core.Agent{origin}
	seen := map[core.AgentID]bool{origin.ID: true}
	a := origin
	for {
		if a.Phase == core.Moving || a.AtGoal() {
			return nil
		}
		next := NextHop(w, a)
		holder := w.OccupantOf(next)
		if holder == nil {
			return nil
		}
		if holder.ID == origin.ID {
			return chain
		}
		// Loops without the origin are left to one of their members.
		if seen[holder.ID] {
			return nil
		}
		seen[holder.ID] = true
		chain = append(chain, holder)
		a = holder
	}
}

// rotateGoals gives each chain member the goal of its predecessor and the
// first member the goal of the last.
func rotateGoals(chain []*core.Agent) {
	last := chain[len(chain)-1].Goal
	for i := len(chain) - 1; i > 0; i-- {
		chain[i].Goal = chain[i-1].Goal
	}
	chain[0].Goal = last
}
