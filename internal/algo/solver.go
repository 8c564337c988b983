// Package algo implements decentralized path execution planners.
package algo

import (
	"context"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// Planner decides, once per tick, which settled agents start moving.
//
// Step runs after arrivals have been evaluated and mutates the world only
// through core.World reservations. It never blocks.
type Planner interface {
	// Name returns the algorithm name.
	Name() string

	// Init prepares agent fields before the first tick.
	Init(ctx context.Context, w *core.World) error

	// Step plans one tick and returns the moves to issue.
	Step(ctx context.Context, w *core.World) Outcome

	// Done reports global termination.
	Done(w *core.World) bool
}

// Outcome is the result of one planning tick.
type Outcome struct {
	Moves      []core.Move
	Swaps      int // Goal swaps with an agent resting at its goal
	Rotations  int // Deadlock cycles resolved by goal rotation
	Waits      int // Settled agents that could not move this tick
	Reassigned int // Fresh goals handed out (lifelong)
}

// New returns the planner for variant v.
func New(v core.Variant, opts Options) Planner {
	switch v {
	case core.VariantPlan:
		return NewMCP()
	case core.VariantLifelong:
		return NewPIBT(opts.Goals)
	default:
		return NewTSWAP()
	}
}

// NewByName parses name and returns its planner.
func NewByName(name string, opts Options) (Planner, error) {
	v, err := core.ParseVariant(name)
	if err != nil {
		return nil, err
	}
	return New(v, opts), nil
}

// Options configures planner construction.
type Options struct {
	Goals GoalPolicy // PIBT goal reassignment; random when nil
}
