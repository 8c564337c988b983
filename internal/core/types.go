// Package core defines the domain model for decentralized multi-agent path execution:
// the graph, its distance table, agent state, the occupancy ledger and the world
// aggregate that ties them together.
package core

import "fmt"

// Phase is an agent's motion phase.
type Phase int

const (
	Settled Phase = iota // Physically at Current, free to be assigned a move
	Moving               // Commanded toward Pending, which the ledger reserves
)

func (p Phase) String() string {
	return [...]string{"settled", "moving"}[p]
}

// Variant selects which planner-specific agent fields are meaningful.
type Variant int

const (
	VariantGoal     Variant = iota // TSWAP: Goal
	VariantPlan                    // MCP: Plan, Order, Cursor
	VariantLifelong                // PIBT: Goal, Priority, TieBreaker
)

var variantNames = [...]string{"tswap", "mcp", "pibt"}

func (v Variant) String() string {
	return variantNames[v]
}

// ParseVariant maps a planner name to its variant.
func ParseVariant(name string) (Variant, error) {
	for i, n := range variantNames {
		if n == name {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("planner %q: %w", name, ErrUnknownPlanner)
}
