package algo

import (
	"context"
	"errors"
	"testing"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// createGrid builds an n x n unit grid.
func createGrid(t *testing.T, n int) *core.Graph {
	t.Helper()
	g, err := core.NewGraph(core.GridSpec(n, n, 1))
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

// createWorld places goal-driven agents on g.
func createWorld(t *testing.T, g *core.Graph, agents map[core.AgentID]core.AgentSpec) *core.World {
	t.Helper()
	w, err := (&core.Instance{Graph: g, Agents: agents}).World(0.1)
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	return w
}

// runTicks drives p the way the scheduler does, with every commanded agent
// reporting its target position right away. It stops once p is done and
// returns the number of ticks run and the summed outcome.
func runTicks(t *testing.T, w *core.World, p Planner, maxTicks int) (int, Outcome) {
	t.Helper()
	ctx := context.Background()
	if err := p.Init(ctx, w); err != nil {
		t.Fatalf("%s.Init: %v", p.Name(), err)
	}

	var total Outcome
	for tick := 1; tick <= maxTicks; tick++ {
		w.UpdateArrivals()
		out := p.Step(ctx, w)
		for _, m := range out.Moves {
			if err := w.Observe(m.Agent, m.Target); err != nil {
				t.Fatal(err)
			}
		}
		total.Moves = append(total.Moves, out.Moves...)
		total.Swaps += out.Swaps
		total.Rotations += out.Rotations
		total.Waits += out.Waits
		total.Reassigned += out.Reassigned

		if err := w.Check(); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if p.Done(w) {
			return tick, total
		}
	}
	return maxTicks, total
}

func TestNewByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"tswap", "TSWAP"},
		{"mcp", "MCP"},
		{"pibt", "PIBT"},
	}
	for _, tt := range tests {
		p, err := NewByName(tt.name, Options{})
		if err != nil {
			t.Fatalf("NewByName(%q) error = %v", tt.name, err)
		}
		if p.Name() != tt.want {
			t.Errorf("NewByName(%q).Name() = %s, want %s", tt.name, p.Name(), tt.want)
		}
	}
	if _, err := NewByName("cbs", Options{}); !errors.Is(err, core.ErrUnknownPlanner) {
		t.Errorf("NewByName(cbs) error = %v, want ErrUnknownPlanner", err)
	}
}

func TestStableHash(t *testing.T) {
	tests := []struct {
		id   core.AgentID
		want uint64
	}{
		{"a", 10},
		{"ff", 255},
		{"d1a0c4e9b2f3", 0xd1a0c4e9b2f3},
	}
	for _, tt := range tests {
		if got := StableHash(tt.id); got != tt.want {
			t.Errorf("StableHash(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}

	if StableHash("robot-1") != StableHash("robot-1") {
		t.Error("StableHash not deterministic")
	}
	if StableHash("robot-1") == StableHash("robot-2") {
		t.Error("StableHash collides on robot-1 / robot-2")
	}
}
