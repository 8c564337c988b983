package algo

import (
	"context"
	"errors"
	"testing"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

func createPlanWorld(t *testing.T, g *core.Graph, plans map[core.AgentID]core.PlanSpec) *core.World {
	t.Helper()
	w, err := (&core.Instance{Graph: g, Plans: plans}).World(0.1)
	if err != nil {
		t.Fatalf("World: %v", err)
	}
	return w
}

func TestMCPRespectsVisitOrder(t *testing.T) {
	// z crosses node 1 first; b may enter 1 only after it was left once.
	w := createPlanWorld(t, createGrid(t, 3), map[core.AgentID]core.PlanSpec{
		"z": {Plan: []core.NodeID{"0", "1", "2"}, Order: []int{0, 0, 0}},
		"b": {Plan: []core.NodeID{"4", "1", "7"}, Order: []int{0, 1, 0}},
	})
	b, _ := w.Agent("b")

	p := NewMCP()
	ctx := context.Background()
	if err := p.Init(ctx, w); err != nil {
		t.Fatal(err)
	}

	// Node 1 is free but has not been visited yet.
	out := p.Step(ctx, w)
	if b.Phase != core.Settled {
		t.Fatal("b moved onto node 1 before z visited it")
	}
	if len(out.Moves) != 1 || out.Moves[0].Agent != "z" {
		t.Fatalf("Moves = %+v, want z only", out.Moves)
	}

	for tick := 0; tick < 20 && !p.Done(w); tick++ {
		for _, a := range w.Agents() {
			if a.Phase == core.Moving {
				_ = w.Observe(a.ID, w.Graph.Pos(a.Pending))
			}
		}
		w.UpdateArrivals()
		out := p.Step(ctx, w)
		for _, m := range out.Moves {
			if m.Agent == "b" && m.To == "1" && w.VisitedCounts["1"] < 1 {
				t.Fatalf("b entered node 1 with VisitedCounts[1] = %d", w.VisitedCounts["1"])
			}
		}
		if err := w.Check(); err != nil {
			t.Fatal(err)
		}
	}
	if !p.Done(w) {
		t.Fatal("plans did not complete")
	}
	if b.Current != "7" || b.Cursor != 2 {
		t.Errorf("b at %s cursor %d, want 7 cursor 2", b.Current, b.Cursor)
	}
}

func TestMCPWaitsOnOccupiedNode(t *testing.T) {
	w := createPlanWorld(t, createGrid(t, 3), map[core.AgentID]core.PlanSpec{
		"a": {Plan: []core.NodeID{"0", "1"}, Order: []int{0, 0}},
		"b": {Plan: []core.NodeID{"1"}, Order: []int{0}},
	})
	out := NewMCP().Step(context.Background(), w)
	if len(out.Moves) != 0 || out.Waits != 1 {
		t.Errorf("Step() = %+v, want one wait", out)
	}
}

func TestMCPDone(t *testing.T) {
	w := createPlanWorld(t, createGrid(t, 2), map[core.AgentID]core.PlanSpec{
		"a": {Plan: []core.NodeID{"0"}, Order: []int{0}},
	})
	if !NewMCP().Done(w) {
		t.Error("single-node plan should be done")
	}
}

func TestMCPInitRejectsMissingPlan(t *testing.T) {
	w := createWorld(t, createGrid(t, 2), map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "1"},
	})
	if err := NewMCP().Init(context.Background(), w); !errors.Is(err, core.ErrEmptyPlan) {
		t.Errorf("Init() = %v, want ErrEmptyPlan", err)
	}
}

func TestMCPFollowerOnSharedCorridor(t *testing.T) {
	// Two agents in a row on a line; the follower's order entries require the
	// leader to have left every node first.
	g, err := core.NewGraph(core.GridSpec(5, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	w := createPlanWorld(t, g, map[core.AgentID]core.PlanSpec{
		"lead":   {Plan: []core.NodeID{"1", "2", "3", "4"}, Order: []int{0, 0, 0, 0}},
		"follow": {Plan: []core.NodeID{"0", "1", "2", "3"}, Order: []int{0, 1, 1, 1}},
	})
	p := NewMCP()
	ticks, _ := runTicks(t, w, p, 30)
	if !p.Done(w) {
		t.Fatalf("not done after %d ticks", ticks)
	}
	want := map[core.NodeID]int{"0": 1, "1": 2, "2": 2, "3": 1, "4": 0}
	for v, n := range want {
		if w.VisitedCounts[v] != n {
			t.Errorf("VisitedCounts[%s] = %d, want %d", v, w.VisitedCounts[v], n)
		}
	}
}
