package algo

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// fixedGoals always returns the same node.
type fixedGoals struct{ v core.NodeID }

func (f fixedGoals) NextGoal(*core.World, *core.Agent) core.NodeID { return f.v }

// checkJointStep verifies vertex and swap conflict freedom of next.
func checkJointStep(t *testing.T, w *core.World, next map[core.AgentID]core.NodeID) {
	t.Helper()
	if len(next) != w.Len() {
		t.Fatalf("assigned %d agents, want %d", len(next), w.Len())
	}
	owner := make(map[core.NodeID]core.AgentID)
	at := make(map[core.NodeID]core.AgentID)
	for _, a := range w.Agents() {
		at[a.Current] = a.ID
	}
	for _, a := range w.Agents() {
		v := next[a.ID]
		if prev, ok := owner[v]; ok {
			t.Fatalf("vertex conflict at %s: %s and %s", v, prev, a.ID)
		}
		owner[v] = a.ID

		if v != a.Current && !w.Dist.Reachable(a.Current, v) {
			t.Fatalf("%s jumps from %s to %s", a.ID, a.Current, v)
		}
		adjacent := v == a.Current
		for _, u := range w.Graph.Neighbors(a.Current) {
			adjacent = adjacent || u == v
		}
		if !adjacent {
			t.Fatalf("%s moves from %s to non-neighbor %s", a.ID, a.Current, v)
		}

		if other, ok := at[v]; ok && other != a.ID {
			o, _ := w.Agent(other)
			if next[other] == a.Current {
				t.Fatalf("swap conflict between %s and %s", a.ID, o.ID)
			}
		}
	}
}

func TestPIBTConflictFreeRandom(t *testing.T) {
	g := createGrid(t, 5)
	ids := g.IDs()

	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		n := 2 + rng.Intn(12)
		perm := rng.Perm(len(ids))

		w := core.NewWorld(g, 0.1)
		for i := 0; i < n; i++ {
			a := &core.Agent{
				ID:         core.AgentID(fmt.Sprintf("r%02d", i)),
				Current:    ids[perm[i]],
				Goal:       ids[rng.Intn(len(ids))],
				Priority:   float64(rng.Intn(5)),
				TieBreaker: float64(i) / float64(n),
			}
			if err := w.AddAgent(a); err != nil {
				t.Fatal(err)
			}
		}

		next := NewPIBT(nil).PlanOneStep(w)
		checkJointStep(t, w, next)
	}
}

func TestPIBTPlanOneStepIsPure(t *testing.T) {
	w := createWorld(t, createGrid(t, 3), map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "8"},
		"b": {Start: "1", Goal: "0"},
	})
	before := w.Ledger.Entries()
	NewPIBT(nil).PlanOneStep(w)
	after := w.Ledger.Entries()
	if len(before) != len(after) {
		t.Fatalf("ledger changed: %v -> %v", before, after)
	}
	for v, a := range before {
		if after[v] != a {
			t.Errorf("ledger[%s] = %s, was %s", v, after[v], a)
		}
	}
	for _, a := range w.Agents() {
		if a.Phase != core.Settled {
			t.Errorf("agent %s is %v", a.ID, a.Phase)
		}
	}
}

func TestPIBTPriorityInheritance(t *testing.T) {
	// On a line, a (high priority) pushes b, which has nowhere to go but
	// away from a.
	g, err := core.NewGraph(core.GridSpec(4, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	w := createWorld(t, g, map[core.AgentID]core.AgentSpec{
		"a": {Start: "1", Goal: "3"},
		"b": {Start: "2", Goal: "2"},
	})
	a, _ := w.Agent("a")
	a.Priority = 10

	next := NewPIBT(nil).PlanOneStep(w)
	checkJointStep(t, w, next)
	if next["a"] != "2" || next["b"] != "3" {
		t.Errorf("next = %v, want a->2 b->3", next)
	}
}

func TestPIBTBacktracksWhenBlocked(t *testing.T) {
	// b sits at a dead end; a must not push it.
	g, err := core.NewGraph(core.GridSpec(3, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	w := createWorld(t, g, map[core.AgentID]core.AgentSpec{
		"a": {Start: "1", Goal: "2"},
		"b": {Start: "2", Goal: "2"},
	})
	a, _ := w.Agent("a")
	a.Priority = 10

	next := NewPIBT(nil).PlanOneStep(w)
	checkJointStep(t, w, next)
	if next["b"] != "2" {
		t.Errorf("b = %s, want to stay at 2", next["b"])
	}
	if next["a"] == "2" {
		t.Error("a moved onto b")
	}
}

func TestPIBTStepUpdatesPriorities(t *testing.T) {
	w := createWorld(t, createGrid(t, 3), map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "8"},
		"b": {Start: "4", Goal: "4"},
	})
	p := NewPIBT(fixedGoals{"6"})
	ctx := context.Background()
	if err := p.Init(ctx, w); err != nil {
		t.Fatal(err)
	}
	a, _ := w.Agent("a")
	b, _ := w.Agent("b")
	if a.TieBreaker != 0 || b.TieBreaker != 0.5 {
		t.Fatalf("tie-breakers a=%v b=%v", a.TieBreaker, b.TieBreaker)
	}

	out := p.Step(ctx, w)
	if a.Priority != 1 {
		t.Errorf("a.Priority = %v, want 1", a.Priority)
	}
	if b.Priority != b.TieBreaker {
		t.Errorf("b.Priority = %v, want tie-breaker %v", b.Priority, b.TieBreaker)
	}
	if b.Goal != "6" || out.Reassigned != 1 {
		t.Errorf("b.Goal = %s, Reassigned = %d", b.Goal, out.Reassigned)
	}
	if err := w.Check(); err != nil {
		t.Fatal(err)
	}

	// Nothing is planned until every agent has arrived.
	if len(out.Moves) > 0 {
		again := p.Step(ctx, w)
		if len(again.Moves) != 0 || a.Priority != 1 {
			t.Errorf("planned while agents were moving: %+v", again)
		}
	}
}

func TestPIBTLifelong(t *testing.T) {
	g := createGrid(t, 4)
	w := core.NewWorld(g, 0.1)
	for i, v := range []core.NodeID{"0", "3", "5", "10", "12", "15"} {
		if err := w.AddAgent(&core.Agent{ID: core.AgentID(fmt.Sprintf("r%d", i)), Current: v}); err != nil {
			t.Fatal(err)
		}
	}

	p := NewPIBT(NewRandomGoals(7))
	ticks, total := runTicks(t, w, p, 60)
	if ticks != 60 {
		t.Errorf("lifelong run stopped after %d ticks", ticks)
	}
	if total.Reassigned == 0 {
		t.Error("no agent ever reached a goal")
	}
}

func TestRandomGoalsAvoidsCurrent(t *testing.T) {
	w := createWorld(t, createGrid(t, 2), map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "0"},
	})
	a, _ := w.Agent("a")
	r := NewRandomGoals(1)
	for i := 0; i < 50; i++ {
		g := r.NextGoal(w, a)
		if g == "0" || !w.Graph.Has(g) {
			t.Fatalf("NextGoal = %s", g)
		}
	}
}
