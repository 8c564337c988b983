package core

import (
	"fmt"
	"sort"
)

// AgentSpec is the initial state of one goal-driven agent.
type AgentSpec struct {
	Start NodeID
	Goal  NodeID
}

// PlanSpec is a precomputed plan of one replaying agent.
type PlanSpec struct {
	Plan  []NodeID
	Order []int
}

// Instance is a parsed execution problem: a graph plus either goal-driven
// agents or plans.
type Instance struct {
	Graph  *Graph
	Agents map[AgentID]AgentSpec
	Plans  map[AgentID]PlanSpec
}

// AgentIDs returns the ids of all agents and plans in sorted order.
func (inst *Instance) AgentIDs() []AgentID {
	ids := make([]AgentID, 0, len(inst.Agents)+len(inst.Plans))
	for id := range inst.Agents {
		ids = append(ids, id)
	}
	for id := range inst.Plans {
		if _, dup := inst.Agents[id]; !dup {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks referential integrity of every node id used by agents and
// plans against the graph, and reports all problems at once.
func (inst *Instance) Validate() error {
	if inst.Graph == nil {
		return ErrEmptyGraph
	}
	g := inst.Graph
	var verr ValidationError
	starts := make(map[NodeID]AgentID)

	claim := func(id AgentID, v NodeID) {
		if other, ok := starts[v]; ok && other != id {
			verr.Add(fmt.Errorf("agents %q and %q start at %q: %w", other, id, v, ErrDuplicateStart))
			return
		}
		starts[v] = id
	}

	for _, id := range inst.AgentIDs() {
		if spec, ok := inst.Agents[id]; ok {
			if !g.Has(spec.Start) {
				verr.Add(fmt.Errorf("agent %q start %q: %w", id, spec.Start, ErrUnknownNode))
			} else {
				claim(id, spec.Start)
			}
			switch {
			case spec.Goal == NoNode:
				verr.Add(fmt.Errorf("agent %q: %w", id, ErrNoGoal))
			case !g.Has(spec.Goal):
				verr.Add(fmt.Errorf("agent %q goal %q: %w", id, spec.Goal, ErrUnknownNode))
			}
		}

		ps, ok := inst.Plans[id]
		if !ok {
			continue
		}
		if len(ps.Plan) == 0 {
			verr.Add(fmt.Errorf("agent %q: %w", id, ErrEmptyPlan))
			continue
		}
		if len(ps.Plan) != len(ps.Order) {
			verr.Add(fmt.Errorf("agent %q: plan has %d nodes, order %d: %w",
				id, len(ps.Plan), len(ps.Order), ErrPlanOrderMismatch))
		}
		known := true
		for i, v := range ps.Plan {
			if !g.Has(v) {
				verr.Add(fmt.Errorf("agent %q plan[%d] %q: %w", id, i, v, ErrUnknownNode))
				known = false
			}
		}
		if !known {
			continue
		}
		claim(id, ps.Plan[0])
		for i := 1; i < len(ps.Plan); i++ {
			u, v := ps.Plan[i-1], ps.Plan[i]
			if !g.nodes[u].hasNeighbor(v) {
				verr.Add(fmt.Errorf("agent %q plan[%d..%d] %q -> %q: %w", id, i-1, i, u, v, ErrPlanStep))
			}
		}
	}
	return verr.Err()
}

// World validates the instance and builds a world with every agent settled
// at its start node.
func (inst *Instance) World(tolerance float64) (*World, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	w := NewWorld(inst.Graph, tolerance)
	for _, id := range inst.AgentIDs() {
		a := &Agent{ID: id}
		if spec, ok := inst.Agents[id]; ok {
			a.Current = spec.Start
			a.Goal = spec.Goal
		}
		if ps, ok := inst.Plans[id]; ok {
			a.Plan = append([]NodeID(nil), ps.Plan...)
			a.Order = append([]int(nil), ps.Order...)
			a.Current = ps.Plan[0]
		}
		if err := w.AddAgent(a); err != nil {
			return nil, err
		}
	}
	return w, nil
}
