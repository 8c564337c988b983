package core

import (
	"fmt"
	"sort"
)

// World is the execution state shared by the scheduler and the planners:
// graph, distance table, agents and the occupancy ledger. Only the tick loop
// mutates it.
type World struct {
	Graph  *Graph
	Dist   *DistanceTable
	Ledger *Ledger

	// VisitedCounts counts departures from each node (plan replay only).
	VisitedCounts map[NodeID]int

	// Tolerance is the per-axis proximity threshold of the arrival test.
	Tolerance float64

	agents map[AgentID]*Agent
	order  []AgentID // sorted
}

// NewWorld creates an empty world over g.
func NewWorld(g *Graph, tolerance float64) *World {
	w := &World{
		Graph:         g,
		Dist:          NewDistanceTable(g),
		Ledger:        NewLedger(),
		VisitedCounts: make(map[NodeID]int, g.Len()),
		Tolerance:     tolerance,
		agents:        make(map[AgentID]*Agent),
	}
	for _, id := range g.ids {
		w.VisitedCounts[id] = 0
	}
	return w
}

// AddAgent registers a settled agent at a.Current and reserves that node.
func (w *World) AddAgent(a *Agent) error {
	if _, ok := w.agents[a.ID]; ok {
		return fmt.Errorf("agent %q: %w", a.ID, ErrDuplicateAgent)
	}
	if !w.Graph.Has(a.Current) {
		return fmt.Errorf("agent %q start %q: %w", a.ID, a.Current, ErrUnknownNode)
	}
	if a.Goal != NoNode && !w.Graph.Has(a.Goal) {
		return fmt.Errorf("agent %q goal %q: %w", a.ID, a.Goal, ErrUnknownNode)
	}
	for _, v := range a.Plan {
		if !w.Graph.Has(v) {
			return fmt.Errorf("agent %q plan node %q: %w", a.ID, v, ErrUnknownNode)
		}
	}
	if owner, ok := w.Ledger.Owner(a.Current); ok {
		return fmt.Errorf("agent %q start %q held by %q: %w", a.ID, a.Current, owner, ErrDuplicateStart)
	}

	a.Phase = Settled
	a.Pending = NoNode
	w.agents[a.ID] = a
	w.Ledger.Reserve(a.Current, a.ID)

	i := sort.Search(len(w.order), func(i int) bool { return w.order[i] >= a.ID })
	w.order = append(w.order, "")
	copy(w.order[i+1:], w.order[i:])
	w.order[i] = a.ID
	return nil
}

// Agent returns the agent with the given id.
func (w *World) Agent(id AgentID) (*Agent, bool) {
	a, ok := w.agents[id]
	return a, ok
}

// Agents returns all agents ordered by id.
func (w *World) Agents() []*Agent {
	out := make([]*Agent, len(w.order))
	for i, id := range w.order {
		out[i] = w.agents[id]
	}
	return out
}

// Len returns the number of agents.
func (w *World) Len() int { return len(w.order) }

// OccupantOf returns the agent owning v in the ledger, nil if free.
func (w *World) OccupantOf(v NodeID) *Agent {
	id, ok := w.Ledger.Owner(v)
	if !ok {
		return nil
	}
	return w.agents[id]
}

// NearestFree returns the node closest to p that no agent owns.
func (w *World) NearestFree(p Pos) NodeID {
	best := NoNode
	bestD := 0.0
	for _, id := range w.Graph.ids {
		if !w.Ledger.Free(id) {
			continue
		}
		d := euclid(p, w.Graph.nodes[id].Pos)
		if best == NoNode || d < bestD {
			best, bestD = id, d
		}
	}
	return best
}

// Observe records a telemetry sample. It never changes the phase.
func (w *World) Observe(id AgentID, p Pos) error {
	a, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("telemetry for %q: %w", id, ErrUnknownAgent)
	}
	a.LastPos = p
	a.HasPos = true
	return nil
}

// UpdateArrivals settles every moving agent whose last position lies within
// the tolerance of its pending node. It returns the settled agents in id order.
func (w *World) UpdateArrivals() []*Agent {
	var arrived []*Agent
	for _, id := range w.order {
		a := w.agents[id]
		if a.Phase != Moving {
			continue
		}
		if !a.Near(w.Graph.Pos(a.Pending), w.Tolerance) {
			continue
		}
		w.settle(a)
		arrived = append(arrived, a)
	}
	return arrived
}

// settle performs the Moving -> Settled transition.
func (w *World) settle(a *Agent) {
	left := a.Current
	// A joint commit may have handed the node to a follower already.
	w.Ledger.Release(left, a.ID)
	a.Current = a.Pending
	a.Pending = NoNode
	a.Phase = Settled

	if len(a.Plan) > 0 {
		w.VisitedCounts[left]++
		a.Cursor++
	}
}

// Reserve commits the Settled -> Moving transition of agent id toward v and
// returns the move command to issue.
func (w *World) Reserve(id AgentID, v NodeID) Move {
	a, ok := w.agents[id]
	if !ok {
		invariant("reserve for unknown agent %q", id)
	}
	if a.Phase != Settled {
		invariant("agent %q reserved %q while moving to %q", id, v, a.Pending)
	}
	if v == a.Current {
		invariant("agent %q reserved its own node %q", id, v)
	}
	w.Ledger.Reserve(v, id)
	a.Pending = v
	a.Phase = Moving
	return Move{Agent: id, From: a.Current, To: v, Target: w.Graph.Pos(v)}
}

// CommitJoint applies a conflict-free joint step. next maps every agent to
// its node for the step (its current node to stay). All agents must be
// settled. The ledger is rebuilt from next and one move is returned per
// agent whose next node differs from its current node, in id order.
func (w *World) CommitJoint(next map[AgentID]NodeID) []Move {
	for _, id := range w.order {
		a := w.agents[id]
		if a.Phase != Settled {
			invariant("joint commit while %q is moving", id)
		}
		if _, ok := next[id]; !ok {
			invariant("joint commit without assignment for %q", id)
		}
	}

	w.Ledger.Reset()
	var moves []Move
	for _, id := range w.order {
		a := w.agents[id]
		v := next[id]
		w.Ledger.Reserve(v, id)
		if v == a.Current {
			continue
		}
		a.Pending = v
		a.Phase = Moving
		moves = append(moves, Move{Agent: id, From: a.Current, To: v, Target: w.Graph.Pos(v)})
	}
	return moves
}

// AllSettled reports whether no agent is in transit.
func (w *World) AllSettled() bool {
	for _, a := range w.agents {
		if a.Phase != Settled {
			return false
		}
	}
	return true
}

// CheckGoals reports agents that share a goal node and agents whose goal
// cannot be reached from their current node. Agents without a goal are
// skipped. Goal-driven runs that must terminate need both properties.
func (w *World) CheckGoals() error {
	var verr ValidationError
	owner := make(map[NodeID]AgentID)
	for _, id := range w.order {
		a := w.agents[id]
		if a.Goal == NoNode {
			continue
		}
		if other, ok := owner[a.Goal]; ok {
			verr.Add(fmt.Errorf("agents %q and %q share goal %q: %w", other, id, a.Goal, ErrDuplicateGoal))
		} else {
			owner[a.Goal] = id
		}
		if !w.Dist.Reachable(a.Current, a.Goal) {
			verr.Add(fmt.Errorf("agent %q at %q, goal %q: %w", id, a.Current, a.Goal, ErrUnreachableGoal))
		}
	}
	return verr.Err()
}

// Check verifies the ledger against the agents: a moving agent owns its
// pending node, a settled agent owns its current node and every ledger entry
// is the current or pending node of its owner.
func (w *World) Check() error {
	var verr ValidationError
	for _, id := range w.order {
		a := w.agents[id]
		switch a.Phase {
		case Moving:
			if owner, _ := w.Ledger.Owner(a.Pending); owner != id {
				verr.Add(fmt.Errorf("agent %q pending %q owned by %q", id, a.Pending, owner))
			}
		case Settled:
			if a.Pending != NoNode {
				verr.Add(fmt.Errorf("settled agent %q has pending %q", id, a.Pending))
			}
			if owner, _ := w.Ledger.Owner(a.Current); owner != id {
				verr.Add(fmt.Errorf("agent %q current %q owned by %q", id, a.Current, owner))
			}
		}
	}
	for v, id := range w.Ledger.owner {
		a, ok := w.agents[id]
		if !ok {
			verr.Add(fmt.Errorf("node %q owned by unknown agent %q", v, id))
			continue
		}
		if v != a.Current && v != a.Pending {
			verr.Add(fmt.Errorf("node %q owned by %q which neither holds nor targets it", v, id))
		}
	}
	return verr.Err()
}
