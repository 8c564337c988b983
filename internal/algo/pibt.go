package algo

import (
	"context"
	"math/rand"
	"sort"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

// GoalPolicy hands out a new goal to an agent that reached its previous one.
type GoalPolicy interface {
	NextGoal(w *core.World, a *core.Agent) core.NodeID
}

// RandomGoals picks uniformly among reachable nodes other than the agent's
// current node.
type RandomGoals struct {
	rng *rand.Rand
}

// NewRandomGoals creates a seeded random goal policy.
func NewRandomGoals(seed int64) *RandomGoals {
	return &RandomGoals{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomGoals) NextGoal(w *core.World, a *core.Agent) core.NodeID {
	ids := w.Graph.IDs()
	cands := ids[:0]
	for _, v := range ids {
		if v != a.Current && w.Dist.Reachable(a.Current, v) {
			cands = append(cands, v)
		}
	}
	if len(cands) == 0 {
		return a.Current
	}
	return cands[r.rng.Intn(len(cands))]
}

// PIBT plans one joint step per tick with priority inheritance and
// backtracking. It runs on a synchronous timestep: a tick plans only when
// every agent has settled from the previous step.
type PIBT struct {
	goals GoalPolicy
}

// NewPIBT creates a lifelong PIBT planner. A nil policy means random goals
// seeded with 0.
func NewPIBT(goals GoalPolicy) *PIBT {
	if goals == nil {
		goals = NewRandomGoals(0)
	}
	return &PIBT{goals: goals}
}

func (p *PIBT) Name() string { return "PIBT" }

// Init sets tie-breakers to i/N in id order and hands out initial goals to
// agents that have none.
func (p *PIBT) Init(ctx context.Context, w *core.World) error {
	agents := w.Agents()
	for i, a := range agents {
		a.TieBreaker = float64(i) / float64(len(agents))
		a.Priority = a.TieBreaker
		if a.Goal == core.NoNode {
			a.Goal = p.goals.NextGoal(w, a)
		}
	}
	return nil
}

// Step updates priorities, reassigns reached goals, plans the joint step and
// commits it.
func (p *PIBT) Step(ctx context.Context, w *core.World) Outcome {
	var out Outcome
	if !w.AllSettled() {
		return out
	}
	log := logging.FromContext(ctx)

	for _, a := range w.Agents() {
		if !a.AtGoal() {
			a.Priority++
			continue
		}
		a.Priority = a.TieBreaker
		a.Goal = p.goals.NextGoal(w, a)
		out.Reassigned++
		log.Info("goal reassigned", "agent", a.ID, "at", a.Current, "goal", a.Goal)
	}

	next := p.PlanOneStep(w)
	out.Moves = w.CommitJoint(next)
	out.Waits = w.Len() - len(out.Moves)
	return out
}

// Done is always false: lifelong execution stops by external policy.
func (p *PIBT) Done(w *core.World) bool { return false }

// PlanOneStep computes a conflict-free joint step from the current priorities
// and goals without touching the world. Every agent is mapped to its next
// node, its current node when it stays.
func (p *PIBT) PlanOneStep(w *core.World) map[core.AgentID]core.NodeID {
	agents := w.Agents()
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].Priority != agents[j].Priority {
			return agents[i].Priority > agents[j].Priority
		}
		return agents[i].TieBreaker > agents[j].TieBreaker
	})

	s := &pibtStep{
		w:       w,
		now:     make(map[core.NodeID]*core.Agent, len(agents)),
		reserve: make(map[core.NodeID]core.AgentID, len(agents)),
		next:    make(map[core.AgentID]core.NodeID, len(agents)),
	}
	for _, a := range agents {
		s.now[a.Current] = a
	}
	for _, a := range agents {
		if _, ok := s.next[a.ID]; !ok {
			s.pibt(a, nil)
		}
	}
	return s.next
}

// pibtStep is the scratch state of one planning pass.
type pibtStep struct {
	w       *core.World
	now     map[core.NodeID]*core.Agent  // occupied now
	reserve map[core.NodeID]core.AgentID // occupied next
	next    map[core.AgentID]core.NodeID
}

// pibt assigns a next node to a, invited by caller (nil at top level). It
// reports false when a has to stay.
func (s *pibtStep) pibt(a, caller *core.Agent) bool {
	cands := make([]core.NodeID, 0, len(s.w.Graph.Neighbors(a.Current))+1)
	cands = append(cands, s.w.Graph.Neighbors(a.Current)...)
	cands = append(cands, a.Current)

	occupiedByOther := func(v core.NodeID) bool {
		k, ok := s.now[v]
		return ok && k.ID != a.ID
	}
	sort.SliceStable(cands, func(i, j int) bool {
		di, dj := s.w.Dist.Dist(cands[i], a.Goal), s.w.Dist.Dist(cands[j], a.Goal)
		if di != dj {
			return di < dj
		}
		return occupiedByOther(cands[i]) && !occupiedByOther(cands[j])
	})

	for _, v := range cands {
		if _, taken := s.reserve[v]; taken {
			continue
		}
		if caller != nil && v == caller.Current {
			continue
		}

		s.next[a.ID] = v
		s.reserve[v] = a.ID

		if k, ok := s.now[v]; ok && k.ID != a.ID {
			if _, assigned := s.next[k.ID]; !assigned && !s.pibt(k, a) {
				continue
			}
		}
		return true
	}

	s.next[a.ID] = a.Current
	s.reserve[a.Current] = a.ID
	return false
}
