package core

import "time"

// AgentView is a read-only copy of one agent's state.
type AgentView struct {
	ID       AgentID `json:"id"`
	Current  NodeID  `json:"current"`
	Pending  NodeID  `json:"pending,omitempty"`
	Phase    string  `json:"phase"`
	Pos      Pos     `json:"pos"`
	HasPos   bool    `json:"has_pos"`
	Goal     NodeID  `json:"goal,omitempty"`
	Cursor   int     `json:"cursor,omitempty"`
	PlanLen  int     `json:"plan_len,omitempty"`
	Priority float64 `json:"priority,omitempty"`
	AtGoal   bool    `json:"at_goal"`
}

// Snapshot is an immutable copy of the world taken at a tick boundary.
type Snapshot struct {
	RunID  string             `json:"run_id"`
	Tick   int                `json:"tick"`
	Time   time.Time          `json:"time"`
	Done   bool               `json:"done"`
	Agents []AgentView        `json:"agents"`
	Ledger map[NodeID]AgentID `json:"ledger"`
}

// Snapshot copies the world state.
func (w *World) Snapshot(runID string, tick int, done bool) *Snapshot {
	s := &Snapshot{
		RunID:  runID,
		Tick:   tick,
		Time:   time.Now(),
		Done:   done,
		Agents: make([]AgentView, 0, len(w.order)),
		Ledger: w.Ledger.Entries(),
	}
	for _, id := range w.order {
		a := w.agents[id]
		atGoal := a.AtGoal()
		if len(a.Plan) > 0 {
			atGoal = a.PlanDone()
		}
		s.Agents = append(s.Agents, AgentView{
			ID:       a.ID,
			Current:  a.Current,
			Pending:  a.Pending,
			Phase:    a.Phase.String(),
			Pos:      a.LastPos,
			HasPos:   a.HasPos,
			Goal:     a.Goal,
			Cursor:   a.Cursor,
			PlanLen:  len(a.Plan),
			Priority: a.Priority,
			AtGoal:   atGoal,
		})
	}
	return s
}

// Agent returns the view of agent id.
func (s *Snapshot) Agent(id AgentID) (AgentView, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentView{}, false
}
