// Package state holds the viewer state: the graph and a bounded history of
// tick snapshots.
package state

import (
	"sync"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// State is shared between the tick loop, which pushes snapshots, and the UI
// goroutine, which reads them.
type State struct {
	Graph *core.Graph

	mu       sync.Mutex
	history  []*core.Snapshot
	limit    int
	live     bool
	index    int // cursor into history when not live
	selected core.AgentID
	onChange func()
}

// New creates a state keeping up to limit snapshots.
func New(g *core.Graph, limit int) *State {
	if limit <= 0 {
		limit = 1000
	}
	return &State{Graph: g, limit: limit, live: true}
}

// OnChange registers fn to run after every push. app.Window.Invalidate is
// the usual choice.
func (s *State) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Push appends a snapshot. It matches exec.Observer.
func (s *State) Push(snap *core.Snapshot) {
	s.mu.Lock()
	s.history = append(s.history, snap)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
		s.index = max(0, s.index-over)
	}
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Len returns the number of retained snapshots.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Current returns the snapshot under the cursor, the latest one when live.
// It is nil before the first push.
func (s *State) Current() *core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *State) current() *core.Snapshot {
	if len(s.history) == 0 {
		return nil
	}
	return s.history[s.cursor()]
}

func (s *State) cursor() int {
	if s.live {
		return len(s.history) - 1
	}
	return min(s.index, len(s.history)-1)
}

// Trail returns the reported positions of agent id over the n snapshots up
// to the cursor, oldest first. Snapshots without a position are skipped.
func (s *State) Trail(id core.AgentID, n int) []core.Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	end := s.cursor()
	start := max(0, end-n+1)
	var out []core.Pos
	for _, snap := range s.history[start : end+1] {
		if a, ok := snap.Agent(id); ok && a.HasPos {
			out = append(out, a.Pos)
		}
	}
	return out
}

// Select marks an agent as selected. An empty id clears the selection.
func (s *State) Select(id core.AgentID) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
}

// Selected returns the selected agent.
func (s *State) Selected() core.AgentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Stats summarizes the snapshot under the cursor.
type Stats struct {
	Tick   int
	Agents int
	Moving int
	AtGoal int
	Done   bool
	RunID  string
}

// Stats returns counts for the snapshot under the cursor.
func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.current()
	if snap == nil {
		return Stats{}
	}
	st := Stats{Tick: snap.Tick, Agents: len(snap.Agents), Done: snap.Done, RunID: snap.RunID}
	for _, a := range snap.Agents {
		if a.Phase == core.Moving.String() {
			st.Moving++
		}
		if a.AtGoal {
			st.AtGoal++
		}
	}
	return st
}
