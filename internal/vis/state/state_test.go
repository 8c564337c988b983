package state

import (
	"testing"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

func snap(tick int, x float64, moving bool) *core.Snapshot {
	phase := core.Settled
	if moving {
		phase = core.Moving
	}
	return &core.Snapshot{
		Tick: tick,
		Agents: []core.AgentView{
			{ID: "a", Phase: phase.String(), Pos: core.Pos{X: x}, HasPos: true},
			{ID: "b", Phase: core.Settled.String(), AtGoal: true},
		},
	}
}

func TestPushFollowsLive(t *testing.T) {
	s := New(nil, 10)
	if s.Current() != nil {
		t.Fatal("Current() before any push should be nil")
	}
	changes := 0
	s.OnChange(func() { changes++ })
	for i := 1; i <= 3; i++ {
		s.Push(snap(i, float64(i), i%2 == 1))
	}
	if got := s.Current().Tick; got != 3 {
		t.Errorf("Current().Tick = %d, want 3", got)
	}
	if changes != 3 {
		t.Errorf("OnChange called %d times, want 3", changes)
	}
	st := s.Stats()
	if st.Moving != 1 || st.AtGoal != 1 || st.Agents != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestHistoryLimit(t *testing.T) {
	s := New(nil, 3)
	for i := 1; i <= 5; i++ {
		s.Push(snap(i, 0, false))
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	s.Rewind()
	if got := s.Current().Tick; got != 3 {
		t.Errorf("oldest tick = %d, want 3", got)
	}
}

func TestPauseAndStep(t *testing.T) {
	s := New(nil, 10)
	for i := 1; i <= 4; i++ {
		s.Push(snap(i, 0, false))
	}

	s.TogglePause()
	s.Push(snap(5, 0, false))
	if got := s.Current().Tick; got != 4 {
		t.Errorf("paused Current().Tick = %d, want 4", got)
	}

	s.StepBack()
	s.StepBack()
	if got := s.Current().Tick; got != 2 {
		t.Errorf("after two steps back tick = %d, want 2", got)
	}
	s.StepForward()
	if got := s.Current().Tick; got != 3 {
		t.Errorf("after step forward tick = %d, want 3", got)
	}

	s.Seek(1)
	if got := s.Current().Tick; got != 5 || s.Live() {
		t.Errorf("Seek(1) tick = %d live = %v", got, s.Live())
	}
	s.Seek(-3)
	if got := s.Current().Tick; got != 1 || s.Progress() != 0 {
		t.Errorf("Seek(-3) tick = %d progress = %v", got, s.Progress())
	}

	s.GoLive()
	s.Push(snap(6, 0, false))
	if got := s.Current().Tick; got != 6 || s.Progress() != 1 {
		t.Errorf("live tick = %d progress = %v", got, s.Progress())
	}
}

func TestTrail(t *testing.T) {
	s := New(nil, 10)
	for i := 1; i <= 5; i++ {
		s.Push(snap(i, float64(i), true))
	}
	trail := s.Trail("a", 3)
	if len(trail) != 3 || trail[0].X != 3 || trail[2].X != 5 {
		t.Errorf("Trail(a, 3) = %v", trail)
	}
	if got := s.Trail("b", 3); len(got) != 0 {
		t.Errorf("Trail(b) = %v, want none without positions", got)
	}

	s.Select("a")
	if s.Selected() != "a" {
		t.Errorf("Selected() = %q", s.Selected())
	}
}
