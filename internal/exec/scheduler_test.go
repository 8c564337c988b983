package exec

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/algo"
	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/sim"
)

func lineWorld(t *testing.T, n int, agents map[core.AgentID]core.AgentSpec) *core.World {
	t.Helper()
	g, err := core.NewGraph(core.GridSpec(n, 1, 10))
	require.NoError(t, err)
	w, err := (&core.Instance{Graph: g, Agents: agents}).World(1)
	require.NoError(t, err)
	return w
}

// recordingActuator remembers commands and optionally fails.
type recordingActuator struct {
	mu    sync.Mutex
	moves []core.AgentID
	err   error
}

func (r *recordingActuator) Move(_ context.Context, id core.AgentID, _ core.Pos) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, id)
	return r.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Tick = time.Millisecond
	cfg.InitDelay = 0
	return cfg
}

func TestTelemetryDropsWhenFull(t *testing.T) {
	tel := NewTelemetry(2)
	assert.True(t, tel.Publish("a", 1, 1))
	assert.True(t, tel.Publish("a", 2, 2))
	assert.False(t, tel.Publish("a", 3, 3))
	assert.Equal(t, uint64(1), tel.Dropped())

	var got []Position
	n := tel.Drain(func(p Position) { got = append(got, p) })
	assert.Equal(t, 2, n)
	assert.Equal(t, core.Pos{X: 2, Y: 2}, got[1].Pos)
	assert.Equal(t, 0, tel.Drain(func(Position) {}))
}

func TestTelemetryOnlyAppliedOnTick(t *testing.T) {
	w := lineWorld(t, 3, map[core.AgentID]core.AgentSpec{"a": {Start: "0", Goal: "2"}})
	s := New(testConfig(), w, algo.NewTSWAP(), &recordingActuator{})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	s.Tick(ctx) // a reserves node 1
	a, _ := w.Agent("a")
	require.Equal(t, core.Moving, a.Phase)

	s.Telemetry().Publish("a", 10, 0)
	assert.False(t, a.HasPos, "telemetry applied outside the tick")
	assert.Equal(t, core.Moving, a.Phase)

	s.Tick(ctx)
	assert.Equal(t, core.NodeID("1"), a.Current)
	assert.Equal(t, core.Pos{X: 10, Y: 0}, a.LastPos)
}

func TestSchedulerTicksToTermination(t *testing.T) {
	w := lineWorld(t, 3, map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "2"},
		"b": {Start: "2", Goal: "0"},
	})

	var s *Scheduler
	// Robots that arrive instantly.
	act := ActuatorFunc(func(_ context.Context, id core.AgentID, p core.Pos) error {
		s.Telemetry().Publish(id, p.X, p.Y)
		return nil
	})
	reg := prometheus.NewRegistry()
	var snaps int
	s = New(testConfig(), w, algo.NewTSWAP(), act,
		WithMetrics(NewMetrics(reg)),
		WithObserver(func(*core.Snapshot) { snaps++ }),
		WithRunID("test-run"))

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Done)
	assert.True(t, s.Done())
	assert.Equal(t, "TSWAP", sum.Planner)
	assert.Greater(t, sum.Moves, 0)
	assert.Equal(t, sum.Moves, sum.Arrivals)

	snap := s.Snapshot()
	assert.Equal(t, "test-run", snap.RunID)
	assert.True(t, snap.Done)
	assert.Equal(t, sum.Ticks+1, snaps)

	assert.Equal(t, float64(sum.Ticks), testutil.ToFloat64(s.metrics.ticks))
	assert.Equal(t, float64(sum.Moves), testutil.ToFloat64(s.metrics.moves))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.metrics.atGoal))
}

func TestSchedulerMaxTicks(t *testing.T) {
	g, err := core.NewGraph(core.GridSpec(3, 3, 10))
	require.NoError(t, err)
	w := core.NewWorld(g, 1)
	require.NoError(t, w.AddAgent(&core.Agent{ID: "a", Current: "0"}))

	cfg := testConfig()
	cfg.MaxTicks = 5
	s := New(cfg, w, algo.NewPIBT(algo.NewRandomGoals(1)), &recordingActuator{})
	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Ticks)
	assert.False(t, sum.Done)
}

func TestSchedulerCancel(t *testing.T) {
	w := lineWorld(t, 3, map[core.AgentID]core.AgentSpec{"a": {Start: "0", Goal: "2"}})
	cfg := testConfig()
	cfg.InitDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(cfg, w, algo.NewTSWAP(), &recordingActuator{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedulerCountsActuatorErrors(t *testing.T) {
	w := lineWorld(t, 3, map[core.AgentID]core.AgentSpec{"a": {Start: "0", Goal: "2"}})
	act := &recordingActuator{err: errors.New("link down")}
	s := New(testConfig(), w, algo.NewTSWAP(), act)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	s.Tick(ctx)

	// One init command plus the first hop.
	assert.Equal(t, 2, s.Summary().ActuatorErrors)
	a, _ := w.Agent("a")
	assert.Equal(t, core.Moving, a.Phase, "a failed command leaves the agent moving")
}

func TestSchedulerStartInitError(t *testing.T) {
	g, err := core.NewGraph(core.GridSpec(2, 1, 10))
	require.NoError(t, err)
	w := core.NewWorld(g, 1)
	require.NoError(t, w.AddAgent(&core.Agent{ID: "a", Current: "0"}))

	err = New(testConfig(), w, algo.NewTSWAP(), &recordingActuator{}).Start(context.Background())
	assert.ErrorIs(t, err, core.ErrNoGoal)
}

func TestSchedulerWithSimulatedFleet(t *testing.T) {
	w := lineWorld(t, 4, map[core.AgentID]core.AgentSpec{
		"a": {Start: "0", Goal: "3"},
		"b": {Start: "3", Goal: "0"},
	})

	cfg := testConfig()
	cfg.Tick = 2 * time.Millisecond
	var fleet *sim.Fleet
	s := New(cfg, w, algo.NewTSWAP(), ActuatorFunc(func(ctx context.Context, id core.AgentID, p core.Pos) error {
		return fleet.Move(ctx, id, p)
	}))

	simCfg := sim.DefaultConfig()
	simCfg.Speed = 2000
	simCfg.TimeStep = time.Millisecond
	fleet = sim.NewFleet(simCfg, s.Telemetry())
	for _, a := range w.Agents() {
		fleet.Add(a.ID, w.Graph.Pos(a.Current))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go fleet.Run(ctx)

	sum, err := s.Run(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Done)
	for _, a := range w.Agents() {
		assert.Equal(t, a.Goal, a.Current)
	}
}
