// Package exec drives a planner over a world at a fixed tick, reconciling
// asynchronous telemetry with fire-and-forget move commands.
package exec

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/mapf-exec/internal/algo"
	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

// Config configures the tick loop.
type Config struct {
	// Interval between ticks
	Tick time.Duration

	// Wait after commanding agents to their start nodes
	InitDelay time.Duration

	// Stop after this many ticks (0 = unbounded)
	MaxTicks int

	// Telemetry queue capacity
	TelemetryBuffer int
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Tick:            100 * time.Millisecond,
		InitDelay:       1500 * time.Millisecond,
		MaxTicks:        0,
		TelemetryBuffer: 1024,
	}
}

// Observer receives the snapshot published at the end of every tick. It runs
// on the tick loop and must not block.
type Observer func(*core.Snapshot)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default comes from the Run context.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMetrics attaches prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithObserver adds a snapshot observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

// Scheduler is the only mutator of the world. Telemetry producers and
// snapshot readers may run on other goroutines.
type Scheduler struct {
	cfg       Config
	world     *core.World
	planner   algo.Planner
	actuator  Actuator
	telemetry *Telemetry

	log       *slog.Logger
	metrics   *Metrics
	observers []Observer
	runID     string

	tick        int
	done        bool
	lastDropped uint64
	summary     Summary
	snap        atomic.Pointer[core.Snapshot]
}

// New creates a scheduler.
func New(cfg Config, w *core.World, p algo.Planner, act Actuator, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		world:     w,
		planner:   p,
		actuator:  act,
		telemetry: NewTelemetry(cfg.TelemetryBuffer),
		runID:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.summary.RunID = s.runID
	s.summary.Planner = p.Name()
	s.snap.Store(w.Snapshot(s.runID, 0, false))
	return s
}

// Telemetry returns the queue position producers publish to.
func (s *Scheduler) Telemetry() *Telemetry { return s.telemetry }

// Snapshot returns the state published at the last tick boundary.
func (s *Scheduler) Snapshot() *core.Snapshot { return s.snap.Load() }

// RunID identifies this run in logs and snapshots.
func (s *Scheduler) RunID() string { return s.runID }

// Done reports global termination as of the last tick.
func (s *Scheduler) Done() bool { return s.done }

// Summary returns the run totals so far.
func (s *Scheduler) Summary() Summary { return s.summary }

func (s *Scheduler) logger(ctx context.Context) *slog.Logger {
	if s.log == nil {
		s.log = logging.FromContext(ctx).With("run", s.runID)
	}
	return s.log
}

// Start initializes the planner, commands every agent to its start node and
// waits InitDelay for them to get there.
func (s *Scheduler) Start(ctx context.Context) error {
	log := s.logger(ctx)
	ctx = logging.WithLogger(ctx, log)
	s.summary.Start = time.Now()

	if err := s.planner.Init(ctx, s.world); err != nil {
		return fmt.Errorf("planner init failed: %w", err)
	}
	for _, a := range s.world.Agents() {
		log.Info("agent registered", "agent", a.ID, "node", a.Current, "goal", a.Goal, "plan", len(a.Plan))
		s.issue(ctx, core.Move{Agent: a.ID, From: a.Current, To: a.Current, Target: s.world.Graph.Pos(a.Current)})
	}
	s.publish()

	if s.cfg.InitDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.InitDelay):
		return nil
	}
}

// Tick runs one scheduling step: drain telemetry, settle arrivals, plan,
// issue moves, evaluate termination. It returns the termination flag.
func (s *Scheduler) Tick(ctx context.Context) bool {
	log := s.logger(ctx)
	ctx = logging.WithLogger(ctx, log)
	began := time.Now()
	s.tick++

	s.telemetry.Drain(func(p Position) {
		if err := s.world.Observe(p.Agent, p.Pos); err != nil {
			log.Debug("telemetry ignored", "error", err)
		}
	})

	arrived := s.world.UpdateArrivals()
	for _, a := range arrived {
		log.Debug("agent arrived", "agent", a.ID, "node", a.Current)
	}

	out := s.planner.Step(ctx, s.world)
	for _, m := range out.Moves {
		log.Debug("move reserved", "agent", m.Agent, "from", m.From, "to", m.To)
		s.issue(ctx, m)
	}

	if err := s.world.Check(); err != nil {
		panic(&core.InvariantError{Msg: err.Error()})
	}

	s.done = s.planner.Done(s.world)
	s.record(len(arrived), out, time.Since(began))
	s.publish()
	if s.done {
		log.Info("all agents reached their goals", "tick", s.tick)
	}
	return s.done
}

// Run starts the scheduler and ticks until termination, MaxTicks or context
// cancellation. Cancellation returns ctx.Err() with the partial summary.
func (s *Scheduler) Run(ctx context.Context) (Summary, error) {
	if err := s.Start(ctx); err != nil {
		s.summary.End = time.Now()
		return s.summary, err
	}

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.summary.End = time.Now()
			return s.summary, ctx.Err()
		case <-ticker.C:
		}

		if s.Tick(ctx) {
			break
		}
		if s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks {
			s.logger(ctx).Info("tick limit reached", "ticks", s.tick)
			break
		}
	}
	s.summary.End = time.Now()
	return s.summary, nil
}

// issue sends a move command. Failures are logged and counted; the agent
// stays Moving until telemetry places it at the target.
func (s *Scheduler) issue(ctx context.Context, m core.Move) {
	if err := s.actuator.Move(ctx, m.Agent, m.Target); err != nil {
		s.summary.ActuatorErrors++
		if s.metrics != nil {
			s.metrics.actuatorErrors.Inc()
		}
		s.logger(ctx).Warn("move command failed", "agent", m.Agent, "to", m.To, "error", err)
	}
}

func (s *Scheduler) record(arrivals int, out algo.Outcome, took time.Duration) {
	dropped := s.telemetry.Dropped()
	newDrops := dropped - s.lastDropped
	s.lastDropped = dropped

	sum := &s.summary
	sum.Ticks = s.tick
	sum.Done = s.done
	sum.Moves += len(out.Moves)
	sum.Arrivals += arrivals
	sum.Swaps += out.Swaps
	sum.Rotations += out.Rotations
	sum.Waits += out.Waits
	sum.Reassigned += out.Reassigned
	sum.TelemetryDropped = dropped

	m := s.metrics
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.moves.Add(float64(len(out.Moves)))
	m.arrivals.Add(float64(arrivals))
	m.events.WithLabelValues("swap").Add(float64(out.Swaps))
	m.events.WithLabelValues("rotation").Add(float64(out.Rotations))
	m.events.WithLabelValues("wait").Add(float64(out.Waits))
	m.events.WithLabelValues("reassign").Add(float64(out.Reassigned))
	m.dropped.Add(float64(newDrops))
	m.tickDuration.Observe(took.Seconds())

	moving, atGoal := 0, 0
	for _, a := range s.world.Agents() {
		switch {
		case a.Phase == core.Moving:
			moving++
		case a.AtGoal() || a.PlanDone():
			atGoal++
		}
	}
	m.moving.Set(float64(moving))
	m.atGoal.Set(float64(atGoal))
}

func (s *Scheduler) publish() {
	snap := s.world.Snapshot(s.runID, s.tick, s.done)
	s.snap.Store(snap)
	for _, o := range s.observers {
		o(snap)
	}
}
