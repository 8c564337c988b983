// Package session assembles one execution run: the world, its planner, the
// robots it drives and the optional status API and snapshot store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/elektrokombinacija/mapf-exec/internal/algo"
	"github.com/elektrokombinacija/mapf-exec/internal/api"
	"github.com/elektrokombinacija/mapf-exec/internal/config"
	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/discovery"
	"github.com/elektrokombinacija/mapf-exec/internal/exec"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
	"github.com/elektrokombinacija/mapf-exec/internal/sim"
	"github.com/elektrokombinacija/mapf-exec/internal/store"
	"github.com/elektrokombinacija/mapf-exec/internal/transport"
)

// Mode selects where move commands go.
type Mode string

const (
	ModeSim Mode = "sim" // in-process simulated robots
	ModeUDP Mode = "udp" // devices over the UDP transport
)

// ErrNoAgents is returned when a run would start without agents.
var ErrNoAgents = errors.New("no agents")

// Options describes a run.
type Options struct {
	Config   config.Config
	Variant  core.Variant
	Mode     Mode
	Instance *core.Instance

	// Agents is the number of lifelong agents placed at random nodes when
	// the instance lists none (simulated runs only).
	Agents int

	// Assign replaces the paired goals by a target assignment over the
	// same goal set.
	Assign bool

	Observers []exec.Observer
}

// Session is an assembled run. Open starts its background workers; Close
// stops them.
type Session struct {
	opts Options
	log  *slog.Logger

	World     *core.World
	Planner   algo.Planner
	Scheduler *exec.Scheduler
	Registry  *prometheus.Registry
	Hub       *api.Hub

	fleet    *sim.Fleet
	tr       *transport.Transport
	link     *transport.Link
	relay    relay
	store    *store.Store
	recorder *store.Recorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// relay forwards device telemetry once the scheduler exists.
type relay struct {
	target atomic.Pointer[exec.Telemetry]
}

func (r *relay) Publish(id core.AgentID, x, y float64) bool {
	if t := r.target.Load(); t != nil {
		return t.Publish(id, x, y)
	}
	return false
}

// Open builds the world and wires every collaborator. In UDP mode it binds
// the transport and browses for devices before the world is built.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Instance == nil || opts.Instance.Graph == nil {
		return nil, errors.New("session needs a graph")
	}
	if opts.Mode == "" {
		opts.Mode = ModeSim
	}
	cfg := opts.Config
	s := &Session{opts: opts, log: logging.FromContext(ctx)}

	bg, cancel := context.WithCancel(logging.WithLogger(context.WithoutCancel(ctx), s.log))
	s.cancel = cancel
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	var positions map[core.AgentID]core.Pos
	if opts.Mode == ModeUDP {
		var err error
		if positions, err = s.openDevices(ctx, bg); err != nil {
			return nil, err
		}
	}

	w, err := s.buildWorld(positions)
	if err != nil {
		return nil, err
	}
	if w.Len() == 0 {
		return nil, ErrNoAgents
	}
	s.World = w

	if opts.Assign && opts.Variant == core.VariantGoal {
		if err := assignGoals(ctx, w); err != nil {
			return nil, err
		}
	}

	s.Planner = algo.New(opts.Variant, algo.Options{Goals: algo.NewRandomGoals(cfg.Seed)})
	s.Registry = prometheus.NewRegistry()
	s.Hub = api.NewHub()

	schedOpts := []exec.Option{
		exec.WithMetrics(exec.NewMetrics(s.Registry)),
		exec.WithObserver(s.Hub.Publish),
	}
	if cfg.Redis.Addr != "" {
		s.store = store.New(cfg.Redis.Addr, store.WithPrefix(cfg.Redis.Prefix), store.WithTTL(cfg.Redis.TTL))
		if err := s.store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		s.recorder = store.NewRecorder(s.store, 256)
		schedOpts = append(schedOpts, exec.WithObserver(s.recorder.Observe))
	}
	for _, o := range opts.Observers {
		schedOpts = append(schedOpts, exec.WithObserver(o))
	}

	var act exec.Actuator
	switch opts.Mode {
	case ModeSim:
		act = exec.ActuatorFunc(func(ctx context.Context, id core.AgentID, p core.Pos) error {
			return s.fleet.Move(ctx, id, p)
		})
	case ModeUDP:
		act = s.link
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}

	s.Scheduler = exec.New(cfg.Scheduler(), w, s.Planner, act, schedOpts...)

	if opts.Mode == ModeSim {
		s.fleet = sim.NewFleet(cfg.Simulator(), s.Scheduler.Telemetry())
		for _, a := range w.Agents() {
			s.fleet.Add(a.ID, w.Graph.Pos(a.Current))
		}
		s.spawn(func() { s.fleet.Run(bg) })
	} else {
		s.relay.target.Store(s.Scheduler.Telemetry())
	}
	if s.recorder != nil {
		s.spawn(func() { s.recorder.Run(bg) })
	}

	ok = true
	return s, nil
}

// openDevices binds the transport, learns device addresses over mDNS and,
// for lifelong runs, waits for every device to report a position.
func (s *Session) openDevices(ctx, bg context.Context) (map[core.AgentID]core.Pos, error) {
	cfg := s.opts.Config
	tr, err := transport.New(fmt.Sprintf(":%d", cfg.UDP.Port))
	if err != nil {
		return nil, err
	}
	s.tr = tr
	s.link = transport.NewLink(tr)
	s.spawn(func() { tr.Listen(bg) })
	s.spawn(func() { s.link.Pump(bg, &s.relay) })

	peers, err := discovery.Browse(ctx, cfg.MDNS.Service, cfg.MDNS.Timeout)
	if err != nil {
		s.log.Warn("device discovery failed", "error", err)
	}
	for _, p := range peers {
		s.link.Register(p.Agent, p.Addr)
	}

	if s.opts.Variant != core.VariantLifelong || len(s.opts.Instance.Agents) > 0 {
		return nil, nil
	}

	ids := make([]core.AgentID, 0, len(peers))
	for _, d := range s.link.Devices() {
		ids = append(ids, d.Agent)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no devices found: %w", ErrNoAgents)
	}
	wctx, cancel := context.WithTimeout(ctx, cfg.MDNS.Timeout+cfg.InitDelay)
	defer cancel()
	positions, err := s.link.WaitFor(wctx, ids, 50*time.Millisecond)
	if err != nil {
		s.log.Warn("devices without position are left out", "reported", len(positions), "known", len(ids))
	}
	return positions, nil
}

func (s *Session) buildWorld(positions map[core.AgentID]core.Pos) (*core.World, error) {
	inst := s.opts.Instance
	cfg := s.opts.Config
	if len(inst.Agents) > 0 || len(inst.Plans) > 0 {
		return inst.World(cfg.Tolerance)
	}
	if s.opts.Variant != core.VariantLifelong {
		return nil, ErrNoAgents
	}

	w := core.NewWorld(inst.Graph, cfg.Tolerance)
	if positions != nil {
		// Devices start at the nearest free node to where they stand.
		ids := make([]core.AgentID, 0, len(positions))
		for id := range positions {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			v := w.NearestFree(positions[id])
			if v == core.NoNode {
				return nil, fmt.Errorf("agent %q: no free node left", id)
			}
			if err := w.AddAgent(&core.Agent{ID: id, Current: v}); err != nil {
				return nil, err
			}
		}
		return w, nil
	}

	return PlaceRandom(inst.Graph, cfg.Tolerance, s.opts.Agents, cfg.Seed)
}

// PlaceRandom creates a world with n goal-less agents on distinct random
// nodes.
func PlaceRandom(g *core.Graph, tolerance float64, n int, seed int64) (*core.World, error) {
	ids := g.IDs()
	if n > len(ids) {
		return nil, fmt.Errorf("%d agents do not fit on %d nodes", n, len(ids))
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(ids))
	w := core.NewWorld(g, tolerance)
	for i := 0; i < n; i++ {
		a := &core.Agent{ID: core.AgentID(fmt.Sprintf("a%02d", i)), Current: ids[perm[i]]}
		if err := w.AddAgent(a); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// assignGoals pairs the agents' starts with their goal set by bottleneck
// target assignment.
func assignGoals(ctx context.Context, w *core.World) error {
	agents := w.Agents()
	starts := make([]core.NodeID, len(agents))
	goals := make([]core.NodeID, len(agents))
	for i, a := range agents {
		starts[i] = a.Current
		goals[i] = a.Goal
	}
	res, err := algo.AssignTargets(w.Dist, starts, goals)
	if err != nil {
		return fmt.Errorf("target assignment failed: %w", err)
	}
	for i, a := range agents {
		a.Goal = res.Goals[i]
	}
	logging.FromContext(ctx).Info("targets assigned", "makespan", res.Makespan, "cost", res.Cost)
	return nil
}

// Run drives the scheduler to termination. The status API serves while it
// runs when an HTTP address is configured. The summary is exported when a
// summary path is configured.
func (s *Session) Run(ctx context.Context) (exec.Summary, error) {
	cfg := s.opts.Config
	if cfg.HTTP.Addr != "" {
		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: api.NewHandler(&api.Server{
				Source:   s.Scheduler,
				Graph:    s.World.Graph,
				Hub:      s.Hub,
				Gatherer: s.Registry,
				Log:      s.log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("status API failed", "error", err)
			}
		}()
		s.log.Info("status API listening", "addr", cfg.HTTP.Addr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
	}

	sum, err := s.Scheduler.Run(ctx)
	if cfg.SummaryPath != "" {
		if xerr := sum.Export(cfg.SummaryPath); xerr != nil {
			s.log.Warn("summary export failed", "path", cfg.SummaryPath, "error", xerr)
		}
	}
	return sum, err
}

// Fleet returns the simulated robots, nil in UDP mode.
func (s *Session) Fleet() *sim.Fleet { return s.fleet }

// Link returns the device link, nil in simulated mode.
func (s *Session) Link() *transport.Link { return s.link }

// Close stops the workers, flushes pending snapshots and releases sockets
// and connections.
func (s *Session) Close() error {
	s.cancel()
	s.wg.Wait()
	var errs []error
	if s.tr != nil {
		errs = append(errs, s.tr.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func (s *Session) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}
