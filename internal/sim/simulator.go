// Package sim provides simulated robots for running the executor without
// hardware.
//
// A Fleet acts as the actuator (it accepts move commands) and as the
// telemetry source (it publishes positions while robots drive).
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// ErrUnknownRobot is returned for commands to a robot never added.
var ErrUnknownRobot = errors.New("unknown robot")

// Publisher receives position samples. exec.Telemetry implements it.
type Publisher interface {
	Publish(id core.AgentID, x, y float64) bool
}

// Config configures the simulated robots
type Config struct {
	// Travel speed in position units per second
	Speed float64

	// Time step of the kinematic update
	TimeStep time.Duration

	// Standard deviation of the reported position noise
	Noise float64

	// Probability that a move command is lost
	CommandLoss float64

	// Random seed for reproducibility
	Seed int64
}

// DefaultConfig returns default simulation configuration
func DefaultConfig() Config {
	return Config{
		Speed:    80,
		TimeStep: 20 * time.Millisecond,
		Seed:     42,
	}
}

type robot struct {
	pos    core.Pos
	target core.Pos
	moving bool
}

// Fleet simulates a set of robots.
type Fleet struct {
	mu     sync.Mutex
	cfg    Config
	out    Publisher
	rng    *rand.Rand
	robots map[core.AgentID]*robot
	order  []core.AgentID

	commands int
	lost     int
}

// NewFleet creates an empty fleet publishing to out.
func NewFleet(cfg Config, out Publisher) *Fleet {
	return &Fleet{
		cfg:    cfg,
		out:    out,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		robots: make(map[core.AgentID]*robot),
	}
}

// Add places a robot at pos.
func (f *Fleet) Add(id core.AgentID, pos core.Pos) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.robots[id]; !ok {
		f.order = append(f.order, id)
	}
	f.robots[id] = &robot{pos: pos, target: pos}
}

// Move commands a robot toward target. It returns immediately.
func (f *Fleet) Move(ctx context.Context, id core.AgentID, target core.Pos) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.robots[id]
	if !ok {
		return fmt.Errorf("robot %q: %w", id, ErrUnknownRobot)
	}
	f.commands++
	if f.cfg.CommandLoss > 0 && f.rng.Float64() < f.cfg.CommandLoss {
		f.lost++
		return nil
	}
	r.target = target
	r.moving = true
	return nil
}

// Advance moves every robot by dt and publishes its position.
func (f *Fleet) Advance(dt time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	step := f.cfg.Speed * dt.Seconds()
	for _, id := range f.order {
		r := f.robots[id]
		if r.moving {
			dx, dy := r.target.X-r.pos.X, r.target.Y-r.pos.Y
			d := math.Hypot(dx, dy)
			if d <= step {
				r.pos = r.target
				r.moving = false
			} else {
				r.pos.X += dx / d * step
				r.pos.Y += dy / d * step
			}
		}

		x, y := r.pos.X, r.pos.Y
		if f.cfg.Noise > 0 {
			x += f.rng.NormFloat64() * f.cfg.Noise
			y += f.rng.NormFloat64() * f.cfg.Noise
		}
		f.out.Publish(id, x, y)
	}
}

// Run advances the fleet every TimeStep until ctx is done.
func (f *Fleet) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.TimeStep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Advance(f.cfg.TimeStep)
		}
	}
}

// Position returns the true position of a robot.
func (f *Fleet) Position(id core.AgentID) (core.Pos, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.robots[id]
	if !ok {
		return core.Pos{}, false
	}
	return r.pos, true
}

// Stats returns the number of commands received and lost.
func (f *Fleet) Stats() (commands, lost int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands, f.lost
}
