package exec

import (
	"sync/atomic"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// Position is one telemetry sample.
type Position struct {
	Agent core.AgentID
	Pos   core.Pos
}

// Telemetry is the single bounded queue between asynchronous position
// producers and the tick loop. Producers never block.
type Telemetry struct {
	ch      chan Position
	dropped atomic.Uint64
}

// NewTelemetry creates a queue holding up to size samples.
func NewTelemetry(size int) *Telemetry {
	if size <= 0 {
		size = 1
	}
	return &Telemetry{ch: make(chan Position, size)}
}

// Publish enqueues a sample. It reports false when the queue is full and the
// sample was dropped. Safe for concurrent use.
func (t *Telemetry) Publish(id core.AgentID, x, y float64) bool {
	select {
	case t.ch <- Position{Agent: id, Pos: core.Pos{X: x, Y: y}}:
		return true
	default:
		t.dropped.Add(1)
		return false
	}
}

// Drain hands every queued sample to fn and returns how many there were.
// Only the tick loop calls it.
func (t *Telemetry) Drain(fn func(Position)) int {
	n := 0
	for {
		select {
		case p := <-t.ch:
			fn(p)
			n++
		default:
			return n
		}
	}
}

// Dropped returns the number of samples lost to a full queue.
func (t *Telemetry) Dropped() uint64 {
	return t.dropped.Load()
}
