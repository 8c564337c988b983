package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

const saveTimeout = 2 * time.Second

// Saver persists snapshots. Store implements it.
type Saver interface {
	Save(ctx context.Context, snap *core.Snapshot) error
}

// Recorder decouples the tick loop from persistence. Observe never blocks;
// snapshots arriving while the queue is full are dropped.
type Recorder struct {
	saver   Saver
	queue   chan *core.Snapshot
	dropped atomic.Uint64
	saved   atomic.Uint64
}

// NewRecorder creates a recorder with a queue of size snapshots.
func NewRecorder(s Saver, size int) *Recorder {
	if size <= 0 {
		size = 64
	}
	return &Recorder{saver: s, queue: make(chan *core.Snapshot, size)}
}

// Observe enqueues snap. It matches exec.Observer.
func (r *Recorder) Observe(snap *core.Snapshot) {
	select {
	case r.queue <- snap:
	default:
		r.dropped.Add(1)
	}
}

// Run saves queued snapshots until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	// Saves outlive cancellation so the final ticks are not lost.
	base := context.WithoutCancel(ctx)
	save := func(snap *core.Snapshot) {
		sctx, cancel := context.WithTimeout(base, saveTimeout)
		defer cancel()
		if err := r.saver.Save(sctx, snap); err != nil {
			log.Warn("snapshot save failed", "tick", snap.Tick, "error", err)
			return
		}
		r.saved.Add(1)
	}

	for {
		select {
		case snap := <-r.queue:
			save(snap)
		case <-ctx.Done():
			for {
				select {
				case snap := <-r.queue:
					save(snap)
				default:
					return
				}
			}
		}
	}
}

// Dropped returns the number of snapshots discarded on a full queue.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Saved returns the number of snapshots persisted.
func (r *Recorder) Saved() uint64 { return r.saved.Load() }
