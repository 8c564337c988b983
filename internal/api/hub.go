package api

import (
	"context"
	"sync"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// Hub fans snapshots out to streaming subscribers. Slow subscribers miss
// snapshots rather than stalling the tick loop.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *core.Snapshot]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *core.Snapshot]struct{})}
}

// Publish delivers snap to every subscriber with room. It matches
// exec.Observer.
func (h *Hub) Publish(snap *core.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribe returns a channel of snapshots that is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) <-chan *core.Snapshot {
	ch := make(chan *core.Snapshot, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	context.AfterFunc(ctx, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	})
	return ch
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
