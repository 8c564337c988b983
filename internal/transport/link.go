package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

// ErrUnknownDevice is returned when commanding an agent with no known
// address.
var ErrUnknownDevice = errors.New("unknown device")

// Publisher receives position samples. exec.Telemetry implements it.
type Publisher interface {
	Publish(id core.AgentID, x, y float64) bool
}

// Device is a known agent endpoint.
type Device struct {
	Agent    core.AgentID
	Addr     *net.UDPAddr
	Pos      core.Pos
	HasPos   bool
	LastSeen time.Time
}

// Link maps agents to device addresses. It sends move commands and turns
// incoming position reports into telemetry.
type Link struct {
	t *Transport

	mu      sync.RWMutex
	devices map[core.AgentID]*Device
}

// NewLink wraps a bound transport.
func NewLink(t *Transport) *Link {
	return &Link{t: t, devices: make(map[core.AgentID]*Device)}
}

// Register records or updates the address of an agent.
func (l *Link) Register(id core.AgentID, addr *net.UDPAddr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.devices[id]
	if !ok {
		d = &Device{Agent: id}
		l.devices[id] = d
	}
	d.Addr = addr
	d.LastSeen = time.Now()
}

// Devices returns a copy of the registry sorted by agent id.
func (l *Link) Devices() []Device {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Device, 0, len(l.devices))
	for _, d := range l.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// Move sends a move command to the agent's device. Delivery is not
// confirmed; progress is observed through telemetry.
func (l *Link) Move(ctx context.Context, id core.AgentID, target core.Pos) error {
	l.mu.RLock()
	d, ok := l.devices[id]
	var addr *net.UDPAddr
	if ok {
		addr = d.Addr
	}
	l.mu.RUnlock()
	if addr == nil {
		return fmt.Errorf("agent %q: %w", id, ErrUnknownDevice)
	}
	return l.t.Send(&Message{
		Type:      TypeMove,
		Agent:     string(id),
		X:         target.X,
		Y:         target.Y,
		Timestamp: time.Now().UnixMilli(),
	}, addr)
}

// Pump consumes received messages until the transport's receive channel
// closes or ctx is done. Every message registers its sender; position
// reports are forwarded to pub.
func (l *Link) Pump(ctx context.Context, pub Publisher) {
	log := logging.FromContext(ctx)
	for {
		var rm Received
		var ok bool
		select {
		case <-ctx.Done():
			return
		case rm, ok = <-l.t.Recv():
			if !ok {
				return
			}
		}

		msg := rm.Msg
		if msg.Agent == "" {
			log.Warn("message without agent id", "from", rm.From, "type", msg.Type)
			continue
		}
		id := core.AgentID(msg.Agent)

		l.mu.RLock()
		_, known := l.devices[id]
		l.mu.RUnlock()
		if !known {
			log.Info("device registered", "agent", id, "addr", rm.From)
		}
		l.Register(id, rm.From)

		switch msg.Type {
		case TypeHello:
		case TypePosition:
			l.mu.Lock()
			d := l.devices[id]
			d.Pos = core.Pos{X: msg.X, Y: msg.Y}
			d.HasPos = true
			l.mu.Unlock()
			if pub != nil && !pub.Publish(id, msg.X, msg.Y) {
				log.Debug("telemetry dropped", "agent", id)
			}
		default:
			log.Warn("unexpected message type", "type", msg.Type, "from", rm.From)
		}
	}
}

// WaitFor blocks until every id in ids has reported a position or ctx is
// done. It returns the positions reported so far.
func (l *Link) WaitFor(ctx context.Context, ids []core.AgentID, poll time.Duration) (map[core.AgentID]core.Pos, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		got := make(map[core.AgentID]core.Pos, len(ids))
		l.mu.RLock()
		for _, id := range ids {
			if d, ok := l.devices[id]; ok && d.HasPos {
				got[id] = d.Pos
			}
		}
		l.mu.RUnlock()
		if len(got) == len(ids) {
			return got, nil
		}

		select {
		case <-ctx.Done():
			return got, ctx.Err()
		case <-ticker.C:
		}
	}
}
