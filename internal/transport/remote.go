package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

// Mover executes move commands on the device side.
type Mover interface {
	Move(ctx context.Context, id core.AgentID, target core.Pos) error
}

// Remote is the device side of a link: it reports positions to the executor
// and receives move commands. One Remote may front several agents.
type Remote struct {
	t      *Transport
	server *net.UDPAddr
}

// Dial binds an ephemeral port and targets the executor at server.
func Dial(server string) (*Remote, error) {
	sa, err := net.ResolveUDPAddr("udp4", server)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", server, err)
	}
	t, err := New(":0")
	if err != nil {
		return nil, err
	}
	return &Remote{t: t, server: sa}, nil
}

// LocalAddr returns the device-side address.
func (r *Remote) LocalAddr() *net.UDPAddr { return r.t.LocalAddr() }

// Hello announces an agent without a position.
func (r *Remote) Hello(id core.AgentID) error {
	return r.t.Send(&Message{Type: TypeHello, Agent: string(id), Timestamp: time.Now().UnixMilli()}, r.server)
}

// Publish reports a position. It implements sim.Publisher.
func (r *Remote) Publish(id core.AgentID, x, y float64) bool {
	err := r.t.Send(&Message{
		Type:      TypePosition,
		Agent:     string(id),
		X:         x,
		Y:         y,
		Timestamp: time.Now().UnixMilli(),
	}, r.server)
	return err == nil
}

// Serve dispatches move commands to m until ctx is done.
func (r *Remote) Serve(ctx context.Context, m Mover) {
	log := logging.FromContext(ctx)
	go r.t.Listen(ctx)
	for rm := range r.t.Recv() {
		if rm.Msg.Type != TypeMove {
			log.Debug("ignoring message", "type", rm.Msg.Type, "from", rm.From)
			continue
		}
		id := core.AgentID(rm.Msg.Agent)
		if err := m.Move(ctx, id, core.Pos{X: rm.Msg.X, Y: rm.Msg.Y}); err != nil {
			log.Warn("move rejected", "agent", id, "error", err)
		}
	}
}

// Close releases the socket.
func (r *Remote) Close() error { return r.t.Close() }
