// Package transport carries telemetry and move commands between the
// executor and physical devices as JSON datagrams over UDP.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

const (
	MaxMsgSize  = 65536
	DefaultPort = 9990
)

// Message types.
const (
	TypeHello    = "hello"
	TypePosition = "pos"
	TypeMove     = "move"
)

// Message is one datagram. Devices send hello and pos; the executor sends
// move.
type Message struct {
	Type      string  `json:"type"`
	Agent     string  `json:"agent"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// Received is a message with its source address.
type Received struct {
	Msg  *Message
	From *net.UDPAddr
}

// Transport is a bound UDP socket.
type Transport struct {
	conn   *net.UDPConn
	recvCh chan Received
	once   sync.Once
}

// New binds to addr (host:port, ":0" for an ephemeral port).
func New(addr string) (*Transport, error) {
	ua, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", ua)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP: %w", err)
	}
	return &Transport{
		conn:   conn,
		recvCh: make(chan Received, 256),
	}, nil
}

// LocalAddr returns the bound address.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// Recv returns the channel of decoded messages. It is closed when the
// receive loop exits.
func (t *Transport) Recv() <-chan Received {
	return t.recvCh
}

// Listen reads datagrams until ctx is done or the socket is closed.
// Malformed datagrams are logged and skipped; messages are dropped when the
// receive channel is full.
func (t *Transport) Listen(ctx context.Context) {
	log := logging.FromContext(ctx)
	defer close(t.recvCh)

	stop := context.AfterFunc(ctx, func() { t.Close() })
	defer stop()

	buf := make([]byte, MaxMsgSize)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("UDP receive failed", "error", err)
			continue
		}

		var msg Message
		if err := json.Unmarshal(buf[:n], &msg); err != nil {
			log.Warn("malformed datagram", "from", src, "error", err)
			continue
		}

		select {
		case t.recvCh <- Received{Msg: &msg, From: src}:
		default:
			log.Warn("receive queue full, dropping message", "from", src, "type", msg.Type)
		}
	}
}

// Send encodes msg and writes it to addr.
func (t *Transport) Send(msg *Message, addr *net.UDPAddr) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := t.conn.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}
	return nil
}

// Close shuts the socket. It is safe to call more than once.
func (t *Transport) Close() error {
	var err error
	t.once.Do(func() { err = t.conn.Close() })
	return err
}
