// Package discovery finds agent devices on the local network over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

const ServiceName = "_mapfagent._udp"

// Peer is a discovered device.
type Peer struct {
	Agent core.AgentID
	Addr  *net.UDPAddr
	Info  map[string]string
}

// Announcer advertises one device.
type Announcer struct {
	server *mdns.Server
}

// Announce advertises agent id on port under service. info entries are
// published as key=value TXT records.
func Announce(service string, id core.AgentID, port int, info map[string]string) (*Announcer, error) {
	if service == "" {
		service = ServiceName
	}
	txt := []string{"agent=" + string(id)}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		txt = append(txt, k+"="+info[k])
	}

	svc, err := mdns.NewMDNSService(string(id), service, "", "", port, localIPv4(), txt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return &Announcer{server: server}, nil
}

// Shutdown stops advertising.
func (a *Announcer) Shutdown() error { return a.server.Shutdown() }

// Browse queries service for timeout and returns the peers found, sorted by
// agent id. A later entry for the same agent replaces an earlier one.
func Browse(ctx context.Context, service string, timeout time.Duration) ([]Peer, error) {
	if service == "" {
		service = ServiceName
	}
	log := logging.FromContext(ctx)

	entries := make(chan *mdns.ServiceEntry, 16)
	peers := make(map[core.AgentID]Peer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			p, ok := PeerFromEntry(e)
			if !ok {
				log.Debug("ignoring mDNS entry", "name", e.Name)
				continue
			}
			if _, seen := peers[p.Agent]; !seen {
				log.Info("device discovered", "agent", p.Agent, "addr", p.Addr)
			}
			peers[p.Agent] = p
		}
	}()

	params := mdns.DefaultParams(service)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("mDNS query failed: %w", err)
	}

	out := make([]Peer, 0, len(peers))
	for _, p := range peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out, nil
}

// PeerFromEntry converts a service entry. The agent id comes from the
// agent TXT record, falling back to the instance name.
func PeerFromEntry(e *mdns.ServiceEntry) (Peer, bool) {
	if e == nil || e.AddrV4 == nil {
		return Peer{}, false
	}
	info := make(map[string]string)
	for _, f := range e.InfoFields {
		k, v, ok := strings.Cut(f, "=")
		if ok {
			info[k] = v
		}
	}
	id := info["agent"]
	delete(info, "agent")
	if id == "" {
		id, _, _ = strings.Cut(e.Name, ".")
	}
	if id == "" {
		return Peer{}, false
	}
	return Peer{
		Agent: core.AgentID(id),
		Addr:  &net.UDPAddr{IP: e.AddrV4, Port: e.Port},
		Info:  info,
	}, true
}

func localIPv4() []net.IP {
	var ips []net.IP
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	if len(ips) == 0 {
		ips = []net.IP{net.IPv4(127, 0, 0, 1)}
	}
	return ips
}
