package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

func TestPeerFromEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  core.AgentID
		ok    bool
	}{
		{"agent record", &mdns.ServiceEntry{Name: "x._mapfagent._udp.local.", AddrV4: net.IPv4(10, 0, 0, 2), Port: 9990, InfoFields: []string{"agent=7f", "kind=ground"}}, "7f", true},
		{"instance name", &mdns.ServiceEntry{Name: "robot1._mapfagent._udp.local.", AddrV4: net.IPv4(10, 0, 0, 3), Port: 9990}, "robot1", true},
		{"no address", &mdns.ServiceEntry{Name: "robot1._mapfagent._udp.local."}, "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := PeerFromEntry(tt.entry)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, p.Agent)
			assert.Equal(t, tt.entry.Port, p.Addr.Port)
			assert.NotContains(t, p.Info, "agent")
		})
	}
}

func TestPeerFromEntryInfo(t *testing.T) {
	p, ok := PeerFromEntry(&mdns.ServiceEntry{
		Name:       "a._mapfagent._udp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 5),
		Port:       4000,
		InfoFields: []string{"agent=a", "kind=ground", "junk"},
	})
	require.True(t, ok)
	assert.Equal(t, map[string]string{"kind": "ground"}, p.Info)
	assert.Equal(t, "192.168.1.5:4000", p.Addr.String())
}
