package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/discovery"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
	"github.com/elektrokombinacija/mapf-exec/internal/session"
	"github.com/elektrokombinacija/mapf-exec/internal/sim"
	"github.com/elektrokombinacija/mapf-exec/internal/transport"
)

var (
	emulateServer   string
	emulateAgents   int
	emulateAnnounce bool
)

var emulateCmd = &cobra.Command{
	Use:   "emulate <graph> [problem]",
	Short: "Emulate UDP devices with simulated robots",
	Long: `Runs simulated robots that behave like real devices: they report positions
to the executor over UDP and drive toward the targets it commands. Robots
start at the problem's start nodes, or at --agents random nodes. With
--announce every robot is advertised over mDNS so a "--udp" run finds it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loader.LoadGraph(args[0])
		if err != nil {
			return err
		}
		starts := make(map[core.AgentID]core.Pos)
		if len(args) == 2 {
			agents, err := loader.LoadProblem(args[1])
			if err != nil {
				return err
			}
			for id, a := range agents {
				if !g.Has(a.Start) {
					return fmt.Errorf("agent %q: %w: %s", id, core.ErrUnknownNode, a.Start)
				}
				starts[id] = g.Pos(a.Start)
			}
		} else {
			w, err := session.PlaceRandom(g, cfg.Tolerance, emulateAgents, cfg.Seed)
			if err != nil {
				return err
			}
			for _, a := range w.Agents() {
				starts[a.ID] = g.Pos(a.Current)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runEmulate(ctx, starts)
	},
}

func init() {
	emulateCmd.Flags().StringVar(&emulateServer, "server", "", "Executor UDP address (default 127.0.0.1:<udp-port>)")
	emulateCmd.Flags().IntVar(&emulateAgents, "agents", 4, "Number of robots when no problem file is given")
	emulateCmd.Flags().BoolVar(&emulateAnnounce, "announce", true, "Advertise every robot over mDNS")
	rootCmd.AddCommand(emulateCmd)
}

// runEmulate drives one simulated fleet behind a device-side link until ctx
// is done.
func runEmulate(ctx context.Context, starts map[core.AgentID]core.Pos) error {
	log := logging.FromContext(ctx)

	server := emulateServer
	if server == "" {
		server = fmt.Sprintf("127.0.0.1:%d", cfg.UDP.Port)
	}
	remote, err := transport.Dial(server)
	if err != nil {
		return err
	}
	defer remote.Close()

	ids := make([]core.AgentID, 0, len(starts))
	for id := range starts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fleet := sim.NewFleet(cfg.Simulator(), remote)
	port := remote.LocalAddr().Port
	for _, id := range ids {
		fleet.Add(id, starts[id])
		if err := remote.Hello(id); err != nil {
			log.Warn("hello failed", "agent", id, "error", err)
		}
		if !emulateAnnounce {
			continue
		}
		a, err := discovery.Announce(cfg.MDNS.Service, id, port, map[string]string{"kind": "sim"})
		if err != nil {
			return err
		}
		defer a.Shutdown()
	}
	log.Info("emulating devices", "agents", len(ids), "server", server, "port", port)

	go fleet.Run(ctx)
	remote.Serve(ctx, fleet)

	cmds, lost := fleet.Stats()
	log.Info("emulation stopped", "commands", cmds, "lost", lost)
	return nil
}
