package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/exec"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
	"github.com/elektrokombinacija/mapf-exec/internal/session"
)

var (
	useUDP     bool
	assign     bool
	pibtAgents int
)

var tswapCmd = &cobra.Command{
	Use:   "tswap <graph> <problem>",
	Short: "Drive goal-driven agents with TSWAP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loader.LoadGraph(args[0])
		if err != nil {
			return err
		}
		agents, err := loader.LoadProblem(args[1])
		if err != nil {
			return err
		}
		return execute(cmd.Context(), cmd.OutOrStdout(), session.Options{
			Variant:  core.VariantGoal,
			Instance: &core.Instance{Graph: g, Agents: agents},
			Assign:   assign,
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp <graph> <plans>",
	Short: "Replay precomputed plans with MCP",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loader.LoadGraph(args[0])
		if err != nil {
			return err
		}
		plans, err := loader.LoadPlans(args[1])
		if err != nil {
			return err
		}
		return execute(cmd.Context(), cmd.OutOrStdout(), session.Options{
			Variant:  core.VariantPlan,
			Instance: &core.Instance{Graph: g, Plans: plans},
		})
	},
}

var pibtCmd = &cobra.Command{
	Use:   "pibt <graph> [problem]",
	Short: "Run lifelong PIBT with random goal reassignment",
	Long: `Without a problem file, simulated runs place --agents agents at random nodes
and UDP runs start every discovered device at the free node nearest to its
first reported position. PIBT never terminates on its own; use --max-ticks
or interrupt it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loader.LoadGraph(args[0])
		if err != nil {
			return err
		}
		inst := &core.Instance{Graph: g}
		if len(args) == 2 {
			if inst.Agents, err = loader.LoadProblem(args[1]); err != nil {
				return err
			}
		}
		return execute(cmd.Context(), cmd.OutOrStdout(), session.Options{
			Variant:  core.VariantLifelong,
			Instance: inst,
			Agents:   pibtAgents,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{tswapCmd, mcpCmd, pibtCmd} {
		c.Flags().BoolVar(&useUDP, "udp", false, "Drive devices over UDP instead of simulated robots")
		rootCmd.AddCommand(c)
	}
	tswapCmd.Flags().BoolVar(&assign, "assign", true, "Reassign the goal set by makespan-minimal target assignment")
	pibtCmd.Flags().IntVar(&pibtAgents, "agents", 4, "Number of simulated agents when no problem file is given")
}

// execute opens a session and runs it until termination or interrupt.
func execute(ctx context.Context, out io.Writer, opts session.Options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts.Config = cfg
	opts.Mode = session.ModeSim
	if useUDP {
		opts.Mode = session.ModeUDP
	}

	s, err := session.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := s.Run(ctx)
	printSummary(out, sum)
	if errors.Is(err, context.Canceled) {
		logging.FromContext(ctx).Info("run interrupted", "ticks", sum.Ticks)
		return nil
	}
	return err
}

func printSummary(w io.Writer, s exec.Summary) {
	fmt.Fprintf(w, "\n=== %s run %s ===\n", s.Planner, s.RunID)
	fmt.Fprintf(w, "Done:       %v\n", s.Done)
	fmt.Fprintf(w, "Ticks:      %d (%v)\n", s.Ticks, s.End.Sub(s.Start).Round(time.Millisecond))
	fmt.Fprintf(w, "Moves:      %d issued, %d arrived\n", s.Moves, s.Arrivals)
	fmt.Fprintf(w, "Swaps:      %d\n", s.Swaps)
	fmt.Fprintf(w, "Rotations:  %d\n", s.Rotations)
	fmt.Fprintf(w, "Waits:      %d\n", s.Waits)
	fmt.Fprintf(w, "Reassigned: %d\n", s.Reassigned)
	if s.ActuatorErrors > 0 || s.TelemetryDropped > 0 {
		fmt.Fprintf(w, "Errors:     %d actuator, %d telemetry dropped\n", s.ActuatorErrors, s.TelemetryDropped)
	}
}
