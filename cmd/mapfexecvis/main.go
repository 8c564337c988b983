// Command mapfexecvis runs a simulated execution and shows it live in a
// window, with a scrubbable tick history.
package main

import (
	"context"
	"fmt"
	"os"

	"gioui.org/app"
	"gioui.org/unit"
	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mapf-exec/internal/config"
	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/exec"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
	"github.com/elektrokombinacija/mapf-exec/internal/session"
	"github.com/elektrokombinacija/mapf-exec/internal/vis"
	"github.com/elektrokombinacija/mapf-exec/internal/vis/state"
)

var (
	overrides *config.Overrides
	agents    int
	history   int
)

var rootCmd = &cobra.Command{
	Use:   "mapfexecvis <tswap|mcp|pibt> <graph> [problem|plans]",
	Short: "Visualize a simulated execution run",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := overrides.Load()
		if err != nil {
			return err
		}
		opts, err := buildOptions(args)
		if err != nil {
			return err
		}
		opts.Config = cfg
		opts.Mode = session.ModeSim
		opts.Agents = agents

		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		log := logging.New(os.Stderr, level, cfg.Log.Format)
		ctx := logging.WithLogger(context.Background(), log)

		st := state.New(opts.Instance.Graph, history)
		opts.Observers = []exec.Observer{st.Push}

		s, err := session.Open(ctx, opts)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("%s run %s", s.Planner.Name(), s.Scheduler.RunID())

		go func() {
			defer s.Close()
			sum, err := s.Run(ctx)
			if err != nil {
				logging.FromContext(ctx).Error("run failed", "error", err)
				return
			}
			logging.FromContext(ctx).Info("run finished", "done", sum.Done, "ticks", sum.Ticks, "moves", sum.Moves)
		}()

		go func() {
			window := new(app.Window)
			window.Option(
				app.Title(title),
				app.Size(unit.Dp(1400), unit.Dp(900)),
			)
			if err := vis.NewApp(st, title).Run(window); err != nil {
				log.Error("window closed", "error", err)
				os.Exit(1)
			}
			os.Exit(0)
		}()
		app.Main()
		return nil
	},
}

func init() {
	overrides = config.BindFlags(rootCmd.Flags())
	rootCmd.Flags().IntVar(&agents, "agents", 8, "PIBT agents placed at random nodes when no problem is given")
	rootCmd.Flags().IntVar(&history, "history", 5000, "Ticks kept for playback")
}

// buildOptions loads the instance files for the named planner.
func buildOptions(args []string) (session.Options, error) {
	variant, err := core.ParseVariant(args[0])
	if err != nil {
		return session.Options{}, err
	}
	g, err := loader.LoadGraph(args[1])
	if err != nil {
		return session.Options{}, err
	}
	opts := session.Options{Variant: variant, Instance: &core.Instance{Graph: g}}

	switch {
	case len(args) < 3 && variant != core.VariantLifelong:
		return opts, fmt.Errorf("%s needs a problem or plan file", args[0])
	case len(args) < 3:
	case variant == core.VariantPlan:
		opts.Instance.Plans, err = loader.LoadPlans(args[2])
	default:
		opts.Instance.Agents, err = loader.LoadProblem(args[2])
		opts.Assign = variant == core.VariantGoal
	}
	return opts, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
