package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/loader"
)

var validatePlans bool

var validateCmd = &cobra.Command{
	Use:   "validate <graph> [problem]",
	Short: "Check a graph and optionally a problem or plan file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), args, validatePlans)
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validatePlans, "plans", false, "Treat the second file as precomputed plans")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(out io.Writer, args []string, plans bool) error {
	g, err := loader.LoadGraph(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "graph %s: %d nodes\n", args[0], g.Len())
	if len(args) < 2 {
		return nil
	}

	inst := &core.Instance{Graph: g}
	if plans {
		inst.Plans, err = loader.LoadPlans(args[1])
	} else {
		inst.Agents, err = loader.LoadProblem(args[1])
	}
	if err != nil {
		return err
	}
	if err := inst.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d agents OK\n", args[1], len(inst.AgentIDs()))
	if plans {
		return nil
	}
	w, err := inst.World(cfg.Tolerance)
	if err != nil {
		return err
	}
	if err := w.CheckGoals(); err != nil {
		fmt.Fprintf(out, "not runnable with tswap:\n%v\n", err)
	}
	return nil
}
