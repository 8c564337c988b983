package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mapf-exec/internal/config"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

var (
	cfg       config.Config
	overrides *config.Overrides
)

var rootCmd = &cobra.Command{
	Use:          "mapfexec",
	Short:        "Decentralized multi-agent path execution",
	Long:         `mapfexec commands robots hop by hop over a shared graph using TSWAP, MCP or PIBT, reconciling position telemetry at a fixed tick.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := overrides.Load()
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(c.Log.Level)
		if err != nil {
			return err
		}
		log := logging.New(os.Stderr, level, c.Log.Format)
		cmd.SetContext(logging.WithLogger(cmd.Context(), log))
		cfg = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	overrides = config.BindFlags(rootCmd.PersistentFlags())
}
