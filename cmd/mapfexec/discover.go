package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/elektrokombinacija/mapf-exec/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List agent devices advertised over mDNS",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		peers, err := discovery.Browse(cmd.Context(), cfg.MDNS.Service, cfg.MDNS.Timeout)
		if err != nil {
			return err
		}
		printPeers(cmd.OutOrStdout(), peers)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func printPeers(w io.Writer, peers []discovery.Peer) {
	if len(peers) == 0 {
		fmt.Fprintln(w, "no devices found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tADDRESS\tINFO")
	for _, p := range peers {
		keys := make([]string, 0, len(p.Info))
		for k := range p.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		info := make([]string, len(keys))
		for i, k := range keys {
			info[i] = k + "=" + p.Info[k]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Agent, p.Addr, strings.Join(info, " "))
	}
	tw.Flush()
}
