package main

import (
	"fmt"
	"strconv"

	"github.com/phinze/wallpanel/internal/messenger"
	"github.com/spf13/cobra"
)

var routeSignal string

var routeCmd = &cobra.Command{
	Use:   "route INPUT WINDOW",
	Short: "Route an input to a window on a running daemon (input 0 clears)",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeSignal, "signal", "video", "signal to route: video, audio or audioVideo")
}

func runRoute(cmd *cobra.Command, args []string) error {
	input, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid input %q: %w", args[0], err)
	}
	window, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid window %q: %w", args[1], err)
	}

	client, cfg, err := newClient()
	if err != nil {
		return err
	}

	st, err := client.Route(cmd.Context(), cfg.Processor.Key, messenger.RouteRequest{
		Input:      uint(input),
		Output:     uint(window),
		SignalType: routeSignal,
	})
	if err != nil {
		return err
	}
	for _, ws := range st.Windows {
		if ws.Number == uint(window) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ws.Name, ws.VideoName)
		}
	}
	return nil
}
