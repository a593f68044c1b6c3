package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/messenger"
	"github.com/spf13/cobra"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "List and select screen layouts on a running daemon",
}

var layoutsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every screen's layouts, marking the current one",
	Args:  cobra.NoArgs,
	RunE:  runLayoutsList,
}

var layoutsSelectCmd = &cobra.Command{
	Use:   "select SCREEN KEY",
	Short: "Select a screen's layout by item key",
	Args:  cobra.ExactArgs(2),
	RunE:  runLayoutsSelect,
}

func init() {
	layoutsCmd.AddCommand(layoutsListCmd, layoutsSelectCmd)
}

func newClient() (*messenger.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return messenger.NewClient(cfg.Server.Listen, cfg.Server.APIToken), cfg, nil
}

func runLayoutsList(cmd *cobra.Command, _ []string) error {
	client, cfg, err := newClient()
	if err != nil {
		return err
	}

	st, err := client.FullStatus(cmd.Context(), cfg.Processor.Key)
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s (%s), layout %s\n", st.Name, st.State, st.CurrentLayout)
	for _, n := range config.SortedKeys(st.Screens) {
		sel, err := client.Screen(cmd.Context(), cfg.Processor.Key, n)
		if err != nil {
			return fmt.Errorf("fetch screen %d: %w", n, err)
		}
		fmt.Fprintf(w, "\nScreen %d: %s\n", n, sel.Name)
		for _, item := range sel.Items {
			mark := " "
			if item.IsSelected {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %s\t%s\t(%d)\n", mark, item.Key, item.Name, item.ID)
		}
	}
	return w.Flush()
}

func runLayoutsSelect(cmd *cobra.Command, args []string) error {
	screen, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid screen %q: %w", args[0], err)
	}

	client, cfg, err := newClient()
	if err != nil {
		return err
	}

	sel, err := client.Select(cmd.Context(), cfg.Processor.Key, uint(screen), args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Screen %d: selected %s\n", screen, sel.CurrentItem)
	return nil
}
