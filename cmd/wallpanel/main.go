// Command wallpanel runs the video wall controller: the layout and routing
// controller, its HTTP and websocket API, and the Stream Deck panel.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/event"
	"github.com/phinze/wallpanel/internal/messenger"
	"github.com/phinze/wallpanel/internal/processor/emulator"
	"github.com/phinze/wallpanel/internal/windowing"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:          "wallpanel",
	Short:        "Video wall layout and routing controller",
	SilenceUsage: true,
	RunE:         runDaemon,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (or set WALLPANEL_DEBUG)")
	rootCmd.AddCommand(statusCmd, setupCmd, layoutsCmd, routeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("WALLPANEL_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newWall builds the controller for the configured processor. Only the
// emulated processor has a transport, so other types run against it.
func newWall(cfg *config.Config, logger *slog.Logger) (*windowing.Controller, *emulator.Processor) {
	if cfg.Processor.Type != "emulator" {
		logger.Warn("No transport for processor type, using the emulator", "type", cfg.Processor.Type)
	}
	proc := emulator.New()
	wall := windowing.New(windowing.Params{
		Key:        cfg.Processor.Key,
		Name:       cfg.Processor.Name,
		Processor:  proc,
		Properties: cfg.Processor.Properties,
		Logger:     logger,
	})
	return wall, proc
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus(logger)
	wall, _ := newWall(cfg, logger)
	messenger.Publish(bus, wall)

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	server := messenger.NewServer(messenger.Params{
		Devices:  []messenger.Device{wall},
		Bus:      bus,
		APIToken: cfg.Server.APIToken,
		Logger:   logger,
	})
	if cfg.Server.APIToken == "" {
		logger.Warn("No API token configured, commands are unauthenticated")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, lis)
	})
	if cfg.Panel.Disabled {
		logger.Info("Panel disabled")
	} else {
		g.Go(func() error {
			runPanelLoop(ctx, panelLoopParams{
				cfg:    cfg,
				wall:   wall,
				bus:    bus,
				logger: logger,
			})
			return nil
		})
	}

	logger.Info("Running", "device", wall.Key(), "state", wall.State(), "listen", cfg.Server.Listen)
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Exiting")
	return nil
}
