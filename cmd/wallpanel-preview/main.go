// Command wallpanel-preview runs the controller against the processor
// emulator and shows the wall next to an on-screen Stream Deck Plus.
package main

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/coordinator"
	"github.com/phinze/wallpanel/internal/event"
	"github.com/phinze/wallpanel/internal/messenger"
	"github.com/phinze/wallpanel/internal/panel"
	"github.com/phinze/wallpanel/internal/preview"
	"github.com/phinze/wallpanel/internal/processor/emulator"
	"github.com/phinze/wallpanel/internal/windowing"
	"github.com/spf13/cobra"
)

var (
	debug  bool
	listen string
)

var rootCmd = &cobra.Command{
	Use:          "wallpanel-preview",
	Short:        "Preview the wall and panel against an emulated processor",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&listen, "listen", "", "also serve the API on this address")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("Config load failed, wall is unconfigured", "err", err)
		cfg = &config.Config{}
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := emulator.New()
	wall := windowing.New(windowing.Params{
		Key:        cfg.Processor.Key,
		Name:       cfg.Processor.Name,
		Processor:  proc,
		Properties: cfg.Processor.Properties,
		Logger:     logger,
	})
	bus := event.NewBus(logger)
	messenger.Publish(bus, wall)

	if listen != "" {
		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return err
		}
		server := messenger.NewServer(messenger.Params{
			Devices: []messenger.Device{wall},
			Bus:     bus,
			Logger:  logger,
		})
		go func() {
			if err := server.Run(ctx, lis); err != nil {
				logger.Error("API server failed", "err", err)
			}
		}()
	}

	win, err := preview.New(preview.Params{
		Wall:      wall,
		Processor: proc,
		Panel:     preview.NewPanel(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	deck := win.Panel()
	if err := deck.Open(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := panel.Run(ctx, panel.Params{
			Device:         deck,
			Wall:           wall,
			Bus:            bus,
			Screen:         cfg.Panel.Screen,
			Brightness:     cfg.Panel.Brightness,
			RenderInterval: time.Second,
			Logger:         logger,
		})
		if err != nil && !errors.Is(err, coordinator.ErrDisconnected) {
			logger.Error("Panel stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = deck.Close()
	}()

	logger.Info("Ready", "device", wall.Key(), "state", wall.State())

	// ebiten needs the main goroutine.
	err = win.Run()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		logger.Warn("Panel shutdown timed out")
	}
	return err
}
