package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/coordinator"
	"github.com/phinze/wallpanel/internal/device"
	"github.com/phinze/wallpanel/internal/event"
	"github.com/phinze/wallpanel/internal/panel"
	"github.com/phinze/wallpanel/internal/usbwatch"
)

const (
	// USB enumeration may still be settling when a probe first succeeds.
	settleDelay  = 500 * time.Millisecond
	closeDelay   = 200 * time.Millisecond
	closeTimeout = 3 * time.Second
)

type panelLoopParams struct {
	cfg    *config.Config
	wall   panel.Wall
	bus    *event.Bus
	logger *slog.Logger
}

func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// runPanelLoop waits for a panel, runs it until it goes away and waits
// again, until ctx is cancelled. A USB arrival or system wake probes for the
// panel straight away; a wake also reconnects a running panel, since the
// USB handle rarely survives sleep.
func runPanelLoop(ctx context.Context, params panelLoopParams) {
	logger := params.logger.With("component", "panel-loop")

	retry := make(chan struct{}, 1)
	reconnect := make(chan struct{}, 1)

	arrivals := usbwatch.Watch(ctx, device.ElgatoVendorID, params.logger)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-arrivals:
				notify(retry)
			}
		}
	}()
	watchWake(ctx, logger, func() {
		notify(retry)
		notify(reconnect)
	})

	for {
		dev := device.Wait(ctx, retry, logger)
		if dev == nil {
			return
		}

		// A wake seen while waiting has already been acted on.
		drain(reconnect)

		select {
		case <-ctx.Done():
			closeDevice(dev, logger)
			return
		case <-time.After(settleDelay):
		}

		runDevice(ctx, dev, reconnect, params)
		if ctx.Err() != nil {
			return
		}
		logger.Info("Waiting for panel to reconnect")
	}
}

func runDevice(ctx context.Context, dev device.Device, reconnect <-chan struct{}, params panelLoopParams) {
	logger := params.logger.With("component", "panel-loop")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- panel.Run(runCtx, panel.Params{
			Device:     dev,
			Wall:       params.wall,
			Bus:        params.bus,
			Screen:     params.cfg.Panel.Screen,
			Brightness: params.cfg.Panel.Brightness,
			Logger:     params.logger,
		})
	}()

	var err error
	select {
	case err = <-done:
	case <-reconnect:
		logger.Info("Reconnecting panel after wake")
		cancel()
		err = <-done
	}

	switch {
	case errors.Is(err, coordinator.ErrDisconnected):
		logger.Info("Panel disconnected")
	case err != nil:
		logger.Warn("Panel stopped", "err", err)
	}

	// Pending USB callbacks can still fire right after the coordinator
	// stops; closing under them crashes the HID layer.
	time.Sleep(closeDelay)
	closeDevice(dev, logger)
}

// closeDevice closes dev, giving up after closeTimeout since closing a
// device that vanished can block indefinitely.
func closeDevice(dev device.Device, logger *slog.Logger) {
	done := make(chan error, 1)
	go func() { done <- dev.Close() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Debug("Panel close failed", "err", err)
		}
	case <-time.After(closeTimeout):
		logger.Warn("Panel close timed out")
	}
}
