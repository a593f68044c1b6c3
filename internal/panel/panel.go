// Package panel runs the wall's control surface on a connected Stream Deck:
// the screen's layouts on the keys and the windows on the dials and strip.
package panel

import (
	"cmp"
	"context"
	"log/slog"
	"time"

	"github.com/phinze/wallpanel/internal/coordinator"
	"github.com/phinze/wallpanel/internal/device"
	"github.com/phinze/wallpanel/internal/event"
	"github.com/phinze/wallpanel/internal/module"
	"github.com/phinze/wallpanel/internal/modules/layouts"
	"github.com/phinze/wallpanel/internal/modules/windows"
)

const defaultBrightness = 80

// Wall is the controller the panel drives.
type Wall interface {
	layouts.Wall
	windows.Wall
}

// Params holds the parameters for Run.
type Params struct {
	Device device.Device
	Wall   Wall
	// Bus carries status changes, which trigger an immediate redraw. The
	// panel announces itself on it as it comes and goes.
	Bus            *event.Bus
	Screen         uint
	Brightness     byte
	RenderInterval time.Duration
	Logger         *slog.Logger
}

// Run serves the device until ctx is cancelled or the device goes away, in
// which case it returns coordinator.ErrDisconnected. The caller closes the
// device.
func Run(ctx context.Context, params Params) error {
	dev := params.Device
	logger := params.Logger.With("component", "panel")
	model := dev.GetModelName()

	if err := dev.SetBrightness(cmp.Or(params.Brightness, defaultBrightness)); err != nil {
		logger.Warn("Failed to set brightness", "err", err)
	}
	if err := dev.ForEachKey(dev.ClearKey); err != nil {
		logger.Warn("Failed to clear keys", "err", err)
	}

	coord := coordinator.New(coordinator.Params{
		Device:         dev,
		RenderInterval: params.RenderInterval,
		Logger:         params.Logger,
	})

	coord.Register(layouts.New(params.Wall, cmp.Or(params.Screen, 1), params.Logger), module.Resources{
		Keys: module.AllKeys,
	})

	res := module.Resources{Dials: module.AllDials}
	if dev.GetTouchStripSupported() {
		if rect, err := dev.GetTouchStripImageRectangle(); err == nil {
			res.StripRect = rect
		}
	}
	coord.Register(windows.New(params.Wall, params.Logger), res)

	events := params.Bus.Register()
	defer params.Bus.Deregister(events)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go redrawOnChange(ctx, events, coord)

	logger.Info("Panel ready", "model", model, "screen", cmp.Or(params.Screen, 1))
	params.Bus.Send(event.PanelAttachedEvent{Attached: true, Model: model})
	defer params.Bus.Send(event.PanelAttachedEvent{Attached: false, Model: model})

	return coord.Run(ctx)
}

func redrawOnChange(ctx context.Context, events <-chan event.Event, coord *coordinator.Coordinator) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			switch evt.(type) {
			case event.StatusChangedEvent, event.RouteChangedEvent:
				coord.Redraw()
			}
		}
	}
}
