// Package usbwatch signals when a USB HID device from a given vendor is
// plugged in, so a waiting panel loop can probe right away instead of on its
// next poll.
package usbwatch

import (
	"cmp"
	"context"
	"log/slog"
)

// arrivals coalesces device arrivals into a one-slot channel.
type arrivals struct {
	ch       chan struct{}
	vendorID uint16
	logger   *slog.Logger
}

func newArrivals(vendorID uint16, logger *slog.Logger) *arrivals {
	return &arrivals{
		ch:       make(chan struct{}, 1),
		vendorID: vendorID,
		logger:   cmp.Or(logger, slog.Default()).With("component", "usbwatch"),
	}
}

// notify reports a device with vendor ID vid. It never blocks; arrivals
// that come while a signal is pending are merged into it.
func (a *arrivals) notify(vid uint16) bool {
	if vid != a.vendorID {
		return false
	}
	a.logger.Debug("USB device arrived", "vendor", vid)
	select {
	case a.ch <- struct{}{}:
	default:
	}
	return true
}

// Watch returns a channel that receives a signal each time a matching
// device appears. Watching stops when ctx is cancelled. Where arrivals
// cannot be observed the channel never fires.
func Watch(ctx context.Context, vendorID uint16, logger *slog.Logger) <-chan struct{} {
	a := newArrivals(vendorID, logger)
	start(ctx, a)
	return a.ch
}
