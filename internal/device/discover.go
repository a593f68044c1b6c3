package device

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rafaelmartins.com/p/streamdeck"
)

const (
	probeTimeout  = 5 * time.Second
	pollInterval  = 2 * time.Second
	wakeRetries   = 10
	wakeRetryWait = 500 * time.Millisecond
)

var errProbeTimeout = errors.New("device probe timed out")

// Probe opens the first connected Stream Deck. It gives up after a timeout
// because enumeration can hang while USB is settling after a wake.
func Probe() (Device, error) {
	type result struct {
		dev *streamdeck.Device
		err error
	}
	ch := make(chan result, 1)

	go func() {
		dev, err := streamdeck.GetDevice("")
		if err != nil {
			ch <- result{err: err}
			return
		}
		if err := dev.Open(); err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{dev: dev}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return NewHardware(r.dev), nil
	case <-time.After(probeTimeout):
		return nil, errProbeTimeout
	}
}

// Wait blocks until a panel can be opened or ctx is cancelled, in which case
// it returns nil. A signal on retry probes straight away and keeps probing
// for a few seconds, which covers both USB arrival and system wake.
func Wait(ctx context.Context, retry <-chan struct{}, logger *slog.Logger) Device {
	probe := func() Device {
		dev, err := Probe()
		if err != nil {
			logger.Debug("No panel", "err", err)
			return nil
		}
		logger.Info("Panel connected", "model", dev.GetModelName())
		return dev
	}

	if dev := probe(); dev != nil {
		return dev
	}
	logger.Info("Waiting for panel")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-retry:
			logger.Debug("Probing for panel after signal")
			for range wakeRetries {
				if dev := probe(); dev != nil {
					return dev
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wakeRetryWait):
				}
			}
		case <-time.After(pollInterval):
			if dev := probe(); dev != nil {
				return dev
			}
		}
	}
}
