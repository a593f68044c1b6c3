package device

import (
	"image"
	"time"

	"rafaelmartins.com/p/streamdeck"
)

// Hardware adapts a streamdeck.Device to Device.
type Hardware struct {
	dev *streamdeck.Device
}

var _ Device = (*Hardware)(nil)

// NewHardware wraps dev.
func NewHardware(dev *streamdeck.Device) *Hardware {
	return &Hardware{dev: dev}
}

func (h *Hardware) Close() error { return h.dev.Close() }

func (h *Hardware) GetModelName() string { return h.dev.GetModelName() }
func (h *Hardware) GetTouchStripSupported() bool { return h.dev.GetTouchStripSupported() }

func (h *Hardware) GetKeyImageRectangle() (image.Rectangle, error) {
	return h.dev.GetKeyImageRectangle()
}

func (h *Hardware) GetTouchStripImageRectangle() (image.Rectangle, error) {
	return h.dev.GetTouchStripImageRectangle()
}

func (h *Hardware) SetBrightness(perc byte) error { return h.dev.SetBrightness(perc) }

func (h *Hardware) SetKeyImage(key KeyID, img image.Image) error {
	return h.dev.SetKeyImage(streamdeck.KeyID(key), img)
}

func (h *Hardware) SetTouchStripImage(img image.Image) error {
	return h.dev.SetTouchStripImage(img)
}

func (h *Hardware) ClearKey(key KeyID) error {
	return h.dev.ClearKey(streamdeck.KeyID(key))
}

func (h *Hardware) ForEachKey(cb func(KeyID) error) error {
	return h.dev.ForEachKey(func(k streamdeck.KeyID) error { return cb(KeyID(k)) })
}

type hardwareKey struct{ key *streamdeck.Key }

func (k hardwareKey) GetID() KeyID { return KeyID(k.key.GetID()) }
func (k hardwareKey) WaitForRelease() time.Duration { return k.key.WaitForRelease() }

type hardwareDial struct{ dial *streamdeck.Dial }

func (d hardwareDial) GetID() DialID { return DialID(d.dial.GetID()) }
func (d hardwareDial) WaitForRelease() time.Duration { return d.dial.WaitForRelease() }

func (h *Hardware) AddKeyHandler(key KeyID, fn KeyHandler) error {
	return h.dev.AddKeyHandler(streamdeck.KeyID(key), func(_ *streamdeck.Device, k *streamdeck.Key) error {
		return fn(h, hardwareKey{k})
	})
}

func (h *Hardware) AddDialRotateHandler(dial DialID, fn DialRotateHandler) error {
	return h.dev.AddDialRotateHandler(streamdeck.DialID(dial), func(_ *streamdeck.Device, di *streamdeck.Dial, delta int8) error {
		return fn(h, hardwareDial{di}, delta)
	})
}

func (h *Hardware) AddDialSwitchHandler(dial DialID, fn DialSwitchHandler) error {
	return h.dev.AddDialSwitchHandler(streamdeck.DialID(dial), func(_ *streamdeck.Device, di *streamdeck.Dial) error {
		return fn(h, hardwareDial{di})
	})
}

func (h *Hardware) AddTouchStripTouchHandler(fn TouchStripTouchHandler) error {
	return h.dev.AddTouchStripTouchHandler(func(_ *streamdeck.Device, t streamdeck.TouchStripTouchType, p image.Point) error {
		return fn(h, TouchStripTouchType(t), p)
	})
}

func (h *Hardware) AddTouchStripSwipeHandler(fn TouchStripSwipeHandler) error {
	return h.dev.AddTouchStripSwipeHandler(func(_ *streamdeck.Device, origin, destination image.Point) error {
		return fn(h, origin, destination)
	})
}

func (h *Hardware) Listen(errCh chan error) error { return h.dev.Listen(errCh) }
