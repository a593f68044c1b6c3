// Package device abstracts the Stream Deck Plus that serves as the wall's
// control panel. The hardware adapter and the test fake both implement
// Device.
package device

import (
	"image"
	"time"
)

// ElgatoVendorID is the USB vendor ID of Stream Deck panels.
const ElgatoVendorID = 0x0fd9

// Device is an opened Stream Deck panel, reduced to what the panel
// session and the coordinator drive: images out, input handlers in.
type Device interface {
	Close() error

	GetModelName() string
	GetTouchStripSupported() bool
	GetKeyImageRectangle() (image.Rectangle, error)
	GetTouchStripImageRectangle() (image.Rectangle, error)

	SetBrightness(perc byte) error
	SetKeyImage(key KeyID, img image.Image) error
	SetTouchStripImage(img image.Image) error
	ClearKey(key KeyID) error

	ForEachKey(cb func(KeyID) error) error

	AddKeyHandler(key KeyID, fn KeyHandler) error
	AddDialRotateHandler(dial DialID, fn DialRotateHandler) error
	AddDialSwitchHandler(dial DialID, fn DialSwitchHandler) error
	AddTouchStripTouchHandler(fn TouchStripTouchHandler) error
	AddTouchStripSwipeHandler(fn TouchStripSwipeHandler) error

	// Listen dispatches input to the handlers until the device is closed or
	// disconnected. Handler errors go to errCh when it is non-nil.
	Listen(errCh chan error) error
}

// KeyID identifies a key.
type KeyID byte

const (
	KEY_1 KeyID = iota + 1
	KEY_2
	KEY_3
	KEY_4
	KEY_5
	KEY_6
	KEY_7
	KEY_8
)

// DialID identifies a dial.
type DialID byte

const (
	DIAL_1 DialID = iota + 1
	DIAL_2
	DIAL_3
	DIAL_4
)

// TouchStripTouchType is a short or long touch.
type TouchStripTouchType byte

const (
	TOUCH_STRIP_TOUCH_TYPE_SHORT TouchStripTouchType = iota + 1
	TOUCH_STRIP_TOUCH_TYPE_LONG
)

// Key is the key passed to a KeyHandler.
type Key interface {
	GetID() KeyID
	WaitForRelease() time.Duration
}

// Dial is the dial passed to dial handlers.
type Dial interface {
	GetID() DialID
	WaitForRelease() time.Duration
}

type (
	KeyHandler             func(d Device, k Key) error
	DialSwitchHandler      func(d Device, di Dial) error
	DialRotateHandler      func(d Device, di Dial, delta int8) error
	TouchStripTouchHandler func(d Device, t TouchStripTouchType, p image.Point) error
	TouchStripSwipeHandler func(d Device, origin, destination image.Point) error
)
