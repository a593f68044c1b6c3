package module

import (
	"image"
	"time"

	"github.com/phinze/wallpanel/internal/device"
)

// DialEventType is the kind of dial interaction.
type DialEventType uint8

const (
	DialRotate DialEventType = iota + 1
	DialPress
	DialRelease
)

// DialEvent is an interaction with a dial.
type DialEvent struct {
	Type DialEventType

	// Delta is the rotation in detents, positive clockwise. DialRotate only.
	Delta int8

	// Duration the dial was held. DialRelease only.
	Duration time.Duration
}

// KeyEvent is a key press or release.
type KeyEvent struct {
	Pressed bool

	// Duration the key was held. Release only.
	Duration time.Duration
}

// TouchStripEventType is the kind of touch strip interaction.
type TouchStripEventType uint8

const (
	TouchTap TouchStripEventType = iota + 1
	TouchLongTap
	TouchSwipe
)

// TouchStripEvent is an interaction with the touch strip.
type TouchStripEvent struct {
	Type TouchStripEventType

	// Point is where a tap landed, or where a swipe started.
	Point image.Point

	SwipeStart image.Point
	SwipeEnd   image.Point
}

// Translate returns the event with every point moved by -origin.
func (e TouchStripEvent) Translate(origin image.Point) TouchStripEvent {
	e.Point = e.Point.Sub(origin)
	if e.Type == TouchSwipe {
		e.SwipeStart = e.SwipeStart.Sub(origin)
		e.SwipeEnd = e.SwipeEnd.Sub(origin)
	}
	return e
}

// TouchStripEventFromDeviceTap converts a device tap.
func TouchStripEventFromDeviceTap(t device.TouchStripTouchType, p image.Point) TouchStripEvent {
	typ := TouchTap
	if t == device.TOUCH_STRIP_TOUCH_TYPE_LONG {
		typ = TouchLongTap
	}
	return TouchStripEvent{Type: typ, Point: p}
}

// TouchStripEventFromSwipe converts a device swipe.
func TouchStripEventFromSwipe(origin, destination image.Point) TouchStripEvent {
	return TouchStripEvent{
		Type:       TouchSwipe,
		Point:      origin,
		SwipeStart: origin,
		SwipeEnd:   destination,
	}
}
