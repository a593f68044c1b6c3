// Package devicetest provides an in-memory Stream Deck Plus for tests.
package devicetest

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/phinze/wallpanel/internal/device"
)

const (
	keySize     = 72
	stripWidth  = 800
	stripHeight = 100
)

var errClosed = errors.New("devicetest: device is closed")

// Fake is an in-memory Stream Deck Plus. Input is injected with PressKey,
// RotateDial, PressDial and Tap, which run the handlers synchronously.
type Fake struct {
	mu         sync.Mutex
	open       bool
	brightness byte
	keys       map[device.KeyID]*image.RGBA
	strip      *image.RGBA
	stripSets  int
	closed     chan struct{}

	keyHandlers    map[device.KeyID][]device.KeyHandler
	rotateHandlers map[device.DialID][]device.DialRotateHandler
	switchHandlers map[device.DialID][]device.DialSwitchHandler
	touchHandlers  []device.TouchStripTouchHandler
	swipeHandlers  []device.TouchStripSwipeHandler
}

var _ device.Device = (*Fake)(nil)

// New returns an open Fake.
func New() *Fake {
	return &Fake{
		open:           true,
		keys:           make(map[device.KeyID]*image.RGBA),
		closed:         make(chan struct{}),
		keyHandlers:    make(map[device.KeyID][]device.KeyHandler),
		rotateHandlers: make(map[device.DialID][]device.DialRotateHandler),
		switchHandlers: make(map[device.DialID][]device.DialSwitchHandler),
	}
}

// Close closes the device and unblocks Listen.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return errClosed
	}
	f.open = false
	close(f.closed)
	return nil
}

func (f *Fake) GetModelName() string { return "Stream Deck Plus (Fake)" }
func (f *Fake) GetTouchStripSupported() bool { return true }

func (f *Fake) GetKeyImageRectangle() (image.Rectangle, error) {
	return image.Rect(0, 0, keySize, keySize), nil
}

func (f *Fake) GetTouchStripImageRectangle() (image.Rectangle, error) {
	return image.Rect(0, 0, stripWidth, stripHeight), nil
}

func (f *Fake) SetBrightness(perc byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = perc
	return nil
}

// Brightness returns the last brightness set.
func (f *Fake) Brightness() byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brightness
}

func (f *Fake) SetKeyImage(key device.KeyID, img image.Image) error {
	if key < device.KEY_1 || key > device.KEY_8 {
		return fmt.Errorf("devicetest: invalid key %d", key)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, keySize, keySize))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = rgba
	return nil
}

func (f *Fake) SetTouchStripImage(img image.Image) error {
	rgba := image.NewRGBA(image.Rect(0, 0, stripWidth, stripHeight))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.strip = rgba
	f.stripSets++
	return nil
}

func (f *Fake) ClearKey(key device.KeyID) error {
	return f.SetKeyImage(key, image.NewRGBA(image.Rect(0, 0, keySize, keySize)))
}

// KeyImage returns the image last set on key, or nil.
func (f *Fake) KeyImage(key device.KeyID) *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key]
}

// StripImage returns the image last set on the touch strip, or nil.
func (f *Fake) StripImage() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strip
}

// StripSets counts SetTouchStripImage calls.
func (f *Fake) StripSets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stripSets
}

func (f *Fake) ForEachKey(cb func(device.KeyID) error) error {
	for k := device.KEY_1; k <= device.KEY_8; k++ {
		if err := cb(k); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) AddKeyHandler(key device.KeyID, fn device.KeyHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyHandlers[key] = append(f.keyHandlers[key], fn)
	return nil
}

func (f *Fake) AddDialRotateHandler(dial device.DialID, fn device.DialRotateHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotateHandlers[dial] = append(f.rotateHandlers[dial], fn)
	return nil
}

func (f *Fake) AddDialSwitchHandler(dial device.DialID, fn device.DialSwitchHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switchHandlers[dial] = append(f.switchHandlers[dial], fn)
	return nil
}

func (f *Fake) AddTouchStripTouchHandler(fn device.TouchStripTouchHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchHandlers = append(f.touchHandlers, fn)
	return nil
}

func (f *Fake) AddTouchStripSwipeHandler(fn device.TouchStripSwipeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swipeHandlers = append(f.swipeHandlers, fn)
	return nil
}

// Listen blocks until Close.
func (f *Fake) Listen(chan error) error {
	<-f.closed
	return nil
}

type fakeKey struct{ id device.KeyID }

func (k fakeKey) GetID() device.KeyID { return k.id }
func (fakeKey) WaitForRelease() time.Duration { return 0 }

type fakeDial struct{ id device.DialID }

func (d fakeDial) GetID() device.DialID { return d.id }
func (fakeDial) WaitForRelease() time.Duration { return 0 }

// PressKey presses and releases key.
func (f *Fake) PressKey(key device.KeyID) error {
	f.mu.Lock()
	handlers := f.keyHandlers[key]
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(f, fakeKey{key}); err != nil {
			return err
		}
	}
	return nil
}

// RotateDial turns dial by delta detents.
func (f *Fake) RotateDial(dial device.DialID, delta int8) error {
	f.mu.Lock()
	handlers := f.rotateHandlers[dial]
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(f, fakeDial{dial}, delta); err != nil {
			return err
		}
	}
	return nil
}

// PressDial presses and releases dial.
func (f *Fake) PressDial(dial device.DialID) error {
	f.mu.Lock()
	handlers := f.switchHandlers[dial]
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(f, fakeDial{dial}); err != nil {
			return err
		}
	}
	return nil
}

// Tap touches the strip at p.
func (f *Fake) Tap(p image.Point) error {
	f.mu.Lock()
	handlers := f.touchHandlers
	f.mu.Unlock()

	for _, h := range handlers {
		if err := h(f, device.TOUCH_STRIP_TOUCH_TYPE_SHORT, p); err != nil {
			return err
		}
	}
	return nil
}
