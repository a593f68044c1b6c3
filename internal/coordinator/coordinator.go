// Package coordinator runs the panel modules on a Stream Deck: it routes
// input to the module owning each key, dial and strip region, and pushes
// their rendered images to the device.
package coordinator

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"github.com/phinze/wallpanel/internal/device"
	"github.com/phinze/wallpanel/internal/module"
)

// ErrDisconnected is returned by Run when the device stops listening.
var ErrDisconnected = errors.New("panel disconnected")

const defaultRenderInterval = 500 * time.Millisecond

type entry struct {
	m      module.Module
	res    module.Resources
	failed bool
}

// Params holds the parameters for New.
type Params struct {
	Device         device.Device
	RenderInterval time.Duration
	Logger         *slog.Logger
}

// Coordinator owns the device while a panel is connected.
type Coordinator struct {
	device         device.Device
	renderInterval time.Duration
	logger         *slog.Logger

	entries    []*entry
	keyOwners  map[module.KeyID]*entry
	dialOwners map[module.DialID]*entry
	stripRect  image.Rectangle
	redrawC    chan struct{}

	// Last images sent, to skip unchanged writes.
	mu        sync.Mutex
	lastKeys  map[module.KeyID][]byte
	lastStrip []byte
}

// New creates a coordinator for a device.
func New(params Params) *Coordinator {
	return &Coordinator{
		device:         params.Device,
		renderInterval: cmp.Or(params.RenderInterval, defaultRenderInterval),
		logger:         params.Logger.With("component", "coordinator"),
		keyOwners:      make(map[module.KeyID]*entry),
		dialOwners:     make(map[module.DialID]*entry),
		redrawC:        make(chan struct{}, 1),
		lastKeys:       make(map[module.KeyID][]byte),
	}
}

// Register adds a module with its resources. Must be called before Run.
func (c *Coordinator) Register(m module.Module, res module.Resources) {
	res.Redraw = c.Redraw
	e := &entry{m: m, res: res}
	for _, k := range res.Keys {
		c.keyOwners[k] = e
	}
	for _, d := range res.Dials {
		c.dialOwners[d] = e
	}
	c.entries = append(c.entries, e)
}

// Redraw requests a render before the next tick.
func (c *Coordinator) Redraw() {
	select {
	case c.redrawC <- struct{}{}:
	default:
	}
}

// Run initializes the modules and serves the device until ctx is cancelled
// or the device goes away. Modules that fail to initialize are skipped.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.device.GetTouchStripSupported() {
		if rect, err := c.device.GetTouchStripImageRectangle(); err == nil {
			c.stripRect = rect
		}
	}

	for _, e := range c.entries {
		if err := e.m.Init(ctx, e.res); err != nil {
			c.logger.Warn("Module failed to initialize, skipping", "module", e.m.ID(), "err", err)
			e.failed = true
		}
	}
	defer c.stopModules()

	if err := c.setupHandlers(); err != nil {
		return fmt.Errorf("setup handlers: %w", err)
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.device.Listen(nil)
	}()

	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		c.renderLoop(ctx)
	}()
	defer func() {
		cancel()
		<-renderDone
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return ErrDisconnected
	}
}

func (c *Coordinator) stopModules() {
	for _, e := range c.entries {
		if err := e.m.Stop(); err != nil {
			c.logger.Warn("Module failed to stop", "module", e.m.ID(), "err", err)
		}
	}
}

func (c *Coordinator) setupHandlers() error {
	var errs []error

	for _, key := range module.AllKeys {
		e := c.keyOwners[key]
		if e == nil || e.failed {
			continue
		}
		errs = append(errs, c.device.AddKeyHandler(device.KeyID(key), func(_ device.Device, k device.Key) error {
			c.dispatch(e, func() error { return e.m.HandleKey(key, module.KeyEvent{Pressed: true}) })
			d := k.WaitForRelease()
			c.dispatch(e, func() error { return e.m.HandleKey(key, module.KeyEvent{Duration: d}) })
			return nil
		}))
	}

	for _, dial := range module.AllDials {
		e := c.dialOwners[dial]
		if e == nil || e.failed {
			continue
		}
		errs = append(errs, c.device.AddDialRotateHandler(device.DialID(dial), func(_ device.Device, _ device.Dial, delta int8) error {
			c.dispatch(e, func() error { return e.m.HandleDial(dial, module.DialEvent{Type: module.DialRotate, Delta: delta}) })
			return nil
		}))
		errs = append(errs, c.device.AddDialSwitchHandler(device.DialID(dial), func(_ device.Device, di device.Dial) error {
			c.dispatch(e, func() error { return e.m.HandleDial(dial, module.DialEvent{Type: module.DialPress}) })
			d := di.WaitForRelease()
			c.dispatch(e, func() error { return e.m.HandleDial(dial, module.DialEvent{Type: module.DialRelease, Duration: d}) })
			return nil
		}))
	}

	if !c.stripRect.Empty() {
		errs = append(errs, c.device.AddTouchStripTouchHandler(func(_ device.Device, t device.TouchStripTouchType, p image.Point) error {
			c.routeStripEvent(module.TouchStripEventFromDeviceTap(t, p))
			return nil
		}))
		errs = append(errs, c.device.AddTouchStripSwipeHandler(func(_ device.Device, origin, dest image.Point) error {
			c.routeStripEvent(module.TouchStripEventFromSwipe(origin, dest))
			return nil
		}))
	}

	return errors.Join(errs...)
}

// dispatch runs a module handler and redraws afterwards so the panel
// reflects the action without waiting for the next tick.
func (c *Coordinator) dispatch(e *entry, fn func() error) {
	if err := fn(); err != nil {
		c.logger.Warn("Module failed to handle input", "module", e.m.ID(), "err", err)
	}
	c.Redraw()
}

// routeStripEvent sends a touch to the module whose strip region contains
// it, with points relative to that region.
func (c *Coordinator) routeStripEvent(event module.TouchStripEvent) {
	for _, e := range c.entries {
		if e.failed || !event.Point.In(e.res.StripRect) {
			continue
		}
		local := event.Translate(e.res.StripRect.Min)
		c.dispatch(e, func() error { return e.m.HandleStripTouch(local) })
		return
	}
}

func (c *Coordinator) renderLoop(ctx context.Context) {
	ticker := time.NewTicker(c.renderInterval)
	defer ticker.Stop()

	c.render()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.redrawC:
		}
		c.render()
	}
}

func (c *Coordinator) render() {
	c.renderKeys()
	c.renderStrip()
}

func (c *Coordinator) renderKeys() {
	keyRect, err := c.device.GetKeyImageRectangle()
	if err != nil {
		c.logger.Warn("Failed to get key size", "err", err)
		return
	}

	for _, e := range c.entries {
		if e.failed || !e.res.HasKeys() {
			continue
		}
		for key, img := range e.m.RenderKeys() {
			if img == nil || !e.res.OwnsKey(key) {
				continue
			}
			rgba := toRGBA(img, keyRect)
			if !c.keyChanged(key, rgba.Pix) {
				continue
			}
			if err := c.device.SetKeyImage(device.KeyID(key), rgba); err != nil {
				c.logger.Warn("Failed to set key image", "key", key, "err", err)
				c.forgetKey(key)
			}
		}
	}
}

func (c *Coordinator) renderStrip() {
	if c.stripRect.Empty() {
		return
	}

	composite := image.NewRGBA(c.stripRect)
	for _, e := range c.entries {
		if e.failed || !e.res.HasStrip() {
			continue
		}
		img := e.m.RenderStrip()
		if img == nil {
			continue
		}
		draw.Draw(composite, e.res.StripRect, img, img.Bounds().Min, draw.Src)
	}

	c.mu.Lock()
	unchanged := bytes.Equal(c.lastStrip, composite.Pix)
	if !unchanged {
		c.lastStrip = composite.Pix
	}
	c.mu.Unlock()
	if unchanged {
		return
	}

	if err := c.device.SetTouchStripImage(composite); err != nil {
		c.logger.Warn("Failed to set strip image", "err", err)
		c.mu.Lock()
		c.lastStrip = nil
		c.mu.Unlock()
	}
}

// keyChanged records pix as the last image of key and reports whether it
// differs from the previous one.
func (c *Coordinator) keyChanged(key module.KeyID, pix []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bytes.Equal(c.lastKeys[key], pix) {
		return false
	}
	c.lastKeys[key] = pix
	return true
}

func (c *Coordinator) forgetKey(key module.KeyID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lastKeys, key)
}

func toRGBA(img image.Image, rect image.Rectangle) *image.RGBA {
	rgba := image.NewRGBA(rect)
	draw.Draw(rgba, rect, img, img.Bounds().Min, draw.Src)
	return rgba
}
