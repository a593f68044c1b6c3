// Package module defines the feature modules that share a Stream Deck panel.
package module

import (
	"context"
	"image"
	"log/slog"
)

// Module is one feature of the panel. The coordinator owns the device and
// hands each module the keys, dials and strip region it was allocated.
type Module interface {
	ID() string

	// Init prepares the module. ctx is cancelled when the panel goes away.
	Init(ctx context.Context, res Resources) error
	Stop() error

	// RenderKeys returns images for the module's keys. Keys missing from the
	// map are left as they are.
	RenderKeys() map[KeyID]image.Image

	// RenderStrip returns the module's strip region, sized to
	// Resources.StripRect, or nil to leave it unchanged.
	RenderStrip() image.Image

	HandleKey(id KeyID, event KeyEvent) error
	HandleDial(id DialID, event DialEvent) error

	// HandleStripTouch receives touches inside the module's strip region,
	// with points relative to the region.
	HandleStripTouch(event TouchStripEvent) error
}

// Base provides no-op implementations of Module. Embed it and override
// what the module needs.
type Base struct {
	id        string
	resources Resources
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// NewBase creates a Base with the given ID.
func NewBase(id string, logger *slog.Logger) Base {
	return Base{id: id, logger: logger.With("module", id)}
}

func (b *Base) ID() string { return b.id }

// Init stores ctx and res. Modules overriding Init must call it.
func (b *Base) Init(ctx context.Context, res Resources) error {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.resources = res
	return nil
}

// Stop cancels the module context.
func (b *Base) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}

func (b *Base) RenderKeys() map[KeyID]image.Image { return nil }

func (b *Base) RenderStrip() image.Image { return nil }

func (b *Base) HandleKey(KeyID, KeyEvent) error { return nil }

func (b *Base) HandleDial(DialID, DialEvent) error { return nil }

func (b *Base) HandleStripTouch(TouchStripEvent) error { return nil }

// Resources returns the resources passed to Init.
func (b *Base) Resources() Resources { return b.resources }

// Context returns the module context, valid after Init.
func (b *Base) Context() context.Context { return b.ctx }

// Logger returns the module logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// Redraw asks the coordinator to render now instead of on the next tick.
func (b *Base) Redraw() {
	if b.resources.Redraw != nil {
		b.resources.Redraw()
	}
}
