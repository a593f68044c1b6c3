package module

import (
	"image"
	"slices"
)

// KeyID identifies a key. The Stream Deck Plus has Key1 to Key8, numbered
// left to right, top row first.
type KeyID uint8

const (
	Key1 KeyID = iota + 1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
)

// AllKeys lists every key of the Stream Deck Plus.
var AllKeys = []KeyID{Key1, Key2, Key3, Key4, Key5, Key6, Key7, Key8}

// DialID identifies a dial, Dial1 to Dial4 left to right.
type DialID uint8

const (
	Dial1 DialID = iota + 1
	Dial2
	Dial3
	Dial4
)

// AllDials lists every dial of the Stream Deck Plus.
var AllDials = []DialID{Dial1, Dial2, Dial3, Dial4}

// Resources are the parts of the panel allocated to one module.
type Resources struct {
	Keys  []KeyID
	Dials []DialID

	// StripRect is the module's region of the touch strip, in strip
	// coordinates. Empty means no region.
	StripRect image.Rectangle

	// Redraw, if set, triggers an immediate render.
	Redraw func()
}

func (r Resources) HasKeys() bool { return len(r.Keys) > 0 }

func (r Resources) HasStrip() bool { return !r.StripRect.Empty() }

func (r Resources) HasDials() bool { return len(r.Dials) > 0 }

func (r Resources) OwnsKey(key KeyID) bool { return slices.Contains(r.Keys, key) }

func (r Resources) OwnsDial(dial DialID) bool { return slices.Contains(r.Dials, dial) }

// KeyIndex returns the position of key within Keys, or -1.
func (r Resources) KeyIndex(key KeyID) int { return slices.Index(r.Keys, key) }

// DialIndex returns the position of dial within Dials, or -1.
func (r Resources) DialIndex(dial DialID) int { return slices.Index(r.Dials, dial) }

// StripSection splits the strip region into n equal columns and returns
// column i, relative to the region origin.
func (r Resources) StripSection(i, n int) image.Rectangle {
	if n <= 0 || i < 0 || i >= n {
		return image.Rectangle{}
	}
	w := r.StripRect.Dx() / n
	return image.Rect(i*w, 0, (i+1)*w, r.StripRect.Dy())
}
