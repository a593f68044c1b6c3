// Package layouts shows one screen's layouts on the panel keys. Pressing a
// key recalls that layout.
package layouts

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strconv"

	"github.com/phinze/wallpanel/internal/module"
	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/render"
	"github.com/phinze/wallpanel/internal/selectable"
)

// Wall is the part of the windowing controller the module uses.
type Wall interface {
	Group(screen uint) (*selectable.Group, bool)
	IsOnline() bool
}

// Module maps the items of a screen's layout group onto keys, in order.
type Module struct {
	module.Base

	wall   Wall
	screen uint
	group  *selectable.Group
	faces  *render.Faces
}

// New creates a layouts module for a screen.
func New(wall Wall, screen uint, logger *slog.Logger) *Module {
	return &Module{
		Base:   module.NewBase("layouts", logger),
		wall:   wall,
		screen: screen,
	}
}

// Init looks up the screen's group. A missing screen is not an error: the
// keys then show what is wrong.
func (m *Module) Init(ctx context.Context, res module.Resources) error {
	if err := m.Base.Init(ctx, res); err != nil {
		return err
	}

	faces, err := render.LoadFaces()
	if err != nil {
		return fmt.Errorf("load faces: %w", err)
	}
	m.faces = faces

	group, ok := m.wall.Group(m.screen)
	if !ok {
		m.Logger().Warn("Screen not configured", "screen", m.screen)
		return nil
	}
	m.group = group
	m.Logger().Info("Initialized", "screen", m.screen, "group", group.Name(), "items", len(group.Items()))
	return nil
}

// item returns the group item shown on key.
func (m *Module) item(key module.KeyID) (*selectable.Item, bool) {
	if m.group == nil {
		return nil, false
	}
	i := m.Resources().KeyIndex(key)
	items := m.group.Items()
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return items[i], true
}

// HandleKey selects the key's layout on press. The selection is sent even
// when it is already current so a drifted wall can be corrected.
func (m *Module) HandleKey(key module.KeyID, event module.KeyEvent) error {
	if !event.Pressed {
		return nil
	}
	item, ok := m.item(key)
	if !ok {
		return nil
	}

	m.Logger().Debug("Selecting layout", "key", key, "item", item.Key(), "name", item.Name())
	if err := m.group.Select(item.Key()); err != nil {
		return fmt.Errorf("select %s: %w", item.Key(), err)
	}
	return nil
}

func (m *Module) RenderKeys() map[module.KeyID]image.Image {
	if m.faces == nil {
		return nil
	}

	online := m.wall.IsOnline()
	out := make(map[module.KeyID]image.Image, len(m.Resources().Keys))
	for i, key := range m.Resources().Keys {
		if m.group == nil {
			out[key] = m.renderMessage(i)
			continue
		}
		item, ok := m.item(key)
		if !ok {
			out[key] = render.NewKey(render.ColorKeyBg)
			continue
		}
		img := m.renderItem(item)
		if !online {
			render.Dim(img)
		}
		out[key] = img
	}
	return out
}

func (m *Module) renderItem(item *selectable.Item) *image.RGBA {
	bg, fg := render.ColorKeyBg, render.ColorGray
	if item.IsSelected() {
		bg, fg = render.ColorSelected, render.ColorWhite
	}
	img := render.NewKey(bg)

	if item.ID() >= 0 && processor.LayoutType(item.ID()).Valid() {
		render.LayoutGlyph(img, processor.LayoutType(item.ID()), image.Rect(20, 8, 52, 26), fg)
	}

	lines := render.Wrap(m.faces.Label, item.Name(), render.KeySize-8, 2)
	y := 44
	if len(lines) == 1 {
		y = 50
	}
	for _, line := range lines {
		render.TextCentered(img, line, render.KeySize/2, y, m.faces.Label, fg)
		y += 15
	}
	return img
}

// renderMessage explains on the first key that the screen is missing.
func (m *Module) renderMessage(i int) image.Image {
	img := render.NewKey(render.ColorKeyBg)
	if i == 0 {
		render.TextCentered(img, "Screen", render.KeySize/2, 32, m.faces.Small, render.ColorAmber)
		render.TextCentered(img, strconv.FormatUint(uint64(m.screen), 10)+"?", render.KeySize/2, 48, m.faces.Label, color.White)
	}
	return img
}
