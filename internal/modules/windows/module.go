// Package windows puts the wall's windows on the dials and touch strip.
// Turning a dial steps that window through the sources; pressing it, or
// tapping the window on the strip, sends the window's source to the audio
// output.
package windows

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/phinze/wallpanel/internal/module"
	"github.com/phinze/wallpanel/internal/render"
	"github.com/phinze/wallpanel/internal/routing"
	"github.com/phinze/wallpanel/internal/windowing"
)

// Wall is the part of the windowing controller the module uses.
type Wall interface {
	Snapshot() windowing.Status
	ExecuteNumericSwitch(input, output uint, sig routing.SignalType) error
}

// Module controls one window per dial, Dial1 being window 1.
type Module struct {
	module.Base

	wall  Wall
	faces *render.Faces
}

// New creates a windows module.
func New(wall Wall, logger *slog.Logger) *Module {
	return &Module{
		Base: module.NewBase("windows", logger),
		wall: wall,
	}
}

func (m *Module) Init(ctx context.Context, res module.Resources) error {
	if err := m.Base.Init(ctx, res); err != nil {
		return err
	}
	faces, err := render.LoadFaces()
	if err != nil {
		return fmt.Errorf("load faces: %w", err)
	}
	m.faces = faces
	return nil
}

// window returns the status of window w, if the wall has it.
func window(st windowing.Status, w uint) (windowing.WindowStatus, bool) {
	i := slices.IndexFunc(st.Windows, func(ws windowing.WindowStatus) bool { return ws.Number == w })
	if i < 0 {
		return windowing.WindowStatus{}, false
	}
	return st.Windows[i], true
}

// sources lists the routable inputs of st, led by 0 for no source.
func sources(st windowing.Status) []uint {
	out := []uint{0}
	for _, in := range st.Inputs {
		out = append(out, in.Number)
	}
	return out
}

// StepSource returns the source delta steps away from current, wrapping
// around the list.
func StepSource(list []uint, current uint, delta int) uint {
	if len(list) == 0 {
		return 0
	}
	i := max(slices.Index(list, current), 0)
	n := len(list)
	return list[((i+delta)%n+n)%n]
}

func (m *Module) HandleDial(id module.DialID, event module.DialEvent) error {
	w := uint(m.Resources().DialIndex(id) + 1)
	if w == 0 {
		return nil
	}

	switch event.Type {
	case module.DialRotate:
		return m.stepVideo(w, int(event.Delta))
	case module.DialPress:
		return m.followAudio(w)
	}
	return nil
}

// HandleStripTouch routes audio from the window whose section was tapped.
func (m *Module) HandleStripTouch(event module.TouchStripEvent) error {
	if event.Type != module.TouchTap {
		return nil
	}
	n := max(len(m.Resources().Dials), 1)
	w := event.Point.X/max(m.Resources().StripRect.Dx()/n, 1) + 1
	if w > n {
		return nil
	}
	return m.followAudio(uint(w))
}

func (m *Module) stepVideo(w uint, delta int) error {
	st := m.wall.Snapshot()
	ws, ok := window(st, w)
	if !ok || delta == 0 {
		return nil
	}

	next := StepSource(sources(st), ws.VideoInput, delta)
	m.Logger().Debug("Routing video", "window", w, "from", ws.VideoInput, "to", next)
	if err := m.wall.ExecuteNumericSwitch(next, w, routing.Video); err != nil {
		return fmt.Errorf("route input %d to window %d: %w", next, w, err)
	}
	return nil
}

func (m *Module) followAudio(w uint) error {
	ws, ok := window(m.wall.Snapshot(), w)
	if !ok {
		return nil
	}

	m.Logger().Debug("Routing audio", "window", w, "input", ws.VideoInput)
	if err := m.wall.ExecuteNumericSwitch(ws.VideoInput, w, routing.Audio); err != nil {
		return fmt.Errorf("route audio from window %d: %w", w, err)
	}
	return nil
}

// RenderStrip draws one section per dial: window name, routed source, a
// sync dot and a speaker when the window's source is on the audio output.
func (m *Module) RenderStrip() image.Image {
	res := m.Resources()
	if m.faces == nil || !res.HasStrip() || !res.HasDials() {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, res.StripRect.Dx(), res.StripRect.Dy()))
	render.Fill(img, img.Bounds(), render.ColorBackground)

	st := m.wall.Snapshot()
	n := len(res.Dials)
	for i := range n {
		section := res.StripSection(i, n)
		ws, ok := window(st, uint(i+1))
		if !ok {
			continue
		}
		m.drawWindow(img, section, st, ws)
	}

	if !st.IsOnline {
		render.Dim(img)
		render.TextCentered(img, "OFFLINE", img.Bounds().Dx()/2, img.Bounds().Dy()/2+6, m.faces.Title, render.ColorRed)
	}
	return img
}

func (m *Module) drawWindow(img *image.RGBA, section image.Rectangle, st windowing.Status, ws windowing.WindowStatus) {
	const pad = 10
	x := section.Min.X + pad
	width := section.Dx() - 2*pad

	if section.Min.X > 0 {
		render.Fill(img, image.Rect(section.Min.X, section.Min.Y+10, section.Min.X+1, section.Max.Y-10), render.ColorKeyBg)
	}

	render.Text(img, render.Truncate(m.faces.Small, ws.Name, width), x, 24, m.faces.Small, render.ColorGray)

	sync := false
	for _, in := range st.Inputs {
		if in.Number == ws.VideoInput {
			sync = in.SyncDetected
		}
	}

	if ws.VideoInput == 0 {
		render.DrawIcon(img, render.IconUnlink, image.Pt(x, 36), 20, render.ColorDimGray)
		render.Text(img, render.Truncate(m.faces.Label, ws.VideoName, width-26), x+26, 52, m.faces.Label, render.ColorDimGray)
	} else {
		dot := render.ColorDimGray
		if sync {
			dot = render.ColorGreen
		}
		render.Dot(img, image.Pt(x+6, 47), 5, dot)
		render.Text(img, render.Truncate(m.faces.Title, ws.VideoName, width-18), x+18, 54, m.faces.Title, render.ColorWhite)
	}

	if ws.AudioInput != 0 && ws.AudioInput == ws.VideoInput {
		render.DrawIcon(img, render.IconSpeaker, image.Pt(x, 66), 20, render.ColorAmber)
	}
}
