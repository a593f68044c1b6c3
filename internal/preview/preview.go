// Package preview shows the wall and an on-screen Stream Deck Plus in one
// window, so the controller and the panel modules can be driven against the
// processor emulator without hardware.
//
// Keys 0-6 recall a layout as if from the unit's front panel, O takes the
// unit on or offline and F1-F4 plug or unplug the source of an input.
package preview

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/processor/emulator"
	"github.com/phinze/wallpanel/internal/render"
	"github.com/phinze/wallpanel/internal/windowing"
)

const (
	wallWidth  = 656
	wallHeight = 396

	windowWidth  = panelWidth + wallWidth + panelMargin
	windowHeight = panelHeight
)

var (
	wallOrigin = image.Pt(panelWidth, headerHeight+panelMargin)

	layoutKeys = []ebiten.Key{
		ebiten.KeyDigit0, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
		ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
	}
	syncKeys = []ebiten.Key{ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4}

	colorWindow = color.RGBA{30, 30, 30, 255}
)

// Wall is the part of the windowing controller the preview shows.
type Wall interface {
	Snapshot() windowing.Status
	OnStatusChanged(fn func())
}

// Params holds the parameters for New.
type Params struct {
	Wall      Wall
	Processor *emulator.Processor
	Panel     *Panel
	Logger    *slog.Logger
}

// Window is the preview window. It implements ebiten.Game.
type Window struct {
	wall   Wall
	proc   *emulator.Processor
	panel  *Panel
	faces  *render.Faces
	logger *slog.Logger

	dirty   atomic.Bool
	wallImg *ebiten.Image
}

// New creates the preview window. The wall is redrawn whenever the
// controller reports a status change.
func New(params Params) (*Window, error) {
	faces, err := render.LoadFaces()
	if err != nil {
		return nil, fmt.Errorf("load faces: %w", err)
	}

	w := &Window{
		wall:   params.Wall,
		proc:   params.Processor,
		panel:  cmp.Or(params.Panel, NewPanel()),
		faces:  faces,
		logger: cmp.Or(params.Logger, slog.Default()).With("component", "preview"),
	}
	w.dirty.Store(true)
	w.wall.OnStatusChanged(func() { w.dirty.Store(true) })
	return w, nil
}

// Panel returns the on-screen Stream Deck.
func (w *Window) Panel() *Panel { return w.panel }

// Run opens the window and blocks until it is closed. It must be called
// from the main goroutine. Closing the window unblocks the panel's Listen.
func (w *Window) Run() error {
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("wallpanel preview")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)

	err := ebiten.RunGame(w)
	w.panel.shutdown()
	return err
}

func (w *Window) Update() error {
	select {
	case <-w.panel.done:
		return ebiten.Termination
	default:
	}

	w.handleKeys()

	x, y := ebiten.CursorPosition()
	w.panel.handleInput(image.Pt(x, y))
	return nil
}

func (w *Window) handleKeys() {
	for i, key := range layoutKeys {
		if inpututil.IsKeyJustPressed(key) {
			layout := processor.LayoutType(i)
			w.logger.Info("Recalling layout at the unit", "layout", layout)
			w.proc.RecallLayoutLocally(layout)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		online := !w.proc.IsOnline()
		w.logger.Info("Toggling processor", "online", online)
		w.proc.SetOnline(online)
	}

	for i, key := range syncKeys {
		if !inpututil.IsKeyJustPressed(key) {
			continue
		}
		n := uint(i + 1)
		in, err := w.proc.Input(n)
		if err != nil {
			w.logger.Warn("Unable to toggle sync", "input", n, "err", err)
			continue
		}
		w.logger.Info("Toggling sync", "input", n, "sync", !in.SyncDetected())
		w.proc.SetSync(n, !in.SyncDetected())
	}
}

func (w *Window) Draw(screen *ebiten.Image) {
	screen.Fill(colorWindow)

	w.panel.draw(screen, image.Point{})

	if w.dirty.Swap(false) || w.wallImg == nil {
		w.wallImg = ebiten.NewImageFromImage(w.renderWall())
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(wallOrigin.X), float64(wallOrigin.Y))
	screen.DrawImage(w.wallImg, op)

	ebitenutil.DebugPrintAt(screen, "Wall", wallOrigin.X+wallWidth/2-12, 8)
	ebitenutil.DebugPrintAt(screen, "0-6 recall layout | O online/offline | F1-F4 toggle input sync", wallOrigin.X, wallOrigin.Y+wallHeight+12)
}

func (w *Window) renderWall() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, wallWidth, wallHeight))
	DrawWall(img, w.faces, w.wall.Snapshot())
	return img
}

func (w *Window) Layout(int, int) (int, int) {
	return windowWidth, windowHeight
}
