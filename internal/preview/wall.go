package preview

import (
	"image"

	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/render"
	"github.com/phinze/wallpanel/internal/windowing"
)

const (
	wallHeader = 28
	wallMargin = 8
)

// DrawWall draws the wall as the processor shows it: the window areas of
// the current layout, each with its label, routed input and sync state,
// under a header with the layout name and online state. Everything but the
// header is dimmed while the processor is offline.
func DrawWall(img *image.RGBA, faces *render.Faces, st windowing.Status) {
	layout := processor.LayoutType(st.Layout)
	b := img.Bounds()
	render.Fill(img, b, render.ColorBackground)

	area := image.Rect(b.Min.X+wallMargin, b.Min.Y+wallHeader, b.Max.X-wallMargin, b.Max.Y-wallMargin)
	for i, r := range render.WindowRects(layout, area) {
		ws, ok := wallWindow(st, uint(i+1))
		if !ok {
			continue
		}
		drawWallWindow(img, faces, r.Inset(2), st, ws)
	}

	if !st.IsOnline {
		render.Dim(img)
	}
	drawWallHeader(img, faces, st, layout)
}

func wallWindow(st windowing.Status, w uint) (windowing.WindowStatus, bool) {
	for _, ws := range st.Windows {
		if ws.Number == w {
			return ws, true
		}
	}
	return windowing.WindowStatus{}, false
}

func drawWallHeader(img *image.RGBA, faces *render.Faces, st windowing.Status, layout processor.LayoutType) {
	b := img.Bounds()
	render.Fill(img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+wallHeader), render.ColorBackground)

	title := st.Name
	if layout.Valid() {
		title += " · " + layout.String()
	}
	render.Text(img, render.Truncate(faces.Label, title, b.Dx()-120), b.Min.X+wallMargin, b.Min.Y+19, faces.Label, render.ColorWhite)

	state, c := "ONLINE", render.ColorGreen
	if !st.IsOnline {
		state, c = "OFFLINE", render.ColorRed
	}
	render.Dot(img, image.Pt(b.Max.X-86, b.Min.Y+14), 5, c)
	render.Text(img, state, b.Max.X-76, b.Min.Y+19, faces.Label, c)
}

func drawWallWindow(img *image.RGBA, faces *render.Faces, r image.Rectangle, st windowing.Status, ws windowing.WindowStatus) {
	render.Fill(img, r, render.ColorKeyBg)
	if r.Dx() < 40 || r.Dy() < 40 {
		return
	}

	render.Text(img, render.Truncate(faces.Small, ws.Name, r.Dx()-32), r.Min.X+8, r.Min.Y+16, faces.Small, render.ColorGray)

	if ws.VideoInput == 0 {
		render.DrawIcon(img, render.IconUnlink, image.Pt(r.Min.X+r.Dx()/2-12, r.Min.Y+r.Dy()/2-20), 24, render.ColorDimGray)
		render.TextCentered(img, render.Truncate(faces.Label, ws.VideoName, r.Dx()-16), r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2+20, faces.Label, render.ColorDimGray)
	} else {
		render.DrawIcon(img, render.IconMonitor, image.Pt(r.Min.X+r.Dx()/2-12, r.Min.Y+r.Dy()/2-30), 24, render.ColorGray)
		render.TextCentered(img, render.Truncate(faces.Title, ws.VideoName, r.Dx()-16), r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2+14, faces.Title, render.ColorWhite)

		dot := render.ColorDimGray
		for _, in := range st.Inputs {
			if in.Number == ws.VideoInput && in.SyncDetected {
				dot = render.ColorGreen
			}
		}
		render.Dot(img, image.Pt(r.Max.X-12, r.Min.Y+12), 5, dot)
	}

	if ws.AudioInput != 0 && ws.AudioInput == ws.VideoInput {
		render.DrawIcon(img, render.IconSpeaker, image.Pt(r.Max.X-28, r.Max.Y-28), 20, render.ColorAmber)
	}
}
