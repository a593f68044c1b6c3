package render

import (
	"image"
	"image/color"

	"github.com/phinze/wallpanel/internal/processor"
)

// WindowRects returns the screen area of each window shown by layout,
// window 1 first. Automatic is drawn as a quad view. Invalid layouts have
// no windows.
func WindowRects(layout processor.LayoutType, bounds image.Rectangle) []image.Rectangle {
	x0, y0 := bounds.Min.X, bounds.Min.Y
	w, h := bounds.Dx(), bounds.Dy()
	rect := func(x1, y1, x2, y2 int) image.Rectangle {
		return image.Rect(x0+x1, y0+y1, x0+x2, y0+y2)
	}

	switch layout {
	case processor.LayoutFullscreen:
		return []image.Rectangle{bounds}
	case processor.LayoutPictureInPicture:
		margin := h / 20
		return []image.Rectangle{
			bounds,
			rect(w-w/4-margin, h-h/4-margin, w-margin, h-margin),
		}
	case processor.LayoutSideBySide:
		return []image.Rectangle{
			rect(0, 0, w/2, h),
			rect(w/2, 0, w, h),
		}
	case processor.LayoutThreeUp:
		return []image.Rectangle{
			rect(0, 0, w/2, h/2),
			rect(w/2, 0, w, h/2),
			rect(w/4, h/2, w/4+w/2, h),
		}
	case processor.LayoutAutomatic, processor.LayoutQuadview:
		return []image.Rectangle{
			rect(0, 0, w/2, h/2),
			rect(w/2, 0, w, h/2),
			rect(0, h/2, w/2, h),
			rect(w/2, h/2, w, h),
		}
	case processor.LayoutThreeSmallOneLarge:
		large := w * 2 / 3
		return []image.Rectangle{
			rect(0, 0, large, h),
			rect(large, 0, w, h/3),
			rect(large, h/3, w, h*2/3),
			rect(large, h*2/3, w, h),
		}
	}
	return nil
}

// LayoutGlyph draws a small outline of layout into r.
func LayoutGlyph(img *image.RGBA, layout processor.LayoutType, r image.Rectangle, c color.Color) {
	for _, win := range WindowRects(layout, r) {
		outline(img, win.Inset(1), c)
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}
