// Package render draws the panel's key and strip images.
package render

import (
	"embed"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

//go:embed icons/*.svg
var icons embed.FS

// Icon names.
const (
	IconSpeaker = "speaker"
	IconUnlink  = "unlink"
	IconMonitor = "monitor"
)

// KeySize is the key image size of the Stream Deck Plus.
const KeySize = 72

var (
	ColorBackground = color.RGBA{25, 25, 25, 255}
	ColorKeyBg      = color.RGBA{40, 40, 40, 255}
	ColorSelected   = color.RGBA{30, 90, 160, 255}
	ColorWhite      = color.RGBA{255, 255, 255, 255}
	ColorGray       = color.RGBA{160, 160, 160, 255}
	ColorDimGray    = color.RGBA{110, 110, 110, 255}
	ColorGreen      = color.RGBA{63, 185, 80, 255}
	ColorRed        = color.RGBA{248, 81, 73, 255}
	ColorAmber      = color.RGBA{210, 153, 34, 255}
)

// Faces are the font faces used on the panel.
type Faces struct {
	Title font.Face
	Label font.Face
	Small font.Face
}

// LoadFaces parses the Go fonts into faces sized for 72 DPI panels.
func LoadFaces() (*Faces, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}

	newFace := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	var faces Faces
	if faces.Title, err = newFace(bold, 18); err != nil {
		return nil, fmt.Errorf("create title face: %w", err)
	}
	if faces.Label, err = newFace(bold, 13); err != nil {
		return nil, fmt.Errorf("create label face: %w", err)
	}
	if faces.Small, err = newFace(regular, 11); err != nil {
		return nil, fmt.Errorf("create small face: %w", err)
	}
	return &faces, nil
}

// NewKey returns a key-sized image filled with bg.
func NewKey(bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, KeySize, KeySize))
	Fill(img, img.Bounds(), bg)
	return img
}

// Fill paints r with c.
func Fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

// Text draws text with its baseline starting at x, y.
func Text(img draw.Image, text string, x, y int, face font.Face, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// TextCentered draws text horizontally centered on centerX.
func TextCentered(img draw.Image, text string, centerX, y int, face font.Face, c color.Color) {
	width := font.MeasureString(face, text).Ceil()
	Text(img, text, centerX-width/2, y, face, c)
}

// Truncate shortens text with an ellipsis until it fits maxWidth.
func Truncate(face font.Face, text string, maxWidth int) string {
	if font.MeasureString(face, text).Ceil() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		s := strings.TrimRight(string(runes), " ") + "…"
		if font.MeasureString(face, s).Ceil() <= maxWidth {
			return s
		}
	}
	return ""
}

// Wrap splits text into at most maxLines lines that fit maxWidth. The last
// line is truncated if the text does not fit.
func Wrap(face font.Face, text string, maxWidth, maxLines int) []string {
	var lines []string
	var line string
	words := strings.Fields(text)
	for i, w := range words {
		candidate := w
		if line != "" {
			candidate = line + " " + w
		}
		if font.MeasureString(face, candidate).Ceil() <= maxWidth || line == "" {
			line = candidate
			continue
		}
		if len(lines) == maxLines-1 {
			line = strings.Join(append([]string{line}, words[i:]...), " ")
			break
		}
		lines = append(lines, Truncate(face, line, maxWidth))
		line = w
	}
	if line != "" {
		lines = append(lines, Truncate(face, line, maxWidth))
	}
	return lines
}

// Icon renders an embedded icon at size, stroked in c. Unknown names render
// as a transparent image.
func Icon(name string, size int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	data, err := icons.ReadFile("icons/" + name + ".svg")
	if err != nil {
		return img
	}

	r, g, b, _ := c.RGBA()
	svg := strings.ReplaceAll(string(data), "currentColor", fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))

	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return img
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	return img
}

// DrawIcon draws an icon with its top-left corner at p.
func DrawIcon(img draw.Image, name string, p image.Point, size int, c color.Color) {
	icon := Icon(name, size, c)
	draw.Draw(img, image.Rectangle{Min: p, Max: p.Add(image.Pt(size, size))}, icon, image.Point{}, draw.Over)
}

// Dim darkens img in place.
func Dim(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		img.Pix[i] /= 3
		img.Pix[i+1] /= 3
		img.Pix[i+2] /= 3
	}
}

// Dot draws a filled circle.
func Dot(img draw.Image, center image.Point, radius int, c color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				img.Set(center.X+x, center.Y+y, c)
			}
		}
	}
}
