package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phinze/wallpanel/internal/device"
)

// On-screen Stream Deck Plus geometry. Keys are shown at twice their
// native size; the strip is shown at native size.
const (
	keySize        = 72
	keyDisplaySize = 144
	keysPerRow     = 4
	keyRows        = 2
	keyCount       = 8
	dialCount      = 4
	dialSize       = 120
	stripWidth     = 800
	stripHeight    = 100

	panelMargin  = 20
	headerHeight = 30
	stripGap     = 72
	dialGap      = 50
	footerHeight = 50

	keySpacing    = (stripWidth - keysPerRow*keyDisplaySize) / (keysPerRow + 1)
	keyAreaHeight = keyRows*keyDisplaySize + (keyRows-1)*keySpacing
	dialSpacing   = (stripWidth - dialCount*dialSize) / (dialCount + 1)

	panelWidth  = 2*panelMargin + stripWidth
	panelHeight = headerHeight + panelMargin + keyAreaHeight + stripGap + stripHeight + dialGap + dialSize + footerHeight

	// A press shorter than this on the strip is a short tap.
	longTouch = 500 * time.Millisecond
	// Drags shorter than this many pixels are taps.
	swipeThreshold = 20
	clickRelease   = 50 * time.Millisecond
)

var (
	errPanelClosed = errors.New("preview: panel is not open")
	errPanelOpen   = errors.New("preview: panel is already open")

	colorBezel = color.RGBA{60, 60, 60, 255}
)

// Panel is an on-screen Stream Deck Plus. It is driven by the preview's
// game loop; Listen blocks until the preview window closes.
type Panel struct {
	mu         sync.RWMutex
	open       bool
	brightness byte
	keys       [keyCount]*image.RGBA
	strip      *image.RGBA
	errCh      chan error
	done       chan struct{}
	doneOnce   sync.Once

	keyHandlers    [keyCount][]device.KeyHandler
	rotateHandlers [dialCount][]device.DialRotateHandler
	switchHandlers [dialCount][]device.DialSwitchHandler
	touchHandlers  []device.TouchStripTouchHandler
	swipeHandlers  []device.TouchStripSwipeHandler

	// Touch strip drag, owned by the game loop.
	dragging  bool
	dragStart image.Point
	dragAt    time.Time

	dial *ebiten.Image
}

var _ device.Device = (*Panel)(nil)

// NewPanel returns a closed panel with blank keys.
func NewPanel() *Panel {
	p := &Panel{
		brightness: 80,
		strip:      image.NewRGBA(image.Rect(0, 0, stripWidth, stripHeight)),
		done:       make(chan struct{}),
	}
	for i := range p.keys {
		p.keys[i] = image.NewRGBA(image.Rect(0, 0, keySize, keySize))
	}
	return p
}

// Open marks the panel open. The preview window calls it before Listen.
func (p *Panel) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		return errPanelOpen
	}
	p.open = true
	return nil
}

// Close closes the panel and unblocks Listen.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return errPanelClosed
	}
	p.open = false
	p.shutdown()
	return nil
}

func (p *Panel) shutdown() {
	p.doneOnce.Do(func() { close(p.done) })
}

func (p *Panel) GetModelName() string { return "Stream Deck Plus (Preview)" }

func (p *Panel) GetTouchStripSupported() bool { return true }

func (p *Panel) GetKeyImageRectangle() (image.Rectangle, error) {
	return image.Rect(0, 0, keySize, keySize), nil
}

func (p *Panel) GetTouchStripImageRectangle() (image.Rectangle, error) {
	return image.Rect(0, 0, stripWidth, stripHeight), nil
}

func (p *Panel) SetBrightness(perc byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.brightness = min(perc, 100)
	return nil
}

func keyIndex(key device.KeyID) (int, error) {
	i := int(key) - 1
	if i < 0 || i >= keyCount {
		return 0, fmt.Errorf("preview: invalid key %d", key)
	}
	return i, nil
}

func dialIndex(dial device.DialID) (int, error) {
	i := int(dial) - 1
	if i < 0 || i >= dialCount {
		return 0, fmt.Errorf("preview: invalid dial %d", dial)
	}
	return i, nil
}

func (p *Panel) SetKeyImage(key device.KeyID, img image.Image) error {
	i, err := keyIndex(key)
	if err != nil {
		return err
	}
	rgba := image.NewRGBA(image.Rect(0, 0, keySize, keySize))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[i] = rgba
	return nil
}

func (p *Panel) SetTouchStripImage(img image.Image) error {
	rgba := image.NewRGBA(image.Rect(0, 0, stripWidth, stripHeight))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.strip = rgba
	return nil
}

func (p *Panel) ClearKey(key device.KeyID) error {
	return p.SetKeyImage(key, image.Black)
}

func (p *Panel) ForEachKey(cb func(device.KeyID) error) error {
	for k := device.KEY_1; k <= device.KEY_8; k++ {
		if err := cb(k); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) AddKeyHandler(key device.KeyID, fn device.KeyHandler) error {
	i, err := keyIndex(key)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyHandlers[i] = append(p.keyHandlers[i], fn)
	return nil
}

func (p *Panel) AddDialRotateHandler(dial device.DialID, fn device.DialRotateHandler) error {
	i, err := dialIndex(dial)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rotateHandlers[i] = append(p.rotateHandlers[i], fn)
	return nil
}

func (p *Panel) AddDialSwitchHandler(dial device.DialID, fn device.DialSwitchHandler) error {
	i, err := dialIndex(dial)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.switchHandlers[i] = append(p.switchHandlers[i], fn)
	return nil
}

func (p *Panel) AddTouchStripTouchHandler(fn device.TouchStripTouchHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touchHandlers = append(p.touchHandlers, fn)
	return nil
}

func (p *Panel) AddTouchStripSwipeHandler(fn device.TouchStripSwipeHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.swipeHandlers = append(p.swipeHandlers, fn)
	return nil
}

// Listen blocks until the panel is closed or the preview window goes away.
func (p *Panel) Listen(errCh chan error) error {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return errPanelClosed
	}
	p.errCh = errCh
	p.mu.Unlock()

	<-p.done
	return nil
}

// fire runs a handler off the game loop, since handlers wait for releases.
func (p *Panel) fire(fn func() error) {
	p.mu.RLock()
	errCh := p.errCh
	p.mu.RUnlock()

	go func() {
		if err := fn(); err != nil && errCh != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}

// Geometry of the panel's parts, relative to the panel origin.

func keyRect(i int) image.Rectangle {
	x := panelMargin + keySpacing + (i%keysPerRow)*(keyDisplaySize+keySpacing)
	y := headerHeight + panelMargin + (i/keysPerRow)*(keyDisplaySize+keySpacing)
	return image.Rect(x, y, x+keyDisplaySize, y+keyDisplaySize)
}

func stripRect() image.Rectangle {
	y := headerHeight + panelMargin + keyAreaHeight + stripGap
	return image.Rect(panelMargin, y, panelMargin+stripWidth, y+stripHeight)
}

func dialCenter(i int) image.Point {
	x := panelMargin + dialSpacing + i*(dialSize+dialSpacing)
	y := stripRect().Max.Y + dialGap
	return image.Pt(x+dialSize/2, y+dialSize/2)
}

func overDial(i int, pt image.Point) bool {
	d := pt.Sub(dialCenter(i))
	return d.X*d.X+d.Y*d.Y <= (dialSize/2)*(dialSize/2)
}

// handleInput turns mouse input at pt, relative to the panel origin, into
// panel events.
func (p *Panel) handleInput(pt image.Point) {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		p.click(pt)
	}
	if p.dragging && !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		p.endDrag(pt)
	}
	if _, wheel := ebiten.Wheel(); wheel != 0 {
		for i := range dialCount {
			if overDial(i, pt) {
				p.rotate(device.DialID(i+1), int8(max(min(wheel, 5), -5)))
				break
			}
		}
	}
}

func (p *Panel) click(pt image.Point) {
	for i := range keyCount {
		if pt.In(keyRect(i)) {
			p.press(device.KeyID(i + 1))
			return
		}
	}
	for i := range dialCount {
		if overDial(i, pt) {
			p.pressDial(device.DialID(i + 1))
			return
		}
	}
	if strip := stripRect(); pt.In(strip) {
		p.dragging = true
		p.dragStart = pt.Sub(strip.Min)
		p.dragAt = time.Now()
	}
}

func (p *Panel) endDrag(pt image.Point) {
	p.dragging = false

	strip := stripRect()
	end := image.Pt(
		max(min(pt.X-strip.Min.X, stripWidth-1), 0),
		max(min(pt.Y-strip.Min.Y, stripHeight-1), 0),
	)

	d := end.Sub(p.dragStart)
	if d.X*d.X+d.Y*d.Y >= swipeThreshold*swipeThreshold {
		p.swipe(p.dragStart, end)
		return
	}
	touch := device.TOUCH_STRIP_TOUCH_TYPE_SHORT
	if time.Since(p.dragAt) > longTouch {
		touch = device.TOUCH_STRIP_TOUCH_TYPE_LONG
	}
	p.tap(touch, p.dragStart)
}

func (p *Panel) press(id device.KeyID) {
	p.mu.RLock()
	handlers := p.keyHandlers[id-1]
	p.mu.RUnlock()

	for _, h := range handlers {
		k := newPress(id, 0)
		p.fire(func() error { return h(p, pressedKey{k}) })
		time.AfterFunc(clickRelease, k.release)
	}
}

func (p *Panel) pressDial(id device.DialID) {
	p.mu.RLock()
	handlers := p.switchHandlers[id-1]
	p.mu.RUnlock()

	for _, h := range handlers {
		d := newPress(0, id)
		p.fire(func() error { return h(p, pressedDial{d}) })
		time.AfterFunc(clickRelease, d.release)
	}
}

func (p *Panel) rotate(id device.DialID, delta int8) {
	p.mu.RLock()
	handlers := p.rotateHandlers[id-1]
	p.mu.RUnlock()

	for _, h := range handlers {
		d := newPress(0, id)
		d.release()
		p.fire(func() error { return h(p, pressedDial{d}, delta) })
	}
}

func (p *Panel) tap(touch device.TouchStripTouchType, pt image.Point) {
	p.mu.RLock()
	handlers := p.touchHandlers
	p.mu.RUnlock()

	for _, h := range handlers {
		p.fire(func() error { return h(p, touch, pt) })
	}
}

func (p *Panel) swipe(from, to image.Point) {
	p.mu.RLock()
	handlers := p.swipeHandlers
	p.mu.RUnlock()

	for _, h := range handlers {
		p.fire(func() error { return h(p, from, to) })
	}
}

// draw paints the panel onto screen at origin.
func (p *Panel) draw(screen *ebiten.Image, origin image.Point) {
	p.mu.RLock()
	keys := p.keys
	strip := p.strip
	level := float32(p.brightness) / 100
	p.mu.RUnlock()

	at := func(r image.Rectangle) image.Rectangle { return r.Add(origin) }
	blit := func(img *ebiten.Image, pt image.Point) {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(pt.X), float64(pt.Y))
		op.ColorScale.Scale(level, level, level, 1)
		screen.DrawImage(img, op)
	}

	ebitenutil.DebugPrintAt(screen, "Stream Deck Plus", origin.X+panelWidth/2-48, origin.Y+8)

	for i, img := range keys {
		r := at(keyRect(i))
		fillRect(screen, r.Inset(-2), colorBezel)
		scaled := ebiten.NewImageFromImage(scaleNearest(img, keyDisplaySize))
		blit(scaled, r.Min)
	}

	sr := at(stripRect())
	fillRect(screen, sr.Inset(-2), colorBezel)
	blit(ebiten.NewImageFromImage(strip), sr.Min)

	if p.dial == nil {
		p.dial = dialImage()
	}
	for i := range dialCount {
		c := dialCenter(i).Add(origin)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(c.X-dialSize/2), float64(c.Y-dialSize/2))
		screen.DrawImage(p.dial, op)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("D%d", i+1), c.X-8, c.Y-4)
	}

	ebitenutil.DebugPrintAt(screen, "Click keys | Scroll or click dials | Click or drag the strip", origin.X+10, origin.Y+panelHeight-18)
}

func fillRect(screen *ebiten.Image, r image.Rectangle, c color.Color) {
	img := ebiten.NewImage(r.Dx(), r.Dy())
	img.Fill(c)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(r.Min.X), float64(r.Min.Y))
	screen.DrawImage(img, op)
}

// dialImage draws a dial as concentric rings.
func dialImage() *ebiten.Image {
	img := image.NewRGBA(image.Rect(0, 0, dialSize, dialSize))
	r := dialSize / 2
	rings := []struct {
		radius int
		c      color.RGBA
	}{
		{r, color.RGBA{80, 80, 80, 255}},
		{r - 8, color.RGBA{50, 50, 50, 255}},
		{r - 12, color.RGBA{70, 70, 70, 255}},
	}
	for _, ring := range rings {
		for y := range dialSize {
			for x := range dialSize {
				dx, dy := x-r, y-r
				if dx*dx+dy*dy <= ring.radius*ring.radius {
					img.SetRGBA(x, y, ring.c)
				}
			}
		}
	}
	return ebiten.NewImageFromImage(img)
}

// scaleNearest scales a square image to size with nearest-neighbour
// sampling, which keeps key pixels crisp at 2x.
func scaleNearest(src *image.RGBA, size int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			dst.SetRGBA(x, y, src.RGBAAt(b.Min.X+x*b.Dx()/size, b.Min.Y+y*b.Dy()/size))
		}
	}
	return dst
}

// press is a key or dial press released by a timer.
type press struct {
	key  device.KeyID
	dial device.DialID
	at   time.Time

	released chan struct{}
	once     sync.Once
}

func newPress(key device.KeyID, dial device.DialID) *press {
	return &press{key: key, dial: dial, at: time.Now(), released: make(chan struct{})}
}

func (k *press) release() { k.once.Do(func() { close(k.released) }) }

// WaitForRelease blocks until the click's release and returns how long the
// press lasted.
func (k *press) WaitForRelease() time.Duration {
	<-k.released
	return time.Since(k.at)
}

// pressedKey and pressedDial give a press the GetID of the device part it
// stands for.
type pressedKey struct{ *press }

func (k pressedKey) GetID() device.KeyID { return k.key }

type pressedDial struct{ *press }

func (d pressedDial) GetID() device.DialID { return d.dial }
