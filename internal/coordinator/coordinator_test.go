package coordinator_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/phinze/wallpanel/internal/coordinator"
	"github.com/phinze/wallpanel/internal/device"
	"github.com/phinze/wallpanel/internal/device/devicetest"
	"github.com/phinze/wallpanel/internal/module"
	"github.com/phinze/wallpanel/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a module that paints solid colours and records its input.
type recorder struct {
	module.Base

	initErr error

	mu      sync.Mutex
	fill    color.RGBA
	keys    []module.KeyEvent
	dials   []module.DialEvent
	touches []module.TouchStripEvent
	stopped bool
}

func newRecorder(t *testing.T, id string, fill color.RGBA) *recorder {
	return &recorder{Base: module.NewBase(id, testhelpers.NewTestLogger(t)), fill: fill}
}

func (r *recorder) Init(ctx context.Context, res module.Resources) error {
	if r.initErr != nil {
		return r.initErr
	}
	return r.Base.Init(ctx, res)
}

func (r *recorder) Stop() error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	return r.Base.Stop()
}

func (r *recorder) setFill(c color.RGBA) {
	r.mu.Lock()
	r.fill = c
	r.mu.Unlock()
}

func (r *recorder) solid() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &image.Uniform{r.fill}
}

func (r *recorder) RenderKeys() map[module.KeyID]image.Image {
	out := make(map[module.KeyID]image.Image)
	for _, k := range r.Resources().Keys {
		out[k] = r.solid()
	}
	return out
}

func (r *recorder) RenderStrip() image.Image {
	if !r.Resources().HasStrip() {
		return nil
	}
	rect := r.Resources().StripRect
	img := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r.fill.R, r.fill.G, r.fill.B, r.fill.A
	}
	return img
}

func (r *recorder) HandleKey(_ module.KeyID, event module.KeyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, event)
	return nil
}

func (r *recorder) HandleDial(_ module.DialID, event module.DialEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dials = append(r.dials, event)
	return nil
}

func (r *recorder) HandleStripTouch(event module.TouchStripEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touches = append(r.touches, event)
	return nil
}

func (r *recorder) snapshot() ([]module.KeyEvent, []module.DialEvent, []module.TouchStripEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]module.KeyEvent(nil), r.keys...),
		append([]module.DialEvent(nil), r.dials...),
		append([]module.TouchStripEvent(nil), r.touches...)
}

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func startCoordinator(t *testing.T, fake *devicetest.Fake, register func(*coordinator.Coordinator)) (context.CancelFunc, <-chan error) {
	t.Helper()

	c := coordinator.New(coordinator.Params{
		Device:         fake,
		RenderInterval: time.Hour,
		Logger:         testhelpers.NewTestLogger(t),
	})
	register(c)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return fake.StripImage() != nil }, 5*time.Second, 10*time.Millisecond)
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
		return nil
	}
}

func TestRoutesInputToOwners(t *testing.T) {
	fake := devicetest.New()
	left := newRecorder(t, "left", red)
	right := newRecorder(t, "right", blue)

	cancel, done := startCoordinator(t, fake, func(c *coordinator.Coordinator) {
		c.Register(left, module.Resources{
			Keys:      []module.KeyID{module.Key1},
			Dials:     []module.DialID{module.Dial1},
			StripRect: image.Rect(0, 0, 400, 100),
		})
		c.Register(right, module.Resources{
			Keys:      []module.KeyID{module.Key2},
			StripRect: image.Rect(400, 0, 800, 100),
		})
	})

	require.NoError(t, fake.PressKey(device.KEY_1))
	require.NoError(t, fake.PressKey(device.KEY_8))
	require.NoError(t, fake.RotateDial(device.DIAL_1, -2))
	require.NoError(t, fake.PressDial(device.DIAL_1))
	require.NoError(t, fake.RotateDial(device.DIAL_3, 1))
	require.NoError(t, fake.Tap(image.Pt(450, 30)))

	keys, dials, touches := left.snapshot()
	assert.Equal(t, []module.KeyEvent{{Pressed: true}, {Pressed: false}}, keys)
	assert.Equal(t, []module.DialEvent{
		{Type: module.DialRotate, Delta: -2},
		{Type: module.DialPress},
		{Type: module.DialRelease},
	}, dials)
	assert.Empty(t, touches)

	keys, dials, touches = right.snapshot()
	assert.Empty(t, keys)
	assert.Empty(t, dials)
	assert.Equal(t, []module.TouchStripEvent{{Type: module.TouchTap, Point: image.Pt(50, 30)}}, touches)

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.True(t, left.stopped)
	assert.True(t, right.stopped)
}

func TestCompositesStripRegions(t *testing.T) {
	fake := devicetest.New()
	left := newRecorder(t, "left", red)
	right := newRecorder(t, "right", blue)

	cancel, done := startCoordinator(t, fake, func(c *coordinator.Coordinator) {
		c.Register(left, module.Resources{Keys: []module.KeyID{module.Key1}, StripRect: image.Rect(0, 0, 400, 100)})
		c.Register(right, module.Resources{Keys: []module.KeyID{module.Key2}, StripRect: image.Rect(400, 0, 800, 100)})
	})
	defer func() {
		cancel()
		_ = waitDone(t, done)
	}()

	strip := fake.StripImage()
	assert.Equal(t, red, strip.RGBAAt(10, 50))
	assert.Equal(t, blue, strip.RGBAAt(790, 50))
	assert.Equal(t, red, fake.KeyImage(device.KEY_1).RGBAAt(36, 36))
	assert.Equal(t, blue, fake.KeyImage(device.KEY_2).RGBAAt(36, 36))
	assert.Nil(t, fake.KeyImage(device.KEY_3))
}

func TestSkipsUnchangedImages(t *testing.T) {
	fake := devicetest.New()
	m := newRecorder(t, "m", red)

	var coord *coordinator.Coordinator
	cancel, done := startCoordinator(t, fake, func(c *coordinator.Coordinator) {
		coord = c
		c.Register(m, module.Resources{StripRect: image.Rect(0, 0, 800, 100)})
	})
	defer func() {
		cancel()
		_ = waitDone(t, done)
	}()

	require.Equal(t, 1, fake.StripSets())

	m.setFill(blue)
	coord.Redraw()
	require.Eventually(t, func() bool { return fake.StripSets() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, blue, fake.StripImage().RGBAAt(400, 50))

	coord.Redraw()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, fake.StripSets())
}

func TestFailedModuleIsSkipped(t *testing.T) {
	fake := devicetest.New()
	broken := newRecorder(t, "broken", red)
	broken.initErr = errors.New("no fonts")
	ok := newRecorder(t, "ok", blue)

	cancel, done := startCoordinator(t, fake, func(c *coordinator.Coordinator) {
		c.Register(broken, module.Resources{Keys: []module.KeyID{module.Key1}, StripRect: image.Rect(0, 0, 400, 100)})
		c.Register(ok, module.Resources{Keys: []module.KeyID{module.Key2}, StripRect: image.Rect(400, 0, 800, 100)})
	})
	defer func() {
		cancel()
		_ = waitDone(t, done)
	}()

	require.NoError(t, fake.PressKey(device.KEY_1))
	keys, _, _ := broken.snapshot()
	assert.Empty(t, keys)
	assert.Nil(t, fake.KeyImage(device.KEY_1))
	assert.Equal(t, color.RGBA{}, fake.StripImage().RGBAAt(10, 50))
	assert.Equal(t, blue, fake.StripImage().RGBAAt(790, 50))
}

func TestDisconnect(t *testing.T) {
	fake := devicetest.New()
	m := newRecorder(t, "m", red)

	_, done := startCoordinator(t, fake, func(c *coordinator.Coordinator) {
		c.Register(m, module.Resources{StripRect: image.Rect(0, 0, 800, 100)})
	})

	require.NoError(t, fake.Close())
	assert.ErrorIs(t, waitDone(t, done), coordinator.ErrDisconnected)
	assert.True(t, m.stopped)
}
