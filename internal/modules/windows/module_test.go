package windows_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/module"
	"github.com/phinze/wallpanel/internal/modules/windows"
	"github.com/phinze/wallpanel/internal/processor/emulator"
	"github.com/phinze/wallpanel/internal/render"
	"github.com/phinze/wallpanel/internal/testhelpers"
	"github.com/phinze/wallpanel/internal/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func setup(t *testing.T) (*windows.Module, *emulator.Processor) {
	t.Helper()

	logger := testhelpers.NewTestLogger(t)
	p := emulator.New()
	c := windowing.New(windowing.Params{
		Key:       "wall",
		Processor: p,
		Properties: &config.Properties{
			Screens: map[uint]config.ScreenInfo{
				1: {
					Enabled: true,
					Name:    "Main",
					Layouts: map[uint]config.LayoutInfo{
						1: {LayoutName: "Quad", LayoutIndex: intPtr(5)},
					},
				},
			},
		},
		Logger: logger,
	})
	p.ResetCommands()

	m := windows.New(c, logger)
	require.NoError(t, m.Init(t.Context(), module.Resources{
		Dials:     module.AllDials,
		StripRect: image.Rect(0, 0, 800, 100),
	}))
	t.Cleanup(func() { _ = m.Stop() })
	return m, p
}

func TestStepSource(t *testing.T) {
	list := []uint{0, 1, 2, 3, 4}

	tests := []struct {
		name    string
		list    []uint
		current uint
		delta   int
		want    uint
	}{
		{name: "forward", list: list, current: 0, delta: 1, want: 1},
		{name: "wraps forward", list: list, current: 4, delta: 1, want: 0},
		{name: "wraps backward", list: list, current: 0, delta: -1, want: 4},
		{name: "large step", list: list, current: 2, delta: 7, want: 4},
		{name: "unknown current starts at first", list: list, current: 9, delta: 1, want: 1},
		{name: "empty list", list: nil, current: 3, delta: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, windows.StepSource(tt.list, tt.current, tt.delta))
		})
	}
}

func TestDialRoutesVideo(t *testing.T) {
	m, p := setup(t)

	require.NoError(t, m.HandleDial(module.Dial2, module.DialEvent{Type: module.DialRotate, Delta: 1}))
	assert.Equal(t, []emulator.Command{
		{Op: emulator.OpSetVideoSource, Window: 2, Value: 3},
	}, p.Commands())

	p.ResetCommands()
	require.NoError(t, m.HandleDial(module.Dial1, module.DialEvent{Type: module.DialRotate, Delta: -1}))
	assert.Equal(t, []emulator.Command{
		{Op: emulator.OpSetVideoSource, Window: 1, Value: 0},
	}, p.Commands())

	p.ResetCommands()
	require.NoError(t, m.HandleDial(module.Dial1, module.DialEvent{Type: module.DialRelease}))
	assert.Empty(t, p.Commands())
}

func TestAudioFollowsWindow(t *testing.T) {
	m, p := setup(t)

	require.NoError(t, m.HandleDial(module.Dial3, module.DialEvent{Type: module.DialPress}))
	assert.Equal(t, []emulator.Command{
		{Op: emulator.OpSetAudioSource, Value: 3},
	}, p.Commands())

	p.ResetCommands()
	require.NoError(t, m.HandleStripTouch(module.TouchStripEvent{Type: module.TouchTap, Point: image.Pt(250, 40)}))
	assert.Equal(t, []emulator.Command{
		{Op: emulator.OpSetAudioSource, Value: 2},
	}, p.Commands())

	p.ResetCommands()
	require.NoError(t, m.HandleStripTouch(module.TouchStripEvent{Type: module.TouchSwipe, Point: image.Pt(250, 40)}))
	assert.Empty(t, p.Commands())
}

func TestRenderStrip(t *testing.T) {
	m, p := setup(t)

	img := m.RenderStrip()
	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, 800, 100), img.Bounds())
	assert.Equal(t, render.ColorBackground, img.(*image.RGBA).RGBAAt(1, 1))

	p.SetOnline(false)
	img = m.RenderStrip()
	require.NotNil(t, img)
	assert.Equal(t, color.RGBA{25 / 3, 25 / 3, 25 / 3, 255}, img.(*image.RGBA).RGBAAt(1, 1))
}
