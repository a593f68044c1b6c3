package windowing_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/feedback"
	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/processor/emulator"
	"github.com/phinze/wallpanel/internal/routing"
	"github.com/phinze/wallpanel/internal/testhelpers"
	"github.com/phinze/wallpanel/internal/windowing"
	gocmp "github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func testProperties() *config.Properties {
	return &config.Properties{
		Screens: map[uint]config.ScreenInfo{
			1: {
				Enabled:     true,
				Name:        "Main",
				ScreenIndex: 1,
				Layouts: map[uint]config.LayoutInfo{
					1: {LayoutName: "Fullscreen", LayoutIndex: intPtr(1), LayoutType: "fullscreen"},
					2: {LayoutName: "Side by side", LayoutIndex: intPtr(3)},
					3: {LayoutName: "Quad", LayoutIndex: intPtr(5)},
				},
			},
			2: {
				Enabled:     false,
				Name:        "Lobby",
				ScreenIndex: 2,
				Layouts: map[uint]config.LayoutInfo{
					1: {LayoutName: "Auto", LayoutIndex: intPtr(0)},
					2: {
						LayoutName:  "Presenter",
						LayoutIndex: intPtr(2),
						Windows: map[uint]config.WindowConfig{
							1: {Label: "Speaker", Input: "Laptop"},
						},
					},
				},
			},
		},
		InputNames:  map[uint]string{3: "Laptop"},
		OutputNames: map[uint]string{4: "Corner"},
	}
}

func newController(t *testing.T, props *config.Properties, opts ...emulator.Option) (*windowing.Controller, *emulator.Processor) {
	t.Helper()

	p := emulator.New(opts...)
	c := windowing.New(windowing.Params{
		Key:        "windowProc",
		Name:       "Wall",
		Processor:  p,
		Properties: props,
		Logger:     testhelpers.NewTestLogger(t),
	})
	p.ResetCommands()
	return c, p
}

func video(w, n uint) emulator.Command {
	return emulator.Command{Op: emulator.OpSetVideoSource, Window: w, Value: n}
}

func audio(n uint) emulator.Command {
	return emulator.Command{Op: emulator.OpSetAudioSource, Value: n}
}

func recall(layout processor.LayoutType) emulator.Command {
	return emulator.Command{Op: emulator.OpRecallLayout, Value: uint(layout)}
}

func TestNewBuildsGroupsPerScreen(t *testing.T) {
	c, _ := newController(t, testProperties())

	assert.Equal(t, windowing.StateOnline, c.State())
	require.Len(t, c.Groups(), 2)
	assert.Equal(t, []uint{1, 2}, c.ScreenKeys())

	g1, ok := c.Group(1)
	require.True(t, ok)
	assert.Equal(t, "windowProc-screen-1", g1.Key())
	assert.Equal(t, "Main", g1.Name())
	require.Len(t, g1.Items(), 3)

	var keys, names []string
	var ids []int
	for _, item := range g1.Items() {
		keys = append(keys, item.Key())
		names = append(names, item.Name())
		ids = append(ids, item.ID())
	}
	assert.Equal(t, []string{"1", "2", "3"}, keys)
	assert.Equal(t, []string{"Fullscreen", "Side by side", "Quad"}, names)
	assert.Equal(t, []int{1, 3, 5}, ids)

	g2, ok := c.Group(2)
	require.True(t, ok)
	assert.Len(t, g2.Items(), 2)
	// The processor starts in Automatic, which only screen 2 offers.
	assert.Equal(t, "", g1.CurrentItem())
	assert.Equal(t, "1", g2.CurrentItem())

	assert.Len(t, c.InputSlots(), 4)
	assert.Len(t, c.OutputSlots(), 4)
	assert.Equal(t, "Laptop", c.InputSlot(3).Name())
	assert.Equal(t, "windowProc-input-3", c.InputSlot(3).Key())
	assert.Equal(t, routing.ClearInput, c.InputSlot(9))
}

func TestNewAppliesDefaultRoutesWhenOnline(t *testing.T) {
	p := emulator.New()
	windowing.New(windowing.Params{Processor: p, Properties: testProperties(), Logger: testhelpers.NewNopLogger()})

	assert.Equal(t, []emulator.Command{
		video(1, 1), video(2, 2), video(3, 3), video(4, 4), audio(uint(processor.AudioSourceAuto)),
	}, p.Commands())

	p = emulator.New(emulator.WithOnline(false))
	c := windowing.New(windowing.Params{Processor: p, Properties: testProperties(), Logger: testhelpers.NewNopLogger()})
	assert.Equal(t, windowing.StateOffline, c.State())
	assert.Empty(t, p.Commands())
}

func TestFeedbacksRegistered(t *testing.T) {
	c, _ := newController(t, testProperties())

	keys := c.FeedbackKeys()
	// 3 device values, 2 per input, AnyVideoSync, 4 per window, 3 per screen.
	assert.Len(t, keys, 3+4*2+1+4*4+2*3)
	assert.Equal(t, []string{"DeviceName", "IsOnline", "CurrentLayout"}, keys[:3])
	assert.Contains(t, keys, "VideoInputSync-4")
	assert.Contains(t, keys, "WindowRouteName-2")
	assert.Contains(t, keys, "LayoutNames-2")

	fb := c.Feedbacks()
	assert.Equal(t, "Wall", fb.DeviceName.Get())
	assert.True(t, fb.IsOnline.Get())

	name, ok := fb.ScreenName.Get(2)
	require.True(t, ok)
	assert.Equal(t, "Lobby", name.Get())
	enabled, ok := fb.ScreenEnable.Get(2)
	require.True(t, ok)
	assert.False(t, enabled.Get())

	routeName, ok := fb.WindowRouteName.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Laptop", routeName.Get())

	windowName, ok := fb.WindowName.Get(4)
	require.True(t, ok)
	assert.Equal(t, "Corner", windowName.Get())
}

func TestSelectLayout(t *testing.T) {
	c, p := newController(t, testProperties())
	g, _ := c.Group(1)

	var changes int
	c.OnStatusChanged(func() { changes++ })

	require.NoError(t, g.Select("2"))

	assert.Equal(t, []emulator.Command{
		recall(processor.LayoutSideBySide),
		video(1, 1), video(2, 2), video(3, 3), video(4, 4),
		audio(uint(processor.AudioSourceAuto)),
	}, p.Commands())
	assert.Equal(t, "2", g.CurrentItem())
	assert.Equal(t, int(processor.LayoutSideBySide), c.Feedbacks().CurrentLayout.Get())
	assert.Positive(t, changes)

	layoutName, ok := c.Feedbacks().LayoutNames.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Side by side", layoutName.Get())

	// Screen 2 has no side-by-side layout and keeps its selection.
	g2, _ := c.Group(2)
	assert.Equal(t, "1", g2.CurrentItem())
}

func TestSelectLayoutWithWindows(t *testing.T) {
	c, p := newController(t, testProperties())
	g, _ := c.Group(2)

	require.NoError(t, g.Select("2"))

	assert.Equal(t, []emulator.Command{
		recall(processor.LayoutPictureInPicture),
		video(1, 3), video(2, 2), video(3, 3), video(4, 4),
		audio(uint(processor.AudioSourceAuto)),
	}, p.Commands())
	assert.Equal(t, "Speaker", c.WindowName(1))
	assert.Equal(t, "Window2", c.WindowName(2))

	windowName, _ := c.Feedbacks().WindowName.Get(1)
	assert.Equal(t, "Speaker", windowName.Get())

	// Audio follows window 1.
	out, _ := c.OutputSlot(2)
	assert.Equal(t, uint(3), out.Route(routing.Audio).SlotNumber())

	// A layout without windows clears the labels.
	g1, _ := c.Group(1)
	require.NoError(t, g1.Select("1"))
	assert.Equal(t, "Window1", c.WindowName(1))
	assert.Equal(t, "Window1", windowName.Get())
}

func TestSetWindowLayout(t *testing.T) {
	testCases := []struct {
		name     string
		value    int
		wantErr  error
		wantCmds []emulator.Command
	}{
		{
			name:  "automatic",
			value: 0,
			wantCmds: []emulator.Command{
				recall(processor.LayoutAutomatic),
				video(1, 1), video(2, 2), video(3, 3), video(4, 4),
				audio(uint(processor.AudioSourceAuto)),
			},
		},
		{
			name:  "three small one large",
			value: 6,
			wantCmds: []emulator.Command{
				recall(processor.LayoutThreeSmallOneLarge),
				video(1, 1), video(2, 2), video(3, 3), video(4, 4),
				audio(uint(processor.AudioSourceAuto)),
			},
		},
		{name: "out of range", value: 99, wantErr: windowing.ErrInvalidLayout},
		{name: "just out of range", value: 7, wantErr: windowing.ErrInvalidLayout},
		{name: "negative", value: -1, wantErr: windowing.ErrInvalidLayout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, p := newController(t, testProperties())
			g, _ := c.Group(1)
			require.NoError(t, g.Select("3"))
			p.ResetCommands()

			err := c.SetWindowLayout(tc.value)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.ErrorContains(t, err, "valid range is 0 - 6")
				assert.Empty(t, p.Commands())
				assert.Equal(t, "3", g.CurrentItem())
				assert.Equal(t, int(processor.LayoutQuadview), c.Feedbacks().CurrentLayout.Get())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantCmds, p.Commands())
		})
	}
}

func TestExternalLayoutChangeSyncsSelection(t *testing.T) {
	c, p := newController(t, testProperties())
	g1, _ := c.Group(1)
	g2, _ := c.Group(2)

	p.RecallLayoutLocally(processor.LayoutQuadview)

	assert.Equal(t, "3", g1.CurrentItem())
	assert.Equal(t, "1", g2.CurrentItem(), "no matching item keeps the selection")
	assert.Equal(t, int(processor.LayoutQuadview), c.Feedbacks().CurrentLayout.Get())
	assert.Empty(t, p.Commands())
}

func TestOnlineOfflineOnlineResync(t *testing.T) {
	c, p := newController(t, testProperties())
	fb := c.Feedbacks()

	var states []windowing.State
	c.OnStatusChanged(func() { states = append(states, c.State()) })

	require.NoError(t, c.ExecuteNumericSwitch(4, 2, routing.Video))
	route2, _ := fb.WindowRoute.Get(2)
	assert.Equal(t, 4, route2.Get())

	p.SetOnline(false)
	assert.Equal(t, windowing.StateOffline, c.State())
	assert.False(t, fb.IsOnline.Get())
	assert.False(t, c.InputSlot(1).IsOnline())

	// Reads while offline fail and leave safe defaults behind.
	p.FailFeedback(errors.New("no response"))
	c.ResyncAll()
	assert.Equal(t, 0, route2.Get())
	p.FailFeedback(nil)
	p.ResetCommands()

	p.SetOnline(true)
	assert.Equal(t, windowing.StateOnline, c.State())
	assert.Equal(t, windowing.StateOnline, states[len(states)-1])

	assert.Equal(t, []emulator.Command{
		video(1, 1), video(2, 2), video(3, 3), video(4, 4),
		audio(uint(processor.AudioSourceAuto)),
	}, p.Commands())

	assert.True(t, fb.IsOnline.Get())
	for w := uint(1); w <= 4; w++ {
		want, err := p.VideoSourceFeedback(w)
		require.NoError(t, err)
		f, _ := fb.WindowRoute.Get(w)
		assert.Equal(t, int(want), f.Get(), "window %d", w)
	}

	// Every cached entry matches what a fresh pull reports.
	checked := assertFresh(t, fb.DeviceName) +
		assertFresh(t, fb.IsOnline) +
		assertFresh(t, fb.CurrentLayout) +
		assertFresh(t, fb.AnyVideoSync)
	for _, coll := range []*feedback.Collection[bool]{fb.VideoSync, fb.ScreenEnable} {
		checked += assertFreshAll(t, coll)
	}
	for _, coll := range []*feedback.Collection[int]{fb.WindowRoute, fb.AudioRoute} {
		checked += assertFreshAll(t, coll)
	}
	for _, coll := range []*feedback.Collection[string]{fb.InputName, fb.WindowRouteName, fb.WindowName, fb.ScreenName, fb.LayoutNames} {
		checked += assertFreshAll(t, coll)
	}
	assert.Equal(t, len(c.FeedbackKeys()), checked)
}

// assertFresh checks that f's cached value equals a fresh pull.
func assertFresh[T comparable](t *testing.T, f *feedback.Feedback[T]) int {
	t.Helper()

	cached := f.Get()
	assert.NoError(t, f.Err(), f.Key())
	require.NoError(t, f.Refresh(), f.Key())
	assert.Equal(t, f.Get(), cached, f.Key())
	return 1
}

func assertFreshAll[T comparable](t *testing.T, coll *feedback.Collection[T]) int {
	t.Helper()

	var n int
	for _, f := range coll.All() {
		n += assertFresh(t, f)
	}
	return n
}

func TestExecuteSwitchRoutes(t *testing.T) {
	c, p := newController(t, testProperties())

	var changes []windowing.SwitchChange
	c.OnNumericSwitchChange(func(sc windowing.SwitchChange) { changes = append(changes, sc) })

	out, ok := c.OutputSlot(2)
	require.True(t, ok)

	require.NoError(t, c.ExecuteSwitch(c.InputSlot(3), out, routing.Video))
	require.NoError(t, c.ExecuteSwitch(c.InputSlot(4), out, routing.Audio))

	assert.Equal(t, []emulator.Command{video(2, 3), audio(4)}, p.Commands())

	videoIn := out.Route(routing.Video)
	audioIn := out.Route(routing.Audio)
	assert.Equal(t, uint(3), videoIn.SlotNumber())
	assert.Equal(t, uint(4), audioIn.SlotNumber())
	assert.NotEqual(t, videoIn, audioIn)
	assert.Same(t, c.InputSlot(3), videoIn)

	require.NotEmpty(t, changes)
	assert.Equal(t, windowing.SwitchChange{Output: 2, Input: 3, Signal: routing.Video}, changes[0])
	assert.Contains(t, changes, windowing.SwitchChange{Output: 1, Input: 4, Signal: routing.Audio})

	audioRoute, _ := c.Feedbacks().AudioRoute.Get(1)
	assert.Equal(t, 4, audioRoute.Get())
}

func TestExecuteSwitchSignalTypes(t *testing.T) {
	testCases := []struct {
		name     string
		input    uint
		sig      routing.SignalType
		wantCmds []emulator.Command
	}{
		{name: "audio and video", input: 1, sig: routing.AudioVideo, wantCmds: []emulator.Command{video(3, 1), audio(1)}},
		{name: "video only", input: 2, sig: routing.Video, wantCmds: []emulator.Command{video(3, 2)}},
		{name: "clear", input: 0, sig: routing.Video, wantCmds: []emulator.Command{video(3, 0)}},
		{name: "usb is not switchable", input: 2, sig: routing.UsbInput | routing.UsbOutput},
		{name: "secondary audio is not switchable", input: 2, sig: routing.SecondaryAudio},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, p := newController(t, testProperties())
			out, _ := c.OutputSlot(3)

			require.NoError(t, c.ExecuteSwitch(c.InputSlot(tc.input), out, tc.sig))
			assert.Equal(t, tc.wantCmds, p.Commands())
		})
	}
}

func TestExecuteNumericSwitch(t *testing.T) {
	testCases := []struct {
		name     string
		input    uint
		output   uint
		wantErr  error
		wantCmds []emulator.Command
	}{
		{name: "route", input: 2, output: 1, wantCmds: []emulator.Command{video(1, 2)}},
		{name: "input 0 clears", input: 0, output: 1, wantCmds: []emulator.Command{video(1, 0)}},
		{name: "output 0", input: 1, output: 0, wantErr: windowing.ErrInvalidSwitch},
		{name: "unknown output", input: 1, output: 5, wantErr: windowing.ErrInvalidSwitch},
		{name: "unknown input", input: 5, output: 1, wantErr: windowing.ErrInvalidSwitch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, p := newController(t, testProperties())

			err := c.ExecuteNumericSwitch(tc.input, tc.output, routing.Video)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantCmds, p.Commands())
		})
	}
}

func TestNoRouteText(t *testing.T) {
	props := testProperties()
	props.NoRouteText = "No source"
	c, _ := newController(t, props)

	require.NoError(t, c.ExecuteNumericSwitch(0, 1, routing.Video))

	f, _ := c.Feedbacks().WindowRouteName.Get(1)
	assert.Equal(t, "No source", f.Get())
	out, _ := c.OutputSlot(1)
	assert.True(t, routing.IsClear(out.Route(routing.Video)))
}

func TestVideoSyncFeedbacks(t *testing.T) {
	c, p := newController(t, testProperties())
	fb := c.Feedbacks()

	assert.False(t, fb.AnyVideoSync.Get())

	p.SetSync(2, true)

	sync2, _ := fb.VideoSync.Get(2)
	assert.True(t, sync2.Get())
	assert.True(t, fb.AnyVideoSync.Get())
	assert.True(t, c.InputSlot(2).VideoSyncDetected())

	p.SetSync(2, false)
	assert.False(t, fb.AnyVideoSync.Get())
}

func TestInputRenameUpdatesRouteNames(t *testing.T) {
	c, p := newController(t, testProperties())

	p.SetInputName(1, "Camera")

	name, _ := c.Feedbacks().InputName.Get(1)
	assert.Equal(t, "Camera", name.Get())
	routeName, _ := c.Feedbacks().WindowRouteName.Get(1)
	assert.Equal(t, "Camera", routeName.Get())
}

func TestFullStatusScreensRoundTrip(t *testing.T) {
	props := testProperties()
	c, _ := newController(t, props)

	st := c.Snapshot()
	assert.Equal(t, "windowProc", st.Key)
	assert.Equal(t, "online", st.State)
	assert.Equal(t, "Automatic", st.CurrentLayout)
	assert.Len(t, st.Windows, 4)
	assert.Len(t, st.Inputs, 4)

	b, err := json.Marshal(st)
	require.NoError(t, err)

	var decoded windowing.Status
	require.NoError(t, json.Unmarshal(b, &decoded))

	if diff := gocmp.Diff(props.Screens, decoded.Screens); diff != "" {
		t.Errorf("screens mismatch (-want +got):\n%s", diff)
	}

	// The snapshot is a copy.
	st.Screens[2].Layouts[2].Windows[1] = config.WindowConfig{Label: "changed"}
	delete(st.Screens, 2)
	if diff := gocmp.Diff(props.Screens, c.Screens()); diff != "" {
		t.Errorf("controller screens changed (-want +got):\n%s", diff)
	}
}

func TestSnapshotServesCachedValues(t *testing.T) {
	c, p := newController(t, testProperties())

	require.NoError(t, c.ExecuteNumericSwitch(3, 2, routing.Video))
	p.SetSync(3, true)
	p.SetInputName(1, "Camera")
	p.RecallLayoutLocally(processor.LayoutQuadview)

	want := c.Snapshot()
	assert.Equal(t, int(processor.LayoutQuadview), want.Layout)
	assert.Equal(t, processor.LayoutQuadview.String(), want.CurrentLayout)
	assert.Equal(t, windowing.WindowStatus{Number: 2, Name: "Window2", VideoInput: 3, VideoName: "Laptop", AudioInput: 1}, want.Windows[1])
	assert.Equal(t, windowing.InputStatus{Number: 3, Key: "windowProc-input-3", Name: "Laptop", SyncDetected: true, IsOnline: true}, want.Inputs[2])
	assert.Equal(t, "Camera", want.Inputs[0].Name)

	// The processor stops answering; nothing has been refreshed since.
	p.FailFeedback(errors.New("no response"))
	if diff := gocmp.Diff(want, c.Snapshot()); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}

	// Going offline refreshes the online state only.
	p.SetOnline(false)
	got := c.Snapshot()
	assert.Equal(t, "offline", got.State)
	assert.False(t, got.IsOnline)
	assert.Equal(t, want.Windows, got.Windows)
	assert.Equal(t, want.CurrentLayout, got.CurrentLayout)
	for _, in := range got.Inputs {
		assert.False(t, in.IsOnline, "input %d", in.Number)
	}
}

func TestUnconfigured(t *testing.T) {
	noScreens := testProperties()
	noScreens.Screens = nil

	missingIndex := testProperties()
	missingIndex.Screens[1].Layouts[1] = config.LayoutInfo{LayoutName: "Broken"}

	testCases := []struct {
		name    string
		props   *config.Properties
		wantErr string
	}{
		{name: "missing screens", props: noScreens, wantErr: "no screens configured"},
		{name: "no properties", props: nil, wantErr: "no properties"},
		{name: "missing layout index", props: missingIndex, wantErr: "layoutIndex is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, p := newController(t, tc.props)

			assert.Equal(t, windowing.StateUnconfigured, c.State())
			assert.ErrorContains(t, c.ConfigErr(), tc.wantErr)
			assert.Empty(t, c.FeedbackKeys())
			assert.Empty(t, c.Groups())
			assert.Nil(t, c.Feedbacks().IsOnline)
			assert.Zero(t, c.Feedbacks().WindowRoute.Len())

			assert.ErrorIs(t, c.SetWindowLayout(1), windowing.ErrUnconfigured)
			assert.ErrorIs(t, c.DefaultWindowRoutes(), windowing.ErrUnconfigured)
			assert.ErrorIs(t, c.ExecuteNumericSwitch(1, 1, routing.AudioVideo), windowing.ErrUnconfigured)
			assert.ErrorIs(t, c.ExecuteSwitch(routing.ClearInput, nil, routing.Video), windowing.ErrUnconfigured)

			// Hardware events are ignored.
			p.SetOnline(false)
			p.SetOnline(true)
			p.RecallLayoutLocally(processor.LayoutQuadview)

			assert.Equal(t, windowing.StateUnconfigured, c.State())
			assert.Empty(t, p.Commands())

			st := c.Snapshot()
			assert.Equal(t, "unconfigured", st.State)
			assert.Empty(t, st.Screens)
			assert.Empty(t, st.Windows)
		})
	}
}
