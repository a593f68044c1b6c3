package windowing

import (
	"fmt"

	"github.com/phinze/wallpanel/internal/feedback"
	"github.com/phinze/wallpanel/internal/routing"
)

// Feedbacks holds every status value the controller publishes. Collections
// are indexed by input, window or screen number.
type Feedbacks struct {
	DeviceName    *feedback.String
	IsOnline      *feedback.Bool
	CurrentLayout *feedback.Int
	// AnyVideoSync is true when any input detects a source.
	AnyVideoSync *feedback.Bool

	VideoSync *feedback.Collection[bool]
	InputName *feedback.Collection[string]

	WindowRoute     *feedback.Collection[int]
	WindowRouteName *feedback.Collection[string]
	WindowName      *feedback.Collection[string]
	AudioRoute      *feedback.Collection[int]

	ScreenName   *feedback.Collection[string]
	ScreenEnable *feedback.Collection[bool]
	LayoutNames  *feedback.Collection[string]
}

func newFeedbacks() Feedbacks {
	return Feedbacks{
		VideoSync:       feedback.NewCollection[bool](),
		InputName:       feedback.NewCollection[string](),
		WindowRoute:     feedback.NewCollection[int](),
		WindowRouteName: feedback.NewCollection[string](),
		WindowName:      feedback.NewCollection[string](),
		AudioRoute:      feedback.NewCollection[int](),
		ScreenName:      feedback.NewCollection[string](),
		ScreenEnable:    feedback.NewCollection[bool](),
		LayoutNames:     feedback.NewCollection[string](),
	}
}

func (c *Controller) buildFeedbacks() {
	fb := &c.feedbacks

	fb.DeviceName = feedback.New("DeviceName", feedback.Func(func() string { return c.name }))
	fb.IsOnline = feedback.New("IsOnline", feedback.Func(c.p.IsOnline))
	fb.CurrentLayout = feedback.New("CurrentLayout", func() (int, error) {
		layout, err := c.p.LayoutFeedback()
		return int(layout), err
	})
	fb.AnyVideoSync = feedback.New("AnyVideoSync", feedback.Func(func() bool {
		for _, f := range fb.VideoSync.All() {
			if f.Get() {
				return true
			}
		}
		return false
	}))
	c.all.Add(fb.DeviceName, fb.IsOnline, fb.CurrentLayout)

	for _, in := range c.inputs {
		n := in.SlotNumber()
		fb.VideoSync.Add(n, feedback.New(fmt.Sprintf("VideoInputSync-%d", n), feedback.Func(in.VideoSyncDetected)))
		fb.InputName.Add(n, feedback.New(fmt.Sprintf("InputName-%d", n), feedback.Func(in.Name)))
	}
	for _, f := range fb.VideoSync.All() {
		c.all.Add(f)
	}
	for _, f := range fb.InputName.All() {
		c.all.Add(f)
	}
	// Added after the per-input values it is derived from.
	c.all.Add(fb.AnyVideoSync)

	for _, out := range c.outputs {
		w := out.SlotNumber()
		fb.WindowRoute.Add(w, feedback.New(fmt.Sprintf("WindowRoute-%d", w), func() (int, error) {
			src, err := c.p.VideoSourceFeedback(w)
			return int(src), err
		}))
		fb.WindowRouteName.Add(w, feedback.New(fmt.Sprintf("WindowRouteName-%d", w), feedback.Func(func() string {
			return c.routeName(out)
		})))
		fb.WindowName.Add(w, feedback.New(fmt.Sprintf("WindowName-%d", w), feedback.Func(func() string {
			return c.WindowName(w)
		})))
		fb.AudioRoute.Add(w, feedback.New(fmt.Sprintf("AudioRoute-%d", w), feedback.Func(func() int {
			return int(out.Route(routing.Audio).SlotNumber())
		})))
	}
	for _, coll := range []*feedback.Collection[int]{fb.WindowRoute, fb.AudioRoute} {
		for _, f := range coll.All() {
			c.all.Add(f)
		}
	}
	for _, coll := range []*feedback.Collection[string]{fb.WindowRouteName, fb.WindowName} {
		for _, f := range coll.All() {
			c.all.Add(f)
		}
	}

	for _, k := range c.screenKeys {
		screen := c.screens[k]
		group := c.groups[k]

		fb.ScreenName.Add(k, feedback.New(fmt.Sprintf("ScreenName-%d", k), feedback.Func(func() string {
			return screen.Name
		})))
		fb.ScreenEnable.Add(k, feedback.New(fmt.Sprintf("ScreenEnable-%d", k), feedback.Func(func() bool {
			return screen.Enabled
		})))
		fb.LayoutNames.Add(k, feedback.New(fmt.Sprintf("LayoutNames-%d", k), feedback.Func(func() string {
			if item, ok := group.Item(group.CurrentItem()); ok {
				return item.Name()
			}
			return ""
		})))
	}
	for _, k := range c.screenKeys {
		f1, _ := fb.ScreenName.Get(k)
		f2, _ := fb.ScreenEnable.Get(k)
		f3, _ := fb.LayoutNames.Get(k)
		c.all.Add(f1, f2, f3)
	}
}

// routeName returns the name of the input routed to out, or the no-route text.
func (c *Controller) routeName(out routing.OutputSlot) string {
	in := out.Route(routing.Video)
	if routing.IsClear(in) {
		return c.noRouteText()
	}
	return in.Name()
}
