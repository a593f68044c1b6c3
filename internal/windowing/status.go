package windowing

import (
	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/feedback"
	"github.com/phinze/wallpanel/internal/processor"
)

// Status is a point-in-time view of the controller, as served to
// messengers on a full status request.
type Status struct {
	Key           string                     `json:"key"`
	Name          string                     `json:"name"`
	State         string                     `json:"state"`
	IsOnline      bool                       `json:"isOnline"`
	Layout        int                        `json:"layout"`
	CurrentLayout string                     `json:"currentLayout,omitempty"`
	Screens       map[uint]config.ScreenInfo `json:"screens"`
	Selections    map[uint]string            `json:"selections,omitempty"`
	Windows       []WindowStatus             `json:"windows,omitempty"`
	Inputs        []InputStatus              `json:"inputs,omitempty"`
}

// WindowStatus describes one window.
type WindowStatus struct {
	Number     uint   `json:"number"`
	Name       string `json:"name"`
	VideoInput uint   `json:"videoInput"`
	VideoName  string `json:"videoName"`
	AudioInput uint   `json:"audioInput"`
}

// InputStatus describes one input.
type InputStatus struct {
	Number       uint   `json:"number"`
	Key          string `json:"key"`
	Name         string `json:"name"`
	SyncDetected bool   `json:"syncDetected"`
	IsOnline     bool   `json:"isOnline"`
}

// Snapshot returns the controller's current status, read from its feedback
// caches without asking the processor: values are those of the last
// refresh, or zero values if that refresh failed. Screens is always a copy
// of the configured catalog; an unconfigured controller reports only its
// identity and state.
func (c *Controller) Snapshot() Status {
	st := Status{
		Key:     c.key,
		Name:    c.name,
		State:   c.State().String(),
		Screens: c.Screens(),
	}
	if st.Screens == nil {
		st.Screens = map[uint]config.ScreenInfo{}
	}
	if c.State() == StateUnconfigured {
		return st
	}

	fb := &c.feedbacks
	st.IsOnline = fb.IsOnline.Get()
	st.Layout = fb.CurrentLayout.Get()
	if fb.CurrentLayout.Err() == nil {
		st.CurrentLayout = LayoutName(st.Layout)
	}

	st.Selections = make(map[uint]string, len(c.screenKeys))
	for _, k := range c.screenKeys {
		st.Selections[k] = c.groups[k].CurrentItem()
	}

	for _, out := range c.outputs {
		w := out.SlotNumber()
		st.Windows = append(st.Windows, WindowStatus{
			Number:     w,
			Name:       get(fb.WindowName, w),
			VideoInput: uint(max(get(fb.WindowRoute, w), 0)),
			VideoName:  get(fb.WindowRouteName, w),
			AudioInput: uint(max(get(fb.AudioRoute, w), 0)),
		})
	}

	for _, in := range c.inputs {
		n := in.SlotNumber()
		st.Inputs = append(st.Inputs, InputStatus{
			Number:       n,
			Key:          in.Key(),
			Name:         get(fb.InputName, n),
			SyncDetected: get(fb.VideoSync, n),
			IsOnline:     in.IsOnlineFeedback.Get(),
		})
	}

	return st
}

// get returns the cached value of entry n of coll, or the zero value.
func get[T comparable](coll *feedback.Collection[T], n uint) T {
	if f, ok := coll.Get(n); ok {
		return f.Get()
	}
	var zero T
	return zero
}

// LayoutName returns the display name of a layout value.
func LayoutName(layout int) string {
	if layout < 0 || !processor.LayoutType(layout).Valid() {
		return ""
	}
	return processor.LayoutType(layout).String()
}
