package windowing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/routing"
)

// SetWindowLayout recalls a layout by value (0 Automatic to 6
// ThreeSmallOneLarge) and then reapplies the default window routes. An
// out-of-range value is logged and nothing is sent.
func (c *Controller) SetWindowLayout(layout int) error {
	return c.applyLayout(layout, nil)
}

// applyLayout recalls layout and routes its windows: windows listed in
// windows get their configured input, the rest get their default input.
func (c *Controller) applyLayout(value int, windows map[uint]config.WindowConfig) error {
	if c.State() == StateUnconfigured {
		return ErrUnconfigured
	}

	if value < 0 || !processor.LayoutType(value).Valid() {
		c.logger.Warn("Invalid layout value", "value", value, "valid", fmt.Sprintf("0 - %d", processor.MaxLayout))
		return fmt.Errorf("%w %d: valid range is 0 - %d", ErrInvalidLayout, value, processor.MaxLayout)
	}

	layout := processor.LayoutType(value)
	c.logger.Debug("Setting window layout", "layout", layout)
	if err := c.p.RecallLayout(layout); err != nil {
		c.logger.Warn("Layout recall failed", "layout", layout, "err", err)
	}

	labels := make(map[uint]string, len(windows))
	for w, wc := range windows {
		if wc.Label != "" {
			labels[w] = wc.Label
		}
	}
	c.mu.Lock()
	c.windowLabels = labels
	c.mu.Unlock()
	for _, f := range c.feedbacks.WindowName.All() {
		f.FireUpdate()
	}

	c.applyRoutes(windows)
	c.syncLayoutSelection()
	c.notifyStatus()
	return nil
}

// DefaultWindowRoutes routes input N to window N for every window, with
// audio following the layout automatically.
func (c *Controller) DefaultWindowRoutes() error {
	if c.State() == StateUnconfigured {
		return ErrUnconfigured
	}
	c.applyRoutes(nil)
	return nil
}

func (c *Controller) applyRoutes(windows map[uint]config.WindowConfig) {
	for w := uint(1); w <= c.p.WindowCount(); w++ {
		src := processor.VideoSourceNone
		if w <= c.p.InputCount() {
			src = processor.VideoSource(w)
		}
		if wc, ok := windows[w]; ok && wc.Input != "" {
			if n, ok := c.resolveInput(wc.Input); ok {
				src = processor.VideoSource(n)
			} else {
				c.logger.Warn("Unknown window input, using default", "window", w, "input", wc.Input)
			}
		}

		if err := c.p.SetVideoSource(w, src); err != nil {
			c.logger.Warn("Unable to set window source", "window", w, "source", src, "err", err)
		}
	}

	if err := c.p.SetAudioSource(processor.AudioSourceAuto); err != nil {
		c.logger.Warn("Unable to set audio source", "err", err)
	}
}

// resolveInput maps an input reference to an input number. A reference is
// an input name, "Input{N}" or a bare number; "none" and "0" mean no input.
func (c *Controller) resolveInput(ref string) (uint, bool) {
	ref = strings.TrimSpace(ref)
	if strings.EqualFold(ref, routing.ClearInput.Key()) {
		return 0, true
	}

	for n := uint(1); n <= c.p.InputCount(); n++ {
		if strings.EqualFold(ref, c.inputName(n)) {
			return n, true
		}
	}

	numeric := ref
	if len(ref) > len("input") && strings.EqualFold(ref[:len("input")], "input") {
		numeric = ref[len("input"):]
	}
	n, err := strconv.ParseUint(numeric, 10, 0)
	if err != nil || uint(n) > c.p.InputCount() {
		return 0, false
	}
	return uint(n), true
}

// ExecuteSwitch routes input to output for each signal type in sig. A nil
// input or routing.ClearInput clears the route. Only video and audio are
// switchable; other signal types are skipped.
func (c *Controller) ExecuteSwitch(input routing.InputSlot, output routing.OutputSlot, sig routing.SignalType) error {
	if c.State() == StateUnconfigured {
		return ErrUnconfigured
	}
	if output == nil {
		c.logger.Warn("Unable to make switch", "reason", "no output")
		return fmt.Errorf("%w: no output", ErrInvalidSwitch)
	}

	var n uint
	if !routing.IsClear(input) {
		n = input.SlotNumber()
	}
	return c.switchNumbers(n, output.SlotNumber(), sig)
}

// ExecuteNumericSwitch is ExecuteSwitch with numbered ports. Input 0
// clears the route; output 0 is invalid.
func (c *Controller) ExecuteNumericSwitch(input, output uint, sig routing.SignalType) error {
	if c.State() == StateUnconfigured {
		return ErrUnconfigured
	}
	return c.switchNumbers(input, output, sig)
}

func (c *Controller) switchNumbers(input, window uint, sig routing.SignalType) error {
	if window == 0 || window > c.p.WindowCount() {
		c.logger.Warn("Unable to make switch", "output", window, "reason", "invalid output")
		return fmt.Errorf("%w: output %d", ErrInvalidSwitch, window)
	}
	if input > c.p.InputCount() {
		c.logger.Warn("Unable to make switch", "input", input, "reason", "invalid input")
		return fmt.Errorf("%w: input %d", ErrInvalidSwitch, input)
	}

	c.logger.Debug("Executing switch", "input", input, "output", window, "signal", sig)

	if sig.Has(routing.Video) {
		if err := c.p.SetVideoSource(window, processor.VideoSource(input)); err != nil {
			c.logger.Warn("Unable to set window source", "window", window, "input", input, "err", err)
		}
	}
	if sig.Has(routing.Audio) {
		if err := c.p.SetAudioSource(processor.AudioSource(input)); err != nil {
			c.logger.Warn("Unable to set audio source", "input", input, "err", err)
		}
	}
	return nil
}
