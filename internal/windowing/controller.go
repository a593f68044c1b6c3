// Package windowing controls a multi-window video processor: it exposes the
// configured screens and their layouts as selectable groups, keeps a set of
// status feedbacks in sync with the hardware, and issues layout and routing
// commands.
package windowing

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/phinze/wallpanel/internal/config"
	"github.com/phinze/wallpanel/internal/feedback"
	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/routing"
	"github.com/phinze/wallpanel/internal/selectable"
)

var (
	// ErrUnconfigured is returned by every command of an unconfigured controller.
	ErrUnconfigured = errors.New("windowing: controller is not configured")
	// ErrInvalidLayout is returned for layout values outside 0 to processor.MaxLayout.
	ErrInvalidLayout = errors.New("windowing: invalid layout value")
	// ErrInvalidSwitch is returned for switch requests that name no valid output or input.
	ErrInvalidSwitch = errors.New("windowing: invalid switch")

	errNoScreens = errors.New("no screens configured")
)

// State is the controller's lifecycle state.
type State int

const (
	// StateUnconfigured is terminal: the configuration was absent or invalid.
	StateUnconfigured State = iota
	StateOffline
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateOffline:
		return "offline"
	case StateOnline:
		return "online"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const defaultNoRouteText = "None"

// SwitchChange describes a route change reported by the processor.
type SwitchChange struct {
	Output uint
	Input  uint
	Signal routing.SignalType
}

// Params holds the parameters for New.
type Params struct {
	Key        string
	Name       string
	Processor  processor.Processor
	Properties *config.Properties
	Logger     *slog.Logger
}

// Controller is the layout and routing controller of one processor.
type Controller struct {
	key       string
	name      string
	p         processor.Processor
	props     *config.Properties
	logger    *slog.Logger
	configErr error

	// Built once in New and not modified afterwards.
	screens    map[uint]config.ScreenInfo
	screenKeys []uint
	groups     map[uint]*selectable.Group
	inputs     []*routing.MatrixInput
	outputs    []*routing.MatrixOutput
	feedbacks  Feedbacks
	all        feedback.List

	mu              sync.Mutex
	state           State
	windowLabels    map[uint]string
	switchObservers []func(SwitchChange)
	statusObservers []func()
}

// New creates a controller. A nil or invalid configuration is logged once
// and leaves the controller in StateUnconfigured, in which it registers no
// feedbacks and issues no commands.
func New(params Params) *Controller {
	c := &Controller{
		key:          cmp.Or(params.Key, "windowProc"),
		name:         params.Name,
		p:            params.Processor,
		props:        params.Properties,
		groups:       make(map[uint]*selectable.Group),
		windowLabels: make(map[uint]string),
		feedbacks:    newFeedbacks(),
	}
	c.name = cmp.Or(c.name, c.key)
	c.logger = cmp.Or(params.Logger, slog.Default()).With("component", "windowing", "device", c.key)

	if err := c.checkConfig(); err != nil {
		c.configErr = err
		c.state = StateUnconfigured
		c.logger.Error("Configuration error, controller disabled", "err", err)
		return c
	}

	c.screens = config.CloneScreens(c.props.Screens)
	c.screenKeys = config.SortedKeys(c.screens)

	c.buildInputs()
	c.buildOutputs()
	c.buildScreens()
	c.buildFeedbacks()
	c.subscribe()

	if c.p.IsOnline() {
		c.state = StateOnline
	} else {
		c.state = StateOffline
	}
	c.syncLayoutSelection()

	c.logger.Info(
		"Controller ready",
		"model", c.p.Model(),
		"state", c.state,
		"inputs", len(c.inputs),
		"windows", len(c.outputs),
		"screens", len(c.screens),
		"feedbacks", c.all.Len(),
	)

	if c.state == StateOnline {
		_ = c.DefaultWindowRoutes()
	}

	return c
}

func (c *Controller) checkConfig() error {
	if c.p == nil {
		return errors.New("no processor")
	}
	if c.props == nil {
		return config.ErrNoProperties
	}
	if c.props.Screens == nil {
		return errNoScreens
	}
	return c.props.Validate()
}

func (c *Controller) buildInputs() {
	for n := uint(1); n <= c.p.InputCount(); n++ {
		in, err := c.p.Input(n)
		if err != nil {
			c.logger.Warn("Unable to set up input, skipping", "input", n, "err", err)
			continue
		}

		if err := in.SetName(c.inputName(n)); err != nil {
			c.logger.Warn("Unable to set input name", "input", n, "err", err)
		}

		key := cmp.Or(c.props.InputSlots[n], fmt.Sprintf("%s-input-%d", c.key, n))
		slot := routing.NewMatrixInput(c.p, in, key, c.props.InputSlotSupportsHDCP2[n])
		slot.OnVideoSyncChanged(func(s routing.InputSlot, detected bool) {
			c.logger.Debug("Video sync changed", "input", s.SlotNumber(), "detected", detected)
		})
		c.inputs = append(c.inputs, slot)
	}
}

func (c *Controller) buildOutputs() {
	for w := uint(1); w <= c.p.WindowCount(); w++ {
		key := cmp.Or(c.props.OutputSlots[w], fmt.Sprintf("%s-output-%d", c.key, w))
		c.outputs = append(c.outputs, routing.NewMatrixOutput(c.p, w, key, c.outputName(w), c.InputSlot, c.logger))
	}
}

func (c *Controller) buildScreens() {
	for _, screenKey := range c.screenKeys {
		screen := c.screens[screenKey]

		group := selectable.NewGroup(fmt.Sprintf("%s-screen-%d", c.key, screenKey), screen.Name, c.layoutAction(screen))

		items := make([]*selectable.Item, 0, len(screen.Layouts))
		for _, layoutKey := range config.SortedKeys(screen.Layouts) {
			layout := screen.Layouts[layoutKey]
			items = append(items, selectable.NewItem(strconv.FormatUint(uint64(layoutKey), 10), layout.LayoutName, layout.Index()))
		}
		group.SetItems(items)

		group.OnCurrentItemChanged(func(g *selectable.Group) {
			c.logger.Debug("Current layout changed", "screen", screenKey, "item", g.CurrentItem())
			c.feedbacks.LayoutNames.FireUpdate(screenKey)
			c.notifyStatus()
		})

		c.groups[screenKey] = group
	}
}

// layoutAction returns the selection action of a screen's layout group.
func (c *Controller) layoutAction(screen config.ScreenInfo) selectable.SelectFunc {
	return func(item *selectable.Item) error {
		var windows map[uint]config.WindowConfig
		if layoutKey, err := strconv.ParseUint(item.Key(), 10, 0); err == nil {
			windows = screen.Layouts[uint(layoutKey)].Windows
		}
		return c.applyLayout(item.ID(), windows)
	}
}

func (c *Controller) inputName(n uint) string {
	if name := c.props.InputNames[n]; name != "" {
		return name
	}
	return fmt.Sprintf("Input%d", n)
}

func (c *Controller) outputName(w uint) string {
	if name := c.props.OutputNames[w]; name != "" {
		return name
	}
	return fmt.Sprintf("Window%d", w)
}

func (c *Controller) noRouteText() string {
	return cmp.Or(c.props.NoRouteText, defaultNoRouteText)
}

// Key returns the device key.
func (c *Controller) Key() string { return c.key }

// Name returns the device display name.
func (c *Controller) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsOnline reports whether the controller is in StateOnline.
func (c *Controller) IsOnline() bool {
	return c.State() == StateOnline
}

// ConfigErr returns the configuration error that left the controller
// unconfigured, or nil.
func (c *Controller) ConfigErr() error {
	return c.configErr
}

// Feedbacks returns the controller's feedbacks. In StateUnconfigured all
// collections are empty and the single-value feedbacks are nil.
func (c *Controller) Feedbacks() *Feedbacks {
	return &c.feedbacks
}

// FeedbackKeys returns the names of all registered feedbacks, in
// registration order.
func (c *Controller) FeedbackKeys() []string {
	return c.all.Keys()
}

// Screens returns a copy of the screen catalog.
func (c *Controller) Screens() map[uint]config.ScreenInfo {
	return config.CloneScreens(c.screens)
}

// ScreenKeys returns the configured screen numbers in ascending order.
func (c *Controller) ScreenKeys() []uint {
	return append([]uint(nil), c.screenKeys...)
}

// Group returns the layout group of a screen.
func (c *Controller) Group(screen uint) (*selectable.Group, bool) {
	g, ok := c.groups[screen]
	return g, ok
}

// Groups returns the layout groups in screen order.
func (c *Controller) Groups() []*selectable.Group {
	out := make([]*selectable.Group, 0, len(c.screenKeys))
	for _, k := range c.screenKeys {
		out = append(out, c.groups[k])
	}
	return out
}

// InputSlot returns the input slot with the given number, or
// routing.ClearInput for 0 and unknown numbers.
func (c *Controller) InputSlot(n uint) routing.InputSlot {
	for _, in := range c.inputs {
		if in.SlotNumber() == n {
			return in
		}
	}
	return routing.ClearInput
}

// InputSlots returns the input slots that were set up, in input order.
func (c *Controller) InputSlots() []routing.InputSlot {
	out := make([]routing.InputSlot, 0, len(c.inputs))
	for _, in := range c.inputs {
		out = append(out, in)
	}
	return out
}

// OutputSlot returns the output slot of window w.
func (c *Controller) OutputSlot(w uint) (routing.OutputSlot, bool) {
	for _, out := range c.outputs {
		if out.SlotNumber() == w {
			return out, true
		}
	}
	return nil, false
}

// OutputSlots returns the output slots in window order.
func (c *Controller) OutputSlots() []routing.OutputSlot {
	out := make([]routing.OutputSlot, 0, len(c.outputs))
	for _, o := range c.outputs {
		out = append(out, o)
	}
	return out
}

// WindowName returns the current name of window w: the label of the last
// selected layout if it set one, else the configured output name.
func (c *Controller) WindowName(w uint) string {
	c.mu.Lock()
	label := c.windowLabels[w]
	c.mu.Unlock()

	if label != "" {
		return label
	}
	if c.props == nil {
		return fmt.Sprintf("Window%d", w)
	}
	return c.outputName(w)
}

// OnNumericSwitchChange registers fn to be called for each route change
// reported by the processor.
func (c *Controller) OnNumericSwitchChange(fn func(SwitchChange)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchObservers = append(c.switchObservers, fn)
}

// OnStatusChanged registers fn to be called after any change visible in
// the controller's status.
func (c *Controller) OnStatusChanged(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusObservers = append(c.statusObservers, fn)
}

func (c *Controller) notifyStatus() {
	c.mu.Lock()
	observers := c.statusObservers
	c.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

func (c *Controller) notifySwitch(change SwitchChange) {
	c.mu.Lock()
	observers := c.switchObservers
	c.mu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
}

// ResyncAll refreshes every feedback from the processor. Failing feedbacks
// are logged and left at their zero value.
func (c *Controller) ResyncAll() {
	if err := c.all.RefreshAll(); err != nil {
		c.logger.Warn("Feedback refresh failed", "err", err)
	}
}
