package routing

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/phinze/wallpanel/internal/feedback"
	"github.com/phinze/wallpanel/internal/processor"
)

// MatrixInput is an input slot backed by a processor input.
type MatrixInput struct {
	key           string
	in            processor.Input
	supportsHDCP2 bool

	// IsOnlineFeedback tracks the online state of the input.
	IsOnlineFeedback *feedback.Bool

	mu            sync.Mutex
	syncDetected  bool
	syncObservers []func(InputSlot, bool)
}

var _ InputSlot = (*MatrixInput)(nil)

// NewMatrixInput creates an input slot for in and subscribes it to p's events.
func NewMatrixInput(p processor.Processor, in processor.Input, key string, supportsHDCP2 bool) *MatrixInput {
	m := &MatrixInput{
		key:              key,
		in:               in,
		supportsHDCP2:    supportsHDCP2,
		IsOnlineFeedback: feedback.New(key+"-online", feedback.Func(in.IsOnline)),
		syncDetected:     in.SyncDetected(),
	}

	p.Subscribe(processor.EventOnlineStatus, func(processor.Event) {
		m.IsOnlineFeedback.FireUpdate()
	})
	p.Subscribe(processor.EventVideoSync, func(evt processor.Event) {
		if evt.Number != in.Number() {
			return
		}
		m.updateSync()
	})

	return m
}

func (m *MatrixInput) updateSync() {
	detected := m.in.SyncDetected()

	m.mu.Lock()
	if m.syncDetected == detected {
		m.mu.Unlock()
		return
	}
	m.syncDetected = detected
	observers := m.syncObservers
	m.mu.Unlock()

	for _, fn := range observers {
		fn(m, detected)
	}
}

// Key returns the slot key.
func (m *MatrixInput) Key() string { return m.key }

// Name returns the input's current name.
func (m *MatrixInput) Name() string { return m.in.Name() }

// SlotNumber returns the processor input number.
func (m *MatrixInput) SlotNumber() uint { return m.in.Number() }

// SupportedSignalTypes returns the signals the input carries.
func (m *MatrixInput) SupportedSignalTypes() SignalType { return AudioVideo | SecondaryAudio }

// SupportsHDCP2 reports whether the input slot accepts HDCP 2.x sources.
func (m *MatrixInput) SupportsHDCP2() bool { return m.supportsHDCP2 }

// IsOnline reports whether the input is reachable.
func (m *MatrixInput) IsOnline() bool { return m.in.IsOnline() }

// VideoSyncDetected reports whether the input currently detects a source.
func (m *MatrixInput) VideoSyncDetected() bool { return m.in.SyncDetected() }

// OnVideoSyncChanged registers fn to be called when sync detection changes.
func (m *MatrixInput) OnVideoSyncChanged(fn func(InputSlot, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncObservers = append(m.syncObservers, fn)
}

// MatrixOutput is an output slot backed by a processor window.
type MatrixOutput struct {
	p       processor.Processor
	number  uint
	key     string
	name    string
	resolve Resolver
	logger  *slog.Logger

	mu        sync.Mutex
	routes    map[SignalType]InputSlot
	observers []func(OutputSlot)
}

var _ OutputSlot = (*MatrixOutput)(nil)

// NewMatrixOutput creates an output slot for window number of p. Inputs
// reported by the processor are mapped to slots with resolve.
func NewMatrixOutput(p processor.Processor, number uint, key, name string, resolve Resolver, logger *slog.Logger) *MatrixOutput {
	o := &MatrixOutput{
		p:       p,
		number:  number,
		key:     key,
		name:    name,
		resolve: resolve,
		logger:  logger.With("component", "output", "slot", key),
		routes: map[SignalType]InputSlot{
			Audio:     ClearInput,
			Video:     ClearInput,
			UsbInput:  ClearInput,
			UsbOutput: ClearInput,
		},
	}

	p.Subscribe(processor.EventVideoRoute, func(evt processor.Event) {
		if evt.Number == number {
			o.refresh(Video)
		}
	})
	// Audio is a single selection for the whole output, so audio events
	// carry no window number. In auto mode the processor raises one when
	// window 1 changes source.
	p.Subscribe(processor.EventAudioRoute, func(evt processor.Event) {
		if evt.Number != 0 && evt.Number != number {
			return
		}
		o.refresh(Audio)
	})

	o.pull(Video)
	o.pull(Audio)

	return o
}

// refresh re-reads one route and notifies observers.
func (o *MatrixOutput) refresh(sig SignalType) {
	o.pull(sig)

	o.mu.Lock()
	observers := o.observers
	o.mu.Unlock()

	for _, fn := range observers {
		fn(o)
	}
}

func (o *MatrixOutput) pull(sig SignalType) {
	var (
		n   uint
		err error
	)
	switch sig {
	case Video:
		var src processor.VideoSource
		src, err = o.p.VideoSourceFeedback(o.number)
		n = uint(src)
	case Audio:
		n, err = o.audioInput()
	default:
		return
	}
	if err != nil {
		o.logger.Warn("Unable to read route", "signal", sig, "err", err)
		return
	}

	slot := o.resolve(n)
	if slot == nil {
		slot = ClearInput
	}

	o.mu.Lock()
	o.routes[sig] = slot
	o.mu.Unlock()
}

func (o *MatrixOutput) audioInput() (uint, error) {
	src, err := o.p.AudioSourceFeedback()
	if err != nil {
		return 0, err
	}
	if src != processor.AudioSourceAuto {
		return uint(src), nil
	}
	video, err := o.p.VideoSourceFeedback(1)
	return uint(video), err
}

// Key returns the slot key.
func (o *MatrixOutput) Key() string { return o.key }

// Name returns the window name.
func (o *MatrixOutput) Name() string { return o.name }

// SlotNumber returns the window number.
func (o *MatrixOutput) SlotNumber() uint { return o.number }

// SupportedSignalTypes returns the signals the output accepts.
func (o *MatrixOutput) SupportedSignalTypes() SignalType { return AudioVideo }

// CurrentRoutes returns a copy of the routes per signal type.
func (o *MatrixOutput) CurrentRoutes() map[SignalType]InputSlot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return maps.Clone(o.routes)
}

// Route returns the input feeding the slot for sig, or ClearInput.
func (o *MatrixOutput) Route(sig SignalType) InputSlot {
	o.mu.Lock()
	defer o.mu.Unlock()

	if slot, ok := o.routes[sig]; ok {
		return slot
	}
	return ClearInput
}

// OnOutputSlotChanged registers fn to be called after a route is refreshed.
func (o *MatrixOutput) OnOutputSlotChanged(fn func(OutputSlot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}
