// Package emulator provides an in-memory four-window processor. It keeps the
// state a real unit would report, records every command it receives, and
// raises the same events a real unit raises when its state changes.
package emulator

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/phinze/wallpanel/internal/processor"
)

const (
	inputCount  = 4
	windowCount = 4
)

// ErrOffline is returned for commands sent while the emulated unit is offline.
var ErrOffline = errors.New("emulator: processor is offline")

// Command is one command received by the emulator.
type Command struct {
	Op     string
	Window uint
	Value  uint
}

// Command ops.
const (
	OpSetVideoSource = "SetVideoSource"
	OpSetAudioSource = "SetAudioSource"
	OpRecallLayout   = "RecallLayout"
)

func (c Command) String() string {
	if c.Op == OpSetVideoSource {
		return fmt.Sprintf("%s(%d, %d)", c.Op, c.Window, c.Value)
	}
	return fmt.Sprintf("%s(%d)", c.Op, c.Value)
}

// Option configures a Processor.
type Option func(*Processor)

// WithOnline sets the initial online state. Processors start online.
func WithOnline(online bool) Option {
	return func(p *Processor) { p.online = online }
}

// Processor is an emulated windowing processor.
type Processor struct {
	processor.Dispatcher

	mu          sync.Mutex
	online      bool
	inputs      []*input
	video       [windowCount]processor.VideoSource
	audio       processor.AudioSource
	layout      processor.LayoutType
	commands    []Command
	inputErrs   map[uint]error
	feedbackErr error
}

var _ processor.Processor = (*Processor)(nil)

// New creates an emulated processor with four inputs and four windows.
func New(opts ...Option) *Processor {
	p := &Processor{
		online:    true,
		layout:    processor.LayoutAutomatic,
		inputErrs: make(map[uint]error),
	}
	for n := uint(1); n <= inputCount; n++ {
		p.inputs = append(p.inputs, &input{p: p, number: n, name: fmt.Sprintf("Input %d", n)})
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the emulated model name.
func (p *Processor) Model() string {
	return "HD-WP-4K-401-C (Emulator)"
}

// IsOnline reports whether the emulated unit is online.
func (p *Processor) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// InputCount returns the number of inputs.
func (p *Processor) InputCount() uint { return inputCount }

// WindowCount returns the number of windows.
func (p *Processor) WindowCount() uint { return windowCount }

// Input returns input n, or the error set with FailInput.
func (p *Processor) Input(n uint) (processor.Input, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.inputErrs[n]; err != nil {
		return nil, err
	}
	if n < 1 || n > inputCount {
		return nil, fmt.Errorf("emulator: no input %d", n)
	}
	return p.inputs[n-1], nil
}

// SetVideoSource routes src to window.
func (p *Processor) SetVideoSource(window uint, src processor.VideoSource) error {
	if window < 1 || window > windowCount {
		return fmt.Errorf("emulator: no window %d", window)
	}
	if src > processor.VideoSourceInput4 {
		return fmt.Errorf("emulator: invalid video source %d", src)
	}

	p.mu.Lock()
	p.commands = append(p.commands, Command{Op: OpSetVideoSource, Window: window, Value: uint(src)})
	if !p.online {
		p.mu.Unlock()
		return ErrOffline
	}
	changed := p.video[window-1] != src
	p.video[window-1] = src
	audioFollows := window == 1 && p.audio == processor.AudioSourceAuto
	p.mu.Unlock()

	if changed {
		p.Dispatch(processor.Event{Kind: processor.EventVideoRoute, Number: window})
		if audioFollows {
			p.Dispatch(processor.Event{Kind: processor.EventAudioRoute})
		}
	}
	return nil
}

// SetAudioSource selects the audio source.
func (p *Processor) SetAudioSource(src processor.AudioSource) error {
	if src > processor.AudioSourceAuto {
		return fmt.Errorf("emulator: invalid audio source %d", src)
	}

	p.mu.Lock()
	p.commands = append(p.commands, Command{Op: OpSetAudioSource, Value: uint(src)})
	if !p.online {
		p.mu.Unlock()
		return ErrOffline
	}
	changed := p.audio != src
	p.audio = src
	p.mu.Unlock()

	if changed {
		p.Dispatch(processor.Event{Kind: processor.EventAudioRoute})
	}
	return nil
}

// RecallLayout switches the window arrangement.
func (p *Processor) RecallLayout(layout processor.LayoutType) error {
	if !layout.Valid() {
		return fmt.Errorf("emulator: invalid layout %d", layout)
	}

	p.mu.Lock()
	p.commands = append(p.commands, Command{Op: OpRecallLayout, Value: uint(layout)})
	if !p.online {
		p.mu.Unlock()
		return ErrOffline
	}
	changed := p.layout != layout
	p.layout = layout
	p.mu.Unlock()

	if changed {
		p.Dispatch(processor.Event{Kind: processor.EventLayout})
	}
	return nil
}

// VideoSourceFeedback returns the source routed to window.
func (p *Processor) VideoSourceFeedback(window uint) (processor.VideoSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.feedbackErr != nil {
		return processor.VideoSourceNone, p.feedbackErr
	}
	if window < 1 || window > windowCount {
		return processor.VideoSourceNone, fmt.Errorf("emulator: no window %d", window)
	}
	return p.video[window-1], nil
}

// AudioSourceFeedback returns the selected audio source.
func (p *Processor) AudioSourceFeedback() (processor.AudioSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.feedbackErr != nil {
		return processor.AudioSourceNone, p.feedbackErr
	}
	return p.audio, nil
}

// LayoutFeedback returns the active layout.
func (p *Processor) LayoutFeedback() (processor.LayoutType, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.feedbackErr != nil {
		return processor.LayoutAutomatic, p.feedbackErr
	}
	return p.layout, nil
}

// Commands returns the commands received so far, oldest first.
func (p *Processor) Commands() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.commands)
}

// ResetCommands forgets the recorded commands.
func (p *Processor) ResetCommands() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = nil
}

// SetOnline simulates the unit connecting or disconnecting.
func (p *Processor) SetOnline(online bool) {
	p.mu.Lock()
	changed := p.online != online
	p.online = online
	p.mu.Unlock()

	if changed {
		p.Dispatch(processor.Event{Kind: processor.EventOnlineStatus, Online: online})
	}
}

// SetSync simulates a source being plugged into or removed from input n.
func (p *Processor) SetSync(n uint, detected bool) {
	if n < 1 || n > inputCount {
		return
	}

	p.mu.Lock()
	in := p.inputs[n-1]
	changed := in.sync != detected
	in.sync = detected
	p.mu.Unlock()

	if changed {
		p.Dispatch(processor.Event{Kind: processor.EventVideoSync, Number: n})
	}
}

// SetInputName simulates input n being renamed on the unit.
func (p *Processor) SetInputName(n uint, name string) {
	if n < 1 || n > inputCount {
		return
	}
	p.inputs[n-1].SetName(name) //nolint:errcheck
}

// RecallLayoutLocally simulates a layout change made at the unit's front panel.
func (p *Processor) RecallLayoutLocally(layout processor.LayoutType) {
	if !layout.Valid() {
		return
	}

	p.mu.Lock()
	changed := p.layout != layout
	p.layout = layout
	p.mu.Unlock()

	if changed {
		p.Dispatch(processor.Event{Kind: processor.EventLayout})
	}
}

// FailInput makes Input(n) return err. A nil err clears the failure.
func (p *Processor) FailInput(n uint, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		delete(p.inputErrs, n)
		return
	}
	p.inputErrs[n] = err
}

// FailFeedback makes every state getter return err. A nil err clears it.
func (p *Processor) FailFeedback(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedbackErr = err
}

type input struct {
	p      *Processor
	number uint
	name   string
	sync   bool
}

func (in *input) Number() uint { return in.number }

func (in *input) Name() string {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	return in.name
}

func (in *input) SetName(name string) error {
	in.p.mu.Lock()
	changed := in.name != name
	in.name = name
	in.p.mu.Unlock()

	if changed {
		in.p.Dispatch(processor.Event{Kind: processor.EventInputName, Number: in.number})
	}
	return nil
}

func (in *input) SyncDetected() bool {
	in.p.mu.Lock()
	defer in.p.mu.Unlock()
	return in.sync
}

func (in *input) IsOnline() bool {
	return in.p.IsOnline()
}
