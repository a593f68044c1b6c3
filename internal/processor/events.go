package processor

import (
	"fmt"
	"sync"
)

// EventKind identifies what changed on the processor.
type EventKind uint8

const (
	// EventOnlineStatus is raised when the processor goes online or offline.
	EventOnlineStatus EventKind = iota + 1
	// EventVideoSync is raised when sync detection changes on input Number.
	EventVideoSync
	// EventInputName is raised when the name of input Number changes.
	EventInputName
	// EventVideoRoute is raised when the video source of window Number changes.
	EventVideoRoute
	// EventAudioRoute is raised when the audio source changes, including
	// when it is Auto and window 1 changes source.
	EventAudioRoute
	// EventLayout is raised when the active layout changes.
	EventLayout
)

func (k EventKind) String() string {
	switch k {
	case EventOnlineStatus:
		return "OnlineStatus"
	case EventVideoSync:
		return "VideoSync"
	case EventInputName:
		return "InputName"
	case EventVideoRoute:
		return "VideoRoute"
	case EventAudioRoute:
		return "AudioRoute"
	case EventLayout:
		return "Layout"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a change notification from a processor.
type Event struct {
	Kind EventKind
	// Number is the input or window the event refers to, or 0.
	Number uint
	// Online is set for EventOnlineStatus.
	Online bool
}

// Handler handles processor events.
type Handler func(evt Event)

// Dispatcher is a dispatch table of handlers keyed by event kind. The zero
// value is ready to use.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventKind][]Handler
}

// Subscribe registers fn for events of the given kind.
func (d *Dispatcher) Subscribe(kind EventKind, fn Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handlers == nil {
		d.handlers = make(map[EventKind][]Handler)
	}
	d.handlers[kind] = append(d.handlers[kind], fn)
}

// Dispatch calls every handler registered for evt.Kind, in registration
// order. It must not be called with locks held that handlers may need.
func (d *Dispatcher) Dispatch(evt Event) {
	d.mu.RLock()
	handlers := d.handlers[evt.Kind]
	d.mu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// HandlerCount returns the number of handlers registered for kind.
func (d *Dispatcher) HandlerCount(kind EventKind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind])
}
