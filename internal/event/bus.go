// Package event provides an in-process publish/subscribe bus.
package event

import (
	"log/slog"
	"slices"
	"sync"
)

const defaultChannelSize = 64

// Bus is an event bus.
type Bus struct {
	consumers []chan Event
	mu        sync.Mutex
	logger    *slog.Logger
}

// NewBus returns a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger.With("component", "bus")}
}

// Register registers a consumer for all events.
func (b *Bus) Register() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, defaultChannelSize)
	b.consumers = append(b.consumers, ch)
	return ch
}

// Deregister removes a consumer and closes its channel.
func (b *Bus) Deregister(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consumers = slices.DeleteFunc(b.consumers, func(other chan Event) bool {
		if (<-chan Event)(other) == ch {
			close(other)
			return true
		}
		return false
	})
}

// Send sends an event to all registered consumers. A consumer whose buffer
// is full misses the event.
func (b *Bus) Send(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.consumers {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("Event dropped", "name", evt.name())
		}
	}
}
