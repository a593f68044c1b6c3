package feedback

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Updater is the value-independent view of a Feedback.
type Updater interface {
	Key() string
	Refresh() error
	Invalidate()
}

// List is an ordered set of feedbacks that are refreshed together. Adding a
// feedback that is already present is a no-op.
type List struct {
	mu    sync.Mutex
	items []Updater
}

// Add appends feedbacks not already in the list.
func (l *List) Add(fbs ...Updater) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range fbs {
		if f == nil || slices.Contains(l.items, f) {
			continue
		}
		l.items = append(l.items, f)
	}
}

// Len returns the number of feedbacks in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Keys returns the feedback names in list order.
func (l *List) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.items))
	for _, f := range l.items {
		keys = append(keys, f.Key())
	}
	return keys
}

// RefreshAll refreshes every feedback in list order. A failing feedback does
// not stop the others; all failures are returned joined.
func (l *List) RefreshAll() error {
	l.mu.Lock()
	items := slices.Clone(l.items)
	l.mu.Unlock()

	var errs []error
	for _, f := range items {
		if err := f.Refresh(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// InvalidateAll marks every feedback in the list stale.
func (l *List) InvalidateAll() {
	l.mu.Lock()
	items := slices.Clone(l.items)
	l.mu.Unlock()

	for _, f := range items {
		f.Invalidate()
	}
}

// Collection holds same-typed feedbacks indexed by number (input, window or
// screen), in insertion order. A Collection is filled during construction
// and only read afterwards.
type Collection[T comparable] struct {
	order []uint
	byNum map[uint]*Feedback[T]
}

// NewCollection creates an empty collection.
func NewCollection[T comparable]() *Collection[T] {
	return &Collection[T]{byNum: make(map[uint]*Feedback[T])}
}

// Add stores f under number n, replacing any previous entry.
func (c *Collection[T]) Add(n uint, f *Feedback[T]) {
	if _, ok := c.byNum[n]; !ok {
		c.order = append(c.order, n)
	}
	c.byNum[n] = f
}

// Get returns the feedback stored under n.
func (c *Collection[T]) Get(n uint) (*Feedback[T], bool) {
	f, ok := c.byNum[n]
	return f, ok
}

// FireUpdate refreshes the feedback stored under n, if any.
func (c *Collection[T]) FireUpdate(n uint) {
	if f, ok := c.byNum[n]; ok {
		f.FireUpdate()
	}
}

// All returns the feedbacks in insertion order.
func (c *Collection[T]) All() []*Feedback[T] {
	out := make([]*Feedback[T], 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.byNum[n])
	}
	return out
}

// Len returns the number of feedbacks.
func (c *Collection[T]) Len() int {
	return len(c.order)
}
