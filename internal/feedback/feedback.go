// Package feedback provides named, lazily computed status values that notify
// observers when they are refreshed.
//
// A Feedback pulls its value from a function, usually a hardware getter. The
// value is computed on the first Get after construction or Invalidate, and
// recomputed on every Refresh. Observers are called synchronously, in
// registration order, with the new value after every Refresh, whether or
// not the value changed. A lazy computation in Get does not notify.
package feedback

import (
	"sync"
)

// PullFunc computes the current value of a feedback.
type PullFunc[T comparable] func() (T, error)

// Func adapts a getter that cannot fail into a PullFunc.
func Func[T comparable](fn func() T) PullFunc[T] {
	return func() (T, error) { return fn(), nil }
}

// Feedback is a named, cached value of type T.
type Feedback[T comparable] struct {
	key  string
	pull PullFunc[T]

	mu        sync.Mutex
	value     T
	computed  bool
	err       error
	observers []func(T)
}

// Type aliases for the value kinds exposed by devices.
type (
	Bool   = Feedback[bool]
	Int    = Feedback[int]
	String = Feedback[string]
)

// New creates a feedback named key that pulls from fn.
func New[T comparable](key string, fn PullFunc[T]) *Feedback[T] {
	return &Feedback[T]{key: key, pull: fn}
}

// Key returns the feedback name.
func (f *Feedback[T]) Key() string {
	return f.key
}

// Get returns the cached value, computing it first if it is not valid.
func (f *Feedback[T]) Get() T {
	f.mu.Lock()
	if f.computed {
		defer f.mu.Unlock()
		return f.value
	}
	f.mu.Unlock()

	_ = f.Refresh()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err returns the error of the last pull, if any.
func (f *Feedback[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Invalidate marks the cached value stale. The next Get recomputes it.
func (f *Feedback[T]) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computed = false
}

// FireUpdate recomputes the value and notifies observers with it.
func (f *Feedback[T]) FireUpdate() {
	_ = f.Refresh()
}

// Refresh is FireUpdate returning the pull error. A failed pull stores the
// zero value of T. Before the first computation the previous value is the
// zero value of T.
func (f *Feedback[T]) Refresh() error {
	value, err := f.pull()
	if err != nil {
		var zero T
		value = zero
	}

	f.mu.Lock()
	f.value = value
	f.computed = true
	f.err = err
	observers := f.observers
	f.mu.Unlock()

	for _, fn := range observers {
		fn(value)
	}
	return err
}

// OnUpdate registers fn to be called with the new value after each refresh.
func (f *Feedback[T]) OnUpdate(fn func(T)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}
