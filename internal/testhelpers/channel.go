package testhelpers

import (
	"testing"
	"time"
)

// ChanRecv waits up to timeout for a value on ch and fails the test if none
// arrives.
func ChanRecv[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("no value received within %s", timeout)
		var zero T
		return zero
	}
}

// ChanDiscard consumes a channel and discards all values.
func ChanDiscard[T any](ch <-chan T) {
	go func() {
		for range ch {
			// no-op
		}
	}()
}
