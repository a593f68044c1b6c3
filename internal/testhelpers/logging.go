// Package testhelpers contains helpers shared by package tests.
package testhelpers

import (
	"log/slog"
	"os"
	"testing"
)

// NewNopLogger returns a logger that discards all log output.
func NewNopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewTestLogger returns a logger that writes to the test's output, so log
// lines show up next to the failing test.
func NewTestLogger(t testing.TB) *slog.Logger {
	var handlerOpts slog.HandlerOptions
	if os.Getenv("DEBUG") != "" {
		handlerOpts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(t.Output(), &handlerOpts))
}
