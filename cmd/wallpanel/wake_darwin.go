package main

import (
	"context"
	"log/slog"

	"github.com/prashantgupta24/mac-sleep-notifier/notifier"
)

// watchWake calls onWake each time the system wakes from sleep.
func watchWake(ctx context.Context, logger *slog.Logger, onWake func()) {
	activities := notifier.GetInstance().Start()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case activity, ok := <-activities:
				if !ok {
					return
				}
				if activity.Type == notifier.Awake {
					logger.Info("System wake detected")
					onWake()
				}
			}
		}
	}()
}
