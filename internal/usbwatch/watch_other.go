//go:build !darwin

package usbwatch

import "context"

func start(_ context.Context, a *arrivals) {
	a.logger.Debug("USB arrival watching not supported on this platform")
}
