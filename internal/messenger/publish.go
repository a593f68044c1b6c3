package messenger

import (
	"github.com/phinze/wallpanel/internal/event"
	"github.com/phinze/wallpanel/internal/windowing"
)

// Observable is a device whose changes can be published on the bus.
type Observable interface {
	Key() string
	OnStatusChanged(fn func())
	OnNumericSwitchChange(fn func(windowing.SwitchChange))
}

// Publish sends d's status and route changes to bus.
func Publish(bus *event.Bus, d Observable) {
	key := d.Key()
	d.OnStatusChanged(func() {
		bus.Send(event.StatusChangedEvent{Device: key})
	})
	d.OnNumericSwitchChange(func(sc windowing.SwitchChange) {
		bus.Send(event.RouteChangedEvent{
			Device: key,
			Output: sc.Output,
			Input:  sc.Input,
			Signal: sc.Signal,
		})
	})
}
