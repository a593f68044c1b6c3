package event

import "github.com/phinze/wallpanel/internal/routing"

// Name identifies an event type.
type Name string

const (
	EventNameStatusChanged Name = "status_changed"
	EventNameRouteChanged  Name = "route_changed"
	EventNamePanelAttached Name = "panel_attached"
)

// Event represents something which happened in the application.
type Event interface {
	name() Name
}

// StatusChangedEvent is emitted when anything in a device's status
// snapshot may have changed.
type StatusChangedEvent struct {
	Device string
}

func (e StatusChangedEvent) name() Name {
	return EventNameStatusChanged
}

// RouteChangedEvent is emitted when the processor reports a new route for
// a window.
type RouteChangedEvent struct {
	Device string
	Output uint
	Input  uint
	Signal routing.SignalType
}

func (e RouteChangedEvent) name() Name {
	return EventNameRouteChanged
}

// PanelAttachedEvent is emitted when the control panel is connected or
// disconnected.
type PanelAttachedEvent struct {
	Attached bool
	Model    string
}

func (e PanelAttachedEvent) name() Name {
	return EventNamePanelAttached
}
