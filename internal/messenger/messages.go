package messenger

import "github.com/phinze/wallpanel/internal/selectable"

// Message types pushed to websocket clients.
const (
	MessageTypeFullStatus   = "fullStatus"
	MessageTypeRouteChanged = "routeChanged"
	MessageTypePanel        = "panel"
)

// Message is a websocket message.
type Message struct {
	Type    string `json:"type"`
	Device  string `json:"device"`
	Content any    `json:"content"`
}

// RouteChange is the content of a routeChanged message.
type RouteChange struct {
	Output     uint   `json:"output"`
	Input      uint   `json:"input"`
	SignalType string `json:"signalType"`
}

// PanelStatus is the content of a panel message, sent to every client
// when the control panel comes or goes.
type PanelStatus struct {
	Attached bool   `json:"attached"`
	Model    string `json:"model,omitempty"`
}

// ScreenSelection is the selection state of one screen.
type ScreenSelection struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Items       []ItemStatus `json:"items"`
	CurrentItem string       `json:"currentItem"`
}

// ItemStatus is one selectable layout.
type ItemStatus struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	ID         int    `json:"id"`
	IsSelected bool   `json:"isSelected"`
}

// SelectRequest is the body of a select request.
type SelectRequest struct {
	Key string `json:"key"`
}

// LayoutRequest is the body of a layout request.
type LayoutRequest struct {
	Layout int `json:"layout"`
}

// RouteRequest is the body of a route request. An empty SignalType routes
// audio and video.
type RouteRequest struct {
	Input      uint   `json:"input"`
	Output     uint   `json:"output"`
	SignalType string `json:"signalType,omitempty"`
}

// ErrorResponse is returned with every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func screenSelectionFromGroup(g *selectable.Group) ScreenSelection {
	sel := ScreenSelection{
		Key:         g.Key(),
		Name:        g.Name(),
		Items:       []ItemStatus{},
		CurrentItem: g.CurrentItem(),
	}
	for _, item := range g.Items() {
		sel.Items = append(sel.Items, ItemStatus{
			Key:        item.Key(),
			Name:       item.Name(),
			ID:         item.ID(),
			IsSelected: item.IsSelected(),
		})
	}
	return sel
}
