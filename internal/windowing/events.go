package windowing

import (
	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/routing"
)

// subscribe registers the controller's processor event handlers. The slots
// built earlier have already subscribed, so their state is current by the
// time these handlers run.
func (c *Controller) subscribe() {
	c.p.Subscribe(processor.EventOnlineStatus, func(evt processor.Event) {
		c.handleOnlineStatus(evt.Online)
	})

	c.p.Subscribe(processor.EventVideoSync, func(evt processor.Event) {
		c.logger.Debug("Video sync event", "input", evt.Number)
		c.feedbacks.VideoSync.FireUpdate(evt.Number)
		c.feedbacks.AnyVideoSync.FireUpdate()
		c.notifyStatus()
	})

	c.p.Subscribe(processor.EventInputName, func(evt processor.Event) {
		c.feedbacks.InputName.FireUpdate(evt.Number)
		for _, f := range c.feedbacks.WindowRouteName.All() {
			f.FireUpdate()
		}
		c.notifyStatus()
	})

	c.p.Subscribe(processor.EventVideoRoute, func(evt processor.Event) {
		w := evt.Number
		c.logger.Debug("Window route event", "window", w)
		c.feedbacks.WindowRoute.FireUpdate(w)
		c.feedbacks.WindowRouteName.FireUpdate(w)

		if out, ok := c.OutputSlot(w); ok {
			c.notifySwitch(SwitchChange{
				Output: w,
				Input:  out.Route(routing.Video).SlotNumber(),
				Signal: routing.Video,
			})
		}
		c.notifyStatus()
	})

	c.p.Subscribe(processor.EventAudioRoute, func(processor.Event) {
		c.logger.Debug("Audio route event")
		for _, f := range c.feedbacks.AudioRoute.All() {
			f.FireUpdate()
		}
		for _, out := range c.outputs {
			c.notifySwitch(SwitchChange{
				Output: out.SlotNumber(),
				Input:  out.Route(routing.Audio).SlotNumber(),
				Signal: routing.Audio,
			})
		}
		c.notifyStatus()
	})

	c.p.Subscribe(processor.EventLayout, func(processor.Event) {
		c.logger.Debug("Window layout change event")
		c.feedbacks.CurrentLayout.FireUpdate()
		c.syncLayoutSelection()
		c.notifyStatus()
	})
}

// handleOnlineStatus drives the Offline/Online transitions. Coming online
// reapplies the default routes and refreshes every feedback; going offline
// only refreshes IsOnline.
func (c *Controller) handleOnlineStatus(online bool) {
	c.mu.Lock()
	prev := c.state
	if online {
		c.state = StateOnline
	} else {
		c.state = StateOffline
	}
	c.mu.Unlock()

	c.logger.Info("Online status changed", "online", online, "previous", prev)
	c.feedbacks.IsOnline.FireUpdate()

	if online && prev != StateOnline {
		c.applyRoutes(nil)
		c.ResyncAll()
		c.syncLayoutSelection()
	}
	c.notifyStatus()
}

// syncLayoutSelection marks, in every screen group, the item whose layout
// matches the processor's active layout. Groups without a matching item
// keep their current item.
func (c *Controller) syncLayoutSelection() {
	layout := c.feedbacks.CurrentLayout.Get()
	if err := c.feedbacks.CurrentLayout.Err(); err != nil {
		c.logger.Warn("Unable to read active layout", "err", err)
		return
	}

	for _, k := range c.screenKeys {
		group := c.groups[k]
		if item, ok := group.Item(group.CurrentItem()); ok && item.ID() == layout {
			continue
		}
		for _, item := range group.Items() {
			if item.ID() == layout {
				group.SetCurrent(item.Key())
				break
			}
		}
	}
}
