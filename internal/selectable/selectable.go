// Package selectable models a set of mutually exclusive choices, such as the
// layouts a screen can show, that an external panel can list and select.
package selectable

import (
	"errors"
	"slices"
	"sync"
)

// ErrUnknownItem is returned when selecting a key the group does not hold.
var ErrUnknownItem = errors.New("unknown item")

// Item is one choice in a Group.
type Item struct {
	key  string
	name string
	id   int

	mu        sync.Mutex
	group     *Group
	selected  bool
	observers []func(*Item)
}

// NewItem creates an item. id is the value the group's selection action
// receives, for layouts the layout index.
func NewItem(key, name string, id int) *Item {
	return &Item{key: key, name: name, id: id}
}

// Key returns the item key, unique within its group.
func (i *Item) Key() string { return i.key }

// Name returns the display name.
func (i *Item) Name() string { return i.name }

// ID returns the item's action value.
func (i *Item) ID() int { return i.id }

// IsSelected reports whether the item is the group's current item.
func (i *Item) IsSelected() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.selected
}

// SetSelected updates the selection flag. Observers are notified only when
// the flag actually changes.
func (i *Item) SetSelected(v bool) {
	i.mu.Lock()
	if i.selected == v {
		i.mu.Unlock()
		return
	}
	i.selected = v
	observers := i.observers
	i.mu.Unlock()

	for _, fn := range observers {
		fn(i)
	}
}

// OnUpdated registers fn to be called after the item's selection flag changes.
func (i *Item) OnUpdated(fn func(*Item)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.observers = append(i.observers, fn)
}

// Select selects the item through its group.
func (i *Item) Select() error {
	i.mu.Lock()
	g := i.group
	i.mu.Unlock()

	if g == nil {
		return ErrUnknownItem
	}
	return g.Select(i.key)
}

// SelectFunc is the side effect of selecting an item. When it returns an
// error the group's selection is left unchanged.
type SelectFunc func(item *Item) error

// Group is an ordered set of items with at most one current item.
type Group struct {
	key  string
	name string

	onSelect SelectFunc

	mu               sync.Mutex
	items            []*Item
	current          string
	currentObservers []func(*Group)
	itemsObservers   []func(*Group)
}

// NewGroup creates an empty group whose selections invoke onSelect.
func NewGroup(key, name string, onSelect SelectFunc) *Group {
	return &Group{key: key, name: name, onSelect: onSelect}
}

// Key returns the group key.
func (g *Group) Key() string { return g.key }

// Name returns the display name.
func (g *Group) Name() string { return g.name }

// SetItems replaces the group's items and notifies items observers. The
// current item is kept if a new item has the same key.
func (g *Group) SetItems(items []*Item) {
	for _, item := range items {
		item.mu.Lock()
		item.group = g
		item.mu.Unlock()
	}

	g.mu.Lock()
	g.items = slices.Clone(items)
	if g.current != "" && g.indexLocked(g.current) < 0 {
		g.current = ""
	}
	current := g.current
	observers := g.itemsObservers
	g.mu.Unlock()

	for _, item := range items {
		item.SetSelected(item.key == current)
	}
	for _, fn := range observers {
		fn(g)
	}
}

// Items returns the items in display order.
func (g *Group) Items() []*Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.items)
}

// Item returns the item with the given key.
func (g *Group) Item(key string) (*Item, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.indexLocked(key)
	if idx < 0 {
		return nil, false
	}
	return g.items[idx], true
}

// CurrentItem returns the key of the current item, or "" if there is none.
func (g *Group) CurrentItem() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// Select runs the selection action for the item and, if it succeeds, makes
// the item current. The action runs even if the item is already current.
func (g *Group) Select(key string) error {
	item, ok := g.Item(key)
	if !ok {
		return ErrUnknownItem
	}

	if g.onSelect != nil {
		if err := g.onSelect(item); err != nil {
			return err
		}
	}

	g.SetCurrent(key)
	return nil
}

// SetCurrent makes the item with key current without running the selection
// action, for when the selection changed at the source. It reports whether
// the key is known.
func (g *Group) SetCurrent(key string) bool {
	g.mu.Lock()
	if g.indexLocked(key) < 0 {
		g.mu.Unlock()
		return false
	}
	changed := g.current != key
	g.current = key
	items := slices.Clone(g.items)
	observers := g.currentObservers
	g.mu.Unlock()

	for _, item := range items {
		item.SetSelected(item.key == key)
	}
	if changed {
		for _, fn := range observers {
			fn(g)
		}
	}
	return true
}

// OnCurrentItemChanged registers fn to be called after the current item changes.
func (g *Group) OnCurrentItemChanged(fn func(*Group)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentObservers = append(g.currentObservers, fn)
}

// OnItemsUpdated registers fn to be called after SetItems.
func (g *Group) OnItemsUpdated(fn func(*Group)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.itemsObservers = append(g.itemsObservers, fn)
}

func (g *Group) indexLocked(key string) int {
	return slices.IndexFunc(g.items, func(item *Item) bool { return item.key == key })
}
