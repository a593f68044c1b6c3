package routing

// InputSlot is a routable source.
type InputSlot interface {
	Key() string
	Name() string
	SlotNumber() uint
	SupportedSignalTypes() SignalType
	IsOnline() bool
	VideoSyncDetected() bool

	// OnVideoSyncChanged registers fn to be called when sync detection on
	// the slot changes.
	OnVideoSyncChanged(fn func(slot InputSlot, detected bool))
}

// OutputSlot is a routable destination.
type OutputSlot interface {
	Key() string
	Name() string
	SlotNumber() uint
	SupportedSignalTypes() SignalType

	// CurrentRoutes returns the input feeding the slot, per signal type.
	CurrentRoutes() map[SignalType]InputSlot

	// Route returns the input feeding the slot for a single signal type.
	Route(sig SignalType) InputSlot

	// OnOutputSlotChanged registers fn to be called after a route changes.
	OnOutputSlotChanged(fn func(slot OutputSlot))
}

// Resolver maps an input slot number to its slot. It returns ClearInput for
// 0 and for numbers it does not know.
type Resolver func(number uint) InputSlot

// ClearInput stands for "no source". It is the route of an output that has
// nothing routed to it.
var ClearInput InputSlot = clearInput{}

type clearInput struct{}

func (clearInput) Key() string { return "none" }
func (clearInput) Name() string { return "None" }
func (clearInput) SlotNumber() uint { return 0 }
func (clearInput) SupportedSignalTypes() SignalType { return AudioVideo }
func (clearInput) IsOnline() bool { return false }
func (clearInput) VideoSyncDetected() bool { return false }
func (clearInput) OnVideoSyncChanged(func(InputSlot, bool)) {}

// IsClear reports whether slot is nil or ClearInput.
func IsClear(slot InputSlot) bool {
	return slot == nil || slot == ClearInput
}
