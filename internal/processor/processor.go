// Package processor defines what the windowing controller needs from a
// multi-window video processor: source and layout commands, state getters,
// and change events.
package processor

import "fmt"

// VideoSource selects the input shown in a window.
type VideoSource uint

const (
	VideoSourceNone VideoSource = iota
	VideoSourceInput1
	VideoSourceInput2
	VideoSourceInput3
	VideoSourceInput4
)

func (s VideoSource) String() string {
	if s == VideoSourceNone {
		return "None"
	}
	return fmt.Sprintf("Input%d", uint(s))
}

// AudioSource selects the input whose audio is embedded on the output.
type AudioSource uint

const (
	AudioSourceNone AudioSource = iota
	AudioSourceInput1
	AudioSourceInput2
	AudioSourceInput3
	AudioSourceInput4
	// AudioSourceAuto follows the source of the primary window.
	AudioSourceAuto
)

func (s AudioSource) String() string {
	switch s {
	case AudioSourceNone:
		return "None"
	case AudioSourceAuto:
		return "Auto"
	default:
		return fmt.Sprintf("Input%d", uint(s))
	}
}

// LayoutType is a window arrangement the processor can recall.
type LayoutType uint

const (
	LayoutAutomatic LayoutType = iota
	LayoutFullscreen
	LayoutPictureInPicture
	LayoutSideBySide
	LayoutThreeUp
	LayoutQuadview
	LayoutThreeSmallOneLarge

	// MaxLayout is the highest valid layout value.
	MaxLayout = LayoutThreeSmallOneLarge
)

var layoutNames = [...]string{
	LayoutAutomatic:          "Automatic",
	LayoutFullscreen:         "Fullscreen",
	LayoutPictureInPicture:   "PictureInPicture",
	LayoutSideBySide:         "SideBySide",
	LayoutThreeUp:            "ThreeUp",
	LayoutQuadview:           "Quadview",
	LayoutThreeSmallOneLarge: "ThreeSmallOneLarge",
}

// Valid reports whether l is a layout the processor understands.
func (l LayoutType) Valid() bool {
	return l <= MaxLayout
}

func (l LayoutType) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Layout(%d)", uint(l))
	}
	return layoutNames[l]
}

// Input is one physical input of a processor.
type Input interface {
	Number() uint
	Name() string
	SetName(name string) error
	SyncDetected() bool
	IsOnline() bool
}

// Processor is a multi-window video processor. Windows and inputs are
// numbered from 1.
type Processor interface {
	Model() string
	IsOnline() bool

	InputCount() uint
	WindowCount() uint

	// Input returns input n. It fails if the input cannot be reached, in
	// which case callers skip that input and carry on.
	Input(n uint) (Input, error)

	SetVideoSource(window uint, src VideoSource) error
	SetAudioSource(src AudioSource) error
	RecallLayout(layout LayoutType) error

	VideoSourceFeedback(window uint) (VideoSource, error)
	AudioSourceFeedback() (AudioSource, error)
	LayoutFeedback() (LayoutType, error)

	// Subscribe registers fn for events of the given kind. Handlers run
	// synchronously on the processor's dispatch goroutine, in registration order.
	Subscribe(kind EventKind, fn Handler)
}
