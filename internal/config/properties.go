package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
)

// ErrNoProperties is returned when a properties payload is absent entirely.
var ErrNoProperties = errors.New("no properties")

// Properties is the device configuration block of a windowing processor.
//
// Maps keyed by uint are keyed by 1-based input, output or screen number.
type Properties struct {
	Control ControlConfig `json:"control" yaml:"control"`

	// Screens is nil when the configuration has no screens block, which
	// leaves the controller unconfigured.
	Screens map[uint]ScreenInfo `json:"screens,omitempty" yaml:"screens,omitempty"`

	InputNames  map[uint]string `json:"inputNames,omitempty" yaml:"inputNames,omitempty"`
	OutputNames map[uint]string `json:"outputNames,omitempty" yaml:"outputNames,omitempty"`

	// InputSlots and OutputSlots override the routing slot keys.
	InputSlots  map[uint]string `json:"inputSlots,omitempty" yaml:"inputSlots,omitempty"`
	OutputSlots map[uint]string `json:"outputSlots,omitempty" yaml:"outputSlots,omitempty"`

	NoRouteText            string        `json:"noRouteText,omitempty" yaml:"noRouteText,omitempty"`
	InputSlotSupportsHDCP2 map[uint]bool `json:"inputSlotSupportsHdcp2,omitempty" yaml:"inputSlotSupportsHdcp2,omitempty"`
}

// ControlConfig describes how the processor is reached.
type ControlConfig struct {
	Method  string `json:"method,omitempty" yaml:"method,omitempty"`
	IPID    string `json:"ipId,omitempty" yaml:"ipId,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// ScreenInfo describes one logical screen and the layouts it offers.
type ScreenInfo struct {
	Enabled     bool                `json:"enabled" yaml:"enabled"`
	Name        string              `json:"name" yaml:"name"`
	ScreenIndex int                 `json:"screenIndex" yaml:"screenIndex"`
	Layouts     map[uint]LayoutInfo `json:"layouts" yaml:"layouts"`
}

// LayoutInfo describes one selectable layout of a screen.
type LayoutInfo struct {
	LayoutName string `json:"layoutName" yaml:"layoutName"`

	// LayoutIndex is the value passed to the processor's layout recall.
	// It is required; nil means it was missing from the configuration.
	LayoutIndex *int `json:"layoutIndex" yaml:"layoutIndex"`
	// LayoutType is a free-form hint carried through to status consumers.
	LayoutType string `json:"layoutType,omitempty" yaml:"layoutType,omitempty"`

	Windows map[uint]WindowConfig `json:"windows,omitempty" yaml:"windows,omitempty"`
}

// Index returns the layout index, or -1 when it is missing.
func (l LayoutInfo) Index() int {
	if l.LayoutIndex == nil {
		return -1
	}
	return *l.LayoutIndex
}

// WindowConfig assigns a label and a source to one window of a layout.
type WindowConfig struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	// Input is an input name, "Input{N}" or a bare input number.
	Input string `json:"input,omitempty" yaml:"input,omitempty"`
}

// ParseProperties decodes a JSON properties payload. An empty or null
// payload returns ErrNoProperties.
func ParseProperties(data []byte) (*Properties, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrNoProperties
	}

	var props Properties
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("decoding properties: %w", err)
	}
	return &props, nil
}

// ReadPropertiesFile reads and decodes a JSON properties file.
func ReadPropertiesFile(path string) (*Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading properties: %w", err)
	}
	props, err := ParseProperties(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return props, nil
}

// Validate checks the screen catalog. Every problem found is reported.
func (p *Properties) Validate() error {
	if p == nil {
		return ErrNoProperties
	}

	var errs []error
	for _, screenKey := range SortedKeys(p.Screens) {
		screen := p.Screens[screenKey]
		if strings.TrimSpace(screen.Name) == "" {
			errs = append(errs, fmt.Errorf("screen %d: name is required", screenKey))
		}

		for _, layoutKey := range SortedKeys(screen.Layouts) {
			layout := screen.Layouts[layoutKey]
			if layout.LayoutIndex == nil {
				errs = append(errs, fmt.Errorf("screen %d layout %d: layoutIndex is required", screenKey, layoutKey))
			}
			for windowKey := range layout.Windows {
				if windowKey == 0 {
					errs = append(errs, fmt.Errorf("screen %d layout %d: window numbers start at 1", screenKey, layoutKey))
				}
			}
		}
	}

	return errors.Join(errs...)
}

// CloneScreens returns a deep copy of a screen catalog.
func CloneScreens(screens map[uint]ScreenInfo) map[uint]ScreenInfo {
	if screens == nil {
		return nil
	}

	out := make(map[uint]ScreenInfo, len(screens))
	for k, s := range screens {
		if s.Layouts != nil {
			layouts := make(map[uint]LayoutInfo, len(s.Layouts))
			for lk, l := range s.Layouts {
				if l.LayoutIndex != nil {
					idx := *l.LayoutIndex
					l.LayoutIndex = &idx
				}
				l.Windows = maps.Clone(l.Windows)
				layouts[lk] = l
			}
			s.Layouts = layouts
		}
		out[k] = s
	}
	return out
}

// SortedKeys returns the keys of a numbered map in ascending order.
func SortedKeys[V any](m map[uint]V) []uint {
	return slices.Sorted(maps.Keys(m))
}
