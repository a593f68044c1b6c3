// Package routing models the routable ports of a matrix: input slots,
// output slots and the signal types that travel between them.
package routing

import (
	"fmt"
	"strings"
)

// SignalType is a set of signal flags. A switch request carrying several
// flags applies to each of them.
type SignalType uint8

const (
	Audio SignalType = 1 << iota
	Video
	UsbInput
	UsbOutput
	SecondaryAudio

	AudioVideo = Audio | Video
)

var signalNames = []struct {
	flag SignalType
	name string
}{
	{Audio, "audio"},
	{Video, "video"},
	{UsbInput, "usbInput"},
	{UsbOutput, "usbOutput"},
	{SecondaryAudio, "secondaryAudio"},
}

// Has reports whether s contains any flag of flag.
func (s SignalType) Has(flag SignalType) bool {
	return s&flag != 0
}

func (s SignalType) String() string {
	if s == AudioVideo {
		return "audioVideo"
	}

	var parts []string
	for _, sn := range signalNames {
		if s.Has(sn.flag) {
			parts = append(parts, sn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseSignalType parses a signal type name such as "video", "audioVideo"
// or "audio|usbInput".
func ParseSignalType(s string) (SignalType, error) {
	var out SignalType
	for part := range strings.SplitSeq(s, "|") {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, "audioVideo") {
			out |= AudioVideo
			continue
		}

		found := false
		for _, sn := range signalNames {
			if strings.EqualFold(part, sn.name) {
				out |= sn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown signal type %q", part)
		}
	}
	return out, nil
}
