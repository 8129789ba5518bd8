// Package series holds the per-frame, per-ROI statistics produced by a batch
// and the ordered time series they are aggregated into.
package series

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Channel identifies one column of a Statistic Tuple.
type Channel int

const (
	Intensity Channel = iota
	H
	S
	V
	R
	G
	B
)

// Channels lists every channel in export order.
var Channels = []Channel{Intensity, H, S, V, R, G, B}

// String returns the short channel name used in configuration.
func (c Channel) String() string {
	switch c {
	case Intensity:
		return "intensity"
	case H:
		return "h"
	case S:
		return "s"
	case V:
		return "v"
	case R:
		return "r"
	case G:
		return "g"
	case B:
		return "b"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ParseChannel parses a channel name. Color words ("red", "blue", ...) are
// accepted as aliases for the RGB channels.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "intensity", "i":
		return Intensity, nil
	case "h", "hue":
		return H, nil
	case "s", "saturation":
		return S, nil
	case "v", "value":
		return V, nil
	case "r", "red":
		return R, nil
	case "g", "green":
		return G, nil
	case "b", "blue":
		return B, nil
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// Tuple is the statistic record for one ROI in one frame.
//
// Channel values are 8-bit scale means (H uses 0-180). A ROI that misses the
// frame entirely produces NaN in every channel.
type Tuple struct {
	FrameIndex int     `json:"frame_index"`
	ROIIndex   int     `json:"roi_index"`
	R          float64 `json:"r"`
	G          float64 `json:"g"`
	B          float64 `json:"b"`
	H          float64 `json:"h"`
	S          float64 `json:"s"`
	V          float64 `json:"v"`
	Intensity  float64 `json:"intensity"`
}

// Value returns the value of channel c.
func (t Tuple) Value(c Channel) float64 {
	switch c {
	case Intensity:
		return t.Intensity
	case H:
		return t.H
	case S:
		return t.S
	case V:
		return t.V
	case R:
		return t.R
	case G:
		return t.G
	case B:
		return t.B
	}
	return math.NaN()
}

// Defined reports whether the tuple carries measured values.
func (t Tuple) Defined() bool {
	return !math.IsNaN(t.R)
}

// Frame is the record of one successfully processed frame.
type Frame struct {
	Index     int       `json:"index"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label,omitempty"`
}
