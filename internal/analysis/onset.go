package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Onset is the first position where a series crosses its threshold.
type Onset struct {
	// Found is false when no position crossed.
	Found bool `json:"found"`

	// Index is the 0-based position in the scanned series, or -1.
	Index int `json:"index"`

	// Value is the series value at Index.
	Value float64 `json:"value,omitempty"`

	// Baseline is the value Value was compared against: the running mean of
	// the preceding points for relative detection, the threshold otherwise.
	Baseline float64 `json:"baseline,omitempty"`
}

func notFound() Onset {
	return Onset{Found: false, Index: -1}
}

// RelativeOnset returns the first position i >= 1 whose value exceeds
// (1+ratio) times the mean of all values before it.
//
// Non-finite values are ignored: they never trigger and do not contribute to
// the running mean.
func RelativeOnset(series []float64, ratio float64) Onset {
	var sum float64
	var count int
	for i, v := range series {
		if !finite(v) {
			continue
		}
		if count > 0 {
			baseline := sum / float64(count)
			if v > (1+ratio)*baseline {
				return Onset{Found: true, Index: i, Value: v, Baseline: baseline}
			}
		}
		sum += v
		count++
	}
	return notFound()
}

// AbsoluteOnset returns the first position whose value exceeds threshold.
func AbsoluteOnset(series []float64, threshold float64) Onset {
	for i, v := range series {
		if finite(v) && v > threshold {
			return Onset{Found: true, Index: i, Value: v, Baseline: threshold}
		}
	}
	return notFound()
}

// OnsetMode selects the onset detector.
type OnsetMode string

const (
	// OnsetRelative compares each point with the running mean before it.
	OnsetRelative OnsetMode = "relative"

	// OnsetAbsolute compares each point with a fixed threshold.
	OnsetAbsolute OnsetMode = "absolute"
)

// ParseOnsetMode parses "relative" or "absolute".
func ParseOnsetMode(s string) (OnsetMode, error) {
	switch OnsetMode(strings.ToLower(strings.TrimSpace(s))) {
	case OnsetRelative:
		return OnsetRelative, nil
	case OnsetAbsolute:
		return OnsetAbsolute, nil
	}
	return "", fmt.Errorf("unknown onset mode %q (want relative or absolute)", s)
}

// Detect runs the detector for mode. param is the ratio for relative
// detection and the threshold for absolute detection.
func Detect(series []float64, mode OnsetMode, param float64) (Onset, error) {
	switch mode {
	case OnsetRelative:
		return RelativeOnset(series, param), nil
	case OnsetAbsolute:
		return AbsoluteOnset(series, param), nil
	}
	return notFound(), fmt.Errorf("unknown onset mode %q", mode)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
