// Package analysis smooths channel series, detects trend onset and fits
// linear and log-linear regressions.
//
// Every function here is pure: identical inputs always produce bit-identical
// outputs.
package analysis

import "errors"

var (
	// ErrInsufficientData means there are too few usable points.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateInput means the x values do not vary, so no line is defined.
	ErrDegenerateInput = errors.New("degenerate input: x values are all equal")

	// ErrDomain means a log transform was requested on non-positive data.
	ErrDomain = errors.New("log transform requires positive values")

	// ErrInvalidBandwidth means the smoothing fraction is outside (0, 1].
	ErrInvalidBandwidth = errors.New("bandwidth fraction must be in (0, 1]")
)
