package analysis

import (
	"fmt"

	"github.com/ironsheep/roi-trends/internal/series"
)

// SmoothSeries smooths every channel of every ROI in ts.
//
// Undefined tuples (ROI outside the frame) are NaN in the input and stay NaN
// in the output.
func SmoothSeries(ts *series.TimeSeries, opts SmoothOptions) (series.Smoothed, error) {
	out := make(series.Smoothed)
	for _, roi := range ts.ROIs() {
		for _, c := range series.Channels {
			smoothed, err := SmoothFinite(ts.Values(roi, c), opts)
			if err != nil {
				return nil, fmt.Errorf("roi %d %s: %w", roi, c, err)
			}
			out.Set(roi, c, smoothed)
		}
	}
	return out, nil
}
