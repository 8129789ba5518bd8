package analysis

import (
	"fmt"
	"math"
)

// ColumnOnset is an onset found in an exported table column.
type ColumnOnset struct {
	Onset

	// Position is the 0-based row among the non-empty cells.
	Position int `json:"position"`

	// Frame is the frame index of the triggering row, or -1.
	Frame int `json:"frame"`
}

// DetectColumn runs onset detection over one table column. Empty cells (NaN)
// are dropped first, so Onset.Index counts only non-empty rows; Frame maps
// the result back to the row's frame index.
func DetectColumn(values []float64, frames []int, mode OnsetMode, param float64) (ColumnOnset, error) {
	kept, keptFrames := dropNaN(values, frames)
	onset, err := Detect(kept, mode, param)
	if err != nil {
		return ColumnOnset{Onset: onset, Position: -1, Frame: -1}, err
	}
	res := ColumnOnset{Onset: onset, Position: onset.Index, Frame: -1}
	if onset.Found && onset.Index < len(keptFrames) {
		res.Frame = keptFrames[onset.Index]
	}
	return res, nil
}

// FitColumns fits y against x after dropping every row where either cell is
// empty.
func FitColumns(x, y []float64, opts FitOptions) (*Result, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: x column has %d rows, y column has %d", ErrInsufficientData, len(x), len(y))
	}
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return Fit(xs, ys, opts)
}

func dropNaN(values []float64, frames []int) ([]float64, []int) {
	kept := make([]float64, 0, len(values))
	keptFrames := make([]int, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		kept = append(kept, v)
		if i < len(frames) {
			keptFrames = append(keptFrames, frames[i])
		} else {
			keptFrames = append(keptFrames, i+1)
		}
	}
	return kept, keptFrames
}
