package series

import (
	"fmt"
	"math"
	"sort"
)

// TimeSeries maps each ROI to its tuples in frame processing order.
//
// A TimeSeries has a single writer (the batch aggregator); readers must not
// hold on to slices returned while the batch is still running.
type TimeSeries struct {
	// IntensityChannel names the RGB channel copied into Tuple.Intensity.
	IntensityChannel Channel `json:"intensity_channel"`

	frames     []Frame
	byROI      map[int][]Tuple
	framesSeen int
}

// New creates an empty series whose intensity column mirrors channel c.
func New(c Channel) *TimeSeries {
	return &TimeSeries{
		IntensityChannel: c,
		byROI:            make(map[int][]Tuple),
	}
}

// Append records a processed frame and its tuples.
//
// Frames must be appended in increasing index order. Every tuple must belong
// to the appended frame.
func (ts *TimeSeries) Append(f Frame, tuples []Tuple) error {
	if n := len(ts.frames); n > 0 && f.Index <= ts.frames[n-1].Index {
		return fmt.Errorf("frame %d appended after frame %d", f.Index, ts.frames[n-1].Index)
	}
	for _, t := range tuples {
		if t.FrameIndex != f.Index {
			return fmt.Errorf("tuple for frame %d appended with frame %d", t.FrameIndex, f.Index)
		}
	}
	ts.frames = append(ts.frames, f)
	for _, t := range tuples {
		ts.byROI[t.ROIIndex] = append(ts.byROI[t.ROIIndex], t)
	}
	ts.Observe(f.Index)
	return nil
}

// Observe records that input position index was reached, whether or not the
// frame at that position produced statistics.
func (ts *TimeSeries) Observe(index int) {
	if index > ts.framesSeen {
		ts.framesSeen = index
	}
}

// FramesSeen returns the highest input position observed.
func (ts *TimeSeries) FramesSeen() int {
	return ts.framesSeen
}

// Frames returns the processed frames in order.
func (ts *TimeSeries) Frames() []Frame {
	return ts.frames
}

// Len returns the number of processed frames.
func (ts *TimeSeries) Len() int {
	return len(ts.frames)
}

// ROIs returns the ROI indices present, ascending.
func (ts *TimeSeries) ROIs() []int {
	rois := make([]int, 0, len(ts.byROI))
	for idx := range ts.byROI {
		rois = append(rois, idx)
	}
	sort.Ints(rois)
	return rois
}

// Tuples returns the tuples of one ROI in processing order.
func (ts *TimeSeries) Tuples(roi int) []Tuple {
	return ts.byROI[roi]
}

// TupleCount returns the total number of tuples across all ROIs.
func (ts *TimeSeries) TupleCount() int {
	n := 0
	for _, tuples := range ts.byROI {
		n += len(tuples)
	}
	return n
}

// Values returns one channel of one ROI as a dense slice in processing order.
// Undefined tuples contribute NaN.
func (ts *TimeSeries) Values(roi int, c Channel) []float64 {
	tuples := ts.byROI[roi]
	out := make([]float64, len(tuples))
	for i, t := range tuples {
		out[i] = t.Value(c)
	}
	return out
}

// FrameIndices returns the frame index of every tuple of one ROI.
func (ts *TimeSeries) FrameIndices(roi int) []int {
	tuples := ts.byROI[roi]
	out := make([]int, len(tuples))
	for i, t := range tuples {
		out[i] = t.FrameIndex
	}
	return out
}

// Aligned spreads a positional slice (as returned by Values, or a smoothed
// copy of it) over input positions 1..FramesSeen. Positions with no tuple
// are NaN.
func (ts *TimeSeries) Aligned(roi int, values []float64) []float64 {
	out := make([]float64, ts.framesSeen)
	for i := range out {
		out[i] = math.NaN()
	}
	for i, idx := range ts.FrameIndices(roi) {
		if i < len(values) && idx >= 1 && idx <= len(out) {
			out[idx-1] = values[i]
		}
	}
	return out
}

// Smoothed holds smoothed channel values per ROI. Each slice is positional:
// element i corresponds to Tuples(roi)[i].
type Smoothed map[int]map[Channel][]float64

// Get returns the smoothed values of one ROI channel, or nil.
func (s Smoothed) Get(roi int, c Channel) []float64 {
	if s == nil {
		return nil
	}
	return s[roi][c]
}

// Set stores the smoothed values of one ROI channel.
func (s Smoothed) Set(roi int, c Channel, values []float64) {
	if s[roi] == nil {
		s[roi] = make(map[Channel][]float64)
	}
	s[roi][c] = values
}
