// Package extract computes per-ROI channel statistics for a single frame.
package extract

import (
	"fmt"
	"image"

	"github.com/ironsheep/roi-trends/internal/imaging"
	"github.com/ironsheep/roi-trends/internal/roi"
	"github.com/ironsheep/roi-trends/internal/series"
)

// Extractor turns a decoded frame and a ROI set into Statistic Tuples.
//
// An Extractor holds no per-frame state and may be shared by concurrent
// workers.
type Extractor struct {
	// IntensityChannel selects the channel copied into Tuple.Intensity.
	IntensityChannel series.Channel
}

// New returns an Extractor whose intensity column mirrors channel c.
//
// The intensity column must be backed by a measured channel, so passing
// series.Intensity is an error.
func New(c series.Channel) (*Extractor, error) {
	if c == series.Intensity {
		return nil, fmt.Errorf("intensity channel must be one of r, g, b, h, s, v")
	}
	return &Extractor{IntensityChannel: c}, nil
}

// Extract computes one tuple per ROI, in ROI order.
//
// Each ROI is clamped to the frame. A ROI lying entirely outside the frame
// produces a tuple whose channels are all NaN rather than an error.
func (e *Extractor) Extract(frameIndex int, img image.Image, rois []roi.ROI) []series.Tuple {
	tuples := make([]series.Tuple, 0, len(rois))
	for _, r := range rois {
		m := imaging.MeanChannels(img, r.Rect())
		t := series.Tuple{
			FrameIndex: frameIndex,
			ROIIndex:   r.Index,
			R:          m.R,
			G:          m.G,
			B:          m.B,
			H:          m.H,
			S:          m.S,
			V:          m.V,
		}
		t.Intensity = t.Value(e.IntensityChannel)
		tuples = append(tuples, t)
	}
	return tuples
}

// Annotate returns a copy of img with every ROI outlined and labeled
// "ROI n". The statistics of img are unaffected.
func Annotate(img image.Image, rois []roi.ROI) *image.RGBA {
	outlines := make([]imaging.Outline, 0, len(rois))
	for _, r := range rois {
		outlines = append(outlines, imaging.Outline{Rect: r.Rect(), Label: r.Label()})
	}
	return imaging.Annotate(img, outlines, imaging.DefaultOutlineColor, 2)
}
