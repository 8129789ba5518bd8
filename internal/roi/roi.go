// Package roi defines Regions of Interest and the per-batch registry that
// materializes them once, either from fixed geometry or from an operator
// drawing rectangles on a scaled reference frame.
package roi

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/roi-trends/internal/imaging"
)

var (
	// ErrSelectionAborted means the operator cancelled or drew a degenerate
	// rectangle. The whole batch is aborted; partial ROI sets are not kept.
	ErrSelectionAborted = errors.New("roi selection aborted")

	// ErrAlreadyDefined is returned by Define once the registry holds ROIs.
	ErrAlreadyDefined = errors.New("roi registry already defined")

	// ErrInteractiveUnavailable is returned when the binary was built without
	// OpenCV support. Use fixed ROI geometry or rebuild with -tags gocv.
	ErrInteractiveUnavailable = errors.New("interactive roi selection requires the gocv build tag")
)

// ROI is a rectangle in original frame coordinates.
type ROI struct {
	// Index is 1-based and stable for the life of a batch.
	Index  int `json:"index"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the ROI as an image.Rectangle (Max exclusive).
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Label returns the display label, e.g. "ROI 2".
func (r ROI) Label() string {
	return fmt.Sprintf("ROI %d", r.Index)
}

// Rect is literal ROI geometry as written in configuration files.
type Rect struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

// Viewport bounds the display used for interactive selection.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Selector returns one display-space rectangle drawn on a display frame.
//
// A zero-size rectangle means the operator cancelled.
type Selector interface {
	Select(ctx context.Context, display image.Image, prompt string) (image.Rectangle, error)
}

type state int

const (
	unselected state = iota
	selected
)

// Registry holds the ROI set of one batch.
//
// A Registry is either Unselected or Selected. Once Selected its geometry is
// immutable until Reset starts a new batch.
type Registry struct {
	state state
	rois  []ROI
	scale float64
}

// NewRegistry returns an Unselected registry.
func NewRegistry() *Registry {
	return &Registry{state: unselected, scale: 1.0}
}

// NewFixed returns a Selected registry built from literal geometry, for
// fixed-rig cameras where the ROI positions are known in advance.
func NewFixed(rects []Rect) (*Registry, error) {
	if len(rects) == 0 {
		return nil, fmt.Errorf("no roi geometry given")
	}
	rois := make([]ROI, 0, len(rects))
	for i, r := range rects {
		if r.W <= 0 || r.H <= 0 {
			return nil, fmt.Errorf("roi %d: width and height must be positive, got %dx%d", i+1, r.W, r.H)
		}
		rois = append(rois, ROI{Index: i + 1, X: r.X, Y: r.Y, Width: r.W, Height: r.H})
	}
	return &Registry{state: selected, rois: rois, scale: 1.0}, nil
}

// IsDefined reports whether the registry is Selected.
func (r *Registry) IsDefined() bool {
	return r.state == selected
}

// ROIs returns a copy of the selected ROIs, or nil while Unselected.
func (r *Registry) ROIs() []ROI {
	if r.state != selected {
		return nil
	}
	out := make([]ROI, len(r.rois))
	copy(out, r.rois)
	return out
}

// Scale returns the display scale used by the last interactive Define, or 1.
func (r *Registry) Scale() float64 {
	return r.scale
}

// Reset discards the ROI set so the next batch selects again.
func (r *Registry) Reset() {
	r.state = unselected
	r.rois = nil
	r.scale = 1.0
}

// Define materializes count ROIs by presenting the reference frame to a
// selector.
//
// The reference frame is scaled to fit the viewport while preserving aspect
// ratio. Each display-space rectangle is mapped back to frame coordinates by
// dividing by the scale factor and rounding to the nearest pixel.
//
// Returns ErrSelectionAborted (wrapped) when the selector fails, cancels, or
// produces a rectangle with zero width or height; the registry then stays
// Unselected. Returns ErrAlreadyDefined if the registry is already Selected.
func (r *Registry) Define(ctx context.Context, reference image.Image, count int, sel Selector, vp Viewport) ([]ROI, error) {
	if r.state == selected {
		return nil, ErrAlreadyDefined
	}
	if count < 1 {
		return nil, fmt.Errorf("roi count must be at least 1, got %d", count)
	}
	if sel == nil {
		return nil, fmt.Errorf("%w: no selector configured", ErrSelectionAborted)
	}

	display, scale := imaging.FitToViewport(reference, vp.Width, vp.Height)

	rois := make([]ROI, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSelectionAborted, err)
		}
		rect, err := sel.Select(ctx, display, fmt.Sprintf("Select ROI #%d", i+1))
		if err != nil {
			return nil, fmt.Errorf("%w: roi %d: %v", ErrSelectionAborted, i+1, err)
		}
		roi, err := FromDisplay(rect, scale, i+1)
		if err != nil {
			return nil, err
		}
		rois = append(rois, roi)
	}

	r.rois = rois
	r.scale = scale
	r.state = selected
	return r.ROIs(), nil
}

// FromDisplay maps a display-space rectangle to frame coordinates.
func FromDisplay(rect image.Rectangle, scale float64, index int) (ROI, error) {
	rect = rect.Canon()
	if rect.Dx() == 0 || rect.Dy() == 0 {
		return ROI{}, fmt.Errorf("%w: roi %d is empty", ErrSelectionAborted, index)
	}
	if scale <= 0 {
		scale = 1.0
	}
	roi := ROI{
		Index:  index,
		X:      int(math.Round(float64(rect.Min.X) / scale)),
		Y:      int(math.Round(float64(rect.Min.Y) / scale)),
		Width:  int(math.Round(float64(rect.Dx()) / scale)),
		Height: int(math.Round(float64(rect.Dy()) / scale)),
	}
	if roi.Width == 0 || roi.Height == 0 {
		return ROI{}, fmt.Errorf("%w: roi %d rounds to zero size", ErrSelectionAborted, index)
	}
	return roi, nil
}

// ReplaySelector returns pre-recorded display-space rectangles in order.
//
// It stands in for an operator in headless runs and in the MCP server, where
// the client draws rectangles on a preview returned earlier.
type ReplaySelector struct {
	Rects []image.Rectangle
	next  int
}

// Select returns the next recorded rectangle.
func (s *ReplaySelector) Select(_ context.Context, _ image.Image, prompt string) (image.Rectangle, error) {
	if s.next >= len(s.Rects) {
		return image.Rectangle{}, fmt.Errorf("no rectangle recorded for %q", prompt)
	}
	rect := s.Rects[s.next]
	s.next++
	return rect, nil
}
