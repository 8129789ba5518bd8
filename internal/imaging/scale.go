package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// DisplayScale returns the factor that fits a w×h frame inside a maxW×maxH
// viewport while preserving aspect ratio.
//
// The factor may be greater than one: small frames are enlarged to fill the
// viewport so that rectangles can be drawn precisely. Non-positive inputs
// return 1.
func DisplayScale(w, h, maxW, maxH int) float64 {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 1.0
	}
	return math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
}

// FitToViewport resizes a frame for display inside a viewport.
//
// Returns the display image and the scale factor that was applied. Display
// coordinates map back to frame coordinates by dividing by the factor.
func FitToViewport(img image.Image, maxW, maxH int) (*image.NRGBA, float64) {
	b := img.Bounds()
	scale := DisplayScale(b.Dx(), b.Dy(), maxW, maxH)
	if scale == 1.0 {
		return imaging.Clone(img), scale
	}

	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	// Box averages source pixels when shrinking, like OpenCV INTER_AREA.
	return imaging.Resize(img, w, h, imaging.Box), scale
}

// PreviewResult contains a display-scaled frame encoded as base64 PNG.
type PreviewResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FrameWidth  int     `json:"frame_width"`
	FrameHeight int     `json:"frame_height"`
	Scale       float64 `json:"scale"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
}

// Preview scales a frame into a viewport and encodes it for transport. A
// non-nil grid is drawn after scaling, so its labels are display coordinates.
func Preview(img image.Image, maxW, maxH int, grid *Grid) (*PreviewResult, error) {
	display, scale := FitToViewport(img, maxW, maxH)
	if grid != nil {
		DrawGrid(display, *grid)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, display); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       display.Bounds().Dx(),
		Height:      display.Bounds().Dy(),
		FrameWidth:  img.Bounds().Dx(),
		FrameHeight: img.Bounds().Dy(),
		Scale:       scale,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
