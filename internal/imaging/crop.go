package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ClampRect intersects a region with the frame bounds.
//
// Returns the clamped rectangle and true when at least one pixel of the
// region lies inside the frame. A region that falls fully outside the frame
// returns an empty rectangle and false.
func ClampRect(r, bounds image.Rectangle) (image.Rectangle, bool) {
	clamped := r.Canon().Intersect(bounds)
	if clamped.Empty() {
		return image.Rectangle{}, false
	}
	return clamped, true
}

// CropRegion extracts the pixels of a region as a non-premultiplied RGBA image.
//
// The region is clamped to the frame bounds first, so a rectangle that hangs
// over the frame edge yields only the overlapping pixels. The returned image
// has its origin at (0,0).
//
// Returns:
//   - *image.NRGBA: The cropped pixels.
//   - error: Non-nil if the region does not overlap the frame at all.
func CropRegion(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	clamped, ok := ClampRect(r, img.Bounds())
	if !ok {
		b := img.Bounds()
		return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside frame bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}
	return imaging.Crop(img, clamped), nil
}
