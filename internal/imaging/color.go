package imaging

import (
	"image"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ChannelMeans holds the arithmetic mean of every channel over a region.
//
// RGB values are 0-255. HSV values follow the OpenCV 8-bit convention:
//   - H: 0-180 (hue degrees / 2)
//   - S: 0-255
//   - V: 0-255
//
// When the region does not overlap the frame every channel is NaN and
// Pixels is zero.
type ChannelMeans struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`

	// Pixels is the number of pixels the means were computed over.
	Pixels int `json:"pixels"`
}

// undefinedMeans is returned for regions that miss the frame entirely.
func undefinedMeans() ChannelMeans {
	nan := math.NaN()
	return ChannelMeans{R: nan, G: nan, B: nan, H: nan, S: nan, V: nan}
}

// MeanChannels computes per-channel means over a region of a frame.
//
// Parameters:
//   - img: The source frame.
//   - r: Region in frame coordinates. It is clamped to the frame bounds.
//
// Returns ChannelMeans over every pixel inside the clamped region. The RGB
// and HSV representations are accumulated independently from the same
// pixels; alpha is ignored.
//
// # Color Conversion
//
// HSV is computed per pixel with go-colorful and then averaged, which matches
// converting the whole crop to HSV before taking channel means. Hue is not
// averaged circularly; reds that straddle 0/180 average toward the middle,
// exactly as a plain per-channel mean does.
func MeanChannels(img image.Image, r image.Rectangle) ChannelMeans {
	crop, err := CropRegion(img, r)
	if err != nil {
		return undefinedMeans()
	}

	var sumR, sumG, sumB, sumH, sumS, sumV float64
	b := crop.Bounds()
	w, h := b.Dx(), b.Dy()

	for y := 0; y < h; y++ {
		row := crop.Pix[y*crop.Stride : y*crop.Stride+w*4]
		for x := 0; x < w; x++ {
			pr, pg, pb := row[x*4], row[x*4+1], row[x*4+2]
			sumR += float64(pr)
			sumG += float64(pg)
			sumB += float64(pb)

			hh, ss, vv := rgbToHSV(pr, pg, pb)
			sumH += hh
			sumS += ss
			sumV += vv
		}
	}

	n := float64(w * h)
	return ChannelMeans{
		R:      sumR / n,
		G:      sumG / n,
		B:      sumB / n,
		H:      sumH / n,
		S:      sumS / n,
		V:      sumV / n,
		Pixels: w * h,
	}
}

// rgbToHSV converts 8-bit RGB values to HSV on the OpenCV 8-bit scale.
//
// Returns:
//   - h: 0-180 (go-colorful hue in degrees divided by two)
//   - s: 0-255
//   - v: 0-255
func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	hue, sat, val := c.Hsv()
	return hue / 2.0, sat * 255.0, val * 255.0
}
