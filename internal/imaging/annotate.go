package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Outline is a labeled rectangle to draw on a frame.
type Outline struct {
	Rect  image.Rectangle
	Label string
}

// DefaultOutlineColor is the green used for ROI outlines.
var DefaultOutlineColor = color.RGBA{0, 255, 0, 255}

// Annotate draws rectangle outlines and centered labels on a copy of a frame.
//
// The source frame is never modified, so statistics computed from it are
// unaffected by annotation. Labels are placed just above each rectangle, or
// inside the top edge when the rectangle touches the top of the frame.
func Annotate(img image.Image, outlines []Outline, c color.RGBA, thickness int) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	if thickness < 1 {
		thickness = 1
	}

	face := basicfont.Face7x13
	for _, o := range outlines {
		r := o.Rect.Canon()
		drawRect(result, r, c, thickness)

		if o.Label == "" {
			continue
		}
		d := &font.Drawer{
			Dst:  result,
			Src:  image.NewUniform(c),
			Face: face,
		}
		textW := d.MeasureString(o.Label).Ceil()
		textH := face.Metrics().Ascent.Ceil()
		x := r.Min.X + (r.Dx()-textW)/2
		y := r.Min.Y - 4
		if y < bounds.Min.Y+textH {
			y = bounds.Min.Y + textH + 2
		}
		d.Dot = fixed.P(x, y)
		d.DrawString(o.Label)
	}

	return result
}

// drawRect draws a hollow rectangle clipped to the image bounds.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		e = e.Intersect(img.Bounds())
		if e.Empty() {
			continue
		}
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

// SaveImage writes an image to disk, choosing the encoder from the extension.
//
// ".jpg" and ".jpeg" are written as JPEG at quality 95; everything else is PNG.
func SaveImage(path string, img image.Image) error {
	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(95)
	default:
		enc = imgio.PNGEncoder()
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// ParseHexColor parses a hex color string like "#00FF00" or "#00FF0080".
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}
