package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Grid is a coordinate grid drawn over a preview so rectangles can be read
// off in display coordinates.
type Grid struct {
	// Spacing between lines in pixels. Zero or negative draws nothing.
	Spacing int

	// Color of the lines. A zero color uses DefaultGridColor.
	Color color.RGBA

	// Labels prints "x,y" at every intersection.
	Labels bool
}

// DefaultGridColor is a semi-transparent red.
var DefaultGridColor = color.RGBA{255, 0, 0, 160}

// DrawGrid draws g onto img in place. Coordinates are relative to
// img.Bounds().Min.
func DrawGrid(img draw.Image, g Grid) {
	if g.Spacing <= 0 {
		return
	}
	c := g.Color
	if c == (color.RGBA{}) {
		c = DefaultGridColor
	}
	src := image.NewUniform(c)
	b := img.Bounds()

	for x := g.Spacing; x < b.Dx(); x += g.Spacing {
		line := image.Rect(b.Min.X+x, b.Min.Y, b.Min.X+x+1, b.Max.Y)
		draw.Draw(img, line, src, image.Point{}, draw.Over)
	}
	for y := g.Spacing; y < b.Dy(); y += g.Spacing {
		line := image.Rect(b.Min.X, b.Min.Y+y, b.Max.X, b.Min.Y+y+1)
		draw.Draw(img, line, src, image.Point{}, draw.Over)
	}

	if !g.Labels {
		return
	}
	for y := g.Spacing; y < b.Dy(); y += g.Spacing {
		for x := g.Spacing; x < b.Dx(); x += g.Spacing {
			drawLabel(img, b.Min.X+x+2, b.Min.Y+y+2, fmt.Sprintf("%d,%d", x, y))
		}
	}
}

// drawLabel writes text in white on a dark box whose top-left corner is (x, y).
func drawLabel(img draw.Image, x, y int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: face,
	}
	w := d.MeasureString(text).Ceil()
	m := face.Metrics()
	h := (m.Ascent + m.Descent).Ceil()

	box := image.Rect(x-1, y-1, x+w+1, y+h).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(color.RGBA{0, 0, 0, 180}), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y+m.Ascent.Ceil())
	d.DrawString(text)
}
