package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createInMemoryImage creates an in-memory test image
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMeanChannels_SolidColor(t *testing.T) {
	img := createInMemoryImage(40, 30, color.RGBA{255, 128, 64, 255})

	m := MeanChannels(img, image.Rect(5, 5, 25, 20))
	if m.Pixels == 0 {
		t.Fatal("expected valid means")
	}
	if m.Pixels != 20*15 {
		t.Errorf("Pixels: got %d, want %d", m.Pixels, 20*15)
	}
	if !approxEqual(m.R, 255) || !approxEqual(m.G, 128) || !approxEqual(m.B, 64) {
		t.Errorf("RGB: got (%.2f,%.2f,%.2f), want (255,128,64)", m.R, m.G, m.B)
	}

	wantH, wantS, wantV := rgbToHSV(255, 128, 64)
	if !approxEqual(m.H, wantH) || !approxEqual(m.S, wantS) || !approxEqual(m.V, wantV) {
		t.Errorf("HSV: got (%.2f,%.2f,%.2f), want (%.2f,%.2f,%.2f)", m.H, m.S, m.V, wantH, wantS, wantV)
	}
}

func TestRGBToHSV_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v float64
	}{
		{"pure red", 255, 0, 0, 0, 255, 255},
		{"pure green", 0, 255, 0, 60, 255, 255},
		{"pure blue", 0, 0, 255, 120, 255, 255},
		{"white", 255, 255, 255, 0, 0, 255},
		{"black", 0, 0, 0, 0, 0, 0},
		{"yellow", 255, 255, 0, 30, 255, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := rgbToHSV(tt.r, tt.g, tt.b)
			if math.Abs(h-tt.h) > 1e-6 || math.Abs(s-tt.s) > 1e-6 || math.Abs(v-tt.v) > 1e-6 {
				t.Errorf("got (%.3f,%.3f,%.3f), want (%.3f,%.3f,%.3f)", h, s, v, tt.h, tt.s, tt.v)
			}
		})
	}
}

func TestMeanChannels_Quadrants(t *testing.T) {
	img := createPatternImage(100, 100)

	// Whole image: mean of red, green, blue and white quadrants.
	m := MeanChannels(img, img.Bounds())
	if !approxEqual(m.R, 127.5) || !approxEqual(m.G, 127.5) || !approxEqual(m.B, 127.5) {
		t.Errorf("RGB: got (%.2f,%.2f,%.2f), want 127.5 each", m.R, m.G, m.B)
	}

	// Hue: red 0, green 60, blue 120, white 0 -> 45.
	if !approxEqual(m.H, 45) {
		t.Errorf("H: got %.3f, want 45", m.H)
	}
	// Saturation: 255, 255, 255, 0.
	if !approxEqual(m.S, 191.25) {
		t.Errorf("S: got %.3f, want 191.25", m.S)
	}
	if !approxEqual(m.V, 255) {
		t.Errorf("V: got %.3f, want 255", m.V)
	}
}

func TestMeanChannels_ClampsPartialOverlap(t *testing.T) {
	img := createPatternImage(100, 100)

	// Hangs off the left and top edges; only the red quadrant overlaps.
	m := MeanChannels(img, image.Rect(-20, -20, 30, 30))
	if m.Pixels != 30*30 {
		t.Fatalf("Pixels: got %d, want %d", m.Pixels, 30*30)
	}
	if !approxEqual(m.R, 255) || !approxEqual(m.G, 0) || !approxEqual(m.B, 0) {
		t.Errorf("RGB: got (%.2f,%.2f,%.2f), want (255,0,0)", m.R, m.G, m.B)
	}
}

func TestMeanChannels_OutsideFrame(t *testing.T) {
	img := createInMemoryImage(50, 50, color.RGBA{10, 20, 30, 255})

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"right of frame", image.Rect(60, 0, 80, 20)},
		{"below frame", image.Rect(0, 50, 20, 70)},
		{"negative", image.Rect(-30, -30, -1, -1)},
		{"empty", image.Rect(10, 10, 10, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MeanChannels(img, tt.rect)
			if m.Pixels != 0 {
				t.Fatal("expected undefined means")
			}
			for name, v := range map[string]float64{"R": m.R, "G": m.G, "B": m.B, "H": m.H, "S": m.S, "V": m.V} {
				if !math.IsNaN(v) {
					t.Errorf("%s: got %v, want NaN", name, v)
				}
			}
		})
	}
}

func TestMeanChannels_Range(t *testing.T) {
	// Gradient image; every mean must stay inside the 8-bit domain.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), uint8((x + y) * 2), 255})
		}
	}

	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 64, 64),
		image.Rect(3, 7, 19, 40),
		image.Rect(60, 60, 64, 64),
	} {
		m := MeanChannels(img, r)
		for _, v := range []float64{m.R, m.G, m.B, m.S, m.V} {
			if v < 0 || v > 255 {
				t.Errorf("rect %v: channel mean %v outside [0,255]", r, v)
			}
		}
		if m.H < 0 || m.H >= 180 {
			t.Errorf("rect %v: hue mean %v outside [0,180)", r, m.H)
		}
	}
}
