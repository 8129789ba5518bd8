package imaging

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func TestAnnotate_DrawsOutlineOnCopy(t *testing.T) {
	src := createInMemoryImage(100, 100, color.RGBA{0, 0, 0, 255})
	rect := image.Rect(20, 30, 60, 70)

	out := Annotate(src, []Outline{{Rect: rect, Label: "ROI 1"}}, DefaultOutlineColor, 2)

	// Outline pixels are green.
	for _, p := range []image.Point{{20, 30}, {59, 69}, {21, 50}, {40, 31}} {
		if got := out.RGBAAt(p.X, p.Y); got != DefaultOutlineColor {
			t.Errorf("outline pixel %v: got %v, want %v", p, got, DefaultOutlineColor)
		}
	}

	// Interior untouched.
	if got := out.RGBAAt(40, 50); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("interior pixel: got %v, want black", got)
	}

	// Source untouched.
	r, g, b, _ := src.At(20, 30).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("Annotate modified the source image")
	}
}

func TestAnnotate_DoesNotChangeStatistics(t *testing.T) {
	src := createPatternImage(80, 80)
	rect := image.Rect(10, 10, 50, 50)

	before := MeanChannels(src, rect)
	_ = Annotate(src, []Outline{{Rect: rect, Label: "ROI 1"}}, DefaultOutlineColor, 3)
	after := MeanChannels(src, rect)

	if before != after {
		t.Errorf("statistics changed after annotation: %+v vs %+v", before, after)
	}
}

func TestAnnotate_ClipsOutsideFrame(t *testing.T) {
	src := createInMemoryImage(50, 50, color.RGBA{0, 0, 0, 255})
	// Should not panic for rectangles partly or fully outside the frame.
	_ = Annotate(src, []Outline{
		{Rect: image.Rect(40, 40, 90, 90), Label: "ROI 1"},
		{Rect: image.Rect(200, 200, 210, 210), Label: "ROI 2"},
	}, DefaultOutlineColor, 2)
}

func TestSaveImage(t *testing.T) {
	src := createInMemoryImage(20, 20, color.RGBA{0, 128, 0, 255})
	dir := t.TempDir()

	for _, name := range []string{"a.png", "b.jpg"} {
		path := filepath.Join(dir, name)
		if err := SaveImage(path, src); err != nil {
			t.Fatalf("SaveImage(%s) failed: %v", name, err)
		}
		if _, err := LoadFrame(path); err != nil {
			t.Errorf("saved %s not decodable: %v", name, err)
		}
	}

	if err := SaveImage(filepath.Join(dir, "missing", "c.png"), src); err == nil {
		t.Error("SaveImage should fail for unwritable destination")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"FF000080", color.RGBA{255, 0, 0, 128}, false},
		{"#123", color.RGBA{}, true},
		{"", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
