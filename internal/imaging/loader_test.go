package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// createTestImage writes a solid-color PNG into a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return path
}

func TestLoadFrame(t *testing.T) {
	path := createTestImage(t, 64, 48, color.RGBA{0, 0, 200, 255})

	img, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected dimensions: got %dx%d, want 64x48", img.Bounds().Dx(), img.Bounds().Dy())
	}

	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 0 || g>>8 != 0 || b>>8 != 200 {
		t.Errorf("pixel: got (%d,%d,%d), want (0,0,200)", r>>8, g>>8, b>>8)
	}
}

func TestLoadFrame_Errors(t *testing.T) {
	if _, err := LoadFrame("/nonexistent/path/to/frame.png"); err == nil {
		t.Error("LoadFrame should fail for non-existent file")
	}

	corrupt := filepath.Join(t.TempDir(), "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}
	if _, err := LoadFrame(corrupt); err == nil {
		t.Error("LoadFrame should fail for corrupt data")
	}
}

func TestIsFrameFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"a.JPG", true},
		{"dir/b.jpeg", true},
		{"c.bmp", true},
		{"d.tiff", true},
		{"e.webp", true},
		{"f.csv", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsFrameFile(tt.path); got != tt.want {
			t.Errorf("IsFrameFile(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}

	cache.Evict(imgPath)
	cache.mu.RLock()
	_, ok := cache.images[imgPath]
	cache.mu.RUnlock()
	if ok {
		t.Error("Evict did not remove image")
	}
}

func TestImageCache_Concurrent(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 20, 20, color.RGBA{0, 255, 0, 255})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(cache.images) != 1 {
		t.Errorf("cache holds %d images, want 1", len(cache.images))
	}
}

func TestImageCache_ReloadsChangedFile(t *testing.T) {
	cache := NewImageCache()
	path := createTestImage(t, 10, 10, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Overwrite in place with a different frame and a later mtime.
	replacement := image.NewRGBA(image.Rect(0, 0, 12, 8))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to reopen file: %v", err)
	}
	if err := png.Encode(f, replacement); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	img2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 == img2 {
		t.Fatal("changed file was served from the cache")
	}
	if img2.Bounds().Dx() != 12 || img2.Bounds().Dy() != 8 {
		t.Errorf("reloaded dimensions: got %dx%d, want 12x8", img2.Bounds().Dx(), img2.Bounds().Dy())
	}
}

func TestStatFrame(t *testing.T) {
	path := createTestImage(t, 30, 20, color.RGBA{1, 2, 3, 255})
	img, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}

	info, err := StatFrame(path, img)
	if err != nil {
		t.Fatalf("StatFrame failed: %v", err)
	}
	if info.Width != 30 || info.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 30x20", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("FileSizeBytes: got %d", info.FileSizeBytes)
	}
	if info.ModTime.IsZero() {
		t.Error("ModTime should be set")
	}
}
