// Package framelabel reads the caption a camera burns into each frame
// (a timestamp or well identifier) with Tesseract OCR.
//
// # Prerequisites
//
// OCR needs the tesseract build tag (go build -tags tesseract), cgo, and a
// Tesseract installation with language data:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Other builds compile a Reader whose Label always fails with ErrUnavailable.
package framelabel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"unicode"

	"github.com/ironsheep/roi-trends/internal/imaging"
	"github.com/ironsheep/roi-trends/internal/roi"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ErrUnavailable is returned by Label in builds without OCR support.
var ErrUnavailable = errors.New("frame label OCR requires a cgo build with the tesseract tag")

// Config locates the caption.
type Config struct {
	// Region is the caption rectangle in frame coordinates.
	Region roi.Rect `yaml:"region" json:"region"`

	// Language is a Tesseract language code, e.g. "eng".
	Language string `yaml:"language" json:"language"`
}

// Enabled reports whether a caption region is configured.
func (c Config) Enabled() bool {
	return c.Region.W > 0 && c.Region.H > 0
}

// Reader extracts the caption text of a frame. It is safe for concurrent
// use; every call creates its own Tesseract client.
type Reader struct {
	region   image.Rectangle
	language string
}

// New validates cfg and returns a Reader.
func New(cfg Config) (*Reader, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("caption region must have positive width and height")
	}
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	r := cfg.Region
	return &Reader{
		region:   image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H),
		language: lang,
	}, nil
}

// captionPNG crops the caption region and encodes it for Tesseract.
func (r *Reader) captionPNG(img image.Image) ([]byte, error) {
	crop, err := imaging.CropRegion(img, r.region)
	if err != nil {
		return nil, fmt.Errorf("caption region: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, fmt.Errorf("failed to encode caption: %w", err)
	}
	return buf.Bytes(), nil
}

// Clean collapses OCR output to a single trimmed line.
func Clean(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	})
	return strings.Join(fields, " ")
}
