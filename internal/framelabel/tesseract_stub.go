//go:build !cgo || !tesseract

package framelabel

import "image"

// Available reports whether this build can run OCR.
func Available() bool { return false }

// Label always fails with ErrUnavailable.
func (r *Reader) Label(img image.Image) (string, error) {
	if _, err := r.captionPNG(img); err != nil {
		return "", err
	}
	return "", ErrUnavailable
}
