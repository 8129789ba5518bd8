//go:build cgo && tesseract

package framelabel

import (
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"
)

// Available reports whether this build can run OCR.
func Available() bool { return true }

// Label returns the cleaned caption text of img.
func (r *Reader) Label(img image.Image) (string, error) {
	data, err := r.captionPNG(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", fmt.Errorf("failed to set page segmentation: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return Clean(text), nil
}
