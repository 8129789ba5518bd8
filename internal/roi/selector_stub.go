//go:build !gocv

package roi

import (
	"context"
	"image"
)

// InteractiveSelector is unavailable in this build.
type InteractiveSelector struct{}

// Select always fails with ErrInteractiveUnavailable.
func (InteractiveSelector) Select(context.Context, image.Image, string) (image.Rectangle, error) {
	return image.Rectangle{}, ErrInteractiveUnavailable
}

// InteractiveAvailable reports whether this build can open selection windows.
func InteractiveAvailable() bool { return false }
