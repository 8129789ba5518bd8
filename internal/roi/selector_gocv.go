//go:build gocv

package roi

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// InteractiveSelector lets an operator drag rectangles in an OpenCV window.
//
// Press ENTER or SPACE to confirm a rectangle; ESC or c cancels, which yields
// an empty rectangle and aborts the batch.
type InteractiveSelector struct{}

// Select opens a window titled with prompt and blocks until the operator
// confirms or cancels.
func (InteractiveSelector) Select(_ context.Context, display image.Image, prompt string) (image.Rectangle, error) {
	mat, err := gocv.ImageToMatRGB(display)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("failed to convert frame for display: %w", err)
	}
	defer mat.Close()

	win := gocv.NewWindow(prompt)
	defer win.Close()

	return win.SelectROI(mat), nil
}

// InteractiveAvailable reports whether this build can open selection windows.
func InteractiveAvailable() bool { return true }
