package pipeline

import "fmt"

// FrameLoadError reports a frame that could not be decoded. The frame is
// skipped; its position is still counted so later frames keep their indices.
type FrameLoadError struct {
	Index int
	Path  string
	Err   error
}

func (e *FrameLoadError) Error() string {
	return fmt.Sprintf("frame %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *FrameLoadError) Unwrap() error {
	return e.Err
}
