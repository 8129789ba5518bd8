// Package imaging provides the pixel-level operations behind ROI trend analysis.
//
// This package decodes frames, clamps and crops rectangular regions, computes
// per-channel means over a region, scales reference frames for display, and
// draws ROI outlines for visual debugging. All operations work with standard
// Go image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// Regions are image.Rectangle values in ORIGINAL frame coordinates:
//   - Min is inclusive (top-left)
//   - Max is exclusive (bottom-right)
//   - Regions are clamped to the frame bounds before any pixel is read
//
// # Color Representation
//
// Channel means are returned as float64 values on 8-bit scales:
//   - R, G, B: 0-255
//   - H: 0-180 (OpenCV 8-bit convention, hue degrees divided by two)
//   - S, V: 0-255
//
// A region that does not overlap the frame produces NaN for every channel
// rather than an error. Frame dimensions may vary inside a batch, and callers
// filter undefined statistics after the fact.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless. Annotate draws on a copy; DrawGrid draws on the image it is
// given, which Preview only ever passes its own scaled copy.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O and decode failures during frame loading
//   - Regions that are empty after clamping (CropRegion)
//   - Encoding failures when saving annotated frames
package imaging
