// Package server implements the MCP (Model Context Protocol) server that
// exposes the ROI trend pipeline as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr; stdout carries protocol traffic only.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// ROI selection and extraction:
//   - roi_preview: Viewport-scaled reference frame to draw ROIs on
//   - roi_batch_extract: Run a batch and return per-ROI series, onsets and exports
//
// Series analysis:
//   - series_smooth: LOESS smoothing
//   - series_onset: Relative or absolute onset detection
//   - series_fit: Linear or log-linear regression
//
// Exported table analysis:
//   - csv_onset: Onset detection on a CSV column
//   - csv_fit: Regression between two CSV columns
//
// # Interactive Selection Without a Window
//
// An MCP client cannot open an OpenCV window. Instead it calls roi_preview,
// draws rectangles on the returned image, and sends them back as
// display_rects. The server replays them through the same display-to-frame
// mapping the interactive selector uses.
//
// # Missing Values
//
// JSON has no NaN. Undefined values (skipped frames, ROIs outside the frame,
// p-values with no residual degrees of freedom) are encoded as null, and null
// inputs are read as missing.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
package server
