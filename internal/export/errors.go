// Package export writes time series as CSV tables, channel plots and
// time-series database points.
package export

import "fmt"

// ExportError reports a failed write to Dest. In-memory data is never
// modified by a failed export, so the write can be retried.
type ExportError struct {
	Dest string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Dest, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
