package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ironsheep/roi-trends/internal/series"
)

const (
	// IndexColumn holds the 1-based input position of each row.
	IndexColumn = "Image Index"

	// LabelColumn holds the OCR'd frame caption when any frame has one.
	LabelColumn = "Frame Label"

	smoothedSuffix = " (smoothed)"
)

// Table is a rectangular string table with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// ChannelTitle returns the column title of channel c. The intensity column
// is named after the channel that backs it, e.g. "Blue Intensity".
func ChannelTitle(c, intensity series.Channel) string {
	switch c {
	case series.Intensity:
		return intensityName(intensity) + " Intensity"
	case series.H:
		return "Avg H"
	case series.S:
		return "Avg S"
	case series.V:
		return "Avg V"
	case series.R:
		return "Avg R"
	case series.G:
		return "Avg G"
	case series.B:
		return "Avg B"
	}
	return c.String()
}

func intensityName(c series.Channel) string {
	switch c {
	case series.R:
		return "Red"
	case series.G:
		return "Green"
	case series.B:
		return "Blue"
	case series.H:
		return "Hue"
	case series.S:
		return "Saturation"
	case series.V:
		return "Value"
	}
	return "Blue"
}

// ColumnName returns the header of one ROI channel column.
func ColumnName(roi int, c, intensity series.Channel, smoothed bool) string {
	name := fmt.Sprintf("ROI%d %s", roi, ChannelTitle(c, intensity))
	if smoothed {
		name += smoothedSuffix
	}
	return name
}

// ToTable lays out raw and smoothed values with one row per input position
// 1..FramesSeen. Skipped frames and undefined values are empty cells.
//
// smoothed may be nil, in which case the smoothed columns are empty.
func ToTable(ts *series.TimeSeries, smoothed series.Smoothed) *Table {
	labels := make(map[int]string)
	for _, f := range ts.Frames() {
		if f.Label != "" {
			labels[f.Index] = f.Label
		}
	}

	header := []string{IndexColumn}
	if len(labels) > 0 {
		header = append(header, LabelColumn)
	}

	rois := ts.ROIs()
	var columns [][]float64
	for _, roi := range rois {
		for _, c := range series.Channels {
			header = append(header,
				ColumnName(roi, c, ts.IntensityChannel, false),
				ColumnName(roi, c, ts.IntensityChannel, true))
			columns = append(columns,
				ts.Aligned(roi, ts.Values(roi, c)),
				ts.Aligned(roi, smoothed.Get(roi, c)))
		}
	}

	n := ts.FramesSeen()
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1))
		if len(labels) > 0 {
			row = append(row, labels[i+1])
		}
		for _, col := range columns {
			row = append(row, formatCell(col[i]))
		}
		rows[i] = row
	}

	return &Table{Header: header, Rows: rows}
}

func formatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

// Floats returns the named column parsed as numbers. Empty cells are NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, cell := range cells {
		if cell == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// FrameIndices returns the Image Index column, or 1..len(Rows) when the
// table has none.
func (t *Table) FrameIndices() ([]int, error) {
	cells, err := t.Column(IndexColumn)
	if err != nil {
		out := make([]int, len(t.Rows))
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	out := make([]int, len(cells))
	for i, cell := range cells {
		v, err := strconv.Atoi(cell)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s %q", i+1, IndexColumn, cell)
		}
		out[i] = v
	}
	return out, nil
}

// WriteCSV writes the table to path. The file is written to a temporary
// sibling and renamed into place, so a failed export leaves any previous file
// intact.
func WriteCSV(path string, t *Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &ExportError{Dest: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		return &ExportError{Dest: path, Err: err}
	}
	// CreateTemp opens with 0600; exports are shared like any other output.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return &ExportError{Dest: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ExportError{Dest: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &ExportError{Dest: path, Err: err}
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV (or any CSV with a header row).
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads a table with a header row from r.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}
