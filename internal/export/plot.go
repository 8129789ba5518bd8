package export

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ironsheep/roi-trends/internal/series"
)

// PlotGroup is one output figure: a stack of channel tiles.
type PlotGroup struct {
	Name     string
	Channels []series.Channel
}

// PlotGroups lists the figures written by WritePlots.
var PlotGroups = []PlotGroup{
	{Name: "intensity", Channels: []series.Channel{series.Intensity}},
	{Name: "rgb", Channels: []series.Channel{series.R, series.G, series.B}},
	{Name: "hsv", Channels: []series.Channel{series.H, series.S, series.V}},
}

const (
	tileWidth  = 8 * vg.Inch
	tileHeight = 3 * vg.Inch

	// Channel statistics are 8-bit means.
	yMin = 0
	yMax = 255
)

// WritePlots renders one PNG per channel group into dir and returns the
// written paths. Each tile shows, per ROI, the raw values as a solid line
// with points and the smoothed values as a dashed line.
func WritePlots(dir string, ts *series.TimeSeries, smoothed series.Smoothed) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ExportError{Dest: dir, Err: err}
	}

	paths := make([]string, 0, len(PlotGroups))
	for _, group := range PlotGroups {
		path := filepath.Join(dir, group.Name+".png")
		if err := writeGroup(path, group, ts, smoothed); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeGroup(path string, group PlotGroup, ts *series.TimeSeries, smoothed series.Smoothed) error {
	plots := make([][]*plot.Plot, len(group.Channels))
	for i, c := range group.Channels {
		p, err := channelPlot(c, ts, smoothed)
		if err != nil {
			return &ExportError{Dest: path, Err: err}
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(tileWidth, tileHeight*vg.Length(len(plots)))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Dest: path, Err: err}
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return &ExportError{Dest: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ExportError{Dest: path, Err: err}
	}
	return nil
}

func channelPlot(c series.Channel, ts *series.TimeSeries, smoothed series.Smoothed) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = ChannelTitle(c, ts.IntensityChannel)
	p.X.Label.Text = IndexColumn
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())

	for i, roi := range ts.ROIs() {
		frames := ts.FrameIndices(roi)
		col := plotutil.Color(i)

		raw := points(frames, ts.Values(roi, c))
		if len(raw) > 0 {
			line, scatter, err := plotter.NewLinePoints(raw)
			if err != nil {
				return nil, fmt.Errorf("roi %d raw %s: %w", roi, c, err)
			}
			line.Color = col
			scatter.Color = col
			scatter.Radius = vg.Points(2)
			p.Add(line, scatter)
			p.Legend.Add(fmt.Sprintf("ROI %d", roi), line, scatter)
		}

		sm := points(frames, smoothed.Get(roi, c))
		if len(sm) > 0 {
			line, err := plotter.NewLine(sm)
			if err != nil {
				return nil, fmt.Errorf("roi %d smoothed %s: %w", roi, c, err)
			}
			line.Color = fade(col)
			line.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
			p.Add(line)
			p.Legend.Add(fmt.Sprintf("ROI %d (smoothed)", roi), line)
		}
	}

	// Fixed after Add, which widens the range to the data.
	p.Y.Min = yMin
	p.Y.Max = yMax
	p.Legend.Top = true
	return p, nil
}

// points pairs frame indices with values, skipping NaN entries.
func points(frames []int, values []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if i >= len(frames) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(frames[i]), Y: v})
	}
	return xys
}

func fade(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 160}
}
