package server

import (
	"encoding/json"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/roi-trends/internal/analysis"
	"github.com/ironsheep/roi-trends/internal/export"
	"github.com/ironsheep/roi-trends/internal/extract"
	"github.com/ironsheep/roi-trends/internal/imaging"
	"github.com/ironsheep/roi-trends/internal/pipeline"
	"github.com/ironsheep/roi-trends/internal/roi"
	"github.com/ironsheep/roi-trends/internal/series"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "roi_preview", "series_fit").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// ROI selection and extraction
	case "roi_preview":
		return s.handleROIPreview(args)
	case "roi_batch_extract":
		return s.handleROIBatchExtract(args)

	// Series analysis
	case "series_smooth":
		return s.handleSeriesSmooth(args)
	case "series_onset":
		return s.handleSeriesOnset(args)
	case "series_fit":
		return s.handleSeriesFit(args)

	// Exported table analysis
	case "csv_onset":
		return s.handleCSVOnset(args)
	case "csv_fit":
		return s.handleCSVFit(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// nullable maps NaN and infinities to JSON null.
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}

// fromNullable maps JSON null to NaN.
func fromNullable(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

func nullableScalar(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// === ROI Handlers ===

type roiPreviewArgs struct {
	Path      string     `json:"path"`
	MaxWidth  int        `json:"max_width"`
	MaxHeight int        `json:"max_height"`
	ROIs      []roi.Rect `json:"rois,omitempty"`

	// Grid spacing in display pixels; 0 draws no grid.
	Grid      int    `json:"grid"`
	GridColor string `json:"grid_color"`
}

// handleROIPreview returns the display-scaled reference frame. Rectangles
// drawn on it are passed back to roi_batch_extract as display_rects.
func (s *Server) handleROIPreview(args json.RawMessage) (interface{}, error) {
	var a roiPreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MaxWidth == 0 {
		a.MaxWidth = s.cfg.Viewport.Width
	}
	if a.MaxHeight == 0 {
		a.MaxHeight = s.cfg.Viewport.Height
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var frame image.Image = img
	if len(a.ROIs) > 0 {
		reg, err := roi.NewFixed(a.ROIs)
		if err != nil {
			return nil, err
		}
		frame = extract.Annotate(img, reg.ROIs())
	}

	var grid *imaging.Grid
	if a.Grid > 0 {
		grid = &imaging.Grid{Spacing: a.Grid, Labels: true}
		if a.GridColor != "" {
			c, err := imaging.ParseHexColor(a.GridColor)
			if err != nil {
				return nil, fmt.Errorf("grid_color: %w", err)
			}
			grid.Color = c
		}
	}
	return imaging.Preview(frame, a.MaxWidth, a.MaxHeight, grid)
}

type roiBatchExtractArgs struct {
	Paths []string `json:"paths"`
	Dir   string   `json:"dir"`

	// ROIs in frame coordinates.
	ROIs []roi.Rect `json:"rois"`

	// DisplayRects in the coordinates of a roi_preview with the same
	// max_width/max_height.
	DisplayRects []roi.Rect `json:"display_rects"`
	MaxWidth     int        `json:"max_width"`
	MaxHeight    int        `json:"max_height"`

	IntensityChannel string   `json:"intensity_channel"`
	Fraction         *float64 `json:"fraction"`
	Iterations       *int     `json:"iterations"`
	Workers          int      `json:"workers"`

	CSVPath     string `json:"csv_path"`
	PlotDir     string `json:"plot_dir"`
	AnnotateDir string `json:"annotate_dir"`
}

type roiSeries struct {
	ROI       roi.ROI           `json:"roi"`
	Frames    []int             `json:"frames"`
	Intensity []*float64        `json:"intensity"`
	Smoothed  []*float64        `json:"smoothed"`
	Onset     *frameOnsetResult `json:"onset"`
}

type frameOnsetResult struct {
	analysis.Onset
	Frame int `json:"frame"`
}

type batchExtractResult struct {
	BatchID   string      `json:"batch_id"`
	Frames    int         `json:"frames"`
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Warnings  []string    `json:"warnings,omitempty"`
	Channel   string      `json:"intensity_channel"`
	Series    []roiSeries `json:"series"`
	CSVPath   string      `json:"csv_path,omitempty"`
	Plots     []string    `json:"plots,omitempty"`
}

func (s *Server) handleROIBatchExtract(args json.RawMessage) (interface{}, error) {
	var a roiBatchExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	paths := a.Paths
	if a.Dir != "" {
		listed, err := pipeline.ListFrames(a.Dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames given: set paths or dir")
	}

	channelName := a.IntensityChannel
	if channelName == "" {
		channelName = s.cfg.IntensityChannel
	}
	channel, err := series.ParseChannel(channelName)
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(channel)
	if err != nil {
		return nil, err
	}

	viewport := s.cfg.Viewport
	if a.MaxWidth > 0 {
		viewport.Width = a.MaxWidth
	}
	if a.MaxHeight > 0 {
		viewport.Height = a.MaxHeight
	}

	var registry *roi.Registry
	var selector roi.Selector
	count := 0
	switch {
	case len(a.ROIs) > 0:
		registry, err = roi.NewFixed(a.ROIs)
		if err != nil {
			return nil, err
		}
	case len(a.DisplayRects) > 0:
		registry = roi.NewRegistry()
		rects := make([]image.Rectangle, len(a.DisplayRects))
		for i, r := range a.DisplayRects {
			rects[i] = image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
		}
		selector = &roi.ReplaySelector{Rects: rects}
		count = len(rects)
	default:
		return nil, fmt.Errorf("no roi geometry given: set rois or display_rects")
	}

	workers := a.Workers
	if workers == 0 {
		workers = s.cfg.Workers
	}

	agg, err := pipeline.New(pipeline.Config{
		Registry:    registry,
		Extractor:   extractor,
		Selector:    selector,
		ROICount:    count,
		Viewport:    viewport,
		Workers:     workers,
		AnnotateDir: a.AnnotateDir,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}

	ts, report, err := agg.Process(s.ctx, paths)
	// Previewed reference frames are not needed once the batch has run.
	for _, p := range paths {
		s.cache.Evict(p)
	}
	if err != nil {
		return nil, err
	}

	opts := s.cfg.Smoothing
	if a.Fraction != nil {
		opts.Fraction = *a.Fraction
	}
	if a.Iterations != nil {
		opts.Iterations = *a.Iterations
	}
	smoothed, err := analysis.SmoothSeries(ts, opts)
	if err != nil {
		return nil, err
	}

	mode, param, err := s.cfg.OnsetParam()
	if err != nil {
		return nil, err
	}

	result := &batchExtractResult{
		BatchID:   report.BatchID,
		Frames:    report.Frames,
		Processed: report.Processed,
		Skipped:   report.Skipped,
		Warnings:  report.WarningMessages(),
		Channel:   export.ChannelTitle(series.Intensity, channel),
	}

	for _, r := range report.ROIs {
		values := ts.Values(r.Index, series.Intensity)
		frames := ts.FrameIndices(r.Index)
		rs := roiSeries{
			ROI:       r,
			Frames:    frames,
			Intensity: nullable(values),
			Smoothed:  nullable(smoothed.Get(r.Index, series.Intensity)),
		}
		if onset, err := analysis.Detect(values, mode, param); err == nil && onset.Found {
			rs.Onset = &frameOnsetResult{Onset: onset, Frame: frames[onset.Index]}
		}
		result.Series = append(result.Series, rs)
	}

	if a.CSVPath != "" {
		if err := export.WriteCSV(a.CSVPath, export.ToTable(ts, smoothed)); err != nil {
			return nil, err
		}
		result.CSVPath = a.CSVPath
	}
	if a.PlotDir != "" {
		plots, err := export.WritePlots(a.PlotDir, ts, smoothed)
		if err != nil {
			return nil, err
		}
		result.Plots = plots
	}
	return result, nil
}

// === Series Handlers ===

type seriesSmoothArgs struct {
	Values     []*float64 `json:"values"`
	Fraction   *float64   `json:"fraction"`
	Iterations *int       `json:"iterations"`
}

func (s *Server) handleSeriesSmooth(args json.RawMessage) (interface{}, error) {
	var a seriesSmoothArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.cfg.Smoothing
	if a.Fraction != nil {
		opts.Fraction = *a.Fraction
	}
	if a.Iterations != nil {
		opts.Iterations = *a.Iterations
	}
	smoothed, err := analysis.SmoothFinite(fromNullable(a.Values), opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"smoothed":   nullable(smoothed),
		"fraction":   opts.Fraction,
		"iterations": opts.Iterations,
	}, nil
}

type onsetArgs struct {
	Mode      string   `json:"mode"`
	Ratio     *float64 `json:"ratio"`
	Threshold *float64 `json:"threshold"`
}

// resolve applies configured defaults and returns the detector parameter.
func (a onsetArgs) resolve(s *Server) (analysis.OnsetMode, float64, error) {
	modeName := a.Mode
	if modeName == "" {
		modeName = s.cfg.Onset.Mode
	}
	mode, err := analysis.ParseOnsetMode(modeName)
	if err != nil {
		return "", 0, err
	}
	if mode == analysis.OnsetAbsolute {
		if a.Threshold != nil {
			return mode, *a.Threshold, nil
		}
		return mode, s.cfg.Onset.Threshold, nil
	}
	if a.Ratio != nil {
		return mode, *a.Ratio, nil
	}
	return mode, s.cfg.Onset.Ratio, nil
}

type seriesOnsetArgs struct {
	Values []*float64 `json:"values"`
	onsetArgs
}

func (s *Server) handleSeriesOnset(args json.RawMessage) (interface{}, error) {
	var a seriesOnsetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, param, err := a.resolve(s)
	if err != nil {
		return nil, err
	}
	return analysis.Detect(fromNullable(a.Values), mode, param)
}

// fitResult is analysis.Result with undefined statistics as null.
type fitResult struct {
	Slope     float64  `json:"slope"`
	Intercept float64  `json:"intercept"`
	RSquared  *float64 `json:"r_squared"`
	PValue    *float64 `json:"p_value"`
	StdErr    *float64 `json:"std_err"`
	N         int      `json:"n"`
	LogY      bool     `json:"log_y"`
}

func newFitResult(r *analysis.Result) *fitResult {
	return &fitResult{
		Slope:     r.Slope,
		Intercept: r.Intercept,
		RSquared:  nullableScalar(r.RSquared),
		PValue:    nullableScalar(r.PValue),
		StdErr:    nullableScalar(r.StdErr),
		N:         r.N,
		LogY:      r.LogY,
	}
}

type seriesFitArgs struct {
	X    []*float64 `json:"x"`
	Y    []*float64 `json:"y"`
	LogY bool       `json:"log_y"`
}

func (s *Server) handleSeriesFit(args json.RawMessage) (interface{}, error) {
	var a seriesFitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	// Rows with a null on either side are dropped.
	res, err := analysis.FitColumns(fromNullable(a.X), fromNullable(a.Y), analysis.FitOptions{LogY: a.LogY})
	if err != nil {
		return nil, err
	}
	return newFitResult(res), nil
}

// === CSV Handlers ===

type csvOnsetArgs struct {
	Path   string `json:"path"`
	Column string `json:"column"`
	onsetArgs
}

func (s *Server) handleCSVOnset(args json.RawMessage) (interface{}, error) {
	var a csvOnsetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, param, err := a.resolve(s)
	if err != nil {
		return nil, err
	}
	table, err := export.ReadCSV(a.Path)
	if err != nil {
		return nil, err
	}
	values, err := table.Floats(a.Column)
	if err != nil {
		return nil, err
	}
	frames, err := table.FrameIndices()
	if err != nil {
		return nil, err
	}
	return analysis.DetectColumn(values, frames, mode, param)
}

type csvFitArgs struct {
	Path    string `json:"path"`
	XColumn string `json:"x_column"`
	YColumn string `json:"y_column"`
	LogY    bool   `json:"log_y"`
}

func (s *Server) handleCSVFit(args json.RawMessage) (interface{}, error) {
	var a csvFitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	table, err := export.ReadCSV(a.Path)
	if err != nil {
		return nil, err
	}
	x, err := table.Floats(a.XColumn)
	if err != nil {
		return nil, err
	}
	y, err := table.Floats(a.YColumn)
	if err != nil {
		return nil, err
	}
	res, err := analysis.FitColumns(x, y, analysis.FitOptions{LogY: a.LogY})
	if err != nil {
		return nil, err
	}
	return newFitResult(res), nil
}
