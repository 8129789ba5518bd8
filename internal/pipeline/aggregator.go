// Package pipeline drives a batch of frames through ROI selection and
// statistics extraction into a time series.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/roi-trends/internal/extract"
	"github.com/ironsheep/roi-trends/internal/imaging"
	"github.com/ironsheep/roi-trends/internal/roi"
	"github.com/ironsheep/roi-trends/internal/series"
)

// Decoder loads one frame.
type Decoder func(path string) (image.Image, error)

// Labeler reads a caption from a frame.
type Labeler interface {
	Label(img image.Image) (string, error)
}

// Config wires an Aggregator.
type Config struct {
	// Registry holds the batch ROIs. A registry that is already Selected
	// (fixed geometry) is kept across batches; otherwise it is reset and
	// the Selector is consulted on the first decodable frame of each batch.
	Registry *roi.Registry

	Extractor *extract.Extractor

	// Selector draws ROIs when the registry is Unselected.
	Selector roi.Selector

	// ROICount is the number of ROIs to select.
	ROICount int

	// Viewport bounds the selection display.
	Viewport roi.Viewport

	// Decode defaults to imaging.LoadFrame.
	Decode Decoder

	// Labeler is optional. Caption failures are logged, not fatal.
	Labeler Labeler

	// Workers > 1 decodes and extracts frames concurrently once ROIs exist.
	Workers int

	// AnnotateDir, when set, receives a copy of every frame with its ROIs
	// outlined.
	AnnotateDir string

	Logger *slog.Logger
}

// Report summarizes a batch.
type Report struct {
	BatchID   string    `json:"batch_id"`
	Frames    int       `json:"frames"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	ROIs      []roi.ROI `json:"rois"`

	// Warnings holds one *FrameLoadError per skipped frame.
	Warnings []error `json:"-"`
}

// WarningMessages returns the warnings as strings.
func (r *Report) WarningMessages() []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Error()
	}
	return out
}

// Aggregator is the single writer of a batch time series.
//
// An Aggregator is not safe for concurrent use; Process, Begin and Add must
// be called from one goroutine. Concurrency inside Process is internal.
type Aggregator struct {
	cfg    Config
	fixed  bool
	logger *slog.Logger

	ts       *series.TimeSeries
	report   *Report
	position int
}

// New validates cfg and returns an Aggregator with an empty batch started.
func New(cfg Config) (*Aggregator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("pipeline: registry is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("pipeline: extractor is required")
	}
	if !cfg.Registry.IsDefined() && cfg.ROICount < 1 {
		return nil, fmt.Errorf("pipeline: roi count must be at least 1")
	}
	if cfg.Decode == nil {
		cfg.Decode = imaging.LoadFrame
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.AnnotateDir != "" {
		if err := os.MkdirAll(cfg.AnnotateDir, 0o755); err != nil {
			return nil, fmt.Errorf("pipeline: annotate dir: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Aggregator{
		cfg:    cfg,
		fixed:  cfg.Registry.IsDefined(),
		logger: logger,
	}
	a.Begin()
	return a, nil
}

// Begin starts a new batch: a fresh series and batch id, positions restarting
// at 1, and (unless geometry is fixed) ROIs to be selected again.
func (a *Aggregator) Begin() {
	if !a.fixed {
		a.cfg.Registry.Reset()
	}
	a.ts = series.New(a.cfg.Extractor.IntensityChannel)
	a.report = &Report{BatchID: uuid.NewString()}
	a.position = 0
}

// Series returns the current batch series.
func (a *Aggregator) Series() *series.TimeSeries { return a.ts }

// Report returns the current batch report.
func (a *Aggregator) Report() *Report { return a.report }

// Process runs paths as a new batch in input order.
//
// Decode failures are recorded as warnings and skipped. If ROI selection is
// aborted the batch is discarded and the returned series is empty.
func (a *Aggregator) Process(ctx context.Context, paths []string) (*series.TimeSeries, *Report, error) {
	a.Begin()
	a.logger.Info("batch started", "batch", a.report.BatchID, "frames", len(paths), "workers", a.cfg.Workers)

	rest := paths
	for !a.cfg.Registry.IsDefined() && len(rest) > 0 {
		if err := a.Add(ctx, rest[0]); err != nil {
			return a.abort(err)
		}
		rest = rest[1:]
	}

	var err error
	if a.cfg.Workers > 1 && len(rest) > 1 {
		err = a.addConcurrent(ctx, rest)
	} else {
		for _, path := range rest {
			if err = a.Add(ctx, path); err != nil {
				break
			}
		}
	}
	if err != nil {
		return a.abort(err)
	}

	a.logger.Info("batch finished",
		"batch", a.report.BatchID,
		"processed", a.report.Processed,
		"skipped", a.report.Skipped,
		"tuples", a.ts.TupleCount())
	return a.ts, a.report, nil
}

func (a *Aggregator) abort(err error) (*series.TimeSeries, *Report, error) {
	if errors.Is(err, roi.ErrSelectionAborted) {
		a.logger.Warn("batch aborted", "batch", a.report.BatchID, "error", err)
		a.ts = series.New(a.cfg.Extractor.IntensityChannel)
	}
	return a.ts, a.report, err
}

// Add processes one frame at the next input position of the current batch.
//
// A decode failure is recorded and returns nil. The error is non-nil only when
// the batch cannot continue: ROI selection was aborted or ctx is done.
func (a *Aggregator) Add(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.position++
	pos := a.position

	img, err := a.load(pos, path)
	if err != nil {
		a.skip(err)
		return nil
	}

	if !a.cfg.Registry.IsDefined() {
		rois, err := a.cfg.Registry.Define(ctx, img, a.cfg.ROICount, a.cfg.Selector, a.cfg.Viewport)
		if err != nil {
			return err
		}
		a.logger.Info("rois defined", "count", len(rois), "display_scale", a.cfg.Registry.Scale())
		for _, r := range rois {
			a.logger.Info("roi selected", "roi", r.Index, "x", r.X, "y", r.Y, "width", r.Width, "height", r.Height)
		}
	}

	frame, tuples := a.measure(pos, path, img)
	return a.commit(frame, tuples)
}

// frameResult is the outcome of one frame in the concurrent map phase.
type frameResult struct {
	frame  series.Frame
	tuples []series.Tuple
	err    error
}

// addConcurrent decodes and extracts frames on a bounded worker pool and
// commits the results in input order.
func (a *Aggregator) addConcurrent(ctx context.Context, paths []string) error {
	base := a.position
	results := make([]frameResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pos := base + i + 1
			img, err := a.load(pos, path)
			if err != nil {
				results[i] = frameResult{err: err}
				return nil
			}
			frame, tuples := a.measure(pos, path, img)
			results[i] = frameResult{frame: frame, tuples: tuples}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		a.position++
		if res.err != nil {
			a.skip(res.err)
			continue
		}
		if err := a.commit(res.frame, res.tuples); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) load(pos int, path string) (image.Image, error) {
	img, err := a.cfg.Decode(path)
	if err != nil {
		return nil, &FrameLoadError{Index: pos, Path: path, Err: err}
	}
	return img, nil
}

// measure extracts statistics and the optional caption and annotation. It
// reads only immutable state and is safe to call from workers.
func (a *Aggregator) measure(pos int, path string, img image.Image) (series.Frame, []series.Tuple) {
	rois := a.cfg.Registry.ROIs()
	tuples := a.cfg.Extractor.Extract(pos, img, rois)

	frame := series.Frame{Index: pos, Source: path}
	if info, err := imaging.StatFrame(path, img); err == nil {
		frame.Timestamp = info.ModTime
		a.logger.Debug("frame decoded", "frame", pos, "format", info.Format, "width", info.Width, "height", info.Height)
	} else {
		a.logger.Debug("frame timestamp unavailable", "frame", pos, "path", path, "error", err)
	}

	if a.cfg.Labeler != nil {
		label, err := a.cfg.Labeler.Label(img)
		if err != nil {
			a.logger.Warn("frame label unreadable", "frame", pos, "path", path, "error", err)
		} else {
			frame.Label = label
		}
	}

	if a.cfg.AnnotateDir != "" {
		dest := filepath.Join(a.cfg.AnnotateDir, annotatedName(pos, path))
		if err := imaging.SaveImage(dest, extract.Annotate(img, rois)); err != nil {
			a.logger.Warn("annotated frame not saved", "frame", pos, "path", dest, "error", err)
		}
	}

	for _, t := range tuples {
		if !t.Defined() {
			a.logger.Debug("roi outside frame", "frame", pos, "roi", t.ROIIndex)
		}
	}
	return frame, tuples
}

func (a *Aggregator) commit(frame series.Frame, tuples []series.Tuple) error {
	if err := a.ts.Append(frame, tuples); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.report.Frames = a.position
	a.report.Processed++
	a.report.ROIs = a.cfg.Registry.ROIs()
	a.logger.Debug("frame processed", "frame", frame.Index, "path", frame.Source, "tuples", len(tuples))
	return nil
}

func (a *Aggregator) skip(err error) {
	a.ts.Observe(a.position)
	a.report.Frames = a.position
	a.report.Skipped++
	a.report.Warnings = append(a.report.Warnings, err)
	a.logger.Warn("frame skipped", "error", err)
}

// annotatedName keeps the source extension so SaveImage picks the encoder.
func annotatedName(pos int, path string) string {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
	}
	return fmt.Sprintf("%04d_%s", pos, base)
}
