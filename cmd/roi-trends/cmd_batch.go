package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/roi-trends/internal/analysis"
	"github.com/ironsheep/roi-trends/internal/export"
	"github.com/ironsheep/roi-trends/internal/extract"
	"github.com/ironsheep/roi-trends/internal/framelabel"
	"github.com/ironsheep/roi-trends/internal/pipeline"
	"github.com/ironsheep/roi-trends/internal/roi"
	"github.com/ironsheep/roi-trends/internal/series"
)

// batchFlags override configuration for run and watch.
type batchFlags struct {
	channel  string
	roiCount int
	workers  int
	fraction float64
	csvPath  string
	plotDir  string
	annotate string
	noInflux bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.channel, "channel", "", "channel backing the intensity column (r, g, b, h, s, v)")
	cmd.Flags().IntVar(&f.roiCount, "rois", 0, "number of ROIs to draw when no fixed geometry is configured")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent decode/extract workers")
	cmd.Flags().Float64Var(&f.fraction, "fraction", 0, "LOESS smoothing fraction in (0, 1]")
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "CSV output path")
	cmd.Flags().StringVar(&f.plotDir, "plots", "", "directory for trend plot PNGs")
	cmd.Flags().StringVar(&f.annotate, "annotate", "", "directory for frames with ROI outlines")
	cmd.Flags().BoolVar(&f.noInflux, "no-influx", false, "skip the InfluxDB export even when configured")
}

// apply copies set flags onto the loaded configuration and revalidates it.
func (f *batchFlags) apply(a *app) error {
	cfg := a.cfg
	if f.channel != "" {
		cfg.IntensityChannel = f.channel
	}
	if f.roiCount > 0 {
		cfg.ROICount = f.roiCount
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if f.fraction != 0 {
		cfg.Smoothing.Fraction = f.fraction
	}
	if f.csvPath != "" {
		cfg.Output.CSV = f.csvPath
	}
	if f.plotDir != "" {
		cfg.Output.PlotDir = f.plotDir
	}
	if f.annotate != "" {
		cfg.AnnotateDir = f.annotate
	}
	if f.noInflux {
		cfg.Influx.URL = ""
	}
	return cfg.Validate()
}

func (a *app) newRunCmd() *cobra.Command {
	var flags batchFlags
	var dir string

	cmd := &cobra.Command{
		Use:   "run [images...]",
		Short: "Process an ordered set of frames as one batch",
		Long: `Process frames in the order given (or, with --dir, in file name order).
ROIs come from the configuration file; when none are configured they are drawn
on the first readable frame in a selection window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(a); err != nil {
				return err
			}
			paths := args
			if dir != "" {
				listed, err := pipeline.ListFrames(dir)
				if err != nil {
					return err
				}
				paths = append(paths, listed...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no frames given: pass image paths or --dir")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			agg, err := a.newAggregator()
			if err != nil {
				return err
			}
			ts, report, err := agg.Process(ctx, paths)
			if err != nil {
				return err
			}
			return a.finish(ctx, cmd.OutOrStdout(), ts, report)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "process every frame in this directory")
	return cmd
}

func (a *app) newWatchCmd() *cobra.Command {
	var flags batchFlags
	var existing bool
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Process frames as they appear in a directory until interrupted",
		Long: `Watch a directory that a camera writes frames into. Each new frame is
measured as soon as it has been fully written. On interrupt the batch is
smoothed and exported like "run".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(a); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			agg, err := a.newAggregator()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = agg.Watch(ctx, args[0], pipeline.WatchOptions{
				Settle:          settle,
				IncludeExisting: existing,
				OnFrame: func(f series.Frame, tuples []series.Tuple) {
					for _, t := range tuples {
						fmt.Fprintf(out, "frame %d  ROI%d  %s\n", f.Index, t.ROIIndex, formatValue(t.Value(series.Intensity)))
					}
				},
			})
			if err != nil {
				return err
			}

			// The watch context is done; exports get a fresh one.
			return a.finish(context.WithoutCancel(ctx), out, agg.Series(), agg.Report())
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&existing, "existing", false, "process frames already in the directory first")
	cmd.Flags().DurationVar(&settle, "settle", pipeline.DefaultSettle, "quiet period before a new file is read")
	return cmd
}

// newAggregator wires the pipeline from configuration.
func (a *app) newAggregator() (*pipeline.Aggregator, error) {
	cfg := a.cfg

	channel, err := cfg.Channel()
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(channel)
	if err != nil {
		return nil, err
	}

	pc := pipeline.Config{
		Extractor:   extractor,
		ROICount:    cfg.ROICount,
		Viewport:    cfg.Viewport,
		Workers:     cfg.Workers,
		AnnotateDir: cfg.AnnotateDir,
		Logger:      a.logger,
	}

	if len(cfg.ROIs) > 0 {
		pc.Registry, err = roi.NewFixed(cfg.ROIs)
		if err != nil {
			return nil, err
		}
	} else {
		if !roi.InteractiveAvailable() {
			return nil, fmt.Errorf("no rois configured: %w", roi.ErrInteractiveUnavailable)
		}
		pc.Registry = roi.NewRegistry()
		pc.Selector = roi.InteractiveSelector{}
	}

	if cfg.Label.Enabled() {
		if framelabel.Available() {
			reader, err := framelabel.New(cfg.Label)
			if err != nil {
				return nil, err
			}
			pc.Labeler = reader
		} else {
			a.logger.Warn("frame labels configured but OCR is not built in", "error", framelabel.ErrUnavailable)
		}
	}

	return pipeline.New(pc)
}

// finish smooths the batch, writes every configured export and prints a
// summary. Export failures are reported together after all exports ran.
func (a *app) finish(ctx context.Context, out io.Writer, ts *series.TimeSeries, report *pipeline.Report) error {
	cfg := a.cfg
	if ts.TupleCount() == 0 {
		a.logger.Warn("no frames were processed; nothing to export", "batch", report.BatchID)
		return nil
	}

	smoothed, err := analysis.SmoothSeries(ts, cfg.Smoothing)
	if err != nil {
		return err
	}

	var errs []error
	if cfg.Output.CSV != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.CSV), 0o755); err != nil {
			errs = append(errs, &export.ExportError{Dest: cfg.Output.CSV, Err: err})
		} else if err := export.WriteCSV(cfg.Output.CSV, export.ToTable(ts, smoothed)); err != nil {
			errs = append(errs, err)
		} else {
			a.logger.Info("csv written", "path", cfg.Output.CSV)
		}
	}
	if cfg.Output.PlotDir != "" {
		plots, err := export.WritePlots(cfg.Output.PlotDir, ts, smoothed)
		if err != nil {
			errs = append(errs, err)
		} else {
			a.logger.Info("plots written", "dir", cfg.Output.PlotDir, "files", len(plots))
		}
	}
	if cfg.Influx.Enabled() {
		if err := a.writeInflux(ctx, report.BatchID, ts); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.printSummary(out, ts, report); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *app) writeInflux(ctx context.Context, batchID string, ts *series.TimeSeries) error {
	sink, err := export.NewInfluxSink(a.cfg.Influx)
	if err != nil {
		return err
	}
	defer sink.Close()

	n, err := sink.Write(ctx, batchID, ts)
	if err != nil {
		return err
	}
	a.logger.Info("influx points written", "points", n, "bucket", a.cfg.Influx.Bucket)
	return nil
}

func (a *app) printSummary(out io.Writer, ts *series.TimeSeries, report *pipeline.Report) error {
	mode, param, err := a.cfg.OnsetParam()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "batch %s: %d frames, %d processed, %d skipped\n",
		report.BatchID, report.Frames, report.Processed, report.Skipped)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROI\tGEOMETRY\tPOINTS\tONSET FRAME\tONSET VALUE")
	for _, r := range report.ROIs {
		values := ts.Values(r.Index, series.Intensity)
		onset, err := analysis.DetectColumn(values, ts.FrameIndices(r.Index), mode, param)
		frame, value := "-", "-"
		if err == nil && onset.Found {
			frame = fmt.Sprint(onset.Frame)
			value = formatValue(onset.Value)
		}
		fmt.Fprintf(tw, "%d\t%dx%d+%d+%d\t%d\t%s\t%s\n",
			r.Index, r.Width, r.Height, r.X, r.Y, len(values), frame, value)
	}
	return tw.Flush()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
