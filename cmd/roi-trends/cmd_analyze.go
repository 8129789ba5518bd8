package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/roi-trends/internal/analysis"
	"github.com/ironsheep/roi-trends/internal/export"
	"github.com/ironsheep/roi-trends/internal/server"
)

func (a *app) newOnsetCmd() *cobra.Command {
	var column, mode string
	var ratio, threshold float64

	cmd := &cobra.Command{
		Use:   "onset <csv>",
		Short: "Find the first frame where a CSV column rises",
		Long: `Scan one column of an exported CSV for its onset. Empty cells are skipped.

  relative: first value above (1+ratio) times the mean of all earlier values
  absolute: first value above threshold`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "" {
				a.cfg.Onset.Mode = mode
			}
			if cmd.Flags().Changed("ratio") {
				a.cfg.Onset.Ratio = ratio
			}
			if cmd.Flags().Changed("threshold") {
				a.cfg.Onset.Threshold = threshold
			}
			m, param, err := a.cfg.OnsetParam()
			if err != nil {
				return err
			}

			table, err := export.ReadCSV(args[0])
			if err != nil {
				return err
			}
			values, err := table.Floats(column)
			if err != nil {
				return err
			}
			frames, err := table.FrameIndices()
			if err != nil {
				return err
			}

			onset, err := analysis.DetectColumn(values, frames, m, param)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !onset.Found {
				fmt.Fprintf(out, "%s: no onset (%s, %g)\n", column, m, param)
				return nil
			}
			fmt.Fprintf(out, "%s: onset at frame %d (row %d), value %.4g, baseline %.4g\n",
				column, onset.Frame, onset.Position+1, onset.Value, onset.Baseline)
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "column header to scan")
	cmd.Flags().StringVar(&mode, "mode", "", "relative or absolute (default from config)")
	cmd.Flags().Float64Var(&ratio, "ratio", 0, "relative rise over the running mean, e.g. 0.05")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "absolute threshold")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func (a *app) newFitCmd() *cobra.Command {
	var xColumn, yColumn string
	var logY bool

	cmd := &cobra.Command{
		Use:   "fit <csv>",
		Short: "Fit a straight line between two CSV columns",
		Long: `Ordinary least squares fit of --y against --x. Rows with an empty cell in
either column are dropped. --log-y fits log10(y) for exponential trends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := export.ReadCSV(args[0])
			if err != nil {
				return err
			}
			x, err := table.Floats(xColumn)
			if err != nil {
				return err
			}
			y, err := table.Floats(yColumn)
			if err != nil {
				return err
			}

			res, err := analysis.FitColumns(x, y, analysis.FitOptions{LogY: logY})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			target := yColumn
			if logY {
				target = "log10(" + yColumn + ")"
			}
			fmt.Fprintf(out, "%s = %.6g + %.6g * %s\n", target, res.Intercept, res.Slope, xColumn)
			fmt.Fprintf(out, "  n         %d\n", res.N)
			fmt.Fprintf(out, "  r squared %s\n", formatStat(res.RSquared))
			fmt.Fprintf(out, "  std err   %s\n", formatStat(res.StdErr))
			fmt.Fprintf(out, "  p-value   %s\n", formatStat(res.PValue))
			return nil
		},
	}
	cmd.Flags().StringVar(&xColumn, "x", export.IndexColumn, "independent column")
	cmd.Flags().StringVar(&yColumn, "y", "", "dependent column")
	cmd.Flags().BoolVar(&logY, "log-y", false, "fit log10 of the dependent column")
	_ = cmd.MarkFlagRequired("y")
	return cmd
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return fmt.Sprintf("%.6g", v)
}

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline as MCP tools over stdin/stdout",
		Long: `Run an MCP (Model Context Protocol) server on stdin/stdout. Configure it
in your MCP client; logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("mcp server starting", "version", Version, "commit", GitCommit)
			srv := server.New(a.cfg, a.logger, Version)
			return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
