// Package config loads roi-trends settings from YAML and applies defaults and
// environment overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/roi-trends/internal/analysis"
	"github.com/ironsheep/roi-trends/internal/export"
	"github.com/ironsheep/roi-trends/internal/framelabel"
	"github.com/ironsheep/roi-trends/internal/roi"
	"github.com/ironsheep/roi-trends/internal/series"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "roi-trends.yaml"

// Environment variables that override file values.
const (
	EnvLogLevel    = "ROI_TRENDS_LOG_LEVEL"
	EnvInfluxToken = "ROI_TRENDS_INFLUX_TOKEN"
)

// Config is the complete roi-trends configuration.
type Config struct {
	// ROIs is fixed geometry. When empty, ROIs are drawn interactively on the
	// first frame of each batch.
	ROIs []roi.Rect `yaml:"rois,omitempty"`

	// ROICount is how many ROIs to draw interactively.
	ROICount int `yaml:"roi_count"`

	// Viewport bounds the interactive selection display.
	Viewport roi.Viewport `yaml:"viewport"`

	// IntensityChannel backs the intensity column (r, g, b, h, s or v).
	IntensityChannel string `yaml:"intensity_channel"`

	Smoothing analysis.SmoothOptions `yaml:"smoothing"`

	Onset struct {
		// Mode is "relative" or "absolute".
		Mode      string  `yaml:"mode"`
		Ratio     float64 `yaml:"ratio"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"onset"`

	// Workers is the number of concurrent decode/extract workers.
	Workers int `yaml:"workers"`

	// AnnotateDir receives copies of each frame with ROI outlines. Empty
	// disables annotation.
	AnnotateDir string `yaml:"annotate_dir,omitempty"`

	// Label configures caption OCR. A zero region disables it.
	Label framelabel.Config `yaml:"label"`

	Output struct {
		CSV     string `yaml:"csv"`
		PlotDir string `yaml:"plot_dir,omitempty"`
	} `yaml:"output"`

	Influx export.InfluxConfig `yaml:"influx"`

	Log struct {
		// Level is debug, info, warn or error.
		Level string `yaml:"level"`
		// Format is text or json.
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.ROICount = 1
	cfg.Viewport = roi.Viewport{Width: 1280, Height: 720}
	cfg.IntensityChannel = "b"

	cfg.Smoothing = analysis.DefaultSmoothOptions()

	cfg.Onset.Mode = string(analysis.OnsetRelative)
	cfg.Onset.Ratio = 0.05
	cfg.Onset.Threshold = 0

	cfg.Workers = runtime.NumCPU()

	cfg.Label.Language = framelabel.DefaultLanguage

	cfg.Output.CSV = "roi_trends.csv"

	cfg.Influx.Org = "lab"
	cfg.Influx.Bucket = "roi_trends"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// Load reads configuration from a YAML file on top of the defaults and then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Write encodes the configuration as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	return enc.Close()
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvInfluxToken); v != "" {
		c.Influx.Token = v
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	for i, r := range c.ROIs {
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("rois[%d]: width and height must be positive", i)
		}
	}
	if len(c.ROIs) == 0 && c.ROICount < 1 {
		return fmt.Errorf("roi_count must be at least 1")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must have positive width and height")
	}
	if _, err := c.Channel(); err != nil {
		return err
	}
	if !(c.Smoothing.Fraction > 0 && c.Smoothing.Fraction <= 1) {
		return fmt.Errorf("smoothing.fraction: %w", analysis.ErrInvalidBandwidth)
	}
	if c.Smoothing.Iterations < 0 {
		return fmt.Errorf("smoothing.iterations must not be negative")
	}
	if _, err := analysis.ParseOnsetMode(c.Onset.Mode); err != nil {
		return fmt.Errorf("onset.mode: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Channel returns the parsed intensity channel.
func (c *Config) Channel() (series.Channel, error) {
	ch, err := series.ParseChannel(c.IntensityChannel)
	if err != nil {
		return 0, fmt.Errorf("intensity_channel: %w", err)
	}
	if ch == series.Intensity {
		return 0, fmt.Errorf("intensity_channel must name a measured channel")
	}
	return ch, nil
}

// OnsetParam returns the detector mode and its parameter: the ratio for
// relative detection, the threshold for absolute detection.
func (c *Config) OnsetParam() (analysis.OnsetMode, float64, error) {
	mode, err := analysis.ParseOnsetMode(c.Onset.Mode)
	if err != nil {
		return "", 0, err
	}
	if mode == analysis.OnsetAbsolute {
		return mode, c.Onset.Threshold, nil
	}
	return mode, c.Onset.Ratio, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
