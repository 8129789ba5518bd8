package export

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ironsheep/roi-trends/internal/series"
)

// Measurement is the InfluxDB measurement written by InfluxSink.
const Measurement = "roi_stats"

// InfluxConfig addresses an InfluxDB 2.x bucket.
type InfluxConfig struct {
	URL    string `yaml:"url" json:"url"`
	Token  string `yaml:"token" json:"-"`
	Org    string `yaml:"org" json:"org"`
	Bucket string `yaml:"bucket" json:"bucket"`
}

// Enabled reports whether a destination is configured.
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

// InfluxSink writes statistic tuples as InfluxDB points.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	dest   string
}

// NewInfluxSink creates a sink writing synchronously to cfg's bucket.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("influx url is not configured")
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		dest:   fmt.Sprintf("%s/%s", cfg.URL, cfg.Bucket),
	}, nil
}

// Points converts ts into one point per defined tuple. Tags are roi, batch
// and source (frame file name); fields are the channel means; the timestamp
// is the frame capture time, or now when unknown.
func Points(batchID string, ts *series.TimeSeries) []*write.Point {
	frames := make(map[int]series.Frame, ts.Len())
	for _, f := range ts.Frames() {
		frames[f.Index] = f
	}

	now := time.Now()
	var points []*write.Point
	for _, roi := range ts.ROIs() {
		for _, t := range ts.Tuples(roi) {
			if !t.Defined() {
				continue
			}
			f := frames[t.FrameIndex]
			stamp := f.Timestamp
			if stamp.IsZero() {
				stamp = now
			}

			fields := map[string]interface{}{
				"frame": t.FrameIndex,
			}
			for _, c := range series.Channels {
				if v := t.Value(c); !math.IsNaN(v) {
					fields[c.String()] = v
				}
			}

			tags := map[string]string{
				"roi":   strconv.Itoa(roi),
				"batch": batchID,
			}
			if f.Source != "" {
				tags["source"] = filepath.Base(f.Source)
			}
			if f.Label != "" {
				tags["label"] = f.Label
			}

			points = append(points, influxdb2.NewPoint(Measurement, tags, fields, stamp))
		}
	}
	return points
}

// Write sends every defined tuple of ts and returns the number of points.
func (s *InfluxSink) Write(ctx context.Context, batchID string, ts *series.TimeSeries) (int, error) {
	points := Points(batchID, ts)
	if len(points) == 0 {
		return 0, nil
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return 0, &ExportError{Dest: s.dest, Err: err}
	}
	return len(points), nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
