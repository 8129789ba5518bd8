package export

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writeRecorder struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (w *writeRecorder) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v2/write" {
		http.NotFound(rw, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	w.mu.Lock()
	w.bodies = append(w.bodies, string(body))
	w.mu.Unlock()
	rw.WriteHeader(w.status)
}

func TestPoints(t *testing.T) {
	points := Points("batch-1", sampleSeries(t))
	// 3 frames x 2 ROIs, minus ROI 2 outside frame 4.
	assert.Len(t, points, 5)
}

func TestInfluxSink_Write(t *testing.T) {
	rec := &writeRecorder{status: http.StatusNoContent}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	sink, err := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "tok", Org: "lab", Bucket: "assay"})
	require.NoError(t, err)
	defer sink.Close()

	n, err := sink.Write(context.Background(), "batch-1", sampleSeries(t))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.bodies)
	body := strings.Join(rec.bodies, "\n")
	assert.Contains(t, body, "roi_stats,batch=batch-1,roi=1,source=f1.png ")
	assert.Contains(t, body, "intensity=3")
	assert.Equal(t, 5, strings.Count(strings.TrimSpace(body), "\n")+1)
}

func TestInfluxSink_WriteFailure(t *testing.T) {
	rec := &writeRecorder{status: http.StatusBadRequest}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	sink, err := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "lab", Bucket: "assay"})
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Write(context.Background(), "batch-1", sampleSeries(t))
	var exportErr *ExportError
	require.True(t, errors.As(err, &exportErr))
	assert.Contains(t, exportErr.Dest, "assay")
}

func TestNewInfluxSink_Validation(t *testing.T) {
	_, err := NewInfluxSink(InfluxConfig{})
	assert.Error(t, err)
	_, err = NewInfluxSink(InfluxConfig{URL: "http://localhost:8086"})
	assert.Error(t, err)
}
