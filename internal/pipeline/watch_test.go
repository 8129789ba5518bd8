package pipeline

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/roi-trends/internal/series"
)

func writeFrame(t *testing.T, path string, blue uint8) {
	t.Helper()
	tmp := path + ".part"
	f, err := os.Create(tmp)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, shade(blue)))
	require.NoError(t, f.Close())
	require.NoError(t, os.Rename(tmp, path))
}

func TestListFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	got, err := ListFrames(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png")}, got)
}

func TestSettled(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"new.png":   now,
		"old.png":   now.Add(-time.Second),
		"older.png": now.Add(-2 * time.Second),
	}
	assert.Equal(t, []string{"older.png", "old.png"}, settled(pending, now, 500*time.Millisecond))
}

func TestWatch_ExistingThenNewFrames(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "001.png"), 10)

	agg, err := New(Config{Registry: fixedRegistry(t), Extractor: newExtractor(t), Logger: quietLogger()})
	require.NoError(t, err)

	frames := make(chan series.Frame, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- agg.Watch(ctx, dir, WatchOptions{
			Settle:          20 * time.Millisecond,
			IncludeExisting: true,
			OnFrame: func(f series.Frame, tuples []series.Tuple) {
				assert.Len(t, tuples, 2)
				frames <- f
			},
		})
	}()

	select {
	case f := <-frames:
		assert.Equal(t, 1, f.Index)
	case <-time.After(5 * time.Second):
		t.Fatal("existing frame not processed")
	}

	// The watcher is registered before existing frames are read.
	writeFrame(t, filepath.Join(dir, "002.png"), 30)

	select {
	case f := <-frames:
		assert.Equal(t, 2, f.Index)
		assert.Equal(t, filepath.Join(dir, "002.png"), f.Source)
		assert.False(t, f.Timestamp.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("new frame not processed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}

	assert.Equal(t, []float64{10, 30}, agg.Series().Values(1, series.B))
}

func TestWatch_MissingDir(t *testing.T) {
	agg, err := New(Config{Registry: fixedRegistry(t), Extractor: newExtractor(t), Logger: quietLogger()})
	require.NoError(t, err)
	err = agg.Watch(context.Background(), filepath.Join(t.TempDir(), "absent"), WatchOptions{})
	assert.Error(t, err)
}
