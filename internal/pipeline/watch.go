package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ironsheep/roi-trends/internal/imaging"
	"github.com/ironsheep/roi-trends/internal/series"
)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Settle is how long a new file must go without writes before it is
	// read, so frames still being written by the camera are not decoded
	// half-finished.
	Settle time.Duration

	// IncludeExisting processes frames already in the directory, in name
	// order, before waiting for new ones.
	IncludeExisting bool

	// OnFrame is called after every successfully processed frame.
	OnFrame func(series.Frame, []series.Tuple)
}

// DefaultSettle is the default quiet period for new files.
const DefaultSettle = 500 * time.Millisecond

// Watch feeds image files created in dir into the current batch until ctx is
// done. Files are processed in the order they settle; ties are broken by name.
//
// Watch returns nil when ctx is cancelled, and the batch error when ROI
// selection is aborted.
func (a *Aggregator) Watch(ctx context.Context, dir string, opts WatchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	a.logger.Info("watching for frames", "dir", dir, "batch", a.report.BatchID)

	seen := make(map[string]bool)
	add := func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true
		before := a.report.Processed
		if err := a.Add(ctx, path); err != nil {
			return err
		}
		if opts.OnFrame != nil && a.report.Processed > before {
			frames := a.ts.Frames()
			last := frames[len(frames)-1]
			opts.OnFrame(last, a.frameTuples(last.Index))
		}
		return nil
	}

	if opts.IncludeExisting {
		existing, err := ListFrames(dir)
		if err != nil {
			return err
		}
		for _, path := range existing {
			if err := add(path); err != nil {
				return ignoreCancel(err)
			}
		}
	}

	pending := make(map[string]time.Time)
	tick := opts.Settle / 2
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !imaging.IsFrameFile(event.Name) || seen[event.Name] {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "dir", dir, "error", err)

		case now := <-ticker.C:
			for _, path := range settled(pending, now, opts.Settle) {
				delete(pending, path)
				if err := add(path); err != nil {
					return ignoreCancel(err)
				}
			}
		}
	}
}

// frameTuples returns the tuples committed for frame index, in ROI order.
func (a *Aggregator) frameTuples(index int) []series.Tuple {
	var out []series.Tuple
	for _, r := range a.ts.ROIs() {
		tuples := a.ts.Tuples(r)
		if n := len(tuples); n > 0 && tuples[n-1].FrameIndex == index {
			out = append(out, tuples[n-1])
		}
	}
	return out
}

// settled returns pending paths quiet for at least settle, oldest first.
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= settle {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		ti, tj := pending[ready[i]], pending[ready[j]]
		if ti.Equal(tj) {
			return ready[i] < ready[j]
		}
		return ti.Before(tj)
	})
	return ready
}

// ListFrames returns the decodable frame files in dir, sorted by name.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsFrameFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
