package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"InterviewConv/cache"
	"InterviewConv/logger"

	"github.com/fsnotify/fsnotify"
)

// Enqueuer accepts new conversion jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job cache.ConversionJob) error
}

// the recorder writes recording_<id>.done once all streams are flushed
var markerPattern = regexp.MustCompile(`^recording_(\d+)\.done$`)

// ParseMarker extracts the recording id from a marker file name.
func ParseMarker(name string) (int64, bool) {
	m := markerPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SpoolWatcher 监听 spool 目录，录制结束后自动入队转换
type SpoolWatcher struct {
	dir   string
	queue Enqueuer
}

// NewSpoolWatcher creates a new SpoolWatcher.
func NewSpoolWatcher(dir string, queue Enqueuer) *SpoolWatcher {
	return &SpoolWatcher{dir: dir, queue: queue}
}

// Run picks up markers already present, then watches for new ones until ctx
// is cancelled.
func (w *SpoolWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("创建 spool 目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	// markers written while we were down
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.handle(ctx, filepath.Join(w.dir, e.Name()))
		}
	}

	logger.Info("spool watcher started", logger.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handle(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("spool watcher error", logger.ErrorField(err))
		}
	}
}

// handle enqueues the marker's recording and removes the marker. A marker
// that fails to enqueue stays for the next start.
func (w *SpoolWatcher) handle(ctx context.Context, path string) {
	id, ok := ParseMarker(path)
	if !ok {
		return
	}
	// create and write events arrive for the same marker
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := w.queue.Enqueue(ctx, cache.ConversionJob{RecordingID: id}); err != nil {
		logger.Error("failed to enqueue recording from spool",
			logger.Int64("recordingId", id), logger.ErrorField(err))
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove spool marker", logger.String("path", path), logger.ErrorField(err))
		return
	}
	logger.Info("recording enqueued from spool", logger.Int64("recordingId", id))
}
