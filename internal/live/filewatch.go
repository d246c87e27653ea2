package live

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/daybook/internal/logger"
)

// FileWatcher notifies a Tracker when the database file or its WAL changes on
// disk. It lets live listings follow writes made by other processes; writes
// through the same Store are already notified directly.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	tracker *Tracker
	names   map[string]struct{}
	tables  []string
	settle  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// WatchFile starts watching dbPath. Once changes have been quiet for settle,
// every table in tables is notified. It stops when ctx is done or Close is
// called.
func WatchFile(ctx context.Context, dbPath string, t *Tracker, settle time.Duration, tables ...string) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// The directory is watched rather than the file so that the WAL and
	// journal files are seen as soon as SQLite creates them.
	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	base := filepath.Base(dbPath)
	fw := &FileWatcher{
		watcher: w,
		tracker: t,
		names: map[string]struct{}{
			base:              {},
			base + "-wal":     {},
			base + "-journal": {},
		},
		tables: tables,
		settle: settle,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	logger.Debug("Watching database file", "path", dbPath, "tables", tables)
	go fw.run(ctx)
	return fw, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (fw *FileWatcher) Close() error {
	fw.stopOnce.Do(func() { close(fw.stopCh) })
	<-fw.doneCh
	return fw.watcher.Close()
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(event) {
				continue
			}
			if fw.settle <= 0 {
				fw.tracker.Notify(fw.tables...)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fw.settle)
			} else {
				timer.Reset(fw.settle)
			}
			fire = timer.C

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Database file watcher error", "error", err)

		case <-fire:
			fire = nil
			fw.tracker.Notify(fw.tables...)
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if _, ok := fw.names[filepath.Base(event.Name)]; !ok {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
