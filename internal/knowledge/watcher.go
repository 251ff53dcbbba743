package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// debounceInterval batches rapid saves into one rebuild.
	debounceInterval = 500 * time.Millisecond
	debounceTick     = 100 * time.Millisecond
)

type watcher struct {
	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// Watch reindexes after changes under the knowledge root settle, so edits
// land in the next prompt without a restart. fsnotify is not recursive, so
// every subdirectory is added, including ones created later.
func (ix *Index) Watch() error {
	if ix.watch != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(ix.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", ix.root, err)
	}

	w := &watcher{fsw: fsw, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	ix.watch = w
	go ix.runWatch(w)
	return nil
}

func (ix *Index) runWatch(w *watcher) {
	defer close(w.doneCh)

	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()

	var dirty bool
	var lastEvent time.Time

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						ix.logger.Warn("watch new directory failed",
							zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			dirty = true
			lastEvent = time.Now()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			ix.logger.Warn("knowledge watcher error", zap.Error(err))

		case <-ticker.C:
			if dirty && time.Since(lastEvent) >= debounceInterval {
				dirty = false
				if err := ix.Reindex(); err != nil {
					ix.logger.Warn("knowledge reindex failed", zap.Error(err))
				}
			}
		}
	}
}

func (w *watcher) stop() {
	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
}
