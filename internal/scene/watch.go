package scene

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/internal/logger"
)

// PatchWatcher reloads a patch file whenever it changes on disk.
type PatchWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	patches chan *grass.Patch
}

// WatchPatch starts watching the patch file at path.
func WatchPatch(path string) (*PatchWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create patch watcher: %w", err)
	}
	// Watch the directory so saves that replace the file are seen too.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &PatchWatcher{
		path:    abs,
		watcher: fw,
		patches: make(chan *grass.Patch, 1),
	}
	go w.loop()
	return w, nil
}

// Patches delivers reloaded patches. Only the newest unread one is kept.
// The channel is closed by Close.
func (w *PatchWatcher) Patches() <-chan *grass.Patch {
	return w.patches
}

// Close stops watching.
func (w *PatchWatcher) Close() error {
	return w.watcher.Close()
}

func (w *PatchWatcher) loop() {
	defer close(w.patches)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			p, err := grass.LoadPatch(w.path)
			if err != nil {
				// Often a half-written file; the next write event retries.
				logger.Debug("patch reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			select {
			case <-w.patches:
			default:
			}
			w.patches <- p
			logger.Info("patch reloaded", zap.String("path", w.path), zap.Int("vertices", len(p.Vertices)))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("patch watcher error", zap.Error(err))
		}
	}
}
