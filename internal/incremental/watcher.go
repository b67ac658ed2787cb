package incremental

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeEvent is one filesystem change the watcher decided was worth
// reporting.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// sourceExtensions are the only files worth waking the analyzer for;
// fsnotify fires on every file in a watched tree, including build
// output and editor swap files, and those would otherwise dominate the
// event stream.
var sourceExtensions = map[string]bool{
	".rs":   true,
	".toml": true,
}

// Watcher batches fsnotify events across a debounce window so a bulk
// operation (a branch switch, a formatter pass) triggers one
// re-analysis instead of one per touched file.
type Watcher struct {
	fs  *fsnotify.Watcher
	log *zap.SugaredLogger
}

// New creates a Watcher recursively watching every directory under
// each root.
func New(roots []string, log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if err := addRecursive(fw, root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return &Watcher{fs: fw, log: log}, nil
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fs.Close() }

// Run drains fsnotify events, filtering to recognized source file
// extensions, and emits a batch on the returned channel once debounce
// has elapsed with no further events. It stops when ctx is canceled.
func (w *Watcher) Run(ctx context.Context, debounce time.Duration) <-chan []ChangeEvent {
	out := make(chan []ChangeEvent)
	go func() {
		defer close(out)
		var pending []ChangeEvent
		var timer *time.Timer
		var timerC <-chan time.Time

		flush := func() {
			if len(pending) == 0 {
				return
			}
			batch := pending
			pending = nil
			select {
			case out <- batch:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fs.Events:
				if !ok {
					flush()
					return
				}
				if !sourceExtensions[strings.ToLower(filepath.Ext(ev.Name))] {
					continue
				}
				pending = append(pending, ChangeEvent{Path: ev.Name, Op: ev.Op})
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerC = timer.C
				} else {
					if !timer.Stop() {
						<-timerC
					}
					timer.Reset(debounce)
				}
			case <-timerC:
				flush()
				timer = nil
				timerC = nil
			case err, ok := <-w.fs.Errors:
				if !ok {
					flush()
					return
				}
				w.log.Warnw("watcher error", "error", err)
			}
		}
	}()
	return out
}
