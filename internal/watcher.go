package internal

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long an inbox must stay quiet before a batch is released.
const DefaultSettle = 2 * time.Second

// WatchOptions configures NewWatcher.
type WatchOptions struct {
	Settle time.Duration
	// Ignore lists directory trees whose events are dropped, typically the
	// output directory when it lives inside the inbox.
	Ignore []string
	Logger *zap.Logger
}

// Watcher wraps an fsnotify watcher over an inbox and releases the media
// files that arrived as one batch once the inbox has settled.
type Watcher struct {
	watcher *fsnotify.Watcher
	cfg     *Config
	opts    WatchOptions
	logger  *zap.Logger

	batches chan []string
	errors  chan error
	done    chan struct{}
}

// NewWatcher starts watching root recursively.
func NewWatcher(root string, cfg *Config, opts WatchOptions) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for i, p := range opts.Ignore {
		if abs, err := filepath.Abs(p); err == nil {
			opts.Ignore[i] = abs
		}
	}

	w := &Watcher{
		watcher: fsWatcher,
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		batches: make(chan []string),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}

	if _, err := w.addRecursive(root); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	go w.processEvents()
	return w, nil
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, ig := range w.opts.Ignore {
		if abs == ig || strings.HasPrefix(abs, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addRecursive watches root and its subdirectories and returns media files
// already present, which a new directory may carry with it.
func (w *Watcher) addRecursive(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == SessionDirName || w.ignored(path) {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		if IsMediaPath(path, d, w.cfg) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

func (w *Watcher) processEvents() {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Settle)
	timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}

			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				info, err := os.Lstat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if !event.Has(fsnotify.Create) {
						continue
					}
					found, err := w.addRecursive(event.Name)
					if err != nil {
						w.sendErr(err)
					}
					for _, f := range found {
						pending[f] = struct{}{}
					}
				} else if IsMediaPath(event.Name, fs.FileInfoToDirEntry(info), w.cfg) {
					pending[event.Name] = struct{}{}
				} else {
					continue
				}
				timer.Reset(w.opts.Settle)

			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				// the new name of a rename arrives as Create
				delete(pending, event.Name)
			}

		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for p := range pending {
				if _, err := os.Lstat(p); err == nil {
					batch = append(batch, p)
				}
			}
			clear(pending)
			if len(batch) == 0 {
				continue
			}
			slices.Sort(batch)
			w.logger.Debug("inbox settled", zap.Int("files", len(batch)))
			select {
			case w.batches <- batch:
			case <-w.done:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("watch error dropped", zap.Error(err))
	}
}

// Batches delivers settled sets of new media files, sorted.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Errors returns the channel of watcher errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and cleans up resources
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
