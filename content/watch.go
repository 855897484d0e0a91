package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 100

	// DefaultDebounce is how long changes settle before a file is emitted.
	DefaultDebounce = 500 * time.Millisecond
)

// excludedDirs are never watched.
var excludedDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true}

// Watcher emits payload files under a directory whose content changed.
// Editors that write a file in several steps produce one event per settle
// period, and saves that leave the bytes unchanged produce none.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	hashMu sync.Mutex
	hashes map[string]string

	events chan string

	droppedEvents atomic.Int64
}

// NewWatcher creates a watcher over root. A zero debounce means
// DefaultDebounce.
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]struct{}),
		hashes:   make(map[string]string),
		events:   make(chan string, eventChannelBuffer),
	}, nil
}

// Events returns the channel of changed payload paths. It is closed when
// the watcher stops.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Start records the current content of every payload file, then watches
// for changes until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root, true); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Content watcher started",
		"root", w.root,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of events dropped due to a full channel.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive watches every directory under root. Payload files
// found on the initial walk are recorded as seen; files in a directory that
// appeared later are queued since their writes may predate the watch.
func (w *Watcher) addWatchesRecursive(root string, initial bool) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if !IsPayloadFile(path) {
				return nil
			}
			if !initial {
				w.markPending(path)
			} else if sum, err := fileHash(path); err == nil {
				w.setHash(path, sum)
			}
			return nil
		}

		base := d.Name()
		if path != root && (excludedDirs[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !IsPayloadFile(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := w.addWatchesRecursive(path, false); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.hashMu.Lock()
		delete(w.hashes, path)
		w.hashMu.Unlock()
		return
	}

	w.markPending(path)
	w.logger.Debug("Content change detected", "path", path, "op", event.Op.String())
}

func (w *Watcher) markPending(path string) {
	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()
}

// flushPending emits settled changes whose bytes differ from the last seen.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}

		sum, err := fileHash(path)
		if err != nil {
			w.logger.Debug("Skipping unreadable change", "path", path, "error", err)
			continue
		}
		if !w.setHash(path, sum) {
			continue
		}

		select {
		case w.events <- path:
		default:
			dropped := w.droppedEvents.Add(1)
			w.logger.Warn("Event channel full, dropping event",
				"path", path,
				"total_dropped", dropped)
		}
	}
}

// setHash records sum for path and reports whether it changed.
func (w *Watcher) setHash(path, sum string) bool {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if w.hashes[path] == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
