package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/codecontext/internal/indexer"
)

// DefaultDebounce is the quiet period that ends a burst of changes
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes below a project root. Every burst of changes
// to files the ignore policy tracks results in one onChange call.
type Watcher struct {
	root     string
	policy   indexer.Policy
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	fs        *fsnotify.Watcher
	mu        sync.Mutex
	timer     *time.Timer
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, policy indexer.Policy, onChange func(), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		policy:   policy,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		fs:       fsw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start watches root and every non-ignored directory below it
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.loop()
	w.logger.Info("watching project", "root", w.root)
	return nil
}

// Close stops watching. A pending notification is dropped.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.policy.IgnoreDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Debug("cannot watch directory", "dir", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "root", w.root, "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.ignoredDir(rel) {
				return
			}
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Debug("cannot watch new directory", "dir", event.Name, "error", err)
			}
			w.schedule()
			return
		}
	}
	if w.policy.IgnorePath(rel, -1) {
		return
	}
	w.schedule()
}

// ignoredDir reports whether rel or one of its parents is an ignored directory
func (w *Watcher) ignoredDir(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if w.policy.IgnoreDir(part) {
			return true
		}
	}
	return false
}

// schedule (re)starts the debounce timer
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	w.logger.Debug("project changed", "root", w.root)
	w.onChange()
}
