package sync

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
	"github.com/kafky-yu/eagle-pics-server/internal/store"
)

const (
	// DefaultQuiet is the debounce quiet period for filesystem bursts.
	DefaultQuiet = time.Second
	// DefaultStartDelay postpones the start event on reload so subscribers
	// can attach before the initial scan's burst arrives.
	DefaultStartDelay = time.Second

	metadataFile = "metadata.json"
)

// WatchConfig parameterizes one Watch call.
type WatchConfig struct {
	LibraryPath string
	// IsReload marks an application restart: the start event is delayed and,
	// unless StartDiffLibrary is set, the initial scan is discarded as
	// already synced instead of re-enqueued.
	IsReload         bool
	StartDiffLibrary bool
}

// WatcherOptions wires a Watcher's collaborators.
type WatcherOptions struct {
	Store  *store.Store
	Hub    *Hub
	Engine *Engine
	Logger *slog.Logger
	Clock  Clock
	Quiet  time.Duration
	// OnFolderChange runs when the library's top-level metadata.json changes.
	OnFolderChange func(libraryPath string)
	// AutoSync runs after a flush when auto-sync is enabled in settings.
	AutoSync func(libraryPath string)
}

// Watcher owns the filesystem watch handles for one library and converts
// raw, bursty events into debounced batches of pending operations. It is an
// explicit resource: the library lifecycle manager creates and tears it
// down, never package-level state.
type Watcher struct {
	store          *store.Store
	hub            *Hub
	engine         *Engine
	logger         *slog.Logger
	clock          Clock
	quiet          time.Duration
	onFolderChange func(string)
	autoSync       func(string)

	mu          gosync.Mutex
	fsw         *fsnotify.Watcher
	deb         *Debouncer
	startTimer  Timer
	active      bool
	libraryPath string
	pending     map[string]store.PendingType
	order       []string
	done        chan struct{}
	doneOnce    *gosync.Once
}

// NewWatcher creates an inactive watcher.
func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Quiet == 0 {
		opts.Quiet = DefaultQuiet
	}
	if opts.Engine == nil {
		opts.Engine = NewEngine(opts.Store, opts.Logger)
	}
	return &Watcher{
		store:          opts.Store,
		hub:            opts.Hub,
		engine:         opts.Engine,
		logger:         opts.Logger,
		clock:          opts.Clock,
		quiet:          opts.Quiet,
		onFolderChange: opts.OnFolderChange,
		autoSync:       opts.AutoSync,
	}
}

// Watch starts observing a library. Idempotent: a second call while active
// is a no-op returning the existing completion channel. The channel closes
// when the first flush after this call finishes, so each caller gets its own
// completion signal.
func (w *Watcher) Watch(cfg WatchConfig) (<-chan struct{}, error) {
	w.mu.Lock()
	if w.active {
		done := w.done
		w.mu.Unlock()
		return done, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}

	// The library root (non-recursive) covers the top-level metadata.json;
	// the images tree carries per-item metadata.
	if err := fsw.Add(cfg.LibraryPath); err != nil {
		fsw.Close()
		w.mu.Unlock()
		return nil, err
	}
	if err := addRecursive(fsw, eagle.ImagesDir(cfg.LibraryPath)); err != nil && !os.IsNotExist(err) {
		fsw.Close()
		w.mu.Unlock()
		return nil, err
	}

	w.fsw = fsw
	w.active = true
	w.libraryPath = cfg.LibraryPath
	w.pending = make(map[string]store.PendingType)
	w.order = nil
	w.done = make(chan struct{})
	w.doneOnce = new(gosync.Once)
	w.deb = NewDebouncer(w.quiet, w.clock, w.flush)
	done := w.done

	if cfg.IsReload {
		w.startTimer = w.clock.AfterFunc(DefaultStartDelay, func() {
			w.hub.Publish(StreamWatch, Event{Status: StatusStart})
		})
	} else {
		w.hub.Publish(StreamWatch, Event{Status: StatusStart})
	}
	w.mu.Unlock()

	go w.loop(fsw)
	go w.initialScan(cfg)

	return done, nil
}

// Unwatch tears down all watch handles. Safe to call when nothing is watched.
func (w *Watcher) Unwatch() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return nil
	}
	w.active = false

	if w.startTimer != nil {
		w.startTimer.Stop()
		w.startTimer = nil
	}
	w.deb.Stop()
	w.pending = nil
	w.order = nil

	err := w.fsw.Close()
	w.fsw = nil
	return err
}

// Active reports whether a watch is established.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// initialScan walks the images tree once, recording every item metadata file
// as a create. fsnotify has no startup replay, so the scan stands in for it.
// On reload without diff-on-start the accumulated set is discarded: the
// mirror is assumed current and a full rescan on every restart is avoided.
func (w *Watcher) initialScan(cfg WatchConfig) {
	recorded := 0
	root := eagle.ImagesDir(cfg.LibraryPath)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || d.Name() != metadataFile {
			return nil
		}
		if w.record(path, store.PendingCreate) {
			recorded++
		}
		return nil
	})
	if err != nil {
		w.logger.Error("initial scan", "library", cfg.LibraryPath, "error", err)
	}

	discard := cfg.IsReload && !cfg.StartDiffLibrary
	if discard {
		w.mu.Lock()
		if w.active {
			w.pending = make(map[string]store.PendingType)
			w.order = nil
		}
		w.mu.Unlock()
	}
	if discard || recorded == 0 {
		// Flush immediately so the completion event fires even when there is
		// nothing to enqueue.
		w.mu.Lock()
		if !w.active {
			w.mu.Unlock()
			return
		}
		w.deb.Stop()
		w.mu.Unlock()
		w.flush()
	}
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	w.mu.Lock()
	active := w.active
	libraryPath := w.libraryPath
	fsw := w.fsw
	w.mu.Unlock()
	if !active {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addRecursive(fsw, ev.Name); err != nil {
				w.logger.Error("watch new dir", "path", ev.Name, "error", err)
			}
			// Metadata written before the watch was in place produces no
			// event of its own; pick it up here.
			w.scanDir(ev.Name)
			return
		}
	}

	if filepath.Base(ev.Name) != metadataFile {
		return
	}

	if filepath.Clean(ev.Name) == eagle.LibraryMetadataPath(libraryPath) {
		if ev.Has(fsnotify.Write) && w.onFolderChange != nil {
			go w.onFolderChange(libraryPath)
		}
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		w.record(ev.Name, store.PendingCreate)
	case ev.Has(fsnotify.Write):
		w.record(ev.Name, store.PendingUpdate)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.record(ev.Name, store.PendingDelete)
	}
}

// scanDir records any item metadata already present under a just-watched
// directory.
func (w *Watcher) scanDir(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == metadataFile {
			w.record(path, store.PendingCreate)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("scan new dir", "path", root, "error", err)
	}
}

// record stores one change in the in-memory set, deduplicated by path with
// the latest type winning, and pushes the debounce deadline out.
func (w *Watcher) record(path string, typ store.PendingType) bool {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return false
	}
	if _, exists := w.pending[path]; !exists {
		w.order = append(w.order, path)
	}
	w.pending[path] = typ
	deb := w.deb
	w.mu.Unlock()

	deb.Touch()
	return true
}

// flush drains the in-memory set into the durable pending queue. Per-path
// failures are reported and skipped; the batch always runs to the end, emits
// completed, and triggers auto-sync when enabled.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := w.order
	types := w.pending
	w.order = nil
	w.pending = make(map[string]store.PendingType)
	libraryPath := w.libraryPath
	doneOnce := w.doneOnce
	done := w.done
	w.mu.Unlock()

	count := 0
	for _, path := range paths {
		typ := types[path]
		count++
		change := PathChange{Path: path, Type: string(typ)}

		if typ == store.PendingCreate || typ == store.PendingUpdate {
			if !w.engine.NeedsSync(path) {
				w.hub.Publish(StreamWatch, Event{
					Status: StatusOK, Data: change, Count: count, Message: "already synced",
				})
				continue
			}
		}

		if err := w.store.UpsertPending(path, typ); err != nil {
			w.logger.Error("enqueue pending", "path", path, "error", err)
			w.hub.Publish(StreamWatch, Event{
				Status: StatusError, Data: change, Count: count, Message: err.Error(),
			})
			continue
		}

		w.hub.Publish(StreamWatch, Event{Status: StatusOK, Data: change, Count: count})
	}

	w.hub.Publish(StreamWatch, Event{Status: StatusCompleted, Count: count})
	if doneOnce != nil {
		doneOnce.Do(func() { close(done) })
	}

	if w.autoSync == nil {
		return
	}
	settings, err := w.store.Settings()
	if err != nil {
		w.logger.Warn("read settings", "error", err)
		return
	}
	if settings != nil && settings.AutoSync {
		w.autoSync(libraryPath)
	}
}

// addRecursive adds a directory tree to the watch set. Directories that
// cannot be accessed or watched are skipped rather than failing the walk.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return err
		}
		return nil
	})
}
