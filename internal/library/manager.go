// Package library manages the lifecycle of registered libraries: adding,
// switching, and removing them, and keeping exactly one active with a live
// filesystem watch.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/sync"
)

// LibraryExt is the required suffix of a library directory.
const LibraryExt = ".library"

var (
	// ErrNotALibrary is returned when a path does not end in .library.
	ErrNotALibrary = errors.New("path is not a .library directory")
	// ErrLibraryExists is returned when the path is already registered.
	ErrLibraryExists = errors.New("library already registered")
	// ErrLibraryNotFound is returned when the path is not registered.
	ErrLibraryNotFound = errors.New("library not registered")
)

// Options wires a Manager's collaborators.
type Options struct {
	Store   *store.Store
	Watcher *sync.Watcher
	Logger  *slog.Logger
	// RestartServer restarts the gallery server so per-library static mounts
	// reflect the new registration set. Optional.
	RestartServer func() error
}

// Manager serializes lifecycle transitions. All operations take its mutex,
// so a switch cannot race an add or a remove.
type Manager struct {
	store         *store.Store
	watcher       *sync.Watcher
	logger        *slog.Logger
	restartServer func() error

	mu gosync.Mutex
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		store:         opts.Store,
		watcher:       opts.Watcher,
		logger:        opts.Logger,
		restartServer: opts.RestartServer,
	}
}

// Add registers a new library and makes it the active one. The previous
// watch is stopped, all logs and pendings are cleared, and a fresh watch is
// started; Add returns after the initial scan's first flush completes.
func (m *Manager) Add(ctx context.Context, path string) (*store.Library, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if !strings.HasSuffix(path, LibraryExt) {
		return nil, fmt.Errorf("%w: %s", ErrNotALibrary, path)
	}
	if info, err := os.Stat(path); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotALibrary, path)
	}
	if existing, err := m.store.GetLibrary(path); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrLibraryExists, path)
	}

	if err := m.watcher.Unwatch(); err != nil {
		m.logger.Warn("stop watch", "error", err)
	}
	if err := m.store.DeleteAllLogs(); err != nil {
		return nil, err
	}
	if err := m.store.DeleteAllPendings(); err != nil {
		return nil, err
	}
	if err := m.store.DeactivateAll(); err != nil {
		return nil, err
	}

	lib, err := m.store.CreateLibrary(path, "eagle", true)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetActiveLibraryPath(path); err != nil {
		return nil, err
	}

	m.restart()
	if err := m.watch(ctx, sync.WatchConfig{LibraryPath: path}); err != nil {
		return nil, err
	}
	return lib, nil
}

// SetActive switches the watch and the active flag to an already registered
// library. Logs and pendings scoped to the outgoing library are cleared, and
// rows no longer under any registered library are purged.
func (m *Manager) SetActive(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setActiveLocked(ctx, path)
}

func (m *Manager) setActiveLocked(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	lib, err := m.store.GetLibrary(path)
	if err != nil {
		return err
	}
	if lib == nil {
		return fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
	}

	if err := m.watcher.Unwatch(); err != nil {
		m.logger.Warn("stop watch", "error", err)
	}

	if prev, err := m.store.ActiveLibrary(); err == nil && prev.Path != path {
		if err := m.store.DeleteLogsByPrefix(prev.Path); err != nil {
			return err
		}
		if err := m.store.DeletePendingsByPrefix(prev.Path); err != nil {
			return err
		}
	} else if err != nil && !errors.Is(err, store.ErrNoActiveLibrary) {
		return err
	}

	if err := m.store.ActivateLibrary(path); err != nil {
		return err
	}
	if err := m.store.SetActiveLibraryPath(path); err != nil {
		return err
	}
	if err := m.store.PurgeOrphans(); err != nil {
		m.logger.Warn("purge orphans", "error", err)
	}

	m.restart()
	return m.watch(ctx, sync.WatchConfig{LibraryPath: path})
}

// DeleteActive unregisters the active library and removes every row mirrored
// from it. When other libraries remain, the earliest registered one is
// promoted; otherwise the active path is cleared.
func (m *Manager) DeleteActive(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.store.ActiveLibrary()
	if err != nil {
		return err
	}

	if err := m.watcher.Unwatch(); err != nil {
		m.logger.Warn("stop watch", "error", err)
	}

	if err := m.store.DeleteLibrary(lib.Path); err != nil {
		return err
	}
	if err := m.store.DeleteLogsByPrefix(lib.Path); err != nil {
		return err
	}
	if err := m.store.DeletePendingsByPrefix(lib.Path); err != nil {
		return err
	}
	if err := m.store.DeleteImagesByPrefix(lib.Path); err != nil {
		return err
	}
	// Tags, colors and folders are global to the active library's mirror.
	if err := m.store.DeleteAllTagsColors(); err != nil {
		return err
	}
	if err := m.store.DeleteAllFolders(); err != nil {
		return err
	}

	remaining, err := m.store.ListLibraries()
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return m.setActiveLocked(ctx, remaining[0].Path)
	}

	if err := m.store.SetActiveLibraryPath(""); err != nil {
		return err
	}
	m.restart()
	return nil
}

// Resume restores the watch for the active library after a process restart.
// It is a no-op when no library is active.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.store.ActiveLibrary()
	if errors.Is(err, store.ErrNoActiveLibrary) {
		return nil
	}
	if err != nil {
		return err
	}

	startDiff := false
	if settings, err := m.store.Settings(); err == nil && settings != nil {
		startDiff = settings.StartDiffLibrary
	}

	return m.watch(ctx, sync.WatchConfig{
		LibraryPath:      lib.Path,
		IsReload:         true,
		StartDiffLibrary: startDiff,
	})
}

// List returns all registered libraries in registration order.
func (m *Manager) List() ([]store.Library, error) {
	return m.store.ListLibraries()
}

// watch starts the watcher and blocks until its first flush or ctx is done.
func (m *Manager) watch(ctx context.Context, cfg sync.WatchConfig) error {
	done, err := m.watcher.Watch(cfg)
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) restart() {
	if m.restartServer == nil {
		return
	}
	if err := m.restartServer(); err != nil {
		m.logger.Error("restart server", "error", err)
	}
}
