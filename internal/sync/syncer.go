package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
)

// ErrSyncInFlight is returned when a sync pass is requested while another is
// still running. Passes are single-flight per process; the watcher's
// auto-trigger skips instead of queuing.
var ErrSyncInFlight = errors.New("sync already in progress")

// Syncer drives one full sync pass: folders first, then every pending image
// change, then tag/color garbage collection.
type Syncer struct {
	store  *store.Store
	hub    *Hub
	engine *Engine
	logger *slog.Logger

	mu gosync.Mutex
}

// NewSyncer creates a sync orchestrator.
func NewSyncer(st *store.Store, hub *Hub, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:  st,
		hub:    hub,
		engine: NewEngine(st, logger),
		logger: logger,
	}
}

// Engine exposes the image upsert engine, shared with the watcher's
// freshness pre-filter.
func (s *Syncer) Engine() *Engine { return s.engine }

// RefreshFolders re-syncs the folder mirror alone, used when the library's
// top-level metadata changes without any image activity. A running full pass
// already covers folders, so an in-flight pass absorbs the request.
func (s *Syncer) RefreshFolders(libraryPath string) error {
	if !s.mu.TryLock() {
		return ErrSyncInFlight
	}
	defer s.mu.Unlock()
	return s.syncFolders(libraryPath)
}

// Run executes one sync pass for the library at libraryPath. Per-item and
// per-folder failures are logged and skipped; only pass-level infrastructure
// failures (unreadable folder tree, unreachable store) abort with an error.
func (s *Syncer) Run(ctx context.Context, libraryPath string) error {
	if !s.mu.TryLock() {
		return ErrSyncInFlight
	}
	defer s.mu.Unlock()

	pendings, err := s.store.Pendings()
	if err != nil {
		return fmt.Errorf("load pending queue: %w", err)
	}

	// Folders must exist before images can be linked to them.
	if err := s.syncFolders(libraryPath); err != nil {
		return err
	}

	if err := s.syncImages(ctx, pendings); err != nil {
		return err
	}

	if err := s.store.GCOrphanTagsColors(); err != nil {
		s.logger.Error("gc tags/colors", "error", err)
	}

	if err := s.store.StampLastSync(time.Now()); err != nil {
		if errors.Is(err, store.ErrNoActiveLibrary) {
			s.logger.Warn("sync pass finished with no active library")
		} else {
			s.logger.Error("stamp last sync", "error", err)
		}
	}
	return nil
}

func (s *Syncer) syncImages(ctx context.Context, pendings []store.Pending) error {
	count := 0
	for _, p := range pendings {
		if err := ctx.Err(); err != nil {
			return err
		}
		count++

		if err := s.engine.Process(ctx, p); err != nil {
			s.hub.Publish(StreamSync, Event{
				Status: StatusError, Type: TypeImage,
				Data: PathChange{Path: p.Path, Type: string(p.Type)}, Count: count,
				Message: err.Error(),
			})
			continue
		}

		s.hub.Publish(StreamSync, Event{
			Status: StatusOK, Type: TypeImage,
			Data: PathChange{Path: p.Path, Type: string(p.Type)}, Count: count,
		})
	}

	s.hub.Publish(StreamSync, Event{Status: StatusCompleted, Type: TypeImage, Count: count})
	return nil
}
