package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kafky-yu/eagle-pics-server/internal/config"
	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
	"github.com/kafky-yu/eagle-pics-server/internal/library"
	"github.com/kafky-yu/eagle-pics-server/internal/server"
	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/sync"
)

// app bundles the wiring every command needs: file config, logger, and the
// open store. Close releases the store.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
}

func openApp(flags *RootFlags) (*app, error) {
	if flags.ConfigDir != "" {
		config.SetDir(flags.ConfigDir)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := config.SetupLogger(&cfg.Logging, flags.Verbose)
	if err != nil {
		return nil, err
	}

	if _, err := config.EnsureDir(); err != nil {
		return nil, err
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: st}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// eagleClient builds a typed client for the configured Eagle instance.
func (a *app) eagleClient() *eagle.Client {
	return eagle.NewClient(strings.TrimRight(a.cfg.Eagle.URL, "/") + "/api")
}

// ensureSettings seeds the settings row from file config on first run so
// the gallery config endpoint has something to serve.
func (a *app) ensureSettings() error {
	existing, err := a.store.Settings()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return a.store.UpsertSettings(store.Settings{
		IP:               a.cfg.Server.IP,
		ServerPort:       a.cfg.Server.Port,
		ClientPort:       a.cfg.Client.Port,
		Theme:            a.cfg.Client.Theme,
		Color:            a.cfg.Client.Color,
		AutoSync:         a.cfg.Sync.AutoSync,
		StartDiffLibrary: a.cfg.Sync.StartDiffLibrary,
	})
}

// stack is the full sync/serve wiring on top of an app.
type stack struct {
	hub     *sync.Hub
	syncer  *sync.Syncer
	watcher *sync.Watcher
	manager *library.Manager
	server  *server.Server
}

// buildStack wires hub, syncer, watcher, manager and, when withServer is
// set, the gallery server. Auto-sync flushes trigger a background sync pass;
// an already running pass simply absorbs the trigger.
func (a *app) buildStack(withServer bool) *stack {
	hub := sync.NewHub()
	syncer := sync.NewSyncer(a.store, hub, a.logger)

	watcher := sync.NewWatcher(sync.WatcherOptions{
		Store:  a.store,
		Hub:    hub,
		Engine: syncer.Engine(),
		Logger: a.logger,
		Quiet:  a.cfg.Sync.Debounce,
		OnFolderChange: func(libraryPath string) {
			err := syncer.RefreshFolders(libraryPath)
			if err != nil && !errors.Is(err, sync.ErrSyncInFlight) {
				a.logger.Error("folder refresh", "error", err)
			}
		},
		AutoSync: func(libraryPath string) {
			go func() {
				err := syncer.Run(context.Background(), libraryPath)
				if err != nil && !errors.Is(err, sync.ErrSyncInFlight) {
					a.logger.Error("auto sync", "error", err)
				}
			}()
		},
	})

	st := &stack{hub: hub, syncer: syncer, watcher: watcher}

	var restart func() error
	if withServer {
		st.server = server.New(server.Options{
			Addr:     fmt.Sprintf("%s:%d", a.cfg.Server.IP, a.cfg.Server.Port),
			Store:    a.store,
			Hub:      hub,
			Logger:   a.logger,
			ThemeDir: a.cfg.Client.ThemeDir,
			EagleURL: a.cfg.Eagle.URL,
		})
		restart = st.server.Restart
	}

	st.manager = library.NewManager(library.Options{
		Store:         a.store,
		Watcher:       watcher,
		Logger:        a.logger,
		RestartServer: restart,
	})
	return st
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
