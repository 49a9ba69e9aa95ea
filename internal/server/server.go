// Package server implements the gallery HTTP server: the config endpoint the
// front-end bootstraps from, static mounts for library originals and the
// theme bundle, live progress streams, and a thin proxy to the Eagle API.
//
// The server is restartable: the library lifecycle manager calls Restart
// after registrations change so the static mounts reflect the new set.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/sync"
)

// Options wires a Server.
type Options struct {
	Addr     string
	Store    *store.Store
	Hub      *sync.Hub
	Logger   *slog.Logger
	ThemeDir string
	// EagleURL is the base URL of the local Eagle application API,
	// e.g. http://localhost:41595. Proxy routes are omitted when empty.
	EagleURL string
}

// Server is a restartable HTTP server. Start, Shutdown and Restart may be
// called from any goroutine; transitions are serialized by the mutex.
type Server struct {
	addr     string
	store    *store.Store
	hub      *sync.Hub
	logger   *slog.Logger
	themeDir string
	eagleURL string

	mu   gosync.Mutex
	http *http.Server
	ln   net.Listener
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		addr:     opts.Addr,
		store:    opts.Store,
		hub:      opts.Hub,
		logger:   opts.Logger,
		themeDir: opts.ThemeDir,
		eagleURL: opts.EagleURL,
	}
}

// Start binds the listener and begins serving in a background goroutine.
// The route table, including per-library static mounts, is built fresh on
// every call.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Server) startLocked() error {
	if s.http != nil {
		return errors.New("server already running")
	}

	router, err := s.routes()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.http = srv
	s.ln = ln

	s.logger.Info("server listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server. No-op when not running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdownLocked(ctx)
}

func (s *Server) shutdownLocked(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	err := s.http.Shutdown(ctx)
	s.http = nil
	s.ln = nil
	return err
}

// Restart stops the running server, if any, and starts a new one with a
// freshly built route table.
func (s *Server) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.shutdownLocked(ctx); err != nil {
		s.logger.Warn("shutdown before restart", "error", err)
	}
	return s.startLocked()
}

// Addr returns the bound address, empty when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) routes() (*chi.Mux, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/common/config", s.handleConfig)
	r.Get("/common/folders", s.handleFolders)
	r.Get("/events/watch", s.handleEvents(sync.StreamWatch))
	r.Get("/events/sync", s.handleEvents(sync.StreamSync))

	libs, err := s.store.ListLibraries()
	if err != nil {
		return nil, err
	}
	for _, lib := range libs {
		name := libraryMountName(lib.Path)
		fs := http.StripPrefix("/static/"+name, http.FileServer(http.Dir(lib.Path)))
		r.Mount("/static/"+name, fs)
	}

	if s.eagleURL != "" {
		proxy, err := s.eagleProxy()
		if err != nil {
			return nil, err
		}
		r.Mount("/eagle", proxy)
	}

	if s.themeDir != "" {
		r.NotFound(s.handleTheme)
	}

	return r, nil
}

// libraryMountName derives the static mount segment from a library path:
// the directory base without the .library suffix.
func libraryMountName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".library")
}
