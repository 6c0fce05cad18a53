// Package devserver serves build output during development with optional
// compression, SPA fallback and live reload.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bianoble/bundlekit/internal/config"
	"github.com/bianoble/bundlekit/internal/engine"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// EventsPath is the live-reload event stream.
const EventsPath = "/__bundlekit/events"

const shutdownTimeout = 5 * time.Second

// Server serves devServer.static.directory and rebuilds on change.
type Server struct {
	Config *config.Config
	Engine *engine.Engine
	Logger zerolog.Logger
	// Open launches a browser; nil uses OpenBrowser.
	Open func(url string) error

	hub *hub
}

// New creates a dev server for eng's configuration.
func New(eng *engine.Engine, logger zerolog.Logger) *Server {
	return &Server{
		Config: eng.Config,
		Engine: eng,
		Logger: logger,
		hub:    newHub(logger),
	}
}

// Listen binds devServer.host:devServer.port. Failure is reported as
// *config.InvalidPortError.
func (s *Server) Listen() (net.Listener, error) {
	ds := s.Config.DevServer
	ln, err := net.Listen("tcp", net.JoinHostPort(ds.Host, strconv.Itoa(ds.Port)))
	if err != nil {
		return nil, &config.InvalidPortError{Port: ds.Port, Err: err}
	}
	return ln, nil
}

// Run binds the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve builds, serves on ln and, with hot reload, rebuilds on change until
// ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ds := s.Config.DevServer
	hot := config.BoolValue(ds.Hot)
	if hot {
		s.Engine.LiveReload = EventsPath
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Requests end with the server so open event streams do not
		// hold up Shutdown.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if hot {
		g.Go(func() error {
			return s.Engine.Watch(gctx, s.onBuild)
		})
		g.Go(func() error {
			return s.watchTemplates(gctx)
		})
	} else {
		s.onBuild(s.Engine.Build(gctx))
	}

	url := s.URL(ln)
	s.Logger.Info().Str("url", url).Bool("hot", hot).Msg("Dev server listening")

	if config.BoolValue(ds.Open) {
		open := s.Open
		if open == nil {
			open = OpenBrowser
		}
		if err := open(url); err != nil {
			s.Logger.Warn().Err(err).Msg("Failed to open browser")
		}
	}

	return g.Wait()
}

// URL returns the address browsers should use for ln.
func (s *Server) URL(ln net.Listener) string {
	host := s.Config.DevServer.Host
	port := s.Config.DevServer.Port
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}

// Handler returns the HTTP handler serving the static directory and the
// live-reload stream.
func (s *Server) Handler() http.Handler {
	ds := s.Config.DevServer

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get(EventsPath, s.hub.ServeHTTP)

	r.Group(func(r chi.Router) {
		if config.BoolValue(ds.Compress) {
			r.Use(func(next http.Handler) http.Handler {
				return gzhttp.GzipHandler(next)
			})
		}
		r.Handle("/*", s.static(ds.Static.Directory, config.BoolValue(ds.HistoryAPIFallback)))
	})

	return r
}

func (s *Server) static(dir string, fallback bool) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if fallback && wantsIndex(r, dir) {
			r = r.Clone(r.Context())
			r.URL.Path = "/"
		}
		files.ServeHTTP(w, r)
	})
}

// wantsIndex reports whether r is a client-side route: an HTML navigation
// to an extension-less path that does not exist on disk.
func wantsIndex(r *http.Request, dir string) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if path.Ext(r.URL.Path) != "" {
		return false
	}
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}
	rel := filepath.FromSlash(path.Clean("/" + r.URL.Path))
	if _, err := os.Stat(filepath.Join(dir, rel)); err == nil {
		return false
	}
	return true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func (s *Server) onBuild(_ *engine.Result, err error) {
	if err != nil {
		s.Logger.Error().Err(err).Msg("Build failed")
		s.hub.broadcast(EventError)
		return
	}
	s.hub.broadcast(EventChange)
}

// watchTemplates re-runs the post-build actions when an HTML template
// changes. esbuild does not see templates, so they are watched separately.
func (s *Server) watchTemplates(ctx context.Context) error {
	templates := make(map[string]bool)
	for _, p := range s.Config.Plugins {
		if p.Kind == config.PluginHTML && p.String("template") != "" {
			templates[filepath.Clean(p.String("template"))] = true
		}
	}
	if len(templates) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Editors often replace files, so watch the parent directories.
	dirs := make(map[string]bool)
	for tmpl := range templates {
		dir := filepath.Dir(tmpl)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !templates[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.Logger.Info().Str("template", event.Name).Msg("Template changed")
			s.rerunActions(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.Logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

func (s *Server) rerunActions(ctx context.Context) {
	ran, err := s.Engine.Rerun(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Post-build actions failed")
		s.hub.broadcast(EventError)
		return
	}
	if ran {
		s.hub.broadcast(EventChange)
	}
}

// OpenBrowser opens url in the user's default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
