// Package server implements the local authoring server: it serves the
// rendered site, rebuilds on content changes, and pushes live reloads.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
	"github.com/blogsmith/blogsmith/internal/site"
)

// Server runs the dev server around a site builder.
type Server struct {
	cfg      *config.Config
	builder  *site.Builder
	hub      *LiveReloadHub
	registry *prom.Registry
	recorder metrics.Recorder

	buildMu sync.Mutex // serializes rebuilds from watcher/scheduler
}

// New wires a dev server: builder with live reload, Prometheus registry,
// SSE hub.
func New(cfg *config.Config) (*Server, error) {
	registry := prom.NewRegistry()
	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.Server.Metrics {
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	opts := []site.Option{site.WithRecorder(recorder)}
	if cfg.Server.LiveReloadEnabled() {
		opts = append(opts, site.WithLiveReload())
	}
	builder, err := site.NewBuilder(cfg, opts...)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		builder:  builder,
		hub:      NewLiveReloadHub(recorder),
		registry: registry,
		recorder: recorder,
	}, nil
}

// Handler returns the dev server HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.Server.LiveReloadEnabled() {
		mux.Handle("/livereload", s.hub)
	}
	if s.cfg.Server.Metrics {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.Output.Directory)))
	return mux
}

// Run builds once, then serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	defer s.builder.Close()

	if err := s.rebuild(ctx, "startup"); err != nil {
		return err
	}

	watcher, err := NewWatcher(
		[]string{s.cfg.Content.Dir, s.cfg.Content.LayoutsDir, s.cfg.Content.StaticDir},
		s.cfg.Server.Debounce(),
		func() { _ = s.rebuild(ctx, "file change") },
	)
	if err != nil {
		return err
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("Watcher stopped", logfields.Error(err))
		}
	}()

	if interval := s.cfg.Server.RebuildEvery(); interval > 0 {
		scheduler, err := NewScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.SchedulePeriodicRebuild(interval, func() {
			_ = s.rebuild(ctx, "scheduled")
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { _ = scheduler.Stop() }()
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Dev server listening", slog.String("addr", s.cfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// rebuild runs one build pass and broadcasts the result to live clients.
// Build failures are logged, not fatal: the author fixes the file and the
// next change triggers another pass.
func (s *Server) rebuild(ctx context.Context, reason string) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	slog.Info("Rebuilding site", slog.String("reason", reason))
	report, err := s.builder.Build(ctx)
	if err != nil {
		slog.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
		if reason == "startup" {
			return err
		}
		return nil
	}

	s.hub.Broadcast(report.BuildID)
	return nil
}
