// Package httpserver serves the published site directory over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	smw "git.home.luguber.info/inful/sitebuilder/internal/server/middleware"
)

// Options carries optional collaborators.
type Options struct {
	// Metrics is mounted at server.metrics_path when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server serves the live output directory.
type Server struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	srv    *http.Server
	addr   net.Addr

	// middleware chain
	mchain func(http.Handler) http.Handler
}

// New constructs a Server for cfg.
func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		mchain: smw.Chain(logger),
	}
}

// Handler returns the complete request handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.Metrics != nil {
		mux.Handle(s.cfg.Server.MetricsPath, s.opts.Metrics)
	}
	mux.Handle("/", s.mchain(newSiteHandler(s.cfg)))
	return mux
}

// Start binds server.port and serves in the background. A bind failure is
// returned immediately.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("http startup failed: port %d: %w", s.cfg.Server.Port, err)
	}
	return s.Serve(ln)
}

// Serve serves on a pre-bound listener in the background.
func (s *Server) Serve(ln net.Listener) error {
	s.addr = ln.Addr()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", logfields.Error(err))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("addr", ln.Addr().String()), logfields.Output(s.cfg.OutputDirectory))
	return nil
}

// Addr is the bound address once the server is serving.
func (s *Server) Addr() net.Addr { return s.addr }

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
