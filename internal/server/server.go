// Package server assembles the reference server of record: the chi router,
// device authentication and the sqlite-backed entity store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/PNdlovu/writecarenotes-sub002/internal/config"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/handlers"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/middleware"
	"github.com/PNdlovu/writecarenotes-sub002/internal/server/storage/sqlite"
)

const healthPath = "/api/v1/health"

// Server represents the HTTP server of record
type Server struct {
	logger          *slog.Logger
	http            *http.Server
	limiter         *middleware.RateLimiter
	shutdownTimeout time.Duration
}

// New creates a server for the store using the HTTP and auth settings of cfg.
func New(cfg *config.ServerConfig, store *sqlite.Storage, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		logger:          logger,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
	if cfg.HTTP.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
	}

	jwtConfig := handlers.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}

	s.http = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           s.routes(store, jwtConfig, version),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes(store *sqlite.Storage, jwtConfig handlers.JWTConfig, version string) http.Handler {
	health := handlers.NewHealthHandler(s.logger, store, version)
	entities := handlers.NewEntityHandler(s.logger, store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RecoveryMiddleware(s.logger))
	r.Use(middleware.LoggingMiddleware(s.logger, healthPath))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(s.logger, jwtConfig, store))
			if s.limiter != nil {
				r.Use(middleware.RateLimitMiddleware(s.limiter, s.logger))
			}

			r.Get("/entities/{type}/{id}", entities.GetEntity)
			r.Post("/mutations", entities.SubmitMutation)
		})
	})

	return r
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled. ready, if set, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	if ready != nil {
		ready(ln.Addr().String())
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	<-errCh

	return nil
}
