// Package server provides the public API server and the management
// server, each with graceful startup and shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/familylists/realtime/pkg/config"
	"github.com/familylists/realtime/pkg/observability/logger"
)

// Server wraps http.Server with configured timeouts and graceful
// lifecycle management.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	log        logger.Logger
	cfg        config.HTTPConfig
}

// NewServer creates a Server serving handler on the configured port.
func NewServer(cfg config.HTTPConfig, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		handler: handler,
		log:     log,
		cfg:     cfg,
	}
}

// Start begins listening for requests and blocks until the context is
// cancelled or the listener fails. Cancellation triggers a graceful
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.log.Info("starting server", "port", s.cfg.Port)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting new connections and waits for in-flight
// requests, bounded by a 30-second timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(fmt.Sprintf("shutting down server on %s", s.httpServer.Addr))

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info(fmt.Sprintf("server on %s shutdown complete", s.httpServer.Addr))
	return nil
}
