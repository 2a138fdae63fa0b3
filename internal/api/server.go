// Package api implements the HTTP API for the job management subsystem.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonesrussell/crawljobs/internal/api/middleware"
	"github.com/jonesrussell/crawljobs/internal/config"
	"github.com/jonesrussell/crawljobs/internal/logger"
)

// Server is the composed HTTP API process: a gin engine wrapped in an
// http.Server, plus the security middleware's background cleanup loop.
type Server struct {
	cfg      config.Interface
	logger   logger.Interface
	srv      *http.Server
	security middleware.SecurityMiddlewareInterface
}

// NewServer builds a Server from its handler set.
func NewServer(cfg config.Interface, log logger.Interface, h Handlers) (*Server, error) {
	srv, security, err := StartHTTPServer(log, cfg, h)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, logger: log, srv: srv, security: security}, nil
}

// Start runs the HTTP server and the security middleware's rate-limiter
// cleanup loop until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	go s.security.Cleanup(ctx)

	s.logger.Info("api server starting", "address", s.cfg.GetServerConfig().Address)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("api server stopping")
	s.security.WaitCleanup()
	return s.srv.Shutdown(ctx)
}
