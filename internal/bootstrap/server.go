package bootstrap

import (
	"context"
	"net/http"

	"github.com/jonesrussell/crawljobs/internal/api"
	"github.com/jonesrussell/crawljobs/internal/api/middleware"
	"github.com/jonesrussell/crawljobs/internal/config"
	"github.com/jonesrussell/crawljobs/internal/logger"
)

// ServerComponents holds the HTTP server and the error channel its
// background ListenAndServe goroutine reports to.
type ServerComponents struct {
	Server    *http.Server
	Security  middleware.SecurityMiddlewareInterface
	ErrorChan <-chan error
}

// SetupHTTPServer builds the HTTP server wrapping the API router and starts
// it listening in the background.
func SetupHTTPServer(cfg config.Interface, log logger.Interface, h api.Handlers) (*ServerComponents, error) {
	srv, security, err := api.StartHTTPServer(log, cfg, h)
	if err != nil {
		return nil, err
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", cfg.GetServerConfig().Address)
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- serveErr
			return
		}
		errChan <- nil
	}()

	return &ServerComponents{Server: srv, Security: security, ErrorChan: errChan}, nil
}

// Stop gracefully shuts down the HTTP server.
func (s *ServerComponents) Stop(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
