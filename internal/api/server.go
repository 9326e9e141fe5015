// Package api provides the bridge's status and diagnostics HTTP
// server. It is read-only: a health check for monitoring and a dump of
// the mirrored entity set for troubleshooting discovery issues.
//
// The server follows the same lifecycle pattern as other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start()
//	defer server.Close(ctx)
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/indigo-hass-bridge/internal/bridge"
	"github.com/nerrad567/indigo-hass-bridge/internal/history"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/config"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the controller surface the status server reads from.
type Bridge interface {
	Connected() bool
	EntityCount() int
	Entities() []bridge.EntityInfo
}

// Historian serves recorded state changes. Optional.
type Historian interface {
	Recent(ctx context.Context, entityID string, limit int) ([]history.Entry, error)
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Bridge  Bridge
	History Historian
	Version string
}

// Server is the status HTTP server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	bridge  Bridge
	history Historian
	version string
	server  *http.Server
}

// New creates a status server. It is not started until Start is
// called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		bridge:  deps.Bridge,
		history: deps.History,
		version: deps.Version,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", deps.Config.Host, deps.Config.Port),
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info("status server listening", "addr", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// Close gracefully shuts the server down, waiting for in-flight
// requests up to the shutdown timeout.
func (s *Server) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
