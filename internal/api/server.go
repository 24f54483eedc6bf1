package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/homepulse/homepulse-core/internal/automation"
	"github.com/homepulse/homepulse-core/internal/device"
	"github.com/homepulse/homepulse-core/internal/gateway"
	"github.com/homepulse/homepulse-core/internal/health"
	"github.com/homepulse/homepulse-core/internal/infrastructure/config"
	"github.com/homepulse/homepulse-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Cache       *device.Cache
	Commander   *device.Commander
	Gateway     *gateway.Client
	Store       *automation.Store
	Executor    *automation.Executor
	Scheduler   *automation.Scheduler
	Suggestor   *health.Suggestor
	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for HomePulse Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	cache     *device.Cache
	commander *device.Commander
	gateway   *gateway.Client
	store     *automation.Store
	executor  *automation.Executor
	scheduler *automation.Scheduler
	suggestor *health.Suggestor
	version   string
	server    *http.Server
	hub       *Hub
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, cache, store, executor)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("device cache is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("automation store is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	// Commander, gateway, scheduler and suggestor are optional; the
	// matching endpoints degrade rather than the whole server refusing
	// to start.

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		cache:     deps.Cache,
		commander: deps.Commander,
		gateway:   deps.Gateway,
		store:     deps.Store,
		executor:  deps.Executor,
		scheduler: deps.Scheduler,
		suggestor: deps.Suggestor,
		version:   deps.Version,
	}

	// Use externally-provided hub if available (needed when the executor
	// and suggestor also broadcast through it).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, relays device cache
// change events to WebSocket subscribers, and launches the HTTP listener
// in a background goroutine. The server is stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Relay cache change events to WebSocket clients.
	s.cache.Subscribe(func(ev device.ChangeEvent) {
		s.hub.Broadcast("device.state_changed", ev)
	})

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// Hub returns the server's WebSocket hub. Nil until Start() unless one
// was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
