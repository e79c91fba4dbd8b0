package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/orchestrator"
	"devpilot/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Orchestrator is the part of the orchestrator the HTTP boundary drives
type Orchestrator interface {
	Execute(ctx context.Context, cmd orchestrator.Command) orchestrator.CommandResult
	Status() orchestrator.Status
	QueueBuild(ctx context.Context, file string)
	Services() []service.RuntimeState
	Service(name string) (service.RuntimeState, error)
	Bus() *events.Bus
}

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            constants.DefaultServerHost,
		Port:            constants.DefaultServerPort,
		ReadTimeout:     constants.DefaultServerReadTimeout,
		ShutdownTimeout: constants.DefaultServerShutdownTimeout,
		AllowOrigins:    []string{"*"},
	}
}

// FromConfig derives the server configuration from the [server] section
func FromConfig(sc config.ServerConfig) *Config {
	cfg := DefaultConfig()
	if sc.Host != "" {
		cfg.Host = sc.Host
	}
	if sc.Port > 0 {
		cfg.Port = sc.Port
	}
	return cfg
}

// Server exposes status, commands, change notifications and the event stream
type Server struct {
	config    *Config
	echo      *echo.Echo
	orch      Orchestrator
	hub       *Hub
	startTime time.Time
}

// New creates a server with middleware and routes installed
func New(cfg *Config, orch Orchestrator) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	s := &Server{
		config:    cfg,
		echo:      e,
		orch:      orch,
		hub:       NewHub(orch),
		startTime: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Echo returns the Echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// Commands run for as long as the operation takes, so no write timeout is set.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.echo,
		ReadTimeout: s.config.ReadTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()
	logger.WithField("addr", addr).Info("Control API listening")

	select {
	case err := <-errChan:
		s.hub.Close()
		return err
	case <-ctx.Done():
		logger.Info("Shutting down control API")
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Control API stopped")
	return nil
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(logger.RequestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
}
