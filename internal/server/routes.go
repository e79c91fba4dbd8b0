package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"devpilot/internal/errors"
	"devpilot/internal/logger"
	"devpilot/internal/orchestrator"
	"devpilot/internal/validation"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/ws", s.hub.Serve)

	api := s.echo.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/services", s.handleListServices)
	api.GET("/services/:name", s.handleGetService)
	api.POST("/commands", s.handleCommand)
	api.POST("/changes", s.handleChanges)
}

// handleHealth godoc
// @Summary Health check
// @Description Check if the control API is up
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleStatus godoc
// @Summary Aggregate status
// @Description Snapshot of builds, tests, services, health checks and the error log
// @Tags status
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/status [get]
func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
		Status: s.orch.Status(),
	})
}

// handleListServices godoc
// @Summary List running services
// @Description Live state of every service process tracked by the manager
// @Tags services
// @Produce json
// @Success 200 {object} ServicesResponse
// @Router /api/services [get]
func (s *Server) handleListServices(c echo.Context) error {
	return c.JSON(http.StatusOK, ServicesResponse{Services: s.orch.Services()})
}

// handleGetService godoc
// @Summary Get a service
// @Description Live state of one configured service
// @Tags services
// @Produce json
// @Param name path string true "Service name"
// @Success 200 {object} service.RuntimeState
// @Failure 404 {object} errors.HTTPErrorResponse
// @Router /api/services/{name} [get]
func (s *Server) handleGetService(c echo.Context) error {
	state, err := s.orch.Service(c.Param("name"))
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, state)
}

// handleCommand godoc
// @Summary Run a command
// @Description Run one orchestrator command and wait for it to finish
// @Tags commands
// @Accept json
// @Produce json
// @Param command body CommandRequest true "Command"
// @Success 200 {object} orchestrator.CommandResult
// @Failure 400 {object} errors.HTTPErrorResponse
// @Failure 422 {object} orchestrator.CommandResult
// @Router /api/commands [post]
func (s *Server) handleCommand(c echo.Context) error {
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return errors.ToHTTPError(errors.InvalidInput("body", "a JSON command"))
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		return errors.ToHTTPError(errors.InvalidInput("type", "a command type"))
	}

	// the operation outlives a disconnected client
	ctx := context.WithoutCancel(c.Request().Context())
	res := s.orch.Execute(ctx, orchestrator.Command{Type: req.Type, Service: req.Service})
	if !res.Success {
		logger.GetLogger(c).WithField("command", req.Type).Warn("Command returned failure")
		return c.JSON(http.StatusUnprocessableEntity, res)
	}
	return c.JSON(http.StatusOK, res)
}

// handleChanges godoc
// @Summary Report changed files
// @Description Queue changed files for a debounced incremental build
// @Tags builds
// @Accept json
// @Produce json
// @Param changes body ChangesRequest true "Changed files"
// @Success 202 {object} ChangesResponse
// @Failure 400 {object} errors.HTTPErrorResponse
// @Router /api/changes [post]
func (s *Server) handleChanges(c echo.Context) error {
	var req ChangesRequest
	if err := c.Bind(&req); err != nil {
		return errors.ToHTTPError(errors.InvalidInput("body", "a JSON list of files"))
	}

	files := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		cleaned, err := validation.Path(f)
		if err != nil {
			return errors.ToHTTPError(err)
		}
		files = append(files, cleaned)
	}
	if len(files) == 0 {
		return errors.ToHTTPError(errors.InvalidInput("files", "at least one file path"))
	}

	ctx := context.WithoutCancel(c.Request().Context())
	for _, f := range files {
		s.orch.QueueBuild(ctx, f)
	}
	queued := len(files)

	return c.JSON(http.StatusAccepted, ChangesResponse{Queued: queued})
}
