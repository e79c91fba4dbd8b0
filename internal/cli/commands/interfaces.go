package commands

import (
	"context"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/orchestrator"
)

// Engine is the assembled component graph a command drives
type Engine interface {
	Config() *config.Config
	Execute(ctx context.Context, cmd orchestrator.Command) orchestrator.CommandResult
	Serve(ctx context.Context, opts ServeOptions) error
	Close()
}

// Loader builds an Engine from the configuration at path. An empty path
// searches the default locations.
type Loader func(path string) (Engine, error)

// ServeOptions controls the long-running serve mode
type ServeOptions struct {
	Host           string
	Port           int
	StartServices  bool
	Monitor        bool
	HealthInterval time.Duration
}
