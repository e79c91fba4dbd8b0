// Package app assembles the component graph and hands it to the CLI
package app

import (
	"context"

	"devpilot/internal/autofix"
	"devpilot/internal/build"
	"devpilot/internal/cli"
	"devpilot/internal/cli/commands"
	"devpilot/internal/config"
	"devpilot/internal/deploy"
	"devpilot/internal/deps"
	"devpilot/internal/events"
	"devpilot/internal/git"
	"devpilot/internal/logger"
	"devpilot/internal/orchestrator"
	"devpilot/internal/runner"
	"devpilot/internal/server"
	"devpilot/internal/service"
	"devpilot/internal/tester"
)

// App represents the main application
type App struct {
	CLI *cli.Manager
}

// New creates a new application instance
func New() *App {
	return &App{CLI: cli.New(Load)}
}

// RunWithContext runs the CLI with a context for cancellation
func (a *App) RunWithContext(ctx context.Context, args []string) error {
	return a.CLI.ExecuteWithContext(ctx, args)
}

// Engine is the wired system: one bus, one of each component and the
// orchestrator composing them
type Engine struct {
	cfg          *config.Config
	Bus          *events.Bus
	Services     *service.Manager
	Builder      *build.Builder
	Orchestrator *orchestrator.Orchestrator
}

// Load reads the configuration at path and wires an engine for it
func Load(path string) (commands.Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
	}
	logger.WithFields(logger.Fields{
		"config":   cfg.Path,
		"root":     cfg.Project.Root,
		"services": len(cfg.Services),
	}).Debug("Configuration loaded")

	return NewEngine(cfg, runner.NewExec()), nil
}

// NewEngine wires every component around a single bus. run executes every
// external tool invocation.
func NewEngine(cfg *config.Config, run runner.Runner) *Engine {
	bus := events.NewBus()

	installer := deps.New(cfg, bus, run)
	builder := build.New(cfg, bus, run, installer)
	services := service.New(cfg, bus)
	repo := git.New(cfg.Project.Root, git.Signature{Name: cfg.Deploy.AuthorName, Email: cfg.Deploy.AuthorEmail})

	orch := orchestrator.New(cfg, bus, orchestrator.Components{
		Deps:     installer,
		Builder:  builder,
		Tester:   tester.New(cfg, bus, run, services),
		Deployer: deploy.New(cfg.Deploy, bus, repo),
		Fixer:    autofix.New(cfg, bus, run),
		Services: services,
	})

	return &Engine{
		cfg:          cfg,
		Bus:          bus,
		Services:     services,
		Builder:      builder,
		Orchestrator: orch,
	}
}

// Config returns the loaded configuration
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Execute runs one orchestrator command
func (e *Engine) Execute(ctx context.Context, cmd orchestrator.Command) orchestrator.CommandResult {
	return e.Orchestrator.Execute(ctx, cmd)
}

// Serve runs the control API until ctx is cancelled. Services started here
// are stopped before it returns.
func (e *Engine) Serve(ctx context.Context, opts commands.ServeOptions) error {
	srvCfg := server.FromConfig(e.cfg.Server)
	if opts.Host != "" {
		srvCfg.Host = opts.Host
	}
	if opts.Port > 0 {
		srvCfg.Port = opts.Port
	}
	srv := server.New(srvCfg, e.Orchestrator)

	if opts.StartServices {
		e.Services.StartAllServices(ctx)
	}
	if opts.Monitor {
		e.Services.StartHealthMonitoring(ctx, opts.HealthInterval)
	}

	err := srv.Start(ctx)

	e.Services.StopHealthMonitoring()
	e.Services.StopAllServices(context.WithoutCancel(ctx))
	return err
}

// Close releases the orchestrator's subscriptions and pending builds
func (e *Engine) Close() {
	e.Orchestrator.Close()
}
