package orchestrator

import (
	"context"

	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
)

// Command types accepted from the boundary
const (
	CommandBuild          = "build"
	CommandTest           = "test"
	CommandDeploy         = "deploy"
	CommandFix            = "fix"
	CommandAutoInstall    = "auto-install"
	CommandAutoConfigure  = "auto-configure"
	CommandAutoPush       = "auto-push"
	CommandCypress        = "cypress"
	CommandFullCycle      = "full-cycle"
	CommandStartService   = "start-service"
	CommandStopService    = "stop-service"
	CommandRestartService = "restart-service"
)

// Command is a request from the boundary. Service is only read by the
// service commands.
type Command struct {
	Type    string `json:"type"`
	Service string `json:"service,omitempty"`
}

// CommandResult is the boundary reply to a Command
type CommandResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Commands returns the accepted command types in a stable order
func Commands() []string {
	return []string{
		CommandBuild, CommandTest, CommandDeploy, CommandFix,
		CommandAutoInstall, CommandAutoConfigure, CommandAutoPush, CommandCypress,
		CommandFullCycle, CommandStartService, CommandStopService, CommandRestartService,
	}
}

// Execute runs cmd and reports its outcome. An unknown type publishes
// command-failed.
func (o *Orchestrator) Execute(ctx context.Context, cmd Command) CommandResult {
	var err error
	switch cmd.Type {
	case CommandBuild:
		err = o.Build(ctx)
	case CommandTest:
		err = o.Test(ctx)
	case CommandDeploy:
		err = o.Deploy(ctx)
	case CommandFix:
		err = o.Fix(ctx)
	case CommandAutoInstall:
		err = o.AutoInstall(ctx)
	case CommandAutoConfigure:
		err = o.AutoConfigure(ctx)
	case CommandAutoPush:
		err = o.AutoPush(ctx)
	case CommandCypress:
		err = o.Cypress(ctx)
	case CommandFullCycle:
		err = o.FullCycle(ctx)
	case CommandStartService:
		err = o.StartService(ctx, cmd.Service)
	case CommandStopService:
		err = o.StopService(ctx, cmd.Service)
	case CommandRestartService:
		err = o.RestartService(ctx, cmd.Service)
	default:
		err = errors.UnknownCommand(cmd.Type)
		o.bus.Publish(events.CommandFailed{Command: cmd.Type, Error: err.Error()})
	}

	if err != nil {
		logger.WithError(err).WithField("command", cmd.Type).Warn("Command failed")
		return CommandResult{Success: false, Error: err.Error()}
	}
	return CommandResult{Success: true}
}
