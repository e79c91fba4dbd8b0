package commands

import (
	"fmt"

	"devpilot/internal/errors"
	"devpilot/internal/logger"
	"devpilot/internal/orchestrator"

	"github.com/spf13/cobra"
)

type pipelineCommand struct {
	use   string
	short string
	args  cobra.PositionalArgs
}

// pipelineCommands describes the boundary command vocabulary
var pipelineCommands = map[string]pipelineCommand{
	orchestrator.CommandBuild:          {"build", "Build every service", cobra.NoArgs},
	orchestrator.CommandTest:           {"test", "Run unit, end-to-end and integration tests with coverage", cobra.NoArgs},
	orchestrator.CommandDeploy:         {"deploy", "Commit and push changes when auto-push is enabled", cobra.NoArgs},
	orchestrator.CommandFix:            {"fix", "Run the lint, format, manifest, config and audit remediation sweep", cobra.NoArgs},
	orchestrator.CommandAutoInstall:    {"auto-install", "Install dependencies with the escalating retry ladder", cobra.NoArgs},
	orchestrator.CommandAutoConfigure:  {"auto-configure", "Write missing default tool configs", cobra.NoArgs},
	orchestrator.CommandAutoPush:       {"auto-push", "Commit and push changes unconditionally", cobra.NoArgs},
	orchestrator.CommandCypress:        {"cypress", "Run the end-to-end suite only", cobra.NoArgs},
	orchestrator.CommandFullCycle:      {"full-cycle", "Install, configure, build, e2e test and deploy", cobra.NoArgs},
	orchestrator.CommandStartService:   {"start-service [name]", "Start one service, or all port services, on the running server", cobra.MaximumNArgs(1)},
	orchestrator.CommandStopService:    {"stop-service [name]", "Stop one service, or all services, on the running server", cobra.MaximumNArgs(1)},
	orchestrator.CommandRestartService: {"restart-service <name>", "Restart a service", cobra.ExactArgs(1)},
}

// PipelineCommands creates one command per orchestrator command type
func PipelineCommands(load Loader) []*cobra.Command {
	commands := []*cobra.Command{}
	for _, name := range orchestrator.Commands() {
		def := pipelineCommands[name]
		commands = append(commands, &cobra.Command{
			Use:   def.use,
			Short: def.short,
			Args:  def.args,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommand(cmd, load, orchestrator.Command{Type: name, Service: optionalArg(args)})
			},
		})
	}
	return commands
}

// serverCommands act on service processes, which only live as long as the
// engine that spawned them. They are sent to the running control API.
var serverCommands = map[string]bool{
	orchestrator.CommandStartService:   true,
	orchestrator.CommandStopService:    true,
	orchestrator.CommandRestartService: true,
}

// runCommand executes one orchestrator command, on the running server for
// service commands and in a freshly loaded engine otherwise
func runCommand(cmd *cobra.Command, load Loader, c orchestrator.Command) error {
	var res orchestrator.CommandResult
	if serverCommands[c.Type] {
		cl, err := newClient(cmd)
		if err != nil {
			return err
		}
		res, err = cl.Execute(cmd.Context(), c)
		if err != nil {
			return HandleError(err)
		}
	} else {
		engine, err := loadEngine(cmd, load)
		if err != nil {
			return err
		}
		defer engine.Close()
		res = engine.Execute(cmd.Context(), c)
	}

	if !res.Success {
		return HandleError(errors.CommandFailed(c.Type, fmt.Errorf("%s", res.Error)))
	}

	fields := logger.Fields{"command": c.Type}
	if c.Service != "" {
		fields["service"] = c.Service
	}
	logger.WithFields(fields).Info("✓ Command completed")
	return nil
}
