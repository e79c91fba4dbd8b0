package cli

import (
	"context"

	"devpilot/internal/cli/commands"

	"github.com/spf13/cobra"
)

// Engine is an alias for the commands.Engine interface
type Engine = commands.Engine

// Loader is an alias for the commands.Loader function type
type Loader = commands.Loader

// Manager handles CLI operations
type Manager struct {
	load    Loader
	rootCmd *cobra.Command
}

// New creates a CLI manager whose commands obtain their engine from load
func New(load Loader) *Manager {
	m := &Manager{
		load:    load,
		rootCmd: createRootCommand(),
	}
	m.setupCommands()
	return m
}

// Root returns the root command
func (m *Manager) Root() *cobra.Command {
	return m.rootCmd
}

// Execute executes the CLI with the given arguments
func (m *Manager) Execute(args []string) error {
	return m.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext executes the CLI with the given arguments and context
func (m *Manager) ExecuteWithContext(ctx context.Context, args []string) error {
	m.rootCmd.SetArgs(args)
	return m.rootCmd.ExecuteContext(ctx)
}

// setupCommands sets up all CLI commands
func (m *Manager) setupCommands() {
	for _, cmd := range commands.InitCommands() {
		m.rootCmd.AddCommand(cmd)
	}
	for _, cmd := range commands.PipelineCommands(m.load) {
		m.rootCmd.AddCommand(cmd)
	}
	for _, cmd := range commands.ServeCommands(m.load) {
		m.rootCmd.AddCommand(cmd)
	}
	for _, cmd := range commands.RemoteCommands() {
		m.rootCmd.AddCommand(cmd)
	}
}
