package cli

import (
	"devpilot/internal/logger"

	"github.com/spf13/cobra"
)

// createRootCommand creates the root command with global flags
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devpilot",
		Short: "Event-driven build, test and deploy orchestrator for multi-service projects",
		Long: `devpilot installs dependencies, builds, tests, remediates and deploys a
project made of node, python and php services, and supervises the services'
processes with readiness probes and health-triggered restarts. Every step is
published as an event on the control API's WebSocket stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				logger.SetLevel(level)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to devpilot.toml or devpilot.yaml")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server", "", "Control API of a running 'devpilot serve' (default: server address from the configuration)")

	return rootCmd
}
