package commands

import (
	"time"

	"github.com/spf13/cobra"
)

// ServeCommands creates the long-running serve command
func ServeCommands(load Loader) []*cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API and supervise services",
		Long: `Start the HTTP/WebSocket control API. The API exposes the status snapshot,
accepts commands and file change notifications, and streams every event.
Optionally starts all port services and the health monitor, which restarts
services that stop answering their health endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine(cmd, load)
			if err != nil {
				return err
			}
			defer engine.Close()

			opts := ServeOptions{}
			opts.Host, _ = cmd.Flags().GetString("host")
			opts.Port, _ = cmd.Flags().GetInt("port")
			opts.StartServices, _ = cmd.Flags().GetBool("start-services")
			opts.Monitor, _ = cmd.Flags().GetBool("monitor")
			opts.HealthInterval, _ = cmd.Flags().GetDuration("health-interval")

			return HandleError(engine.Serve(cmd.Context(), opts))
		},
	}
	serveCmd.Flags().String("host", "", "Address to bind (defaults to the configured host)")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (defaults to the configured port)")
	serveCmd.Flags().Bool("start-services", true, "Start all port services before serving")
	serveCmd.Flags().Bool("monitor", true, "Run the health monitor")
	serveCmd.Flags().Duration("health-interval", 0*time.Second, "Health check interval (defaults to the configured interval)")

	return []*cobra.Command{serveCmd}
}
