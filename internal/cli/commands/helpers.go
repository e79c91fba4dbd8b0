package commands

import (
	"devpilot/internal/client"
	"devpilot/internal/config"

	"github.com/spf13/cobra"
)

// loadEngine builds the engine from the --config flag
func loadEngine(cmd *cobra.Command, load Loader) (Engine, error) {
	path, _ := cmd.Flags().GetString("config")
	engine, err := load(path)
	if err != nil {
		return nil, HandleError(err)
	}
	return engine, nil
}

// newClient connects to the --server flag, or to the server address of the
// configuration named by --config
func newClient(cmd *cobra.Command) (*client.Client, error) {
	if server, _ := cmd.Flags().GetString("server"); server != "" {
		c, err := client.New(server)
		if err != nil {
			return nil, HandleError(err)
		}
		return c, nil
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, HandleError(err)
	}
	return client.FromConfig(cfg.Server), nil
}

// optionalArg returns the first argument or ""
func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
