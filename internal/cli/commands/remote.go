package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"devpilot/internal/logger"
	"devpilot/internal/service"

	"github.com/spf13/cobra"
)

// RemoteCommands creates the commands that only read state from a running
// control API
func RemoteCommands() []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "services [name]",
			Short: "List the services known to the running server",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cl, err := newClient(cmd)
				if err != nil {
					return err
				}

				var states []service.RuntimeState
				if name := optionalArg(args); name != "" {
					state, err := cl.GetService(cmd.Context(), name)
					if err != nil {
						return HandleError(err)
					}
					states = append(states, state)
				} else if states, err = cl.ListServices(cmd.Context()); err != nil {
					return HandleError(err)
				}

				if len(states) == 0 {
					logger.Info("No services configured")
					return nil
				}
				printServices(cmd, states)
				return nil
			},
		},
	}
}

func printServices(cmd *cobra.Command, states []service.RuntimeState) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tPID\tPORT\tUPTIME")

	for _, s := range states {
		pid, port, uptime := "-", "-", "-"
		if s.PID > 0 {
			pid = fmt.Sprint(s.PID)
		}
		if s.Descriptor.Port > 0 {
			port = fmt.Sprint(s.Descriptor.Port)
		}
		if s.Status == service.StatusRunning && !s.StartTime.IsZero() {
			uptime = time.Since(s.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Descriptor.Name, s.Status, pid, port, uptime)
	}

	w.Flush()
}
