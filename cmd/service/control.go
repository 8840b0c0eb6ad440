package service

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackwarden/internal/models"
)

// controlCommand builds the start/stop/restart/reset subcommands, which all
// POST to the same action endpoint shape and print the resulting record.
func controlCommand(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			var rt models.ServiceRuntime
			path := fmt.Sprintf("%s/services/%s/%s", apiPrefix, name, verb)
			if err := client().Post(cmd.Context(), path, nil, &rt); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(rt)
			}
			fmt.Printf("service [%s] is now %s\n", rt.ID, rt.State)
			return nil
		},
	}
}

func init() {
	ServiceCmd.AddCommand(
		controlCommand("start", "Start a stopped service"),
		controlCommand("stop", "Stop a running service"),
		controlCommand("restart", "Stop and start a service"),
		controlCommand("reset", "Clear a persistent failure so the service can be supervised again"),
	)
}
