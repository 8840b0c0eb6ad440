package service

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stackwarden/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Show the runtime state of services",
	Long:  "Show the runtime state of all managed services, or of a single one by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return statusOne(cmd, args[0])
		}
		return statusAll(cmd)
	},
}

func statusAll(cmd *cobra.Command) error {
	var runtimes []models.ServiceRuntime
	if err := client().Get(cmd.Context(), apiPrefix+"/services", &runtimes); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(runtimes)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATE\tFAILURES\tRESTARTS\tLAST CHECK")
	for _, rt := range runtimes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			rt.ID, rt.State, rt.ConsecutiveFailures, rt.RestartCount, dash(rt.LastCheckAt))
	}
	return w.Flush()
}

func statusOne(cmd *cobra.Command, name string) error {
	var rt models.ServiceRuntime
	if err := client().Get(cmd.Context(), apiPrefix+"/services/"+name, &rt); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(rt)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Service:\t%s\n", rt.ID)
	fmt.Fprintf(w, "State:\t%s\n", rt.State)
	fmt.Fprintf(w, "Consecutive failures:\t%d\n", rt.ConsecutiveFailures)
	fmt.Fprintf(w, "Restart count:\t%d\n", rt.RestartCount)
	fmt.Fprintf(w, "Started:\t%s\n", dash(rt.StartTime))
	fmt.Fprintf(w, "Last check:\t%s\n", dash(rt.LastCheckAt))
	fmt.Fprintf(w, "Last output:\t%s\n", dash(rt.LastCheckOutput))
	return w.Flush()
}

func init() {
	ServiceCmd.AddCommand(statusCmd)

	statusCmd.Example = `  stackwarden service status
  stackwarden service status api-gateway --json`
}
