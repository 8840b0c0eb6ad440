package service

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stackwarden/internal/models"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent operator alerts",
	Long:  "Show the daemon's recent alert history after deduplication, newest last",
	RunE: func(cmd *cobra.Command, args []string) error {
		var alerts []models.Alert
		if err := client().Get(cmd.Context(), apiPrefix+"/alerts", &alerts); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(alerts)
		}
		if len(alerts) == 0 {
			fmt.Println("no alerts")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSEVERITY\tSERVICE\tREASON")
		for _, a := range alerts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.At.Format(time.RFC3339), a.Severity, a.Service, a.Reason)
		}
		return w.Flush()
	},
}

func init() {
	ServiceCmd.AddCommand(alertsCmd)

	alertsCmd.Example = `  stackwarden service alerts --json`
}
