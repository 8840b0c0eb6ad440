package service

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stackwarden/cmd/root"
	"stackwarden/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured services",
	Long:  "List the service declarations from the configuration file, without contacting the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(root.ConfigPath)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cfg.Services)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SERVICE\tPROBE\tTARGET\tDEPENDS ON")
		for _, svc := range cfg.Services {
			deps := "-"
			if len(svc.DependsOn) > 0 {
				deps = strings.Join(svc.DependsOn, ",")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", svc.ID, svc.Probe.Type, svc.Probe.Target, deps)
		}
		return w.Flush()
	},
}

func init() {
	ServiceCmd.AddCommand(listCmd)

	listCmd.Example = `  stackwarden service list --config /etc/stackwarden/stackwarden.yaml`
}
