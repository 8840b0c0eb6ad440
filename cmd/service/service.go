package service

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"stackwarden/cmd/root"
	"stackwarden/internal/rpc"
)

const apiPrefix = "/stackwarden/api/v1"

var (
	daemonAddr string
	jsonOutput bool
)

// ServiceCmd groups the subcommands that talk to a running daemon.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Inspect and control managed services",
	Long:  "Query and operate the services managed by a running stackwarden daemon",
}

func client() *rpc.Client {
	return rpc.NewClient(daemonAddr)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	root.RootCmd.AddCommand(ServiceCmd)

	ServiceCmd.PersistentFlags().StringVar(&daemonAddr, "addr", ":9180",
		"address of the stackwarden daemon")
	ServiceCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"print raw JSON instead of a table")

	ServiceCmd.Example = `  stackwarden service status
  stackwarden service restart api-gateway
  stackwarden service reset billing --addr :9180`
}
