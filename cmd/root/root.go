package root

import (
	"github.com/spf13/cobra"
)

// ConfigPath is the --config flag, shared by every subcommand.
var ConfigPath string

// Build metadata, filled in by the linker on release builds.
var (
	SoftwareVer   = ""
	BuildTime     = ""
	BuildCommitId = ""
)

var RootCmd = &cobra.Command{
	Use:   "stackwarden",
	Short: "Service orchestration supervisor",
	Long: `stackwarden starts a set of interdependent services in dependency order,
polls their health, restarts unhealthy ones under a bounded policy and
raises operator alerts when the restart budget is exhausted`,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "",
		"path to the configuration file (default ./stackwarden.yaml)")
}
