package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackwarden/cmd/root"
)

func PrintVersions() {
	fmt.Printf("Version %s\n", root.SoftwareVer)
	fmt.Printf("Build Time: %s\n", root.BuildTime)
	fmt.Printf("Build Commit ID: %s\n", root.BuildCommitId)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `The 'version' command shows version details including git commit and build time`,

	Run: func(cmd *cobra.Command, args []string) {
		PrintVersions()
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)

	versionCmd.Example = `  stackwarden version`
}
