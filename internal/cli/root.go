package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "typesweep",
	Short: "typesweep — checkpointed codebase-transformation campaigns",
	Long: `typesweep runs scripted, file-mutating transformations (any-type
elimination, lint fixing) across a source tree in safe, checkpointed batches.

Every batch is preceded by a git-stash checkpoint; corruption detection and
build validation decide whether the batch is kept or rolled back. State lives
in ~/.typesweep/ (SQLite for analytics, JSON for campaign and stash state).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(stashCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(dbCmd)
}
