package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [stash-id]",
	Short: "Roll the working tree back to a checkpoint",
	Long: `Rollback restores the working tree from a checkpoint. With a stash ID
it applies that checkpoint; with no argument it performs an emergency rollback
to the most recent checkpoint.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.saveStashIndex()

		if len(args) == 1 {
			if err := a.proto.Rollback(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back to %s\n", args[0])
			return nil
		}

		id, err := a.proto.EmergencyRollback()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "emergency rollback applied %s\n", id)
		return nil
	},
}
