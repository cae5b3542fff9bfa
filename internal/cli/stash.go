package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Manage checkpoint stashes",
}

var stashCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a checkpoint of the working tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		phase, _ := cmd.Flags().GetString("phase")

		a, err := loadApp()
		if err != nil {
			return err
		}

		id, err := a.proto.Checkpoint(description, phase)
		if err != nil {
			return err
		}
		if err := a.saveStashIndex(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created checkpoint %s\n", id)
		return nil
	},
}

var stashApplyCmd = &cobra.Command{
	Use:   "apply <stash-id>",
	Short: "Apply a tracked checkpoint to the working tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		revalidate, _ := cmd.Flags().GetBool("revalidate")

		a, err := loadApp()
		if err != nil {
			return err
		}

		warnings, err := a.mgr.ApplyStash(args[0], revalidate)
		if err != nil {
			return err
		}
		if err := a.saveStashIndex(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "applied %s\n", args[0])
		for _, warn := range warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		return nil
	},
}

var stashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked checkpoints, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		stashes := a.mgr.Tracked()
		if len(stashes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints tracked.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s %-20s %-16s %s\n", "ID", "CREATED", "BRANCH", "DESCRIPTION")
		fmt.Fprintf(w, "%-36s %-20s %-16s %s\n",
			strings.Repeat("-", 36), strings.Repeat("-", 20), strings.Repeat("-", 16), strings.Repeat("-", 11))
		for _, st := range stashes {
			fmt.Fprintf(w, "%-36s %-20s %-16s %s\n",
				st.ID, st.Timestamp.Format("2006-01-02 15:04:05"), st.Branch, st.Description)
		}
		return nil
	},
}

var stashCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove checkpoints older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = a.cfg.Campaign.Safety.RetentionDays
		}

		removed := a.mgr.CleanupOldStashes(days)
		if err := a.saveStashIndex(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d checkpoints older than %d days\n", removed, days)
		return nil
	},
}

var stashStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show checkpoint statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		stats := a.mgr.GetStatistics()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Total checkpoints: %d\n", stats.Total)
		for phase, n := range stats.ByPhase {
			fmt.Fprintf(w, "  %s: %d\n", phase, n)
		}
		if stats.Oldest != nil {
			fmt.Fprintf(w, "Oldest: %s (%s)\n", stats.Oldest.ID, stats.Oldest.Timestamp.Format("2006-01-02 15:04:05"))
		}
		if stats.Newest != nil {
			fmt.Fprintf(w, "Newest: %s (%s)\n", stats.Newest.ID, stats.Newest.Timestamp.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	stashCreateCmd.Flags().String("description", "manual checkpoint", "checkpoint description")
	stashCreateCmd.Flags().String("phase", "", "phase tag encoded in the checkpoint ID")
	stashApplyCmd.Flags().Bool("revalidate", false, "re-validate the repository after applying")
	stashCleanupCmd.Flags().Int("days", 0, "retention window in days (default: configured retention)")

	stashCmd.AddCommand(stashCreateCmd)
	stashCmd.AddCommand(stashApplyCmd)
	stashCmd.AddCommand(stashListCmd)
	stashCmd.AddCommand(stashCleanupCmd)
	stashCmd.AddCommand(stashStatsCmd)
}
