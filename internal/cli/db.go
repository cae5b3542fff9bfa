package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage and query the analytics database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all tables and re-apply migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return fmt.Errorf("reset destroys all recorded events and metrics; re-run with --force to confirm")
		}

		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database reset complete")
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats <campaign>",
	Short: "Summarise recorded batch runs and the latest metric snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		total, succeeded, rolledBack, err := d.GetBatchStats(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Campaign %q\n", args[0])
		fmt.Fprintf(w, "  Batches:     %d\n", total)
		fmt.Fprintf(w, "  Succeeded:   %d\n", succeeded)
		fmt.Fprintf(w, "  Rolled back: %d\n", rolledBack)

		snap, err := d.GetLatestMetricSnapshot(args[0])
		if err != nil {
			return err
		}
		if snap == nil {
			fmt.Fprintln(w, "  No metric snapshots recorded.")
			return nil
		}
		fmt.Fprintf(w, "  Latest snapshot (%s):\n", snap.Timestamp)
		fmt.Fprintf(w, "    TS errors:     %d\n", snap.TSErrors)
		fmt.Fprintf(w, "    Lint warnings: %d\n", snap.LintWarnings)
		fmt.Fprintf(w, "    Build seconds: %.1f\n", snap.BuildSeconds)
		fmt.Fprintf(w, "    Bundle KB:     %d\n", snap.BundleKB)
		fmt.Fprintf(w, "    Overall:       %.1f%%\n", snap.OverallProgress)
		return nil
	},
}

var dbEventsCmd = &cobra.Command{
	Use:   "events <campaign>",
	Short: "List recorded safety events, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		events, err := d.GetSafetyEvents(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events recorded.")
			return nil
		}
		if limit > 0 && len(events) > limit {
			events = events[:limit]
		}

		w := cmd.OutOrStdout()
		for _, e := range events {
			line := fmt.Sprintf("%s [%s] %s: %s", e.Timestamp, e.Severity, e.Type, e.Description)
			if e.Action != "" {
				line += " (" + e.Action + ")"
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

var dbRunsCmd = &cobra.Command{
	Use:   "runs <campaign>",
	Short: "List recorded batch runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		runs, err := d.GetBatchRuns(args[0])
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No batch runs recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s %-10s %-8s %-6s %-10s %s\n", "BATCH", "PHASE", "ATTEMPT", "FILES", "OUTCOME", "DURATION")
		fmt.Fprintf(w, "%-36s %-10s %-8s %-6s %-10s %s\n",
			strings.Repeat("-", 36), strings.Repeat("-", 10), strings.Repeat("-", 8),
			strings.Repeat("-", 6), strings.Repeat("-", 10), strings.Repeat("-", 8))
		for _, r := range runs {
			outcome := "failed"
			switch {
			case r.Success:
				outcome = "committed"
			case r.RolledBack:
				outcome = "rolled_back"
			}
			fmt.Fprintf(w, "%-36s %-10s %-8d %-6d %-10s %dms\n",
				r.BatchID, r.Phase, r.Attempt, r.Files, outcome, r.DurationMs)
		}
		return nil
	},
}

var dbSnapshotsCmd = &cobra.Command{
	Use:   "snapshots <campaign>",
	Short: "List recorded metric snapshots, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		snaps, err := d.GetMetricSnapshots(args[0])
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshots recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %-10s %-10s %-8s %-10s %s\n", "TIME", "TS-ERRORS", "LINT", "BUILD-S", "BUNDLE-KB", "OVERALL")
		for _, s := range snaps {
			fmt.Fprintf(w, "%-20s %-10d %-10d %-8.1f %-10d %.1f%%\n",
				s.Timestamp, s.TSErrors, s.LintWarnings, s.BuildSeconds, s.BundleKB, s.OverallProgress)
		}
		return nil
	},
}

func init() {
	dbResetCmd.Flags().Bool("force", false, "confirm the destructive reset")
	dbEventsCmd.Flags().Int("limit", 0, "show at most N events (0 = all)")

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbEventsCmd)
	dbCmd.AddCommand(dbRunsCmd)
	dbCmd.AddCommand(dbSnapshotsCmd)
}
