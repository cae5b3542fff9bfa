package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/typesweep/typesweep/internal/progress"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Measure and report codebase quality metrics",
}

var metricsSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Collect a point-in-time metric snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		record, _ := cmd.Flags().GetBool("record")
		campaignName, _ := cmd.Flags().GetString("campaign")

		a, err := loadApp()
		if err != nil {
			return err
		}

		pm := a.tracker.GetProgressMetrics()
		out, err := json.MarshalIndent(pm, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if record {
			database, err := openDB()
			if err != nil {
				return fmt.Errorf("open analytics database: %w", err)
			}
			defer database.Close()

			report := a.tracker.GenerateProgressReport()
			if err := database.LogMetricSnapshot(campaignName,
				pm.TypeScriptErrors.Current, pm.LintingWarnings.Current,
				pm.BuildPerformance.CurrentSeconds, pm.BuildPerformance.BundleKB,
				report.OverallProgress); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "snapshot recorded")
		}
		return nil
	},
}

var metricsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the per-phase progress report",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := loadApp()
		if err != nil {
			return err
		}

		report := a.tracker.GenerateProgressReport()
		w := cmd.OutOrStdout()

		if asJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(out))
			return nil
		}

		for _, p := range report.Phases {
			fmt.Fprintf(w, "%-32s %-12s %5.1f%%\n", p.Name, p.Status, p.Percentage)
			for _, ach := range p.Achievements {
				fmt.Fprintf(w, "  + %s\n", ach)
			}
			for _, issue := range p.Issues {
				fmt.Fprintf(w, "  - %s\n", issue)
			}
		}
		fmt.Fprintf(w, "\noverall progress: %.1f%%\n", report.OverallProgress)
		return nil
	},
}

var metricsMilestoneCmd = &cobra.Command{
	Use:   "milestone <name>",
	Short: "Validate a named milestone against fresh measurements",
	Long: `Known milestones:
  ` + strings.Join([]string{
		progress.MilestoneZeroTypeScriptErrors,
		progress.MilestoneZeroLintingWarnings,
		progress.MilestoneBuildTimeUnderTarget,
		progress.MilestoneBundleUnderTarget,
		progress.MilestoneSystemsAtTarget,
		progress.MilestonePhaseComplete,
	}, "\n  "),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		if a.tracker.ValidateMilestone(args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "milestone %q: achieved\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "milestone %q: not achieved\n", args[0])
		return nil
	},
}

var metricsExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export the full metric snapshot to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		snap, err := a.tracker.ExportSnapshot(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported snapshot (%.1f%% overall) to %s\n",
			snap.Report.OverallProgress, args[0])
		return nil
	},
}

func init() {
	metricsSnapshotCmd.Flags().Bool("record", false, "record the snapshot in the analytics database")
	metricsSnapshotCmd.Flags().String("campaign", "", "campaign name to record the snapshot under")
	metricsReportCmd.Flags().Bool("json", false, "print the report as JSON")

	metricsCmd.AddCommand(metricsSnapshotCmd)
	metricsCmd.AddCommand(metricsReportCmd)
	metricsCmd.AddCommand(metricsMilestoneCmd)
	metricsCmd.AddCommand(metricsExportCmd)
}
