package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/typesweep/typesweep/internal/campaign"
	"github.com/typesweep/typesweep/internal/progress"
	"github.com/typesweep/typesweep/internal/schedule"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run and inspect transformation campaigns",
}

var campaignStartCmd = &cobra.Command{
	Use:   "start <file>...",
	Short: "Run a campaign over the given files in checkpointed batches",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, _ := cmd.Flags().GetString("script")
		phase, _ := cmd.Flags().GetString("phase")
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = fmt.Sprintf("campaign-%d", time.Now().Unix())
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.saveStashIndex()

		store := campaign.NewStore(filepath.Join(a.stateDir, "campaigns"))
		executor := campaign.NewScriptExecutor(&progress.ExecRunner{}, a.cfg.Campaign.RepoDir, 0)

		database, err := openDB()
		if err != nil {
			// Analytics are best-effort; the campaign still runs.
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: analytics database unavailable: %v\n", err)
			database = nil
		} else {
			defer database.Close()
		}

		ctrl := campaign.NewController(name, a.proto, a.tracker, a.detector,
			executor, store, database, a.cfg.Campaign.Batch, a.logger)

		// Background corruption monitor over the campaign's files.
		if err := a.proto.StartRealTimeMonitoring(args, a.monitorInterval()); err == nil {
			defer a.proto.StopRealTimeMonitoring()
		}

		res, err := ctrl.Run(cmd.Context(), campaign.RunOpts{
			Files:  args,
			Script: script,
			Phase:  phase,
		})

		if database != nil {
			for _, e := range a.proto.Events() {
				_ = database.LogSafetyEvent(name, string(e.Type), string(e.Severity), e.Description, e.Action)
			}
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Campaign %q %s: %d/%d files in %d batches\n",
			name, res.Status, res.FilesDone, res.FilesTotal, len(res.Batches))
		for _, b := range res.Batches {
			line := fmt.Sprintf("  batch %s: %s (%d files, attempt %d)", b.BatchID, b.Action, b.Files, b.Attempt)
			if b.Message != "" {
				line += " — " + b.Message
			}
			fmt.Fprintln(w, line)
		}
		return nil
	},
}

var campaignStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show detailed campaign status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		store := campaign.NewStore(filepath.Join(a.stateDir, "campaigns"))
		cs, err := store.Get(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Campaign %q\n", cs.Name)
		fmt.Fprintf(w, "  Status:  %s\n", cs.Status)
		fmt.Fprintf(w, "  Script:  %s\n", cs.Script)
		fmt.Fprintf(w, "  Phase:   %s\n", cs.Phase)
		fmt.Fprintf(w, "  Files:   %d/%d\n", cs.FilesDone, cs.FilesTotal)
		fmt.Fprintf(w, "  Created: %s\n", cs.CreatedAt)
		fmt.Fprintf(w, "  Updated: %s\n", cs.UpdatedAt)
		if len(cs.BatchHistory) > 0 {
			fmt.Fprintln(w, "  Batches:")
			for _, h := range cs.BatchHistory {
				detail := ""
				if h.Detail != "" {
					detail = " — " + h.Detail
				}
				fmt.Fprintf(w, "    %s attempt %d: %s (%d files, %s)%s\n",
					h.BatchID, h.Attempt, h.Outcome, h.Files, h.Duration, detail)
			}
		}
		return nil
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		statusFilter, _ := cmd.Flags().GetString("status")
		store := campaign.NewStore(filepath.Join(a.stateDir, "campaigns"))
		campaigns, err := store.List(statusFilter)
		if err != nil {
			return err
		}
		if len(campaigns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No campaigns found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-24s %-12s %-10s %s\n", "NAME", "STATUS", "PHASE", "FILES")
		fmt.Fprintf(w, "%-24s %-12s %-10s %s\n",
			strings.Repeat("-", 24), strings.Repeat("-", 12), strings.Repeat("-", 10), strings.Repeat("-", 5))
		for _, c := range campaigns {
			fmt.Fprintf(w, "%-24s %-12s %-10s %d/%d\n", c.Name, c.Status, c.Phase, c.FilesDone, c.FilesTotal)
		}
		return nil
	},
}

var campaignDryRunCmd = &cobra.Command{
	Use:   "dry-run <file>...",
	Short: "Estimate a batch without mutating files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, _ := cmd.Flags().GetString("script")

		a, err := loadApp()
		if err != nil {
			return err
		}

		executor := campaign.NewScriptExecutor(&progress.ExecRunner{}, a.cfg.Campaign.RepoDir, 0)
		res, err := executor.DryRun(cmd.Context(), script, []string{"--files", strings.Join(args, ",")})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if res.SafetyScore < a.cfg.Campaign.Batch.MinSafetyScore {
			fmt.Fprintf(cmd.OutOrStdout(), "safety score %d is below the configured minimum %d; this batch would be skipped\n",
				res.SafetyScore, a.cfg.Campaign.Batch.MinSafetyScore)
		}
		return nil
	},
}

var campaignPhasesCmd = &cobra.Command{
	Use:   "phases",
	Short: "Show configured phase completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		gate := schedule.NewPhaseGate(a.tracker, a.cfg.Campaign.Phases)
		w := cmd.OutOrStdout()
		for _, p := range a.cfg.Campaign.Phases {
			status := "incomplete"
			if gate.PhaseComplete(p.ID) {
				status = "complete"
			}
			fmt.Fprintf(w, "%-12s %-24s %s\n", p.ID, p.Name, status)
		}
		if p, ok := gate.CurrentPhase(); ok {
			fmt.Fprintf(w, "\ncurrent phase: %s\n", p.ID)
		} else {
			fmt.Fprintln(w, "\nall phases complete")
		}
		return nil
	},
}

func init() {
	campaignStartCmd.Flags().String("script", "", "transformation script to run (required)")
	campaignStartCmd.Flags().String("phase", "", "phase tag recorded in checkpoint IDs")
	campaignStartCmd.Flags().String("name", "", "campaign name (default: campaign-<ts>)")
	campaignStartCmd.MarkFlagRequired("script")

	campaignDryRunCmd.Flags().String("script", "", "transformation script to estimate (required)")
	campaignDryRunCmd.MarkFlagRequired("script")

	campaignListCmd.Flags().String("status", "", "filter by status")

	campaignCmd.AddCommand(campaignStartCmd)
	campaignCmd.AddCommand(campaignStatusCmd)
	campaignCmd.AddCommand(campaignListCmd)
	campaignCmd.AddCommand(campaignDryRunCmd)
	campaignCmd.AddCommand(campaignPhasesCmd)
}
