package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/typesweep/typesweep/internal/campaign"
	"github.com/typesweep/typesweep/internal/progress"
	"github.com/typesweep/typesweep/internal/schedule"
)

// planFile is the on-disk shape of a campaign plan: a set of proposed
// campaigns competing for the same working tree.
type planFile struct {
	Proposals []planProposal `yaml:"proposals"`
}

type planProposal struct {
	Name     string   `yaml:"name"`
	Script   string   `yaml:"script"`
	Phase    string   `yaml:"phase"`
	Priority int      `yaml:"priority"`
	Files    []string `yaml:"files"`
}

var campaignPlanCmd = &cobra.Command{
	Use:   "plan <plan-file>",
	Short: "Arbitrate proposed campaigns into an execution order",
	Long: `Plan reads a YAML file of proposed campaigns, dry-runs each proposal's
script to obtain a safety score, and prints the order they would execute in.
Higher priority wins; safety score breaks priority ties; submission order
breaks full ties. Proposals scoring below the configured minimum are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read plan: %w", err)
		}
		var plan planFile
		if err := yaml.Unmarshal(raw, &plan); err != nil {
			return fmt.Errorf("parse plan: %w", err)
		}
		if len(plan.Proposals) == 0 {
			return fmt.Errorf("plan has no proposals")
		}

		executor := campaign.NewScriptExecutor(&progress.ExecRunner{}, a.cfg.Campaign.RepoDir, 0)
		sched := schedule.NewScheduler()
		w := cmd.OutOrStdout()

		for _, p := range plan.Proposals {
			res, err := executor.DryRun(cmd.Context(), p.Script,
				[]string{"--files", strings.Join(p.Files, ",")})
			if err != nil {
				fmt.Fprintf(w, "skipping %q: dry run failed: %v\n", p.Name, err)
				continue
			}
			if res.SafetyScore < a.cfg.Campaign.Batch.MinSafetyScore {
				fmt.Fprintf(w, "skipping %q: safety score %d below minimum %d\n",
					p.Name, res.SafetyScore, a.cfg.Campaign.Batch.MinSafetyScore)
				continue
			}
			sched.Submit(schedule.Proposal{
				Name:        p.Name,
				Script:      p.Script,
				Phase:       p.Phase,
				Priority:    p.Priority,
				SafetyScore: res.SafetyScore,
				SubmittedAt: time.Now().UTC(),
			})
		}

		if sched.Len() == 0 {
			fmt.Fprintln(w, "no runnable proposals")
			return nil
		}

		fmt.Fprintln(w, "execution order:")
		for i := 1; ; i++ {
			p, ok := sched.Next()
			if !ok {
				break
			}
			fmt.Fprintf(w, "  %d. %s (priority %d, safety %d, phase %s)\n",
				i, p.Name, p.Priority, p.SafetyScore, p.Phase)
		}
		return nil
	},
}

func init() {
	campaignCmd.AddCommand(campaignPlanCmd)
}
