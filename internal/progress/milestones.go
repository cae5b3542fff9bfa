package progress

// Milestone names understood by ValidateMilestone.
const (
	MilestoneZeroTypeScriptErrors = "zero-typescript-errors"
	MilestoneZeroLintingWarnings  = "zero-linting-warnings"
	MilestoneBuildTimeUnderTarget = "build-time-under-target"
	MilestoneBundleUnderTarget    = "bundle-under-target"
	MilestoneSystemsAtTarget      = "enterprise-systems-at-target"
	MilestonePhaseComplete        = "phase-complete"
)

// ValidateMilestone evaluates a named milestone against a fresh snapshot.
// An unrecognized name is false, never an error: milestones are predicates,
// and an unknown predicate is simply unsatisfied.
func (t *Tracker) ValidateMilestone(name string) bool {
	return t.validateAgainst(name, t.GetProgressMetrics())
}

// ValidateMilestoneWith evaluates against a caller-supplied snapshot, so a
// set of milestones can be checked without re-invoking every tool.
func (t *Tracker) ValidateMilestoneWith(name string, pm ProgressMetrics) bool {
	return t.validateAgainst(name, pm)
}

func (t *Tracker) validateAgainst(name string, pm ProgressMetrics) bool {
	switch name {
	case MilestoneZeroTypeScriptErrors:
		return pm.TypeScriptErrors.Current == 0
	case MilestoneZeroLintingWarnings:
		return pm.LintingWarnings.Current == 0
	case MilestoneBuildTimeUnderTarget:
		return pm.BuildPerformance.CurrentSeconds >= 0 &&
			pm.BuildPerformance.CurrentSeconds <= t.targets.MaxBuildSeconds
	case MilestoneBundleUnderTarget:
		return pm.BuildPerformance.BundleKB >= 0 &&
			t.targets.MaxBundleKB > 0 &&
			pm.BuildPerformance.BundleKB <= t.targets.MaxBundleKB
	case MilestoneSystemsAtTarget:
		return pm.EnterpriseSystems.Current >= 0 &&
			pm.EnterpriseSystems.Current >= t.targets.EnterpriseSystems
	case MilestonePhaseComplete:
		return t.validateAgainst(MilestoneZeroTypeScriptErrors, pm) &&
			t.validateAgainst(MilestoneZeroLintingWarnings, pm) &&
			t.validateAgainst(MilestoneBuildTimeUnderTarget, pm)
	default:
		return false
	}
}
