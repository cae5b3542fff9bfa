package progress

import "time"

// Metric is one named quality measurement against its baseline and target.
// Current is -1 when the measurement was unavailable.
type Metric struct {
	Current    int     `json:"current"`
	Target     int     `json:"target"`
	Reduction  int     `json:"reduction"`
	Percentage float64 `json:"percentage"`
}

// BuildMetric is the build-performance measurement. Beyond time it carries
// cache hit rate, memory usage, and bundle size. Unmeasured values are -1.
type BuildMetric struct {
	CurrentSeconds float64 `json:"current_seconds"`
	TargetSeconds  float64 `json:"target_seconds"`
	Percentage     float64 `json:"percentage"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	MemoryMB       float64 `json:"memory_mb"`
	BundleKB       int     `json:"bundle_kb"`
}

// ProgressMetrics is one point-in-time snapshot of all tracked metrics.
type ProgressMetrics struct {
	TypeScriptErrors  Metric      `json:"typescript_errors"`
	LintingWarnings   Metric      `json:"linting_warnings"`
	BuildPerformance  BuildMetric `json:"build_performance"`
	EnterpriseSystems Metric      `json:"enterprise_systems"`
	CollectedAt       time.Time   `json:"collected_at"`
}

// Baselines are the counts the campaign started from.
type Baselines struct {
	TypeScriptErrors  int
	LintingWarnings   int
	EnterpriseSystems int
	BuildTimeSeconds  float64
}

// Targets are the thresholds milestones are validated against.
type Targets struct {
	TypeScriptErrors  int
	LintingWarnings   int
	EnterpriseSystems int
	MaxBuildSeconds   float64
	MaxBundleKB       int
	MinCacheHitRate   float64
	MaxMemoryMB       float64
}

// newMetric computes reduction and percentage for a count metric.
// An unmeasured (-1) or negative reading contributes 0%.
func newMetric(current, baseline, target int) Metric {
	m := Metric{Current: current, Target: target}
	if current < 0 || baseline <= 0 {
		return m
	}
	m.Reduction = baseline - current
	m.Percentage = float64(m.Reduction) / float64(baseline) * 100
	if m.Percentage < 0 {
		m.Percentage = 0
	}
	return m
}
