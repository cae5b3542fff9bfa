package progress

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Well-known tool names the tracker looks up in its tool table.
const (
	ToolTypeScriptErrors  = "typescript_errors"
	ToolLintWarnings      = "lint_warnings"
	ToolBuild             = "build"
	ToolBundleSize        = "bundle_size"
	ToolEnterpriseSystems = "enterprise_systems"
	ToolMemory            = "memory"
	ToolCacheStats        = "cache_stats"
	ToolFileBreakdown     = "file_breakdown"
)

// Unmeasured is the sentinel for a metric that could not be gathered.
// Measurement failures are data, not errors; getters never return an error.
const Unmeasured = -1

// Tracker gathers point-in-time quality metrics from external tools and
// retains a bounded snapshot history for trend analysis.
type Tracker struct {
	runner    CommandRunner
	dir       string
	tools     map[string]ToolConfig
	baselines Baselines
	targets   Targets

	mu         sync.Mutex
	history    []ProgressMetrics
	historyCap int
}

// NewTracker creates a Tracker. historyCap bounds the retained snapshots;
// values below 1 fall back to 50.
func NewTracker(runner CommandRunner, dir string, tools map[string]ToolConfig, baselines Baselines, targets Targets, historyCap int) *Tracker {
	if historyCap < 1 {
		historyCap = 50
	}
	return &Tracker{
		runner:     runner,
		dir:        dir,
		tools:      tools,
		baselines:  baselines,
		targets:    targets,
		historyCap: historyCap,
	}
}

// noMatchesRe is the tool sentinel for "searched and found nothing", which is
// a successful zero, not a failure.
var noMatchesRe = regexp.MustCompile(`(?i)no matches found`)

// firstNumberRe extracts the first integer or decimal in tool output.
var firstNumberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// runTool invokes one named tool. The boolean is false when the tool is
// unconfigured or its invocation failed outright.
func (t *Tracker) runTool(name string) (stdout string, stderr string, exitCode int, ok bool) {
	tool, found := t.tools[name]
	if !found || tool.Command == "" {
		return "", "", 0, false
	}

	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, stderr, exitCode, err := t.runner.Run(ctx, t.dir, tool.Command)
	if err != nil {
		return stdout, stderr, exitCode, false
	}
	return stdout, stderr, exitCode, true
}

// count runs a counting tool and parses its output. The "no matches"
// sentinel recovers as 0; any other failure yields Unmeasured.
func (t *Tracker) count(name string) int {
	stdout, stderr, _, ok := t.runTool(name)
	if !ok {
		return Unmeasured
	}
	combined := stdout + "\n" + stderr
	if noMatchesRe.MatchString(combined) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(stdout))
	if err != nil {
		return Unmeasured
	}
	return n
}

// GetTypeScriptErrorCount returns the current TypeScript error count.
func (t *Tracker) GetTypeScriptErrorCount() int {
	return t.count(ToolTypeScriptErrors)
}

// GetLintingWarningCount returns the current linting warning count.
func (t *Tracker) GetLintingWarningCount() int {
	return t.count(ToolLintWarnings)
}

// GetEnterpriseSystemCount returns the current transformed-system count.
func (t *Tracker) GetEnterpriseSystemCount() int {
	return t.count(ToolEnterpriseSystems)
}

// GetBuildTime runs the build tool and returns wall-clock seconds, or
// Unmeasured if the build fails.
func (t *Tracker) GetBuildTime() float64 {
	tool, found := t.tools[ToolBuild]
	if !found || tool.Command == "" {
		return Unmeasured
	}

	timeout := tool.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	_, _, exitCode, err := t.runner.Run(ctx, t.dir, tool.Command)
	if err != nil || exitCode != 0 {
		return Unmeasured
	}
	return time.Since(start).Seconds()
}

// GetBundleSize returns the build artifact size in KB, or Unmeasured.
func (t *Tracker) GetBundleSize() int {
	stdout, _, _, ok := t.runTool(ToolBundleSize)
	if !ok {
		return Unmeasured
	}
	m := firstNumberRe.FindString(stdout)
	if m == "" {
		return Unmeasured
	}
	n, err := strconv.Atoi(strings.Split(m, ".")[0])
	if err != nil {
		return Unmeasured
	}
	return n
}

// GetMemoryUsage returns the measured memory footprint in MB, or Unmeasured.
func (t *Tracker) GetMemoryUsage() float64 {
	return t.decimal(ToolMemory)
}

// GetCacheHitRate returns the cache hit rate in [0,1], or Unmeasured when no
// cache-stats tool is configured. There is deliberately no built-in default:
// a rate must come from a real cache, not a constant.
func (t *Tracker) GetCacheHitRate() float64 {
	rate := t.decimal(ToolCacheStats)
	if rate > 1 { // tool reported a percentage
		rate = rate / 100
	}
	return rate
}

func (t *Tracker) decimal(name string) float64 {
	stdout, _, _, ok := t.runTool(name)
	if !ok {
		return Unmeasured
	}
	m := firstNumberRe.FindString(stdout)
	if m == "" {
		return Unmeasured
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Unmeasured
	}
	return v
}

// tscFileRe maps a tsc diagnostic line back to its file.
var tscFileRe = regexp.MustCompile(`^(.+)\(\d+,\d+\):\s+error\s+TS\d+`)

// GetFileBreakdown returns per-file error counts parsed from the
// file-breakdown tool's diagnostics. Unconfigured or failed → empty map.
func (t *Tracker) GetFileBreakdown() map[string]int {
	breakdown := map[string]int{}
	stdout, stderr, _, ok := t.runTool(ToolFileBreakdown)
	if !ok {
		return breakdown
	}
	for _, line := range strings.Split(stdout+"\n"+stderr, "\n") {
		if m := tscFileRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			breakdown[m[1]]++
		}
	}
	return breakdown
}

// GetProgressMetrics composes all getters into one snapshot and appends it
// to the capped history (oldest entries evicted first).
func (t *Tracker) GetProgressMetrics() ProgressMetrics {
	buildSeconds := t.GetBuildTime()
	buildPct := 0.0
	if buildSeconds >= 0 && t.baselines.BuildTimeSeconds > 0 {
		buildPct = (t.baselines.BuildTimeSeconds - buildSeconds) / t.baselines.BuildTimeSeconds * 100
		if buildPct < 0 {
			buildPct = 0
		}
	}

	pm := ProgressMetrics{
		TypeScriptErrors:  newMetric(t.GetTypeScriptErrorCount(), t.baselines.TypeScriptErrors, t.targets.TypeScriptErrors),
		LintingWarnings:   newMetric(t.GetLintingWarningCount(), t.baselines.LintingWarnings, t.targets.LintingWarnings),
		EnterpriseSystems: newMetric(t.GetEnterpriseSystemCount(), t.baselines.EnterpriseSystems, t.targets.EnterpriseSystems),
		BuildPerformance: BuildMetric{
			CurrentSeconds: buildSeconds,
			TargetSeconds:  t.targets.MaxBuildSeconds,
			Percentage:     buildPct,
			CacheHitRate:   t.GetCacheHitRate(),
			MemoryMB:       t.GetMemoryUsage(),
			BundleKB:       t.GetBundleSize(),
		},
		CollectedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	t.history = append(t.history, pm)
	if len(t.history) > t.historyCap {
		t.history = t.history[len(t.history)-t.historyCap:]
	}
	t.mu.Unlock()

	return pm
}

// History returns a copy of the retained snapshots, oldest first.
func (t *Tracker) History() []ProgressMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProgressMetrics, len(t.history))
	copy(out, t.history)
	return out
}

// Baselines returns the configured baselines.
func (t *Tracker) Baselines() Baselines {
	return t.baselines
}
