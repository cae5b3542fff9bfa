package progress

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// mockRunner returns scripted output per command string.
type mockRunner struct {
	stdout map[string]string
	errs   map[string]error
	exit   map[string]int
}

func (m *mockRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	if err, ok := m.errs[command]; ok {
		return "", "", -1, err
	}
	return m.stdout[command], "", m.exit[command], nil
}

func testTools() map[string]ToolConfig {
	return map[string]ToolConfig{
		ToolTypeScriptErrors:  {Command: "count-ts"},
		ToolLintWarnings:      {Command: "count-lint"},
		ToolEnterpriseSystems: {Command: "count-systems"},
		ToolBuild:             {Command: "build"},
		ToolBundleSize:        {Command: "bundle"},
		ToolMemory:            {Command: "memory"},
		ToolCacheStats:        {Command: "cache"},
		ToolFileBreakdown:     {Command: "breakdown"},
	}
}

func testBaselines() Baselines {
	return Baselines{
		TypeScriptErrors:  86,
		LintingWarnings:   4506,
		EnterpriseSystems: 200,
		BuildTimeSeconds:  60,
	}
}

func testTargets() Targets {
	return Targets{
		TypeScriptErrors: 0,
		LintingWarnings:  0,
		MaxBuildSeconds:  600, // generous; the mock build returns instantly
		MaxBundleKB:      500,
	}
}

func newTestTracker(runner *mockRunner, historyCap int) *Tracker {
	return NewTracker(runner, "/repo", testTools(), testBaselines(), testTargets(), historyCap)
}

func TestGetTypeScriptErrorCount_ParsesInteger(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{"count-ts": "5\n"}}, 50)

	if got := tr.GetTypeScriptErrorCount(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestGetTypeScriptErrorCount_NoMatchesSentinel(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{"count-ts": "no matches found"}}, 50)

	if got := tr.GetTypeScriptErrorCount(); got != 0 {
		t.Errorf("expected 0 for sentinel, got %d", got)
	}
}

func TestGetTypeScriptErrorCount_ToolFailure(t *testing.T) {
	tr := newTestTracker(&mockRunner{errs: map[string]error{"count-ts": fmt.Errorf("command not found")}}, 50)

	if got := tr.GetTypeScriptErrorCount(); got != Unmeasured {
		t.Errorf("expected -1 for tool failure, got %d", got)
	}
}

func TestGetTypeScriptErrorCount_GarbledOutput(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{"count-ts": "something went sideways"}}, 50)

	if got := tr.GetTypeScriptErrorCount(); got != Unmeasured {
		t.Errorf("expected -1 for garbled output, got %d", got)
	}
}

func TestGetTypeScriptErrorCount_Unconfigured(t *testing.T) {
	tr := NewTracker(&mockRunner{}, "/repo", map[string]ToolConfig{}, testBaselines(), testTargets(), 50)

	if got := tr.GetTypeScriptErrorCount(); got != Unmeasured {
		t.Errorf("expected -1 when unconfigured, got %d", got)
	}
}

func TestGetCacheHitRate_PercentageNormalized(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{"cache": "85.5% hit rate"}}, 50)

	got := tr.GetCacheHitRate()
	if got < 0.85 || got > 0.86 {
		t.Errorf("expected ~0.855, got %f", got)
	}
}

func TestGetCacheHitRate_Unconfigured(t *testing.T) {
	tr := NewTracker(&mockRunner{}, "/repo", map[string]ToolConfig{}, testBaselines(), testTargets(), 50)

	if got := tr.GetCacheHitRate(); got != Unmeasured {
		t.Errorf("expected -1 when unconfigured, got %f", got)
	}
}

func TestGetBundleSize_ParsesLeadingNumber(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{"bundle": "412\t.next/static"}}, 50)

	if got := tr.GetBundleSize(); got != 412 {
		t.Errorf("expected 412, got %d", got)
	}
}

func TestGetProgressMetrics_ReductionAndPercentage(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{
		"count-ts":      "43",
		"count-lint":    "2253",
		"count-systems": "150",
		"bundle":        "400",
		"memory":        "128.5",
		"cache":         "0.8",
	}}, 50)

	pm := tr.GetProgressMetrics()

	if pm.TypeScriptErrors.Reduction != 43 {
		t.Errorf("expected reduction 43, got %d", pm.TypeScriptErrors.Reduction)
	}
	if pm.TypeScriptErrors.Percentage != 50 {
		t.Errorf("expected 50%%, got %f", pm.TypeScriptErrors.Percentage)
	}
	if pm.LintingWarnings.Percentage != 50 {
		t.Errorf("expected 50%%, got %f", pm.LintingWarnings.Percentage)
	}
}

func TestGetProgressMetrics_UnmeasuredContributesZeroPercent(t *testing.T) {
	tr := newTestTracker(&mockRunner{errs: map[string]error{
		"count-ts": fmt.Errorf("boom"),
	}, stdout: map[string]string{
		"count-lint": "100",
	}}, 50)

	pm := tr.GetProgressMetrics()

	if pm.TypeScriptErrors.Current != Unmeasured {
		t.Errorf("expected -1 current, got %d", pm.TypeScriptErrors.Current)
	}
	if pm.TypeScriptErrors.Percentage != 0 {
		t.Errorf("expected 0%% for unmeasured, got %f", pm.TypeScriptErrors.Percentage)
	}
}

func TestHistory_CapAndEvictionOrder(t *testing.T) {
	counter := 0
	runner := &mockRunner{stdout: map[string]string{}}
	tr := NewTracker(runner, "/repo", map[string]ToolConfig{
		ToolTypeScriptErrors: {Command: "count-ts"},
	}, testBaselines(), testTargets(), 5)

	for i := 0; i < 8; i++ {
		counter = 80 - i
		runner.stdout["count-ts"] = fmt.Sprintf("%d", counter)
		tr.GetProgressMetrics()
	}

	history := tr.History()
	if len(history) != 5 {
		t.Fatalf("expected history capped at 5, got %d", len(history))
	}
	// Entries 0..2 evicted; retained snapshots are 80-3 .. 80-7, oldest first.
	for i, pm := range history {
		want := 80 - (3 + i)
		if pm.TypeScriptErrors.Current != want {
			t.Errorf("history[%d] current = %d, want %d", i, pm.TypeScriptErrors.Current, want)
		}
	}
}

func TestValidateMilestone_ZeroTypeScriptErrors(t *testing.T) {
	runner := &mockRunner{stdout: map[string]string{
		"count-ts":   "0",
		"count-lint": "9999", // other metrics must not matter
	}}
	tr := newTestTracker(runner, 50)

	if !tr.ValidateMilestone(MilestoneZeroTypeScriptErrors) {
		t.Error("expected milestone satisfied at 0 errors")
	}

	runner.stdout["count-ts"] = "1"
	if tr.ValidateMilestone(MilestoneZeroTypeScriptErrors) {
		t.Error("expected milestone unsatisfied at 1 error")
	}
}

func TestValidateMilestone_UnknownName(t *testing.T) {
	tr := newTestTracker(&mockRunner{}, 50)

	if tr.ValidateMilestone("world-peace") {
		t.Error("unknown milestone must be false")
	}
}

func TestGenerateProgressReport_PhaseStatuses(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{
		"count-ts":      "0",    // completed
		"count-lint":    "2253", // in progress
		"count-systems": "250",  // above target 0 → completed (current<=target false)... see below
	}}, 50)

	report := tr.GenerateProgressReport()

	if len(report.Phases) != 4 {
		t.Fatalf("expected 4 phases, got %d", len(report.Phases))
	}
	if report.Phases[0].Status != PhaseCompleted {
		t.Errorf("expected TS phase COMPLETED, got %s", report.Phases[0].Status)
	}
	if report.Phases[1].Status != PhaseInProgress {
		t.Errorf("expected lint phase IN_PROGRESS, got %s", report.Phases[1].Status)
	}
	if len(report.Phases[1].Issues) == 0 || len(report.Phases[1].Achievements) == 0 {
		t.Errorf("expected both issues and achievements for in-progress phase")
	}
	if report.OverallProgress <= 0 || report.OverallProgress > 100 {
		t.Errorf("unexpected overall progress %f", report.OverallProgress)
	}
}

func TestExportSnapshot(t *testing.T) {
	tr := newTestTracker(&mockRunner{stdout: map[string]string{
		"count-ts":  "3",
		"breakdown": "src/a.ts(1,1): error TS2345: bad\nsrc/a.ts(9,2): error TS2345: bad\nsrc/b.ts(2,2): error TS1005: worse\n",
	}}, 50)

	path := filepath.Join(t.TempDir(), "out", "snapshot.json")
	snap, err := tr.ExportSnapshot(path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if snap.FileBreakdown["src/a.ts"] != 2 || snap.FileBreakdown["src/b.ts"] != 1 {
		t.Errorf("unexpected file breakdown: %v", snap.FileBreakdown)
	}
	if snap.Baseline.TypeScriptErrors != 86 {
		t.Errorf("expected baseline in snapshot, got %+v", snap.Baseline)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected snapshot file written: %v", err)
	}
}
