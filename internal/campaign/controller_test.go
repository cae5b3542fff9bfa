package campaign

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/typesweep/typesweep/internal/checkpoint"
	"github.com/typesweep/typesweep/internal/config"
	"github.com/typesweep/typesweep/internal/corruption"
	"github.com/typesweep/typesweep/internal/progress"
	"github.com/typesweep/typesweep/internal/safety"
)

// gitStub simulates the git CLI for controller tests.
type gitStub struct {
	hashIdx int
	applied int
}

func (g *gitStub) Run(dir string, args ...string) (string, error) {
	call := strings.Join(args, " ")
	switch {
	case call == "rev-parse --git-dir":
		return ".git", nil
	case call == "status --porcelain":
		return "", nil
	case call == "rev-parse --abbrev-ref HEAD":
		return "main", nil
	case strings.HasPrefix(call, "stash push"):
		return "Saved", nil
	case call == "rev-parse refs/stash":
		g.hashIdx++
		return fmt.Sprintf("hash%d", g.hashIdx), nil
	case strings.HasPrefix(call, "stash apply"):
		g.applied++
		return "applied", nil
	}
	return "", nil
}

// toolStub scripts metric tool output per command. onRun, when set, observes
// each invocation.
type toolStub struct {
	stdout map[string]string
	errs   map[string]error
	onRun  func(command string)
}

func (r *toolStub) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	if r.onRun != nil {
		r.onRun(command)
	}
	if err, ok := r.errs[command]; ok {
		return "", "", -1, err
	}
	return r.stdout[command], "", 0, nil
}

// execStub is a programmable BatchExecutor that records batch sizes.
type execStub struct {
	dry     *DryRunResult
	dryErr  error
	success bool
	sizes   []int
}

func (s *execStub) Execute(ctx context.Context, script string, params []string) (*ExecResult, error) {
	return &ExecResult{Success: s.success}, nil
}

func (s *execStub) DryRun(ctx context.Context, script string, params []string) (*DryRunResult, error) {
	if s.dryErr != nil {
		return nil, s.dryErr
	}
	return s.dry, nil
}

func (s *execStub) ProcessBatch(ctx context.Context, files []string, maxFiles int, script string) (*BatchResult, error) {
	s.sizes = append(s.sizes, len(files))
	return &BatchResult{
		BatchID:        fmt.Sprintf("b-%d", len(s.sizes)),
		FilesProcessed: files,
		Success:        s.success,
	}, nil
}

func testController(t *testing.T, git *gitStub, exec BatchExecutor, tools *toolStub, policy config.BatchPolicy) (*Controller, *Store, *safety.Protocol) {
	t.Helper()
	mgr := checkpoint.NewManager(git, "/repo")
	proto := safety.New(mgr, corruption.NewDetector(), safety.NewEventLog(500), nil, true)
	tracker := progress.NewTracker(tools, "/repo", map[string]progress.ToolConfig{
		progress.ToolTypeScriptErrors: {Command: "count-ts"},
		progress.ToolBuild:            {Command: "build"},
	}, progress.Baselines{TypeScriptErrors: 86}, progress.Targets{}, 50)
	store := NewStore(t.TempDir())
	ctrl := NewController("sweep", proto, tracker, corruption.NewDetector(), exec, store, nil, policy, nil)
	return ctrl, store, proto
}

func okPolicy() config.BatchPolicy {
	return config.BatchPolicy{
		MaxFiles:            2,
		ValidationFrequency: 0,
		MaxRetries:          2,
		RetryDivisor:        2,
		OnError:             "retry",
		MinSafetyScore:      70,
	}
}

func TestRun_CommitsAllBatches(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dry: &DryRunResult{SafetyScore: 100}, success: true}
	tools := &toolStub{stdout: map[string]string{"count-ts": "5", "build": "ok"}}

	ctrl, store, _ := testController(t, git, exec, tools, okPolicy())

	res, err := ctrl.Run(context.Background(), RunOpts{
		Files:  []string{"a.ts", "b.ts", "c.ts", "d.ts"},
		Script: "s.sh",
		Phase:  "phase1",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != "completed" || res.FilesDone != 4 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(res.Batches))
	}
	for _, b := range res.Batches {
		if b.Action != "committed" || b.Checkpoint == "" {
			t.Errorf("unexpected batch outcome: %+v", b)
		}
	}

	cs, err := store.Get("sweep")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if cs.Status != "completed" || cs.FilesDone != 4 {
		t.Errorf("state not persisted: %+v", cs)
	}
	if len(cs.BatchHistory) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(cs.BatchHistory))
	}
	if git.applied != 0 {
		t.Errorf("no rollback expected, got %d applies", git.applied)
	}
}

func TestRunBatch_SafetyScoreGate(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dry: &DryRunResult{SafetyScore: 40}, success: true}
	tools := &toolStub{stdout: map[string]string{"count-ts": "5"}}

	ctrl, _, proto := testController(t, git, exec, tools, okPolicy())

	out, err := ctrl.RunBatch(context.Background(), []string{"a.ts"}, "s.sh", "p", 1)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if out.Action != "skipped" {
		t.Errorf("expected skipped, got %q", out.Action)
	}
	if len(exec.sizes) != 0 {
		t.Error("executor must not run when gated out")
	}

	var found bool
	for _, e := range proto.Events() {
		if e.Type == safety.EventBatchFailed {
			found = true
		}
	}
	if !found {
		t.Error("expected BATCH_FAILED event for gated batch")
	}
}

func TestRunBatch_RetriesAtReducedSizeThenAborts(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dry: &DryRunResult{SafetyScore: 100}, success: false}
	tools := &toolStub{stdout: map[string]string{"count-ts": "5"}}

	policy := okPolicy()
	policy.MaxFiles = 4
	ctrl, _, _ := testController(t, git, exec, tools, policy)

	out, err := ctrl.RunBatch(context.Background(), []string{"a.ts", "b.ts", "c.ts", "d.ts"}, "s.sh", "p", 1)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if out.Action != "aborted" {
		t.Errorf("expected aborted, got %q", out.Action)
	}
	want := []int{4, 2, 1}
	if len(exec.sizes) != len(want) {
		t.Fatalf("expected %d attempts, got %v", len(want), exec.sizes)
	}
	for i, w := range want {
		if exec.sizes[i] != w {
			t.Errorf("attempt %d size = %d, want %d", i+1, exec.sizes[i], w)
		}
	}
	// Each failed attempt rolled back to its checkpoint.
	if git.applied != 3 {
		t.Errorf("expected 3 rollbacks, got %d", git.applied)
	}
}

func TestRunBatch_AbortPolicySkipsRetries(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dry: &DryRunResult{SafetyScore: 100}, success: false}
	tools := &toolStub{stdout: map[string]string{"count-ts": "5"}}

	policy := okPolicy()
	policy.OnError = "abort"
	ctrl, _, _ := testController(t, git, exec, tools, policy)

	out, err := ctrl.RunBatch(context.Background(), []string{"a.ts", "b.ts"}, "s.sh", "p", 1)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if out.Action != "aborted" {
		t.Errorf("expected aborted, got %q", out.Action)
	}
	if len(exec.sizes) != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", len(exec.sizes))
	}
}

func TestRunBatch_ValidationGateRollsBack(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dry: &DryRunResult{SafetyScore: 100}, success: true}
	tools := &toolStub{
		stdout: map[string]string{"count-ts": "5"},
		errs:   map[string]error{"build": fmt.Errorf("build broke")},
	}

	policy := okPolicy()
	policy.ValidationFrequency = 1
	policy.MaxRetries = 0
	ctrl, _, proto := testController(t, git, exec, tools, policy)

	out, err := ctrl.RunBatch(context.Background(), []string{"a.ts"}, "s.sh", "p", 1)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if out.Action != "aborted" {
		t.Errorf("expected aborted after failed gate with no retries, got %q", out.Action)
	}
	if git.applied != 1 {
		t.Errorf("expected 1 rollback, got %d", git.applied)
	}

	var found bool
	for _, e := range proto.Events() {
		if e.Type == safety.EventValidationFailed {
			found = true
		}
	}
	if !found {
		t.Error("expected VALIDATION_FAILED event")
	}
}

func TestRunBatch_ValidationRunsInsideBatchCycle(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dry: &DryRunResult{SafetyScore: 100}, success: true}
	tools := &toolStub{stdout: map[string]string{"count-ts": "5", "build": "ok"}}

	policy := okPolicy()
	policy.ValidationFrequency = 1
	ctrl, _, proto := testController(t, git, exec, tools, policy)

	var busyDuringGate bool
	var stateDuringGate safety.SessionState
	tools.onRun = func(command string) {
		if command == "build" {
			busyDuringGate = proto.Busy()
			stateDuringGate = proto.State()
		}
	}

	out, err := ctrl.RunBatch(context.Background(), []string{"a.ts"}, "s.sh", "p", 1)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if out.Action != "committed" {
		t.Fatalf("expected committed, got %q", out.Action)
	}
	if !busyDuringGate {
		t.Error("batch cycle must still be in flight while the validation gate runs")
	}
	if stateDuringGate != safety.StateValidating {
		t.Errorf("expected validating state during the gate, got %q", stateDuringGate)
	}
	if proto.Busy() {
		t.Error("busy flag must clear once the batch outcome is decided")
	}
	if proto.State() != safety.StateIdle {
		t.Errorf("expected idle after the batch, got %q", proto.State())
	}
}

func TestRun_DryRunErrorSkipsBatch(t *testing.T) {
	git := &gitStub{}
	exec := &execStub{dryErr: fmt.Errorf("script missing"), success: true}
	tools := &toolStub{stdout: map[string]string{"count-ts": "5"}}

	ctrl, _, _ := testController(t, git, exec, tools, okPolicy())

	out, err := ctrl.RunBatch(context.Background(), []string{"a.ts"}, "s.sh", "p", 1)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if out.Action != "skipped" {
		t.Errorf("expected skipped on dry-run failure, got %q", out.Action)
	}
}
