package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/typesweep/typesweep/internal/checkpoint"
	"github.com/typesweep/typesweep/internal/corruption"
)

// fakeGit simulates just enough of the git CLI for protocol tests. Guarded
// by a mutex because the monitor applies stashes from its own goroutine.
type fakeGit struct {
	mu       sync.Mutex
	notARepo bool
	dirty    string
	hashIdx  int
	applied  []string
}

func (g *fakeGit) appliedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.applied)
}

func (g *fakeGit) Run(dir string, args ...string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call := strings.Join(args, " ")
	switch {
	case call == "rev-parse --git-dir":
		if g.notARepo {
			return "", fmt.Errorf("fatal: not a git repository")
		}
		return ".git", nil
	case call == "status --porcelain":
		return g.dirty, nil
	case call == "rev-parse --abbrev-ref HEAD":
		return "main", nil
	case strings.HasPrefix(call, "stash push"):
		return "Saved", nil
	case call == "rev-parse refs/stash":
		g.hashIdx++
		return fmt.Sprintf("hash%d", g.hashIdx), nil
	case strings.HasPrefix(call, "stash apply"):
		g.applied = append(g.applied, args[2])
		return "applied", nil
	}
	return "", nil
}

func newTestProtocol(git *fakeGit, autoRollback bool) *Protocol {
	mgr := checkpoint.NewManager(git, "/repo")
	return New(mgr, corruption.NewDetector(), NewEventLog(500), nil, autoRollback)
}

func newTestProtocolWithManager(git *fakeGit, autoRollback bool) (*Protocol, *checkpoint.Manager) {
	mgr := checkpoint.NewManager(git, "/repo")
	return New(mgr, corruption.NewDetector(), NewEventLog(500), nil, autoRollback), mgr
}

func TestSessionState_BatchCycleTransitions(t *testing.T) {
	p := newTestProtocol(&fakeGit{}, true)

	if p.State() != StateIdle || p.Busy() {
		t.Fatalf("expected idle start, got %q busy=%v", p.State(), p.Busy())
	}

	p.BeginBatch()
	if p.State() != StateBatchRunning || !p.Busy() {
		t.Errorf("expected batch_running and busy, got %q busy=%v", p.State(), p.Busy())
	}

	p.BeginValidation()
	if p.State() != StateValidating {
		t.Errorf("expected validating, got %q", p.State())
	}
	if !p.Busy() {
		t.Error("validation is part of the cycle; busy must stay set")
	}

	p.EndBatch()
	if p.State() != StateIdle || p.Busy() {
		t.Errorf("expected idle after EndBatch, got %q busy=%v", p.State(), p.Busy())
	}
}

func TestEventLog_CapEvictsOldestFirst(t *testing.T) {
	log := NewEventLog(5)
	for i := 0; i < 8; i++ {
		log.Append(EventBatchFailed, SeverityInfo, fmt.Sprintf("event-%d", i), "")
	}

	events := log.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	if events[0].Description != "event-3" {
		t.Errorf("expected oldest retained to be event-3, got %q", events[0].Description)
	}
	if events[4].Description != "event-7" {
		t.Errorf("expected newest to be event-7, got %q", events[4].Description)
	}
}

func TestValidateGitState_NotARepoAlwaysError(t *testing.T) {
	p := newTestProtocol(&fakeGit{notARepo: true}, true)

	res := p.ValidateGitState()
	if res.Success {
		t.Fatal("expected failure for non-repository")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected errors")
	}

	events := p.Events()
	if len(events) != 1 || events[0].Type != EventValidationFailed {
		t.Errorf("expected VALIDATION_FAILED event, got %v", events)
	}
}

func TestValidateGitState_DirtyTreeWarningGating(t *testing.T) {
	// Auto-rollback disabled: the dirty tree is the caller's problem.
	p := newTestProtocol(&fakeGit{dirty: " M a.ts"}, false)
	res := p.ValidateGitState()
	if !res.Success || len(res.Warnings) != 1 {
		t.Errorf("expected 1 warning with rollback disabled, got %+v", res)
	}

	// Auto-rollback enabled: a dirty tree is expected before checkpointing.
	p = newTestProtocol(&fakeGit{dirty: " M a.ts"}, true)
	res = p.ValidateGitState()
	if !res.Success || len(res.Warnings) != 0 {
		t.Errorf("expected no warnings with rollback enabled, got %+v", res)
	}
}

func TestEmergencyRollback_NoCheckpoint(t *testing.T) {
	p := newTestProtocol(&fakeGit{}, true)

	_, err := p.EmergencyRollback()
	if err == nil {
		t.Fatal("expected error with empty checkpoint index")
	}
	var na *checkpoint.NoStashAvailableError
	if !errors.As(err, &na) {
		t.Errorf("expected NoStashAvailableError in chain, got %v", err)
	}

	var criticals int
	for _, e := range p.Events() {
		if e.Type == EventEmergencyRecovery && e.Severity == SeverityCritical {
			criticals++
		}
	}
	if criticals != 2 {
		t.Errorf("expected 2 CRITICAL recovery events (initiated + failed), got %d", criticals)
	}
}

func TestEmergencyRollback_AppliesLatest(t *testing.T) {
	git := &fakeGit{}
	p, mgr := newTestProtocolWithManager(git, true)

	id, err := mgr.CreateStash("before batch", "phase1")
	if err != nil {
		t.Fatalf("create stash: %v", err)
	}

	applied, err := p.EmergencyRollback()
	if err != nil {
		t.Fatalf("emergency rollback: %v", err)
	}
	if applied != id {
		t.Errorf("expected %q applied, got %q", id, applied)
	}
	if git.appliedCount() != 1 {
		t.Errorf("expected 1 git apply, got %d", git.appliedCount())
	}
}

func TestCheckpoint_RecordsEvent(t *testing.T) {
	p := newTestProtocol(&fakeGit{}, true)

	id, err := p.Checkpoint("before batch 3", "phase2")
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if !strings.HasPrefix(id, "campaign-phase2-") {
		t.Errorf("unexpected checkpoint id %q", id)
	}

	events := p.Events()
	if len(events) != 1 || events[0].Type != EventCheckpointCreated {
		t.Errorf("expected CHECKPOINT_CREATED event, got %v", events)
	}
}

func TestMonitor_CriticalCorruptionTriggersRollback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	if err := os.WriteFile(path, []byte("const ok = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	git := &fakeGit{}
	p, mgr := newTestProtocolWithManager(git, true)
	if _, err := mgr.CreateStash("clean state", "mon"); err != nil {
		t.Fatalf("create stash: %v", err)
	}

	// Corrupt the file, then let the monitor find it.
	conflict := "<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> other\n"
	if err := os.WriteFile(path, []byte(conflict), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := p.StartRealTimeMonitoring([]string{path}, 10*time.Millisecond); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}
	defer p.StopRealTimeMonitoring()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if git.appliedCount() > 0 {
			return // rollback happened
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("monitor never triggered emergency rollback")
}

func TestMonitor_SkipsTicksWhileBatchInFlight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	conflict := "<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> other\n"
	if err := os.WriteFile(path, []byte(conflict), 0o644); err != nil {
		t.Fatal(err)
	}

	p := newTestProtocol(&fakeGit{}, true)
	p.BeginBatch()
	defer p.EndBatch()

	if err := p.StartRealTimeMonitoring([]string{path}, 10*time.Millisecond); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	p.StopRealTimeMonitoring()

	for _, e := range p.Events() {
		if e.Type == EventCorruptionDetected {
			t.Fatal("monitor must skip ticks while a batch is in flight")
		}
	}
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	p := newTestProtocol(&fakeGit{}, true)

	if err := p.StartRealTimeMonitoring(nil, 10*time.Millisecond); err != nil {
		t.Fatalf("start: %v", err)
	}
	p.StopRealTimeMonitoring()
	p.StopRealTimeMonitoring() // no-op

	// A second monitor can start after stopping.
	if err := p.StartRealTimeMonitoring(nil, 10*time.Millisecond); err != nil {
		t.Fatalf("restart: %v", err)
	}
	p.StopRealTimeMonitoring()
}

func TestMonitor_DoubleStartFails(t *testing.T) {
	p := newTestProtocol(&fakeGit{}, true)

	if err := p.StartRealTimeMonitoring(nil, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.StopRealTimeMonitoring()

	if err := p.StartRealTimeMonitoring(nil, time.Minute); err == nil {
		t.Fatal("expected error on double start")
	}
}
