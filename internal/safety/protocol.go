package safety

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/typesweep/typesweep/internal/checkpoint"
	"github.com/typesweep/typesweep/internal/corruption"
)

// SessionState tracks where a safety session is in its lifecycle.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateCheckpointing SessionState = "checkpointing"
	StateBatchRunning  SessionState = "batch_running"
	StateValidating    SessionState = "validating"
	StateRollingBack   SessionState = "rolling_back"
)

// Protocol owns rollback policy for a campaign. All git-mutating operations
// (manual rollback and the monitor's emergency path) funnel through its
// mutex, so checkpoint state never sees concurrent git commands.
type Protocol struct {
	stashes      *checkpoint.Manager
	detector     *corruption.Detector
	log          *EventLog
	logger       *zap.Logger
	autoRollback bool

	gitMu   sync.Mutex // held across checkpoint/rollback git operations
	stateMu sync.Mutex
	state   SessionState
	busy    atomic.Bool // batch in flight; monitor ticks skip while set

	monMu   sync.Mutex
	monitor *monitor
}

// New creates a Protocol. A nil logger disables structured logging.
func New(stashes *checkpoint.Manager, detector *corruption.Detector, log *EventLog, logger *zap.Logger, autoRollback bool) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = NewEventLog(0)
	}
	return &Protocol{
		stashes:      stashes,
		detector:     detector,
		log:          log,
		logger:       logger,
		autoRollback: autoRollback,
		state:        StateIdle,
	}
}

// Events returns the safety event trail, oldest first.
func (p *Protocol) Events() []Event {
	return p.log.Events()
}

// Record appends an event to the trail and mirrors it to the logger.
func (p *Protocol) Record(typ EventType, sev EventSeverity, description, action string) {
	p.log.Append(typ, sev, description, action)
	p.logger.Info("safety event",
		zap.String("type", string(typ)),
		zap.String("severity", string(sev)),
		zap.String("description", description),
		zap.String("action", action),
	)
}

// State returns the current session state.
func (p *Protocol) State() SessionState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *Protocol) setState(s SessionState) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// BeginBatch marks a batch cycle in flight. Monitor ticks are skipped until
// EndBatch is called.
func (p *Protocol) BeginBatch() {
	p.busy.Store(true)
	p.setState(StateBatchRunning)
}

// BeginValidation marks the post-batch validation phase. The cycle stays in
// flight until EndBatch, so monitor ticks keep skipping.
func (p *Protocol) BeginValidation() {
	p.setState(StateValidating)
}

// EndBatch marks the batch cycle finished.
func (p *Protocol) EndBatch() {
	p.busy.Store(false)
	p.setState(StateIdle)
}

// Busy reports whether a batch cycle is in flight.
func (p *Protocol) Busy() bool {
	return p.busy.Load()
}

// ValidateGitState validates the repository. Not-a-repository is always an
// error. Uncommitted changes are a warning only when automatic rollback is
// disabled; with rollback enabled the caller checkpoints before mutating,
// so a dirty tree is expected.
func (p *Protocol) ValidateGitState() *checkpoint.StateResult {
	res := p.stashes.ValidateRepoState()
	if !res.Success {
		p.Record(EventValidationFailed, SeverityError, strings.Join(res.Errors, "; "), "refusing to proceed")
		return res
	}

	if p.autoRollback {
		var kept []string
		for _, w := range res.Warnings {
			if !strings.Contains(w, "uncommitted") {
				kept = append(kept, w)
			}
		}
		res.Warnings = kept
	}
	return res
}

// Checkpoint creates a stash checkpoint for a phase and records the event.
func (p *Protocol) Checkpoint(description, phase string) (string, error) {
	p.gitMu.Lock()
	defer p.gitMu.Unlock()
	p.setState(StateCheckpointing)
	defer p.setState(StateIdle)

	id, err := p.stashes.CreateStash(description, phase)
	if err != nil {
		p.Record(EventValidationFailed, SeverityError, fmt.Sprintf("checkpoint failed: %v", err), "abort")
		return "", err
	}
	p.Record(EventCheckpointCreated, SeverityInfo, description, "created "+id)
	return id, nil
}

// Rollback applies a specific checkpoint and records the event.
func (p *Protocol) Rollback(stashID string) error {
	p.gitMu.Lock()
	defer p.gitMu.Unlock()
	p.setState(StateRollingBack)
	defer p.setState(StateIdle)

	if _, err := p.stashes.ApplyStash(stashID, true); err != nil {
		p.Record(EventRollback, SeverityError, fmt.Sprintf("rollback to %s failed: %v", stashID, err), "escalate")
		return err
	}
	p.Record(EventRollback, SeverityWarning, "rolled back to "+stashID, "applied checkpoint")
	return nil
}

// EmergencyRollback restores the most recent checkpoint. There is no further
// fallback: a failure here records a second CRITICAL event and returns a
// wrapped error for the caller to surface.
func (p *Protocol) EmergencyRollback() (string, error) {
	p.gitMu.Lock()
	defer p.gitMu.Unlock()
	p.setState(StateRollingBack)
	defer p.setState(StateIdle)

	p.Record(EventEmergencyRecovery, SeverityCritical, "emergency rollback initiated", "applying latest checkpoint")

	id, err := p.stashes.AutoApplyLatestStash()
	if err != nil {
		p.Record(EventEmergencyRecovery, SeverityCritical, fmt.Sprintf("emergency rollback failed: %v", err), "manual intervention required")
		return "", fmt.Errorf("emergency rollback: %w", err)
	}

	p.Record(EventEmergencyRecovery, SeverityCritical, "emergency rollback applied "+id, "working tree restored")
	p.logger.Warn("emergency rollback completed", zap.String("stash", id))
	return id, nil
}
