package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/typesweep/typesweep/internal/config"
	"github.com/typesweep/typesweep/internal/corruption"
	"github.com/typesweep/typesweep/internal/db"
	"github.com/typesweep/typesweep/internal/progress"
	"github.com/typesweep/typesweep/internal/safety"
)

// Controller drives a campaign batch by batch: checkpoint, execute, scan,
// periodically validate, then commit or roll back. Cycles are strictly
// sequential; only the safety monitor runs alongside, gated by the busy flag.
type Controller struct {
	name     string
	protocol *safety.Protocol
	tracker  *progress.Tracker
	detector *corruption.Detector
	executor BatchExecutor
	store    *Store
	database *db.DB // optional; nil disables analytics logging
	policy   config.BatchPolicy
	logger   *zap.Logger

	baselineErrors int
}

// NewController creates a Controller. database may be nil; logger may be nil.
func NewController(
	name string,
	protocol *safety.Protocol,
	tracker *progress.Tracker,
	detector *corruption.Detector,
	executor BatchExecutor,
	store *Store,
	database *db.DB,
	policy config.BatchPolicy,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		name:           name,
		protocol:       protocol,
		tracker:        tracker,
		detector:       detector,
		executor:       executor,
		store:          store,
		database:       database,
		policy:         policy,
		logger:         logger,
		baselineErrors: progress.Unmeasured,
	}
}

// BatchOutcome describes what happened to one batch.
type BatchOutcome struct {
	BatchID    string `json:"batch_id"`
	Action     string `json:"action"` // "committed", "rolled_back", "skipped", "aborted"
	Attempt    int    `json:"attempt"`
	Files      int    `json:"files"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Message    string `json:"message,omitempty"`
}

// RunOpts holds options for running a campaign.
type RunOpts struct {
	Files  []string
	Script string
	Phase  string
}

// RunResult summarises a completed campaign run.
type RunResult struct {
	Status     string         `json:"status"`
	Batches    []BatchOutcome `json:"batches"`
	FilesDone  int            `json:"files_done"`
	FilesTotal int            `json:"files_total"`
}

// Run executes a full campaign: partition files into batches, run each batch
// through the safety cycle, and stop on abort. The working tree is left at
// the last committed checkpoint if a batch cannot be salvaged.
func (c *Controller) Run(ctx context.Context, opts RunOpts) (*RunResult, error) {
	if len(opts.Files) == 0 {
		return nil, fmt.Errorf("no files to process")
	}
	if state := c.protocol.ValidateGitState(); !state.Success {
		return nil, fmt.Errorf("repository validation failed: %v", state.Errors)
	}

	if _, err := c.store.Create(c.name, opts.Script, opts.Phase, len(opts.Files)); err != nil {
		return nil, err
	}
	_ = c.store.Update(c.name, func(cs *CampaignState) { cs.Status = "in_progress" })

	// Baseline error count for the validation gate.
	c.baselineErrors = c.tracker.GetTypeScriptErrorCount()

	result := &RunResult{Status: "completed", FilesTotal: len(opts.Files)}
	size := c.policy.MaxFiles
	if size <= 0 {
		size = len(opts.Files)
	}

	batchNum := 0
	for start := 0; start < len(opts.Files); start += size {
		end := start + size
		if end > len(opts.Files) {
			end = len(opts.Files)
		}
		batchNum++

		outcome, err := c.RunBatch(ctx, opts.Files[start:end], opts.Script, opts.Phase, batchNum)
		if err != nil {
			result.Status = "failed"
			_ = c.store.Update(c.name, func(cs *CampaignState) { cs.Status = "failed" })
			return result, err
		}
		result.Batches = append(result.Batches, *outcome)

		switch outcome.Action {
		case "committed":
			result.FilesDone += outcome.Files
			_ = c.store.Update(c.name, func(cs *CampaignState) { cs.FilesDone += outcome.Files })
		case "aborted":
			result.Status = "aborted"
			_ = c.store.Update(c.name, func(cs *CampaignState) { cs.Status = "aborted" })
			return result, nil
		}
	}

	_ = c.store.Update(c.name, func(cs *CampaignState) { cs.Status = "completed" })
	c.logger.Info("campaign completed",
		zap.String("campaign", c.name),
		zap.Int("files", result.FilesDone),
		zap.Int("batches", len(result.Batches)),
	)
	return result, nil
}

// RunBatch runs one batch through the full safety cycle, retrying at reduced
// size per policy. batchNum is 1-based and drives the periodic validation gate.
func (c *Controller) RunBatch(ctx context.Context, files []string, script, phase string, batchNum int) (*BatchOutcome, error) {
	// Dry-run gate before touching anything.
	dry, err := c.executor.DryRun(ctx, script, []string{"--files", strings.Join(files, ",")})
	if err != nil {
		c.protocol.Record(safety.EventBatchFailed, safety.SeverityError,
			fmt.Sprintf("dry run failed: %v", err), "batch skipped")
		return &BatchOutcome{Action: "skipped", Files: len(files), Message: err.Error()}, nil
	}
	if dry.SafetyScore < c.policy.MinSafetyScore {
		msg := fmt.Sprintf("safety score %d below minimum %d", dry.SafetyScore, c.policy.MinSafetyScore)
		c.protocol.Record(safety.EventBatchFailed, safety.SeverityWarning, msg, "batch skipped")
		c.recordHistory(BatchHistoryEntry{Attempt: 1, Files: len(files), Outcome: "skipped", Detail: msg})
		return &BatchOutcome{Action: "skipped", Files: len(files), Message: msg}, nil
	}

	attempt := 0
	size := len(files)
	for {
		attempt++
		batch := files
		if size < len(batch) {
			batch = batch[:size]
		}

		outcome, retryable := c.attempt(ctx, batch, script, phase, batchNum, attempt)
		if outcome.Action == "committed" || outcome.Action == "skipped" {
			return outcome, nil
		}
		if !retryable || c.policy.OnError == "abort" || attempt > c.policy.MaxRetries {
			if c.policy.OnError == "abort" || attempt > c.policy.MaxRetries {
				outcome.Action = "aborted"
			}
			return outcome, nil
		}

		// Retry at reduced size.
		div := c.policy.RetryDivisor
		if div < 2 {
			div = 2
		}
		size = size / div
		if size < 1 {
			size = 1
		}
		c.logger.Warn("retrying batch at reduced size",
			zap.String("campaign", c.name),
			zap.Int("attempt", attempt+1),
			zap.Int("size", size),
		)
	}
}

// attempt runs one checkpoint-execute-scan-validate cycle. Returns the
// outcome and whether a failure is retryable.
func (c *Controller) attempt(ctx context.Context, files []string, script, phase string, batchNum, attempt int) (*BatchOutcome, bool) {
	start := time.Now()

	checkpointID, err := c.protocol.Checkpoint(fmt.Sprintf("before batch %d attempt %d", batchNum, attempt), phase)
	if err != nil {
		// Cannot checkpoint: never mutate without one.
		return &BatchOutcome{Action: "aborted", Attempt: attempt, Files: len(files),
			Message: fmt.Sprintf("checkpoint failed: %v", err)}, false
	}

	// The whole cycle is mutually exclusive with the monitor: an emergency
	// rollback mid-scan would consume the checkpoint this attempt relies on.
	c.protocol.BeginBatch()
	defer c.protocol.EndBatch()

	res, err := c.executor.ProcessBatch(ctx, files, len(files), script)
	if err != nil {
		c.rollback(checkpointID, fmt.Sprintf("batch execution error: %v", err))
		c.logBatch(res, phase, attempt, len(files), false, true, checkpointID, start, err.Error())
		return &BatchOutcome{Action: "rolled_back", Attempt: attempt, Files: len(files),
			Checkpoint: checkpointID, Message: err.Error()}, true
	}

	// Corruption scan over everything the batch touched.
	report := c.detector.DetectCorruption(res.FilesProcessed)
	if report.Severity == corruption.SeverityCritical || !res.Success {
		detail := "batch reported failure"
		if report.Severity == corruption.SeverityCritical {
			detail = fmt.Sprintf("critical corruption in %d files", len(report.DetectedFiles))
			c.protocol.Record(safety.EventCorruptionDetected, safety.SeverityCritical, detail, "rolling back batch")
		}
		c.rollback(checkpointID, detail)
		c.logBatch(res, phase, attempt, len(files), false, true, checkpointID, start, detail)
		c.recordHistory(BatchHistoryEntry{BatchID: res.BatchID, Attempt: attempt, Files: len(files),
			Checkpoint: checkpointID, Outcome: "rolled_back", Duration: time.Since(start).String(), Detail: detail})
		return &BatchOutcome{BatchID: res.BatchID, Action: "rolled_back", Attempt: attempt,
			Files: len(files), Checkpoint: checkpointID, Message: detail}, true
	}

	// Periodic validation gate.
	if c.policy.ValidationFrequency > 0 && batchNum%c.policy.ValidationFrequency == 0 {
		c.protocol.BeginValidation()
		if err := c.validationGate(); err != nil {
			detail := fmt.Sprintf("validation gate failed: %v", err)
			c.protocol.Record(safety.EventValidationFailed, safety.SeverityError, detail, "rolling back batch")
			c.rollback(checkpointID, detail)
			c.logBatch(res, phase, attempt, len(files), false, true, checkpointID, start, detail)
			c.recordHistory(BatchHistoryEntry{BatchID: res.BatchID, Attempt: attempt, Files: len(files),
				Checkpoint: checkpointID, Outcome: "rolled_back", Duration: time.Since(start).String(), Detail: detail})
			return &BatchOutcome{BatchID: res.BatchID, Action: "rolled_back", Attempt: attempt,
				Files: len(files), Checkpoint: checkpointID, Message: detail}, true
		}
	}

	c.logBatch(res, phase, attempt, len(files), true, false, checkpointID, start, "")
	c.recordHistory(BatchHistoryEntry{BatchID: res.BatchID, Attempt: attempt, Files: len(files),
		Checkpoint: checkpointID, Outcome: "committed", Duration: time.Since(start).String()})
	return &BatchOutcome{BatchID: res.BatchID, Action: "committed", Attempt: attempt,
		Files: len(files), Checkpoint: checkpointID}, false
}

// validationGate checks that the tree still builds and the error count has
// not regressed past the campaign's starting point.
func (c *Controller) validationGate() error {
	if c.tracker.GetBuildTime() < 0 {
		return fmt.Errorf("build failed")
	}
	current := c.tracker.GetTypeScriptErrorCount()
	if current == progress.Unmeasured {
		return fmt.Errorf("error count unmeasurable")
	}
	if c.baselineErrors != progress.Unmeasured && current > c.baselineErrors {
		return fmt.Errorf("error count regressed: %d > %d", current, c.baselineErrors)
	}
	c.baselineErrors = current
	return nil
}

func (c *Controller) rollback(checkpointID, reason string) {
	if err := c.protocol.Rollback(checkpointID); err != nil {
		c.logger.Error("rollback failed", zap.String("checkpoint", checkpointID), zap.Error(err))
	} else {
		c.logger.Warn("batch rolled back", zap.String("checkpoint", checkpointID), zap.String("reason", reason))
	}
}

func (c *Controller) recordHistory(entry BatchHistoryEntry) {
	_ = c.store.Update(c.name, func(cs *CampaignState) {
		cs.BatchHistory = append(cs.BatchHistory, entry)
	})
}

func (c *Controller) logBatch(res *BatchResult, phase string, attempt, files int, success, rolledBack bool, checkpoint string, start time.Time, detail string) {
	if c.database == nil {
		return
	}
	batchID := ""
	if res != nil {
		batchID = res.BatchID
	}
	_ = c.database.LogBatchRun(c.name, batchID, phase, attempt, files, success, rolledBack,
		checkpoint, int(time.Since(start).Milliseconds()), detail)
}
