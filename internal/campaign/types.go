package campaign

import (
	"context"
	"time"
)

// ExecResult is the outcome of one transformation script invocation.
type ExecResult struct {
	Success        bool          `json:"success"`
	FilesProcessed []string      `json:"files_processed"`
	ChangesApplied int           `json:"changes_applied"`
	Errors         []string      `json:"errors,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	ExecutionTime  time.Duration `json:"execution_time"`
}

// DryRunResult estimates what a script invocation would do without mutating
// files. SafetyScore is 0-100; batches below the configured minimum are not
// attempted.
type DryRunResult struct {
	WouldProcess     []string `json:"would_process"`
	EstimatedChanges int      `json:"estimated_changes"`
	PotentialIssues  []string `json:"potential_issues,omitempty"`
	SafetyScore      int      `json:"safety_score"`
}

// BatchResult is the outcome of processing one bounded batch of files.
type BatchResult struct {
	BatchID        string         `json:"batch_id"`
	FilesProcessed []string       `json:"files_processed"`
	Success        bool           `json:"success"`
	Errors         []string       `json:"errors,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	MetricsChange  map[string]int `json:"metrics_change,omitempty"`
}

// BatchExecutor runs the external transformation scripts. Implementations
// must never mutate files during DryRun.
type BatchExecutor interface {
	Execute(ctx context.Context, scriptPath string, params []string) (*ExecResult, error)
	DryRun(ctx context.Context, scriptPath string, params []string) (*DryRunResult, error)
	ProcessBatch(ctx context.Context, files []string, maxFiles int, scriptPath string) (*BatchResult, error)
}

// CampaignState is the persisted state for one campaign.
type CampaignState struct {
	Name         string              `json:"name"`
	Script       string              `json:"script"`
	Phase        string              `json:"phase"`
	Status       string              `json:"status"` // "pending", "in_progress", "completed", "failed", "aborted"
	FilesTotal   int                 `json:"files_total"`
	FilesDone    int                 `json:"files_done"`
	BatchHistory []BatchHistoryEntry `json:"batch_history"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
}

// BatchHistoryEntry records the outcome of one batch attempt.
type BatchHistoryEntry struct {
	BatchID    string `json:"batch_id"`
	Attempt    int    `json:"attempt"`
	Files      int    `json:"files"`
	Checkpoint string `json:"checkpoint"`
	Outcome    string `json:"outcome"` // "committed", "rolled_back", "skipped"
	Duration   string `json:"duration"`
	Detail     string `json:"detail,omitempty"`
}
