package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/typesweep/typesweep/internal/progress"
)

// ScriptExecutor runs transformation scripts as subprocesses. Scripts take a
// --files argument and print a single JSON object describing what they did
// (or, with --dry-run, what they would do).
type ScriptExecutor struct {
	runner  progress.CommandRunner
	repoDir string
	timeout time.Duration
}

// NewScriptExecutor creates a ScriptExecutor. A zero timeout means 10 minutes.
func NewScriptExecutor(runner progress.CommandRunner, repoDir string, timeout time.Duration) *ScriptExecutor {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ScriptExecutor{runner: runner, repoDir: repoDir, timeout: timeout}
}

// Execute runs a transformation script and decodes its JSON result. A failed
// invocation is reported inside the result, not as an error; only an
// undecodable result from a zero-exit run is an error.
func (e *ScriptExecutor) Execute(ctx context.Context, scriptPath string, params []string) (*ExecResult, error) {
	command := scriptPath
	if len(params) > 0 {
		command += " " + strings.Join(params, " ")
	}

	start := time.Now()
	stdout, stderr, exit, err := e.run(ctx, command)
	elapsed := time.Since(start)

	if err != nil || exit != 0 {
		return &ExecResult{
			Success:       false,
			Errors:        invocationErrors(stderr, exit, err),
			ExecutionTime: elapsed,
		}, nil
	}

	var res ExecResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		return nil, fmt.Errorf("decode script output: %w", err)
	}
	res.ExecutionTime = elapsed
	return &res, nil
}

// DryRun runs the script with --dry-run and decodes its estimate.
func (e *ScriptExecutor) DryRun(ctx context.Context, scriptPath string, params []string) (*DryRunResult, error) {
	command := scriptPath + " --dry-run"
	if len(params) > 0 {
		command += " " + strings.Join(params, " ")
	}

	stdout, stderr, exit, err := e.run(ctx, command)
	if err != nil || exit != 0 {
		return nil, fmt.Errorf("dry run failed: %s", strings.Join(invocationErrors(stderr, exit, err), "; "))
	}

	var res DryRunResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		return nil, fmt.Errorf("decode dry-run output: %w", err)
	}
	return &res, nil
}

// ProcessBatch runs the script against at most maxFiles of the given files.
// The batch ID is assigned here, not by the script.
func (e *ScriptExecutor) ProcessBatch(ctx context.Context, files []string, maxFiles int, scriptPath string) (*BatchResult, error) {
	if maxFiles > 0 && len(files) > maxFiles {
		files = files[:maxFiles]
	}
	batchID := uuid.NewString()

	res, err := e.Execute(ctx, scriptPath, []string{"--files", strings.Join(files, ",")})
	if err != nil {
		return nil, err
	}

	processed := res.FilesProcessed
	if processed == nil {
		processed = files
	}
	return &BatchResult{
		BatchID:        batchID,
		FilesProcessed: processed,
		Success:        res.Success,
		Errors:         res.Errors,
		Warnings:       res.Warnings,
		MetricsChange:  map[string]int{"changes_applied": res.ChangesApplied},
	}, nil
}

func (e *ScriptExecutor) run(ctx context.Context, command string) (string, string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.runner.Run(ctx, e.repoDir, command)
}

func invocationErrors(stderr string, exit int, err error) []string {
	var errs []string
	if err != nil {
		errs = append(errs, err.Error())
	}
	if exit != 0 {
		errs = append(errs, fmt.Sprintf("exit code %d", exit))
	}
	if s := strings.TrimSpace(stderr); s != "" {
		errs = append(errs, s)
	}
	return errs
}
