package corruption

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CommandRunner abstracts subprocess execution for testability. The
// progress package's ExecRunner satisfies it.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// tsc output format: src/auth.ts(42,5): error TS2345: Argument of type...
var tscErrorRe = regexp.MustCompile(`^(.+)\((\d+),(\d+)\):\s+error\s+(TS\d+):\s+(.+)$`)

// ValidateSyntaxWithTypeScript delegates to the type-checker command and maps
// its diagnostics back to the offending files among those given. A failed
// invocation (the tool itself, not its findings) becomes a single HIGH
// TYPESCRIPT_COMPILATION_ERROR finding rather than an error return.
func (d *Detector) ValidateSyntaxWithTypeScript(runner CommandRunner, dir string, command string, timeout time.Duration, files []string) *Report {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report := &Report{
		DetectedFiles:     []string{},
		Patterns:          []Pattern{},
		Severity:          SeverityLow,
		RecommendedAction: ActionContinue,
	}

	stdout, stderr, exitCode, err := runner.Run(ctx, dir, command)
	if err != nil {
		report.Patterns = append(report.Patterns, Pattern{
			Pattern:     "TYPESCRIPT_COMPILATION_ERROR",
			Description: fmt.Sprintf("type-checker invocation failed: %v", err),
		})
		report.escalate(SeverityHigh)
		return report
	}

	diagnostics := 0
	seen := map[string]bool{}
	for _, line := range strings.Split(stdout+"\n"+stderr, "\n") {
		m := tscErrorRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		diagnostics++
		diagFile := m[1]
		for _, f := range files {
			if !matchesFile(f, diagFile) || seen[f] {
				continue
			}
			seen[f] = true
			report.DetectedFiles = append(report.DetectedFiles, f)
			report.Patterns = append(report.Patterns, Pattern{
				Pattern:     m[4],
				Description: fmt.Sprintf("%s: %s", diagFile, m[5]),
			})
			report.escalate(SeverityHigh)
		}
	}

	// A non-zero exit with no parseable diagnostics means the tool never
	// checked anything (missing binary, bad flags, crash). The shell turns
	// those into an exit code, not an invocation error.
	if exitCode != 0 && diagnostics == 0 {
		report.Patterns = append(report.Patterns, Pattern{
			Pattern:     "TYPESCRIPT_COMPILATION_ERROR",
			Description: fmt.Sprintf("type-checker exited %d without diagnostics: %s", exitCode, strings.TrimSpace(stderr)),
		})
		report.escalate(SeverityHigh)
	}
	return report
}

// matchesFile reports whether a tsc diagnostic path refers to the given file.
// tsc prints paths relative to its working directory, so compare by suffix.
func matchesFile(file, diagPath string) bool {
	return file == diagPath ||
		strings.HasSuffix(file, "/"+diagPath) ||
		strings.HasSuffix(diagPath, "/"+file) ||
		strings.HasSuffix(file, diagPath)
}
