package checkpoint

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}
