package checkpoint

import (
	"fmt"
	"strings"
)

// GitStateError reports that the repository is not in a state where a
// checkpoint can be created or applied. Reasons holds each problem found.
type GitStateError struct {
	Reasons []string
}

func (e *GitStateError) Error() string {
	return fmt.Sprintf("git state invalid: %s", strings.Join(e.Reasons, "; "))
}

// StashNotFoundError reports an attempt to apply a stash ID that was never
// created by this manager (or was already cleaned up).
type StashNotFoundError struct {
	ID string
}

func (e *StashNotFoundError) Error() string {
	return fmt.Sprintf("stash %q not found in tracking index", e.ID)
}

// NoStashAvailableError reports that auto-apply was requested while the
// tracking index is empty.
type NoStashAvailableError struct{}

func (e *NoStashAvailableError) Error() string {
	return "no stash available to apply"
}
