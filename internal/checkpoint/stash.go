package checkpoint

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stash is one tracked checkpoint of the working tree's uncommitted state.
// Immutable once created; it only ever leaves the index via cleanup or apply.
type Stash struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Branch      string    `json:"branch"`
	Ref         string    `json:"ref"` // commit hash of the stash entry
}

// StateResult holds the outcome of validating the repository state.
type StateResult struct {
	Success  bool     `json:"success"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Statistics aggregates the tracked stash index.
type Statistics struct {
	Total   int            `json:"total"`
	ByPhase map[string]int `json:"by_phase"`
	Oldest  *Stash         `json:"oldest,omitempty"`
	Newest  *Stash         `json:"newest,omitempty"`
}

// Manager creates, applies, and cleans up git stash checkpoints. It owns the
// in-memory tracking index; all mutation goes through its mutex.
type Manager struct {
	git     GitRunner
	repoDir string

	mu      sync.Mutex
	stashes map[string]*Stash
	seq     int
	now     func() time.Time
}

// NewManager creates a stash manager for the given repo root.
func NewManager(git GitRunner, repoDir string) *Manager {
	return &Manager{
		git:     git,
		repoDir: repoDir,
		stashes: make(map[string]*Stash),
		now:     time.Now,
	}
}

// SetClock overrides the manager's clock (for testing retention windows).
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// ValidateRepoState checks that repoDir is a usable git repository.
// Not-a-repository is an error; uncommitted changes are reported as warnings.
func (m *Manager) ValidateRepoState() *StateResult {
	res := &StateResult{Success: true}

	if _, err := m.git.Run(m.repoDir, "rev-parse", "--git-dir"); err != nil {
		res.Success = false
		res.Errors = append(res.Errors, fmt.Sprintf("not a git repository: %v", err))
		return res
	}

	status, err := m.git.Run(m.repoDir, "status", "--porcelain")
	if err != nil {
		res.Success = false
		res.Errors = append(res.Errors, fmt.Sprintf("cannot read working tree status: %v", err))
		return res
	}
	if status != "" {
		n := len(strings.Split(status, "\n"))
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d uncommitted changes in working tree", n))
	}

	return res
}

// CreateStash validates the repository, creates a stash of the working tree
// (including untracked files), and records it in the tracking index.
// The returned ID has the form campaign-<phase>-<seq>-<unix-ts>.
func (m *Manager) CreateStash(description string, phase string) (string, error) {
	state := m.ValidateRepoState()
	if !state.Success {
		return "", &GitStateError{Reasons: state.Errors}
	}

	if phase == "" {
		phase = "general"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	ts := m.now()
	id := fmt.Sprintf("campaign-%s-%d-%d", phase, m.seq, ts.Unix())

	branch, err := m.git.Run(m.repoDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = "unknown"
	}

	if _, err := m.git.Run(m.repoDir, "stash", "push", "-u", "-m", fmt.Sprintf("typesweep:%s %s", id, description)); err != nil {
		return "", fmt.Errorf("create stash: %w", err)
	}

	// Resolve the newest stash entry to a stable commit hash; stash@{N}
	// positions shift as entries are pushed and dropped.
	ref, err := m.git.Run(m.repoDir, "rev-parse", "refs/stash")
	if err != nil {
		return "", fmt.Errorf("resolve stash ref: %w", err)
	}

	m.stashes[id] = &Stash{
		ID:          id,
		Description: description,
		Timestamp:   ts,
		Branch:      branch,
		Ref:         ref,
	}
	return id, nil
}

// ApplyStash applies a tracked stash to the working tree and removes it from
// the tracking index. With revalidate set, the repository state is re-checked
// afterward and any problems are returned as warnings rather than an error.
func (m *Manager) ApplyStash(id string, revalidate bool) ([]string, error) {
	m.mu.Lock()
	st, ok := m.stashes[id]
	m.mu.Unlock()
	if !ok {
		return nil, &StashNotFoundError{ID: id}
	}

	if _, err := m.git.Run(m.repoDir, "stash", "apply", st.Ref); err != nil {
		return nil, fmt.Errorf("apply stash %s: %w", id, err)
	}

	m.mu.Lock()
	delete(m.stashes, id)
	m.mu.Unlock()

	var warnings []string
	if revalidate {
		state := m.ValidateRepoState()
		warnings = append(warnings, state.Errors...)
		warnings = append(warnings, state.Warnings...)
	}
	return warnings, nil
}

// AutoApplyLatestStash applies the tracked stash with the newest timestamp.
func (m *Manager) AutoApplyLatestStash() (string, error) {
	m.mu.Lock()
	var latest *Stash
	for _, st := range m.stashes {
		if latest == nil || st.Timestamp.After(latest.Timestamp) {
			latest = st
		}
	}
	m.mu.Unlock()

	if latest == nil {
		return "", &NoStashAvailableError{}
	}
	if _, err := m.ApplyStash(latest.ID, false); err != nil {
		return "", err
	}
	return latest.ID, nil
}

// CleanupOldStashes removes every tracked stash strictly older than
// now - retentionDays. A stash exactly retentionDays old is retained. The
// underlying git reference drop is best-effort: an already-gone entry does
// not prevent removal from the index. Returns the number of stashes removed.
func (m *Manager) CleanupOldStashes(retentionDays int) int {
	cutoff := m.now().AddDate(0, 0, -retentionDays)

	m.mu.Lock()
	var old []*Stash
	for _, st := range m.stashes {
		if st.Timestamp.Before(cutoff) {
			old = append(old, st)
		}
	}
	m.mu.Unlock()

	for _, st := range old {
		m.dropEntry(st.Ref)
		m.mu.Lock()
		delete(m.stashes, st.ID)
		m.mu.Unlock()
	}
	return len(old)
}

// dropEntry finds the stash@{N} position for a stash commit and drops it.
// Failures are tolerated: the entry may have been dropped externally.
func (m *Manager) dropEntry(ref string) {
	out, err := m.git.Run(m.repoDir, "stash", "list", "--format=%H %gd")
	if err != nil {
		return
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == ref {
			_, _ = m.git.Run(m.repoDir, "stash", "drop", fields[1])
			return
		}
	}
}

// Tracked returns the tracked stashes sorted newest first.
func (m *Manager) Tracked() []Stash {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Stash, 0, len(m.stashes))
	for _, st := range m.stashes {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// GetStatistics aggregates the tracked index: totals, per-phase counts, and
// the oldest/newest stash. Phase is parsed from the ID prefix.
func (m *Manager) GetStatistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{ByPhase: make(map[string]int)}
	for _, st := range m.stashes {
		stats.Total++
		stats.ByPhase[phaseFromID(st.ID)]++

		s := *st
		if stats.Oldest == nil || s.Timestamp.Before(stats.Oldest.Timestamp) {
			cp := s
			stats.Oldest = &cp
		}
		if stats.Newest == nil || s.Timestamp.After(stats.Newest.Timestamp) {
			cp := s
			stats.Newest = &cp
		}
	}
	return stats
}

// phaseFromID extracts the phase tag from a campaign-<phase>-<seq>-<ts> ID.
// Phase tags may themselves contain hyphens.
func phaseFromID(id string) string {
	trimmed := strings.TrimPrefix(id, "campaign-")
	if trimmed == id {
		return "unknown"
	}
	parts := strings.Split(trimmed, "-")
	if len(parts) < 3 {
		return "unknown"
	}
	return strings.Join(parts[:len(parts)-2], "-")
}
