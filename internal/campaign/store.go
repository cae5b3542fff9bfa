package campaign

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/typesweep/typesweep/internal/fsutil"
)

// Store manages campaign state on disk, one directory per campaign.
type Store struct {
	baseDir string // defaults to ~/.typesweep/campaigns
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.typesweep/campaigns, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".typesweep", "campaigns")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) campaignDir(name string) string {
	return filepath.Join(s.baseDir, name)
}

func (s *Store) statePath(name string) string {
	return filepath.Join(s.campaignDir(name), "campaign.json")
}

// SnapshotPath returns where a metrics snapshot for this campaign is written.
func (s *Store) SnapshotPath(name string) string {
	return filepath.Join(s.campaignDir(name), "snapshot.json")
}

// Create initialises a new campaign on disk.
func (s *Store) Create(name, script, phase string, filesTotal int) (*CampaignState, error) {
	dir := s.campaignDir(name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("campaign %q already exists", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	cs := &CampaignState{
		Name:         name,
		Script:       script,
		Phase:        phase,
		Status:       "pending",
		FilesTotal:   filesTotal,
		BatchHistory: []BatchHistoryEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := fsutil.WriteJSON(s.statePath(name), cs); err != nil {
		return nil, fmt.Errorf("write campaign.json: %w", err)
	}
	return cs, nil
}

// Get reads the state for a campaign.
func (s *Store) Get(name string) (*CampaignState, error) {
	var cs CampaignState
	if err := fsutil.ReadJSON(s.statePath(name), &cs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("campaign %q not found", name)
		}
		return nil, err
	}
	return &cs, nil
}

// Update performs a read-modify-write of the campaign state.
func (s *Store) Update(name string, fn func(*CampaignState)) error {
	cs, err := s.Get(name)
	if err != nil {
		return err
	}
	fn(cs)
	cs.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return fsutil.WriteJSON(s.statePath(name), cs)
}

// List returns all campaigns, optionally filtered by status.
// Pass "" for statusFilter to return all.
func (s *Store) List(statusFilter string) ([]CampaignState, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var campaigns []CampaignState
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		cs, err := s.Get(entry.Name())
		if err != nil {
			continue // skip broken entries
		}
		if statusFilter == "" || cs.Status == statusFilter {
			campaigns = append(campaigns, *cs)
		}
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].Name < campaigns[j].Name
	})
	return campaigns, nil
}

// Delete removes all data for a campaign.
func (s *Store) Delete(name string) error {
	dir := s.campaignDir(name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("campaign %q not found", name)
	}
	return os.RemoveAll(dir)
}
