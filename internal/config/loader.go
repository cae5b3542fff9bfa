package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a campaign configuration from the given YAML file path.
// After parsing, it applies defaults for values the file doesn't set.
func Load(path string) (*CampaignConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg CampaignConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a campaign config in standard locations and loads
// the first one found. Search order: ./campaign.yaml, ~/.typesweep/config.yaml
func LoadDefault() (*CampaignConfig, error) {
	candidates := []string{"campaign.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".typesweep", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no campaign config found (searched: %v)", candidates)
}

// DefaultStateDir returns ~/.typesweep, creating it if needed.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".typesweep")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// applyDefaults fills in batch and safety policy values the file leaves unset.
func applyDefaults(cfg *CampaignConfig) {
	c := &cfg.Campaign

	if c.RepoDir == "" {
		c.RepoDir = "."
	}
	if c.Batch.MaxFiles <= 0 {
		c.Batch.MaxFiles = 15
	}
	if c.Batch.ValidationFrequency <= 0 {
		c.Batch.ValidationFrequency = 5
	}
	if c.Batch.MaxRetries <= 0 {
		c.Batch.MaxRetries = 2
	}
	if c.Batch.RetryDivisor <= 1 {
		c.Batch.RetryDivisor = 2
	}
	if c.Batch.OnError == "" {
		c.Batch.OnError = "retry"
	}
	if c.Batch.MinSafetyScore <= 0 {
		c.Batch.MinSafetyScore = 70
	}
	if c.Safety.EventCap <= 0 {
		c.Safety.EventCap = 500
	}
	if c.Safety.HistoryCap <= 0 {
		c.Safety.HistoryCap = 50
	}
	if c.Safety.MonitorInterval == "" {
		c.Safety.MonitorInterval = "30s"
	}
	if c.Safety.RetentionDays <= 0 {
		c.Safety.RetentionDays = 7
	}
}
