package config

// CampaignConfig is the top-level configuration structure parsed from campaign YAML.
type CampaignConfig struct {
	Campaign Campaign `yaml:"campaign"`
}

// Campaign defines the full campaign: metadata, tools, baselines, and phases.
type Campaign struct {
	Name      string          `yaml:"name"`
	RepoDir   string          `yaml:"repo_dir"`
	StateDir  string          `yaml:"state_dir"`
	Tools     map[string]Tool `yaml:"tools"`
	Baselines Baselines       `yaml:"baselines"`
	Targets   Targets         `yaml:"targets"`
	Batch     BatchPolicy     `yaml:"batch"`
	Safety    SafetyPolicy    `yaml:"safety"`
	Phases    []Phase         `yaml:"phases"`
}

// Tool defines one external tool invocation used to gather a metric or
// validate the tree (tsc, eslint, build, du, etc.).
type Tool struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout"`
}

// Baselines holds the starting counts a campaign measures reduction against.
// These are configuration, not business rules.
type Baselines struct {
	TypeScriptErrors  int     `yaml:"typescript_errors"`
	LintingWarnings   int     `yaml:"linting_warnings"`
	EnterpriseSystems int     `yaml:"enterprise_systems"`
	BuildTimeSeconds  float64 `yaml:"build_time_seconds"`
}

// Targets holds the thresholds milestones and phase statuses are computed from.
type Targets struct {
	TypeScriptErrors  int     `yaml:"typescript_errors"`
	LintingWarnings   int     `yaml:"linting_warnings"`
	EnterpriseSystems int     `yaml:"enterprise_systems"`
	MaxBuildSeconds   float64 `yaml:"max_build_seconds"`
	MaxBundleKB       int     `yaml:"max_bundle_kb"`
	MinCacheHitRate   float64 `yaml:"min_cache_hit_rate"`
	MaxMemoryMB       float64 `yaml:"max_memory_mb"`
}

// BatchPolicy controls how the controller sizes and retries batches.
type BatchPolicy struct {
	MaxFiles            int    `yaml:"max_files"`
	ValidationFrequency int    `yaml:"validation_frequency"` // run build/test gate every N batches
	MaxRetries          int    `yaml:"max_retries"`
	RetryDivisor        int    `yaml:"retry_divisor"` // batch size shrink factor on retry
	OnError             string `yaml:"on_error"`      // "retry" or "abort"
	MinSafetyScore      int    `yaml:"min_safety_score"`
}

// SafetyPolicy controls checkpointing, monitoring, and event retention.
type SafetyPolicy struct {
	AutoRollback    bool   `yaml:"auto_rollback"`
	EventCap        int    `yaml:"event_cap"`
	HistoryCap      int    `yaml:"history_cap"`
	MonitorInterval string `yaml:"monitor_interval"`
	RetentionDays   int    `yaml:"retention_days"`
}

// Phase names a group of milestones that gate campaign progress.
type Phase struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Milestones []string `yaml:"milestones"`
}
