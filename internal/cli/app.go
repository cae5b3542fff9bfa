package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/typesweep/typesweep/internal/checkpoint"
	"github.com/typesweep/typesweep/internal/config"
	"github.com/typesweep/typesweep/internal/corruption"
	"github.com/typesweep/typesweep/internal/db"
	"github.com/typesweep/typesweep/internal/progress"
	"github.com/typesweep/typesweep/internal/safety"
)

// app holds the shared components wired from configuration. One app is built
// per command invocation; the stash index is loaded on build and must be
// saved after any checkpoint mutation.
type app struct {
	cfg      *config.CampaignConfig
	stateDir string
	mgr      *checkpoint.Manager
	proto    *safety.Protocol
	tracker  *progress.Tracker
	detector *corruption.Detector
	logger   *zap.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func newApp(cfg *config.CampaignConfig) (*app, error) {
	stateDir := cfg.Campaign.StateDir
	if stateDir == "" {
		var err error
		stateDir, err = config.DefaultStateDir()
		if err != nil {
			return nil, err
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}

	mgr := checkpoint.NewManager(&checkpoint.ExecGit{}, cfg.Campaign.RepoDir)
	if err := mgr.LoadIndex(stashIndexPath(stateDir)); err != nil {
		return nil, fmt.Errorf("load stash index: %w", err)
	}

	detector := corruption.NewDetector()
	proto := safety.New(mgr, detector,
		safety.NewEventLog(cfg.Campaign.Safety.EventCap),
		logger, cfg.Campaign.Safety.AutoRollback)

	tracker := progress.NewTracker(&progress.ExecRunner{}, cfg.Campaign.RepoDir,
		toolTable(cfg.Campaign.Tools),
		progress.Baselines{
			TypeScriptErrors:  cfg.Campaign.Baselines.TypeScriptErrors,
			LintingWarnings:   cfg.Campaign.Baselines.LintingWarnings,
			EnterpriseSystems: cfg.Campaign.Baselines.EnterpriseSystems,
			BuildTimeSeconds:  cfg.Campaign.Baselines.BuildTimeSeconds,
		},
		progress.Targets{
			TypeScriptErrors:  cfg.Campaign.Targets.TypeScriptErrors,
			LintingWarnings:   cfg.Campaign.Targets.LintingWarnings,
			EnterpriseSystems: cfg.Campaign.Targets.EnterpriseSystems,
			MaxBuildSeconds:   cfg.Campaign.Targets.MaxBuildSeconds,
			MaxBundleKB:       cfg.Campaign.Targets.MaxBundleKB,
			MinCacheHitRate:   cfg.Campaign.Targets.MinCacheHitRate,
			MaxMemoryMB:       cfg.Campaign.Targets.MaxMemoryMB,
		},
		cfg.Campaign.Safety.HistoryCap)

	return &app{
		cfg:      cfg,
		stateDir: stateDir,
		mgr:      mgr,
		proto:    proto,
		tracker:  tracker,
		detector: detector,
		logger:   logger,
	}, nil
}

func stashIndexPath(stateDir string) string {
	return filepath.Join(stateDir, "stashes.json")
}

// saveStashIndex persists the checkpoint index for the next invocation.
func (a *app) saveStashIndex() error {
	return a.mgr.SaveIndex(stashIndexPath(a.stateDir))
}

// monitorInterval parses the configured monitor interval, defaulting to 30s.
func (a *app) monitorInterval() time.Duration {
	if d, err := time.ParseDuration(a.cfg.Campaign.Safety.MonitorInterval); err == nil {
		return d
	}
	return 30 * time.Second
}

// openDB opens and migrates the analytics database.
func openDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func toolTable(tools map[string]config.Tool) map[string]progress.ToolConfig {
	out := make(map[string]progress.ToolConfig, len(tools))
	for name, t := range tools {
		tc := progress.ToolConfig{Command: t.Command}
		if d, err := time.ParseDuration(t.Timeout); err == nil {
			tc.Timeout = d
		}
		out[name] = tc
	}
	return out
}
