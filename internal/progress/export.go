package progress

import (
	"time"

	"github.com/typesweep/typesweep/internal/fsutil"
)

// Snapshot is the exported metrics bundle.
type Snapshot struct {
	Timestamp     time.Time         `json:"timestamp"`
	Report        ProgressReport    `json:"report"`
	History       []ProgressMetrics `json:"history"`
	Baseline      Baselines         `json:"baseline"`
	FileBreakdown map[string]int    `json:"file_breakdown"`
}

// ExportSnapshot writes the current report, history, baseline, and per-file
// breakdown to a JSON file.
func (t *Tracker) ExportSnapshot(path string) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp:     time.Now().UTC(),
		Report:        t.GenerateProgressReport(),
		History:       t.History(),
		Baseline:      t.baselines,
		FileBreakdown: t.GetFileBreakdown(),
	}
	if err := fsutil.WriteJSON(path, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
