package db

import (
	"database/sql"
	"fmt"
)

// SafetyEventRow represents a row in the safety_events table.
type SafetyEventRow struct {
	ID          int
	Campaign    string
	Type        string
	Severity    string
	Description string
	Action      string
	Timestamp   string
}

// BatchRun represents a row in the batch_runs table.
type BatchRun struct {
	ID         int
	Campaign   string
	BatchID    string
	Phase      string
	Attempt    int
	Files      int
	Success    bool
	RolledBack bool
	Checkpoint string
	DurationMs int
	Detail     string
	Timestamp  string
}

// MetricSnapshot represents a row in the metric_snapshots table.
type MetricSnapshot struct {
	ID              int
	Campaign        string
	TSErrors        int
	LintWarnings    int
	BuildSeconds    float64
	BundleKB        int
	OverallProgress float64
	Timestamp       string
}

// LogSafetyEvent inserts a safety event.
func (d *DB) LogSafetyEvent(campaign, typ, severity, description, action string) error {
	_, err := d.conn.Exec(
		`INSERT INTO safety_events (campaign, type, severity, description, action) VALUES (?, ?, ?, ?, ?)`,
		campaign, typ, severity, description, action,
	)
	if err != nil {
		return fmt.Errorf("log safety event: %w", err)
	}
	return nil
}

// GetSafetyEvents returns all safety events for a campaign, newest first.
func (d *DB) GetSafetyEvents(campaign string) ([]SafetyEventRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, campaign, type, severity, description, action, timestamp
		 FROM safety_events WHERE campaign = ? ORDER BY timestamp DESC, id DESC`,
		campaign,
	)
	if err != nil {
		return nil, fmt.Errorf("get safety events: %w", err)
	}
	defer rows.Close()

	var events []SafetyEventRow
	for rows.Next() {
		var e SafetyEventRow
		var description, action sql.NullString
		if err := rows.Scan(&e.ID, &e.Campaign, &e.Type, &e.Severity, &description, &action, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan safety event: %w", err)
		}
		if description.Valid {
			e.Description = description.String
		}
		if action.Valid {
			e.Action = action.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LogBatchRun inserts a batch run record.
func (d *DB) LogBatchRun(campaign, batchID, phase string, attempt, files int, success, rolledBack bool, checkpoint string, durationMs int, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO batch_runs (campaign, batch_id, phase, attempt, files, success, rolled_back, checkpoint, duration_ms, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		campaign, batchID, phase, attempt, files, success, rolledBack, checkpoint, durationMs, detail,
	)
	if err != nil {
		return fmt.Errorf("log batch run: %w", err)
	}
	return nil
}

// GetBatchRuns returns batch runs for a campaign, newest first.
func (d *DB) GetBatchRuns(campaign string) ([]BatchRun, error) {
	rows, err := d.conn.Query(
		`SELECT id, campaign, batch_id, phase, attempt, files, success, rolled_back, checkpoint, duration_ms, detail, timestamp
		 FROM batch_runs WHERE campaign = ? ORDER BY timestamp DESC, id DESC`,
		campaign,
	)
	if err != nil {
		return nil, fmt.Errorf("get batch runs: %w", err)
	}
	defer rows.Close()

	var runs []BatchRun
	for rows.Next() {
		var r BatchRun
		var phase, checkpoint, detail sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Campaign, &r.BatchID, &phase, &r.Attempt, &r.Files, &r.Success, &r.RolledBack, &checkpoint, &durationMs, &detail, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan batch run: %w", err)
		}
		if phase.Valid {
			r.Phase = phase.String
		}
		if checkpoint.Valid {
			r.Checkpoint = checkpoint.String
		}
		if durationMs.Valid {
			r.DurationMs = int(durationMs.Int64)
		}
		if detail.Valid {
			r.Detail = detail.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetBatchStats returns total, succeeded, and rolled-back batch counts for a campaign.
func (d *DB) GetBatchStats(campaign string) (total, succeeded, rolledBack int, err error) {
	row := d.conn.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN rolled_back THEN 1 ELSE 0 END), 0)
		 FROM batch_runs WHERE campaign = ?`,
		campaign,
	)
	if err := row.Scan(&total, &succeeded, &rolledBack); err != nil {
		return 0, 0, 0, fmt.Errorf("get batch stats: %w", err)
	}
	return total, succeeded, rolledBack, nil
}

// LogMetricSnapshot inserts a metric snapshot.
func (d *DB) LogMetricSnapshot(campaign string, tsErrors, lintWarnings int, buildSeconds float64, bundleKB int, overallProgress float64) error {
	_, err := d.conn.Exec(
		`INSERT INTO metric_snapshots (campaign, ts_errors, lint_warnings, build_seconds, bundle_kb, overall_progress)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		campaign, tsErrors, lintWarnings, buildSeconds, bundleKB, overallProgress,
	)
	if err != nil {
		return fmt.Errorf("log metric snapshot: %w", err)
	}
	return nil
}

// GetLatestMetricSnapshot returns the most recent snapshot for a campaign, or nil.
func (d *DB) GetLatestMetricSnapshot(campaign string) (*MetricSnapshot, error) {
	row := d.conn.QueryRow(
		`SELECT id, campaign, ts_errors, lint_warnings, build_seconds, bundle_kb, overall_progress, timestamp
		 FROM metric_snapshots WHERE campaign = ? ORDER BY id DESC LIMIT 1`,
		campaign,
	)
	var s MetricSnapshot
	err := row.Scan(&s.ID, &s.Campaign, &s.TSErrors, &s.LintWarnings, &s.BuildSeconds, &s.BundleKB, &s.OverallProgress, &s.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest metric snapshot: %w", err)
	}
	return &s, nil
}

// GetMetricSnapshots returns all snapshots for a campaign, oldest first.
func (d *DB) GetMetricSnapshots(campaign string) ([]MetricSnapshot, error) {
	rows, err := d.conn.Query(
		`SELECT id, campaign, ts_errors, lint_warnings, build_seconds, bundle_kb, overall_progress, timestamp
		 FROM metric_snapshots WHERE campaign = ? ORDER BY id ASC`,
		campaign,
	)
	if err != nil {
		return nil, fmt.Errorf("get metric snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []MetricSnapshot
	for rows.Next() {
		var s MetricSnapshot
		if err := rows.Scan(&s.ID, &s.Campaign, &s.TSErrors, &s.LintWarnings, &s.BuildSeconds, &s.BundleKB, &s.OverallProgress, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan metric snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
