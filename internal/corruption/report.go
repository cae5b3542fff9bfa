package corruption

// Severity grades a corruption finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Action is the recommended response to a corruption report.
type Action string

const (
	ActionContinue         Action = "CONTINUE"
	ActionRollback         Action = "ROLLBACK"
	ActionEmergencyRestore Action = "EMERGENCY_RESTORE"
)

// Pattern describes one matched corruption signature.
type Pattern struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

// Report is the value object produced by a scan. Recomputed fresh per scan,
// never persisted.
type Report struct {
	DetectedFiles     []string  `json:"detected_files"`
	Patterns          []Pattern `json:"corruption_patterns"`
	Severity          Severity  `json:"severity"`
	RecommendedAction Action    `json:"recommended_action"`
}

// escalate raises the report's severity and action, never lowering them.
func (r *Report) escalate(sev Severity) {
	if rank(sev) > rank(r.Severity) {
		r.Severity = sev
		switch sev {
		case SeverityHigh:
			r.RecommendedAction = ActionRollback
		case SeverityCritical:
			r.RecommendedAction = ActionEmergencyRestore
		}
	}
}

func rank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityHigh:
		return 1
	default:
		return 0
	}
}
