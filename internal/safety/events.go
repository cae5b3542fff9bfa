package safety

import (
	"sync"
	"time"
)

// EventType labels what happened.
type EventType string

const (
	EventCheckpointCreated  EventType = "CHECKPOINT_CREATED"
	EventCorruptionDetected EventType = "CORRUPTION_DETECTED"
	EventRollback           EventType = "ROLLBACK"
	EventEmergencyRecovery  EventType = "EMERGENCY_RECOVERY"
	EventValidationFailed   EventType = "VALIDATION_FAILED"
	EventMonitorError       EventType = "MONITOR_ERROR"
	EventBatchFailed        EventType = "BATCH_FAILED"
)

// EventSeverity grades an event.
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// Event is one append-only safety log entry. Never mutated after creation.
type Event struct {
	Type        EventType     `json:"type"`
	Severity    EventSeverity `json:"severity"`
	Description string        `json:"description"`
	Action      string        `json:"action"`
	Timestamp   time.Time     `json:"timestamp"`
}

// EventLog is the capped, append-only safety event trail. When the cap is
// exceeded the oldest entries are evicted first.
type EventLog struct {
	mu     sync.Mutex
	cap    int
	events []Event
}

// NewEventLog creates a log holding at most cap events; cap < 1 means 500.
func NewEventLog(cap int) *EventLog {
	if cap < 1 {
		cap = 500
	}
	return &EventLog{cap: cap}
}

// Append records an event, evicting the oldest entry if at capacity.
func (l *EventLog) Append(typ EventType, sev EventSeverity, description, action string) Event {
	e := Event{
		Type:        typ,
		Severity:    sev,
		Description: description,
		Action:      action,
		Timestamp:   time.Now().UTC(),
	}

	l.mu.Lock()
	l.events = append(l.events, e)
	if len(l.events) > l.cap {
		l.events = l.events[len(l.events)-l.cap:]
	}
	l.mu.Unlock()
	return e
}

// Events returns a copy of the trail, oldest first.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
