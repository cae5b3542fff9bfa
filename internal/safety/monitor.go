package safety

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/typesweep/typesweep/internal/corruption"
)

// monitor is the background corruption poll. It never blocks a batch cycle:
// if one is in flight when the ticker fires, the tick is skipped outright.
type monitor struct {
	stop chan struct{}
	done chan struct{}
}

// StartRealTimeMonitoring begins polling the given files for corruption at
// the given interval. A CRITICAL finding triggers an asynchronous emergency
// rollback. Returns an error if a monitor is already running.
func (p *Protocol) StartRealTimeMonitoring(files []string, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	p.monMu.Lock()
	defer p.monMu.Unlock()
	if p.monitor != nil {
		return fmt.Errorf("monitoring already active")
	}

	m := &monitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	p.monitor = m

	go p.monitorLoop(m, files, interval)
	p.logger.Info("corruption monitoring started",
		zap.Int("files", len(files)),
		zap.Duration("interval", interval),
	)
	return nil
}

// StopRealTimeMonitoring halts the monitor and waits for an in-flight tick
// to finish. Idempotent: stopping a stopped monitor is a no-op.
func (p *Protocol) StopRealTimeMonitoring() {
	p.monMu.Lock()
	m := p.monitor
	p.monitor = nil
	p.monMu.Unlock()

	if m == nil {
		return
	}
	close(m.stop)
	<-m.done
	p.logger.Info("corruption monitoring stopped")
}

// monitorLoop runs ticks until stopped. Errors inside a tick are recorded as
// safety events and never propagated to the timer.
func (p *Protocol) monitorLoop(m *monitor, files []string, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			p.tick(files)
		}
	}
}

// tick runs one corruption scan unless a batch cycle holds the busy flag.
func (p *Protocol) tick(files []string) {
	defer func() {
		if r := recover(); r != nil {
			p.Record(EventMonitorError, SeverityError, fmt.Sprintf("monitor tick panicked: %v", r), "tick abandoned")
		}
	}()

	if p.busy.Load() {
		return
	}

	report := p.detector.DetectCorruption(files)
	if report.Severity != corruption.SeverityCritical {
		return
	}

	p.Record(EventCorruptionDetected, SeverityCritical,
		fmt.Sprintf("monitor found critical corruption in %d files", len(report.DetectedFiles)),
		"triggering emergency rollback")

	go func() {
		if _, err := p.EmergencyRollback(); err != nil {
			p.Record(EventMonitorError, SeverityCritical, fmt.Sprintf("monitor-triggered rollback failed: %v", err), "manual intervention required")
		}
	}()
}
