package schedule

import (
	"sort"
	"sync"
	"time"
)

// Proposal is one campaign proposed for execution. SafetyScore comes from the
// campaign's dry run.
type Proposal struct {
	Name        string    `json:"name"`
	Script      string    `json:"script"`
	Phase       string    `json:"phase"`
	Priority    int       `json:"priority"`
	SafetyScore int       `json:"safety_score"`
	SubmittedAt time.Time `json:"submitted_at"`

	seq int
}

// Scheduler arbitrates between concurrently proposed campaigns. Order:
// higher priority first, then higher safety score, then submission order.
type Scheduler struct {
	mu    sync.Mutex
	queue []Proposal
	next  int
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Submit adds a proposal to the queue.
func (s *Scheduler) Submit(p Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = time.Now().UTC()
	}
	s.next++
	p.seq = s.next
	s.queue = append(s.queue, p)
}

// Next removes and returns the winning proposal, or false if the queue is
// empty.
func (s *Scheduler) Next() (Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return Proposal{}, false
	}

	best := 0
	for i := 1; i < len(s.queue); i++ {
		if beats(s.queue[i], s.queue[best]) {
			best = i
		}
	}
	p := s.queue[best]
	s.queue = append(s.queue[:best], s.queue[best+1:]...)
	return p, true
}

// Pending returns the queued proposals in arbitration order without removing
// them.
func (s *Scheduler) Pending() []Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Proposal, len(s.queue))
	copy(out, s.queue)
	sort.SliceStable(out, func(i, j int) bool {
		return beats(out[i], out[j])
	})
	return out
}

// Len returns the number of queued proposals.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// beats reports whether a should run before b.
func beats(a, b Proposal) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.SafetyScore != b.SafetyScore {
		return a.SafetyScore > b.SafetyScore
	}
	return a.seq < b.seq
}
