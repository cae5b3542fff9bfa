package schedule

import (
	"github.com/typesweep/typesweep/internal/config"
)

// MilestoneValidator answers whether a named milestone currently holds.
type MilestoneValidator interface {
	ValidateMilestone(name string) bool
}

// PhaseGate decides phase completion from configured milestones.
type PhaseGate struct {
	validator MilestoneValidator
	phases    []config.Phase
}

// NewPhaseGate creates a PhaseGate over the configured phases.
func NewPhaseGate(validator MilestoneValidator, phases []config.Phase) *PhaseGate {
	return &PhaseGate{validator: validator, phases: phases}
}

// PhaseComplete reports whether every milestone of the phase holds. An
// unknown phase ID is never complete. A phase with no milestones is complete.
func (g *PhaseGate) PhaseComplete(id string) bool {
	for _, p := range g.phases {
		if p.ID != id {
			continue
		}
		for _, m := range p.Milestones {
			if !g.validator.ValidateMilestone(m) {
				return false
			}
		}
		return true
	}
	return false
}

// CurrentPhase returns the first incomplete phase in configured order, or
// false when every phase is complete.
func (g *PhaseGate) CurrentPhase() (config.Phase, bool) {
	for _, p := range g.phases {
		if !g.PhaseComplete(p.ID) {
			return p, true
		}
	}
	return config.Phase{}, false
}

// Progress returns completion per phase ID in configured order.
func (g *PhaseGate) Progress() map[string]bool {
	out := make(map[string]bool, len(g.phases))
	for _, p := range g.phases {
		out[p.ID] = g.PhaseComplete(p.ID)
	}
	return out
}
