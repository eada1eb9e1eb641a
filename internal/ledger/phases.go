package ledger

import "fmt"

// --- Phase enum ---

// Phase is a fixed lifecycle stage. The lifecycle is linear:
// planning → refinement → implementation → testing → complete.
type Phase string

const (
	PhasePlanning       Phase = "planning"
	PhaseRefinement     Phase = "refinement"
	PhaseImplementation Phase = "implementation"
	PhaseTesting        Phase = "testing"
	PhaseComplete       Phase = "complete"
)

// PhaseOrder is the only lifecycle a feature can follow.
var PhaseOrder = []Phase{
	PhasePlanning,
	PhaseRefinement,
	PhaseImplementation,
	PhaseTesting,
	PhaseComplete,
}

// InitialPhase is the phase every new feature starts in.
const InitialPhase = PhasePlanning

// PhaseIndex returns the ordinal position of p, or -1 if unknown.
func PhaseIndex(p Phase) int {
	for i, candidate := range PhaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// IsValid reports whether p is one of the defined phases.
func (p Phase) IsValid() bool {
	return PhaseIndex(p) >= 0
}

// IsTerminal reports whether p is the final phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete
}

// ParsePhase converts user input into a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown phase %q: must be one of: planning, refinement, implementation, testing, complete", ErrValidationFailed, s)
	}
	return p, nil
}

// NextPhase returns the successor of p. The second result is false when p is
// terminal or unknown.
func NextPhase(p Phase) (Phase, bool) {
	idx := PhaseIndex(p)
	if idx < 0 || idx >= len(PhaseOrder)-1 {
		return "", false
	}
	return PhaseOrder[idx+1], true
}

// CanTransition checks that to lies ahead of from. Phases may be skipped
// going forward; moving backwards is a repair operation and complete is
// final.
func CanTransition(from, to Phase) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: unknown current phase %q", ErrInvalidTransition, from)
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown target phase %q", ErrInvalidTransition, to)
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s is the final phase", ErrInvalidTransition, from)
	}
	if PhaseIndex(to) <= PhaseIndex(from) {
		return fmt.Errorf("%w: cannot move from %s to %s: phases only move forward", ErrInvalidTransition, from, to)
	}
	return nil
}

// PhasesBetween returns the phases strictly between from and to in
// lifecycle order. It is empty for adjacent or backward pairs.
func PhasesBetween(from, to Phase) []Phase {
	i, j := PhaseIndex(from), PhaseIndex(to)
	if i < 0 || j < 0 || j-i < 2 {
		return nil
	}
	out := make([]Phase, 0, j-i-1)
	out = append(out, PhaseOrder[i+1:j]...)
	return out
}

// phaseArtifacts maps a phase to the markdown document written while the
// feature is in it.
var phaseArtifacts = map[Phase]string{
	PhasePlanning:       "planning.md",
	PhaseRefinement:     "refinement.md",
	PhaseImplementation: "implementation.md",
	PhaseTesting:        "testing.md",
}

// ArtifactFilename returns the artifact filename for a phase.
// Returns empty string for the terminal phase and unknown phases.
func ArtifactFilename(p Phase) string {
	return phaseArtifacts[p]
}

// GateArtifact returns the artifact inspected when advancing into target:
// the document of the phase being left.
func GateArtifact(target Phase) string {
	idx := PhaseIndex(target)
	if idx <= 0 {
		return ""
	}
	return ArtifactFilename(PhaseOrder[idx-1])
}
