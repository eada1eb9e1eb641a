// Package ledger is the durable record of every tracked work item and the
// lifecycle phase it is in.
//
// The ledger is a single JSON document per project. It is the only source of
// truth for "does feature X exist" and "what phase is it in"; everything else
// (metrics, the transition journal, folder scaffolding) is derived from it or
// kept in lockstep with it by the callers.
//
// Layout of the package:
//   - types.go: Feature, Phase and FeatureType enums, the Ledger document
//   - phases.go: the fixed linear lifecycle and its artifact filenames
//   - store.go: Store interface and the FileStore implementation
//   - ids.go / params.go: id allocation and input validation
//   - lock_*.go: single-writer advisory lock
package ledger

import (
	"fmt"
	"time"
)

// --- Feature type enum ---

// FeatureType categorizes what kind of work a feature represents.
// A feature's type never changes after creation.
type FeatureType string

const (
	TypeFeature FeatureType = "feature"
	TypeBug     FeatureType = "bug"
	TypeTask    FeatureType = "task"
)

// AllTypes lists the supported work-item kinds in display order.
var AllTypes = []FeatureType{TypeFeature, TypeBug, TypeTask}

// validTypes is the set of allowed feature types.
var validTypes = map[FeatureType]bool{
	TypeFeature: true,
	TypeBug:     true,
	TypeTask:    true,
}

// IsValid reports whether t is a known feature type.
func (t FeatureType) IsValid() bool {
	return validTypes[t]
}

// ValidateType returns an error if the type is not recognized.
func ValidateType(t FeatureType) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: invalid feature type %q: must be one of: feature, bug, task", ErrValidationFailed, t)
	}
	return nil
}

// --- Core data structures ---

// PhaseEntry records one visit to a lifecycle phase.
// ExitedAt is nil while the feature is still in the phase.
type PhaseEntry struct {
	Phase     Phase      `json:"phase"`
	EnteredAt time.Time  `json:"entered_at"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`
	// Skipped marks a phase passed over by a forward jump.
	Skipped bool `json:"skipped,omitempty"`
}

// Feature is a single ledger entry.
type Feature struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Type         FeatureType  `json:"type"`
	Phase        Phase        `json:"phase"`
	ExternalID   string       `json:"external_id,omitempty"`
	Description  string       `json:"description,omitempty"`
	PhaseHistory []PhaseEntry `json:"phase_history"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsComplete reports whether the feature reached the terminal phase.
func (f *Feature) IsComplete() bool {
	return f.Phase == PhaseComplete
}

// CompletedAt returns when the feature entered the complete phase,
// or the zero time if it has not.
func (f *Feature) CompletedAt() time.Time {
	for i := len(f.PhaseHistory) - 1; i >= 0; i-- {
		if f.PhaseHistory[i].Phase == PhaseComplete {
			return f.PhaseHistory[i].EnteredAt
		}
	}
	return time.Time{}
}

// clone returns a deep copy so callers never alias ledger internals.
func (f *Feature) clone() *Feature {
	c := *f
	c.PhaseHistory = make([]PhaseEntry, len(f.PhaseHistory))
	for i, e := range f.PhaseHistory {
		c.PhaseHistory[i] = e
		if e.ExitedAt != nil {
			t := *e.ExitedAt
			c.PhaseHistory[i].ExitedAt = &t
		}
	}
	return &c
}

// SchemaVersion is the ledger document version written by this package.
const SchemaVersion = "1.0"

// Ledger is the root document persisted as ledger.json.
// Sequences holds the last id sequence issued per type so ids are never
// reused after a feature leaves the ledger.
type Ledger struct {
	Version   string              `json:"version"`
	UpdatedAt time.Time           `json:"updated_at"`
	Features  []Feature           `json:"features"`
	Sequences map[FeatureType]int `json:"sequences"`
}

// newLedger returns an empty ledger document.
func newLedger() *Ledger {
	return &Ledger{
		Version:   SchemaVersion,
		UpdatedAt: timeNow().UTC(),
		Features:  []Feature{},
		Sequences: map[FeatureType]int{},
	}
}

// index returns the position of id in the feature list, or -1.
func (l *Ledger) index(id string) int {
	for i := range l.Features {
		if l.Features[i].ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the set of feature ids recorded in the ledger.
func (l *Ledger) IDs() map[string]bool {
	ids := make(map[string]bool, len(l.Features))
	for _, f := range l.Features {
		ids[f.ID] = true
	}
	return ids
}
