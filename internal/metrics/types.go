// Package metrics derives per-feature measures from the ledger and the
// feature folders, and folds them into a project-wide aggregate.
//
// Everything here is a cache. Snapshots under metrics/features can be
// deleted at any time and regenerated with Rebuild; the aggregate and index
// are always recomputed from the full snapshot set, never patched in place.
package metrics

import (
	"time"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// IndexVersion is the schema version written to index.json.
const IndexVersion = "1.0"

// FeatureMetrics is the snapshot for one feature.
type FeatureMetrics struct {
	FeatureID      string                   `json:"feature_id"`
	Type           ledger.FeatureType       `json:"type"`
	Phase          ledger.Phase             `json:"phase"`
	Done           bool                     `json:"done"`
	CreatedAt      time.Time                `json:"created_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	CycleTimeHours float64                  `json:"cycle_time_hours"`
	PhaseHours     map[ledger.Phase]float64 `json:"phase_hours"`
	ArtifactFiles  int                      `json:"artifact_files"`
	ArtifactWords  int                      `json:"artifact_words"`
	ArtifactLines  int                      `json:"artifact_lines"`
	TasksTotal     int                      `json:"tasks_total"`
	TasksDone      int                      `json:"tasks_done"`

	// ComputedAt mirrors the feature's updated_at so that recomputing an
	// unchanged feature yields an identical snapshot.
	ComputedAt time.Time `json:"computed_at"`
}

// Counts is a done/todo pair.
type Counts struct {
	Done int `json:"done"`
	Todo int `json:"todo"`
}

// Totals splits the feature count by state and by type.
type Totals struct {
	Done   int                           `json:"done"`
	Todo   int                           `json:"todo"`
	ByType map[ledger.FeatureType]Counts `json:"by_type"`
}

// Averages are means over the snapshot set. Each field has its own sample:
// cycle time over done features, task completion over features that have
// checklist items, artifact sizes over every feature.
type Averages struct {
	CycleTimeHours float64 `json:"cycle_time_hours"`
	ArtifactFiles  float64 `json:"artifact_files"`
	ArtifactWords  float64 `json:"artifact_words"`
	TaskCompletion float64 `json:"task_completion"`
	SampleSize     int     `json:"sample_size"`
}

// AggregatedMetrics is the project-wide rollup written to aggregated.json.
type AggregatedMetrics struct {
	UpdatedAt     time.Time                `json:"updated_at"`
	Totals        Totals                   `json:"totals"`
	Averages      Averages                 `json:"averages"`
	PhaseAverages map[ledger.Phase]float64 `json:"phase_averages"`
}

// Index is the small summary record written to index.json.
type Index struct {
	Version        string    `json:"version"`
	LastUpdated    time.Time `json:"last_updated"`
	FeatureCount   int       `json:"feature_count"`
	CompletedCount int       `json:"completed_count"`
}

var timeNow = time.Now
