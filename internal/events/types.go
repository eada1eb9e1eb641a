// Package events is the in-process event bus that carries lifecycle
// notifications from the ledger-facing services to their subscribers
// (metrics, journal).
//
// Publishing is fire-and-forget. Handlers run synchronously in priority
// order; an error or panic in one handler is logged and the chain carries
// on. The caller that published never sees handler failures, so a broken
// metrics directory can never block a phase transition.
package events

import (
	"time"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// Type identifies an event flowing through the bus.
type Type string

const (
	PhaseTransition  Type = "phase.transition"
	FeatureCompleted Type = "feature.completed"
	FeatureCreated   Type = "feature.created"
	FeatureRemoved   Type = "feature.removed"
)

// AllTypes lists every event type, for handlers that want everything.
var AllTypes = []Type{PhaseTransition, FeatureCompleted, FeatureCreated, FeatureRemoved}

// Event is a single lifecycle notification. From and To are set for
// transitions; the completion event carries To only.
type Event struct {
	ID          string             `json:"event_id"`
	Type        Type               `json:"type"`
	FeatureID   string             `json:"feature_id"`
	FeatureType ledger.FeatureType `json:"feature_type"`
	From        ledger.Phase       `json:"from,omitempty"`
	To          ledger.Phase       `json:"to,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`

	// Layout is the project the event happened in. Handlers resolve
	// paths through it rather than a global root.
	Layout ledger.Layout `json:"-"`
}

// Transition builds the event published after a committed phase move.
func Transition(layout ledger.Layout, f *ledger.Feature, from, to ledger.Phase) *Event {
	return &Event{
		Type:        PhaseTransition,
		FeatureID:   f.ID,
		FeatureType: f.Type,
		From:        from,
		To:          to,
		Layout:      layout,
	}
}

// Completed builds the event published when a feature reaches complete.
func Completed(layout ledger.Layout, f *ledger.Feature) *Event {
	return &Event{
		Type:        FeatureCompleted,
		FeatureID:   f.ID,
		FeatureType: f.Type,
		To:          ledger.PhaseComplete,
		Layout:      layout,
	}
}

// Created builds the event published after a feature is opened.
func Created(layout ledger.Layout, f *ledger.Feature) *Event {
	return &Event{
		Type:        FeatureCreated,
		FeatureID:   f.ID,
		FeatureType: f.Type,
		To:          f.Phase,
		Layout:      layout,
	}
}

// Removed builds the event published after a feature is withdrawn.
func Removed(layout ledger.Layout, f *ledger.Feature) *Event {
	return &Event{
		Type:        FeatureRemoved,
		FeatureID:   f.ID,
		FeatureType: f.Type,
		From:        f.Phase,
		Layout:      layout,
	}
}
