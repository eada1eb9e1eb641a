package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/events"
)

// Journal subscribes the Store to the event bus.
type Journal struct {
	store  *Store
	logger *zap.Logger
}

var _ events.Handler = (*Journal)(nil)

// NewJournal returns nil when store is nil, so callers can skip
// registration when history is disabled.
func NewJournal(store *Store, logger *zap.Logger) *Journal {
	if store == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{store: store, logger: logger}
}

func (j *Journal) ID() string { return "history" }

func (j *Journal) Handles() []events.Type { return events.AllTypes }

// Priority runs the journal after metrics.
func (j *Journal) Priority() int { return 20 }

// Handle records the event. Failures are logged, never returned.
func (j *Journal) Handle(ctx context.Context, e *events.Event) error {
	if err := j.store.Record(ctx, e); err != nil {
		j.logger.Warn("history record failed",
			zap.String("event", string(e.Type)),
			zap.String("feature", e.FeatureID),
			zap.Error(err))
	}
	return nil
}
