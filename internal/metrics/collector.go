package metrics

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// DefaultWorkers bounds Rebuild when the config doesn't say otherwise.
const DefaultWorkers = 4

// Collector keeps snapshots and the aggregate current by listening on the
// event bus. Every failure is logged at warn level and swallowed; metrics
// never fail the operation that triggered them.
type Collector struct {
	store   ledger.Store
	logger  *zap.Logger
	workers int
}

var _ events.Handler = (*Collector)(nil)

// NewCollector creates a collector reading feature records from store.
func NewCollector(store ledger.Store, logger *zap.Logger, workers int) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Collector{store: store, logger: logger, workers: workers}
}

func (c *Collector) ID() string { return "metrics" }

func (c *Collector) Handles() []events.Type { return events.AllTypes }

// Priority runs metrics before the journal.
func (c *Collector) Priority() int { return 10 }

// Handle dispatches on the event type. It always returns nil.
func (c *Collector) Handle(ctx context.Context, e *events.Event) error {
	var err error
	switch e.Type {
	case events.PhaseTransition:
		err = c.OnPhaseTransition(ctx, e)
		// Leaving complete (a repair) changes the done counts.
		if err == nil && e.From.IsTerminal() {
			_, err = Refresh(e.Layout)
		}
	case events.FeatureCompleted:
		err = c.OnFeatureComplete(ctx, e)
	case events.FeatureCreated:
		if err = c.OnPhaseTransition(ctx, e); err == nil {
			_, err = Refresh(e.Layout)
		}
	case events.FeatureRemoved:
		if err = DeleteFeature(e.Layout, e.FeatureID); err == nil {
			_, err = Refresh(e.Layout)
		}
	}
	if err != nil {
		c.logger.Warn("metrics update failed",
			zap.String("event", string(e.Type)),
			zap.String("feature", e.FeatureID),
			zap.Error(err))
	}
	return nil
}

// OnPhaseTransition recomputes and persists the snapshot for the event's
// feature.
func (c *Collector) OnPhaseTransition(ctx context.Context, e *events.Event) error {
	f, err := c.store.Find(ctx, e.Layout, e.FeatureID)
	if err != nil {
		return err
	}
	m, err := Compute(ctx, e.Layout, f)
	if err != nil {
		return err
	}
	return SaveFeature(e.Layout, m)
}

// OnFeatureComplete refreshes the snapshot, then the aggregate and index.
func (c *Collector) OnFeatureComplete(ctx context.Context, e *events.Event) error {
	if err := c.OnPhaseTransition(ctx, e); err != nil {
		return err
	}
	_, err := Refresh(e.Layout)
	return err
}

// RebuildReport describes what Rebuild did.
type RebuildReport struct {
	Computed   int               `json:"computed"`
	Orphans    []string          `json:"orphans_removed"`
	Aggregated AggregatedMetrics `json:"aggregated"`
}

// Rebuild recomputes every snapshot from the ledger in parallel, deletes
// snapshots whose feature is no longer in the ledger and rewrites the
// aggregate and index. Unlike the event handlers it returns its errors.
func (c *Collector) Rebuild(ctx context.Context, layout ledger.Layout) (*RebuildReport, error) {
	features, err := c.store.List(ctx, layout)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	var mu sync.Mutex
	report := &RebuildReport{}
	for i := range features {
		f := &features[i]
		g.Go(func() error {
			m, err := Compute(gctx, layout, f)
			if err != nil {
				return fmt.Errorf("computing %s: %w", f.ID, err)
			}
			if err := SaveFeature(layout, m); err != nil {
				return err
			}
			mu.Lock()
			report.Computed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	live := make(map[string]bool, len(features))
	for _, f := range features {
		live[f.ID] = true
	}
	stale, err := filepath.Glob(filepath.Join(featuresPath(layout), "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range stale {
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		if live[id] {
			continue
		}
		if err := DeleteFeature(layout, id); err != nil {
			return nil, err
		}
		report.Orphans = append(report.Orphans, id)
	}

	agg, err := Refresh(layout)
	if err != nil {
		return nil, err
	}
	report.Aggregated = agg
	c.logger.Info("metrics rebuilt",
		zap.Int("computed", report.Computed),
		zap.Int("orphans", len(report.Orphans)))
	return report, nil
}
