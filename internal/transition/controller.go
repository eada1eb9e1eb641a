// Package transition is the single authority for moving a feature forward
// through its lifecycle.
//
// A move is judge-then-commit: resolve the gate for (type, target), run it
// against the feature folder, and only on a valid verdict write the new
// phase and publish events. A rejected move leaves the ledger untouched and
// publishes nothing, so the user can fix the artifact and call again.
package transition

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/telemetry"
)

// Outcome reports what a transition attempt did.
type Outcome struct {
	Feature  *ledger.Feature `json:"feature"`
	From     ledger.Phase    `json:"from"`
	To       ledger.Phase    `json:"to"`
	Gated    bool            `json:"gated"`
	Result   *gates.Result   `json:"result"`
	Advanced bool            `json:"advanced"`
}

// Controller runs gates and commits phase moves.
type Controller struct {
	store     ledger.Store
	gates     *gates.Registry
	publisher events.Publisher
	logger    *zap.Logger

	advanced metric.Int64Counter
	rejected metric.Int64Counter
}

// New wires a controller. A nil publisher drops events; a nil logger is
// replaced with a no-op one.
func New(store ledger.Store, registry *gates.Registry, publisher events.Publisher, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := telemetry.Meter("github.com/HendryAvila/phasegate/transition")
	advanced, _ := m.Int64Counter("phasegate.transitions",
		metric.WithDescription("Committed phase transitions"),
	)
	rejected, _ := m.Int64Counter("phasegate.gate.rejections",
		metric.WithDescription("Transitions refused by a phase gate"),
	)
	return &Controller{
		store:     store,
		gates:     registry,
		publisher: publisher,
		logger:    logger,
		advanced:  advanced,
		rejected:  rejected,
	}
}

// Check runs the gate for moving id to target without committing anything.
func (c *Controller) Check(ctx context.Context, layout ledger.Layout, id string, target ledger.Phase) (*Outcome, error) {
	f, err := c.store.Find(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	return c.judge(ctx, layout, f, target)
}

// Advance moves id to target when the gate allows it. An invalid verdict is
// not an error: the Outcome carries the Result and Advanced is false.
func (c *Controller) Advance(ctx context.Context, layout ledger.Layout, id string, target ledger.Phase) (*Outcome, error) {
	f, err := c.store.Find(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	out, err := c.judge(ctx, layout, f, target)
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(
		attribute.String("phasegate.feature.type", string(f.Type)),
		attribute.String("phasegate.phase", string(target)),
	)
	if !out.Result.Valid() {
		c.rejected.Add(ctx, 1, attrs)
		c.logger.Debug("gate rejected transition",
			zap.String("feature", id),
			zap.String("target", string(target)),
			zap.Int("errors", len(out.Result.Errors())))
		return out, nil
	}

	updated, err := c.store.UpdatePhase(ctx, layout, id, target)
	if err != nil {
		return nil, fmt.Errorf("committing %s → %s: %w", id, target, err)
	}
	out.Feature = updated
	out.Advanced = true
	c.advanced.Add(ctx, 1, attrs)
	c.logger.Info("phase advanced",
		zap.String("feature", id),
		zap.String("from", string(out.From)),
		zap.String("to", string(target)))

	c.publish(ctx, events.Transition(layout, updated, out.From, target))
	if target.IsTerminal() {
		c.publish(ctx, events.Completed(layout, updated))
	}
	return out, nil
}

// AdvanceNext moves id to the phase after its current one.
func (c *Controller) AdvanceNext(ctx context.Context, layout ledger.Layout, id string) (*Outcome, error) {
	f, err := c.store.Find(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	next, ok := ledger.NextPhase(f.Phase)
	if !ok {
		return nil, fmt.Errorf("%w: %s is already %s", ledger.ErrInvalidTransition, id, f.Phase)
	}
	return c.Advance(ctx, layout, id, next)
}

// judge checks direction, resolves the gate for target and runs it.
func (c *Controller) judge(ctx context.Context, layout ledger.Layout, f *ledger.Feature, target ledger.Phase) (*Outcome, error) {
	if err := ledger.CanTransition(f.Phase, target); err != nil {
		return nil, err
	}
	out := &Outcome{Feature: f, From: f.Phase, To: target, Result: gates.Pass()}

	v, ok := c.gates.Resolve(f.Type, target)
	if !ok {
		return out, nil
	}
	out.Gated = true
	res, err := v.Validate(ctx, layout.FeaturePath(f.ID))
	if err != nil {
		return nil, fmt.Errorf("validating %s for %s: %w", f.ID, target, err)
	}
	out.Result = res
	return out, nil
}

func (c *Controller) publish(ctx context.Context, ev *events.Event) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(ctx, ev)
}
