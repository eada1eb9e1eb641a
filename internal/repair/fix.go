package repair

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/scaffold"
)

// ErrActionNotApplicable means the chosen action does not resolve any
// divergence currently reported for the id.
var ErrActionNotApplicable = errors.New("repair action not applicable")

// FixRequest names one action on one id. Phase is used by set-phase only.
type FixRequest struct {
	ID     string
	Action Action
	Phase  ledger.Phase
}

// FixResult describes what Fix changed.
type FixResult struct {
	ID      string          `json:"id"`
	Action  Action          `json:"action"`
	Feature *ledger.Feature `json:"feature,omitempty"`
	Message string          `json:"message"`
}

// ParseAction converts user input into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case DropEntry, AdoptFolder, RestoreFolder, SetPhase:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown repair action %q: must be one of: drop-entry, adopt-folder, restore-folder, set-phase", ledger.ErrValidationFailed, s)
}

// Fix applies req after re-checking that it resolves a current divergence.
// set-phase is the explicit backwards move and needs no divergence, only a
// ledger entry.
func (r *Repairer) Fix(ctx context.Context, layout ledger.Layout, req FixRequest) (*FixResult, error) {
	if req.Action == SetPhase {
		return r.setPhase(ctx, layout, req)
	}

	rep, err := r.Check(ctx, layout)
	if err != nil {
		return nil, err
	}
	var allowed bool
	for _, d := range rep.Find(req.ID) {
		if slices.Contains(d.Actions, req.Action) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s on %s", ErrActionNotApplicable, req.Action, req.ID)
	}

	var res *FixResult
	switch req.Action {
	case DropEntry:
		res, err = r.dropEntry(ctx, layout, req.ID)
	case AdoptFolder:
		res, err = r.adoptFolder(ctx, layout, req.ID)
	case RestoreFolder:
		res, err = r.restoreFolder(ctx, layout, req.ID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrActionNotApplicable, req.Action)
	}
	if err != nil {
		return nil, err
	}
	r.logger.Info("repair applied",
		zap.String("feature", req.ID),
		zap.String("action", string(req.Action)))
	return res, nil
}

func (r *Repairer) dropEntry(ctx context.Context, layout ledger.Layout, id string) (*FixResult, error) {
	f, err := r.store.Find(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.Remove(ctx, layout, id); err != nil {
		return nil, err
	}
	r.publish(ctx, events.Removed(layout, f))
	return &FixResult{ID: id, Action: DropEntry, Feature: f, Message: "ledger entry removed"}, nil
}

// adoptFolder creates a ledger record for an orphan folder. Metadata comes
// from feature.yaml when present; otherwise the type is inferred from the
// id and the id doubles as title. The record starts in planning.
func (r *Repairer) adoptFolder(ctx context.Context, layout ledger.Layout, id string) (*FixResult, error) {
	dir := layout.FeaturePath(id)
	now := timeNow().UTC()
	f := ledger.Feature{ID: id, Title: id, Phase: ledger.InitialPhase, CreatedAt: now}

	meta, err := scaffold.ReadMeta(dir)
	switch {
	case err == nil && meta.ID == id:
		f.Title = meta.Title
		f.Type = meta.Type
		f.ExternalID = meta.ExternalID
		f.Description = meta.Description
		if !meta.CreatedAt.IsZero() {
			f.CreatedAt = meta.CreatedAt.UTC()
		}
	case err == nil || errors.Is(err, fs.ErrNotExist):
		// No usable metadata: fall through to inference.
	default:
		return nil, err
	}
	if f.Type == "" {
		typ, _, ok := ledger.ParseID(id)
		if !ok {
			return nil, fmt.Errorf("%w: cannot infer a type from folder %q and it has no %s", ledger.ErrValidationFailed, id, scaffold.MetaFile)
		}
		f.Type = typ
	}
	if f.Title == "" {
		f.Title = id
	}
	f.UpdatedAt = now
	f.PhaseHistory = []ledger.PhaseEntry{{Phase: f.Phase, EnteredAt: now}}

	if err := r.store.Restore(ctx, layout, f); err != nil {
		return nil, err
	}
	r.publish(ctx, events.Created(layout, &f))
	return &FixResult{ID: id, Action: AdoptFolder, Feature: &f, Message: "folder adopted into the ledger"}, nil
}

func (r *Repairer) restoreFolder(ctx context.Context, layout ledger.Layout, id string) (*FixResult, error) {
	path, err := r.mover.MoveToActive(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	return &FixResult{ID: id, Action: RestoreFolder, Message: "folder moved back to " + path}, nil
}

func (r *Repairer) setPhase(ctx context.Context, layout ledger.Layout, req FixRequest) (*FixResult, error) {
	if !req.Phase.IsValid() {
		return nil, fmt.Errorf("%w: set-phase needs a valid phase, got %q", ledger.ErrValidationFailed, req.Phase)
	}
	before, err := r.store.Find(ctx, layout, req.ID)
	if err != nil {
		return nil, err
	}
	f, err := r.store.SetPhase(ctx, layout, req.ID, req.Phase)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, events.Transition(layout, f, before.Phase, f.Phase))
	if f.Phase.IsTerminal() && !before.Phase.IsTerminal() {
		r.publish(ctx, events.Completed(layout, f))
	}
	r.logger.Info("repair applied",
		zap.String("feature", req.ID),
		zap.String("action", string(SetPhase)),
		zap.String("phase", string(req.Phase)))
	return &FixResult{
		ID:      req.ID,
		Action:  SetPhase,
		Feature: f,
		Message: fmt.Sprintf("phase set from %s to %s", before.Phase, f.Phase),
	}, nil
}

func (r *Repairer) publish(ctx context.Context, ev *events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(ctx, ev)
	}
}
