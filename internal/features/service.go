// Package features orchestrates the multi-step operations that span the
// ledger and the feature folders: open, withdraw, edit, list and advance.
//
// The presentation layers (CLI and MCP tools) call only this package and
// repair; they never touch the ledger store directly.
package features

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/metrics"
	"github.com/HendryAvila/phasegate/internal/scaffold"
	"github.com/HendryAvila/phasegate/internal/transition"
)

var (
	// ErrScaffoldFailed means the ledger entry was created but its folder
	// could not be. The entry exists unless the caller asked for rollback.
	ErrScaffoldFailed = errors.New("scaffolding failed")
	// ErrInconsistentState means a two-step operation stopped halfway and
	// the ledger no longer matches the folders. Run repair.
	ErrInconsistentState = errors.New("ledger and folders are inconsistent")
)

// ScaffoldError carries the feature whose folder could not be created.
type ScaffoldError struct {
	Feature    *ledger.Feature
	RolledBack bool
	Err        error
}

func (e *ScaffoldError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("scaffolding %s failed, ledger entry rolled back: %v", e.Feature.ID, e.Err)
	}
	return fmt.Sprintf("scaffolding %s failed, ledger entry kept: %v", e.Feature.ID, e.Err)
}

func (e *ScaffoldError) Unwrap() []error {
	return []error{ErrScaffoldFailed, e.Err}
}

// InconsistentStateError reports a withdraw whose folder moved but whose
// ledger entry could not be removed.
type InconsistentStateError struct {
	ID         string
	FolderPath string
	Err        error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("%s: folder moved to %s but the ledger entry remains: %v (run `phasegate repair`)", e.ID, e.FolderPath, e.Err)
}

func (e *InconsistentStateError) Unwrap() []error {
	return []error{ErrInconsistentState, e.Err}
}

// DocWriter renders the document for a phase into a feature folder.
type DocWriter interface {
	WritePhaseDoc(layout ledger.Layout, f *ledger.Feature, p ledger.Phase) (bool, error)
}

// Deps are the collaborators of a Service. Publisher and Logger may be nil.
type Deps struct {
	Store      ledger.Store
	Scaffolder scaffold.Scaffolder
	Docs       DocWriter
	Mover      scaffold.Mover
	Controller *transition.Controller
	Publisher  events.Publisher
	Logger     *zap.Logger
}

// Service implements the feature operations.
type Service struct {
	store      ledger.Store
	scaffolder scaffold.Scaffolder
	docs       DocWriter
	mover      scaffold.Mover
	controller *transition.Controller
	publisher  events.Publisher
	logger     *zap.Logger
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		store:      d.Store,
		scaffolder: d.Scaffolder,
		docs:       d.Docs,
		mover:      d.Mover,
		controller: d.Controller,
		publisher:  d.Publisher,
		logger:     d.Logger,
	}
}

// Init creates the ledger and the zero metrics state.
func (s *Service) Init(ctx context.Context, layout ledger.Layout) error {
	if err := s.store.Init(ctx, layout); err != nil {
		return err
	}
	if err := metrics.Init(layout); err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	s.logger.Info("project initialized", zap.String("root", layout.Root))
	return nil
}

// OpenResult is a newly opened feature and its folder.
type OpenResult struct {
	Feature *ledger.Feature `json:"feature"`
	Path    string          `json:"path"`
}

// Open adds a ledger entry and scaffolds its folder. When scaffolding fails
// the returned error is a *ScaffoldError; with rollback the ledger entry is
// removed again, otherwise it stays for the user to retry or repair.
func (s *Service) Open(ctx context.Context, layout ledger.Layout, p ledger.AddParams, rollback bool) (*OpenResult, error) {
	f, err := s.store.Add(ctx, layout, p)
	if err != nil {
		return nil, err
	}

	path, err := s.scaffolder.Scaffold(ctx, layout, f)
	if err != nil {
		serr := &ScaffoldError{Feature: f, Err: err}
		if rollback {
			if rerr := s.store.Remove(ctx, layout, f.ID); rerr != nil {
				serr.Err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
			} else {
				serr.RolledBack = true
			}
		}
		if !serr.RolledBack {
			s.publish(ctx, events.Created(layout, f))
		}
		s.logger.Warn("scaffold failed",
			zap.String("feature", f.ID),
			zap.Bool("rolled_back", serr.RolledBack),
			zap.Error(err))
		return nil, serr
	}

	s.publish(ctx, events.Created(layout, f))
	s.logger.Info("feature opened", zap.String("feature", f.ID), zap.String("path", path))
	return &OpenResult{Feature: f, Path: path}, nil
}

// WithdrawResult is a removed feature and where its folder went.
type WithdrawResult struct {
	Feature *ledger.Feature `json:"feature"`
	Path    string          `json:"path"`
}

// Withdraw moves the folder to the removed root, then drops the ledger
// entry. The two steps are not atomic: a failure in the second returns an
// *InconsistentStateError and repair reports removed_in_ledger.
func (s *Service) Withdraw(ctx context.Context, layout ledger.Layout, id string) (*WithdrawResult, error) {
	f, err := s.store.Find(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	path, err := s.mover.MoveToRemoved(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Remove(ctx, layout, id); err != nil {
		s.logger.Error("ledger remove failed after folder move",
			zap.String("feature", id),
			zap.String("path", path),
			zap.Error(err))
		return nil, &InconsistentStateError{ID: id, FolderPath: path, Err: err}
	}
	s.publish(ctx, events.Removed(layout, f))
	s.logger.Info("feature removed", zap.String("feature", id))
	return &WithdrawResult{Feature: f, Path: path}, nil
}

// Edit updates title, external id or description and refreshes the
// folder's feature.yaml. A missing folder leaves only the ledger changed.
func (s *Service) Edit(ctx context.Context, layout ledger.Layout, id string, edit ledger.MetadataEdit) (*ledger.Feature, error) {
	f, err := s.store.UpdateMetadata(ctx, layout, id, edit)
	if err != nil {
		return nil, err
	}
	if err := scaffold.WriteMeta(layout.FeaturePath(id), f); err != nil {
		s.logger.Warn("feature.yaml not refreshed", zap.String("feature", id), zap.Error(err))
	}
	return f, nil
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Type  ledger.FeatureType
	Phase ledger.Phase
}

// List returns the features matching filter in id order.
func (s *Service) List(ctx context.Context, layout ledger.Layout, filter ListFilter) ([]ledger.Feature, error) {
	all, err := s.store.List(ctx, layout)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Feature, 0, len(all))
	for _, f := range all {
		if filter.Type != "" && f.Type != filter.Type {
			continue
		}
		if filter.Phase != "" && f.Phase != filter.Phase {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Detail is a feature plus what is derived from it.
type Detail struct {
	Feature *ledger.Feature         `json:"feature"`
	Path    string                  `json:"path"`
	Next    ledger.Phase            `json:"next,omitempty"`
	Metrics *metrics.FeatureMetrics `json:"metrics,omitempty"`
}

// Show returns one feature with its folder, next phase and metrics
// snapshot when one exists.
func (s *Service) Show(ctx context.Context, layout ledger.Layout, id string) (*Detail, error) {
	f, err := s.store.Find(ctx, layout, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Feature: f, Path: layout.FeaturePath(id)}
	if next, ok := ledger.NextPhase(f.Phase); ok {
		d.Next = next
	}
	if m, err := metrics.LoadFeature(layout, id); err == nil {
		d.Metrics = m
	}
	return d, nil
}

// Check runs the gate for id without committing. An empty target means the
// next phase.
func (s *Service) Check(ctx context.Context, layout ledger.Layout, id string, target ledger.Phase) (*transition.Outcome, error) {
	target, err := s.resolveTarget(ctx, layout, id, target)
	if err != nil {
		return nil, err
	}
	return s.controller.Check(ctx, layout, id, target)
}

// AdvanceResult is a transition outcome plus the document scaffolded for
// the new phase, if any.
type AdvanceResult struct {
	*transition.Outcome
	Document string `json:"document,omitempty"`
}

// Advance moves id to target (the next phase when empty). After a committed
// move the new phase's document is rendered unless it already exists.
func (s *Service) Advance(ctx context.Context, layout ledger.Layout, id string, target ledger.Phase) (*AdvanceResult, error) {
	target, err := s.resolveTarget(ctx, layout, id, target)
	if err != nil {
		return nil, err
	}
	out, err := s.controller.Advance(ctx, layout, id, target)
	if err != nil {
		return nil, err
	}
	res := &AdvanceResult{Outcome: out}
	if !out.Advanced || s.docs == nil {
		return res, nil
	}
	written, err := s.docs.WritePhaseDoc(layout, out.Feature, out.To)
	if err != nil {
		s.logger.Warn("phase document not written",
			zap.String("feature", id),
			zap.String("phase", string(out.To)),
			zap.Error(err))
		return res, nil
	}
	if written {
		res.Document = ledger.ArtifactFilename(out.To)
	}
	return res, nil
}

func (s *Service) resolveTarget(ctx context.Context, layout ledger.Layout, id string, target ledger.Phase) (ledger.Phase, error) {
	if target != "" {
		return target, nil
	}
	f, err := s.store.Find(ctx, layout, id)
	if err != nil {
		return "", err
	}
	next, ok := ledger.NextPhase(f.Phase)
	if !ok {
		return "", fmt.Errorf("%w: %s is already %s", ledger.ErrInvalidTransition, id, f.Phase)
	}
	return next, nil
}

func (s *Service) publish(ctx context.Context, ev *events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, ev)
	}
}
