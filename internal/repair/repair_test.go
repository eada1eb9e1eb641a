package repair

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/scaffold"
)

// --- Helpers ---

type capture struct{ events []*events.Event }

func (c *capture) Publish(_ context.Context, e *events.Event) { c.events = append(c.events, e) }

type fixture struct {
	ctx    context.Context
	layout ledger.Layout
	store  ledger.Store
	pub    *capture
	r      *Repairer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		ctx:    context.Background(),
		layout: ledger.NewLayout(t.TempDir()),
		store:  ledger.NewFileStore(),
		pub:    &capture{},
	}
	require.NoError(t, fx.store.Init(fx.ctx, fx.layout))
	fx.r = New(fx.store, scaffold.FolderMover{}, fx.pub, nil)
	return fx
}

func (fx *fixture) add(t *testing.T, typ ledger.FeatureType, withFolder bool) *ledger.Feature {
	t.Helper()
	f, err := fx.store.Add(fx.ctx, fx.layout, ledger.AddParams{Title: "work", Type: typ})
	require.NoError(t, err)
	if withFolder {
		require.NoError(t, os.MkdirAll(fx.layout.FeaturePath(f.ID), 0o755))
	}
	return f
}

func kinds(rep *Report) map[string]Kind {
	out := map[string]Kind{}
	for _, d := range rep.Divergences {
		out[d.ID+"/"+string(d.Kind)] = d.Kind
	}
	return out
}

// --- Check ---

func TestCheck_ConsistentProject(t *testing.T) {
	fx := newFixture(t)
	fx.add(t, ledger.TypeBug, true)
	fx.add(t, ledger.TypeTask, true)

	rep, err := fx.r.Check(fx.ctx, fx.layout)
	require.NoError(t, err)
	assert.True(t, rep.Consistent())
	assert.Equal(t, 2, rep.LedgerCount)
	assert.Equal(t, 2, rep.ActiveCount)
}

func TestCheck_ReportsEveryKind(t *testing.T) {
	fx := newFixture(t)
	// bug-001 has no folder; bug-002 was moved but kept in the ledger.
	fx.add(t, ledger.TypeBug, false)
	interrupted := fx.add(t, ledger.TypeBug, true)
	_, err := scaffold.FolderMover{}.MoveToRemoved(fx.ctx, fx.layout, interrupted.ID)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(fx.layout.FeaturePath("task-007"), 0o755))
	dup := fx.add(t, ledger.TypeFeature, true)
	require.NoError(t, os.MkdirAll(fx.layout.RemovedFeaturePath(dup.ID), 0o755))

	before, err := os.ReadFile(fx.layout.LedgerPath())
	require.NoError(t, err)

	rep, err := fx.r.Check(fx.ctx, fx.layout)
	require.NoError(t, err)

	assert.Equal(t, map[string]Kind{
		"bug-001/ledger_only":          LedgerOnly,
		"bug-002/removed_in_ledger":    RemovedInLedger,
		"task-007/folder_only":         FolderOnly,
		"feature-001/duplicate_folder": DuplicateFolder,
	}, kinds(rep))

	after, err := os.ReadFile(fx.layout.LedgerPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "Check must not mutate")
	assert.Empty(t, fx.pub.events)
}

func TestCheck_CorruptedLedger(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(fx.layout.LedgerPath(), []byte("{oops"), 0o644))

	_, err := fx.r.Check(fx.ctx, fx.layout)
	assert.ErrorIs(t, err, ledger.ErrLedgerCorrupted)
}

// --- Fix ---

func TestFix_DropEntry(t *testing.T) {
	fx := newFixture(t)
	f := fx.add(t, ledger.TypeBug, false)

	res, err := fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: f.ID, Action: DropEntry})
	require.NoError(t, err)
	assert.Equal(t, DropEntry, res.Action)

	_, err = fx.store.Find(fx.ctx, fx.layout, f.ID)
	assert.ErrorIs(t, err, ledger.ErrFeatureNotFound)
	require.Len(t, fx.pub.events, 1)
	assert.Equal(t, events.FeatureRemoved, fx.pub.events[0].Type)
}

func TestFix_RestoreFolder(t *testing.T) {
	fx := newFixture(t)
	f := fx.add(t, ledger.TypeTask, true)
	_, err := scaffold.FolderMover{}.MoveToRemoved(fx.ctx, fx.layout, f.ID)
	require.NoError(t, err)

	_, err = fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: f.ID, Action: RestoreFolder})
	require.NoError(t, err)
	assert.DirExists(t, fx.layout.FeaturePath(f.ID))

	rep, err := fx.r.Check(fx.ctx, fx.layout)
	require.NoError(t, err)
	assert.True(t, rep.Consistent())
}

func TestFix_AdoptFolderFromMeta(t *testing.T) {
	fx := newFixture(t)
	created := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	dir := fx.layout.FeaturePath("bug-009")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, scaffold.WriteMeta(dir, &ledger.Feature{
		ID: "bug-009", Title: "Lost on disk", Type: ledger.TypeBug, ExternalID: "GH-12", CreatedAt: created,
	}))

	res, err := fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: "bug-009", Action: AdoptFolder})
	require.NoError(t, err)
	assert.Equal(t, "Lost on disk", res.Feature.Title)

	got, err := fx.store.Find(fx.ctx, fx.layout, "bug-009")
	require.NoError(t, err)
	assert.Equal(t, ledger.TypeBug, got.Type)
	assert.Equal(t, "GH-12", got.ExternalID)
	assert.Equal(t, ledger.PhasePlanning, got.Phase)
	assert.True(t, got.CreatedAt.Equal(created))

	next := fx.add(t, ledger.TypeBug, true)
	assert.Equal(t, "bug-010", next.ID, "adopted ids advance the sequence")
}

func TestFix_AdoptFolderInfersType(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.MkdirAll(fx.layout.FeaturePath("task-003"), 0o755))

	res, err := fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: "task-003", Action: AdoptFolder})
	require.NoError(t, err)
	assert.Equal(t, ledger.TypeTask, res.Feature.Type)
	assert.Equal(t, "task-003", res.Feature.Title)

	require.NoError(t, os.MkdirAll(fx.layout.FeaturePath("scratch"), 0o755))
	_, err = fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: "scratch", Action: AdoptFolder})
	assert.ErrorIs(t, err, ledger.ErrValidationFailed)
}

func TestFix_RejectsActionThatDoesNotApply(t *testing.T) {
	fx := newFixture(t)
	f := fx.add(t, ledger.TypeBug, true)

	_, err := fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: f.ID, Action: DropEntry})
	assert.ErrorIs(t, err, ErrActionNotApplicable)

	_, err = fx.store.Find(fx.ctx, fx.layout, f.ID)
	assert.NoError(t, err)
}

func TestFix_SetPhaseMovesBackwards(t *testing.T) {
	fx := newFixture(t)
	f := fx.add(t, ledger.TypeFeature, true)
	_, err := fx.store.SetPhase(fx.ctx, fx.layout, f.ID, ledger.PhaseTesting)
	require.NoError(t, err)

	res, err := fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: f.ID, Action: SetPhase, Phase: ledger.PhaseRefinement})
	require.NoError(t, err)
	assert.Equal(t, ledger.PhaseRefinement, res.Feature.Phase)
	require.Len(t, fx.pub.events, 1)
	assert.Equal(t, ledger.PhaseTesting, fx.pub.events[0].From)

	_, err = fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: f.ID, Action: SetPhase, Phase: "done"})
	assert.ErrorIs(t, err, ledger.ErrValidationFailed)
}

func TestFix_SetPhaseToCompletePublishesCompletion(t *testing.T) {
	fx := newFixture(t)
	f := fx.add(t, ledger.TypeTask, true)

	_, err := fx.r.Fix(fx.ctx, fx.layout, FixRequest{ID: f.ID, Action: SetPhase, Phase: ledger.PhaseComplete})
	require.NoError(t, err)
	require.Len(t, fx.pub.events, 2)
	assert.Equal(t, events.PhaseTransition, fx.pub.events[0].Type)
	assert.Equal(t, events.FeatureCompleted, fx.pub.events[1].Type)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("restore-folder")
	require.NoError(t, err)
	assert.Equal(t, RestoreFolder, a)

	_, err = ParseAction("nuke")
	assert.ErrorIs(t, err, ledger.ErrValidationFailed)
}
