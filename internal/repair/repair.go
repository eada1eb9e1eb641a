// Package repair detects and resolves divergence between the ledger and the
// feature folders on disk.
//
// Removing a feature is two steps (move folder, then drop ledger entry) with
// no transaction across them, and users can move folders by hand. Check
// reports every mismatch; it never fixes anything. Fix applies exactly one
// user-chosen action to one id, since guessing intent risks discarding work.
package repair

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/scaffold"
)

// Kind classifies a divergence.
type Kind string

const (
	// LedgerOnly is a ledger entry with no folder in either root.
	LedgerOnly Kind = "ledger_only"
	// FolderOnly is an active folder with no ledger entry.
	FolderOnly Kind = "folder_only"
	// RemovedInLedger is a ledger entry whose folder sits in the removed
	// root: a remove interrupted between its two steps.
	RemovedInLedger Kind = "removed_in_ledger"
	// DuplicateFolder is an id with a folder in both roots.
	DuplicateFolder Kind = "duplicate_folder"
)

// Action is a user-directed fix.
type Action string

const (
	DropEntry     Action = "drop-entry"
	AdoptFolder   Action = "adopt-folder"
	RestoreFolder Action = "restore-folder"
	SetPhase      Action = "set-phase"
)

// Divergence is one mismatch and the actions that can resolve it.
type Divergence struct {
	Kind    Kind     `json:"kind"`
	ID      string   `json:"id"`
	Path    string   `json:"path,omitempty"`
	Actions []Action `json:"actions"`
	Hint    string   `json:"hint"`
}

// Report is the result of Check.
type Report struct {
	LedgerCount  int          `json:"ledger_count"`
	ActiveCount  int          `json:"active_count"`
	RemovedCount int          `json:"removed_count"`
	Divergences  []Divergence `json:"divergences"`
}

// Consistent reports whether no divergence was found.
func (r *Report) Consistent() bool {
	return len(r.Divergences) == 0
}

// Find returns the divergences recorded for id.
func (r *Report) Find(id string) []Divergence {
	var out []Divergence
	for _, d := range r.Divergences {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out
}

// Repairer runs checks and fixes against one ledger store.
type Repairer struct {
	store     ledger.Store
	mover     scaffold.Mover
	publisher events.Publisher
	logger    *zap.Logger
}

// New creates a Repairer. publisher may be nil.
func New(store ledger.Store, mover scaffold.Mover, publisher events.Publisher, logger *zap.Logger) *Repairer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repairer{store: store, mover: mover, publisher: publisher, logger: logger}
}

// Check compares ledger ids against the folders under the active and
// removed roots. A corrupted or missing ledger is returned as an error.
func (r *Repairer) Check(ctx context.Context, layout ledger.Layout) (*Report, error) {
	l, err := r.store.Load(ctx, layout)
	if err != nil {
		return nil, err
	}
	active, err := listFolders(layout.ActivePath())
	if err != nil {
		return nil, err
	}
	removed, err := listFolders(layout.RemovedPath())
	if err != nil {
		return nil, err
	}

	rep := &Report{
		LedgerCount:  len(l.Features),
		ActiveCount:  len(active),
		RemovedCount: len(removed),
		Divergences:  []Divergence{},
	}
	inLedger := l.IDs()

	for _, f := range l.Features {
		if active[f.ID] {
			continue
		}
		if removed[f.ID] {
			rep.Divergences = append(rep.Divergences, Divergence{
				Kind:    RemovedInLedger,
				ID:      f.ID,
				Path:    layout.RemovedFeaturePath(f.ID),
				Actions: []Action{DropEntry, RestoreFolder},
				Hint:    "finish the remove with drop-entry, or undo it with restore-folder",
			})
			continue
		}
		rep.Divergences = append(rep.Divergences, Divergence{
			Kind:    LedgerOnly,
			ID:      f.ID,
			Path:    layout.FeaturePath(f.ID),
			Actions: []Action{DropEntry},
			Hint:    "the folder is gone; drop-entry removes the ledger record",
		})
	}

	for id := range active {
		if !inLedger[id] {
			rep.Divergences = append(rep.Divergences, Divergence{
				Kind:    FolderOnly,
				ID:      id,
				Path:    layout.FeaturePath(id),
				Actions: []Action{AdoptFolder},
				Hint:    "adopt-folder creates a ledger record from feature.yaml",
			})
		}
		if removed[id] {
			rep.Divergences = append(rep.Divergences, Divergence{
				Kind:    DuplicateFolder,
				ID:      id,
				Path:    layout.RemovedFeaturePath(id),
				Actions: []Action{},
				Hint:    "the id exists in both roots; merge or delete one copy by hand",
			})
		}
	}

	sort.SliceStable(rep.Divergences, func(i, j int) bool {
		if rep.Divergences[i].ID != rep.Divergences[j].ID {
			return rep.Divergences[i].ID < rep.Divergences[j].ID
		}
		return rep.Divergences[i].Kind < rep.Divergences[j].Kind
	})
	return rep, nil
}

// listFolders returns the directory names directly under root. A missing
// root is empty.
func listFolders(root string) (map[string]bool, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, ledger.FSError(fmt.Errorf("listing %s: %w", root, err))
	}
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out[e.Name()] = true
		}
	}
	return out, nil
}
