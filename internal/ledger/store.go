package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Store defines the persistence interface for the ledger.
// The Transition Controller is the only caller of UpdatePhase; SetPhase is
// reserved for explicit repair.
type Store interface {
	Init(ctx context.Context, layout Layout) error
	Load(ctx context.Context, layout Layout) (*Ledger, error)
	Add(ctx context.Context, layout Layout, p AddParams) (*Feature, error)
	Find(ctx context.Context, layout Layout, id string) (*Feature, error)
	List(ctx context.Context, layout Layout) ([]Feature, error)
	Remove(ctx context.Context, layout Layout, id string) error
	UpdatePhase(ctx context.Context, layout Layout, id string, phase Phase) (*Feature, error)
	SetPhase(ctx context.Context, layout Layout, id string, phase Phase) (*Feature, error)
	UpdateMetadata(ctx context.Context, layout Layout, id string, edit MetadataEdit) (*Feature, error)
	Restore(ctx context.Context, layout Layout, f Feature) error
}

// FileStore implements Store as a single JSON document rewritten atomically
// on every mutation.
type FileStore struct{}

// NewFileStore creates a filesystem-backed ledger store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Init creates the state directory and an empty ledger.
func (s *FileStore) Init(ctx context.Context, layout Layout) error {
	unlock, err := acquireLock(layout.LockPath())
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(layout.LedgerPath()); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, layout.LedgerPath())
	}
	for _, dir := range []string{layout.ActivePath(), layout.RemovedPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return FSError(fmt.Errorf("creating %s: %w", dir, err))
		}
	}
	return s.write(layout, newLedger())
}

// Load reads and parses the full ledger. A missing file is ErrNotInitialized;
// an unparsable one is a *CorruptedError.
func (s *FileStore) Load(ctx context.Context, layout Layout) (*Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := layout.LedgerPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no ledger at %s", ErrNotInitialized, path)
		}
		return nil, FSError(fmt.Errorf("reading ledger: %w", err))
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, &CorruptedError{Path: path, Err: err}
	}
	if err := check(&l); err != nil {
		return nil, &CorruptedError{Path: path, Err: err}
	}
	if l.Sequences == nil {
		l.Sequences = map[FeatureType]int{}
	}
	if l.Features == nil {
		l.Features = []Feature{}
	}
	return &l, nil
}

// check enforces the document invariants that JSON decoding can't.
func check(l *Ledger) error {
	if l.Version == "" {
		return errors.New("missing version")
	}
	seen := make(map[string]bool, len(l.Features))
	for _, f := range l.Features {
		if f.ID == "" {
			return errors.New("feature with empty id")
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate id %q", f.ID)
		}
		seen[f.ID] = true
		if !f.Type.IsValid() {
			return fmt.Errorf("feature %q has unknown type %q", f.ID, f.Type)
		}
		if !f.Phase.IsValid() {
			return fmt.Errorf("feature %q has unknown phase %q", f.ID, f.Phase)
		}
	}
	return nil
}

// Add creates a feature in the initial phase with a fresh id.
func (s *FileStore) Add(ctx context.Context, layout Layout, p AddParams) (*Feature, error) {
	p.normalize()
	if err := validateStruct(&p); err != nil {
		return nil, err
	}

	var created *Feature
	err := s.mutate(ctx, layout, func(l *Ledger) error {
		now := timeNow().UTC()
		f := Feature{
			ID:          nextID(l, layout, p.Type),
			Title:       p.Title,
			Type:        p.Type,
			Phase:       InitialPhase,
			ExternalID:  p.ExternalID,
			Description: p.Description,
			PhaseHistory: []PhaseEntry{
				{Phase: InitialPhase, EnteredAt: now},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		l.Features = append(l.Features, f)
		created = f.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Find returns a copy of the feature with the given id.
func (s *FileStore) Find(ctx context.Context, layout Layout, id string) (*Feature, error) {
	l, err := s.Load(ctx, layout)
	if err != nil {
		return nil, err
	}
	idx := l.index(id)
	if idx < 0 {
		return nil, notFound(id)
	}
	return l.Features[idx].clone(), nil
}

// List returns every feature in id order.
func (s *FileStore) List(ctx context.Context, layout Layout) ([]Feature, error) {
	l, err := s.Load(ctx, layout)
	if err != nil {
		return nil, err
	}
	out := make([]Feature, 0, len(l.Features))
	for i := range l.Features {
		out = append(out, *l.Features[i].clone())
	}
	return out, nil
}

// Remove deletes the entry from the active ledger. It never touches the
// filesystem; keeping folders in lockstep is the caller's job.
func (s *FileStore) Remove(ctx context.Context, layout Layout, id string) error {
	return s.mutate(ctx, layout, func(l *Ledger) error {
		idx := l.index(id)
		if idx < 0 {
			return notFound(id)
		}
		l.Features = append(l.Features[:idx], l.Features[idx+1:]...)
		return nil
	})
}

// UpdatePhase moves a feature forward in the lifecycle, recording any
// skipped phases in its history.
func (s *FileStore) UpdatePhase(ctx context.Context, layout Layout, id string, phase Phase) (*Feature, error) {
	return s.movePhase(ctx, layout, id, phase, true)
}

// SetPhase moves a feature to any phase, including backwards. Repair only.
func (s *FileStore) SetPhase(ctx context.Context, layout Layout, id string, phase Phase) (*Feature, error) {
	return s.movePhase(ctx, layout, id, phase, false)
}

func (s *FileStore) movePhase(ctx context.Context, layout Layout, id string, phase Phase, linear bool) (*Feature, error) {
	var updated *Feature
	err := s.mutate(ctx, layout, func(l *Ledger) error {
		idx := l.index(id)
		if idx < 0 {
			return notFound(id)
		}
		f := &l.Features[idx]
		if linear {
			if err := CanTransition(f.Phase, phase); err != nil {
				return err
			}
		} else if !phase.IsValid() {
			return fmt.Errorf("%w: unknown phase %q", ErrInvalidTransition, phase)
		}

		now := timeNow().UTC()
		if n := len(f.PhaseHistory); n > 0 && f.PhaseHistory[n-1].ExitedAt == nil {
			f.PhaseHistory[n-1].ExitedAt = &now
		}
		if linear {
			// Skipped phases are entered and left at the same instant.
			for _, skipped := range PhasesBetween(f.Phase, phase) {
				exited := now
				f.PhaseHistory = append(f.PhaseHistory, PhaseEntry{Phase: skipped, EnteredAt: now, ExitedAt: &exited, Skipped: true})
			}
		}
		f.PhaseHistory = append(f.PhaseHistory, PhaseEntry{Phase: phase, EnteredAt: now})
		f.Phase = phase
		f.UpdatedAt = now
		updated = f.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateMetadata applies a partial edit of title, external id and description.
func (s *FileStore) UpdateMetadata(ctx context.Context, layout Layout, id string, edit MetadataEdit) (*Feature, error) {
	edit.normalize()
	if edit.Title != nil && *edit.Title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidationFailed)
	}
	if err := validateStruct(&edit); err != nil {
		return nil, err
	}

	var updated *Feature
	err := s.mutate(ctx, layout, func(l *Ledger) error {
		idx := l.index(id)
		if idx < 0 {
			return notFound(id)
		}
		f := &l.Features[idx]
		if edit.Title != nil {
			f.Title = *edit.Title
		}
		if edit.ExternalID != nil {
			f.ExternalID = *edit.ExternalID
		}
		if edit.Description != nil {
			f.Description = *edit.Description
		}
		f.UpdatedAt = timeNow().UTC()
		updated = f.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Restore re-inserts a feature record verbatim.
func (s *FileStore) Restore(ctx context.Context, layout Layout, f Feature) error {
	if err := ValidateType(f.Type); err != nil {
		return err
	}
	if !f.Phase.IsValid() {
		return fmt.Errorf("%w: unknown phase %q", ErrValidationFailed, f.Phase)
	}
	return s.mutate(ctx, layout, func(l *Ledger) error {
		if l.index(f.ID) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateID, f.ID)
		}
		if typ, seq, ok := ParseID(f.ID); ok && typ == f.Type && seq > l.Sequences[typ] {
			l.Sequences[typ] = seq
		}
		l.Features = append(l.Features, *f.clone())
		return nil
	})
}

// mutate is the single write path: lock, load, apply fn, rewrite atomically.
// An uninitialized project is rejected before the lock file is created.
func (s *FileStore) mutate(ctx context.Context, layout Layout, fn func(*Ledger) error) error {
	if err := requireLedger(layout); err != nil {
		return err
	}
	unlock, err := acquireLock(layout.LockPath())
	if err != nil {
		return err
	}
	defer unlock()

	l, err := s.Load(ctx, layout)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	l.UpdatedAt = timeNow().UTC()
	return s.write(layout, l)
}

func requireLedger(layout Layout) error {
	_, err := os.Stat(layout.LedgerPath())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: no ledger at %s", ErrNotInitialized, layout.LedgerPath())
	default:
		return FSError(fmt.Errorf("reading ledger: %w", err))
	}
}

// write persists the full ledger, sorted by id.
func (s *FileStore) write(layout Layout, l *Ledger) error {
	sort.Slice(l.Features, func(i, j int) bool {
		return l.Features[i].ID < l.Features[j].ID
	})
	if err := WriteJSONAtomic(layout.LedgerPath(), l); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}
