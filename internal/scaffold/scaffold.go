// Package scaffold creates and relocates feature folders.
//
// The core only depends on two narrow contracts: a Scaffolder that turns a
// ledger record into a folder, and a Mover that relocates a folder between
// the active and removed roots without ever overwriting.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/templates"
)

var (
	// ErrFolderMissing means the source folder of a move does not exist.
	ErrFolderMissing = errors.New("feature folder missing")
	// ErrFolderExists means the target folder already exists.
	ErrFolderExists = errors.New("feature folder already exists")
)

// MetaFile is the per-folder metadata written next to the phase documents.
// Repair reads it to adopt a folder that has no ledger entry.
const MetaFile = "feature.yaml"

// Meta is the content of feature.yaml.
type Meta struct {
	ID          string             `yaml:"id"`
	Title       string             `yaml:"title"`
	Type        ledger.FeatureType `yaml:"type"`
	ExternalID  string             `yaml:"external_id,omitempty"`
	Description string             `yaml:"description,omitempty"`
	CreatedAt   time.Time          `yaml:"created_at"`
}

// Scaffolder creates the on-disk folder for a new feature.
type Scaffolder interface {
	Scaffold(ctx context.Context, layout ledger.Layout, f *ledger.Feature) (string, error)
}

// FolderScaffolder writes feature.yaml and the planning document.
type FolderScaffolder struct {
	renderer templates.Renderer
}

var _ Scaffolder = (*FolderScaffolder)(nil)

// NewFolderScaffolder creates a scaffolder rendering with r.
func NewFolderScaffolder(r templates.Renderer) *FolderScaffolder {
	return &FolderScaffolder{renderer: r}
}

// Scaffold creates <active>/<id>/ and returns its path. An existing folder
// is never reused, and a folder this call created is removed again when
// its files cannot be written.
func (s *FolderScaffolder) Scaffold(ctx context.Context, layout ledger.Layout, f *ledger.Feature) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := layout.FeaturePath(f.ID)
	if err := os.MkdirAll(layout.ActivePath(), 0o755); err != nil {
		return "", ledger.FSError(fmt.Errorf("creating %s: %w", layout.ActivePath(), err))
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrFolderExists, dir)
		}
		return "", ledger.FSError(fmt.Errorf("creating %s: %w", dir, err))
	}

	if err := WriteMeta(dir, f); err != nil {
		return "", discard(dir, err)
	}
	if _, err := s.WritePhaseDoc(layout, f, f.Phase); err != nil {
		return "", discard(dir, err)
	}
	return dir, nil
}

// discard removes a half-written feature folder and returns cause, joined
// with the cleanup error if the folder could not be removed.
func discard(dir string, cause error) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.Join(cause, ledger.FSError(fmt.Errorf("removing %s: %w", dir, err)))
	}
	return cause
}

// WritePhaseDoc renders the document for phase p into the feature folder
// unless it already exists. It reports whether a file was written.
func (s *FolderScaffolder) WritePhaseDoc(layout ledger.Layout, f *ledger.Feature, p ledger.Phase) (bool, error) {
	name, ok := templates.ForPhase(p)
	if !ok {
		return false, nil
	}
	path := filepath.Join(layout.FeaturePath(f.ID), ledger.ArtifactFilename(p))
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	body, err := s.renderer.Render(name, templates.NewFeatureData(f))
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return false, ledger.FSError(fmt.Errorf("writing %s: %w", filepath.Base(path), err))
	}
	return true, nil
}

// WriteMeta writes feature.yaml for f into dir.
func WriteMeta(dir string, f *ledger.Feature) error {
	data, err := yaml.Marshal(Meta{
		ID:          f.ID,
		Title:       f.Title,
		Type:        f.Type,
		ExternalID:  f.ExternalID,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", MetaFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFile), data, 0o644); err != nil {
		return ledger.FSError(fmt.Errorf("writing %s: %w", MetaFile, err))
	}
	return nil
}

// ReadMeta reads feature.yaml from dir.
func ReadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, ledger.FSError(fmt.Errorf("reading %s: %w", MetaFile, err))
	}
	var m Meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", MetaFile, err)
	}
	return &m, nil
}
