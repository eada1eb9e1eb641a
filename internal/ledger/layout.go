package ledger

import (
	"os"
	"path/filepath"
)

const (
	// DefaultStateDir holds the ledger, lock, config, journal and metrics.
	DefaultStateDir = ".phasegate"
	// DefaultActiveDir is where active feature folders live.
	DefaultActiveDir = "work/active"
	// DefaultRemovedDir is where withdrawn feature folders are relocated.
	DefaultRemovedDir = "work/removed"

	// LedgerFile is the filename of the ledger document.
	LedgerFile = "ledger.json"
	// LockFile is the advisory single-writer lock.
	LockFile = "ledger.lock"
	// ConfigFile is the optional per-project configuration.
	ConfigFile = "config.yaml"
	// HistoryFile is the SQLite transition journal.
	HistoryFile = "history.db"
	// MetricsDir is the subdirectory of the state dir holding metrics.
	MetricsDir = "metrics"
)

// Layout is the explicit project context passed into every core call.
// Directory fields are relative to Root unless absolute.
type Layout struct {
	Root       string
	StateDir   string
	ActiveDir  string
	RemovedDir string
}

// NewLayout returns the default layout for a project root.
func NewLayout(root string) Layout {
	return Layout{
		Root:       root,
		StateDir:   DefaultStateDir,
		ActiveDir:  DefaultActiveDir,
		RemovedDir: DefaultRemovedDir,
	}
}

func (l Layout) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(l.Root, dir)
}

// StatePath returns the absolute path of the state directory.
func (l Layout) StatePath() string { return l.resolve(l.StateDir) }

// LedgerPath returns the absolute path of ledger.json.
func (l Layout) LedgerPath() string { return filepath.Join(l.StatePath(), LedgerFile) }

// LockPath returns the absolute path of the writer lock.
func (l Layout) LockPath() string { return filepath.Join(l.StatePath(), LockFile) }

// ConfigPath returns the absolute path of the project config file.
func (l Layout) ConfigPath() string { return filepath.Join(l.StatePath(), ConfigFile) }

// HistoryPath returns the absolute path of the journal database.
func (l Layout) HistoryPath() string { return filepath.Join(l.StatePath(), HistoryFile) }

// MetricsPath returns the absolute path of the metrics directory.
func (l Layout) MetricsPath() string { return filepath.Join(l.StatePath(), MetricsDir) }

// ActivePath returns the absolute path of the active-work root.
func (l Layout) ActivePath() string { return l.resolve(l.ActiveDir) }

// RemovedPath returns the absolute path of the removed-work root.
func (l Layout) RemovedPath() string { return l.resolve(l.RemovedDir) }

// FeaturePath returns the active folder of a feature.
func (l Layout) FeaturePath(id string) string { return filepath.Join(l.ActivePath(), id) }

// RemovedFeaturePath returns the removed folder of a feature.
func (l Layout) RemovedFeaturePath(id string) string { return filepath.Join(l.RemovedPath(), id) }

// FindRoot walks up from dir looking for an initialized project
// (<dir>/.phasegate/ledger.json). If none is found it returns dir so the
// caller decides what to do.
func FindRoot(dir string) string {
	current := dir
	for {
		candidate := filepath.Join(current, DefaultStateDir, LedgerFile)
		if _, err := os.Stat(candidate); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}
