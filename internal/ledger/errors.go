package ledger

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error taxonomy shared by the core. Callers match with errors.Is so the
// presentation layer can give differentiated remediation guidance.
var (
	// ErrNotInitialized means no ledger exists under the project root.
	ErrNotInitialized = errors.New("project not initialized")
	// ErrAlreadyInitialized is returned by Init when a ledger already exists.
	ErrAlreadyInitialized = errors.New("project already initialized")
	// ErrLedgerCorrupted means the ledger exists but cannot be parsed.
	// Fatal to every read; the user must run repair.
	ErrLedgerCorrupted = errors.New("ledger corrupted")
	// ErrFeatureNotFound means the id is not in the active ledger.
	ErrFeatureNotFound = errors.New("feature not found")
	// ErrDuplicateID means a record with the same id is already present.
	ErrDuplicateID = errors.New("duplicate feature id")
	// ErrValidationFailed marks rejected input (empty title, unknown type).
	ErrValidationFailed = errors.New("validation failed")
	// ErrInvalidTransition marks a phase move that breaks the linear lifecycle.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrFilePermission wraps filesystem permission denials.
	ErrFilePermission = errors.New("file permission denied")
	// ErrLocked means another process holds the ledger write lock.
	ErrLocked = errors.New("ledger is locked by another process")
)

// CorruptedError carries the path of the unparsable ledger.
type CorruptedError struct {
	Path string
	Err  error
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("ledger %s is corrupted: %v", e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the underlying parse error.
func (e *CorruptedError) Unwrap() []error {
	return []error{ErrLedgerCorrupted, e.Err}
}

// FSError maps permission denials onto ErrFilePermission and passes every
// other error through unchanged.
func FSError(err error) error {
	if err != nil && errors.Is(err, fs.ErrPermission) && !errors.Is(err, ErrFilePermission) {
		return fmt.Errorf("%w: %w", ErrFilePermission, err)
	}
	return err
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrFeatureNotFound, id)
}
