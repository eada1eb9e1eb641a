package features

import (
	"errors"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/repair"
	"github.com/HendryAvila/phasegate/internal/scaffold"
)

// IsUserError reports whether err is an expected outcome of bad input or
// project state, as opposed to an internal failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ledger.ErrNotInitialized,
		ledger.ErrAlreadyInitialized,
		ledger.ErrLedgerCorrupted,
		ledger.ErrFeatureNotFound,
		ledger.ErrDuplicateID,
		ledger.ErrValidationFailed,
		ledger.ErrInvalidTransition,
		ledger.ErrFilePermission,
		ledger.ErrLocked,
		ErrScaffoldFailed,
		ErrInconsistentState,
		scaffold.ErrFolderMissing,
		scaffold.ErrFolderExists,
		repair.ErrActionNotApplicable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Hint returns a one-line remediation for err, or "" when there is none.
func Hint(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotInitialized):
		return "run `phasegate init` in the project root"
	case errors.Is(err, ledger.ErrLedgerCorrupted):
		return "restore ledger.json from a backup or fix its JSON by hand; `phasegate repair` needs a readable ledger"
	case errors.Is(err, ErrInconsistentState), errors.Is(err, ErrScaffoldFailed):
		return "run `phasegate repair` to see and resolve the divergence"
	case errors.Is(err, ledger.ErrLocked):
		return "another phasegate process is writing; retry when it finishes"
	case errors.Is(err, ledger.ErrFilePermission):
		return "check the permissions of the project directories"
	case errors.Is(err, ledger.ErrInvalidTransition):
		return "phases only move forward and complete is final; use `phasegate repair fix --action set-phase` to move back"
	case errors.Is(err, repair.ErrActionNotApplicable):
		return "run `phasegate repair` to list the actions available for each id"
	}
	return ""
}
