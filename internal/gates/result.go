// Package gates implements the phase-gate validators.
//
// A gate inspects the artifacts in a feature folder and returns a Result:
// a list of error- and warning-level issues. Gates are pure: they read
// files and never write the ledger or the filesystem, so a failed check can
// be retried any number of times.
//
// Gates are values in a Registry keyed by (feature type, target phase). A
// missing key means the phase has no gate and the move is always allowed.
package gates

import "encoding/json"

// Level is the severity of a validation issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue is one finding from a gate.
type Issue struct {
	Level    Level  `json:"level"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func errorIssue(msg, expected, actual string) Issue {
	return Issue{Level: LevelError, Message: msg, Expected: expected, Actual: actual}
}

func warningIssue(msg, expected, actual string) Issue {
	return Issue{Level: LevelWarning, Message: msg, Expected: expected, Actual: actual}
}

// Result is a gate verdict. Validity is derived from the issue levels and
// cannot be set on its own.
type Result struct {
	issues []Issue
}

// NewResult builds a verdict from its issues.
func NewResult(issues ...Issue) *Result {
	r := &Result{issues: make([]Issue, len(issues))}
	copy(r.issues, issues)
	return r
}

// Pass is the verdict for a folder with no findings.
func Pass() *Result {
	return NewResult()
}

// Valid reports whether the result has zero error-level issues.
func (r *Result) Valid() bool {
	for _, is := range r.issues {
		if is.Level == LevelError {
			return false
		}
	}
	return true
}

// Issues returns a copy of every issue in report order.
func (r *Result) Issues() []Issue {
	out := make([]Issue, len(r.issues))
	copy(out, r.issues)
	return out
}

// Errors returns the error-level issues.
func (r *Result) Errors() []Issue { return r.filter(LevelError) }

// Warnings returns the warning-level issues.
func (r *Result) Warnings() []Issue { return r.filter(LevelWarning) }

func (r *Result) filter(level Level) []Issue {
	out := []Issue{}
	for _, is := range r.issues {
		if is.Level == level {
			out = append(out, is)
		}
	}
	return out
}

type resultJSON struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Issues   []Issue `json:"issues"`
}

// MarshalJSON writes the derived projections next to the issue list.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Valid:    r.Valid(),
		Errors:   r.Errors(),
		Warnings: r.Warnings(),
		Issues:   r.Issues(),
	})
}

// UnmarshalJSON rebuilds a Result from its issues; the stored projections
// are ignored and recomputed.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.issues = raw.Issues
	return nil
}
