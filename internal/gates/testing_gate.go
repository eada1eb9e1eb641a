package gates

import "context"

const testingArtifact = "testing.md"

// TestingGate guards testing→complete for bugs and tasks. Both need a
// non-empty testing.md with a passing status. Bugs additionally get an
// advisory warning when the document doesn't show the defect was checked
// for regressions; the warning never blocks.
type TestingGate struct {
	RegressionAdvisory bool
}

// BugTestingGate returns the gate for bug → complete.
func BugTestingGate() *TestingGate {
	return &TestingGate{RegressionAdvisory: true}
}

// TaskTestingGate returns the gate for task → complete.
func TaskTestingGate() *TestingGate {
	return &TestingGate{}
}

// Validate inspects testing.md in folder.
func (g *TestingGate) Validate(ctx context.Context, folder string) (*Result, error) {
	content, ok, err := readArtifact(ctx, folder, testingArtifact)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewResult(missingArtifact(testingArtifact)), nil
	}

	var issues []Issue
	if !HasPassingStatus(content) {
		issues = append(issues, errorIssue(
			"testing.md does not report a passing status",
			"status: pass or **status:** pass",
			statusLine(content),
		))
	}
	if g.RegressionAdvisory && !MentionsRegression(content) {
		issues = append(issues, warningIssue(
			"testing.md does not mention regression verification",
			"evidence the fix does not reintroduce the defect (e.g. a regression test)",
			"",
		))
	}
	return NewResult(issues...), nil
}
