package gates

import (
	"context"
	"fmt"
	"strings"
)

// ContentGate checks that a phase document is present and complete. Each
// required section must exist and have content (one error per failure);
// missing recommended sections and untidy content produce warnings.
type ContentGate struct {
	File        string
	Required    []string
	Recommended []string

	// WantChecklist warns when the document has no checklist items.
	WantChecklist bool
	// WarnUnchecked warns when checklist items are left unticked.
	WarnUnchecked bool
	// RequirePassing makes a passing status line a hard requirement.
	RequirePassing bool
	// Hints are advisory phrases; a warning is raised when none appears.
	Hints     []string
	HintIssue string
}

// Validate inspects g.File in folder.
func (g *ContentGate) Validate(ctx context.Context, folder string) (*Result, error) {
	content, ok, err := readArtifact(ctx, folder, g.File)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewResult(missingArtifact(g.File)), nil
	}

	secs := parseSections(content)
	var issues []Issue

	for _, name := range g.Required {
		sec := findSection(secs, name)
		switch {
		case sec == nil:
			issues = append(issues, errorIssue(
				fmt.Sprintf("%s is missing the %q section", g.File, name),
				"## "+name,
				"",
			))
		case sec.body == "":
			issues = append(issues, errorIssue(
				fmt.Sprintf("%s has an empty %q section", g.File, name),
				"content under ## "+name,
				"",
			))
		}
	}

	if g.RequirePassing && !HasPassingStatus(content) {
		issues = append(issues, errorIssue(
			fmt.Sprintf("%s does not report a passing status", g.File),
			"status: pass or **status:** pass",
			statusLine(content),
		))
	}

	for _, name := range g.Recommended {
		if findSection(secs, name) == nil {
			issues = append(issues, warningIssue(
				fmt.Sprintf("%s has no %q section", g.File, name),
				"## "+name,
				"",
			))
		}
	}

	total, done := CountTasks(content)
	if g.WantChecklist && total == 0 {
		issues = append(issues, warningIssue(
			fmt.Sprintf("%s has no checklist items", g.File),
			"- [ ] items",
			"",
		))
	}
	if g.WarnUnchecked && done < total {
		issues = append(issues, warningIssue(
			fmt.Sprintf("%s has unchecked items", g.File),
			fmt.Sprintf("%d/%d checked", total, total),
			fmt.Sprintf("%d/%d checked", done, total),
		))
	}

	if found := placeholderRe.FindAllString(content, -1); len(found) > 0 {
		issues = append(issues, warningIssue(
			fmt.Sprintf("%s still contains placeholders", g.File),
			"no TODO/TBD/FIXME markers",
			fmt.Sprintf("%d marker(s)", len(found)),
		))
	}

	if len(g.Hints) > 0 && !coversHint(content, secs, g.Hints) {
		issues = append(issues, warningIssue(g.HintIssue, strings.Join(g.Hints, " / "), ""))
	}

	return NewResult(issues...), nil
}

// coversHint reports whether a hint is covered by written content: either a
// section titled with a hint has a body, or a hint appears in prose outside
// headings. Template headings and comments alone never count.
func coversHint(content string, secs []section, hints []string) bool {
	for _, sec := range secs {
		if sec.body != "" && containsAny(sec.title, hints) {
			return true
		}
	}
	return containsAny(proseText(content), hints)
}

func containsAny(content string, phrases []string) bool {
	lower := strings.ToLower(content)
	for _, p := range phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
