package gates

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// readArtifact reads a phase document from the feature folder. The second
// result is false when the file is missing or blank after trimming; both
// count as "not written yet", never as an error.
func readArtifact(ctx context.Context, folder, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(filepath.Join(folder, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, ledger.FSError(fmt.Errorf("reading %s: %w", name, err))
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return "", false, nil
	}
	return content, true, nil
}

// missingArtifact is the single issue reported for an absent or blank file.
func missingArtifact(name string) Issue {
	return errorIssue(
		fmt.Sprintf("%s is missing or empty", name),
		"non-empty "+name,
		"",
	)
}

// section is one markdown heading and the text up to the next heading.
type section struct {
	title string // lowercased, trailing colon dropped
	body  string
}

var commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// parseSections splits content on markdown headings outside fenced code
// blocks. HTML comments are dropped first, so template guidance left in a
// section does not count as content.
func parseSections(content string) []section {
	var out []section
	var body strings.Builder
	inFence := false
	flush := func() {
		if n := len(out); n > 0 {
			out[n-1].body = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(commentRe.ReplaceAllString(content, "")))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
		}
		if inFence || !strings.HasPrefix(line, "#") {
			body.WriteString(raw)
			body.WriteByte('\n')
			continue
		}
		flush()
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		title = strings.TrimSuffix(title, ":")
		out = append(out, section{title: strings.ToLower(title)})
	}
	flush()
	return out
}

// proseText returns content without HTML comments and without heading
// lines outside fenced code blocks.
func proseText(content string) string {
	var b strings.Builder
	inFence := false
	for _, raw := range strings.Split(commentRe.ReplaceAllString(content, ""), "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
		}
		if !inFence && strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(raw)
		b.WriteByte('\n')
	}
	return b.String()
}

// findSection returns the first section whose title starts with name
// (case-insensitive), or nil.
func findSection(secs []section, name string) *section {
	want := strings.ToLower(name)
	for i := range secs {
		if strings.HasPrefix(secs[i].title, want) {
			return &secs[i]
		}
	}
	return nil
}

var (
	checkboxRe    = regexp.MustCompile(`(?m)^\s*[-*+]\s+\[([ xX])\]`)
	placeholderRe = regexp.MustCompile(`\b(TODO|TBD|FIXME)\b`)
)

// CountTasks counts markdown checklist items and how many are ticked.
func CountTasks(content string) (total, done int) {
	for _, m := range checkboxRe.FindAllStringSubmatch(content, -1) {
		total++
		if m[1] != " " {
			done++
		}
	}
	return total, done
}

// passingMarkers are the only accepted spellings of a passing test status,
// matched case-insensitively.
var passingMarkers = []string{"status: pass", "**status:** pass"}

// HasPassingStatus reports whether content declares a passing status in
// plain-prose or bold-markdown form.
func HasPassingStatus(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range passingMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// statusLine returns the first line mentioning a status, for diagnostics.
func statusLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(line), "status") {
			return strings.TrimSpace(line)
		}
	}
	return "no status line"
}

// regressionRe matches content that documents regression verification: a
// regression heading, a regression test/check, or an explicit "no
// regressions found". A bare mention ("no regression notes") is not enough.
var regressionRe = regexp.MustCompile(
	`(?im)(^\s*#+\s*regression)` +
		`|(regression[\s-]*(test|tests|tested|testing|suite|check|checks|checked|verified|verification|free))` +
		`|(no\s+regressions?\s+(found|observed|detected))`,
)

// MentionsRegression reports whether content documents regression
// verification.
func MentionsRegression(content string) bool {
	return regressionRe.MatchString(content)
}
