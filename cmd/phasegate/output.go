package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/transition"
)

// Styles for output
var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

const (
	iconPass = "✓"
	iconWarn = "⚠"
	iconFail = "✗"
)

// phaseStyle colors a phase by how far along it is.
func phaseStyle(p ledger.Phase) lipgloss.Style {
	switch p {
	case ledger.PhaseComplete:
		return passStyle
	case ledger.PhasePlanning:
		return mutedStyle
	default:
		return accentStyle
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printFeature(w io.Writer, f *ledger.Feature, path string) {
	fmt.Fprintf(w, "%s  %s\n", boldStyle.Render(f.ID), f.Title)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("type: "), f.Type)
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("phase:"), phaseStyle(f.Phase).Render(string(f.Phase)))
	if f.ExternalID != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("ext:  "), f.ExternalID)
	}
	if path != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("path: "), path)
	}
}

func printHistory(w io.Writer, entries []ledger.PhaseEntry) {
	for _, e := range entries {
		exited := "now"
		if e.ExitedAt != nil {
			exited = e.ExitedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "  %-15s %s → %s\n", e.Phase, e.EnteredAt.Local().Format(time.DateTime), exited)
	}
}

func printIssues(w io.Writer, res *gates.Result) {
	for _, is := range res.Errors() {
		fmt.Fprintf(w, "  %s %s%s\n", failStyle.Render(iconFail), is.Message, issueDetail(is))
	}
	for _, is := range res.Warnings() {
		fmt.Fprintf(w, "  %s %s%s\n", warnStyle.Render(iconWarn), is.Message, issueDetail(is))
	}
}

func issueDetail(is gates.Issue) string {
	if is.Expected == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(" (expected: " + is.Expected)
	if is.Actual != "" {
		b.WriteString("; actual: " + is.Actual)
	}
	b.WriteString(")")
	return mutedStyle.Render(b.String())
}

// printOutcome renders a gate verdict. committed says whether the move was
// attempted for real or only checked.
func printOutcome(w io.Writer, o *transition.Outcome, committed bool) {
	move := fmt.Sprintf("%s %s → %s", o.Feature.ID, o.From, o.To)
	switch {
	case o.Advanced:
		fmt.Fprintf(w, "%s Advanced %s\n", passStyle.Render(iconPass), move)
	case o.Result.Valid() && !committed:
		fmt.Fprintf(w, "%s Gate passes for %s\n", passStyle.Render(iconPass), move)
	default:
		fmt.Fprintf(w, "%s Gate failed for %s\n", failStyle.Render(iconFail), move)
	}
	if !o.Gated {
		fmt.Fprintln(w, mutedStyle.Render("  (no gate for this transition)"))
	}
	printIssues(w, o.Result)
}
