package templates

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

func sample(typ ledger.FeatureType) FeatureData {
	return NewFeatureData(&ledger.Feature{
		ID:          "bug-007",
		Title:       "Login fails on Safari",
		Type:        typ,
		ExternalID:  "JIRA-42",
		Description: "Reported by support.",
		CreatedAt:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	})
}

// --- NewRenderer ---

func TestNewRenderer_Succeeds(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() failed: %v", err)
	}
	if r == nil {
		t.Fatal("NewRenderer() returned nil")
	}
}

// --- Render: Planning ---

func TestRender_PlanningBug(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	result, err := r.Render(Planning, sample(ledger.TypeBug))
	if err != nil {
		t.Fatalf("Render(Planning) failed: %v", err)
	}

	checks := []string{
		"# bug-007: Login fails on Safari",
		"- Type: bug",
		"- External: JIRA-42",
		"- Opened: 2026-05-04",
		"Reported by support.",
		"## Problem",
		"## Steps to Reproduce",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("planning output missing: %q", check)
		}
	}
	if strings.Contains(result, "## Goals") {
		t.Error("bug planning should not have a Goals section")
	}
}

func TestRender_PlanningFeature(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := sample(ledger.TypeFeature)
	data.ExternalID = ""
	result, err := r.Render(Planning, data)
	if err != nil {
		t.Fatalf("Render(Planning) failed: %v", err)
	}

	for _, check := range []string{"## Problem", "## Goals", "## Non-goals"} {
		if !strings.Contains(result, check) {
			t.Errorf("feature planning missing: %q", check)
		}
	}
	if strings.Contains(result, "External:") {
		t.Error("empty external id should be omitted")
	}
}

// --- Render: Testing ---

func TestRender_TestingVerificationOnlyForBugs(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	bug, err := r.Render(Testing, sample(ledger.TypeBug))
	if err != nil {
		t.Fatalf("Render(Testing, bug) failed: %v", err)
	}
	task, err := r.Render(Testing, sample(ledger.TypeTask))
	if err != nil {
		t.Fatalf("Render(Testing, task) failed: %v", err)
	}

	if !strings.Contains(bug, "## Verification") {
		t.Error("bug testing doc should have a Verification section")
	}
	if strings.Contains(task, "## Verification") {
		t.Error("task testing doc should not have a Verification section")
	}
}

// Skeletons must never satisfy a gate on their own.
func TestRender_SkeletonsFailTheirGates(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	registry := gates.Default()

	for _, typ := range ledger.AllTypes {
		for _, target := range ledger.PhaseOrder[1:] {
			v, ok := registry.Resolve(typ, target)
			if !ok {
				continue
			}
			doc := ledger.GateArtifact(target)
			name, _ := ForPhase(ledger.PhaseOrder[ledger.PhaseIndex(target)-1])

			body, err := r.Render(name, sample(typ))
			if err != nil {
				t.Fatalf("Render(%s) failed: %v", name, err)
			}
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, doc), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}

			res, err := v.Validate(context.Background(), dir)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			// Bug planning and implementation gates only need the document.
			if typ == ledger.TypeBug && (target == ledger.PhaseImplementation || target == ledger.PhaseTesting) {
				continue
			}
			if res.Valid() {
				t.Errorf("%s skeleton for %s passed the %s gate", doc, typ, target)
			}
		}
	}
}

// --- Render: Unknown template ---

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	_, err = r.Render("nonexistent.md.tmpl", nil)
	if err == nil {
		t.Fatal("Render(nonexistent) should fail")
	}
}

func TestForPhase(t *testing.T) {
	for _, p := range []ledger.Phase{ledger.PhasePlanning, ledger.PhaseRefinement, ledger.PhaseImplementation, ledger.PhaseTesting} {
		name, ok := ForPhase(p)
		if !ok || name != ledger.ArtifactFilename(p)+".tmpl" {
			t.Errorf("ForPhase(%s) = %q, %v", p, name, ok)
		}
	}
	if _, ok := ForPhase(ledger.PhaseComplete); ok {
		t.Error("complete has no document")
	}
}
