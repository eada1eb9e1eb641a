package gates

import "github.com/HendryAvila/phasegate/internal/ledger"

// Default returns the built-in gate table.
//
//	feature: every phase gated on section completeness of the previous
//	         phase's document; complete also needs a passing status
//	bug:     implementation and testing need their input document,
//	         complete uses the bug testing gate
//	task:    only complete is gated
//
// Pairs not listed are ungated.
func Default() *Registry {
	r := NewRegistry()

	// --- feature ---
	r.mustRegister(ledger.TypeFeature, ledger.PhaseRefinement, &ContentGate{
		File:        "planning.md",
		Required:    []string{"Problem", "Goals"},
		Recommended: []string{"Non-goals"},
	})
	r.mustRegister(ledger.TypeFeature, ledger.PhaseImplementation, &ContentGate{
		File:          "refinement.md",
		Required:      []string{"Requirements", "Acceptance Criteria"},
		WantChecklist: true,
	})
	r.mustRegister(ledger.TypeFeature, ledger.PhaseTesting, &ContentGate{
		File:          "implementation.md",
		Required:      []string{"Changes"},
		WarnUnchecked: true,
	})
	r.mustRegister(ledger.TypeFeature, ledger.PhaseComplete, &ContentGate{
		File:           "testing.md",
		Required:       []string{"Test Plan"},
		Recommended:    []string{"Results"},
		RequirePassing: true,
	})

	// --- bug ---
	r.mustRegister(ledger.TypeBug, ledger.PhaseImplementation, &ContentGate{
		File:      "planning.md",
		Hints:     []string{"reproduce", "reproduction", "repro"},
		HintIssue: "planning.md does not describe how to reproduce the bug",
	})
	r.mustRegister(ledger.TypeBug, ledger.PhaseTesting, &ContentGate{
		File: "implementation.md",
	})
	r.mustRegister(ledger.TypeBug, ledger.PhaseComplete, BugTestingGate())

	// --- task ---
	r.mustRegister(ledger.TypeTask, ledger.PhaseComplete, TaskTestingGate())

	return r
}
