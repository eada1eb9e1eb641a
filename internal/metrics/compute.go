package metrics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// Compute builds the snapshot for f from its ledger record and the markdown
// files in its folder. A missing folder yields zero artifact counts rather
// than an error; Repair reports that situation separately.
func Compute(ctx context.Context, layout ledger.Layout, f *ledger.Feature) (FeatureMetrics, error) {
	m := FeatureMetrics{
		FeatureID:  f.ID,
		Type:       f.Type,
		Phase:      f.Phase,
		Done:       f.IsComplete(),
		CreatedAt:  f.CreatedAt,
		PhaseHours: phaseHours(f.PhaseHistory),
		ComputedAt: f.UpdatedAt,
	}
	if m.Done {
		completed := f.CompletedAt()
		m.CompletedAt = &completed
		m.CycleTimeHours = round2(completed.Sub(f.CreatedAt).Hours())
	}

	if err := scanArtifacts(ctx, layout.FeaturePath(f.ID), &m); err != nil {
		return FeatureMetrics{}, err
	}
	return m, nil
}

// phaseHours sums the time spent in every exited phase. A phase visited
// twice (after a repair set-phase) accumulates both stays; skipped phases
// are left out.
func phaseHours(history []ledger.PhaseEntry) map[ledger.Phase]float64 {
	out := map[ledger.Phase]float64{}
	for _, e := range history {
		if e.ExitedAt == nil || e.Skipped {
			continue
		}
		out[e.Phase] += e.ExitedAt.Sub(e.EnteredAt).Hours()
	}
	for p, h := range out {
		out[p] = round2(h)
	}
	return out
}

func scanArtifacts(ctx context.Context, folder string, m *FeatureMetrics) error {
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content := string(data)
		m.ArtifactFiles++
		m.ArtifactWords += len(strings.Fields(content))
		m.ArtifactLines += countLines(content)
		total, done := gates.CountTasks(content)
		m.TasksTotal += total
		m.TasksDone += done
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return ledger.FSError(fmt.Errorf("scanning %s: %w", folder, err))
	}
	return nil
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(content, "\n"), "\n") + 1
}
