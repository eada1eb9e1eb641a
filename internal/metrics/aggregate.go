package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// CalculateAggregatedMetrics folds the full snapshot set into the
// aggregate. It is pure: the result depends only on all, not on input order
// or the clock. UpdatedAt is the newest ComputedAt in the set.
func CalculateAggregatedMetrics(all []FeatureMetrics) AggregatedMetrics {
	sorted := make([]FeatureMetrics, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FeatureID < sorted[j].FeatureID })

	agg := AggregatedMetrics{
		Totals:        Totals{ByType: zeroByType()},
		PhaseAverages: map[ledger.Phase]float64{},
	}

	var cycleSum, completionSum float64
	var cycleN, completionN, filesSum, wordsSum int
	var latest time.Time
	phaseSum := map[ledger.Phase]float64{}
	phaseN := map[ledger.Phase]int{}

	for _, m := range sorted {
		c := agg.Totals.ByType[m.Type]
		if m.Done {
			agg.Totals.Done++
			c.Done++
			cycleSum += m.CycleTimeHours
			cycleN++
		} else {
			agg.Totals.Todo++
			c.Todo++
		}
		agg.Totals.ByType[m.Type] = c

		filesSum += m.ArtifactFiles
		wordsSum += m.ArtifactWords
		if m.TasksTotal > 0 {
			completionSum += float64(m.TasksDone) / float64(m.TasksTotal)
			completionN++
		}
		for p, h := range m.PhaseHours {
			phaseSum[p] += h
			phaseN[p]++
		}
		if m.ComputedAt.After(latest) {
			latest = m.ComputedAt
		}
	}

	agg.UpdatedAt = latest
	agg.Averages = Averages{
		CycleTimeHours: mean(cycleSum, cycleN),
		ArtifactFiles:  mean(float64(filesSum), len(sorted)),
		ArtifactWords:  mean(float64(wordsSum), len(sorted)),
		TaskCompletion: mean(completionSum, completionN),
		SampleSize:     len(sorted),
	}
	for p, n := range phaseN {
		agg.PhaseAverages[p] = mean(phaseSum[p], n)
	}
	return agg
}

// BuildIndex summarizes the snapshot set for index.json.
func BuildIndex(all []FeatureMetrics, updated time.Time) Index {
	idx := Index{Version: IndexVersion, LastUpdated: updated, FeatureCount: len(all)}
	for _, m := range all {
		if m.Done {
			idx.CompletedCount++
		}
	}
	return idx
}

func zeroByType() map[ledger.FeatureType]Counts {
	out := make(map[ledger.FeatureType]Counts, len(ledger.AllTypes))
	for _, t := range ledger.AllTypes {
		out[t] = Counts{}
	}
	return out
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
