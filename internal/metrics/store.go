package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

const (
	indexFile      = "index.json"
	aggregatedFile = "aggregated.json"
	featuresDir    = "features"
)

// --- Path helpers ---

func indexPath(layout ledger.Layout) string {
	return filepath.Join(layout.MetricsPath(), indexFile)
}

func aggregatedPath(layout ledger.Layout) string {
	return filepath.Join(layout.MetricsPath(), aggregatedFile)
}

func featuresPath(layout ledger.Layout) string {
	return filepath.Join(layout.MetricsPath(), featuresDir)
}

func featurePath(layout ledger.Layout, id string) string {
	return filepath.Join(featuresPath(layout), id+".json")
}

// --- Zero state ---

// Init writes the zero aggregate and zero index for a fresh project.
func Init(layout ledger.Layout) error {
	if err := os.MkdirAll(featuresPath(layout), 0o755); err != nil {
		return ledger.FSError(fmt.Errorf("creating metrics directory: %w", err))
	}
	agg := CalculateAggregatedMetrics(nil)
	agg.UpdatedAt = timeNow().UTC()
	if err := ledger.WriteJSONAtomic(aggregatedPath(layout), agg); err != nil {
		return err
	}
	return ledger.WriteJSONAtomic(indexPath(layout), BuildIndex(nil, agg.UpdatedAt))
}

// --- Snapshots ---

// SaveFeature writes one snapshot atomically.
func SaveFeature(layout ledger.Layout, m FeatureMetrics) error {
	return ledger.WriteJSONAtomic(featurePath(layout, m.FeatureID), m)
}

// DeleteFeature removes a snapshot; a missing one is not an error.
func DeleteFeature(layout ledger.Layout, id string) error {
	if err := os.Remove(featurePath(layout, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ledger.FSError(fmt.Errorf("deleting metrics for %s: %w", id, err))
	}
	return nil
}

// LoadFeature reads one snapshot.
func LoadFeature(layout ledger.Layout, id string) (*FeatureMetrics, error) {
	var m FeatureMetrics
	if err := readJSON(featurePath(layout, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadAll reads every snapshot, sorted by feature id.
func LoadAll(layout ledger.Layout) ([]FeatureMetrics, error) {
	entries, err := os.ReadDir(featuresPath(layout))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.FSError(fmt.Errorf("listing metrics: %w", err))
	}

	var out []FeatureMetrics
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		m, err := LoadFeature(layout, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeatureID < out[j].FeatureID })
	return out, nil
}

// --- Aggregate ---

// Refresh recomputes the aggregate and index from every snapshot on disk.
func Refresh(layout ledger.Layout) (AggregatedMetrics, error) {
	all, err := LoadAll(layout)
	if err != nil {
		return AggregatedMetrics{}, err
	}
	agg := CalculateAggregatedMetrics(all)
	if agg.UpdatedAt.IsZero() {
		agg.UpdatedAt = timeNow().UTC()
	}
	if err := ledger.WriteJSONAtomic(aggregatedPath(layout), agg); err != nil {
		return AggregatedMetrics{}, err
	}
	if err := ledger.WriteJSONAtomic(indexPath(layout), BuildIndex(all, agg.UpdatedAt)); err != nil {
		return AggregatedMetrics{}, err
	}
	return agg, nil
}

// LoadAggregated reads aggregated.json.
func LoadAggregated(layout ledger.Layout) (*AggregatedMetrics, error) {
	var agg AggregatedMetrics
	if err := readJSON(aggregatedPath(layout), &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// LoadIndex reads index.json.
func LoadIndex(layout ledger.Layout) (*Index, error) {
	var idx Index
	if err := readJSON(indexPath(layout), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.FSError(fmt.Errorf("reading %s: %w", filepath.Base(path), err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
