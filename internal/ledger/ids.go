package ledger

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FormatID builds a feature id from its type and sequence: bug-007.
func FormatID(t FeatureType, seq int) string {
	return fmt.Sprintf("%s-%03d", t, seq)
}

// ParseID splits an id into its type and sequence.
// The second result is false for names that don't follow <type>-<n>.
func ParseID(id string) (FeatureType, int, bool) {
	prefix, rest, ok := strings.Cut(id, "-")
	if !ok {
		return "", 0, false
	}
	t := FeatureType(prefix)
	if !t.IsValid() {
		return "", 0, false
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq <= 0 {
		return "", 0, false
	}
	return t, seq, true
}

// nextID allocates the next id for t. The sequence is bounded below by the
// persisted counter, every id still in the ledger and every folder name in
// the active and removed roots, so an id is never handed out twice even when
// the ledger lost track of an old entry.
func nextID(l *Ledger, layout Layout, t FeatureType) string {
	maxSeq := l.Sequences[t]

	consider := func(name string) {
		if typ, seq, ok := ParseID(name); ok && typ == t && seq > maxSeq {
			maxSeq = seq
		}
	}
	for _, f := range l.Features {
		consider(f.ID)
	}
	for _, dir := range []string{layout.ActivePath(), layout.RemovedPath()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				consider(entry.Name())
			}
		}
	}

	seq := maxSeq + 1
	if l.Sequences == nil {
		l.Sequences = map[FeatureType]int{}
	}
	l.Sequences[t] = seq
	return FormatID(t, seq)
}
